// Package runner drives a whole aggregation job in process: map tasks,
// node-local combine, partitioning and reduce.
package runner

import (
	"Go2Sawzall/internal/config"
	"Go2Sawzall/internal/engine"
	"Go2Sawzall/internal/factory"
	"Go2Sawzall/internal/model"
	"Go2Sawzall/internal/shuffle"
	"context"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"
)

// Report summarizes a finished job.
type Report struct {
	Inputs   int
	Keys     int
	Values   int
	Tasks    []engine.StatsSnapshot
	Duration time.Duration
}

// Runner orchestrates the tasks of one job.
type Runner struct {
	cfg     *config.Config
	program engine.Program

	mu    sync.Mutex
	stats []*engine.Stats
}

// New creates a Runner for program under cfg.
func New(cfg *config.Config, program engine.Program) *Runner {
	return &Runner{cfg: cfg, program: program}
}

// Snapshot returns the counters of every task started so far.
func (r *Runner) Snapshot() []engine.StatsSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]engine.StatsSnapshot, 0, len(r.stats))
	for _, s := range r.stats {
		out = append(out, s.Snapshot())
	}
	return out
}

func (r *Runner) newStats(format string, args ...interface{}) *engine.Stats {
	s := engine.NewStats(fmt.Sprintf(format, args...))
	r.mu.Lock()
	r.stats = append(r.stats, s)
	r.mu.Unlock()
	return s
}

// Run executes the job locally and writes every final line to out, which
// must be safe for concurrent use.
func (r *Runner) Run(ctx context.Context, inputs [][]byte, out model.LineWriter) (*Report, error) {
	start := time.Now()
	nodes := make([]*shuffle.Partitioner, r.cfg.Job.Nodes)
	for i := range nodes {
		nodes[i] = shuffle.NewPartitioner(r.cfg.Job.Partitions)
	}

	err := r.mapCombine(ctx, inputs, func(node int) model.Emitter { return nodes[node] })
	if err != nil {
		return nil, err
	}

	partitions := make([]*shuffle.Grouper, r.cfg.Job.Partitions)
	report := &Report{Inputs: len(inputs)}
	for p := range partitions {
		partitions[p] = shuffle.NewGrouper()
		for _, node := range nodes {
			partitions[p].Merge(node.Partitions()[p])
		}
		report.Keys += partitions[p].Keys()
		report.Values += partitions[p].Len()
	}
	log.Printf("Shuffled %d values for %d keys into %d partitions", report.Values, report.Keys, len(partitions))

	g, gctx := errgroup.WithContext(ctx)
	for p, grouper := range partitions {
		p, grouper := p, grouper
		g.Go(func() error {
			return r.ReducePartition(gctx, p, grouper, out)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report.Tasks = r.Snapshot()
	report.Duration = time.Since(start)
	log.Printf("Job finished in %s", report.Duration)
	return report, nil
}

// MapCombine runs the map and combine stages and sends their output to sink,
// which must be safe for concurrent use.
func (r *Runner) MapCombine(ctx context.Context, inputs [][]byte, sink model.Emitter) error {
	return r.mapCombine(ctx, inputs, func(int) model.Emitter { return sink })
}

func (r *Runner) mapCombine(ctx context.Context, inputs [][]byte, sinkFor func(node int) model.Emitter) error {
	tasks := r.cfg.Job.MapTasks
	nodes := r.cfg.Job.Nodes
	mapped := make([]*shuffle.Grouper, tasks)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < tasks; i++ {
		i := i
		lo, hi := i*len(inputs)/tasks, (i+1)*len(inputs)/tasks
		mapped[i] = shuffle.NewGrouper()
		g.Go(func() error {
			adapter := engine.NewMapAdapter(r.program, engine.Options{
				Robust: r.cfg.Job.Robust,
				Stats:  r.newStats("map-%d", i),
			})
			for _, input := range inputs[lo:hi] {
				if err := adapter.Map(gctx, input, mapped[i]); err != nil {
					return errors.Wrapf(err, "map task %d", i)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	// Map output lands on node task%nodes, in task order.
	local := make([]*shuffle.Grouper, nodes)
	for n := range local {
		local[n] = shuffle.NewGrouper()
	}
	for i, m := range mapped {
		local[i%nodes].Merge(m)
	}

	g, gctx = errgroup.WithContext(ctx)
	for n, grouper := range local {
		n, grouper := n, grouper
		g.Go(func() error {
			if !r.cfg.Job.Combine {
				return forward(gctx, grouper, sinkFor(n))
			}
			return r.combineNode(gctx, n, grouper, sinkFor(n))
		})
	}
	return g.Wait()
}

func (r *Runner) combineNode(ctx context.Context, node int, grouper *shuffle.Grouper, sink model.Emitter) error {
	aggregators, err := factory.NewAggregators(r.cfg.Targets)
	if err != nil {
		return errors.Mark(errors.Wrapf(err, "combine task %d", node), engine.ErrConfiguration)
	}
	combiner := engine.NewCombiner(aggregators, engine.Options{
		Robust: r.cfg.Job.Robust,
		Stats:  r.newStats("combine-%d", node),
	})
	return grouper.Each(func(key model.EmissionKey, values model.ValueIterator) error {
		if err := combiner.Combine(ctx, key, values, sink); err != nil {
			return errors.Wrapf(err, "combine task %d", node)
		}
		return nil
	})
}

// ReducePartition runs one reduce task over an already grouped partition.
func (r *Runner) ReducePartition(ctx context.Context, partition int, grouper *shuffle.Grouper, out model.LineWriter) error {
	tables, err := factory.NewTables(r.cfg.Targets)
	if err != nil {
		return errors.Mark(errors.Wrapf(err, "reduce task %d", partition), engine.ErrConfiguration)
	}
	reducer := engine.NewReducer(tables, out, engine.Options{
		Robust: r.cfg.Job.Robust,
		Stats:  r.newStats("reduce-%d", partition),
	})
	return grouper.Each(func(key model.EmissionKey, values model.ValueIterator) error {
		if err := reducer.Reduce(ctx, key, values); err != nil {
			return errors.Wrapf(err, "reduce task %d", partition)
		}
		return nil
	})
}

func forward(ctx context.Context, grouper *shuffle.Grouper, sink model.Emitter) error {
	return grouper.Each(func(key model.EmissionKey, values model.ValueIterator) error {
		for {
			v, err := values.Next()
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return err
			}
			if err := sink.Emit(ctx, model.Record{Key: key, Value: v}); err != nil {
				return engine.MarkIO(err)
			}
		}
	})
}
