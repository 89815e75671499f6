package runner

import (
	_ "Go2Sawzall/internal/aggregators"
	"Go2Sawzall/internal/config"
	"Go2Sawzall/internal/engine"
	"Go2Sawzall/internal/model"
	"Go2Sawzall/internal/program"
	"Go2Sawzall/internal/shuffle"
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lineSink struct {
	mu    sync.Mutex
	lines map[string][]string
}

func (l *lineSink) WriteLine(_ context.Context, key model.EmissionKey, line string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.lines == nil {
		l.lines = make(map[string][]string)
	}
	l.lines[key.Target] = append(l.lines[key.Target], line)
	return nil
}

func (l *lineSink) sorted(target string) []string {
	out := append([]string(nil), l.lines[target]...)
	sort.Strings(out)
	return out
}

var wordTargets = []config.TargetDef{
	{Name: "wc", Variant: "sum"},
	{Name: "len", Variant: "median"},
	{Name: "first", Variant: "first", Params: map[string]string{"limit": "2"}},
}

var wordInputs = [][]byte{
	[]byte("the cat the"),
	[]byte("a cat"),
	[]byte("the end"),
}

func jobConfig(mapTasks, nodes, partitions int, combine bool) *config.Config {
	return &config.Config{
		Job: config.JobConfig{
			MapTasks:   mapTasks,
			Nodes:      nodes,
			Partitions: partitions,
			Combine:    combine,
		},
		Targets: wordTargets,
	}
}

func TestRunWordCountAcrossLayouts(t *testing.T) {
	layouts := []struct {
		name                        string
		mapTasks, nodes, partitions int
		combine                     bool
	}{
		{"single", 1, 1, 1, false},
		{"single-combine", 1, 1, 1, true},
		{"wide", 3, 2, 3, false},
		{"wide-combine", 3, 2, 3, true},
		{"more-tasks-than-inputs", 5, 4, 2, true},
	}
	for _, l := range layouts {
		t.Run(l.name, func(t *testing.T) {
			sink := &lineSink{}
			r := New(jobConfig(l.mapTasks, l.nodes, l.partitions, l.combine), program.WordCount("wc", "len", "first"))
			report, err := r.Run(context.Background(), wordInputs, sink)
			require.NoError(t, err)

			assert.Equal(t, []string{"a 1", "cat 2", "end 1", "the 3"}, sink.sorted("wc"))
			assert.Equal(t, []string{"3"}, sink.sorted("len"))
			assert.Len(t, sink.lines["first"], 2)
			assert.Equal(t, 3, report.Inputs)
			assert.NotEmpty(t, report.Tasks)
		})
	}
}

func numbers(target string) engine.Program {
	return engine.ProgramFunc(func(ctx context.Context, input []byte, _ bool, emit model.Emitter) error {
		return emit.Emit(ctx, model.Record{
			Key:   model.NewEmissionKey(target, "k"),
			Value: model.EmissionValue{Data: input},
		})
	})
}

func TestRunRobustDropsBadValues(t *testing.T) {
	inputs := [][]byte{[]byte("1"), []byte("x"), []byte("2")}
	for _, combine := range []bool{false, true} {
		cfg := jobConfig(2, 2, 1, combine)
		cfg.Job.Robust = true
		cfg.Targets = []config.TargetDef{{Name: "total", Variant: "sum"}}

		sink := &lineSink{}
		_, err := New(cfg, numbers("total")).Run(context.Background(), inputs, sink)
		require.NoError(t, err)
		assert.Equal(t, []string{"k 3"}, sink.sorted("total"), "combine=%v", combine)
	}
}

func TestRunNonRobustAborts(t *testing.T) {
	cfg := jobConfig(1, 1, 1, true)
	cfg.Targets = []config.TargetDef{{Name: "total", Variant: "sum"}}

	_, err := New(cfg, numbers("total")).Run(context.Background(), [][]byte{[]byte("1"), []byte("x")}, &lineSink{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, engine.ErrApplication))
}

func TestRunUnknownVariantIsConfigurationError(t *testing.T) {
	cfg := jobConfig(1, 1, 1, true)
	cfg.Targets = []config.TargetDef{{Name: "total", Variant: "no-such-variant"}}

	_, err := New(cfg, numbers("total")).Run(context.Background(), [][]byte{[]byte("1")}, &lineSink{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, engine.ErrConfiguration))
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(jobConfig(2, 1, 1, true), program.WordCount("wc", "", "")).Run(ctx, wordInputs, &lineSink{})
	require.Error(t, err)
	assert.True(t, engine.IsFatal(err))
}

func TestMapCombineThenReducePartition(t *testing.T) {
	cfg := jobConfig(2, 1, 2, true)
	r := New(cfg, program.WordCount("wc", "", ""))

	parts := shuffle.NewPartitioner(cfg.Job.Partitions)
	var mu sync.Mutex
	sink := model.EmitterFunc(func(ctx context.Context, rec model.Record) error {
		mu.Lock()
		defer mu.Unlock()
		return parts.Emit(ctx, rec)
	})
	require.NoError(t, r.MapCombine(context.Background(), wordInputs, sink))

	out := &lineSink{}
	for p, g := range parts.Partitions() {
		require.NoError(t, r.ReducePartition(context.Background(), p, g, out))
	}
	assert.Equal(t, []string{"a 1", "cat 2", "end 1", "the 3"}, out.sorted("wc"))

	names := make([]string, 0)
	for _, s := range r.Snapshot() {
		names = append(names, s.Name)
	}
	assert.Contains(t, names, "combine-0")
	assert.Contains(t, names, "reduce-1")
}
