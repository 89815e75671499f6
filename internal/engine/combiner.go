package engine

import (
	"Go2Sawzall/internal/factory"
	"Go2Sawzall/internal/model"
	"context"
	"io"

	"github.com/cockroachdb/errors"
)

// Combiner is the node-local pre-reduction engine. For every key it either
// re-emits the values untouched (non-associative targets) or folds them into
// a single partial value (associative targets), never both.
type Combiner struct {
	aggregators *factory.Registry[model.Aggregator]
	folder      folder
}

// NewCombiner creates a Combiner over a task's aggregator registry.
func NewCombiner(aggregators *factory.Registry[model.Aggregator], opts Options) *Combiner {
	opts = opts.withDefaults("combine")
	return &Combiner{
		aggregators: aggregators,
		folder:      folder{robust: opts.Robust, logger: opts.Logger, stats: opts.Stats},
	}
}

// Stats returns the counters of this combiner.
func (c *Combiner) Stats() *Stats {
	return c.folder.stats
}

// Combine processes one key and its node-locally grouped values.
func (c *Combiner) Combine(ctx context.Context, key model.EmissionKey, values model.ValueIterator, out model.Emitter) error {
	agg, err := c.aggregators.Lookup(key.Target)
	if err != nil {
		return errors.Mark(err, ErrConfiguration)
	}
	c.folder.stats.keys.Add(1)
	sink := ioEmitter{out: out, stats: c.folder.stats}

	if !agg.IsAssociative() {
		return c.passThrough(ctx, key, values, sink)
	}

	agg.SetCombining(true)
	agg.SetContext(sink)
	return c.folder.fold(ctx, agg, key, values)
}

// passThrough re-emits every value under the original key, in input order.
// The partitioner hashes only the key, so these values still reach the same
// reducer as any partial results for that key.
func (c *Combiner) passThrough(ctx context.Context, key model.EmissionKey, values model.ValueIterator, out model.Emitter) error {
	for i := 0; ; i++ {
		if err := cancelled(ctx); err != nil {
			return errors.Wrapf(err, "passing through %s", key)
		}
		v, err := values.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return MarkIO(errors.Wrapf(err, "failed to read value %d of %s", i, key))
		}
		if err := out.Emit(ctx, model.Record{Key: key, Value: v}); err != nil {
			return err
		}
		c.folder.stats.passedThrough.Add(1)
	}
}
