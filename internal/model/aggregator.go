package model

import "context"

// Accumulator is the capability set shared by combine-side Aggregators and
// reduce-side Tables. One instance serves every key of a task, so Start must
// fully reset whatever the previous key left behind.
type Accumulator interface {
	// Start begins a fresh accumulation for key.
	Start(key EmissionKey)

	// Aggregate folds one value into the current accumulation.
	Aggregate(data, metadata []byte) Result

	// Finish emits the accumulated result through the bound context.
	// It is called at most once per Start and never after early completion.
	Finish(ctx context.Context) error

	// SetCombining switches between node-local pre-reduction and final reduction.
	SetCombining(combining bool)
}

// Aggregator is the combine-stage variant of an aggregation target.
type Aggregator interface {
	Accumulator

	// IsAssociative reports whether partial results may be merged later.
	// It is fixed at construction.
	IsAssociative() bool

	// SetContext binds the emitter used by Finish to re-emit partial values.
	SetContext(out Emitter)
}

// Table is the reduce-stage variant of an aggregation target.
type Table interface {
	Accumulator

	// SetContext binds the writer receiving the final output lines.
	SetContext(out LineWriter)
}
