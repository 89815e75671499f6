package aggregators

import (
	"Go2Sawzall/internal/model"
	"context"
)

// firstN keeps the first limit values of a key and then reports early
// completion. Which values come "first" depends on shuffle order, so the
// variant is not associative.
type firstN struct {
	limit     int
	key       model.EmissionKey
	kept      [][]byte
	combining bool
}

func (f *firstN) Start(key model.EmissionKey) {
	f.key = key
	f.kept = f.kept[:0]
}

func (f *firstN) SetCombining(combining bool) {
	f.combining = combining
}

func (f *firstN) full() bool {
	return len(f.kept) >= f.limit
}

// firstTable writes each accepted value as soon as it arrives, so nothing is
// lost when the engine skips Finish after early completion.
type firstTable struct {
	firstN
	out model.LineWriter
}

func (t *firstTable) SetContext(out model.LineWriter) { t.out = out }

func (t *firstTable) Aggregate(data, _ []byte) model.Result {
	t.kept = append(t.kept, data)
	// Aggregate carries no context; the engine checks cancellation between values.
	if err := t.out.WriteLine(context.Background(), t.key, formatLine(t.key, string(data))); err != nil {
		return model.Fail(err)
	}
	if t.full() {
		return model.EarlyComplete()
	}
	return model.Continue()
}

func (t *firstTable) Finish(context.Context) error {
	return nil
}

// NewFirstAggregator returns the combine-side first-N variant.
func NewFirstAggregator(int) model.Aggregator {
	return passThrough{}
}

// NewFirstTable returns the reduce-side first-N variant.
func NewFirstTable(limit int) model.Table {
	if limit <= 0 {
		limit = 1
	}
	return &firstTable{firstN: firstN{limit: limit}}
}
