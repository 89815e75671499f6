package aggregators

import (
	"Go2Sawzall/internal/model"
	"context"
	"strconv"
)

// intFold is the shared state of the associative integer variants.
type intFold struct {
	merge     func(acc, v int64) int64
	key       model.EmissionKey
	acc       int64
	seen      bool
	combining bool
}

func (f *intFold) Start(key model.EmissionKey) {
	f.key = key
	f.acc = 0
	f.seen = false
}

func (f *intFold) Aggregate(data, _ []byte) model.Result {
	v, err := parseInt(data)
	if err != nil {
		return model.Fail(err)
	}
	if !f.seen {
		f.acc, f.seen = v, true
	} else {
		f.acc = f.merge(f.acc, v)
	}
	return model.Continue()
}

func (f *intFold) SetCombining(combining bool) {
	f.combining = combining
}

// intAggregator emits the partial result in the same shape as an input value.
type intAggregator struct {
	intFold
	out model.Emitter
}

func (a *intAggregator) IsAssociative() bool { return true }

func (a *intAggregator) SetContext(out model.Emitter) { a.out = out }

func (a *intAggregator) Finish(ctx context.Context) error {
	if !a.seen {
		return nil
	}
	return a.out.Emit(ctx, model.Record{Key: a.key, Value: model.EmissionValue{Data: formatInt(a.acc)}})
}

// intTable writes the final value as a text line.
type intTable struct {
	intFold
	out model.LineWriter
}

func (t *intTable) SetContext(out model.LineWriter) { t.out = out }

func (t *intTable) Finish(ctx context.Context) error {
	if !t.seen {
		return nil
	}
	return t.out.WriteLine(ctx, t.key, formatLine(t.key, strconv.FormatInt(t.acc, 10)))
}

func sum(acc, v int64) int64 { return acc + v }

func maximum(acc, v int64) int64 {
	if v > acc {
		return v
	}
	return acc
}

// NewSumAggregator returns the combine-side sum variant.
func NewSumAggregator() model.Aggregator {
	return &intAggregator{intFold: intFold{merge: sum}}
}

// NewSumTable returns the reduce-side sum variant.
func NewSumTable() model.Table {
	return &intTable{intFold: intFold{merge: sum}}
}

// NewMaxAggregator returns the combine-side maximum variant.
func NewMaxAggregator() model.Aggregator {
	return &intAggregator{intFold: intFold{merge: maximum}}
}

// NewMaxTable returns the reduce-side maximum variant.
func NewMaxTable() model.Table {
	return &intTable{intFold: intFold{merge: maximum}}
}
