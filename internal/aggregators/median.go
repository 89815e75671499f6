package aggregators

import (
	"Go2Sawzall/internal/model"
	"context"
	"slices"
	"strconv"
)

// collector keeps every value of the current key.
type collector struct {
	key       model.EmissionKey
	values    []int64
	combining bool
}

func (c *collector) Start(key model.EmissionKey) {
	c.key = key
	c.values = c.values[:0]
}

func (c *collector) Aggregate(data, _ []byte) model.Result {
	v, err := parseInt(data)
	if err != nil {
		return model.Fail(err)
	}
	c.values = append(c.values, v)
	return model.Continue()
}

func (c *collector) SetCombining(combining bool) {
	c.combining = combining
}

type medianTable struct {
	collector
	out model.LineWriter
}

func (t *medianTable) SetContext(out model.LineWriter) { t.out = out }

// Finish writes the lower median of the collected values.
func (t *medianTable) Finish(ctx context.Context) error {
	if len(t.values) == 0 {
		return nil
	}
	sorted := slices.Clone(t.values)
	slices.Sort(sorted)
	m := sorted[(len(sorted)-1)/2]
	return t.out.WriteLine(ctx, t.key, formatLine(t.key, strconv.FormatInt(m, 10)))
}

// NewMedianAggregator returns the combine-side median variant. The median of
// partial medians is not the median of the whole, so it is not associative.
func NewMedianAggregator() model.Aggregator {
	return passThrough{}
}

// NewMedianTable returns the reduce-side median variant.
func NewMedianTable() model.Table {
	return &medianTable{}
}
