package model

import "io"

// ValueIterator yields the grouped values of one key in shuffle order.
// Next returns io.EOF once the group is exhausted; any other error is a
// failure of the underlying substrate.
type ValueIterator interface {
	Next() (EmissionValue, error)
}

// SliceIterator iterates over an in-memory group of values.
type SliceIterator struct {
	values []EmissionValue
	pos    int
}

// NewSliceIterator returns an iterator over values in order.
func NewSliceIterator(values ...EmissionValue) *SliceIterator {
	return &SliceIterator{values: values}
}

// Next implements ValueIterator.
func (it *SliceIterator) Next() (EmissionValue, error) {
	if it.pos >= len(it.values) {
		return EmissionValue{}, io.EOF
	}
	v := it.values[it.pos]
	it.pos++
	return v, nil
}
