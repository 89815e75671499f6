// Package shuffle groups emission records by key and moves them between the
// map, combine and reduce stages.
package shuffle

import (
	"Go2Sawzall/internal/model"
	"context"

	"github.com/google/btree"
)

const btreeDegree = 32

// group holds every value seen for one key, in arrival order.
type group struct {
	key    model.EmissionKey
	values []model.EmissionValue
}

func (g *group) Less(than btree.Item) bool {
	return model.Compare(g.key, than.(*group).key) < 0
}

// Grouper collects records and hands them out grouped by key, keys in
// (target, group) order and values in the order they were added. It is not
// safe for concurrent use.
type Grouper struct {
	tree   *btree.BTree
	values int
}

// NewGrouper returns an empty Grouper.
func NewGrouper() *Grouper {
	return &Grouper{tree: btree.New(btreeDegree)}
}

// Add appends r to the group of its key.
func (g *Grouper) Add(r model.Record) {
	probe := &group{key: r.Key}
	if item := g.tree.Get(probe); item != nil {
		existing := item.(*group)
		existing.values = append(existing.values, r.Value)
	} else {
		probe.values = []model.EmissionValue{r.Value}
		g.tree.ReplaceOrInsert(probe)
	}
	g.values++
}

// Emit implements model.Emitter so a Grouper can sit directly behind an engine.
func (g *Grouper) Emit(_ context.Context, r model.Record) error {
	g.Add(r)
	return nil
}

// Keys returns the number of distinct keys.
func (g *Grouper) Keys() int {
	return g.tree.Len()
}

// Len returns the number of values added.
func (g *Grouper) Len() int {
	return g.values
}

// Each calls fn for every key in order. Iteration stops at the first error.
func (g *Grouper) Each(fn func(key model.EmissionKey, values model.ValueIterator) error) error {
	var err error
	g.tree.Ascend(func(item btree.Item) bool {
		grp := item.(*group)
		err = fn(grp.key, model.NewSliceIterator(grp.values...))
		return err == nil
	})
	return err
}

// Merge appends every value of other to g, key by key. Values of other follow
// the values already in g.
func (g *Grouper) Merge(other *Grouper) {
	other.tree.Ascend(func(item btree.Item) bool {
		grp := item.(*group)
		for _, v := range grp.values {
			g.Add(model.Record{Key: grp.key, Value: v})
		}
		return true
	})
}
