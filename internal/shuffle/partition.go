package shuffle

import (
	"Go2Sawzall/internal/codec"
	"Go2Sawzall/internal/model"
	"context"
	"hash/fnv"
)

// Partition returns the reduce partition of key. It depends on nothing but the
// key, so every value of one key lands on the same reducer whether it was
// pre-combined or passed through.
func Partition(key model.EmissionKey, n int) int {
	if n <= 1 {
		return 0
	}
	hasher := fnv.New32a()
	hasher.Write(codec.PartitionKey(key))
	return int(hasher.Sum32() % uint32(n))
}

// Partitioner routes records into one Grouper per partition.
type Partitioner struct {
	parts []*Grouper
}

// NewPartitioner creates n empty partitions.
func NewPartitioner(n int) *Partitioner {
	if n < 1 {
		n = 1
	}
	p := &Partitioner{parts: make([]*Grouper, n)}
	for i := range p.parts {
		p.parts[i] = NewGrouper()
	}
	return p
}

// Emit implements model.Emitter.
func (p *Partitioner) Emit(_ context.Context, r model.Record) error {
	p.parts[Partition(r.Key, len(p.parts))].Add(r)
	return nil
}

// Partitions returns the per-partition groupers.
func (p *Partitioner) Partitions() []*Grouper {
	return p.parts
}
