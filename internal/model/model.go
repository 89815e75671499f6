package model

import (
	"bytes"
	"fmt"
)

// EmissionKey identifies the accumulation a value belongs to: the aggregation
// target it was emitted to and the grouping key inside that target. An empty
// Group denotes a global (ungrouped) aggregation.
type EmissionKey struct {
	Target string
	Group  []byte
}

// NewEmissionKey builds a key from a target name and a string group.
func NewEmissionKey(target, group string) EmissionKey {
	return EmissionKey{Target: target, Group: []byte(group)}
}

// Compare orders keys by target name, then by group, both byte-lexicographically.
func Compare(a, b EmissionKey) int {
	if a.Target != b.Target {
		if a.Target < b.Target {
			return -1
		}
		return 1
	}
	return bytes.Compare(a.Group, b.Group)
}

// Equal reports whether both fields of the keys match.
func (k EmissionKey) Equal(other EmissionKey) bool {
	return Compare(k, other) == 0
}

func (k EmissionKey) String() string {
	return fmt.Sprintf("%s[%q]", k.Target, k.Group)
}

// EmissionValue is the payload delivered for one occurrence of an EmissionKey.
type EmissionValue struct {
	Data     []byte
	Metadata []byte
}

// Record is the wire tuple exchanged between the map, combine and reduce stages.
type Record struct {
	Key   EmissionKey
	Value EmissionValue
}
