package factory

import (
	"Go2Sawzall/internal/config"
	"Go2Sawzall/internal/model"
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/cockroachdb/errors"
)

var (
	// ErrUnknownVariant is returned when a target names a variant nobody registered.
	ErrUnknownVariant = errors.New("unknown aggregation variant")
	// ErrUnknownTarget is returned when an emission names an unregistered target.
	ErrUnknownTarget = errors.New("aggregation target not registered")
)

// Variant bundles the constructors of one reduction algorithm: the combine-side
// Aggregator and the reduce-side Table.
type Variant struct {
	NewAggregator func(def config.TargetDef) (model.Aggregator, error)
	NewTable      func(def config.TargetDef) (model.Table, error)
}

var (
	mu       sync.RWMutex
	variants = make(map[string]Variant)
)

// RegisterVariant registers a new variant under name. Registering the same
// name twice is a programming error.
func RegisterVariant(name string, v Variant) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := variants[name]; exists {
		panic(fmt.Sprintf("aggregation variant '%s' already registered", name))
	}
	if v.NewAggregator == nil || v.NewTable == nil {
		panic(fmt.Sprintf("aggregation variant '%s' is missing a constructor", name))
	}
	variants[name] = v
}

// Variants returns the registered variant names in sorted order.
func Variants() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(variants))
	for name := range variants {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func lookupVariant(name string) (Variant, error) {
	mu.RLock()
	defer mu.RUnlock()
	v, ok := variants[name]
	if !ok {
		return Variant{}, errors.Mark(errors.Newf("unknown aggregation variant: '%s'", name), ErrUnknownVariant)
	}
	return v, nil
}

// Registry maps target names to the instances a single task reuses for every
// key. It is built once at task start and never mutated afterwards.
type Registry[T any] struct {
	entries map[string]T
}

// NewRegistry wraps already constructed instances keyed by target name.
func NewRegistry[T any](entries map[string]T) *Registry[T] {
	copied := make(map[string]T, len(entries))
	for name, v := range entries {
		copied[name] = v
	}
	return &Registry[T]{entries: copied}
}

// Lookup returns the instance bound to target.
func (r *Registry[T]) Lookup(target string) (T, error) {
	v, ok := r.entries[target]
	if !ok {
		var zero T
		return zero, errors.Mark(errors.Newf("aggregation target not registered: '%s'", target), ErrUnknownTarget)
	}
	return v, nil
}

// Len returns the number of registered targets.
func (r *Registry[T]) Len() int {
	return len(r.entries)
}

// NewAggregators instantiates one Aggregator per target.
func NewAggregators(targets []config.TargetDef) (*Registry[model.Aggregator], error) {
	return build(targets, func(v Variant, def config.TargetDef) (model.Aggregator, error) {
		return v.NewAggregator(def)
	})
}

// NewTables instantiates one Table per target.
func NewTables(targets []config.TargetDef) (*Registry[model.Table], error) {
	return build(targets, func(v Variant, def config.TargetDef) (model.Table, error) {
		return v.NewTable(def)
	})
}

func build[T any](targets []config.TargetDef, create func(Variant, config.TargetDef) (T, error)) (*Registry[T], error) {
	reg := &Registry[T]{entries: make(map[string]T, len(targets))}
	for _, def := range targets {
		if _, dup := reg.entries[def.Name]; dup {
			return nil, errors.Newf("target '%s' declared twice", def.Name)
		}
		v, err := lookupVariant(def.Variant)
		if err != nil {
			return nil, errors.Wrapf(err, "error creating target '%s'", def.Name)
		}
		inst, err := create(v, def)
		if err != nil {
			return nil, errors.Wrapf(err, "error creating target '%s' of variant '%s'", def.Name, def.Variant)
		}
		reg.entries[def.Name] = inst
	}
	log.Printf("Built registry with %d aggregation targets", len(reg.entries))
	return reg, nil
}
