package aggregators

import (
	"Go2Sawzall/internal/model"
	"context"
)

// passThrough is the combine side of every non-associative variant. The
// combiner re-emits the values of such targets itself and never folds them.
type passThrough struct{}

func (passThrough) Start(model.EmissionKey)            {}
func (passThrough) Aggregate(_, _ []byte) model.Result { return model.Continue() }
func (passThrough) Finish(context.Context) error       { return nil }
func (passThrough) SetCombining(bool)                  {}
func (passThrough) IsAssociative() bool                { return false }
func (passThrough) SetContext(model.Emitter)           {}
