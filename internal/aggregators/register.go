package aggregators

import (
	"Go2Sawzall/internal/config"
	"Go2Sawzall/internal/factory"
	"Go2Sawzall/internal/model"
	"strconv"

	"github.com/cockroachdb/errors"
)

// --- Factory Registration ---

func init() {
	factory.RegisterVariant("sum", factory.Variant{
		NewAggregator: func(config.TargetDef) (model.Aggregator, error) { return NewSumAggregator(), nil },
		NewTable:      func(config.TargetDef) (model.Table, error) { return NewSumTable(), nil },
	})
	factory.RegisterVariant("max", factory.Variant{
		NewAggregator: func(config.TargetDef) (model.Aggregator, error) { return NewMaxAggregator(), nil },
		NewTable:      func(config.TargetDef) (model.Table, error) { return NewMaxTable(), nil },
	})
	factory.RegisterVariant("median", factory.Variant{
		NewAggregator: func(config.TargetDef) (model.Aggregator, error) { return NewMedianAggregator(), nil },
		NewTable:      func(config.TargetDef) (model.Table, error) { return NewMedianTable(), nil },
	})
	factory.RegisterVariant("first", factory.Variant{
		NewAggregator: func(def config.TargetDef) (model.Aggregator, error) {
			limit, err := limitParam(def)
			if err != nil {
				return nil, err
			}
			return NewFirstAggregator(limit), nil
		},
		NewTable: func(def config.TargetDef) (model.Table, error) {
			limit, err := limitParam(def)
			if err != nil {
				return nil, err
			}
			return NewFirstTable(limit), nil
		},
	})
}

func limitParam(def config.TargetDef) (int, error) {
	limit, err := strconv.Atoi(def.Param("limit", "1"))
	if err != nil || limit <= 0 {
		return 0, errors.Newf("invalid limit %q for target '%s'", def.Param("limit", "1"), def.Name)
	}
	return limit, nil
}
