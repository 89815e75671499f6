// Package program holds analysis programs that turn input records into
// emissions for the aggregation runtime.
package program

import (
	"Go2Sawzall/internal/engine"
	"Go2Sawzall/internal/model"
	"context"
	"strconv"
	"strings"
)

// WordCount splits a text line into words. For every word it emits
// (target, word) -> "1". When set, lengthTarget receives the word length
// under the global group and firstTarget receives the word itself.
func WordCount(target, lengthTarget, firstTarget string) engine.Program {
	return engine.ProgramFunc(func(ctx context.Context, input []byte, _ bool, emit model.Emitter) error {
		for _, word := range strings.Fields(string(input)) {
			records := make([]model.Record, 0, 3)
			records = append(records, model.Record{
				Key:   model.NewEmissionKey(target, word),
				Value: model.EmissionValue{Data: []byte("1")},
			})
			if lengthTarget != "" {
				records = append(records, model.Record{
					Key:   model.NewEmissionKey(lengthTarget, ""),
					Value: model.EmissionValue{Data: []byte(strconv.Itoa(len(word)))},
				})
			}
			if firstTarget != "" {
				records = append(records, model.Record{
					Key:   model.NewEmissionKey(firstTarget, ""),
					Value: model.EmissionValue{Data: []byte(word)},
				})
			}
			for _, r := range records {
				if err := emit.Emit(ctx, r); err != nil {
					return err
				}
			}
		}
		return nil
	})
}
