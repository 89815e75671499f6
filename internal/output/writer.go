// Package output persists the final lines produced by the reduce stage.
package output

import (
	"Go2Sawzall/internal/config"
	"Go2Sawzall/internal/model"

	"github.com/cockroachdb/errors"
)

// Writer is a LineWriter that must be closed to make its output durable.
type Writer interface {
	model.LineWriter
	Close() error
}

// AllPartitions names the output of a job that reduces every partition in one
// process.
const AllPartitions = -1

// New creates the writer selected by cfg.Type for the given reduce partition.
// Writers of different partitions never overwrite each other's output.
func New(cfg config.OutputConfig, partition int) (Writer, error) {
	switch cfg.Type {
	case "text", "":
		return NewTextWriter(cfg.RootPath, partition)
	case "clickhouse":
		return NewClickHouseWriter(cfg.ClickHouse, partition)
	default:
		return nil, errors.Newf("unknown output type '%s'", cfg.Type)
	}
}
