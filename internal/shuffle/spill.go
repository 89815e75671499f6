package shuffle

import (
	"Go2Sawzall/internal/codec"
	"Go2Sawzall/internal/model"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
)

// SpillSummary describes a spill directory; it is written as summary.json.
type SpillSummary struct {
	Partitions int    `json:"partitions"`
	Keys       int    `json:"keys"`
	Values     int    `json:"values"`
	Timestamp  string `json:"timestamp"`
}

// SpillPath returns the file holding partition i inside dir.
func SpillPath(dir string, partition int) string {
	return filepath.Join(dir, fmt.Sprintf("partition_%d.dat", partition))
}

// WriteSpill writes every partition to its own record stream file in dir so
// reduce tasks can run later, in another process.
func WriteSpill(dir string, parts []*Grouper) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(err, "failed to create spill directory")
	}

	summary := SpillSummary{Partitions: len(parts)}
	for i, g := range parts {
		if err := writePartition(SpillPath(dir, i), g); err != nil {
			return err
		}
		summary.Keys += g.Keys()
		summary.Values += g.Len()
	}
	summary.Timestamp = time.Now().UTC().Format(time.RFC3339)

	summaryFile, err := os.Create(filepath.Join(dir, "summary.json"))
	if err != nil {
		return errors.Wrap(err, "failed to create summary file")
	}
	defer summaryFile.Close()

	jsonEncoder := json.NewEncoder(summaryFile)
	jsonEncoder.SetIndent("", "  ")
	if err := jsonEncoder.Encode(summary); err != nil {
		return errors.Wrap(err, "failed to encode summary to json")
	}
	return nil
}

func writePartition(path string, g *Grouper) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create spill file '%s'", path)
	}
	defer file.Close()

	w := codec.NewWriter(file)
	err = g.Each(func(key model.EmissionKey, values model.ValueIterator) error {
		for {
			v, err := values.Next()
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return err
			}
			if err := w.Write(model.Record{Key: key, Value: v}); err != nil {
				return err
			}
		}
	})
	if err != nil {
		return errors.Wrapf(err, "failed to write spill file '%s'", path)
	}
	if err := w.Flush(); err != nil {
		return errors.Wrapf(err, "failed to flush spill file '%s'", path)
	}
	return file.Close()
}

// ReadSpill loads one partition file written by WriteSpill.
func ReadSpill(path string) (*Grouper, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open spill file '%s'", path)
	}
	defer file.Close()

	g := NewGrouper()
	r := codec.NewReader(file)
	for {
		rec, err := r.Read()
		if err == io.EOF {
			return g, nil
		}
		if err != nil {
			return nil, errors.Wrapf(err, "spill file '%s'", path)
		}
		g.Add(rec)
	}
}
