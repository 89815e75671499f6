// Package aggregators holds the reference reduction variants. Values are ASCII
// decimal integers carried in EmissionValue.Data.
package aggregators

import (
	"Go2Sawzall/internal/model"
	"strconv"

	"github.com/cockroachdb/errors"
)

// ErrBadValue is returned for values a variant cannot interpret.
var ErrBadValue = errors.New("malformed value")

func parseInt(data []byte) (int64, error) {
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0, errors.Mark(errors.Wrapf(err, "value %q", data), ErrBadValue)
	}
	return n, nil
}

func formatInt(n int64) []byte {
	return strconv.AppendInt(nil, n, 10)
}

// formatLine renders one output line: "<group> <value>", or just the value
// for a global aggregation.
func formatLine(key model.EmissionKey, value string) string {
	if len(key.Group) == 0 {
		return value
	}
	return string(key.Group) + " " + value
}
