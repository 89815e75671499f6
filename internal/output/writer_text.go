package output

import (
	"Go2Sawzall/internal/model"
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
)

// SummaryData describes one writer's output, written as summary.json or
// summary-<partition>.json.
type SummaryData struct {
	Partition int            `json:"partition"`
	Targets   map[string]int `json:"targets"`
	Lines     int            `json:"lines"`
	Timestamp string         `json:"timestamp"`
}

type targetFile struct {
	file  *os.File
	w     *bufio.Writer
	lines int
}

// TextWriter writes each target's lines to <root>/<target>.txt, or to
// <root>/<target>-<partition>.txt when it serves a single partition.
type TextWriter struct {
	rootPath  string
	partition int

	mu    sync.Mutex
	files map[string]*targetFile
}

// NewTextWriter creates the output directory and returns a writer into it.
func NewTextWriter(rootPath string, partition int) (*TextWriter, error) {
	if err := os.MkdirAll(rootPath, 0755); err != nil {
		return nil, errors.Wrap(err, "failed to create output directory")
	}
	return &TextWriter{rootPath: rootPath, partition: partition, files: make(map[string]*targetFile)}, nil
}

func (w *TextWriter) fileName(base, ext string) string {
	if w.partition < 0 {
		return base + ext
	}
	return fmt.Sprintf("%s-%d%s", base, w.partition, ext)
}

// WriteLine implements model.LineWriter.
func (w *TextWriter) WriteLine(_ context.Context, key model.EmissionKey, line string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	tf, err := w.fileFor(key.Target)
	if err != nil {
		return err
	}
	if _, err := tf.w.WriteString(line); err != nil {
		return errors.Wrapf(err, "failed to write line for target '%s'", key.Target)
	}
	if err := tf.w.WriteByte('\n'); err != nil {
		return errors.Wrapf(err, "failed to write line for target '%s'", key.Target)
	}
	tf.lines++
	return nil
}

func (w *TextWriter) fileFor(target string) (*targetFile, error) {
	if tf, ok := w.files[target]; ok {
		return tf, nil
	}
	name := w.fileName(strings.ReplaceAll(target, string(os.PathSeparator), "_"), ".txt")
	path := filepath.Join(w.rootPath, name)
	file, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create output file '%s'", path)
	}
	tf := &targetFile{file: file, w: bufio.NewWriter(file)}
	w.files[target] = tf
	return tf, nil
}

// Close flushes every target file and writes summary.json.
func (w *TextWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	summary := SummaryData{
		Partition: w.partition,
		Targets:   make(map[string]int, len(w.files)),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	var firstErr error
	targets := make([]string, 0, len(w.files))
	for target := range w.files {
		targets = append(targets, target)
	}
	sort.Strings(targets)
	for _, target := range targets {
		tf := w.files[target]
		if err := tf.w.Flush(); err != nil && firstErr == nil {
			firstErr = errors.Wrapf(err, "failed to flush output for target '%s'", target)
		}
		if err := tf.file.Close(); err != nil && firstErr == nil {
			firstErr = errors.Wrapf(err, "failed to close output for target '%s'", target)
		}
		summary.Targets[target] = tf.lines
		summary.Lines += tf.lines
	}
	w.files = make(map[string]*targetFile)
	if firstErr != nil {
		return firstErr
	}

	summaryFile, err := os.Create(filepath.Join(w.rootPath, w.fileName("summary", ".json")))
	if err != nil {
		return errors.Wrap(err, "failed to create summary file")
	}
	defer summaryFile.Close()

	jsonEncoder := json.NewEncoder(summaryFile)
	jsonEncoder.SetIndent("", "  ")
	if err := jsonEncoder.Encode(summary); err != nil {
		return errors.Wrap(err, "failed to encode summary to json")
	}
	log.Printf("Wrote %d lines for %d targets to %s", summary.Lines, len(summary.Targets), w.rootPath)
	return nil
}
