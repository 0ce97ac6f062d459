// Package resultfile persists captured test runs to the fixed location
// read by the downstream validation step.
package resultfile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/tddguard/tdd-guard-go/pkg/capture"
)

// DataDir is the output directory relative to the resolved project
// root, and FileName the document written inside it.
const (
	DataDir  = ".claude/tdd-guard/data"
	FileName = "test.json"
)

// Path returns the full output path for a resolved root.
func Path(root string) string {
	return filepath.Join(root, filepath.FromSlash(DataDir), FileName)
}

// Writer serializes runs to disk. The document is always replaced
// wholesale; no history is kept.
type Writer struct {
	log      *zap.Logger
	validate bool
}

// Option customizes a Writer.
type Option func(*Writer)

// WithSchemaValidation enables a post-marshal check of the serialized
// document against the embedded result schema. Validation failures are
// logged, never fatal.
func WithSchemaValidation() Option {
	return func(w *Writer) { w.validate = true }
}

// New returns a Writer logging through log.
func New(log *zap.Logger, opts ...Option) *Writer {
	if log == nil {
		log = zap.NewNop()
	}
	w := &Writer{log: log}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write serializes run and replaces <root>/.claude/tdd-guard/data/
// test.json with it. The document lands via write-to-temp-then-rename
// so a concurrent reader never observes a partial file.
func (w *Writer) Write(root string, run capture.CapturedTestRun) error {
	dir := filepath.Join(root, filepath.FromSlash(DataDir))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output directory %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("serializing test run: %w", err)
	}
	data = append(data, '\n')

	if w.validate {
		if err := capture.ValidateJSON(data); err != nil {
			w.log.Warn("serialized run does not match the result schema", zap.Error(err))
		}
	}

	final := filepath.Join(dir, FileName)
	tmp := final + "." + ulid.Make().String() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, final); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replacing %s: %w", final, err)
	}
	return nil
}

// WriteBestEffort is the sink used from inside a test run: failures are
// logged to the operator and swallowed so the run itself is never
// broken by a reporting problem.
func (w *Writer) WriteBestEffort(root string, run capture.CapturedTestRun) {
	if err := w.Write(root, run); err != nil {
		w.log.Error("failed to persist test results", zap.String("root", root), zap.Error(err))
	}
}
