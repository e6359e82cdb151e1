package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/coolbeans/yomikae/pkg/yomikae"
)

// ArrayWriter streams JSON values into an array held by an envelope:
//
//	{"run_id": "...", "kind": "results", "generated_at": "...", "items": [
//	{...},
//	{...}
//	]}
type ArrayWriter struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
	count  int
	closed bool
}

// NewArrayWriter writes the envelope header to w.
func NewArrayWriter(w io.Writer, runID, kind string) (*ArrayWriter, error) {
	header, err := json.Marshal(struct {
		RunID       string    `json:"run_id"`
		Kind        string    `json:"kind"`
		GeneratedAt time.Time `json:"generated_at"`
	}{runID, kind, time.Now().UTC()})
	if err != nil {
		return nil, err
	}
	// Reopen the object to append the items array.
	header = append(header[:len(header)-1], `,"items":[`...)
	if _, err := w.Write(header); err != nil {
		return nil, fmt.Errorf("failed to write %s header: %w", kind, err)
	}
	aw := &ArrayWriter{w: w}
	if c, ok := w.(io.Closer); ok {
		aw.closer = c
	}
	return aw, nil
}

// CreateArrayFile creates path and returns a writer over it.
func CreateArrayFile(path, runID, kind string) (*ArrayWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", path, err)
	}
	aw, err := NewArrayWriter(f, runID, kind)
	if err != nil {
		f.Close()
		return nil, err
	}
	return aw, nil
}

// Write appends one value.
func (a *ArrayWriter) Write(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal item: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return fmt.Errorf("write after close")
	}
	sep := ",\n"
	if a.count == 0 {
		sep = "\n"
	}
	if _, err := io.WriteString(a.w, sep); err != nil {
		return err
	}
	if _, err := a.w.Write(data); err != nil {
		return err
	}
	a.count++
	return nil
}

// Count returns the number of values written.
func (a *ArrayWriter) Count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.count
}

// Close terminates the array and the envelope, and closes the underlying
// writer when it is a Closer.
func (a *ArrayWriter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true

	tail := "\n]}\n"
	if a.count == 0 {
		tail = "]}\n"
	}
	_, err := io.WriteString(a.w, tail)
	if a.closer != nil {
		if cerr := a.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// Sink receives the outcomes of a run in location order.
type Sink interface {
	WriteResult(*yomikae.ClauseResult) error
	WriteFailure(*yomikae.ClauseFailure) error
}

// JSONSink writes results and failures to two array writers.
type JSONSink struct {
	Results  *ArrayWriter
	Failures *ArrayWriter
}

// OpenJSONSink creates the results and errors files of a run.
func OpenJSONSink(resultsPath, errorsPath, runID string) (*JSONSink, error) {
	results, err := CreateArrayFile(resultsPath, runID, "results")
	if err != nil {
		return nil, err
	}
	failures, err := CreateArrayFile(errorsPath, runID, "failures")
	if err != nil {
		results.Close()
		return nil, err
	}
	return &JSONSink{Results: results, Failures: failures}, nil
}

// WriteResult implements Sink.
func (s *JSONSink) WriteResult(r *yomikae.ClauseResult) error {
	return s.Results.Write(r)
}

// WriteFailure implements Sink.
func (s *JSONSink) WriteFailure(f *yomikae.ClauseFailure) error {
	return s.Failures.Write(f)
}

// Close closes both writers.
func (s *JSONSink) Close() error {
	err := s.Results.Close()
	if ferr := s.Failures.Close(); err == nil {
		err = ferr
	}
	return err
}
