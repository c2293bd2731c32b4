package reportlog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/dharsanguruparan/intake/internal/model"
)

// JSONFile stores the whole log as one pretty-printed JSON array. Each Append
// reads the array, adds one record and rewrites the file through a temporary
// file and rename. Existing elements are carried over verbatim, whatever their
// shape. A file that is not a JSON array is treated as an empty log and
// replaced on the next Append.
type JSONFile struct {
	mu   sync.Mutex
	path string
}

// NewJSONFile creates the parent directory of path. The file itself is
// created lazily by the first Append.
func NewJSONFile(path string) (*JSONFile, error) {
	if path == "" {
		return nil, errors.New("json report log path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create report log dir: %w", err)
	}
	return &JSONFile{path: path}, nil
}

// Append adds rec to the end of the array.
func (j *JSONFile) Append(ctx context.Context, rec model.ReportRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := encode(rec, "")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	entries, err := j.load()
	if err != nil {
		return err
	}
	return j.write(append(entries, raw))
}

// List returns the records in insertion order. Elements that do not decode
// as a record are skipped.
func (j *JSONFile) List(ctx context.Context) ([]model.ReportRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	j.mu.Lock()
	entries, err := j.load()
	j.mu.Unlock()
	if err != nil {
		return nil, err
	}
	records := make([]model.ReportRecord, 0, len(entries))
	for _, raw := range entries {
		var rec model.ReportRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

func (j *JSONFile) Close() error { return nil }

func (j *JSONFile) load() ([]json.RawMessage, error) {
	data, err := os.ReadFile(j.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read report log: %w", err)
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, nil
	}
	return entries, nil
}

func (j *JSONFile) write(entries []json.RawMessage) error {
	if entries == nil {
		entries = []json.RawMessage{}
	}
	data, err := encode(entries, "  ")
	if err != nil {
		return fmt.Errorf("encode report log: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(j.path), ".laporan-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp report log: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write temp report log: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp report log: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("chmod report log: %w", err)
	}
	if err := os.Rename(tmp.Name(), j.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace report log: %w", err)
	}
	return nil
}

// encode marshals v without HTML escaping, so stored paths keep their
// entities readable.
func encode(v any, indent string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", indent)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	// Encode terminates with a newline; the stored document does not.
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
