package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/yourusername/stock-prophet/internal/models"
)

// Writer persists documents with a full-file atomic replace: the document is
// marshaled entirely in memory, written to a temp file in the destination
// directory, synced, and renamed over the target. A reader polling the file
// never observes a partial write, and a failed run leaves the previous
// artifact untouched.
type Writer struct {
	path string
}

// NewWriter creates a writer targeting path.
func NewWriter(path string) *Writer {
	return &Writer{path: path}
}

// Path returns the destination path.
func (w *Writer) Path() string { return w.path }

// Write marshals and atomically replaces the artifact file.
func (w *Writer) Write(doc *Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshal: %v", models.ErrSerialization, err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: create output dir: %v", models.ErrSerialization, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(w.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: create temp file: %v", models.ErrSerialization, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: write temp file: %v", models.ErrSerialization, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: sync temp file: %v", models.ErrSerialization, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close temp file: %v", models.ErrSerialization, err)
	}

	if err := os.Rename(tmpName, w.path); err != nil {
		return fmt.Errorf("%w: replace artifact: %v", models.ErrSerialization, err)
	}
	return nil
}

// ReadGeneratedAt reads only the generated_at stamp of an existing artifact.
// A missing or unreadable file returns ok=false rather than an error: the
// caller just recomputes.
func ReadGeneratedAt(path string) (string, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	var stamp struct {
		GeneratedAt string `json:"generated_at"`
	}
	if err := json.Unmarshal(data, &stamp); err != nil || stamp.GeneratedAt == "" {
		return "", false
	}
	return stamp.GeneratedAt, true
}
