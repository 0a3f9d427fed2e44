package memory

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// DefaultFilePath is the conversation file used when none is configured.
const DefaultFilePath = "agent_memory.json"

// FilePersister keeps the conversation in a single JSON file.
type FilePersister struct {
	path string
}

// NewFilePersister returns a persister for path.
func NewFilePersister(path string) *FilePersister {
	if path == "" {
		path = DefaultFilePath
	}
	return &FilePersister{path: path}
}

// Load reads the file. A missing file reports ErrNotFound.
func (p *FilePersister) Load(context.Context) ([]byte, error) {
	data, err := os.ReadFile(p.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", p.path, err)
	}
	return data, nil
}

// Save writes data to a temporary file and renames it over the target,
// so a failed write never truncates the previous log.
func (p *FilePersister) Save(_ context.Context, data []byte) error {
	dir := filepath.Dir(p.path)
	tmp, err := os.CreateTemp(dir, ".scout-memory-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, p.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename to %s: %w", p.path, err)
	}
	return nil
}

// Describe returns the file path.
func (p *FilePersister) Describe() string { return p.path }
