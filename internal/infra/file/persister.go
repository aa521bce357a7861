package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Persister stores each collection as an indented JSON array in
// <dir>/<collection>.json. Writes go to a temp file that is synced and then
// renamed over the target, so a crash leaves either the old or the new file.
type Persister struct {
	dir string
}

// NewPersister creates dir if needed.
func NewPersister(dir string) (*Persister, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &Persister{dir: dir}, nil
}

func (p *Persister) path(collection string) string {
	return filepath.Join(p.dir, collection+".json")
}

func (p *Persister) Save(_ context.Context, collection string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", collection, err)
	}

	tmp, err := os.CreateTemp(p.dir, collection+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op once renamed

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", collection, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", collection, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", collection, err)
	}
	if err := os.Rename(tmpName, p.path(collection)); err != nil {
		return fmt.Errorf("replace %s: %w", collection, err)
	}
	if err := p.syncDir(); err != nil {
		return fmt.Errorf("sync dir for %s: %w", collection, err)
	}
	return nil
}

// syncDir flushes the directory entry so the rename survives a crash.
func (p *Persister) syncDir() error {
	d, err := os.Open(p.dir)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
}

func (p *Persister) Load(_ context.Context, collection string, v any) (bool, error) {
	data, err := os.ReadFile(p.path(collection))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", collection, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", collection, err)
	}
	return true, nil
}
