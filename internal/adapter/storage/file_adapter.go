package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rl1809/guild-bag/internal/core/domain"
	"github.com/rl1809/guild-bag/internal/errors"
)

// FileAdapter keeps the state as one JSON document on local disk.
type FileAdapter struct {
	path string
}

func NewFileAdapter(path string) *FileAdapter {
	return &FileAdapter{path: path}
}

func (f *FileAdapter) Path() string {
	return f.path
}

func (f *FileAdapter) Load(ctx context.Context) (domain.State, error) {
	if err := ctx.Err(); err != nil {
		return domain.State{}, err
	}

	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.NewState(), nil
		}
		return domain.State{}, errors.Storage("load", fmt.Errorf("read %s: %w", f.path, err))
	}

	s, err := decodeState(data)
	if err != nil {
		return domain.State{}, errors.Storage("load", fmt.Errorf("%s: %w", f.path, err)).
			WithDetail("path", f.path)
	}
	return s, nil
}

// Save writes the document to a temp file next to the target and renames it
// into place, so a crash never leaves a half-written file behind.
func (f *FileAdapter) Save(ctx context.Context, s domain.State) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := encodeState(s)
	if err != nil {
		return errors.Storage("save", err)
	}
	if err := writeFileAtomic(f.path, data, 0o644); err != nil {
		return errors.Storage("save", err).WithDetail("path", f.path)
	}
	return nil
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", path, err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write temp for %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp for %s: %w", path, err)
	}
	if err := tmp.Chmod(perm); err != nil {
		return fmt.Errorf("chmod temp for %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp for %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename temp for %s: %w", path, err)
	}
	return nil
}
