// ABOUTME: Directory-backed passcode store, one small text file per email key
// ABOUTME: Files hold "code:unix\n" and are replaced atomically via rename

package passcode

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// FileStore keeps each record in dir/<key>.
type FileStore struct {
	dir string
}

// NewFileStore creates dir if needed and returns a store rooted there.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("creating passcode directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (f *FileStore) path(key string) string {
	return filepath.Join(f.dir, filepath.Base(key))
}

// Put writes rec for key, replacing any previous file.
func (f *FileStore) Put(_ context.Context, key string, rec Record) error {
	tmp, err := os.CreateTemp(f.dir, ".passcode-*")
	if err != nil {
		return fmt.Errorf("creating passcode file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(rec.Encode() + "\n"); err != nil {
		tmp.Close()
		return fmt.Errorf("writing passcode file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing passcode file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path(key)); err != nil {
		return fmt.Errorf("replacing passcode file: %w", err)
	}
	return nil
}

// Get reads the record for key.
func (f *FileStore) Get(_ context.Context, key string) (Record, error) {
	data, err := os.ReadFile(f.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return Record{}, ErrNoRecord
	}
	if err != nil {
		return Record{}, fmt.Errorf("reading passcode file: %w", err)
	}
	return ParseRecord(string(data))
}

// Delete removes the file for key, if any.
func (f *FileStore) Delete(_ context.Context, key string) error {
	err := os.Remove(f.path(key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing passcode file: %w", err)
	}
	return nil
}
