package ledger

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// FileBlob stores blobs as files under a root directory, one file per
// key. It is the server-side stand-in for browser local storage.
type FileBlob struct {
	root string
}

// NewFileBlob creates the root directory if needed.
func NewFileBlob(root string) (*FileBlob, error) {
	if err := os.MkdirAll(root, dirPerm); err != nil {
		return nil, fmt.Errorf("create blob dir: %w", err)
	}
	return &FileBlob{root: root}, nil
}

// Read returns the blob contents, or an error when the key is absent.
func (b *FileBlob) Read(key string) ([]byte, error) {
	data, err := os.ReadFile(b.path(key))
	if err != nil {
		return nil, fmt.Errorf("read blob %s: %w", key, err)
	}
	return data, nil
}

// Write replaces the blob contents atomically (write temp, rename).
func (b *FileBlob) Write(key string, data []byte) error {
	tmp := b.path(key) + ".tmp"
	if err := os.WriteFile(tmp, data, filePerm); err != nil {
		return fmt.Errorf("write blob %s: %w", key, err)
	}
	if err := os.Rename(tmp, b.path(key)); err != nil {
		return fmt.Errorf("rename blob %s: %w", key, err)
	}
	return nil
}

func (b *FileBlob) path(key string) string {
	return filepath.Join(b.root, key+".json")
}
