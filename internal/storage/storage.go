package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Store writes uploads into a single directory. Files are saved under a
// generated name so a client-supplied filename can never escape the
// directory or clobber an earlier upload.
type Store struct {
	dir string
}

// SavedFile describes one persisted upload. DisplayName is what the
// client called the file; StoredName is what it is called on disk.
type SavedFile struct {
	DisplayName string
	StoredName  string
	Path        string
	Size        int64
}

func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the directory uploads are written to.
func (s *Store) Dir() string { return s.dir }

// Save streams src to disk under a fresh uuid-based name, keeping only
// the original extension.
func (s *Store) Save(src io.Reader, filename string) (*SavedFile, error) {
	display := filepath.Base(filepath.Clean(filename))
	if display == "." || display == string(filepath.Separator) {
		display = "upload"
	}

	ext := strings.ToLower(filepath.Ext(display))
	stored := uuid.New().String() + ext
	path := filepath.Join(s.dir, stored)

	dest, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer dest.Close()

	size, err := io.Copy(dest, src)
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("failed to write upload: %w", err)
	}

	return &SavedFile{
		DisplayName: display,
		StoredName:  stored,
		Path:        path,
		Size:        size,
	}, nil
}
