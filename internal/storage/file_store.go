package storage

import (
	"ai-codereview-be/internal/apperror"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// ErrNotFound is wrapped by Read when the file does not exist
var ErrNotFound = errors.New("file not found")

type IFileStore interface {
	Read(ctx context.Context, path string) (string, error)
	// ReadOptional returns "" and no error for a file that does not exist yet
	ReadOptional(ctx context.Context, path string) (string, error)
	Write(ctx context.Context, path, content string) error
}

type localFileStore struct {
	fs   afero.Fs
	root string
}

// NewLocalFileStore scopes relative paths to root on the real filesystem. An
// empty root means the process working directory and no scoping.
func NewLocalFileStore(root string) IFileStore {
	return NewFileStore(afero.NewOsFs(), root)
}

// NewFileStore is NewLocalFileStore over any afero filesystem
func NewFileStore(fsys afero.Fs, root string) IFileStore {
	if root != "" {
		root = filepath.Clean(root)
	}
	return &localFileStore{fs: fsys, root: root}
}

func (s *localFileStore) resolve(op, path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", &apperror.StorageAccessError{Op: op, Path: path, Err: errors.New("empty path")}
	}
	if s.root == "" {
		return path, nil
	}

	full := path
	if !filepath.IsAbs(path) {
		full = filepath.Join(s.root, path)
	}
	full = filepath.Clean(full)

	rel, err := filepath.Rel(s.root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", &apperror.StorageAccessError{Op: op, Path: path, Err: fmt.Errorf("path escapes workspace root %s", s.root)}
	}
	return full, nil
}

func (s *localFileStore) Read(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	full, err := s.resolve("read", path)
	if err != nil {
		return "", err
	}
	data, err := afero.ReadFile(s.fs, full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			err = fmt.Errorf("%w: %v", ErrNotFound, err)
		}
		return "", &apperror.StorageAccessError{Op: "read", Path: path, Err: err}
	}
	return string(data), nil
}

func (s *localFileStore) ReadOptional(ctx context.Context, path string) (string, error) {
	content, err := s.Read(ctx, path)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	return content, err
}

func (s *localFileStore) Write(ctx context.Context, path, content string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := s.resolve("write", path)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(full); dir != "." {
		if err := s.fs.MkdirAll(dir, 0o755); err != nil {
			return &apperror.StorageAccessError{Op: "write", Path: path, Err: err}
		}
	}
	if err := afero.WriteFile(s.fs, full, []byte(content), 0o644); err != nil {
		return &apperror.StorageAccessError{Op: "write", Path: path, Err: err}
	}
	return nil
}
