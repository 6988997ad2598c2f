package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Compile-time check that LocalStore implements Store.
var _ Store = (*LocalStore)(nil)

// LocalStore implements the Store interface using local disk.
// Blobs live under <root>/<container>/<name>.
type LocalStore struct {
	root string
}

// NewLocalStore creates a new LocalStore rooted at root.
// If root is empty, a directory under os.TempDir() is used.
// The root directory is created if it doesn't exist.
func NewLocalStore(root string) (*LocalStore, error) {
	if root == "" {
		root = filepath.Join(os.TempDir(), "podbrief")
	}

	if err := os.MkdirAll(root, 0750); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}

	return &LocalStore{root: root}, nil
}

// Root returns the storage root directory.
func (s *LocalStore) Root() string {
	return s.root
}

func (s *LocalStore) blobPath(container, name string) string {
	return filepath.Join(s.root, container, name)
}

// Put writes the contents of r to <root>/<container>/<name> and returns
// the resulting file path. The write goes through a temp file and rename
// so readers never observe a partially written blob.
func (s *LocalStore) Put(ctx context.Context, container, name string, r io.Reader) (string, error) {
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	dir := filepath.Join(s.root, container)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", fmt.Errorf("create container directory: %w", err)
	}

	f, err := os.CreateTemp(dir, name+".tmp*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}

	tmpName := f.Name()
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("write blob: %w", err)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("close blob: %w", err)
	}

	final := s.blobPath(container, name)
	if err := os.Rename(tmpName, final); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("publish blob: %w", err)
	}

	return final, nil
}

// GetToWriter streams the blob into w.
func (s *LocalStore) GetToWriter(ctx context.Context, container, name string, w io.Writer) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	f, err := os.Open(s.blobPath(container, name)) // #nosec G304 - path is store-internal
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("open blob: %w", err)
	}
	defer func() { _ = f.Close() }()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("read blob: %w", err)
	}
	return nil
}

// GetToFile copies the blob to a local file path.
func (s *LocalStore) GetToFile(ctx context.Context, container, name, path string) error {
	f, err := os.Create(path) // #nosec G304 - path is provided by trusted caller
	if err != nil {
		return fmt.Errorf("create destination file: %w", err)
	}

	if err := s.GetToWriter(ctx, container, name, f); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("close destination file: %w", err)
	}
	return nil
}

// Exists reports whether the blob file is present.
func (s *LocalStore) Exists(ctx context.Context, container, name string) (bool, error) {
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	_, err := os.Stat(s.blobPath(container, name))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat blob: %w", err)
	}
	return true, nil
}

// Delete removes the blob file. Missing blobs are ignored.
func (s *LocalStore) Delete(ctx context.Context, container, name string) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	if err := os.Remove(s.blobPath(container, name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove blob: %w", err)
	}
	return nil
}

// Size returns the blob file size in bytes.
func (s *LocalStore) Size(ctx context.Context, container, name string) (int64, error) {
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	info, err := os.Stat(s.blobPath(container, name))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("stat blob: %w", err)
	}
	return info.Size(), nil
}
