// Package storage provides byte-blob persistence for pipeline artifacts.
// It defines the Store interface (port) for hexagonal architecture and
// implementations for local disk and S3 storage, interchangeable at
// wiring time.
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned when a blob does not exist in the store.
var ErrNotFound = errors.New("storage: blob not found")

// Containers group artifacts by kind. The same names are used as
// directory names on disk and key prefixes on S3.
const (
	ContainerAudio       = "audio"
	ContainerTranscripts = "transcripts"
	ContainerSummaries   = "summaries"
	ContainerMetadata    = "metadata"
)

// Store defines the interface for artifact blob persistence, keyed by
// container and name. Implementations must be safe for concurrent use.
type Store interface {
	// Put writes the contents of r under container/name and returns an
	// opaque locator for the stored blob (a path or URL).
	Put(ctx context.Context, container, name string, r io.Reader) (locator string, err error)

	// GetToWriter streams the blob under container/name into w.
	// Returns ErrNotFound if the blob does not exist.
	GetToWriter(ctx context.Context, container, name string, w io.Writer) error

	// GetToFile copies the blob under container/name to a local file path,
	// creating or truncating it. Returns ErrNotFound if the blob does not
	// exist.
	GetToFile(ctx context.Context, container, name, path string) error

	// Exists reports whether a blob is present under container/name.
	Exists(ctx context.Context, container, name string) (bool, error)

	// Delete removes the blob under container/name. Deleting a missing
	// blob is not an error.
	Delete(ctx context.Context, container, name string) error

	// Size returns the size in bytes of the blob under container/name.
	// Returns ErrNotFound if the blob does not exist.
	Size(ctx context.Context, container, name string) (int64, error)
}
