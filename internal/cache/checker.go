// Package cache decides whether a pipeline artifact is genuinely
// available: its metadata record and its backing blob must both exist.
// When the two stores drift (record present, blob gone), the checker
// deletes the stale record so the pipeline re-derives the artifact.
// Metadata must never outlive the bytes it describes.
package cache

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/podbrief/podbrief-api/internal/record"
	"github.com/podbrief/podbrief-api/internal/storage"
)

// Class identifies which artifact family an availability check covers.
type Class string

const (
	// ClassEpisode checks the source audio blob against the episode record.
	ClassEpisode Class = "episode"
	// ClassSummary checks the summary artifacts against the summary record.
	ClassSummary Class = "summary"
)

// Checker performs cache availability checks with self-healing.
type Checker struct {
	blobs  storage.Store
	meta   record.MetadataStore
	logger *slog.Logger
}

// NewChecker creates a Checker over the given stores.
func NewChecker(blobs storage.Store, meta record.MetadataStore, logger *slog.Logger) *Checker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Checker{blobs: blobs, meta: meta, logger: logger}
}

// Available reports whether the artifact identified by class and key is
// usable from cache. A record without its backing blob is treated as a
// miss: the stale record is deleted before returning false.
func (c *Checker) Available(ctx context.Context, class Class, key string) (bool, error) {
	switch class {
	case ClassEpisode:
		return c.episodeAvailable(ctx, key)
	case ClassSummary:
		return c.summaryAvailable(ctx, key)
	default:
		return false, fmt.Errorf("cache: unknown class %q", class)
	}
}

func (c *Checker) episodeAvailable(ctx context.Context, key string) (bool, error) {
	hasRecord, err := c.meta.EpisodeExists(ctx, key)
	if err != nil {
		return false, fmt.Errorf("check episode record: %w", err)
	}
	if !hasRecord {
		return false, nil
	}

	hasBlob, err := c.blobs.Exists(ctx, storage.ContainerAudio, record.AudioName(key))
	if err != nil {
		return false, fmt.Errorf("check audio blob: %w", err)
	}
	if hasBlob {
		return true, nil
	}

	// Record without blob: self-heal by dropping the stale record so the
	// caller re-downloads instead of serving a broken reference.
	c.logger.Warn("stale episode record, deleting",
		slog.String("cache_key", key),
	)
	if err := c.meta.DeleteEpisode(ctx, key); err != nil {
		return false, fmt.Errorf("delete stale episode record: %w", err)
	}
	return false, nil
}

func (c *Checker) summaryAvailable(ctx context.Context, key string) (bool, error) {
	hasRecord, err := c.meta.SummaryExists(ctx, key)
	if err != nil {
		return false, fmt.Errorf("check summary record: %w", err)
	}
	if !hasRecord {
		return false, nil
	}

	hasAudio, err := c.blobs.Exists(ctx, storage.ContainerSummaries, record.SummaryAudioName(key))
	if err != nil {
		return false, fmt.Errorf("check summary audio blob: %w", err)
	}
	if hasAudio {
		return true, nil
	}

	c.logger.Warn("stale summary record, deleting",
		slog.String("cache_key", key),
	)
	if err := c.meta.DeleteSummary(ctx, key); err != nil {
		return false, fmt.Errorf("delete stale summary record: %w", err)
	}
	return false, nil
}
