// Package record provides structured metadata persistence for processed
// episodes and their summaries. It defines the MetadataStore interface
// (port) and implementations backed by blob storage and by Postgres.
//
// Records are immutable once written. A summary record can only exist
// alongside its episode record; deleting an episode cascades to its
// summary.
package record

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record: not found")

// Episode captures the metadata of a downloaded source audio file.
// Created when a download completes; never mutated; deleted only when
// the cache checker finds the backing blob missing.
type Episode struct {
	// CacheKey is the derived key identifying this episode.
	CacheKey string `json:"cache_key"`
	// OriginalURL is the source locator the audio was downloaded from.
	OriginalURL string `json:"original_url"`
	// ArtifactPath is the opaque locator of the audio blob in the
	// artifact store.
	ArtifactPath string `json:"artifact_path"`
	// DownloadedAt is when the download completed.
	DownloadedAt time.Time `json:"downloaded_at"`
	// SizeBytes is the size of the downloaded audio.
	SizeBytes int64 `json:"size_bytes"`
}

// Summary captures the artifacts produced by a completed pipeline run.
// Created once speech synthesis succeeds; immutable thereafter.
type Summary struct {
	// EpisodeKey is the cache key of the episode this summary belongs to.
	EpisodeKey string `json:"episode_key"`
	// TranscriptPath is the locator of the full transcript artifact.
	TranscriptPath string `json:"transcript_path"`
	// SummaryTextPath is the locator of the summary text artifact.
	SummaryTextPath string `json:"summary_text_path"`
	// SummaryAudioPath is the locator of the synthesized summary audio.
	SummaryAudioPath string `json:"summary_audio_path"`
	// TranscriptWordCount is the word count of the full transcript.
	TranscriptWordCount int `json:"transcript_word_count"`
	// SummaryWordCount is the word count of the summary text.
	SummaryWordCount int `json:"summary_word_count"`
	// ProcessedAt is when the pipeline run completed.
	ProcessedAt time.Time `json:"processed_at"`
}

// MetadataStore defines the interface for episode and summary record
// persistence. It acts as a port in the hexagonal architecture pattern.
type MetadataStore interface {
	// GetEpisode retrieves the episode record for key.
	// Returns ErrNotFound if no record exists.
	GetEpisode(ctx context.Context, key string) (*Episode, error)

	// SaveEpisode persists an episode record.
	SaveEpisode(ctx context.Context, ep *Episode) error

	// EpisodeExists reports whether an episode record exists for key.
	EpisodeExists(ctx context.Context, key string) (bool, error)

	// GetSummary retrieves the summary record for the episode key.
	// Returns ErrNotFound if no record exists.
	GetSummary(ctx context.Context, key string) (*Summary, error)

	// SaveSummary persists a summary record for the episode key.
	SaveSummary(ctx context.Context, key string, sum *Summary) error

	// SummaryExists reports whether a summary record exists for key.
	SummaryExists(ctx context.Context, key string) (bool, error)

	// DeleteEpisode removes the episode record for key, cascading to its
	// summary record. Deleting a missing record is not an error.
	DeleteEpisode(ctx context.Context, key string) error

	// DeleteSummary removes the summary record for key. Deleting a
	// missing record is not an error.
	DeleteSummary(ctx context.Context, key string) error
}
