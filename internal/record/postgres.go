package record

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx database/sql driver
)

// Compile-time check that PostgresMetadataStore implements MetadataStore.
var _ MetadataStore = (*PostgresMetadataStore)(nil)

// PostgresMetadataStore persists records in Postgres via the pgx stdlib
// driver. The summaries table carries an ON DELETE CASCADE foreign key
// to episodes, so a summary record can never outlive its episode.
type PostgresMetadataStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS episodes (
	cache_key     TEXT PRIMARY KEY,
	original_url  TEXT NOT NULL,
	artifact_path TEXT NOT NULL,
	downloaded_at TIMESTAMPTZ NOT NULL,
	size_bytes    BIGINT NOT NULL CHECK (size_bytes >= 0)
);

CREATE TABLE IF NOT EXISTS summaries (
	episode_key           TEXT PRIMARY KEY REFERENCES episodes(cache_key) ON DELETE CASCADE,
	transcript_path       TEXT NOT NULL,
	summary_text_path     TEXT NOT NULL,
	summary_audio_path    TEXT NOT NULL,
	transcript_word_count INT NOT NULL,
	summary_word_count    INT NOT NULL,
	processed_at          TIMESTAMPTZ NOT NULL
);`

// NewPostgresMetadataStore opens a connection pool for dsn and ensures
// the schema exists.
func NewPostgresMetadataStore(ctx context.Context, dsn string) (*PostgresMetadataStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return &PostgresMetadataStore{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *PostgresMetadataStore) Close() error {
	return s.db.Close()
}

// GetEpisode retrieves the episode record for key.
func (s *PostgresMetadataStore) GetEpisode(ctx context.Context, key string) (*Episode, error) {
	var ep Episode
	err := s.db.QueryRowContext(ctx,
		`SELECT cache_key, original_url, artifact_path, downloaded_at, size_bytes
		 FROM episodes WHERE cache_key = $1`, key,
	).Scan(&ep.CacheKey, &ep.OriginalURL, &ep.ArtifactPath, &ep.DownloadedAt, &ep.SizeBytes)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query episode: %w", err)
	}
	return &ep, nil
}

// SaveEpisode persists an episode record.
func (s *PostgresMetadataStore) SaveEpisode(ctx context.Context, ep *Episode) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO episodes (cache_key, original_url, artifact_path, downloaded_at, size_bytes)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (cache_key) DO NOTHING`,
		ep.CacheKey, ep.OriginalURL, ep.ArtifactPath, ep.DownloadedAt, ep.SizeBytes,
	)
	if err != nil {
		return fmt.Errorf("insert episode: %w", err)
	}
	return nil
}

// EpisodeExists reports whether an episode record exists for key.
func (s *PostgresMetadataStore) EpisodeExists(ctx context.Context, key string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM episodes WHERE cache_key = $1)`, key,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("query episode existence: %w", err)
	}
	return exists, nil
}

// GetSummary retrieves the summary record for key.
func (s *PostgresMetadataStore) GetSummary(ctx context.Context, key string) (*Summary, error) {
	var sum Summary
	err := s.db.QueryRowContext(ctx,
		`SELECT episode_key, transcript_path, summary_text_path, summary_audio_path,
		        transcript_word_count, summary_word_count, processed_at
		 FROM summaries WHERE episode_key = $1`, key,
	).Scan(&sum.EpisodeKey, &sum.TranscriptPath, &sum.SummaryTextPath, &sum.SummaryAudioPath,
		&sum.TranscriptWordCount, &sum.SummaryWordCount, &sum.ProcessedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query summary: %w", err)
	}
	return &sum, nil
}

// SaveSummary persists a summary record for key.
func (s *PostgresMetadataStore) SaveSummary(ctx context.Context, key string, sum *Summary) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO summaries (episode_key, transcript_path, summary_text_path, summary_audio_path,
		                        transcript_word_count, summary_word_count, processed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (episode_key) DO NOTHING`,
		key, sum.TranscriptPath, sum.SummaryTextPath, sum.SummaryAudioPath,
		sum.TranscriptWordCount, sum.SummaryWordCount, sum.ProcessedAt,
	)
	if err != nil {
		return fmt.Errorf("insert summary: %w", err)
	}
	return nil
}

// SummaryExists reports whether a summary record exists for key.
func (s *PostgresMetadataStore) SummaryExists(ctx context.Context, key string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM summaries WHERE episode_key = $1)`, key,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("query summary existence: %w", err)
	}
	return exists, nil
}

// DeleteEpisode removes the episode record for key. The summary record,
// if any, is removed by the foreign key cascade.
func (s *PostgresMetadataStore) DeleteEpisode(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM episodes WHERE cache_key = $1`, key); err != nil {
		return fmt.Errorf("delete episode: %w", err)
	}
	return nil
}

// DeleteSummary removes the summary record for key.
func (s *PostgresMetadataStore) DeleteSummary(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM summaries WHERE episode_key = $1`, key); err != nil {
		return fmt.Errorf("delete summary: %w", err)
	}
	return nil
}
