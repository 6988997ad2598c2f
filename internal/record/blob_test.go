package record

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/podbrief/podbrief-api/internal/storage"
)

func setupBlobStore(t *testing.T) *BlobMetadataStore {
	t.Helper()
	blobs, err := storage.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore() error = %v", err)
	}
	return NewBlobMetadataStore(blobs)
}

func testEpisode(key string) *Episode {
	return &Episode{
		CacheKey:     key,
		OriginalURL:  "https://example.com/" + key + ".mp3",
		ArtifactPath: "/blobs/audio/" + key + ".mp3",
		DownloadedAt: time.Now().UTC().Truncate(time.Second),
		SizeBytes:    1 << 20,
	}
}

func testSummary(key string) *Summary {
	return &Summary{
		EpisodeKey:          key,
		TranscriptPath:      "/blobs/transcripts/" + key + "_transcript.txt",
		SummaryTextPath:     "/blobs/summaries/" + key + "_summary.txt",
		SummaryAudioPath:    "/blobs/summaries/" + key + "_summary.mp3",
		TranscriptWordCount: 5000,
		SummaryWordCount:    700,
		ProcessedAt:         time.Now().UTC().Truncate(time.Second),
	}
}

func TestBlobMetadataStore_EpisodeRoundTrip(t *testing.T) {
	store := setupBlobStore(t)
	ctx := context.Background()

	ep := testEpisode("aaaa1111bbbb2222cccc3333dddd4444")
	if err := store.SaveEpisode(ctx, ep); err != nil {
		t.Fatalf("SaveEpisode() error = %v", err)
	}

	exists, err := store.EpisodeExists(ctx, ep.CacheKey)
	if err != nil {
		t.Fatalf("EpisodeExists() error = %v", err)
	}
	if !exists {
		t.Error("EpisodeExists() = false after save")
	}

	got, err := store.GetEpisode(ctx, ep.CacheKey)
	if err != nil {
		t.Fatalf("GetEpisode() error = %v", err)
	}
	if got.OriginalURL != ep.OriginalURL {
		t.Errorf("OriginalURL = %q, want %q", got.OriginalURL, ep.OriginalURL)
	}
	if got.SizeBytes != ep.SizeBytes {
		t.Errorf("SizeBytes = %d, want %d", got.SizeBytes, ep.SizeBytes)
	}
	if !got.DownloadedAt.Equal(ep.DownloadedAt) {
		t.Errorf("DownloadedAt = %v, want %v", got.DownloadedAt, ep.DownloadedAt)
	}
}

func TestBlobMetadataStore_GetEpisode_NotFound(t *testing.T) {
	store := setupBlobStore(t)

	_, err := store.GetEpisode(context.Background(), "00000000000000000000000000000000")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetEpisode() error = %v, want ErrNotFound", err)
	}
}

func TestBlobMetadataStore_SummaryRoundTrip(t *testing.T) {
	store := setupBlobStore(t)
	ctx := context.Background()
	const key = "aaaa1111bbbb2222cccc3333dddd4444"

	if err := store.SaveSummary(ctx, key, testSummary(key)); err != nil {
		t.Fatalf("SaveSummary() error = %v", err)
	}

	exists, err := store.SummaryExists(ctx, key)
	if err != nil {
		t.Fatalf("SummaryExists() error = %v", err)
	}
	if !exists {
		t.Error("SummaryExists() = false after save")
	}

	got, err := store.GetSummary(ctx, key)
	if err != nil {
		t.Fatalf("GetSummary() error = %v", err)
	}
	if got.EpisodeKey != key {
		t.Errorf("EpisodeKey = %q, want %q", got.EpisodeKey, key)
	}
	if got.TranscriptWordCount != 5000 || got.SummaryWordCount != 700 {
		t.Errorf("word counts = (%d, %d), want (5000, 700)",
			got.TranscriptWordCount, got.SummaryWordCount)
	}
}

func TestBlobMetadataStore_DeleteEpisodeCascades(t *testing.T) {
	store := setupBlobStore(t)
	ctx := context.Background()
	const key = "aaaa1111bbbb2222cccc3333dddd4444"

	if err := store.SaveEpisode(ctx, testEpisode(key)); err != nil {
		t.Fatalf("SaveEpisode() error = %v", err)
	}
	if err := store.SaveSummary(ctx, key, testSummary(key)); err != nil {
		t.Fatalf("SaveSummary() error = %v", err)
	}

	if err := store.DeleteEpisode(ctx, key); err != nil {
		t.Fatalf("DeleteEpisode() error = %v", err)
	}

	if exists, _ := store.EpisodeExists(ctx, key); exists {
		t.Error("episode record still exists after delete")
	}
	if exists, _ := store.SummaryExists(ctx, key); exists {
		t.Error("summary record survived episode delete; cascade expected")
	}
}

func TestBlobMetadataStore_DeleteMissingIsNoop(t *testing.T) {
	store := setupBlobStore(t)
	ctx := context.Background()

	if err := store.DeleteEpisode(ctx, "00000000000000000000000000000000"); err != nil {
		t.Errorf("DeleteEpisode() of missing record error = %v", err)
	}
	if err := store.DeleteSummary(ctx, "00000000000000000000000000000000"); err != nil {
		t.Errorf("DeleteSummary() of missing record error = %v", err)
	}
}
