package cache

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/podbrief/podbrief-api/internal/record"
	"github.com/podbrief/podbrief-api/internal/storage"
)

const testKey = "aaaa1111bbbb2222cccc3333dddd4444"

func setup(t *testing.T) (*Checker, storage.Store, record.MetadataStore) {
	t.Helper()
	blobs, err := storage.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore() error = %v", err)
	}
	meta := record.NewBlobMetadataStore(blobs)
	return NewChecker(blobs, meta, nil), blobs, meta
}

func saveEpisode(t *testing.T, meta record.MetadataStore) {
	t.Helper()
	err := meta.SaveEpisode(context.Background(), &record.Episode{
		CacheKey:     testKey,
		OriginalURL:  "https://example.com/a.mp3",
		ArtifactPath: "/blobs/audio/" + record.AudioName(testKey),
		DownloadedAt: time.Now(),
		SizeBytes:    3,
	})
	if err != nil {
		t.Fatalf("SaveEpisode() error = %v", err)
	}
}

func TestChecker_EpisodeHit(t *testing.T) {
	checker, blobs, meta := setup(t)
	ctx := context.Background()

	saveEpisode(t, meta)
	if _, err := blobs.Put(ctx, storage.ContainerAudio, record.AudioName(testKey), strings.NewReader("mp3")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	ok, err := checker.Available(ctx, ClassEpisode, testKey)
	if err != nil {
		t.Fatalf("Available() error = %v", err)
	}
	if !ok {
		t.Error("Available() = false with record and blob present")
	}
}

func TestChecker_EpisodeMissWithoutRecord(t *testing.T) {
	checker, _, _ := setup(t)

	ok, err := checker.Available(context.Background(), ClassEpisode, testKey)
	if err != nil {
		t.Fatalf("Available() error = %v", err)
	}
	if ok {
		t.Error("Available() = true with nothing stored")
	}
}

func TestChecker_EpisodeSelfHeal(t *testing.T) {
	checker, _, meta := setup(t)
	ctx := context.Background()

	// Record exists but the blob was never written: simulated drift.
	saveEpisode(t, meta)

	ok, err := checker.Available(ctx, ClassEpisode, testKey)
	if err != nil {
		t.Fatalf("Available() error = %v", err)
	}
	if ok {
		t.Error("Available() = true for record without blob")
	}

	// The stale record must be gone after exactly one check.
	exists, err := meta.EpisodeExists(ctx, testKey)
	if err != nil {
		t.Fatalf("EpisodeExists() error = %v", err)
	}
	if exists {
		t.Error("stale episode record not deleted by self-heal")
	}

	// A second check is a plain miss, no record left to heal.
	ok, err = checker.Available(ctx, ClassEpisode, testKey)
	if err != nil {
		t.Fatalf("Available() second call error = %v", err)
	}
	if ok {
		t.Error("Available() = true after self-heal")
	}
}

func TestChecker_SummaryHit(t *testing.T) {
	checker, blobs, meta := setup(t)
	ctx := context.Background()

	err := meta.SaveSummary(ctx, testKey, &record.Summary{
		EpisodeKey:       testKey,
		SummaryAudioPath: "/blobs/summaries/" + record.SummaryAudioName(testKey),
		ProcessedAt:      time.Now(),
	})
	if err != nil {
		t.Fatalf("SaveSummary() error = %v", err)
	}
	if _, err := blobs.Put(ctx, storage.ContainerSummaries, record.SummaryAudioName(testKey), strings.NewReader("mp3")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	ok, err := checker.Available(ctx, ClassSummary, testKey)
	if err != nil {
		t.Fatalf("Available() error = %v", err)
	}
	if !ok {
		t.Error("Available() = false with summary record and audio present")
	}
}

func TestChecker_SummarySelfHeal(t *testing.T) {
	checker, _, meta := setup(t)
	ctx := context.Background()

	err := meta.SaveSummary(ctx, testKey, &record.Summary{
		EpisodeKey:  testKey,
		ProcessedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("SaveSummary() error = %v", err)
	}

	ok, err := checker.Available(ctx, ClassSummary, testKey)
	if err != nil {
		t.Fatalf("Available() error = %v", err)
	}
	if ok {
		t.Error("Available() = true for summary record without audio blob")
	}

	exists, err := meta.SummaryExists(ctx, testKey)
	if err != nil {
		t.Fatalf("SummaryExists() error = %v", err)
	}
	if exists {
		t.Error("stale summary record not deleted by self-heal")
	}
}

func TestChecker_UnknownClass(t *testing.T) {
	checker, _, _ := setup(t)

	if _, err := checker.Available(context.Background(), Class("bogus"), testKey); err == nil {
		t.Error("Available() with unknown class should fail")
	}
}
