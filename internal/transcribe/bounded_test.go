package transcribe

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/podbrief/podbrief-api/internal/chunker"
)

// fakeTranscriber returns canned text per call and tracks concurrency.
type fakeTranscriber struct {
	mu       sync.Mutex
	calls    int
	inFlight int32
	maxSeen  int32
	delay    time.Duration
	failPath string
	textFor  func(path string) string
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, audioPath string) (string, error) {
	cur := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)

	for {
		prev := atomic.LoadInt32(&f.maxSeen)
		if cur <= prev || atomic.CompareAndSwapInt32(&f.maxSeen, prev, cur) {
			break
		}
	}

	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	// Failures are immediate; the delay only holds healthy chunks in
	// flight.
	if f.failPath != "" && strings.HasSuffix(audioPath, f.failPath) {
		return "", errors.New("provider rejected chunk")
	}

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	if f.textFor != nil {
		return f.textFor(audioPath), nil
	}
	return "words from " + filepath.Base(audioPath), nil
}

func writeSource(t *testing.T, size int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "source.mp3")
	if err := os.WriteFile(path, make([]byte, size), 0600); err != nil {
		t.Fatalf("write source: %v", err)
	}
	return path
}

func multiChunkPlan() []chunker.Chunk {
	opts := chunker.DefaultOpts()
	return chunker.Plan(30<<20, opts) // ~1966s at 128 kbps, 4 chunks
}

func TestBounded_SingleChunkUsesSourceDirectly(t *testing.T) {
	fake := &fakeTranscriber{}
	b := NewBounded(fake, DefaultOptions(), nil)

	source := writeSource(t, 1024)
	chunks := []chunker.Chunk{{Index: 0, DurationSeconds: 30}}

	text, err := b.Transcribe(context.Background(), source, chunks, t.TempDir())
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if text != "words from source.mp3" {
		t.Errorf("text = %q, want direct source transcription", text)
	}
	if fake.calls != 1 {
		t.Errorf("calls = %d, want 1", fake.calls)
	}
}

func TestBounded_ReassemblesInOrder(t *testing.T) {
	fake := &fakeTranscriber{
		textFor: func(path string) string {
			// segment_003.mp3 -> "part3"
			base := filepath.Base(path)
			num := strings.TrimSuffix(strings.TrimPrefix(base, "segment_"), ".mp3")
			return "part" + strings.TrimLeft(num, "0")
		},
		delay: time.Millisecond,
	}
	b := NewBounded(fake, DefaultOptions(), nil)

	chunks := multiChunkPlan()
	source := writeSource(t, 30<<20)

	text, err := b.Transcribe(context.Background(), source, chunks, t.TempDir())
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}

	var want []string
	for i := range chunks {
		want = append(want, fmt.Sprintf("part%d", i))
	}
	// chunk 0 is "part" with no digit trimming issue: segment_000 -> "part"
	want[0] = "part"
	if got := strings.Join(want, " "); text != got {
		t.Errorf("text = %q, want %q", text, got)
	}
}

func TestBounded_ConcurrencyCap(t *testing.T) {
	fake := &fakeTranscriber{delay: 20 * time.Millisecond}
	opts := DefaultOptions()
	opts.MaxConcurrent = 2
	b := NewBounded(fake, opts, nil)

	chunks := multiChunkPlan()
	if len(chunks) < 3 {
		t.Fatalf("test needs at least 3 chunks, got %d", len(chunks))
	}
	source := writeSource(t, 30<<20)

	if _, err := b.Transcribe(context.Background(), source, chunks, t.TempDir()); err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}

	if max := atomic.LoadInt32(&fake.maxSeen); max > 2 {
		t.Errorf("observed %d simultaneous calls, cap is 2", max)
	}
	if fake.calls != len(chunks) {
		t.Errorf("calls = %d, want %d", fake.calls, len(chunks))
	}
}

func TestBounded_AnyChunkFailureFailsBatch(t *testing.T) {
	fake := &fakeTranscriber{failPath: "segment_001.mp3", delay: time.Millisecond}
	b := NewBounded(fake, DefaultOptions(), nil)

	chunks := multiChunkPlan()
	source := writeSource(t, 30<<20)

	_, err := b.Transcribe(context.Background(), source, chunks, t.TempDir())
	if err == nil {
		t.Fatal("Transcribe() should fail when one chunk fails")
	}
	if !strings.Contains(err.Error(), "chunk") {
		t.Errorf("error %q should name the failing chunk", err)
	}
}

func TestBounded_FailureErrorNotMaskedByCancellation(t *testing.T) {
	// The failing chunk errors immediately while its siblings are held in
	// flight, so cancelling the batch fills the other slots with
	// context.Canceled. The batch error must still carry the provider
	// failure.
	fake := &fakeTranscriber{failPath: "segment_002.mp3", delay: 50 * time.Millisecond}
	b := NewBounded(fake, DefaultOptions(), nil)

	chunks := multiChunkPlan()
	source := writeSource(t, 30<<20)

	_, err := b.Transcribe(context.Background(), source, chunks, t.TempDir())
	if err == nil {
		t.Fatal("Transcribe() should fail when one chunk fails")
	}
	if !strings.Contains(err.Error(), "chunk 2") {
		t.Errorf("error %q should name the failing chunk", err)
	}
	if !strings.Contains(err.Error(), "provider rejected chunk") {
		t.Errorf("error %q should carry the provider failure", err)
	}
	if strings.Contains(err.Error(), "context canceled") {
		t.Errorf("error %q should not report sibling cancellation", err)
	}
}

func TestBounded_CleansUpSegments(t *testing.T) {
	fake := &fakeTranscriber{}
	b := NewBounded(fake, DefaultOptions(), nil)

	chunks := multiChunkPlan()
	source := writeSource(t, 30<<20)
	workDir := t.TempDir()

	if _, err := b.Transcribe(context.Background(), source, chunks, workDir); err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}

	entries, err := os.ReadDir(workDir)
	if err != nil {
		t.Fatalf("read workdir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("workdir should be empty after transcription, found %d files", len(entries))
	}
}

func TestBounded_CleansUpSegmentsOnFailure(t *testing.T) {
	fake := &fakeTranscriber{failPath: "segment_000.mp3"}
	b := NewBounded(fake, DefaultOptions(), nil)

	chunks := multiChunkPlan()
	source := writeSource(t, 30<<20)
	workDir := t.TempDir()

	if _, err := b.Transcribe(context.Background(), source, chunks, workDir); err == nil {
		t.Fatal("Transcribe() should fail")
	}

	entries, err := os.ReadDir(workDir)
	if err != nil {
		t.Fatalf("read workdir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("workdir should be empty after failed transcription, found %d files", len(entries))
	}
}

func TestBounded_Cancellation(t *testing.T) {
	fake := &fakeTranscriber{delay: time.Second}
	b := NewBounded(fake, DefaultOptions(), nil)

	chunks := multiChunkPlan()
	source := writeSource(t, 30<<20)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := b.Transcribe(ctx, source, chunks, t.TempDir())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Transcribe() error = %v, want context.Canceled", err)
	}
}

func TestBounded_EmptyPlan(t *testing.T) {
	b := NewBounded(&fakeTranscriber{}, DefaultOptions(), nil)

	if _, err := b.Transcribe(context.Background(), "source.mp3", nil, t.TempDir()); err == nil {
		t.Error("Transcribe() with empty plan should fail")
	}
}
