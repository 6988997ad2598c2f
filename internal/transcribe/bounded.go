// Package transcribe runs chunked transcription under a concurrency cap
// and reassembles the ordered transcript. The cap is a counting
// semaphore, not unbounded fan-out, to respect provider rate limits and
// local resource ceilings.
package transcribe

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/podbrief/podbrief-api/internal/ai"
	"github.com/podbrief/podbrief-api/internal/chunker"
)

// Options configures the bounded transcriber.
type Options struct {
	// MaxConcurrent is the ceiling on in-flight transcription calls.
	// Default: 10.
	MaxConcurrent int

	// BitrateKbps maps chunk time offsets to byte offsets in the source
	// file when extracting segments. Must match the bitrate the chunk
	// plan was estimated with. Default: 128.
	BitrateKbps int
}

// DefaultOptions returns the default transcriber options.
func DefaultOptions() Options {
	return Options{
		MaxConcurrent: 10,
		BitrateKbps:   128,
	}
}

// Bounded executes chunk transcriptions against an ai.Transcriber with
// bounded concurrency. No partial-success path exists: if any chunk
// fails, the whole attempt fails and the remaining chunks are cancelled.
type Bounded struct {
	transcriber ai.Transcriber
	opts        Options
	logger      *slog.Logger
}

// NewBounded creates a bounded transcriber.
func NewBounded(t ai.Transcriber, opts Options, logger *slog.Logger) *Bounded {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = DefaultOptions().MaxConcurrent
	}
	if opts.BitrateKbps <= 0 {
		opts.BitrateKbps = DefaultOptions().BitrateKbps
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Bounded{transcriber: t, opts: opts, logger: logger}
}

// Transcribe transcribes the source audio according to the chunk plan
// and returns the reassembled transcript. Segment files are written to
// workDir and removed before returning. Chunk transcripts are joined in
// index order with a single space; text duplicated by the overlap window
// is not deduplicated, since the overlap exists to avoid losing words,
// not to stay word-exact.
func (b *Bounded) Transcribe(ctx context.Context, sourcePath string, chunks []chunker.Chunk, workDir string) (string, error) {
	if len(chunks) == 0 {
		return "", fmt.Errorf("transcribe: empty chunk plan")
	}

	// A single chunk covers the whole file; skip segment extraction.
	if len(chunks) == 1 {
		text, err := b.transcriber.Transcribe(ctx, sourcePath)
		if err != nil {
			return "", fmt.Errorf("transcribe audio: %w", err)
		}
		return text, nil
	}

	segments, err := b.extractSegments(sourcePath, chunks, workDir)
	if err != nil {
		removeFiles(segments)
		return "", err
	}
	defer removeFiles(segments)

	b.logger.Info("transcribing chunks",
		slog.Int("chunks", len(chunks)),
		slog.Int("max_concurrent", b.opts.MaxConcurrent),
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sem := newSemaphore(b.opts.MaxConcurrent)
	texts := make([]string, len(chunks))
	errs := make([]error, len(chunks))

	// The triggering failure is recorded before the batch is cancelled,
	// so sibling context.Canceled errors never mask it.
	var (
		failOnce sync.Once
		firstErr error
		firstIdx int
	)

	var wg sync.WaitGroup
	for i, seg := range segments {
		wg.Add(1)
		go func(idx int, path string) {
			defer wg.Done()

			if err := sem.acquire(ctx); err != nil {
				errs[idx] = err
				return
			}
			defer sem.release()

			text, err := b.transcriber.Transcribe(ctx, path)
			if err != nil {
				errs[idx] = err
				failOnce.Do(func() {
					firstErr = err
					firstIdx = idx
					cancel() // first failure cancels the rest of the batch
				})
				return
			}
			texts[idx] = text
		}(i, seg)
	}
	wg.Wait()

	if firstErr != nil {
		return "", fmt.Errorf("transcribe chunk %d: %w", firstIdx, firstErr)
	}
	for i, err := range errs {
		if err != nil {
			return "", fmt.Errorf("transcribe chunk %d: %w", i, err)
		}
	}

	return strings.Join(texts, " "), nil
}

// extractSegments writes one segment file per chunk by slicing the
// source file at byte offsets derived from the chunk's time bounds.
// Cuts land mid-frame rather than on frame boundaries; the chunk overlap
// absorbs the words garbled at the edges.
func (b *Bounded) extractSegments(sourcePath string, chunks []chunker.Chunk, workDir string) ([]string, error) {
	info, err := os.Stat(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("stat source audio: %w", err)
	}
	size := info.Size()
	bytesPerSecond := float64(b.opts.BitrateKbps) * 1000 / 8

	segments := make([]string, 0, len(chunks))
	for _, c := range chunks {
		start := int64(c.StartSeconds * bytesPerSecond)
		end := int64((c.StartSeconds + c.DurationSeconds) * bytesPerSecond)
		if end > size {
			end = size
		}
		if start > size {
			start = size
		}

		segPath := filepath.Join(workDir, fmt.Sprintf("segment_%03d.mp3", c.Index))
		if err := copyRange(sourcePath, segPath, start, end-start); err != nil {
			return segments, fmt.Errorf("extract segment %d: %w", c.Index, err)
		}
		segments = append(segments, segPath)
	}
	return segments, nil
}

func copyRange(sourcePath, destPath string, offset, length int64) error {
	src, err := os.Open(sourcePath) // #nosec G304 - path is pipeline-internal
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer func() { _ = src.Close() }()

	if _, err := src.Seek(offset, io.SeekStart); err != nil {
		return fmt.Errorf("seek source: %w", err)
	}

	dst, err := os.Create(destPath) // #nosec G304 - path is pipeline-internal
	if err != nil {
		return fmt.Errorf("create segment: %w", err)
	}

	if _, err := io.CopyN(dst, src, length); err != nil && err != io.EOF {
		_ = dst.Close()
		_ = os.Remove(destPath)
		return fmt.Errorf("copy segment bytes: %w", err)
	}

	if err := dst.Close(); err != nil {
		_ = os.Remove(destPath)
		return fmt.Errorf("close segment: %w", err)
	}
	return nil
}

func removeFiles(paths []string) {
	for _, p := range paths {
		_ = os.Remove(p)
	}
}
