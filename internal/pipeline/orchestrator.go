package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/podbrief/podbrief-api/internal/ai"
	"github.com/podbrief/podbrief-api/internal/cache"
	"github.com/podbrief/podbrief-api/internal/cachekey"
	"github.com/podbrief/podbrief-api/internal/chunker"
	"github.com/podbrief/podbrief-api/internal/fetch"
	"github.com/podbrief/podbrief-api/internal/record"
	"github.com/podbrief/podbrief-api/internal/storage"
)

// Transcriber is the chunked transcription capability the orchestrator
// drives. Satisfied by transcribe.Bounded.
type Transcriber interface {
	Transcribe(ctx context.Context, sourcePath string, chunks []chunker.Chunk, workDir string) (string, error)
}

// Orchestrator sequences download, transcription, summarization, and
// synthesis for one episode, consulting caches at each stage and
// emitting one progress event per transition. One Orchestrator serves
// many runs; each run gets its own working directory.
type Orchestrator struct {
	blobs       storage.Store
	meta        record.MetadataStore
	checker     *cache.Checker
	downloader  *fetch.Downloader
	transcriber Transcriber
	summarizer  ai.Summarizer
	synthesizer ai.Synthesizer
	chunkOpts   chunker.Opts
	workRoot    string
	logger      *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithChunkOpts overrides the chunk planning options.
func WithChunkOpts(opts chunker.Opts) Option {
	return func(o *Orchestrator) {
		o.chunkOpts = opts
	}
}

// WithWorkRoot sets the directory under which per-run working
// directories are created.
func WithWorkRoot(dir string) Option {
	return func(o *Orchestrator) {
		o.workRoot = dir
	}
}

// New creates an Orchestrator.
func New(
	blobs storage.Store,
	meta record.MetadataStore,
	checker *cache.Checker,
	downloader *fetch.Downloader,
	transcriber Transcriber,
	summarizer ai.Summarizer,
	synthesizer ai.Synthesizer,
	logger *slog.Logger,
	opts ...Option,
) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	o := &Orchestrator{
		blobs:       blobs,
		meta:        meta,
		checker:     checker,
		downloader:  downloader,
		transcriber: transcriber,
		summarizer:  summarizer,
		synthesizer: synthesizer,
		chunkOpts:   chunker.DefaultOpts(),
		workRoot:    os.TempDir(),
		logger:      logger,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes the pipeline to completion and returns the terminal
// status. Blocking mode: same state machine as RunStream, without the
// per-transition events.
func (o *Orchestrator) Run(ctx context.Context, locator string) (*Status, error) {
	var last Status
	err := o.run(ctx, locator, func(st Status) { last = st })
	return &last, err
}

// RunStream executes the pipeline and sends one Status per stage
// transition on the returned channel. The channel is closed after the
// terminal event. Streaming mode shares the producer, caching, and
// error semantics of Run; only observability differs.
func (o *Orchestrator) RunStream(ctx context.Context, locator string) <-chan Status {
	ch := make(chan Status, 1)
	go func() {
		defer close(ch)
		_ = o.run(ctx, locator, func(st Status) {
			select {
			case ch <- st:
			case <-ctx.Done():
			}
		})
	}()
	return ch
}

// run is the single producer behind both invocation modes.
func (o *Orchestrator) run(ctx context.Context, locator string, emit func(Status)) error {
	key := cachekey.Derive(locator)
	started := time.Now()

	logger := o.logger.With(slog.String("cache_key", key))
	logger.Info("pipeline run starting", slog.String("locator", locator))

	workDir, err := os.MkdirTemp(o.workRoot, "run_"+key+"_")
	if err != nil {
		return o.fail(emit, key, fmt.Errorf("%w: create working directory: %v", ErrStorage, err))
	}
	// Working files never outlive the run, whether it completes, fails,
	// or is cancelled.
	defer func() { _ = os.RemoveAll(workDir) }()

	// Stage: downloading. Episode-level cache decides between reusing
	// the stored audio and streaming a fresh download.
	emit(Status{
		Stage:      StageDownloading,
		Message:    "Fetching episode audio",
		Percent:    StageDownloading.Percent(),
		EpisodeKey: key,
	})

	audioPath := filepath.Join(workDir, record.AudioName(key))
	audioCached, sizeBytes, err := o.obtainAudio(ctx, key, locator, audioPath)
	if err != nil {
		return o.fail(emit, key, err)
	}

	emit(Status{
		Stage:      StageDownloaded,
		Message:    "Episode audio ready",
		Percent:    StageDownloaded.Percent(),
		EpisodeKey: key,
		WasCached:  audioCached,
	})

	if err := ctx.Err(); err != nil {
		return o.fail(emit, key, err)
	}

	// Full-result cache: when the summary record and its audio already
	// exist, skip transcription, summarization, and synthesis entirely.
	sumAvailable, err := o.checker.Available(ctx, cache.ClassSummary, key)
	if err != nil {
		return o.fail(emit, key, fmt.Errorf("%w: %v", ErrStorage, err))
	}
	if sumAvailable {
		sum, err := o.meta.GetSummary(ctx, key)
		if err != nil {
			return o.fail(emit, key, fmt.Errorf("%w: %v", ErrStorage, err))
		}

		logger.Info("summary cache hit, short-circuiting",
			slog.Duration("elapsed", time.Since(started)),
		)
		emit(Status{
			Stage:               StageComplete,
			Message:             "Summary served from cache",
			Percent:             StageComplete.Percent(),
			Complete:            true,
			EpisodeKey:          key,
			WasCached:           true,
			TranscriptWordCount: sum.TranscriptWordCount,
			SummaryWordCount:    sum.SummaryWordCount,
			SummaryText:         o.loadSummaryText(ctx, key),
			SummaryAudioPath:    sum.SummaryAudioPath,
			Elapsed:             time.Since(started),
		})
		return nil
	}

	// Stage: transcribing.
	chunks := chunker.Plan(sizeBytes, o.chunkOpts)
	emit(Status{
		Stage:      StageTranscribing,
		Message:    fmt.Sprintf("Transcribing audio in %d chunk(s)", len(chunks)),
		Percent:    StageTranscribing.Percent(),
		EpisodeKey: key,
	})

	transcript, err := o.transcriber.Transcribe(ctx, audioPath, chunks, workDir)
	if err != nil {
		if ctx.Err() != nil {
			return o.fail(emit, key, ctx.Err())
		}
		return o.fail(emit, key, fmt.Errorf("%w: %v", ErrTranscription, err))
	}

	transcriptPath, err := o.blobs.Put(ctx, storage.ContainerTranscripts, record.TranscriptName(key), strings.NewReader(transcript))
	if err != nil {
		return o.fail(emit, key, fmt.Errorf("%w: persist transcript: %v", ErrStorage, err))
	}

	transcriptWords := wordCount(transcript)
	emit(Status{
		Stage:               StageTranscribed,
		Message:             "Transcript ready",
		Percent:             StageTranscribed.Percent(),
		EpisodeKey:          key,
		TranscriptWordCount: transcriptWords,
	})

	if err := ctx.Err(); err != nil {
		return o.fail(emit, key, err)
	}

	// Stage: summarizing.
	emit(Status{
		Stage:      StageSummarizing,
		Message:    "Summarizing transcript",
		Percent:    StageSummarizing.Percent(),
		EpisodeKey: key,
	})

	summary, err := o.summarizer.Summarize(ctx, transcript)
	if err != nil {
		if ctx.Err() != nil {
			return o.fail(emit, key, ctx.Err())
		}
		return o.fail(emit, key, fmt.Errorf("%w: %v", ErrSummarization, err))
	}

	summaryTextPath, err := o.blobs.Put(ctx, storage.ContainerSummaries, record.SummaryTextName(key), strings.NewReader(summary))
	if err != nil {
		return o.fail(emit, key, fmt.Errorf("%w: persist summary text: %v", ErrStorage, err))
	}

	summaryWords := wordCount(summary)
	emit(Status{
		Stage:            StageSummarized,
		Message:          "Summary text ready",
		Percent:          StageSummarized.Percent(),
		EpisodeKey:       key,
		SummaryWordCount: summaryWords,
		SummaryText:      summary,
	})

	if err := ctx.Err(); err != nil {
		return o.fail(emit, key, err)
	}

	// Stage: generating speech.
	emit(Status{
		Stage:      StageGeneratingSpeech,
		Message:    "Generating summary audio",
		Percent:    StageGeneratingSpeech.Percent(),
		EpisodeKey: key,
	})

	speechPath := filepath.Join(workDir, record.SummaryAudioName(key))
	if err := o.synthesizer.Synthesize(ctx, summary, speechPath); err != nil {
		if ctx.Err() != nil {
			return o.fail(emit, key, ctx.Err())
		}
		return o.fail(emit, key, fmt.Errorf("%w: %v", ErrSynthesis, err))
	}

	summaryAudioPath, err := o.persistFile(ctx, storage.ContainerSummaries, record.SummaryAudioName(key), speechPath)
	if err != nil {
		return o.fail(emit, key, fmt.Errorf("%w: persist summary audio: %v", ErrStorage, err))
	}

	sum := &record.Summary{
		EpisodeKey:          key,
		TranscriptPath:      transcriptPath,
		SummaryTextPath:     summaryTextPath,
		SummaryAudioPath:    summaryAudioPath,
		TranscriptWordCount: transcriptWords,
		SummaryWordCount:    summaryWords,
		ProcessedAt:         time.Now(),
	}
	if err := o.meta.SaveSummary(ctx, key, sum); err != nil {
		return o.fail(emit, key, fmt.Errorf("%w: save summary record: %v", ErrStorage, err))
	}

	logger.Info("pipeline run complete",
		slog.Int("transcript_words", transcriptWords),
		slog.Int("summary_words", summaryWords),
		slog.Duration("elapsed", time.Since(started)),
	)
	emit(Status{
		Stage:               StageComplete,
		Message:             "Summary ready",
		Percent:             StageComplete.Percent(),
		Complete:            true,
		EpisodeKey:          key,
		WasCached:           false,
		TranscriptWordCount: transcriptWords,
		SummaryWordCount:    summaryWords,
		SummaryText:         summary,
		SummaryAudioPath:    summaryAudioPath,
		Elapsed:             time.Since(started),
	})
	return nil
}

// obtainAudio places the episode audio at audioPath, either from the
// artifact cache or by downloading from the source locator. On a miss
// the blob and episode record are committed only after the full stream
// has been written, so no partial episode is ever visible.
func (o *Orchestrator) obtainAudio(ctx context.Context, key, locator, audioPath string) (cached bool, sizeBytes int64, err error) {
	available, err := o.checker.Available(ctx, cache.ClassEpisode, key)
	if err != nil {
		return false, 0, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	if available {
		if err := o.blobs.GetToFile(ctx, storage.ContainerAudio, record.AudioName(key), audioPath); err != nil {
			return false, 0, fmt.Errorf("%w: fetch cached audio: %v", ErrStorage, err)
		}
		info, err := os.Stat(audioPath)
		if err != nil {
			return false, 0, fmt.Errorf("%w: stat cached audio: %v", ErrStorage, err)
		}
		return true, info.Size(), nil
	}

	res, err := o.downloader.Open(ctx, locator)
	if err != nil {
		return false, 0, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer func() { _ = res.Body.Close() }()

	f, err := os.Create(audioPath) // #nosec G304 - path is run-internal
	if err != nil {
		return false, 0, fmt.Errorf("%w: create working audio file: %v", ErrStorage, err)
	}
	written, err := io.Copy(f, res.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(audioPath)
		if ctx.Err() != nil {
			return false, 0, ctx.Err()
		}
		return false, 0, fmt.Errorf("%w: stream audio: %v", ErrFetch, err)
	}

	artifactPath, err := o.persistFile(ctx, storage.ContainerAudio, record.AudioName(key), audioPath)
	if err != nil {
		return false, 0, fmt.Errorf("%w: persist audio: %v", ErrStorage, err)
	}

	ep := &record.Episode{
		CacheKey:     key,
		OriginalURL:  locator,
		ArtifactPath: artifactPath,
		DownloadedAt: time.Now(),
		SizeBytes:    written,
	}
	if err := o.meta.SaveEpisode(ctx, ep); err != nil {
		return false, 0, fmt.Errorf("%w: save episode record: %v", ErrStorage, err)
	}

	return false, written, nil
}

// persistFile uploads a local file into the artifact store.
func (o *Orchestrator) persistFile(ctx context.Context, container, name, path string) (string, error) {
	f, err := os.Open(path) // #nosec G304 - path is run-internal
	if err != nil {
		return "", fmt.Errorf("open %s: %w", name, err)
	}
	defer func() { _ = f.Close() }()

	return o.blobs.Put(ctx, container, name, f)
}

// loadSummaryText reads the cached summary text, best effort. A missing
// text blob only drops the payload field; the cached audio is still
// served.
func (o *Orchestrator) loadSummaryText(ctx context.Context, key string) string {
	var buf bytes.Buffer
	if err := o.blobs.GetToWriter(ctx, storage.ContainerSummaries, record.SummaryTextName(key), &buf); err != nil {
		return ""
	}
	return buf.String()
}

// fail emits the single terminal error event and returns the error.
// Nothing is emitted after it.
func (o *Orchestrator) fail(emit func(Status), key string, err error) error {
	o.logger.Error("pipeline run failed",
		slog.String("cache_key", key),
		slog.String("error", err.Error()),
	)
	emit(Status{
		Stage:       StageError,
		Message:     "Processing failed",
		Failed:      true,
		ErrorDetail: err.Error(),
		EpisodeKey:  key,
	})
	return err
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}
