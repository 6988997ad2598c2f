// Package chunker partitions oversized source audio into time-bounded,
// overlapping segments for chunked transcription. Splitting is planned
// from file size and a nominal bitrate, not from decoded audio, so the
// plan is deterministic and needs no media tooling.
package chunker

import "math"

// Chunk is one time-bounded slice of a source audio file. Chunks are
// ephemeral: they exist only for the lifetime of one transcription pass
// and are never persisted.
type Chunk struct {
	// Index is the 0-based position defining reassembly order.
	Index int
	// StartSeconds is the offset of the chunk start in the source audio.
	StartSeconds float64
	// DurationSeconds is the chunk length. Bounded to the configured
	// [min, max] range except for the final chunk, which may be shorter.
	DurationSeconds float64
	// OverlapSeconds is how far this chunk reaches back into the previous
	// chunk's tail. Zero for the first chunk.
	OverlapSeconds float64
}

// Opts configures chunk planning.
type Opts struct {
	// SizeThresholdBytes is the file size below or at which the audio is
	// transcribed as a single chunk, chosen to stay well under typical
	// transcription API payload limits. Default: 5 MiB.
	SizeThresholdBytes int64

	// NominalBitrateKbps is the assumed audio bitrate used to estimate
	// duration from file size. Default: 128.
	NominalBitrateKbps int

	// MinChunkSeconds is the lower clamp on chunk duration. Default: 60.
	MinChunkSeconds int

	// MaxChunkSeconds is the upper clamp on chunk duration. Default: 600.
	MaxChunkSeconds int

	// OverlapSeconds is how much each chunk overlaps the previous chunk's
	// tail, so words straddling a cut boundary are not lost. Default: 1.
	OverlapSeconds float64
}

// DefaultOpts returns the default chunk planning options.
func DefaultOpts() Opts {
	return Opts{
		SizeThresholdBytes: 5 << 20,
		NominalBitrateKbps: 128,
		MinChunkSeconds:    60,
		MaxChunkSeconds:    600,
		OverlapSeconds:     1,
	}
}

// EstimateDuration returns the estimated duration in seconds of an audio
// file of sizeBytes at the nominal bitrate.
func (o Opts) EstimateDuration(sizeBytes int64) float64 {
	bitsPerSecond := float64(o.NominalBitrateKbps) * 1000
	return float64(sizeBytes) * 8 / bitsPerSecond
}

// Plan partitions a source audio file of sizeBytes into chunks.
//
// Files at or under the size threshold yield a single chunk covering the
// whole file. Above it, the file is cut at MaxChunkSeconds boundaries,
// each subsequent chunk starting OverlapSeconds before the previous cut.
// An interior chunk therefore spans MaxChunkSeconds plus OverlapSeconds;
// the chunk count and the exact overlap take precedence over the upper
// duration clamp. Once chunking begins, duration is authoritative: a
// file whose estimated duration is under MinChunkSeconds still yields
// one chunk regardless of size. The plan is a pure function of size and
// options.
func Plan(sizeBytes int64, opts Opts) []Chunk {
	duration := opts.EstimateDuration(sizeBytes)

	if sizeBytes <= opts.SizeThresholdBytes || duration < float64(opts.MinChunkSeconds) {
		return []Chunk{{
			Index:           0,
			StartSeconds:    0,
			DurationSeconds: duration,
			OverlapSeconds:  0,
		}}
	}

	maxSec := float64(opts.MaxChunkSeconds)
	count := int(math.Ceil(duration / maxSec))

	chunks := make([]Chunk, 0, count)
	for i := 0; i < count; i++ {
		cut := float64(i) * maxSec
		start := cut
		overlap := 0.0
		if i > 0 {
			start = cut - opts.OverlapSeconds
			overlap = opts.OverlapSeconds
		}

		end := math.Min(cut+maxSec, duration)
		chunks = append(chunks, Chunk{
			Index:           i,
			StartSeconds:    start,
			DurationSeconds: end - start,
			OverlapSeconds:  overlap,
		})
	}

	return chunks
}
