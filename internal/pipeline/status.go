// Package pipeline orchestrates the download, transcription,
// summarization, and speech synthesis of a podcast episode as an
// idempotent multi-stage state machine. Every stage consults the
// artifact cache before doing work, and every transition is reported as
// a progress event.
package pipeline

import "time"

// Stage is one discrete, ordered step of the processing state machine.
// Stages serialize as the lowercase tokens used on the progress wire.
type Stage string

const (
	StageDownloading      Stage = "downloading"
	StageDownloaded       Stage = "downloaded"
	StageTranscribing     Stage = "transcribing"
	StageTranscribed      Stage = "transcribed"
	StageSummarizing      Stage = "summarizing"
	StageSummarized       Stage = "summarized"
	StageGeneratingSpeech Stage = "generating-speech"
	StageComplete         Stage = "complete"
	StageError            Stage = "error"
)

// stagePercent maps each stage to its fixed progress marker. The values
// are fixed positions on the progress bar, not computed fractions.
var stagePercent = map[Stage]int{
	StageDownloading:      10,
	StageDownloaded:       20,
	StageTranscribing:     25,
	StageTranscribed:      40,
	StageSummarizing:      50,
	StageSummarized:       70,
	StageGeneratingSpeech: 80,
	StageComplete:         100,
}

// Percent returns the fixed progress marker for the stage. Error has no
// marker of its own and reports 0.
func (s Stage) Percent() int {
	return stagePercent[s]
}

// ParseStage maps a wire token back to a Stage. Unknown tokens map to
// StageError rather than being dropped, so a malformed event is always
// visible to the consumer.
func ParseStage(token string) Stage {
	switch Stage(token) {
	case StageDownloading, StageDownloaded, StageTranscribing, StageTranscribed,
		StageSummarizing, StageSummarized, StageGeneratingSpeech, StageComplete:
		return Stage(token)
	default:
		return StageError
	}
}

// Status is one progress event, produced by the orchestrator once per
// stage transition and consumed by a progress sink. It is never
// persisted.
type Status struct {
	// Stage is the state the pipeline just entered.
	Stage Stage `json:"stage"`
	// Message is human-readable progress text.
	Message string `json:"message"`
	// Percent is the fixed progress marker for the stage, monotonically
	// non-decreasing within one run except on error.
	Percent int `json:"progress_percent"`
	// Complete is true only on the terminal success event.
	Complete bool `json:"is_complete"`
	// Failed is true only on the terminal error event.
	Failed bool `json:"is_error"`
	// ErrorDetail carries the failure cause when Failed is set.
	ErrorDetail string `json:"error_detail,omitempty"`

	// Optional payload fields.
	EpisodeKey          string        `json:"episode_key,omitempty"`
	WasCached           bool          `json:"was_cached"`
	TranscriptWordCount int           `json:"transcript_word_count,omitempty"`
	SummaryWordCount    int           `json:"summary_word_count,omitempty"`
	SummaryText         string        `json:"summary_text,omitempty"`
	SummaryAudioPath    string        `json:"summary_audio_path,omitempty"`
	Elapsed             time.Duration `json:"elapsed,omitempty"`
}
