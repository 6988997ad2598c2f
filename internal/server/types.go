// Package server provides the HTTP surface for the podcast summary
// pipeline: a blocking JSON endpoint, a Server-Sent Events streaming
// endpoint, and a health check, with DTOs separated from domain types.
package server

// SummarizeRequest is the HTTP request body for processing an episode.
type SummarizeRequest struct {
	// URL is the source locator of the episode audio.
	URL string `json:"url" validate:"required,url,max=2048"`
}

// SummaryResponse is the HTTP response for a completed pipeline run.
type SummaryResponse struct {
	// EpisodeKey is the derived cache key for the episode.
	EpisodeKey string `json:"episode_key"`
	// WasCached is true when the summary was served from cache.
	WasCached bool `json:"was_cached"`
	// TranscriptWordCount is the word count of the full transcript.
	TranscriptWordCount int `json:"transcript_word_count"`
	// SummaryWordCount is the word count of the summary text.
	SummaryWordCount int `json:"summary_word_count"`
	// SummaryText is the summary text.
	SummaryText string `json:"summary_text,omitempty"`
	// SummaryAudioPath is the locator of the synthesized summary audio.
	SummaryAudioPath string `json:"summary_audio_path"`
	// ElapsedMs is the processing time in milliseconds.
	ElapsedMs int64 `json:"elapsed_ms"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
}
