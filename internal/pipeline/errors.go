package pipeline

import "errors"

// Pipeline error taxonomy. Each stage wraps its failures in exactly one
// of these sentinels so callers can classify without string matching;
// the original cause stays on the chain for the terminal error event.
var (
	// ErrFetch covers network, status, and content-type failures while
	// downloading the source audio.
	ErrFetch = errors.New("source fetch failed")
	// ErrStorage covers I/O failures against the artifact or metadata
	// stores.
	ErrStorage = errors.New("storage operation failed")
	// ErrTranscription covers any chunk transcription failure. One failed
	// chunk fails the whole batch; there is no partial credit.
	ErrTranscription = errors.New("transcription failed")
	// ErrSummarization covers summarizer provider failures.
	ErrSummarization = errors.New("summarization failed")
	// ErrSynthesis covers speech synthesis provider failures.
	ErrSynthesis = errors.New("speech synthesis failed")
)
