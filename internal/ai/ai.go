// Package ai defines the provider-agnostic ports for the three AI
// capabilities the pipeline depends on: speech-to-text, summarization,
// and text-to-speech. Provider subpackages implement them; the pipeline
// only sees these interfaces, so providers can be swapped at wiring time.
package ai

import "context"

// Transcriber converts an audio file into text.
type Transcriber interface {
	// Transcribe returns the transcript of the audio file at audioPath.
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// Summarizer condenses a transcript into a short summary.
type Summarizer interface {
	// Summarize returns a condensed version of transcript, targeting
	// roughly five minutes of spoken content.
	Summarize(ctx context.Context, transcript string) (string, error)
}

// Synthesizer renders text as speech.
type Synthesizer interface {
	// Synthesize writes spoken audio for text to outPath.
	Synthesize(ctx context.Context, text, outPath string) error
}
