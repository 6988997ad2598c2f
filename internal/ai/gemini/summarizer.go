// Package gemini implements the ai.Summarizer port using Google's
// Gemini API, as an alternative to the OpenAI summarizer. Transcription
// and synthesis stay on the primary provider either way.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/podbrief/podbrief-api/internal/ai"
)

// ErrAPIKeyRequired is returned when no API key is provided.
var ErrAPIKeyRequired = errors.New("gemini: API key is required")

// Compile-time check that Summarizer implements the port.
var _ ai.Summarizer = (*Summarizer)(nil)

const summaryPrompt = `You are an expert podcast editor. Condense the transcript below into a summary that takes roughly five minutes to read aloud (600-800 words). Keep the speaker's key points, arguments, and conclusions in the order they appear. Write flowing prose suitable for text-to-speech: no headings, no bullet points, no markdown.

Transcript:
---
%s
---`

// Summarizer condenses transcripts via the Gemini API.
type Summarizer struct {
	apiKey string
	model  string
}

// New creates a Gemini summarizer. If model is empty, a flash model is
// used.
func New(apiKey, model string) (*Summarizer, error) {
	if apiKey == "" {
		return nil, ErrAPIKeyRequired
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}
	return &Summarizer{apiKey: apiKey, model: model}, nil
}

// Summarize sends the transcript to Gemini and returns the summary text.
func (s *Summarizer) Summarize(ctx context.Context, transcript string) (string, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  s.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return "", fmt.Errorf("create client: %w", err)
	}

	prompt := fmt.Sprintf(summaryPrompt, transcript)
	result, err := client.Models.GenerateContent(ctx, s.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return "", errors.New("gemini: empty response")
	}

	var text strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}
	if text.Len() == 0 {
		return "", errors.New("gemini: response contained no text")
	}
	return text.String(), nil
}
