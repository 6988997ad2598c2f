// Package openai implements the ai capability ports against the OpenAI
// API: Whisper for transcription, chat completions for summarization,
// and the speech endpoint for synthesis.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/podbrief/podbrief-api/internal/ai"
)

// ErrAPIKeyRequired is returned when no API key is provided.
var ErrAPIKeyRequired = errors.New("openai: API key is required")

// Compile-time checks that Client implements the capability ports.
var (
	_ ai.Transcriber = (*Client)(nil)
	_ ai.Summarizer  = (*Client)(nil)
	_ ai.Synthesizer = (*Client)(nil)
)

const summaryPrompt = `You are an expert podcast editor. Condense the transcript below into a summary that takes roughly five minutes to read aloud (600-800 words). Keep the speaker's key points, arguments, and conclusions in the order they appear. Write flowing prose suitable for text-to-speech: no headings, no bullet points, no markdown.

Transcript:
---
%s
---`

// Client calls the OpenAI API over HTTP.
type Client struct {
	apiKey       string
	baseURL      string
	httpClient   *http.Client
	whisperModel string
	chatModel    string
	speechModel  string
	speechVoice  string
	retry        ai.RetryConfig
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithBaseURL sets a custom base URL, mainly for tests.
func WithBaseURL(url string) Option {
	return func(cl *Client) {
		cl.baseURL = url
	}
}

// WithChatModel sets the model used for summarization.
func WithChatModel(model string) Option {
	return func(cl *Client) {
		cl.chatModel = model
	}
}

// WithSpeechVoice sets the voice used for synthesis.
func WithSpeechVoice(voice string) Option {
	return func(cl *Client) {
		cl.speechVoice = voice
	}
}

// WithRetryConfig sets the retry policy for transient HTTP failures.
func WithRetryConfig(cfg ai.RetryConfig) Option {
	return func(cl *Client) {
		cl.retry = cfg
	}
}

// NewClient creates a new OpenAI client. The API key can be passed
// directly or via the OPENAI_API_KEY environment variable.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	c := &Client{
		apiKey:       apiKey,
		baseURL:      "https://api.openai.com/v1",
		httpClient:   &http.Client{Timeout: 300 * time.Second},
		whisperModel: "whisper-1",
		chatModel:    "gpt-4o-mini",
		speechModel:  "tts-1",
		speechVoice:  "alloy",
		retry:        ai.DefaultRetryConfig(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.apiKey == "" {
		c.apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if c.apiKey == "" {
		return nil, ErrAPIKeyRequired
	}

	return c, nil
}

type transcriptionResponse struct {
	Text string `json:"text"`
}

// Transcribe uploads the audio file to the Whisper transcription
// endpoint and returns the transcript text.
func (c *Client) Transcribe(ctx context.Context, audioPath string) (string, error) {
	audio, err := os.ReadFile(audioPath) // #nosec G304 - path is pipeline-internal
	if err != nil {
		return "", fmt.Errorf("read audio file: %w", err)
	}

	var result transcriptionResponse

	retryErr := ai.WithRetry(ctx, c.retry, func() error {
		body := &bytes.Buffer{}
		writer := multipart.NewWriter(body)

		part, err := writer.CreateFormFile("file", filepath.Base(audioPath))
		if err != nil {
			return fmt.Errorf("creating form file: %w", err)
		}
		if _, err = part.Write(audio); err != nil {
			return fmt.Errorf("writing audio: %w", err)
		}
		if err = writer.WriteField("model", c.whisperModel); err != nil {
			return fmt.Errorf("writing model field: %w", err)
		}
		if err = writer.Close(); err != nil {
			return fmt.Errorf("closing writer: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/audio/transcriptions", body)
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Content-Type", writer.FormDataContentType())

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("sending request: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			return c.apiError("transcription", resp)
		}

		if err = json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
		return nil
	})
	if retryErr != nil {
		return "", retryErr
	}

	return result.Text, nil
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Summarize condenses the transcript via the chat completions endpoint.
func (c *Client) Summarize(ctx context.Context, transcript string) (string, error) {
	reqBody, err := json.Marshal(chatRequest{
		Model: c.chatModel,
		Messages: []chatMessage{
			{Role: "user", Content: fmt.Sprintf(summaryPrompt, transcript)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("encoding request: %w", err)
	}

	var result chatResponse

	retryErr := ai.WithRetry(ctx, c.retry, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(reqBody))
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("sending request: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			return c.apiError("chat", resp)
		}

		if err = json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
		return nil
	})
	if retryErr != nil {
		return "", retryErr
	}

	if len(result.Choices) == 0 {
		return "", errors.New("openai: chat response contained no choices")
	}
	return result.Choices[0].Message.Content, nil
}

type speechRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
	Voice string `json:"voice"`
}

// Synthesize renders text as MP3 via the speech endpoint and writes the
// audio to outPath.
func (c *Client) Synthesize(ctx context.Context, text, outPath string) error {
	reqBody, err := json.Marshal(speechRequest{
		Model: c.speechModel,
		Input: text,
		Voice: c.speechVoice,
	})
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	return ai.WithRetry(ctx, c.retry, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/audio/speech", bytes.NewReader(reqBody))
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("sending request: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			return c.apiError("speech", resp)
		}

		f, err := os.Create(outPath) // #nosec G304 - path is pipeline-internal
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		if _, err := io.Copy(f, resp.Body); err != nil {
			_ = f.Close()
			_ = os.Remove(outPath)
			return fmt.Errorf("write audio: %w", err)
		}
		if err := f.Close(); err != nil {
			_ = os.Remove(outPath)
			return fmt.Errorf("close output file: %w", err)
		}
		return nil
	})
}

// apiError reads the response body into an error. Client errors are
// marked permanent so WithRetry does not burn attempts on them.
func (c *Client) apiError(endpoint string, resp *http.Response) error {
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	err := fmt.Errorf("openai %s API error %d: %s", endpoint, resp.StatusCode, string(respBody))
	if ai.IsRetryableHTTPStatus(resp.StatusCode) {
		return err
	}
	return ai.Permanent(err)
}
