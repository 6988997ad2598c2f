// Package fetch downloads source audio from remote URLs. It validates
// the response before handing the body stream to the caller, so a dead
// link or an HTML error page never ends up persisted as an episode.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Static errors for download validation.
var (
	// ErrBadStatus is returned for non-2xx responses.
	ErrBadStatus = errors.New("fetch: unexpected response status")
	// ErrNotAudio is returned when the response content type is not audio.
	ErrNotAudio = errors.New("fetch: response is not audio content")
)

// acceptedContentTypes are the content type prefixes treated as audio.
// Octet-stream is accepted because many podcast hosts serve MP3s that way.
var acceptedContentTypes = []string{
	"audio/",
	"application/octet-stream",
	"binary/octet-stream",
}

// Downloader streams audio files over HTTP.
type Downloader struct {
	httpClient *http.Client
}

// Option configures a Downloader.
type Option func(*Downloader)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(d *Downloader) {
		d.httpClient = c
	}
}

// NewDownloader creates a Downloader with a long timeout suitable for
// large audio files.
func NewDownloader(opts ...Option) *Downloader {
	d := &Downloader{
		httpClient: &http.Client{Timeout: 10 * time.Minute},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Result is an open download stream. The caller must close Body.
type Result struct {
	Body          io.ReadCloser
	ContentLength int64 // -1 when the server did not report it
}

// Open starts downloading url and validates status and content type.
// The returned body streams the audio; the caller is responsible for
// closing it.
func (d *Downloader) Open(ctx context.Context, url string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download audio: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%w: %d from %s", ErrBadStatus, resp.StatusCode, url)
	}

	contentType := resp.Header.Get("Content-Type")
	if !isAudioContentType(contentType) {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%w: got %q", ErrNotAudio, contentType)
	}

	return &Result{
		Body:          resp.Body,
		ContentLength: resp.ContentLength,
	}, nil
}

func isAudioContentType(contentType string) bool {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	for _, prefix := range acceptedContentTypes {
		if strings.HasPrefix(ct, prefix) {
			return true
		}
	}
	return false
}
