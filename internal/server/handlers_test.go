package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/podbrief/podbrief-api/internal/pipeline"
)

// fakeService replays canned pipeline events.
type fakeService struct {
	events []pipeline.Status
	err    error
}

func (f *fakeService) Run(ctx context.Context, locator string) (*pipeline.Status, error) {
	last := f.events[len(f.events)-1]
	return &last, f.err
}

func (f *fakeService) RunStream(ctx context.Context, locator string) <-chan pipeline.Status {
	ch := make(chan pipeline.Status, len(f.events))
	go func() {
		defer close(ch)
		for _, st := range f.events {
			ch <- st
		}
	}()
	return ch
}

func successEvents() []pipeline.Status {
	return []pipeline.Status{
		{Stage: pipeline.StageDownloading, Percent: 10, EpisodeKey: "k"},
		{Stage: pipeline.StageDownloaded, Percent: 20, EpisodeKey: "k"},
		{Stage: pipeline.StageComplete, Percent: 100, Complete: true, EpisodeKey: "k",
			WasCached: true, SummaryAudioPath: "/blobs/k_summary.mp3",
			TranscriptWordCount: 5000, SummaryWordCount: 700,
			Elapsed: 1500 * time.Millisecond},
	}
}

func newTestRouter(svc Service) http.Handler {
	return NewRouter(NewHandlers(svc, nil), nil, DefaultConfig())
}

func TestHealth(t *testing.T) {
	router := newTestRouter(&fakeService{events: successEvents()})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestCreateSummary(t *testing.T) {
	router := newTestRouter(&fakeService{events: successEvents()})

	body := strings.NewReader(`{"url": "https://example.com/a.mp3"}`)
	req := httptest.NewRequest(http.MethodPost, "/summaries", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp SummaryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "k", resp.EpisodeKey)
	assert.True(t, resp.WasCached)
	assert.Equal(t, 5000, resp.TranscriptWordCount)
	assert.Equal(t, 700, resp.SummaryWordCount)
	assert.Equal(t, "/blobs/k_summary.mp3", resp.SummaryAudioPath)
	assert.Equal(t, int64(1500), resp.ElapsedMs)
}

func TestCreateSummary_InvalidJSON(t *testing.T) {
	router := newTestRouter(&fakeService{events: successEvents()})

	req := httptest.NewRequest(http.MethodPost, "/summaries", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "INVALID_JSON", resp.Code)
}

func TestCreateSummary_ValidationError(t *testing.T) {
	router := newTestRouter(&fakeService{events: successEvents()})

	tests := []struct {
		name string
		body string
	}{
		{"missing url", `{}`},
		{"not a url", `{"url": "not a url"}`},
		{"too long", `{"url": "https://example.com/` + strings.Repeat("x", 2100) + `"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/summaries", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, "VALIDATION_ERROR", resp.Code)
		})
	}
}

func TestCreateSummary_ProcessingFailure(t *testing.T) {
	svc := &fakeService{
		events: []pipeline.Status{
			{Stage: pipeline.StageError, Failed: true, ErrorDetail: "source fetch failed: 404"},
		},
		err: errors.New("source fetch failed: 404"),
	}
	router := newTestRouter(svc)

	body := strings.NewReader(`{"url": "https://example.com/missing.mp3"}`)
	req := httptest.NewRequest(http.MethodPost, "/summaries", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "PROCESSING_FAILED", resp.Code)
	assert.Contains(t, resp.Error, "source fetch failed")
}

func TestStreamSummary(t *testing.T) {
	router := newTestRouter(&fakeService{events: successEvents()})

	srv := httptest.NewServer(router)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/summaries/stream?url=" + "https://example.com/a.mp3")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	var stages []pipeline.Stage
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		var st pipeline.Status
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &st))
		stages = append(stages, pipeline.ParseStage(string(st.Stage)))
	}

	require.Len(t, stages, 3)
	assert.Equal(t, pipeline.StageDownloading, stages[0])
	assert.Equal(t, pipeline.StageComplete, stages[2])
}

func TestStreamSummary_ValidationError(t *testing.T) {
	router := newTestRouter(&fakeService{events: successEvents()})

	req := httptest.NewRequest(http.MethodGet, "/summaries/stream?url=nonsense", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "VALIDATION_ERROR", resp.Code)
}
