package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/podbrief/podbrief-api/internal/pipeline"
)

// Service runs the processing pipeline. Satisfied by
// *pipeline.Orchestrator.
type Service interface {
	// Run executes the pipeline to completion and returns the terminal
	// status.
	Run(ctx context.Context, locator string) (*pipeline.Status, error)

	// RunStream executes the pipeline, emitting one status per stage
	// transition on the returned channel.
	RunStream(ctx context.Context, locator string) <-chan pipeline.Status
}

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	service   Service
	validator *validator.Validate
	logger    *slog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(service Service, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		service:   service,
		validator: validator.New(),
		logger:    logger,
	}
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// CreateSummary handles POST /summaries requests: blocking mode.
// The pipeline runs to completion before the response is written.
func (h *Handlers) CreateSummary(w http.ResponseWriter, r *http.Request) {
	var req SummarizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode request body",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		h.logger.Warn("request validation failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return
	}

	final, err := h.service.Run(r.Context(), req.URL)
	if err != nil {
		h.logger.Error("pipeline run failed",
			slog.String("url", req.URL),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadGateway, final.ErrorDetail, "PROCESSING_FAILED")
		return
	}

	writeJSON(w, http.StatusOK, SummaryResponse{
		EpisodeKey:          final.EpisodeKey,
		WasCached:           final.WasCached,
		TranscriptWordCount: final.TranscriptWordCount,
		SummaryWordCount:    final.SummaryWordCount,
		SummaryText:         final.SummaryText,
		SummaryAudioPath:    final.SummaryAudioPath,
		ElapsedMs:           final.Elapsed.Milliseconds(),
	})
}

// StreamSummary handles GET /summaries/stream?url= requests: streaming
// mode. Each stage transition is sent as one Server-Sent Event whose
// data is the JSON-encoded pipeline status.
func (h *Handlers) StreamSummary(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	if err := h.validator.Var(url, "required,url,max=2048"); err != nil {
		writeError(w, http.StatusBadRequest, "url query parameter must be a valid URL", "VALIDATION_ERROR")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported", "STREAMING_UNSUPPORTED")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for st := range h.service.RunStream(r.Context(), url) {
		data, err := json.Marshal(st)
		if err != nil {
			h.logger.Error("failed to encode progress event",
				slog.String("error", err.Error()),
			)
			return
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			// Client went away; the pipeline is cancelled through the
			// request context.
			return
		}
		flusher.Flush()
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
