package fetch

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDownloader_Open(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("mp3 payload"))
	}))
	defer srv.Close()

	d := NewDownloader()
	res, err := d.Open(context.Background(), srv.URL+"/a.mp3")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer func() { _ = res.Body.Close() }()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if string(body) != "mp3 payload" {
		t.Errorf("body = %q, want %q", string(body), "mp3 payload")
	}
	if res.ContentLength != int64(len("mp3 payload")) {
		t.Errorf("ContentLength = %d, want %d", res.ContentLength, len("mp3 payload"))
	}
}

func TestDownloader_Open_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	d := NewDownloader()
	_, err := d.Open(context.Background(), srv.URL+"/missing.mp3")
	if !errors.Is(err, ErrBadStatus) {
		t.Errorf("Open() error = %v, want ErrBadStatus", err)
	}
}

func TestDownloader_Open_NonAudioContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html>not audio</html>"))
	}))
	defer srv.Close()

	d := NewDownloader()
	_, err := d.Open(context.Background(), srv.URL+"/page")
	if !errors.Is(err, ErrNotAudio) {
		t.Errorf("Open() error = %v, want ErrNotAudio", err)
	}
}

func TestDownloader_Open_CancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := NewDownloader()
	if _, err := d.Open(ctx, srv.URL); err == nil {
		t.Error("Open() with cancelled context should fail")
	}
}

func TestIsAudioContentType(t *testing.T) {
	tests := []struct {
		contentType string
		want        bool
	}{
		{"audio/mpeg", true},
		{"audio/mp4; charset=binary", true},
		{"AUDIO/MPEG", true},
		{"application/octet-stream", true},
		{"binary/octet-stream", true},
		{"text/html", false},
		{"application/json", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := isAudioContentType(tt.contentType); got != tt.want {
			t.Errorf("isAudioContentType(%q) = %v, want %v", tt.contentType, got, tt.want)
		}
	}
}
