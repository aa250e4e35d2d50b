package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/Xmanuel01/Viralclips/models"
)

func TestBackoffSchedule(t *testing.T) {
	want := []time.Duration{time.Second, 4 * time.Second, 9 * time.Second}
	for i, w := range want {
		if got := Backoff(i + 1); got != w {
			t.Errorf("Backoff(%d) = %s, want %s", i+1, got, w)
		}
	}
}

func TestIsPlatformURL(t *testing.T) {
	platform := []string{
		"https://www.youtube.com/watch?v=abc123",
		"https://youtu.be/abc123",
		"https://vimeo.com/123456",
		"https://www.twitch.tv/somestream",
	}
	for _, u := range platform {
		if !IsPlatformURL(u) {
			t.Errorf("%s should be a platform URL", u)
		}
	}

	direct := []string{
		"https://cdn.example.com/video.mp4",
		"https://example.com/youtube.com/fake.mp4",
		"not a url at all",
		"",
	}
	for _, u := range direct {
		if IsPlatformURL(u) {
			t.Errorf("%s should not be a platform URL", u)
		}
	}
}

func TestNotFoundOutput(t *testing.T) {
	if !notFoundOutput("ERROR: Video unavailable") {
		t.Error("unavailable marker not detected")
	}
	if !notFoundOutput("HTTP Error 404: Not Found") {
		t.Error("404 marker not detected")
	}
	if notFoundOutput("network timed out while reading") {
		t.Error("transient output misread as not-found")
	}
}

func TestDownloadHTTPNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir())
	dest := f.tempDir + "/out.mp4"
	err := f.downloadHTTP(context.Background(), srv.URL+"/video.mp4", dest, Policy{
		MaxFileSize: 1 << 20,
		MaxAttempts: 2,
		Timeout:     5 * time.Second,
	}, func(int) {})
	if err == nil {
		t.Fatal("expected error for 404 source")
	}
	if kind := models.KindOf(err); kind != models.ErrSourceNotFound {
		t.Fatalf("error kind = %s, want %s", kind, models.ErrSourceNotFound)
	}
	if _, statErr := os.Stat(dest); !os.IsNotExist(statErr) {
		t.Error("failed download left a partial file behind")
	}
}

func TestDownloadHTTPTooLarge(t *testing.T) {
	payload := strings.Repeat("x", 4096)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(payload))
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir())
	err := f.downloadHTTP(context.Background(), srv.URL+"/big.mp4", f.tempDir+"/big.mp4", Policy{
		MaxFileSize: 1024,
		MaxAttempts: 1,
		Timeout:     5 * time.Second,
	}, func(int) {})
	if kind := models.KindOf(err); kind != models.ErrSourceTooLarge {
		t.Fatalf("error kind = %s, want %s", kind, models.ErrSourceTooLarge)
	}
}

func TestDownloadHTTPRetriesServerErrors(t *testing.T) {
	attempts := 0
	body := "media-bytes-media-bytes"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			http.Error(w, "flaky", http.StatusBadGateway)
			return
		}
		w.Write([]byte(body))
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir())
	dest := f.tempDir + "/ok.mp4"
	err := f.downloadHTTP(context.Background(), srv.URL+"/flaky.mp4", dest, Policy{
		MaxFileSize: 1 << 20,
		MaxAttempts: 3,
		Timeout:     30 * time.Second,
	}, func(int) {})
	if err != nil {
		t.Fatalf("download failed after retry: %v", err)
	}
	if attempts != 2 {
		t.Fatalf("server saw %d attempts, want 2", attempts)
	}
	data, _ := os.ReadFile(dest)
	if string(data) != body {
		t.Fatalf("downloaded %d bytes, want %d", len(data), len(body))
	}
}
