package fetch

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/Xmanuel01/Viralclips/media"
	"github.com/Xmanuel01/Viralclips/models"
)

// Source describes where the video comes from.
type Source struct {
	Kind    models.VideoSource
	Locator string // local path for uploads, URL for remote
}

// Policy carries the caller-supplied limits; the fetcher enforces them but
// does not compute them.
type Policy struct {
	MaxFileSize int64
	Timeout     time.Duration
	MaxAttempts int
}

// LocalMedia is a fetched, probed, decodable file on worker-local disk.
type LocalMedia struct {
	Path     string
	Title    string
	Duration float64
	Width    int
	Height   int
	FPS      float64
	Format   string
	Size     int64
}

// Fetcher normalizes any input source into a LocalMedia.
type Fetcher struct {
	tempDir string
	client  *http.Client
}

func NewFetcher(tempDir string) *Fetcher {
	return &Fetcher{
		tempDir: tempDir,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Fetch resolves the source to a local decodable file. Duration and
// dimensions are probed from the file and confirmed with a frame decode, not
// trusted from container metadata alone.
func (f *Fetcher) Fetch(ctx context.Context, src Source, policy Policy, progress func(int)) (*LocalMedia, error) {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 3
	}
	if policy.Timeout <= 0 {
		policy.Timeout = 30 * time.Minute
	}
	if progress == nil {
		progress = func(int) {}
	}

	ctx, cancel := context.WithTimeout(ctx, policy.Timeout)
	defer cancel()

	var localPath, title string
	switch src.Kind {
	case models.SourceUpload:
		localPath = src.Locator
		title = filepath.Base(src.Locator)
	case models.SourceRemote:
		var err error
		localPath, title, err = f.download(ctx, src.Locator, policy, progress)
		if err != nil {
			return nil, err
		}
	default:
		return nil, models.NewError(models.ErrUnsupportedFormat, nil, "unknown source kind %q", src.Kind)
	}

	stat, err := os.Stat(localPath)
	if err != nil {
		return nil, models.NewError(models.ErrSourceNotFound, err, "source file missing")
	}
	if policy.MaxFileSize > 0 && stat.Size() > policy.MaxFileSize {
		return nil, models.NewError(models.ErrSourceTooLarge, nil,
			"file is %d bytes, limit is %d", stat.Size(), policy.MaxFileSize)
	}

	info, err := media.Probe(ctx, localPath)
	if err != nil {
		return nil, models.NewError(models.ErrUnsupportedFormat, err, "not a decodable video container")
	}
	if !info.HasVideo {
		return nil, models.NewError(models.ErrUnsupportedFormat, nil, "no video stream in source")
	}
	if err := media.VerifyDecodable(ctx, localPath); err != nil {
		return nil, models.NewError(models.ErrUnsupportedFormat, err, "video stream is not decodable")
	}

	progress(100)
	return &LocalMedia{
		Path:     localPath,
		Title:    title,
		Duration: info.Duration,
		Width:    info.Width,
		Height:   info.Height,
		FPS:      info.FPS,
		Format:   info.Format,
		Size:     stat.Size(),
	}, nil
}

// download routes platform watch URLs through yt-dlp and everything else
// through resumable HTTP.
func (f *Fetcher) download(ctx context.Context, url string, policy Policy, progress func(int)) (path, title string, err error) {
	dest := filepath.Join(f.tempDir, fmt.Sprintf("source_%s.mp4", uuid.New().String()))

	if IsPlatformURL(url) {
		title, err = f.downloadPlatform(ctx, url, dest, policy, progress)
		return dest, title, err
	}

	err = f.downloadHTTP(ctx, url, dest, policy, progress)
	return dest, filepath.Base(url), err
}

// Backoff returns the sleep before retry attempt n (1-based), growing
// quadratically: 1s, 4s, 9s...
func Backoff(attempt int) time.Duration {
	return time.Duration(attempt*attempt) * time.Second
}
