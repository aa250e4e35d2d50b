package fetch

import (
	"context"
	"net/url"
	"os/exec"
	"strings"
	"time"

	"github.com/Xmanuel01/Viralclips/models"
)

var platformHosts = map[string]bool{
	"youtube.com":     true,
	"www.youtube.com": true,
	"m.youtube.com":   true,
	"youtu.be":        true,
	"vimeo.com":       true,
	"www.vimeo.com":   true,
	"twitch.tv":       true,
	"www.twitch.tv":   true,
}

// IsPlatformURL reports whether the URL is a watch page needing extractor
// resolution rather than a direct media URL.
func IsPlatformURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return platformHosts[strings.ToLower(u.Host)]
}

// downloadPlatform resolves a watch URL to a stream via yt-dlp and downloads
// it, returning the video title. Quality is capped at 1080p to bound
// transfer size.
func (f *Fetcher) downloadPlatform(ctx context.Context, watchURL, dest string, policy Policy, progress func(int)) (string, error) {
	title, err := f.probePlatform(ctx, watchURL)
	if err != nil {
		return "", err
	}

	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		cmd := exec.CommandContext(ctx, "yt-dlp",
			"--no-playlist",
			"--no-progress",
			"-f", "bestvideo[height<=1080]+bestaudio/best[height<=1080]",
			"--merge-output-format", "mp4",
			"-o", dest,
			watchURL,
		)
		output, err := cmd.CombinedOutput()
		if err == nil {
			progress(95)
			return title, nil
		}
		if notFoundOutput(string(output)) {
			return "", models.NewError(models.ErrSourceNotFound, err, "video is unavailable or removed")
		}
		lastErr = err

		if attempt < policy.MaxAttempts {
			timer := time.NewTimer(Backoff(attempt))
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return "", models.NewError(models.ErrSourceUnavailable, ctx.Err(), "download cancelled")
			}
		}
	}

	return "", models.NewError(models.ErrSourceUnavailable, lastErr,
		"platform download failed after %d attempts", policy.MaxAttempts)
}

// probePlatform resolves metadata without downloading, so unavailable videos
// fail fast and the title is captured for the Video record.
func (f *Fetcher) probePlatform(ctx context.Context, watchURL string) (string, error) {
	cmd := exec.CommandContext(ctx, "yt-dlp",
		"--no-playlist",
		"--skip-download",
		"--print", "title",
		watchURL,
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if notFoundOutput(string(output)) {
			return "", models.NewError(models.ErrSourceNotFound, err, "video is unavailable or removed")
		}
		return "", models.NewError(models.ErrSourceUnavailable, err, "could not resolve video metadata")
	}
	return strings.TrimSpace(string(output)), nil
}

func notFoundOutput(output string) bool {
	lower := strings.ToLower(output)
	for _, marker := range []string{"404", "video unavailable", "not found", "private video", "has been removed"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
