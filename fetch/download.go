package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/Xmanuel01/Viralclips/models"
)

// downloadHTTP fetches a direct URL with bounded retries and Range-resumable
// transfer. Partial bytes from a failed attempt are kept and resumed.
func (f *Fetcher) downloadHTTP(ctx context.Context, url, dest string, policy Policy, progress func(int)) error {
	var lastErr error

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		err := f.tryDownload(ctx, url, dest, policy, progress)
		if err == nil {
			return nil
		}
		if kind := models.KindOf(err); !kind.Retryable() {
			os.Remove(dest)
			return err
		}
		lastErr = err

		if attempt < policy.MaxAttempts {
			timer := time.NewTimer(Backoff(attempt))
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				os.Remove(dest)
				return models.NewError(models.ErrSourceUnavailable, ctx.Err(), "download cancelled")
			}
		}
	}

	os.Remove(dest)
	return models.NewError(models.ErrSourceUnavailable, lastErr,
		"download failed after %d attempts", policy.MaxAttempts)
}

func (f *Fetcher) tryDownload(ctx context.Context, url, dest string, policy Policy, progress func(int)) error {
	var offset int64
	if stat, err := os.Stat(dest); err == nil {
		offset = stat.Size()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return models.NewError(models.ErrSourceNotFound, err, "invalid source URL")
	}
	if offset > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", offset))
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return models.NewError(models.ErrSourceUnavailable, err, "source fetch failed")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return models.NewError(models.ErrSourceNotFound, nil, "source returned %d", resp.StatusCode)
	case resp.StatusCode == http.StatusRequestedRangeNotSatisfiable:
		// Already fully downloaded on a previous attempt.
		return nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return models.NewError(models.ErrSourceNotFound, nil, "source rejected request with %d", resp.StatusCode)
	case resp.StatusCode >= 500:
		return models.NewError(models.ErrSourceUnavailable, nil, "source returned %d", resp.StatusCode)
	}

	// Server ignored the Range request: start over.
	if offset > 0 && resp.StatusCode != http.StatusPartialContent {
		offset = 0
	}

	total := resp.ContentLength
	if total > 0 {
		total += offset
		// Reject before transferring anything when the resolved size
		// already exceeds policy.
		if policy.MaxFileSize > 0 && total > policy.MaxFileSize {
			return models.NewError(models.ErrSourceTooLarge, nil,
				"source is %d bytes, limit is %d", total, policy.MaxFileSize)
		}
	}

	flags := os.O_CREATE | os.O_WRONLY
	if offset > 0 {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	out, err := os.OpenFile(dest, flags, 0644)
	if err != nil {
		return fmt.Errorf("open destination: %w", err)
	}
	defer out.Close()

	written := offset
	buf := make([]byte, 256*1024)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, err := out.Write(buf[:n]); err != nil {
				return fmt.Errorf("write destination: %w", err)
			}
			written += int64(n)
			if policy.MaxFileSize > 0 && written > policy.MaxFileSize {
				return models.NewError(models.ErrSourceTooLarge, nil,
					"source exceeded limit of %d bytes mid-transfer", policy.MaxFileSize)
			}
			if total > 0 {
				progress(int(written * 95 / total))
			}
		}
		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			return models.NewError(models.ErrSourceUnavailable, readErr, "source transfer interrupted")
		}
	}
}
