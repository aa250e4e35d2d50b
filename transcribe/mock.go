package transcribe

import (
	"context"
	"fmt"

	"github.com/Xmanuel01/Viralclips/media"
	"github.com/Xmanuel01/Viralclips/models"
)

// MockEngine produces deterministic placeholder segments sized from the
// audio duration. Used in development and tests where no model backend is
// reachable.
type MockEngine struct{}

func (MockEngine) TranscribeChunk(ctx context.Context, audioPath, languageHint string) ([]models.Segment, string, error) {
	info, err := media.Probe(ctx, audioPath)
	if err != nil {
		return nil, "", err
	}

	const segLen = 15.0
	var segs []models.Segment
	for start := 0.0; start < info.Duration; start += segLen {
		end := start + segLen
		if end > info.Duration {
			end = info.Duration
		}
		segs = append(segs, models.Segment{
			Start: start,
			End:   end,
			Text:  fmt.Sprintf("Placeholder transcript from %.0fs to %.0fs", start, end),
		})
	}

	lang := languageHint
	if lang == "" {
		lang = "en"
	}
	return segs, lang, nil
}
