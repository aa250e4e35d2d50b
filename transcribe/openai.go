package transcribe

import (
	"context"
	"math"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/Xmanuel01/Viralclips/models"
)

// OpenAIEngine transcribes through the Whisper API. Word timestamps are
// requested but treated as best-effort; their absence only reduces
// downstream subtitle precision.
type OpenAIEngine struct {
	cli   *openai.Client
	model string
}

func NewOpenAIEngine(apiKey, baseURL, model string) *OpenAIEngine {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = "whisper-1"
	}
	return &OpenAIEngine{cli: openai.NewClientWithConfig(cfg), model: model}
}

func (e *OpenAIEngine) TranscribeChunk(ctx context.Context, audioPath, languageHint string) ([]models.Segment, string, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Minute)
	defer cancel()

	resp, err := e.cli.CreateTranscription(ctx, openai.AudioRequest{
		Model:    e.model,
		FilePath: audioPath,
		Language: languageHint,
		Format:   openai.AudioResponseFormatVerboseJSON,
		TimestampGranularities: []openai.TranscriptionTimestampGranularity{
			openai.TranscriptionTimestampGranularitySegment,
			openai.TranscriptionTimestampGranularityWord,
		},
	})
	if err != nil {
		return nil, "", models.NewError(models.ErrSourceUnavailable, err, "transcription request failed")
	}

	segments := make([]models.Segment, 0, len(resp.Segments))
	for _, s := range resp.Segments {
		segments = append(segments, models.Segment{
			Start: s.Start,
			End:   s.End,
			Text:  strings.TrimSpace(s.Text),
		})
	}
	attachWords(segments, resp)

	return segments, resp.Language, nil
}

// attachWords distributes the response's flat word list into the segment
// containing each word. The API reports no per-word confidence, so words
// inherit a segment-level estimate derived from the average log-probability.
func attachWords(segments []models.Segment, resp openai.AudioResponse) {
	if len(resp.Words) == 0 {
		return
	}

	confidence := make([]float64, len(segments))
	for i, s := range resp.Segments {
		if i < len(confidence) {
			confidence[i] = clamp01(math.Exp(s.AvgLogprob))
		}
	}

	si := 0
	for _, w := range resp.Words {
		for si < len(segments)-1 && w.Start >= segments[si].End {
			si++
		}
		seg := &segments[si]
		start, end := w.Start, w.End
		if start < seg.Start {
			start = seg.Start
		}
		if end > seg.End {
			end = seg.End
		}
		if start > end {
			continue
		}
		seg.Words = append(seg.Words, models.Word{
			Start:      start,
			End:        end,
			Text:       strings.TrimSpace(w.Word),
			Confidence: confidence[si],
		})
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
