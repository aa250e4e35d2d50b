package transcribe

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/Xmanuel01/Viralclips/media"
	"github.com/Xmanuel01/Viralclips/models"
)

// Engine is one transcription backend, invoked per audio chunk. Engines are
// interchangeable; the orchestrator never sees which one is configured.
type Engine interface {
	// TranscribeChunk returns time-aligned segments for one audio file,
	// with timestamps relative to the start of that file, plus the
	// detected language.
	TranscribeChunk(ctx context.Context, audioPath, languageHint string) ([]models.Segment, string, error)
}

// Transcriber extracts audio, splits it into chunks and feeds them through
// the configured engine. Chunking keeps long media incrementally reporting
// progress instead of one opaque blocking call.
type Transcriber struct {
	engine       Engine
	tempDir      string
	chunkSeconds float64
}

func NewTranscriber(engine Engine, tempDir string, chunkSeconds int) *Transcriber {
	if chunkSeconds <= 0 {
		chunkSeconds = 600
	}
	return &Transcriber{
		engine:       engine,
		tempDir:      tempDir,
		chunkSeconds: float64(chunkSeconds),
	}
}

// Transcribe converts the media file's audio track into a Transcript. The
// progress callback fires after every processed chunk. Failure is terminal
// for the stage; no partial transcript is ever returned.
func (t *Transcriber) Transcribe(ctx context.Context, mediaPath, languageHint string, progress func(int)) (*models.Transcript, error) {
	if progress == nil {
		progress = func(int) {}
	}

	info, err := media.Probe(ctx, mediaPath)
	if err != nil {
		return nil, models.NewError(models.ErrUnsupportedFormat, err, "cannot probe media for transcription")
	}
	if !info.HasAudio {
		return nil, models.NewError(models.ErrNoAudioTrack, nil, "media has no audio track")
	}

	audioPath, err := t.extractAudio(ctx, mediaPath)
	if err != nil {
		return nil, err
	}
	defer os.Remove(audioPath)
	progress(10)

	chunks := chunkOffsets(info.Duration, t.chunkSeconds)
	var segments []models.Segment
	language := languageHint

	for i, offset := range chunks {
		select {
		case <-ctx.Done():
			return nil, models.NewError(models.ErrTimeout, ctx.Err(), "transcription cancelled")
		default:
		}

		chunkPath := audioPath
		chunkLen := info.Duration
		if len(chunks) > 1 {
			chunkLen = t.chunkSeconds
			if remaining := info.Duration - offset; remaining < chunkLen {
				chunkLen = remaining
			}
			chunkPath, err = t.cutChunk(ctx, audioPath, offset, chunkLen)
			if err != nil {
				return nil, err
			}
		}

		chunkSegs, lang, err := t.engine.TranscribeChunk(ctx, chunkPath, languageHint)
		if chunkPath != audioPath {
			os.Remove(chunkPath)
		}
		if err != nil {
			return nil, err
		}
		if language == "" {
			language = lang
		}

		segments = appendRebased(segments, chunkSegs, offset, offset+chunkLen)
		progress(10 + (i+1)*85/len(chunks))
	}

	transcript := &models.Transcript{
		ID:       uuid.New(),
		Text:     joinText(segments),
		Segments: segments,
		Language: language,
	}
	if err := transcript.Validate(); err != nil {
		return nil, fmt.Errorf("engine produced invalid segments: %w", err)
	}

	progress(100)
	log.Printf(" [√] Transcribed %.0fs of audio into %d segments (%s)", info.Duration, len(segments), language)
	return transcript, nil
}

// extractAudio pulls the audio track to 16kHz mono WAV, the format every
// engine consumes.
func (t *Transcriber) extractAudio(ctx context.Context, mediaPath string) (string, error) {
	outputPath := filepath.Join(t.tempDir, fmt.Sprintf("audio_%s.wav", uuid.New().String()))

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-i", mediaPath,
		"-vn",
		"-ar", "16000",
		"-ac", "1",
		"-c:a", "pcm_s16le",
		"-y",
		outputPath,
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		return "", models.NewError(models.ErrNoAudioTrack, err,
			"audio extraction failed: %s", lastLine(string(output)))
	}
	return outputPath, nil
}

// cutChunk copies one [offset, offset+length] span of the WAV without
// re-encoding.
func (t *Transcriber) cutChunk(ctx context.Context, audioPath string, offset, length float64) (string, error) {
	chunkPath := filepath.Join(t.tempDir, fmt.Sprintf("chunk_%s.wav", uuid.New().String()))

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-ss", fmt.Sprintf("%.3f", offset),
		"-t", fmt.Sprintf("%.3f", length),
		"-i", audioPath,
		"-c", "copy",
		"-y",
		chunkPath,
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("audio chunking failed: %s", lastLine(string(output)))
	}
	return chunkPath, nil
}

// chunkOffsets returns chunk start offsets covering the duration.
func chunkOffsets(duration, chunkSeconds float64) []float64 {
	if duration <= chunkSeconds {
		return []float64{0}
	}
	var offsets []float64
	for off := 0.0; off < duration; off += chunkSeconds {
		offsets = append(offsets, off)
	}
	return offsets
}

// appendRebased shifts chunk-local segments by the chunk offset, clamps them
// into the chunk bounds and drops anything that would break transcript
// ordering.
func appendRebased(acc, chunkSegs []models.Segment, offset, limit float64) []models.Segment {
	prevEnd := 0.0
	if len(acc) > 0 {
		prevEnd = acc[len(acc)-1].End
	}

	for _, seg := range chunkSegs {
		seg.Start += offset
		seg.End += offset
		if seg.End > limit {
			seg.End = limit
		}
		if seg.Start < prevEnd {
			seg.Start = prevEnd
		}
		if seg.Start >= seg.End || strings.TrimSpace(seg.Text) == "" {
			continue
		}

		var words []models.Word
		for _, w := range seg.Words {
			w.Start += offset
			w.End += offset
			if w.Start < seg.Start {
				w.Start = seg.Start
			}
			if w.End > seg.End {
				w.End = seg.End
			}
			if w.Start > w.End {
				continue
			}
			words = append(words, w)
		}
		seg.Words = words

		acc = append(acc, seg)
		prevEnd = seg.End
	}
	return acc
}

func joinText(segments []models.Segment) string {
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		parts = append(parts, strings.TrimSpace(seg.Text))
	}
	return strings.Join(parts, " ")
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return lines[len(lines)-1]
}
