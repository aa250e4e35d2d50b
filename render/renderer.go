package render

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/Xmanuel01/Viralclips/media"
	"github.com/Xmanuel01/Viralclips/models"
)

// Request describes a single clip export. TranscriptSegments carries the
// full-video transcript; the renderer slices out the clip-local portion for
// subtitle burn-in.
type Request struct {
	SourcePath         string
	SourceInfo         media.Info
	Start              float64
	End                float64
	Format             models.ExportFormat
	Resolution         string
	Watermark          bool
	WithSubtitles      bool
	Style              models.SubtitleStyle
	TranscriptSegments []models.Segment
	Regions            []Region
	OutputPath         string
}

// Result is what a successful render produced.
type Result struct {
	Path     string
	Start    float64
	End      float64
	Duration float64
	Width    int
	Height   int
	Size     int64
	Warnings []string
}

type Renderer struct {
	tempDir       string
	watermarkText string
	brandAssetDir string
	paddingSec    float64
}

func NewRenderer(tempDir, watermarkText, brandAssetDir string, paddingSec float64) *Renderer {
	if paddingSec < 0 {
		paddingSec = 0
	}
	return &Renderer{
		tempDir:       tempDir,
		watermarkText: watermarkText,
		brandAssetDir: brandAssetDir,
		paddingSec:    paddingSec,
	}
}

// PaddedSpan widens a highlight span by the configured context padding,
// clamped to the video bounds.
func (r *Renderer) PaddedSpan(start, end, videoDuration float64) (float64, float64) {
	start -= r.paddingSec
	end += r.paddingSec
	if start < 0 {
		start = 0
	}
	if videoDuration > 0 && end > videoDuration {
		end = videoDuration
	}
	return start, end
}

// Render cuts, reframes and encodes one clip. Subtitle and watermark layers
// are burned in during the single encode pass. The progress callback receives
// values in [0,100].
func (r *Renderer) Render(ctx context.Context, req Request, progress func(int)) (*Result, error) {
	if progress == nil {
		progress = func(int) {}
	}

	start, end := r.PaddedSpan(req.Start, req.End, req.SourceInfo.Duration)
	dur := end - start
	if dur <= 0 {
		return nil, models.NewError(models.ErrSourceTrimFailed, nil, "clip span [%.2f, %.2f] is empty", start, end)
	}

	filters := []string{cropScaleFilter(req.SourceInfo.Width, req.SourceInfo.Height, req.Format, req.Resolution, req.Regions)}
	var warnings []string

	if req.WithSubtitles {
		local := models.SliceSegments(req.TranscriptSegments, start, end)
		assPath := filepath.Join(r.tempDir, strings.TrimSuffix(filepath.Base(req.OutputPath), filepath.Ext(req.OutputPath))+".ass")
		tw, th := TargetDims(req.Format, req.Resolution)
		if err := WriteASS(assPath, local, req.Style, tw, th); err != nil {
			return nil, models.NewError(models.ErrEncodeFailed, err, "prepare subtitles")
		}
		defer os.Remove(assPath)
		filters = append(filters, "ass="+escapeFilterPath(assPath))
	}

	if req.Watermark {
		wm, warn := r.watermarkFilter()
		if warn != "" {
			warnings = append(warnings, warn)
			log.Printf(" [!] %s", warn)
		}
		if wm != "" {
			filters = append(filters, wm)
		}
	}

	args := []string{
		"-y",
		"-i", req.SourcePath,
		"-ss", fmt.Sprintf("%.3f", start),
		"-t", fmt.Sprintf("%.3f", dur),
		"-vf", strings.Join(filters, ","),
		"-c:v", "libx264",
		"-preset", "medium",
		"-crf", "23",
		"-c:a", "aac",
		"-b:a", "128k",
		"-movflags", "+faststart",
		"-progress", "pipe:2",
		req.OutputPath,
	}

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, models.NewError(models.ErrEncodeFailed, err, "start ffmpeg")
	}
	if err := cmd.Start(); err != nil {
		return nil, models.NewError(models.ErrEncodeFailed, err, "start ffmpeg")
	}

	tail := monitorEncode(stderr, dur, progress)
	if err := cmd.Wait(); err != nil {
		os.Remove(req.OutputPath)
		if ctx.Err() != nil {
			return nil, models.NewError(models.ErrTimeout, ctx.Err(), "render clip")
		}
		return nil, classifyEncodeFailure(err, tail)
	}

	info, err := media.Probe(ctx, req.OutputPath)
	if err != nil {
		os.Remove(req.OutputPath)
		return nil, models.NewError(models.ErrEncodeFailed, err, "probe rendered clip")
	}
	if !DurationWithinTolerance(info.Duration, dur) {
		os.Remove(req.OutputPath)
		return nil, models.NewError(models.ErrEncodeFailed, nil,
			"rendered duration %.2fs, wanted %.2fs", info.Duration, dur)
	}

	progress(100)
	return &Result{
		Path:     req.OutputPath,
		Start:    start,
		End:      end,
		Duration: info.Duration,
		Width:    info.Width,
		Height:   info.Height,
		Size:     info.Size,
		Warnings: warnings,
	}, nil
}

// watermarkFilter prefers the brand logo overlay when an asset dir is
// configured, degrading to a drawtext stamp when the asset is absent.
func (r *Renderer) watermarkFilter() (filter, warning string) {
	if r.brandAssetDir != "" {
		logo := filepath.Join(r.brandAssetDir, "watermark.png")
		if _, err := os.Stat(logo); err == nil {
			return fmt.Sprintf("movie=%s[wm];[in][wm]overlay=W-w-24:24", escapeFilterPath(logo)), ""
		}
		warning = models.NewError(models.ErrAssetMissing, nil, "brand asset %s/watermark.png not found, using text watermark", r.brandAssetDir).Error()
	}
	if r.watermarkText == "" {
		return "", warning
	}
	text := strings.ReplaceAll(r.watermarkText, "'", `\'`)
	text = strings.ReplaceAll(text, ":", `\:`)
	return fmt.Sprintf("drawtext=text='%s':fontcolor=white@0.6:fontsize=h/30:x=w-tw-24:y=24", text), warning
}

var encodeTimeRe = regexp.MustCompile(`out_time_ms=(\d+)`)

// monitorEncode follows ffmpeg's progress output, reporting percent of the
// clip duration encoded. It returns the last stderr lines for diagnostics.
func monitorEncode(stderr io.Reader, clipDur float64, progress func(int)) []string {
	var tail []string
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		line := scanner.Text()
		tail = append(tail, line)
		if len(tail) > 30 {
			tail = tail[1:]
		}
		if m := encodeTimeRe.FindStringSubmatch(line); m != nil && clipDur > 0 {
			ms, _ := strconv.ParseInt(m[1], 10, 64)
			pct := int(float64(ms) / 1000.0 / 1000.0 / clipDur * 100)
			if pct > 99 {
				pct = 99
			}
			if pct > 0 {
				progress(pct)
			}
		}
	}
	return tail
}

var trimFailureMarkers = []string{
	"Invalid data found",
	"could not seek",
	"Error while decoding",
	"Output file is empty",
	"partial file",
}

func classifyEncodeFailure(err error, tail []string) error {
	joined := strings.Join(tail, "\n")
	for _, marker := range trimFailureMarkers {
		if strings.Contains(joined, marker) {
			return models.NewError(models.ErrSourceTrimFailed, err, "ffmpeg: %s", lastLine(tail))
		}
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return models.NewError(models.ErrEncodeFailed, err, "ffmpeg exited %d: %s", exitErr.ExitCode(), lastLine(tail))
	}
	return models.NewError(models.ErrEncodeFailed, err, "ffmpeg: %s", lastLine(tail))
}

func lastLine(tail []string) string {
	for i := len(tail) - 1; i >= 0; i-- {
		if s := strings.TrimSpace(tail[i]); s != "" {
			return s
		}
	}
	return "no output"
}

// escapeFilterPath escapes a path for use inside an ffmpeg filter argument.
func escapeFilterPath(p string) string {
	p = strings.ReplaceAll(p, `\`, `\\`)
	p = strings.ReplaceAll(p, ":", `\:`)
	p = strings.ReplaceAll(p, "'", `\'`)
	return p
}
