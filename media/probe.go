package media

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Info is what ffprobe reports about a local media file.
type Info struct {
	Duration float64
	Width    int
	Height   int
	FPS      float64
	Format   string
	Size     int64
	HasVideo bool
	HasAudio bool
}

// Probe extracts container and stream metadata with ffprobe.
func Probe(ctx context.Context, path string) (*Info, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "stream=codec_type,width,height,avg_frame_rate:format=duration,format_name,size",
		"-of", "default=noprint_wrappers=1",
		path,
	}

	cmd := exec.CommandContext(ctx, "ffprobe", args...)
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe error: %w", err)
	}

	info := &Info{}
	for _, line := range strings.Split(string(output), "\n") {
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		switch key {
		case "codec_type":
			if value == "video" {
				info.HasVideo = true
			}
			if value == "audio" {
				info.HasAudio = true
			}
		case "width":
			if info.Width == 0 {
				fmt.Sscanf(value, "%d", &info.Width)
			}
		case "height":
			if info.Height == 0 {
				fmt.Sscanf(value, "%d", &info.Height)
			}
		case "avg_frame_rate":
			if info.FPS == 0 {
				info.FPS = parseFrameRate(value)
			}
		case "duration":
			fmt.Sscanf(value, "%f", &info.Duration)
		case "format_name":
			// ffprobe lists aliases like "mov,mp4,m4a"; keep the first.
			info.Format = strings.SplitN(value, ",", 2)[0]
		case "size":
			fmt.Sscanf(value, "%d", &info.Size)
		}
	}

	if !info.HasVideo && !info.HasAudio {
		return nil, fmt.Errorf("no decodable streams in %s", path)
	}
	return info, nil
}

// VerifyDecodable decodes one frame to confirm the file is not a container
// with valid metadata over corrupt payload.
func VerifyDecodable(ctx context.Context, path string) error {
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-v", "error",
		"-i", path,
		"-frames:v", "1",
		"-f", "null", "-",
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("decode check failed: %v: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}

// parseFrameRate converts ffprobe's fractional rate ("30000/1001") to fps.
func parseFrameRate(value string) float64 {
	if value == "" || value == "0/0" {
		return 0
	}
	parts := strings.SplitN(value, "/", 2)
	num, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0
	}
	if len(parts) == 1 {
		return num
	}
	den, err := strconv.ParseFloat(parts[1], 64)
	if err != nil || den == 0 {
		return 0
	}
	return num / den
}
