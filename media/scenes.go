package media

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
)

var scenePTSRe = regexp.MustCompile(`pts_time:([0-9.]+)`)

// DetectScenes returns timestamps of hard cuts in the video, found with
// ffmpeg's scene filter. Detection failures return an empty list rather than
// an error; scene changes only sweeten highlight scores.
func DetectScenes(ctx context.Context, path string, threshold float64) []float64 {
	if threshold <= 0 {
		threshold = 0.4
	}

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-i", path,
		"-vf", fmt.Sprintf("select='gt(scene,%.2f)',showinfo", threshold),
		"-f", "null", "-",
	)
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil
	}
	if err := cmd.Start(); err != nil {
		return nil
	}

	var changes []float64
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		if m := scenePTSRe.FindStringSubmatch(scanner.Text()); m != nil {
			if ts, err := strconv.ParseFloat(m[1], 64); err == nil {
				changes = append(changes, ts)
			}
		}
	}
	_ = cmd.Wait()
	return changes
}
