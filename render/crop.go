package render

import (
	"fmt"

	"github.com/Xmanuel01/Viralclips/models"
)

// Region is a subject bounding box in source pixel coordinates, produced by
// an upstream detector. Renders with no regions fall back to center crop.
type Region struct {
	X, Y, W, H int
}

// TargetDims returns the output frame size for an aspect format at a named
// resolution tier ("720p" or "1080p").
func TargetDims(format models.ExportFormat, resolution string) (int, int) {
	short := 720
	long := 1280
	if resolution == "1080p" {
		short = 1080
		long = 1920
	}
	switch format {
	case models.FormatVertical:
		return short, long
	case models.FormatSquare:
		return short, short
	default:
		return long, short
	}
}

// CropWindow computes the source rectangle for the target aspect ratio.
// With subject regions present the window is re-centered on the mean subject
// center, clamped to the frame; otherwise it is centered.
func CropWindow(srcW, srcH int, format models.ExportFormat, regions []Region) (w, h, x, y int) {
	tw, th := TargetDims(format, "720p")
	targetAR := float64(tw) / float64(th)
	srcAR := float64(srcW) / float64(srcH)

	if srcAR > targetAR {
		h = srcH
		w = int(float64(srcH) * targetAR)
	} else {
		w = srcW
		h = int(float64(srcW) / targetAR)
	}
	// even dimensions keep libx264 happy
	w -= w % 2
	h -= h % 2

	cx := srcW / 2
	cy := srcH / 2
	if len(regions) > 0 {
		sumX, sumY := 0, 0
		for _, r := range regions {
			sumX += r.X + r.W/2
			sumY += r.Y + r.H/2
		}
		cx = sumX / len(regions)
		cy = sumY / len(regions)
	}

	x = clampInt(cx-w/2, 0, srcW-w)
	y = clampInt(cy-h/2, 0, srcH-h)
	return w, h, x, y
}

// cropScaleFilter builds the crop+scale portion of the ffmpeg filter graph.
func cropScaleFilter(srcW, srcH int, format models.ExportFormat, resolution string, regions []Region) string {
	cw, ch, cx, cy := CropWindow(srcW, srcH, format, regions)
	tw, th := TargetDims(format, resolution)
	return fmt.Sprintf("crop=%d:%d:%d:%d,scale=%d:%d", cw, ch, cx, cy, tw, th)
}

// DurationWithinTolerance reports whether a rendered clip's probed duration
// matches the requested one closely enough to ship.
func DurationWithinTolerance(got, want float64) bool {
	diff := got - want
	if diff < 0 {
		diff = -diff
	}
	return diff <= 0.1
}

func clampInt(v, lo, hi int) int {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
