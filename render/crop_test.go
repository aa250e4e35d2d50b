package render

import (
	"testing"

	"github.com/Xmanuel01/Viralclips/models"
)

func TestTargetDims(t *testing.T) {
	cases := []struct {
		format     models.ExportFormat
		resolution string
		w, h       int
	}{
		{models.FormatVertical, "720p", 720, 1280},
		{models.FormatVertical, "1080p", 1080, 1920},
		{models.FormatSquare, "720p", 720, 720},
		{models.FormatSquare, "1080p", 1080, 1080},
		{models.FormatHorizontal, "720p", 1280, 720},
		{models.FormatHorizontal, "1080p", 1920, 1080},
	}
	for _, tc := range cases {
		w, h := TargetDims(tc.format, tc.resolution)
		if w != tc.w || h != tc.h {
			t.Errorf("TargetDims(%s, %s) = %dx%d, want %dx%d", tc.format, tc.resolution, w, h, tc.w, tc.h)
		}
	}
}

func TestCropWindowCentered(t *testing.T) {
	// 1920x1080 source cut to 9:16 keeps full height, crops width centered.
	w, h, x, y := CropWindow(1920, 1080, models.FormatVertical, nil)
	if h != 1080 {
		t.Errorf("crop height = %d, want 1080", h)
	}
	wantW := 606 // 1080 * 9/16, rounded down to even
	if w != wantW {
		t.Errorf("crop width = %d, want %d", w, wantW)
	}
	if x != (1920-w)/2 || y != 0 {
		t.Errorf("crop offset = (%d, %d), want centered", x, y)
	}
}

func TestCropWindowFollowsSubject(t *testing.T) {
	// Subject on the far left pulls the window left of center.
	regions := []Region{{X: 0, Y: 200, W: 200, H: 400}}
	_, _, x, _ := CropWindow(1920, 1080, models.FormatVertical, regions)
	_, _, centerX, _ := CropWindow(1920, 1080, models.FormatVertical, nil)
	if x >= centerX {
		t.Errorf("subject crop x = %d, want left of center %d", x, centerX)
	}
	if x < 0 {
		t.Errorf("crop x = %d, clamped window left the frame", x)
	}
}

func TestCropWindowClampedToFrame(t *testing.T) {
	// Subject at the extreme right edge must not push the window outside.
	regions := []Region{{X: 1900, Y: 0, W: 20, H: 1080}}
	w, _, x, _ := CropWindow(1920, 1080, models.FormatVertical, regions)
	if x+w > 1920 {
		t.Errorf("crop window [%d, %d] exceeds source width", x, x+w)
	}
}

func TestCropWindowTallSource(t *testing.T) {
	// A phone recording exported to 16:9 keeps full width, crops height.
	w, h, _, _ := CropWindow(1080, 1920, models.FormatHorizontal, nil)
	if w != 1080 {
		t.Errorf("crop width = %d, want 1080", w)
	}
	if h >= 1920 {
		t.Errorf("crop height = %d, want less than source height", h)
	}
}

func TestDurationWithinTolerance(t *testing.T) {
	if !DurationWithinTolerance(30.05, 30.0) {
		t.Error("50ms drift should pass")
	}
	if !DurationWithinTolerance(29.9, 30.0) {
		t.Error("100ms drift should pass")
	}
	if DurationWithinTolerance(30.5, 30.0) {
		t.Error("500ms drift should fail")
	}
}

func TestPaddedSpan(t *testing.T) {
	r := NewRenderer(t.TempDir(), "", "", 1)

	start, end := r.PaddedSpan(10, 40, 120)
	if start != 9 || end != 41 {
		t.Errorf("padded span = [%.1f, %.1f], want [9, 41]", start, end)
	}

	// Padding never escapes the video bounds.
	start, end = r.PaddedSpan(0.5, 119.5, 120)
	if start != 0 || end != 120 {
		t.Errorf("clamped span = [%.1f, %.1f], want [0, 120]", start, end)
	}
}
