package transcribe

import (
	"testing"

	"github.com/Xmanuel01/Viralclips/models"
)

func TestChunkOffsets(t *testing.T) {
	if got := chunkOffsets(300, 600); len(got) != 1 || got[0] != 0 {
		t.Fatalf("short audio offsets = %v, want [0]", got)
	}

	got := chunkOffsets(1500, 600)
	want := []float64{0, 600, 1200}
	if len(got) != len(want) {
		t.Fatalf("offsets = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("offsets = %v, want %v", got, want)
		}
	}
}

func TestAppendRebasedShiftsByOffset(t *testing.T) {
	chunk := []models.Segment{
		{Start: 0, End: 5, Text: "first"},
		{Start: 5, End: 12, Text: "second"},
	}
	got := appendRebased(nil, chunk, 600, 1200)
	if len(got) != 2 {
		t.Fatalf("got %d segments, want 2", len(got))
	}
	if got[0].Start != 600 || got[0].End != 605 {
		t.Errorf("first segment = [%.0f, %.0f], want [600, 605]", got[0].Start, got[0].End)
	}
	if got[1].Start != 605 || got[1].End != 612 {
		t.Errorf("second segment = [%.0f, %.0f], want [605, 612]", got[1].Start, got[1].End)
	}
}

func TestAppendRebasedEnforcesOrdering(t *testing.T) {
	acc := []models.Segment{{Start: 0, End: 10, Text: "earlier"}}
	chunk := []models.Segment{
		{Start: -4, End: 2, Text: "overlaps boundary"}, // engine drift across the cut
		{Start: 2, End: 6, Text: "clean"},
		{Start: 6, End: 6, Text: "zero width"},
		{Start: 7, End: 9, Text: "   "},
	}
	got := appendRebased(acc, chunk, 10, 20)
	if len(got) != 3 {
		t.Fatalf("got %d segments, want 3", len(got))
	}

	tr := &models.Transcript{Segments: got}
	if err := tr.Validate(); err != nil {
		t.Fatalf("rebased segments fail validation: %v", err)
	}
	if got[1].Start != 10 {
		t.Errorf("drifting segment start = %.0f, want clamped to 10", got[1].Start)
	}
}

func TestAppendRebasedClampsWords(t *testing.T) {
	chunk := []models.Segment{{
		Start: 0, End: 8, Text: "with words",
		Words: []models.Word{
			{Start: 1, End: 3, Text: "with", Confidence: 0.8},
			{Start: 3, End: 9, Text: "words", Confidence: 0.9}, // runs past segment end
		},
	}}
	got := appendRebased(nil, chunk, 100, 108)
	if len(got) != 1 || len(got[0].Words) != 2 {
		t.Fatalf("unexpected shape: %+v", got)
	}
	if got[0].Words[1].End != 108 {
		t.Errorf("overrunning word end = %.0f, want clamped to 108", got[0].Words[1].End)
	}
	tr := &models.Transcript{Segments: got}
	if err := tr.Validate(); err != nil {
		t.Fatalf("clamped words fail validation: %v", err)
	}
}

func TestJoinText(t *testing.T) {
	segments := []models.Segment{
		{Text: " hello "},
		{Text: "world"},
	}
	if got := joinText(segments); got != "hello world" {
		t.Fatalf("joinText = %q", got)
	}
}
