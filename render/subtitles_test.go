package render

import (
	"strings"
	"testing"

	"github.com/Xmanuel01/Viralclips/models"
)

func testSegments() []models.Segment {
	return []models.Segment{
		{Start: 0, End: 2.5, Text: "hello there"},
		{Start: 2.5, End: 5, Text: "welcome back"},
	}
}

func TestBuildASSBasics(t *testing.T) {
	doc := BuildASS(testSegments(), DefaultSubtitleStyle(), 720, 1280)

	for _, want := range []string{
		"[Script Info]",
		"PlayResX: 720",
		"PlayResY: 1280",
		"[V4+ Styles]",
		"[Events]",
		"Dialogue: 0,0:00:00.00,0:00:02.50,Default,,0,0,0,hello there",
		"Dialogue: 0,0:00:02.50,0:00:05.00,Default,,0,0,0,welcome back",
	} {
		if !strings.Contains(doc, want) {
			t.Errorf("document missing %q", want)
		}
	}
}

func TestBuildASSSkipsEmptySegments(t *testing.T) {
	segments := []models.Segment{
		{Start: 0, End: 2, Text: "   "},
		{Start: 3, End: 3, Text: "zero length"},
		{Start: 4, End: 6, Text: "kept"},
	}
	doc := BuildASS(segments, DefaultSubtitleStyle(), 720, 1280)
	if got := strings.Count(doc, "Dialogue:"); got != 1 {
		t.Fatalf("got %d dialogue lines, want 1", got)
	}
}

func TestBuildASSAnimationTags(t *testing.T) {
	style := DefaultSubtitleStyle()

	style.Animation = models.AnimationFade
	if doc := BuildASS(testSegments(), style, 720, 1280); !strings.Contains(doc, `\fad(150,150)`) {
		t.Error("fade animation tag missing")
	}

	style.Animation = models.AnimationBounce
	if doc := BuildASS(testSegments(), style, 720, 1280); !strings.Contains(doc, `\fscx120`) {
		t.Error("bounce animation tag missing")
	}

	style.Animation = models.AnimationSlide
	if doc := BuildASS(testSegments(), style, 720, 1280); !strings.Contains(doc, `\move(`) {
		t.Error("slide animation tag missing")
	}
}

func TestBuildASSTypewriterUsesWordTiming(t *testing.T) {
	style := DefaultSubtitleStyle()
	style.Animation = models.AnimationTypewriter
	segments := []models.Segment{
		{Start: 0, End: 2, Text: "two words", Words: []models.Word{
			{Start: 0, End: 1, Text: "two"},
			{Start: 1, End: 2, Text: "words"},
		}},
	}
	doc := BuildASS(segments, style, 720, 1280)
	if !strings.Contains(doc, `{\k100}two`) || !strings.Contains(doc, `{\k100}words`) {
		t.Fatalf("karaoke tags missing from:\n%s", doc)
	}
}

func TestAssColorIsBGR(t *testing.T) {
	if got := assColor("#FF8800", 0); got != "&H000088FF" {
		t.Fatalf("assColor(#FF8800) = %s, want &H000088FF", got)
	}
	if got := assColor("bogus", 0); got != "&H00FFFFFF" {
		t.Fatalf("bad input fallback = %s, want white", got)
	}
}

func TestAssTime(t *testing.T) {
	cases := []struct {
		sec  float64
		want string
	}{
		{0, "0:00:00.00"},
		{75.25, "0:01:15.25"},
		{3661.5, "1:01:01.50"},
		{-3, "0:00:00.00"},
	}
	for _, tc := range cases {
		if got := assTime(tc.sec); got != tc.want {
			t.Errorf("assTime(%.2f) = %s, want %s", tc.sec, got, tc.want)
		}
	}
}

func TestEscapeASS(t *testing.T) {
	if got := escapeASS("a{b}c"); strings.ContainsAny(got, "{}") {
		t.Fatalf("braces survived escaping: %q", got)
	}
}
