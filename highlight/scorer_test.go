package highlight

import (
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/Xmanuel01/Viralclips/models"
)

// talkTranscript builds a transcript of evenly spaced segments with the given
// per-segment text.
func talkTranscript(texts []string, segDur float64) *models.Transcript {
	segments := make([]models.Segment, len(texts))
	for i, text := range texts {
		segments[i] = models.Segment{
			Start: float64(i) * segDur,
			End:   float64(i+1) * segDur,
			Text:  text,
		}
	}
	return &models.Transcript{
		ID:       uuid.New(),
		Text:     strings.Join(texts, " "),
		Segments: segments,
	}
}

var viralTexts = []string{
	"this is the most amazing secret trick nobody ever shares with you",
	"you won't believe what happened next it was absolutely insane and shocking",
	"here is the incredible truth exposed about this crazy viral moment",
	"the best advice I ever got changed everything about how I work",
	"a wild unbelievable story with a shocking twist at the end",
	"people always ask me why this mind-blowing hack actually works",
}

func TestDetectHighlightsEmptyTranscript(t *testing.T) {
	if got := DetectHighlights(nil, 300, Options{}); len(got) != 0 {
		t.Fatalf("nil transcript produced %d highlights, want 0", len(got))
	}
	empty := &models.Transcript{ID: uuid.New()}
	if got := DetectHighlights(empty, 300, Options{}); len(got) != 0 {
		t.Fatalf("empty transcript produced %d highlights, want 0", len(got))
	}
}

func TestDetectHighlightsDeterministic(t *testing.T) {
	tr := talkTranscript(viralTexts, 10)
	opts := Options{MinClipSec: 15, MaxClipSec: 60, MaxHighlights: 5}

	first := DetectHighlights(tr, 60, opts)
	second := DetectHighlights(tr, 60, opts)

	if len(first) != len(second) {
		t.Fatalf("run lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		a, b := first[i], second[i]
		if a.StartTime != b.StartTime || a.EndTime != b.EndTime || a.Score != b.Score || a.Title != b.Title {
			t.Fatalf("run %d differs: %+v vs %+v", i, a, b)
		}
	}
}

func TestDetectHighlightsBounds(t *testing.T) {
	tr := talkTranscript(viralTexts, 10)
	opts := Options{MinClipSec: 15, MaxClipSec: 60, MaxHighlights: 3}
	videoDur := 60.0

	highlights := DetectHighlights(tr, videoDur, opts)
	if len(highlights) == 0 {
		t.Fatal("expected highlights from keyword-rich transcript")
	}
	if len(highlights) > opts.MaxHighlights {
		t.Fatalf("got %d highlights, cap is %d", len(highlights), opts.MaxHighlights)
	}
	for _, h := range highlights {
		if h.StartTime < 0 || h.EndTime > videoDur {
			t.Errorf("highlight [%.1f, %.1f] exceeds video bounds", h.StartTime, h.EndTime)
		}
		if d := h.Duration(); d < opts.MinClipSec || d > opts.MaxClipSec {
			t.Errorf("highlight duration %.1fs outside [%.1f, %.1f]", d, opts.MinClipSec, opts.MaxClipSec)
		}
		if h.Score < 0 || h.Score > 1 {
			t.Errorf("score %.3f outside [0, 1]", h.Score)
		}
		if h.Title == "" {
			t.Error("highlight has no title")
		}
	}
	for i := 1; i < len(highlights); i++ {
		if highlights[i].Score > highlights[i-1].Score {
			t.Errorf("highlights not sorted by score: %.3f after %.3f", highlights[i].Score, highlights[i-1].Score)
		}
	}
}

func TestDetectHighlightsNonOverlapping(t *testing.T) {
	tr := talkTranscript(viralTexts, 10)
	opts := Options{MinClipSec: 15, MaxClipSec: 60, MaxHighlights: 5, OverlapFraction: 0.2}

	highlights := DetectHighlights(tr, 60, opts)
	for i := 0; i < len(highlights); i++ {
		for j := i + 1; j < len(highlights); j++ {
			a, b := highlights[i], highlights[j]
			inter := minF(a.EndTime, b.EndTime) - maxF(a.StartTime, b.StartTime)
			if inter <= 0 {
				continue
			}
			shorter := minF(a.Duration(), b.Duration())
			if frac := inter / shorter; frac > opts.OverlapFraction {
				t.Errorf("highlights [%.1f,%.1f] and [%.1f,%.1f] overlap %.0f%%",
					a.StartTime, a.EndTime, b.StartTime, b.EndTime, frac*100)
			}
		}
	}
}

func TestSelectNonOverlappingPrefersHigherScore(t *testing.T) {
	cands := []candidate{
		{start: 10, end: 40, score: 0.9},
		{start: 20, end: 50, score: 0.85},
	}
	opts := Options{OverlapFraction: 0.2, MaxHighlights: 5, HardCap: 10}

	kept := selectNonOverlapping(cands, opts)
	if len(kept) != 1 {
		t.Fatalf("kept %d candidates, want 1", len(kept))
	}
	if kept[0].start != 10 || kept[0].end != 40 {
		t.Fatalf("kept [%.0f, %.0f], want [10, 40]", kept[0].start, kept[0].end)
	}
}

func TestEqualScoresKeepEarlierStart(t *testing.T) {
	cands := []candidate{
		{start: 100, end: 130, score: 0.7},
		{start: 10, end: 40, score: 0.7},
		{start: 50, end: 80, score: 0.7},
	}
	sortCandidates(cands)

	if cands[0].start != 10 {
		t.Fatalf("first candidate starts at %.0f, want 10", cands[0].start)
	}
	if cands[1].start != 50 || cands[2].start != 100 {
		t.Fatalf("candidates not ordered by start: %.0f, %.0f", cands[1].start, cands[2].start)
	}
}

func TestDetectHighlightsFallbackOnFlatSpeech(t *testing.T) {
	flat := []string{
		"table chair curtain door floor ceiling lamp shelf",
		"spoon plate bowl cup kettle pan oven fridge",
		"street road path lane bridge tunnel gate fence",
		"cloud rain mist fog frost sleet hail gust",
	}
	tr := talkTranscript(flat, 15)

	highlights := DetectHighlights(tr, 60, Options{MinClipSec: 15, MaxClipSec: 60})
	if len(highlights) == 0 {
		t.Fatal("flat speech should still yield fallback highlights")
	}
	for _, h := range highlights {
		if h.Score <= 0 {
			t.Errorf("fallback highlight has non-positive score %.3f", h.Score)
		}
	}
}

func TestDetectHighlightsShortTranscript(t *testing.T) {
	tr := talkTranscript([]string{"amazing secret trick"}, 5)
	if got := DetectHighlights(tr, 5, Options{MinClipSec: 15}); len(got) != 0 {
		t.Fatalf("5s transcript produced %d highlights, want 0", len(got))
	}
}

func TestSceneChangeBonus(t *testing.T) {
	tr := talkTranscript(viralTexts, 10)
	opts := Options{MinClipSec: 15, MaxClipSec: 60, MaxHighlights: 1}

	plain := DetectHighlights(tr, 60, opts)
	opts.SceneChanges = []float64{5, 15, 25, 35, 45, 55}
	boosted := DetectHighlights(tr, 60, opts)

	if len(plain) == 0 || len(boosted) == 0 {
		t.Fatal("expected highlights in both runs")
	}
	if boosted[0].Score < plain[0].Score {
		t.Errorf("scene changes lowered top score: %.3f < %.3f", boosted[0].Score, plain[0].Score)
	}
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
