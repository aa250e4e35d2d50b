package highlight

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/Xmanuel01/Viralclips/models"
)

// Options bounds a detection run. Zero values fall back to defaults.
type Options struct {
	MinClipSec      float64
	MaxClipSec      float64
	MaxHighlights   int
	HardCap         int
	OverlapFraction float64   // permitted overlap between selected highlights
	SceneChanges    []float64 // optional scene-boundary timestamps, ascending
}

func (o Options) withDefaults() Options {
	if o.MinClipSec <= 0 {
		o.MinClipSec = 15
	}
	if o.MaxClipSec <= 0 {
		o.MaxClipSec = 60
	}
	if o.MaxHighlights <= 0 {
		o.MaxHighlights = 5
	}
	if o.HardCap <= 0 {
		o.HardCap = 10
	}
	if o.MaxHighlights > o.HardCap {
		o.MaxHighlights = o.HardCap
	}
	return o
}

type candidate struct {
	start, end float64
	score      float64
	text       string
}

// DetectHighlights scores candidate windows over the transcript and returns
// the top non-overlapping highlights, ranked by score descending with the
// earlier window winning ties. The function is pure: identical inputs always
// produce identical ordered output.
func DetectHighlights(t *models.Transcript, videoDuration float64, opts Options) []models.Highlight {
	opts = opts.withDefaults()

	if t == nil || len(t.Segments) == 0 {
		return []models.Highlight{}
	}

	span := t.Segments[len(t.Segments)-1].End - t.Segments[0].Start
	if span < opts.MinClipSec {
		return []models.Highlight{}
	}

	var cands []candidate
	if hasLexicalSignal(t.Text) {
		cands = buildWindows(t.Segments, opts)
	}
	if len(cands) == 0 {
		// Silence or no scoring signal: fall back to evenly spaced
		// length/position candidates so detectable content always yields
		// something to export.
		cands = fallbackWindows(t.Segments[0].Start, t.Segments[len(t.Segments)-1].End, opts)
	}

	// Clamp to the video bounds before selection.
	filtered := cands[:0]
	for _, c := range cands {
		if c.start < 0 {
			c.start = 0
		}
		if videoDuration > 0 && c.end > videoDuration {
			c.end = videoDuration
		}
		if d := c.end - c.start; d >= opts.MinClipSec && d <= opts.MaxClipSec {
			filtered = append(filtered, c)
		}
	}
	cands = filtered

	sortCandidates(cands)

	selected := selectNonOverlapping(cands, opts)

	out := make([]models.Highlight, 0, len(selected))
	for _, c := range selected {
		out = append(out, models.Highlight{
			ID:          uuid.New(),
			StartTime:   c.start,
			EndTime:     c.end,
			Score:       round3(c.score),
			Keywords:    extractKeywords(c.text, 5),
			Title:       generateTitle(c.text),
			Description: fmt.Sprintf("Duration: %.1fs", c.end-c.start),
		})
	}
	return out
}

// buildWindows emits every run of adjacent segments whose duration lands in
// [MinClipSec, MaxClipSec], scored by lexical, structural and length signal.
func buildWindows(segments []models.Segment, opts Options) []candidate {
	type scored struct {
		seg       models.Segment
		keyword   float64
		sentiment float64
		length    float64
	}
	perSeg := make([]scored, len(segments))
	for i, seg := range segments {
		perSeg[i] = scored{
			seg:       seg,
			keyword:   keywordScore(seg.Text),
			sentiment: sentimentScore(seg.Text),
			length:    lengthScore(seg.Text),
		}
	}

	var cands []candidate
	for i := range perSeg {
		var texts []string
		for j := i; j < len(perSeg); j++ {
			texts = append(texts, perSeg[j].seg.Text)
			dur := perSeg[j].seg.End - perSeg[i].seg.Start
			if dur > opts.MaxClipSec {
				break
			}
			if dur < opts.MinClipSec {
				continue
			}

			var kw, sent, length float64
			high := 0
			for k := i; k <= j; k++ {
				kw += perSeg[k].keyword
				sent += perSeg[k].sentiment
				length += perSeg[k].length
				if perSeg[k].sentiment > 0.8 {
					high++
				}
			}
			n := float64(j - i + 1)
			base := 0.4*(kw/n) + 0.3*(sent/n) + 0.3*(length/n)

			// Structural bonus for contained scene changes, emotional bonus
			// for high-sentiment segments.
			bonus := 0.1*float64(sceneChangesWithin(opts.SceneChanges, perSeg[i].seg.Start, perSeg[j].seg.End)) +
				0.1*float64(high)

			// Length normalization so longer windows are not trivially
			// favored.
			mult := 1.0
			if dur < 15 {
				mult = 0.7
			} else if dur > 45 {
				mult = 0.8
			}

			cands = append(cands, candidate{
				start: perSeg[i].seg.Start,
				end:   perSeg[j].seg.End,
				score: clampScore((base + bonus) * mult),
				text:  strings.Join(texts, " "),
			})
		}
	}
	return cands
}

// fallbackWindows covers [start, end] with adjacent fixed-length windows.
// Earlier windows score marginally higher so selection order is positional.
func fallbackWindows(start, end float64, opts Options) []candidate {
	length := math.Min(opts.MaxClipSec, math.Max(opts.MinClipSec, 30))
	var cands []candidate
	for i := 0; ; i++ {
		ws := start + float64(i)*length
		we := ws + length
		if we > end {
			we = end
		}
		if we-ws < opts.MinClipSec {
			break
		}
		score := 0.3 - 0.01*float64(i)
		if score < 0.05 {
			score = 0.05
		}
		cands = append(cands, candidate{
			start: ws,
			end:   we,
			score: score,
			text:  "",
		})
		if we == end {
			break
		}
	}
	return cands
}

// selectNonOverlapping is the non-maximum-suppression step: greedy
// highest-score-first, rejecting candidates overlapping a selected window by
// more than the permitted fraction of the shorter interval.
// sortCandidates orders by score descending, then earlier start, then
// earlier end.
func sortCandidates(cands []candidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].score != cands[j].score {
			return cands[i].score > cands[j].score
		}
		if cands[i].start != cands[j].start {
			return cands[i].start < cands[j].start
		}
		return cands[i].end < cands[j].end
	})
}

func selectNonOverlapping(cands []candidate, opts Options) []candidate {
	var selected []candidate
	for _, c := range cands {
		if len(selected) == opts.MaxHighlights {
			break
		}
		ok := true
		for _, s := range selected {
			if overlapFraction(c, s) > opts.OverlapFraction {
				ok = false
				break
			}
		}
		if ok {
			selected = append(selected, c)
		}
	}
	return selected
}

// overlapFraction is intersection length over the shorter interval.
func overlapFraction(a, b candidate) float64 {
	inter := math.Min(a.end, b.end) - math.Max(a.start, b.start)
	if inter <= 0 {
		return 0
	}
	shorter := math.Min(a.end-a.start, b.end-b.start)
	if shorter <= 0 {
		return 1
	}
	return inter / shorter
}

func sceneChangesWithin(changes []float64, start, end float64) int {
	n := 0
	for _, sc := range changes {
		if sc >= start && sc <= end {
			n++
		}
	}
	return n
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// round3 keeps scores stable across float formatting boundaries.
func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
