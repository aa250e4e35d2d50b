package models

import "fmt"

// Word is a word-level timestamp inside a segment. Word timing is
// best-effort; a segment with no words is still valid.
type Word struct {
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// Segment is one time-aligned span of transcript text.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
	Words []Word  `json:"words,omitempty"`
}

func (s Segment) Duration() float64 {
	return s.End - s.Start
}

// Validate checks segment ordering and word containment: segments must be
// non-overlapping with strictly increasing start times, every segment must
// have end strictly after start, and word timestamps must fall within their
// parent segment. Zero-duration segments carry no usable timing and are
// rejected; producers drop them before assembly.
func (t *Transcript) Validate() error {
	var prevEnd float64
	for i, seg := range t.Segments {
		if seg.End <= seg.Start {
			return fmt.Errorf("segment %d: end %.3f not after start %.3f", i, seg.End, seg.Start)
		}
		if i > 0 && seg.Start < prevEnd {
			return fmt.Errorf("segment %d: start %.3f overlaps previous end %.3f", i, seg.Start, prevEnd)
		}
		for j, w := range seg.Words {
			if w.Start < seg.Start || w.End > seg.End {
				return fmt.Errorf("segment %d word %d: [%.3f,%.3f] outside segment [%.3f,%.3f]",
					i, j, w.Start, w.End, seg.Start, seg.End)
			}
			if w.Confidence < 0 || w.Confidence > 1 {
				return fmt.Errorf("segment %d word %d: confidence %.3f out of range", i, j, w.Confidence)
			}
		}
		prevEnd = seg.End
	}
	return nil
}

// SliceSegments returns the segments overlapping [start,end] re-based to
// clip-local time and clamped to the clip bounds.
func SliceSegments(segments []Segment, start, end float64) []Segment {
	out := make([]Segment, 0, len(segments))
	clipDur := end - start
	for _, seg := range segments {
		localStart := seg.Start - start
		localEnd := seg.End - start
		if localEnd <= 0 || localStart >= clipDur {
			continue
		}
		if localStart < 0 {
			localStart = 0
		}
		if localEnd > clipDur {
			localEnd = clipDur
		}
		var words []Word
		for _, w := range seg.Words {
			ws, we := w.Start-start, w.End-start
			if we <= 0 || ws >= clipDur {
				continue
			}
			if ws < localStart {
				ws = localStart
			}
			if we > localEnd {
				we = localEnd
			}
			words = append(words, Word{Start: ws, End: we, Text: w.Text, Confidence: w.Confidence})
		}
		out = append(out, Segment{Start: localStart, End: localEnd, Text: seg.Text, Words: words})
	}
	return out
}
