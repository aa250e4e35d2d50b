package models

import (
	"testing"
)

func TestTranscriptValidate(t *testing.T) {
	good := &Transcript{Segments: SegmentList{
		{Start: 0, End: 5, Text: "first", Words: []Word{
			{Start: 0.2, End: 1.0, Text: "first", Confidence: 0.9},
		}},
		{Start: 5, End: 9.5, Text: "second"},
	}}
	if err := good.Validate(); err != nil {
		t.Fatalf("valid transcript rejected: %v", err)
	}

	cases := []struct {
		name     string
		segments SegmentList
	}{
		{"end before start", SegmentList{{Start: 5, End: 3}}},
		{"zero-duration segment", SegmentList{{Start: 5, End: 5, Text: "empty"}}},
		{"overlapping segments", SegmentList{{Start: 0, End: 5}, {Start: 4, End: 8}}},
		{"word outside segment", SegmentList{{Start: 0, End: 5, Words: []Word{{Start: 4, End: 6}}}}},
		{"confidence out of range", SegmentList{{Start: 0, End: 5, Words: []Word{{Start: 1, End: 2, Confidence: 1.5}}}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tr := &Transcript{Segments: tc.segments}
			if err := tr.Validate(); err == nil {
				t.Fatal("invalid transcript accepted")
			}
		})
	}
}

func TestSliceSegmentsRebasesAndClamps(t *testing.T) {
	segments := []Segment{
		{Start: 0, End: 10, Text: "before"},
		{Start: 10, End: 20, Text: "straddles start", Words: []Word{
			{Start: 12, End: 14, Text: "straddles"},
		}},
		{Start: 20, End: 30, Text: "inside"},
		{Start: 30, End: 40, Text: "straddles end"},
		{Start: 40, End: 50, Text: "after"},
	}

	got := SliceSegments(segments, 15, 35)
	if len(got) != 3 {
		t.Fatalf("got %d segments, want 3", len(got))
	}

	if got[0].Start != 0 || got[0].End != 5 {
		t.Errorf("first slice = [%.1f, %.1f], want [0, 5]", got[0].Start, got[0].End)
	}
	if got[1].Start != 5 || got[1].End != 15 {
		t.Errorf("second slice = [%.1f, %.1f], want [5, 15]", got[1].Start, got[1].End)
	}
	if got[2].Start != 15 || got[2].End != 20 {
		t.Errorf("third slice = [%.1f, %.1f], want [15, 20]", got[2].Start, got[2].End)
	}

	// Word timestamps outside the clip get dropped with their containers;
	// the surviving ones are clamped into clip-local time.
	if len(got[0].Words) != 0 {
		t.Errorf("word at source [12,14] should not survive a clip starting at 15")
	}
}

func TestSliceSegmentsEmptyWindow(t *testing.T) {
	segments := []Segment{{Start: 0, End: 10, Text: "only"}}
	if got := SliceSegments(segments, 50, 80); len(got) != 0 {
		t.Fatalf("window past the end produced %d segments", len(got))
	}
}

func TestHighlightOverlaps(t *testing.T) {
	a := Highlight{StartTime: 10, EndTime: 40}
	b := Highlight{StartTime: 35, EndTime: 60}
	c := Highlight{StartTime: 40, EndTime: 60}

	if !a.Overlaps(b) || !b.Overlaps(a) {
		t.Error("intersecting highlights reported as disjoint")
	}
	if a.Overlaps(c) {
		t.Error("touching highlights reported as overlapping")
	}
	if a.Duration() != 30 {
		t.Errorf("duration = %.1f, want 30", a.Duration())
	}
}

func TestJobTerminal(t *testing.T) {
	cases := []struct {
		job  Job
		want bool
	}{
		{Job{Status: StatusCompleted}, true},
		{Job{Status: StatusCancelled}, true},
		{Job{Status: StatusFailed, RetryCount: 3, MaxRetries: 3}, true},
		{Job{Status: StatusFailed, RetryCount: 1, MaxRetries: 3}, false},
		{Job{Status: StatusRunning}, false},
		{Job{Status: StatusPending}, false},
	}
	for _, tc := range cases {
		if got := tc.job.Terminal(); got != tc.want {
			t.Errorf("Terminal(%s, retries %d/%d) = %v, want %v",
				tc.job.Status, tc.job.RetryCount, tc.job.MaxRetries, got, tc.want)
		}
	}
}
