package queue

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Xmanuel01/Viralclips/models"
)

func TestBandForPriority(t *testing.T) {
	cases := []struct {
		priority int
		want     string
	}{
		{15, streamHigh},
		{10, streamHigh},
		{5, streamDefault},
		{1, streamDefault},
		{0, streamLow},
		{-1, streamLow},
	}
	for _, tc := range cases {
		if got := BandForPriority(tc.priority); got != tc.want {
			t.Errorf("BandForPriority(%d) = %s, want %s", tc.priority, got, tc.want)
		}
	}
}

func TestLeaseExpired(t *testing.T) {
	ttl := 5 * time.Minute
	if LeaseExpired(ttl-time.Second, ttl) {
		t.Error("lease still live, must not expire")
	}
	if !LeaseExpired(ttl, ttl) {
		t.Error("idle equal to TTL must expire")
	}
	if !LeaseExpired(ttl+time.Minute, ttl) {
		t.Error("idle past TTL must expire")
	}
}

func TestShouldDeadLetter(t *testing.T) {
	if ShouldDeadLetter(2, 3) {
		t.Error("deliveries under budget should not dead-letter")
	}
	if !ShouldDeadLetter(3, 3) {
		t.Error("exhausted delivery budget should dead-letter")
	}
}

func TestParseTaskRoundTrip(t *testing.T) {
	task := models.StageTask{
		JobID:   uuid.New(),
		Type:    models.JobTranscribe,
		VideoID: uuid.New(),
		UserID:  "user-1",
	}
	payload, err := json.Marshal(task)
	if err != nil {
		t.Fatal(err)
	}

	got, err := parseTask(map[string]any{"data": string(payload)})
	if err != nil {
		t.Fatalf("parseTask: %v", err)
	}
	if got != task {
		t.Fatalf("parsed task %+v, want %+v", got, task)
	}
}

func TestParseTaskRejectsGarbage(t *testing.T) {
	if _, err := parseTask(map[string]any{}); err == nil {
		t.Error("missing data field accepted")
	}
	if _, err := parseTask(map[string]any{"data": "{not json"}); err == nil {
		t.Error("malformed payload accepted")
	}
}

func TestRedeliverOrdering(t *testing.T) {
	var calls []string

	err := redeliver(
		func() error { calls = append(calls, "enqueue"); return nil },
		func() error { calls = append(calls, "ack"); return nil },
	)
	if err != nil {
		t.Fatalf("redeliver: %v", err)
	}
	if len(calls) != 2 || calls[0] != "enqueue" || calls[1] != "ack" {
		t.Fatalf("calls = %v, want enqueue before ack", calls)
	}
}

func TestRedeliverSkipsAckOnEnqueueFailure(t *testing.T) {
	acked := false

	err := redeliver(
		func() error { return errors.New("stream down") },
		func() error { acked = true; return nil },
	)
	if err == nil {
		t.Fatal("enqueue failure not propagated")
	}
	if acked {
		t.Fatal("entry acked although the retry never landed")
	}
}
