package quota

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Xmanuel01/Viralclips/models"
)

func TestMemoryReserveClip(t *testing.T) {
	svc := NewMemoryService()
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		used, err := svc.ReserveClip(ctx, "user-a", 3)
		if err != nil {
			t.Fatalf("reserve %d: %v", i, err)
		}
		if used != i {
			t.Fatalf("reserve %d returned used=%d", i, used)
		}
	}

	_, err := svc.ReserveClip(ctx, "user-a", 3)
	if models.KindOf(err) != models.ErrQuotaExceeded {
		t.Fatalf("4th reserve error = %v, want QuotaExceeded", err)
	}

	// Other users are unaffected.
	if _, err := svc.ReserveClip(ctx, "user-b", 3); err != nil {
		t.Fatalf("user-b blocked by user-a's quota: %v", err)
	}
}

// With m slots remaining and n > m concurrent requests, exactly m succeed.
func TestMemoryReserveClipConcurrent(t *testing.T) {
	svc := NewMemoryService()
	ctx := context.Background()
	limit := 5
	requests := 50

	var wg sync.WaitGroup
	var mu sync.Mutex
	granted := 0

	for i := 0; i < requests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.ReserveClip(ctx, "user-c", limit); err == nil {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if granted != limit {
		t.Fatalf("granted %d reservations, want exactly %d", granted, limit)
	}
	if used, _ := svc.Used(ctx, "user-c"); used != limit {
		t.Fatalf("used = %d, want %d", used, limit)
	}
}

func TestMemoryQuotaRollsOverAtMidnight(t *testing.T) {
	svc := NewMemoryService()
	ctx := context.Background()

	day := time.Date(2026, 8, 30, 23, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return day }

	for i := 0; i < 3; i++ {
		if _, err := svc.ReserveClip(ctx, "user-d", 3); err != nil {
			t.Fatalf("reserve: %v", err)
		}
	}
	if _, err := svc.ReserveClip(ctx, "user-d", 3); err == nil {
		t.Fatal("expected quota exhaustion before midnight")
	}

	svc.now = func() time.Time { return day.Add(2 * time.Hour) }
	if _, err := svc.ReserveClip(ctx, "user-d", 3); err != nil {
		t.Fatalf("quota did not reset after midnight: %v", err)
	}
	if used, _ := svc.Used(ctx, "user-d"); used != 1 {
		t.Fatalf("used after rollover = %d, want 1", used)
	}
}

func TestDailyKeyFormat(t *testing.T) {
	at := time.Date(2026, 8, 31, 10, 30, 0, 0, time.UTC)
	if got := dailyKey("user-e", at); got != "quota:clips:user-e:2026-08-31" {
		t.Fatalf("dailyKey = %q", got)
	}
}
