package quota

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Xmanuel01/Viralclips/models"
)

// Service is the quota dependency injected into the orchestrator. ReserveClip
// is a single atomic increment-or-reject: there is no read-then-write window
// for concurrent exports to race through.
type Service interface {
	// ReserveClip consumes one clip from the user's daily budget, returning
	// the count used so far, or a QuotaExceeded error when the budget is gone.
	ReserveClip(ctx context.Context, userID string, limit int) (int, error)
	// Used reports how many clips the user has consumed today.
	Used(ctx context.Context, userID string) (int, error)
}

// reserveScript performs the check-and-increment as one Redis operation.
// Returns -1 when the limit is already reached.
const reserveScript = `
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
local limit = tonumber(ARGV[1])
if current >= limit then
	return -1
end
current = redis.call('INCR', KEYS[1])
redis.call('EXPIREAT', KEYS[1], ARGV[2])
return current
`

// RedisService counts daily clip usage in Redis. Counters roll over at
// midnight UTC via key expiry.
type RedisService struct {
	rdb    *redis.Client
	script *redis.Script
	now    func() time.Time
}

func NewRedisService(rdb *redis.Client) *RedisService {
	return &RedisService{
		rdb:    rdb,
		script: redis.NewScript(reserveScript),
		now:    time.Now,
	}
}

func (s *RedisService) ReserveClip(ctx context.Context, userID string, limit int) (int, error) {
	now := s.now().UTC()
	key := dailyKey(userID, now)
	expireAt := now.Truncate(24 * time.Hour).Add(24 * time.Hour).Unix()

	n, err := s.script.Run(ctx, s.rdb, []string{key}, limit, expireAt).Int()
	if err != nil {
		return 0, fmt.Errorf("quota reserve: %w", err)
	}
	if n < 0 {
		return limit, models.NewError(models.ErrQuotaExceeded, nil,
			"daily clip limit of %d reached", limit)
	}
	return n, nil
}

func (s *RedisService) Used(ctx context.Context, userID string) (int, error) {
	n, err := s.rdb.Get(ctx, dailyKey(userID, s.now().UTC())).Int()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("quota read: %w", err)
	}
	return n, nil
}

func dailyKey(userID string, now time.Time) string {
	return fmt.Sprintf("quota:clips:%s:%s", userID, now.Format("2006-01-02"))
}

// MemoryService is an in-process counterpart used in tests and single-node
// development. It gives the same atomic reserve semantics under a mutex.
type MemoryService struct {
	mu   sync.Mutex
	used map[string]int
	day  string
	now  func() time.Time
}

func NewMemoryService() *MemoryService {
	return &MemoryService{used: make(map[string]int), now: time.Now}
}

func (s *MemoryService) ReserveClip(ctx context.Context, userID string, limit int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rollover()

	if s.used[userID] >= limit {
		return limit, models.NewError(models.ErrQuotaExceeded, nil,
			"daily clip limit of %d reached", limit)
	}
	s.used[userID]++
	return s.used[userID], nil
}

func (s *MemoryService) Used(ctx context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rollover()
	return s.used[userID], nil
}

func (s *MemoryService) rollover() {
	day := s.now().UTC().Format("2006-01-02")
	if day != s.day {
		s.day = day
		s.used = make(map[string]int)
	}
}
