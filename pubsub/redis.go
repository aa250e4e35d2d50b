package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Xmanuel01/Viralclips/models"
)

const (
	progressKeyPrefix = "progress:"
	progressChannel   = "job:progress:"
	progressAllChan   = "job:progress:all"

	progressTTL = 24 * time.Hour
)

// InitRedis connects the shared client used by the queue, the progress
// surface and the quota counters.
func InitRedis(addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Println("Redis connection established")
	return client, nil
}

// Progress publishes and caches the latest per-job progress so pollers and
// subscribers both see the freshest persisted state.
type Progress struct {
	rdb *redis.Client
}

func NewProgress(rdb *redis.Client) *Progress {
	return &Progress{rdb: rdb}
}

func (p *Progress) Publish(ctx context.Context, progress models.ProcessingProgress) error {
	data, err := json.Marshal(progress)
	if err != nil {
		return err
	}

	channel := fmt.Sprintf("%s%s", progressChannel, progress.JobID)
	if err := p.rdb.Publish(ctx, channel, data).Err(); err != nil {
		return err
	}
	if err := p.rdb.Publish(ctx, progressAllChan, data).Err(); err != nil {
		return err
	}

	key := fmt.Sprintf("%s%s", progressKeyPrefix, progress.JobID)
	return p.rdb.Set(ctx, key, data, progressTTL).Err()
}

// Latest returns the cached progress snapshot for a job, or nil when none
// has been published yet.
func (p *Progress) Latest(ctx context.Context, jobID uuid.UUID) (*models.ProcessingProgress, error) {
	key := fmt.Sprintf("%s%s", progressKeyPrefix, jobID)
	data, err := p.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var progress models.ProcessingProgress
	if err := json.Unmarshal(data, &progress); err != nil {
		return nil, err
	}
	return &progress, nil
}

// Subscribe streams progress updates for one job until ctx is cancelled.
func (p *Progress) Subscribe(ctx context.Context, jobID uuid.UUID) (<-chan *models.ProcessingProgress, error) {
	channel := fmt.Sprintf("%s%s", progressChannel, jobID)
	return p.subscribe(ctx, channel)
}

// SubscribeAll streams every job's progress updates.
func (p *Progress) SubscribeAll(ctx context.Context) (<-chan *models.ProcessingProgress, error) {
	return p.subscribe(ctx, progressAllChan)
}

func (p *Progress) subscribe(ctx context.Context, channel string) (<-chan *models.ProcessingProgress, error) {
	sub := p.rdb.Subscribe(ctx, channel)
	out := make(chan *models.ProcessingProgress)

	go func() {
		defer close(out)
		defer sub.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-sub.Channel():
				if !ok {
					return
				}
				var progress models.ProcessingProgress
				if err := json.Unmarshal([]byte(msg.Payload), &progress); err != nil {
					log.Printf("Error unmarshaling progress: %v", err)
					continue
				}
				out <- &progress
			}
		}
	}()

	return out, nil
}
