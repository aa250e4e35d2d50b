package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Xmanuel01/Viralclips/models"
)

const (
	ConsumerGroup    = "clip-workers"
	DeadLetterStream = "jobs:dead"

	streamHigh    = "jobs:high"
	streamDefault = "jobs:default"
	streamLow     = "jobs:low"
)

// Bands ordered highest priority first. Consumers read them in this order so
// paid-tier tasks are picked up sooner.
var bands = []string{streamHigh, streamDefault, streamLow}

// BandForPriority maps a job priority to its stream band.
func BandForPriority(priority int) string {
	switch {
	case priority >= 10:
		return streamHigh
	case priority > 0:
		return streamDefault
	default:
		return streamLow
	}
}

// Outcome tells the consumer what to do with a delivered task.
type Outcome struct {
	// Requeue re-enqueues the task after Backoff (retry path).
	Requeue  bool
	Backoff  time.Duration
	Priority int
}

// Handler processes one stage task to a terminal or retryable outcome.
type Handler func(ctx context.Context, task models.StageTask) Outcome

// Options tunes consumer behavior.
type Options struct {
	Consumer       string
	Concurrency    int
	HeavySlots     int // max transcribe/render tasks in flight per worker
	LeaseTTL       time.Duration
	MaxDeliveries  int64
	ReservedLowPct int // share of slots that only read the lowest band
}

// Queue distributes stage tasks over Redis Streams with consumer groups.
// A pending entry is the worker's lease; entries idle past the lease TTL are
// reclaimed, and entries delivered too many times land in the dead-letter
// stream instead of being silently dropped.
type Queue struct {
	rdb  *redis.Client
	opts Options

	heavySem chan struct{}
}

func New(rdb *redis.Client, opts Options) (*Queue, error) {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.HeavySlots <= 0 {
		opts.HeavySlots = 2
	}
	if opts.LeaseTTL <= 0 {
		opts.LeaseTTL = 5 * time.Minute
	}
	if opts.MaxDeliveries <= 0 {
		opts.MaxDeliveries = 4
	}

	ctx := context.Background()
	for _, stream := range bands {
		err := rdb.XGroupCreateMkStream(ctx, stream, ConsumerGroup, "0").Err()
		if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
			return nil, fmt.Errorf("failed to create consumer group on %s: %w", stream, err)
		}
	}

	return &Queue{
		rdb:      rdb,
		opts:     opts,
		heavySem: make(chan struct{}, opts.HeavySlots),
	}, nil
}

// Enqueue publishes a stage task onto the band for its priority.
func (q *Queue) Enqueue(ctx context.Context, task models.StageTask, priority int) error {
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	stream := BandForPriority(priority)
	err = q.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: map[string]any{
			"job_id":      task.JobID.String(),
			"type":        string(task.Type),
			"data":        string(data),
			"enqueued_at": time.Now().Unix(),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to add task to %s: %w", stream, err)
	}

	log.Printf(" [x] Enqueued job %s (%s) on %s", task.JobID, task.Type, stream)
	return nil
}

// Run consumes tasks until ctx is cancelled. A slice of consumer slots reads
// only the lowest band so free-tier work is never starved by paid traffic.
func (q *Queue) Run(ctx context.Context, handler Handler) error {
	var wg sync.WaitGroup

	reserved := q.opts.Concurrency * q.opts.ReservedLowPct / 100
	if reserved == 0 && q.opts.ReservedLowPct > 0 {
		reserved = 1
	}

	for i := 0; i < q.opts.Concurrency; i++ {
		streams := bands
		if i < reserved {
			streams = []string{streamLow}
		}
		wg.Add(1)
		go func(slot int, streams []string) {
			defer wg.Done()
			q.consumeLoop(ctx, slot, streams, handler)
		}(i, streams)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		q.reclaimLoop(ctx, handler)
	}()

	wg.Wait()
	return ctx.Err()
}

func (q *Queue) consumeLoop(ctx context.Context, slot int, streams []string, handler Handler) {
	ids := make([]string, len(streams))
	for i := range ids {
		ids[i] = ">"
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		result, err := q.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    ConsumerGroup,
			Consumer: q.opts.Consumer,
			Streams:  append(append([]string{}, streams...), ids...),
			Count:    1,
			Block:    5 * time.Second,
		}).Result()
		if err != nil {
			if err == redis.Nil || ctx.Err() != nil {
				continue
			}
			log.Printf(" [!] Slot %d: stream read error: %v", slot, err)
			time.Sleep(2 * time.Second)
			continue
		}

		for _, stream := range result {
			for _, msg := range stream.Messages {
				q.process(ctx, stream.Stream, msg, handler)
			}
		}
	}
}

func (q *Queue) process(ctx context.Context, stream string, msg redis.XMessage, handler Handler) {
	task, err := parseTask(msg.Values)
	if err != nil {
		// Malformed entries are dead-lettered immediately; redelivery
		// cannot fix them.
		log.Printf(" [!] Dropping malformed task %s: %v", msg.ID, err)
		q.deadLetter(ctx, stream, msg, "malformed payload")
		return
	}

	heavy := task.Type == models.JobTranscribe || task.Type == models.JobExport
	if heavy {
		select {
		case q.heavySem <- struct{}{}:
			defer func() { <-q.heavySem }()
		case <-ctx.Done():
			return
		}
	}

	// Renew the lease while the task runs so a slow stage is not reclaimed
	// out from under a live worker.
	renewCtx, stopRenew := context.WithCancel(context.Background())
	go q.renewLease(renewCtx, stream, msg.ID)

	log.Printf(" [>] Processing job %s (%s) from %s", task.JobID, task.Type, stream)
	outcome := handler(ctx, task)

	if !outcome.Requeue {
		stopRenew()
		if err := q.rdb.XAck(ctx, stream, ConsumerGroup, msg.ID).Err(); err != nil {
			log.Printf(" [!] Ack failed for %s: %v", msg.ID, err)
		}
		return
	}

	// The original entry stays pending, lease renewed, until the retry
	// lands in a stream. A crash during the backoff window then leaves a
	// reclaimable entry instead of losing the task.
	go func() {
		defer stopRenew()
		timer := time.NewTimer(outcome.Backoff)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			// Shutdown mid-backoff: re-enqueue immediately so the
			// retry is not delayed until reclaim.
		}
		bg := context.Background()
		err := redeliver(
			func() error { return q.Enqueue(bg, task, outcome.Priority) },
			func() error { return q.rdb.XAck(bg, stream, ConsumerGroup, msg.ID).Err() },
		)
		if err != nil {
			// Entry stays unacked; the reclaim loop redelivers it.
			log.Printf(" [!] Retry redelivery failed for job %s: %v", task.JobID, err)
		}
	}()
}

// redeliver places the retry on a stream and only then acks the original
// entry. Acking first would lose the task if the process died in between.
func redeliver(enqueue, ack func() error) error {
	if err := enqueue(); err != nil {
		return err
	}
	return ack()
}

// renewLease resets the pending entry's idle timer at half the TTL.
func (q *Queue) renewLease(ctx context.Context, stream, msgID string) {
	interval := q.opts.LeaseTTL / 2
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := q.rdb.XClaimJustID(ctx, &redis.XClaimArgs{
				Stream:   stream,
				Group:    ConsumerGroup,
				Consumer: q.opts.Consumer,
				MinIdle:  0,
				Messages: []string{msgID},
			}).Err()
			if err != nil && err != redis.Nil {
				log.Printf(" [!] Lease renewal failed for %s: %v", msgID, err)
			}
		}
	}
}

// reclaimLoop takes over entries whose lease expired (crashed or stuck
// worker) and either redelivers them or dead-letters repeat offenders.
func (q *Queue) reclaimLoop(ctx context.Context, handler Handler) {
	ticker := time.NewTicker(q.opts.LeaseTTL)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		for _, stream := range bands {
			pending, err := q.rdb.XPendingExt(ctx, &redis.XPendingExtArgs{
				Stream: stream,
				Group:  ConsumerGroup,
				Idle:   q.opts.LeaseTTL,
				Start:  "-",
				End:    "+",
				Count:  50,
			}).Result()
			if err != nil {
				if ctx.Err() == nil {
					log.Printf(" [!] Pending scan failed on %s: %v", stream, err)
				}
				continue
			}

			for _, p := range pending {
				if !LeaseExpired(p.Idle, q.opts.LeaseTTL) {
					continue
				}
				msgs, err := q.rdb.XClaim(ctx, &redis.XClaimArgs{
					Stream:   stream,
					Group:    ConsumerGroup,
					Consumer: q.opts.Consumer,
					MinIdle:  q.opts.LeaseTTL,
					Messages: []string{p.ID},
				}).Result()
				if err != nil || len(msgs) == 0 {
					continue
				}
				msg := msgs[0]

				if ShouldDeadLetter(p.RetryCount, q.opts.MaxDeliveries) {
					log.Printf(" [!] Dead-lettering %s after %d deliveries", p.ID, p.RetryCount)
					q.deadLetter(ctx, stream, msg, "delivery budget exhausted")
					continue
				}

				log.Printf(" [x] Reclaimed abandoned task %s from %s", p.ID, stream)
				q.process(ctx, stream, msg, handler)
			}
		}
	}
}

func (q *Queue) deadLetter(ctx context.Context, stream string, msg redis.XMessage, reason string) {
	values := map[string]any{
		"origin_stream": stream,
		"origin_id":     msg.ID,
		"reason":        reason,
		"dead_at":       time.Now().Unix(),
	}
	for k, v := range msg.Values {
		values[k] = v
	}
	if err := q.rdb.XAdd(ctx, &redis.XAddArgs{Stream: DeadLetterStream, Values: values}).Err(); err != nil {
		log.Printf(" [!] Dead-letter write failed for %s: %v", msg.ID, err)
	}
	q.rdb.XAck(ctx, stream, ConsumerGroup, msg.ID)
}

// InFlight reports pending (leased but unacked) entries per band for
// inspection of stuck work.
func (q *Queue) InFlight(ctx context.Context) (map[string]int64, error) {
	counts := make(map[string]int64, len(bands))
	for _, stream := range bands {
		p, err := q.rdb.XPending(ctx, stream, ConsumerGroup).Result()
		if err != nil {
			return nil, fmt.Errorf("pending count on %s: %w", stream, err)
		}
		counts[stream] = p.Count
	}
	return counts, nil
}

// LeaseExpired reports whether a pending entry's idle time makes it
// eligible for redelivery.
func LeaseExpired(idle, leaseTTL time.Duration) bool {
	return idle >= leaseTTL
}

// ShouldDeadLetter reports whether an entry has exhausted its delivery
// budget.
func ShouldDeadLetter(deliveries, maxDeliveries int64) bool {
	return deliveries >= maxDeliveries
}

func parseTask(values map[string]any) (models.StageTask, error) {
	dataStr, ok := values["data"].(string)
	if !ok {
		return models.StageTask{}, fmt.Errorf("missing or invalid data field")
	}
	var task models.StageTask
	if err := json.Unmarshal([]byte(dataStr), &task); err != nil {
		return models.StageTask{}, fmt.Errorf("failed to unmarshal task: %w", err)
	}
	return task, nil
}
