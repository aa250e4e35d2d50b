package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Xmanuel01/Viralclips/models"
)

// StageEvent is published on every terminal stage outcome. Billing and
// analytics consumers subscribe to decrement quotas and record usage; the
// processing core never calls into billing directly.
type StageEvent struct {
	JobID     uuid.UUID        `json:"job_id"`
	Stage     models.JobType   `json:"stage"`
	EntityID  uuid.UUID        `json:"entity_id"`
	UserID    string           `json:"user_id"`
	Status    models.JobStatus `json:"status"`
	EmittedAt time.Time        `json:"emitted_at"`
}

// Emitter publishes stage events to a durable AMQP queue. A nil Emitter is
// valid and drops events, for deployments without a broker.
type Emitter struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
}

// NewEmitter dials the broker with retries; brokers routinely take a few
// seconds to come up alongside the workers.
func NewEmitter(amqpURL, queueName string) (*Emitter, error) {
	var conn *amqp.Connection
	var err error
	for i := 0; i < 10; i++ {
		conn, err = amqp.Dial(amqpURL)
		if err == nil {
			break
		}
		log.Printf("Waiting for message broker... (%s)", err)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to broker after retries: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	return &Emitter{conn: conn, ch: ch, queue: queueName}, nil
}

// Emit publishes one stage event. Event loss is logged, never fatal: the job
// record stays authoritative.
func (e *Emitter) Emit(ctx context.Context, event StageEvent) {
	if e == nil {
		return
	}
	event.EmittedAt = time.Now().UTC()

	body, err := json.Marshal(event)
	if err != nil {
		log.Printf(" [!] Failed to marshal stage event for job %s: %v", event.JobID, err)
		return
	}

	err = e.ch.PublishWithContext(ctx, "", e.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
	if err != nil {
		log.Printf(" [!] Failed to publish stage event for job %s: %v", event.JobID, err)
		return
	}
	log.Printf(" [x] Stage event: job=%s stage=%s status=%s", event.JobID, event.Stage, event.Status)
}

func (e *Emitter) Close() {
	if e == nil {
		return
	}
	e.ch.Close()
	e.conn.Close()
}
