package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

const TypeExecutionExpired = "task_execution.expired"

// ExecutionEvent is emitted after an execution's state change is committed.
type ExecutionEvent struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	ExecutionID int64     `json:"execution_id"`
	TaskID      int64     `json:"task_id"`
	UserID      int64     `json:"user_id"`
	OccurredAt  time.Time `json:"occurred_at"`
}

func NewExecutionEvent(typ string, executionID, taskID, userID int64, at time.Time) ExecutionEvent {
	return ExecutionEvent{
		ID:          uuid.NewString(),
		Type:        typ,
		ExecutionID: executionID,
		TaskID:      taskID,
		UserID:      userID,
		OccurredAt:  at,
	}
}

type Publisher interface {
	Publish(ctx context.Context, ev ExecutionEvent) error
	Close() error
}

// Noop drops every event. Used when RabbitMQ is not configured.
type Noop struct{}

func (Noop) Publish(context.Context, ExecutionEvent) error { return nil }
func (Noop) Close() error                                  { return nil }

// Fanout hands every event to each publisher in turn. One failing
// publisher does not stop the others; their errors are joined.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, ev ExecutionEvent) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f Fanout) Close() error {
	var errs []error
	for _, p := range f {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RabbitPublisher writes persistent JSON messages to one durable queue
// through the default exchange.
type RabbitPublisher struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string

	mu sync.Mutex // amqp channels are not safe for concurrent publishes
}

func NewRabbitPublisher(url, queue string) (*RabbitPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(
		queue, // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue %s: %w", queue, err)
	}
	log.Printf("[events] connected to RabbitMQ queue=%s", queue)
	return &RabbitPublisher{conn: conn, ch: ch, queue: queue}, nil
}

func (p *RabbitPublisher) Publish(ctx context.Context, ev ExecutionEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.ch.PublishWithContext(ctx,
		"",      // exchange
		p.queue, // routing key
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			MessageId:    ev.ID,
			Type:         ev.Type,
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         body,
			Timestamp:    ev.OccurredAt,
		},
	)
	if err != nil {
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	return nil
}

func (p *RabbitPublisher) Close() error {
	if p.ch != nil {
		if err := p.ch.Close(); err != nil {
			log.Printf("[events] close channel: %v", err)
		}
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
