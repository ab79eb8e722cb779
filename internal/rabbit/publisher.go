// publisher.go
package rabbit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rabbitmq/amqp091-go"
)

const opsJobsQueue = "letter_ops_jobs"

// Publisher enqueues background jobs. Delivery is at-least-once; consumers
// dedup by job id.
type Publisher struct {
	ch *amqp091.Channel
}

func NewPublisher(ch *amqp091.Channel) (*Publisher, error) {
	if _, err := declareOpsQueue(ch); err != nil {
		return nil, fmt.Errorf("declare ops queue: %w", err)
	}
	return &Publisher{ch: ch}, nil
}

func declareOpsQueue(ch *amqp091.Channel) (amqp091.Queue, error) {
	return ch.QueueDeclare(
		opsJobsQueue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	)
}

// Enqueue publishes one job payload to the ops queue.
func (p *Publisher) Enqueue(ctx context.Context, jobType string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return p.ch.PublishWithContext(ctx,
		"",           // default exchange
		opsJobsQueue, // routing key = queue
		false,
		false,
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Type:         jobType,
			Body:         body,
		},
	)
}
