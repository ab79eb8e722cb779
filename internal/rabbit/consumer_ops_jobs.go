package rabbit

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"letter-order-service/internal/model"
	"letter-order-service/internal/service"

	"github.com/rabbitmq/amqp091-go"
)

// OpsJobsConsumer drives the background job service from the queue. The
// broker redelivers whatever we nack-requeue, so every handler must stay
// idempotent.
type OpsJobsConsumer struct {
	Ops *service.OpsService
}

func NewOpsJobsConsumer(ops *service.OpsService) *OpsJobsConsumer {
	return &OpsJobsConsumer{Ops: ops}
}

// jobEnvelope is the superset of all job payloads; job_type selects the
// handler. DryRun is a pointer so an absent field defaults to true, the
// same way the HTTP trigger treats it; a destructive sweep must be asked
// for explicitly.
type jobEnvelope struct {
	JobType    string `json:"job_type"`
	JobID      string `json:"job_id"`
	OrderID    string `json:"order_id"`
	Attempt    int    `json:"attempt"`
	CutoffDays int    `json:"cutoff_days"`
	DryRun     *bool  `json:"dry_run"`
}

// Handle processes one delivery. The returned bool says whether the message
// should be requeued for another attempt.
func (c *OpsJobsConsumer) Handle(ctx context.Context, body []byte) (requeue bool, err error) {
	var job jobEnvelope
	if err := json.Unmarshal(body, &job); err != nil {
		log.Println("[rabbit] dropping unparseable job message:", err)
		return false, err
	}
	if job.JobID == "" {
		log.Println("[rabbit] dropping job message without job_id")
		return false, errors.New("missing job_id")
	}

	switch job.JobType {
	case model.JobTypePDFGenerate:
		res, err := c.Ops.GeneratePDF(ctx, job.JobID, job.OrderID, job.Attempt)
		if err != nil {
			// Locked means another worker is on it; failed render means the
			// order now carries FAILED state. Both are worth another pass.
			retry := errors.Is(err, service.ErrPDFLocked) || !errors.Is(err, service.ErrNotFound)
			log.Printf("[rabbit] pdf job %s failed (requeue=%v): %v", job.JobID, retry, err)
			return retry, err
		}
		log.Printf("[rabbit] pdf job %s: %s", job.JobID, res.Message)
		return false, nil

	case model.JobTypePIICleanup:
		dryRun := true
		if job.DryRun != nil {
			dryRun = *job.DryRun
		}
		if job.CutoffDays <= 0 {
			job.CutoffDays = 30
		}
		res, err := c.Ops.CleanupPII(ctx, job.JobID, job.CutoffDays, dryRun)
		if err != nil {
			log.Printf("[rabbit] pii cleanup job %s failed: %v", job.JobID, err)
			return true, err
		}
		log.Printf("[rabbit] pii cleanup job %s: %s", job.JobID, res.Message)
		return false, nil

	default:
		log.Printf("[rabbit] dropping job %s with unknown type %q", job.JobID, job.JobType)
		return false, nil
	}
}

// SetupConsumers declares the ops queue and starts consuming it.
func SetupConsumers(ch *amqp091.Channel, ops *service.OpsService) {
	consumer := NewOpsJobsConsumer(ops)

	q, err := declareOpsQueue(ch)
	if err != nil {
		log.Println("[rabbit] error declaring ops queue:", err)
		return
	}

	msgs, err := ch.Consume(
		q.Name,
		"",    // consumer tag
		false, // manual ack: failed jobs get redelivered
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		log.Println("[rabbit] error consuming ops queue:", err)
		return
	}

	go func() {
		for m := range msgs {
			requeue, err := consumer.Handle(context.Background(), m.Body)
			if err != nil {
				// First redelivery only; after that the broker marks the
				// delivery and we drop to avoid a hot loop.
				if m.Redelivered {
					requeue = false
				}
				_ = m.Nack(false, requeue)
				continue
			}
			_ = m.Ack(false)
		}
	}()

	log.Printf("[rabbit] consuming %s", q.Name)
}
