package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"letter-order-service/internal/dto"
	"letter-order-service/internal/model"
	"letter-order-service/internal/repository"
	"letter-order-service/internal/status"

	"github.com/google/uuid"
)

// PDFRenderer produces the letter PDF and returns its storage path. The
// call may be slow; OpsService never holds a transaction around it.
type PDFRenderer interface {
	Render(ctx context.Context, order *model.Order) (string, error)
}

// OpsService runs the queue/scheduler-triggered background jobs.
type OpsService struct {
	store         repository.Store
	renderer      PDFRenderer
	renderTimeout time.Duration
}

func NewOpsService(store repository.Store, renderer PDFRenderer, renderTimeout time.Duration) *OpsService {
	if renderTimeout <= 0 {
		renderTimeout = 60 * time.Second
	}
	return &OpsService{store: store, renderer: renderer, renderTimeout: renderTimeout}
}

// GeneratePDF is idempotent twice over: by job id (at-least-once delivery)
// and by the order's pdf_status (a READY order is done no matter which job
// asks). A GENERATING order returns ErrPDFLocked so the caller backs off
// instead of rendering concurrently.
func (s *OpsService) GeneratePDF(ctx context.Context, jobID, orderID string, attempt int) (*dto.OpsJobResponse, error) {
	var (
		noopMessage string
		order       *model.Order
	)
	now := time.Now().UTC()

	err := s.store.RunTxn(ctx, func(tx repository.Txn) error {
		if job, err := tx.Job(jobID); err == nil && job.Status == model.JobSucceeded {
			noopMessage = "no-op (job already succeeded)"
			return nil
		} else if err != nil && err != ErrNotFound {
			return err
		}

		o, err := tx.Order(orderID)
		if err != nil {
			return err
		}
		switch o.PDFStatus {
		case model.PDFStateReady:
			noopMessage = "no-op (pdf already ready)"
			return nil
		case model.PDFStateGenerating:
			return ErrPDFLocked
		}

		o.PDFStatus = model.PDFStateGenerating
		o.PDFUpdatedAt = now
		if err := tx.SaveOrder(o); err != nil {
			return err
		}
		if err := tx.SaveJob(&model.Job{
			ID:        jobID,
			JobType:   model.JobTypePDFGenerate,
			OrderID:   orderID,
			Attempt:   attempt,
			Status:    model.JobRunning,
			CreatedAt: now,
		}); err != nil {
			return err
		}
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	if noopMessage != "" {
		return &dto.OpsJobResponse{JobID: jobID, Status: string(model.JobSucceeded), Message: noopMessage}, nil
	}

	// Generation runs outside the lock with a bounded timeout; a hung
	// renderer becomes a failure, never an eternal GENERATING.
	renderCtx, cancel := context.WithTimeout(ctx, s.renderTimeout)
	defer cancel()
	path, renderErr := s.renderer.Render(renderCtx, order)

	finishedAt := time.Now().UTC()
	if renderErr != nil {
		if err := s.finishPDF(ctx, jobID, orderID, finishedAt, "", renderErr); err != nil {
			log.Printf("pdf job %s: recording failure: %v", jobID, err)
		}
		// Surfaced as a server error so the scheduler retries on its own
		// backoff.
		return nil, fmt.Errorf("pdf generation for order %s: %w", orderID, renderErr)
	}

	if err := s.finishPDF(ctx, jobID, orderID, finishedAt, path, nil); err != nil {
		return nil, err
	}
	return &dto.OpsJobResponse{JobID: jobID, Status: string(model.JobSucceeded), Message: "pdf generated"}, nil
}

func (s *OpsService) finishPDF(ctx context.Context, jobID, orderID string, at time.Time, path string, renderErr error) error {
	return s.store.RunTxn(ctx, func(tx repository.Txn) error {
		job, err := tx.Job(jobID)
		if err != nil {
			return err
		}
		order, err := tx.Order(orderID)
		if err != nil {
			return err
		}

		job.UpdatedAt = at
		order.PDFUpdatedAt = at
		if renderErr != nil {
			job.Status = model.JobFailed
			job.LastError = renderErr.Error()
			order.PDFStatus = model.PDFStateFailed
			order.PDFError = renderErr.Error()
		} else {
			job.Status = model.JobSucceeded
			job.LastError = ""
			order.PDFStatus = model.PDFStateReady
			order.PDFPath = path
			order.PDFError = ""
		}

		if err := tx.SaveJob(job); err != nil {
			return err
		}
		return tx.SaveOrder(order)
	})
}

const (
	cleanupBatchLimit     = 100
	cleanupAuditSampleMax = 20
)

// CleanupPII anonymizes orders that reached a terminal status before the
// cutoff. Only records that still carry PII are touched, so reruns are
// no-ops. A dry run just counts.
func (s *OpsService) CleanupPII(ctx context.Context, jobID string, cutoffDays int, dryRun bool) (*dto.OpsJobResponse, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -cutoffDays)
	terminal := []status.Status{status.Shipped, status.Cancelled}

	if dryRun {
		n, err := s.store.CountCleanupCandidates(ctx, terminal, cutoff)
		if err != nil {
			return nil, err
		}
		return &dto.OpsJobResponse{
			JobID:   jobID,
			Status:  string(model.JobSucceeded),
			Message: fmt.Sprintf("dry run: %d records would be cleaned", n),
		}, nil
	}

	candidates, err := s.store.FindCleanupCandidates(ctx, terminal, cutoff, cleanupBatchLimit)
	if err != nil {
		return nil, err
	}

	var cleanedIDs []string
	now := time.Now().UTC()
	for _, candidate := range candidates {
		id := candidate.ID
		cleaned := false
		err := s.store.RunTxn(ctx, func(tx repository.Txn) error {
			order, err := tx.Order(id)
			if err != nil {
				return err
			}
			// Re-check under the lock: a concurrent sweep may have gotten
			// here first.
			if order.Recipient == nil && order.LetterContent == "" && order.Notes == "" {
				return nil
			}
			order.Recipient = nil
			order.LetterContent = ""
			order.Notes = ""
			order.PIICleanedAt = now
			if err := tx.SaveOrder(order); err != nil {
				return err
			}
			cleaned = true
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("pii cleanup for order %s: %w", id, err)
		}
		if cleaned {
			cleanedIDs = append(cleanedIDs, id)
		}
	}

	sample := cleanedIDs
	if len(sample) > cleanupAuditSampleMax {
		sample = sample[:cleanupAuditSampleMax]
	}
	err = s.store.RunTxn(ctx, func(tx repository.Txn) error {
		return tx.AppendAudit(&model.AuditLog{
			ID:     uuid.NewString(),
			Action: model.AuditPIICleanup,
			Actor:  "system:scheduler",
			Metadata: map[string]any{
				"job_id":            jobID,
				"cleaned_count":     len(cleanedIDs),
				"cleaned_order_ids": sample,
				"cutoff_days":       cutoffDays,
			},
			Timestamp: now,
		})
	})
	if err != nil {
		return nil, err
	}

	return &dto.OpsJobResponse{
		JobID:   jobID,
		Status:  string(model.JobSucceeded),
		Message: fmt.Sprintf("pii cleaned from %d records", len(cleanedIDs)),
	}, nil
}
