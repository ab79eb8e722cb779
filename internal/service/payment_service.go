package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"letter-order-service/internal/dto"
	"letter-order-service/internal/model"
	"letter-order-service/internal/repository"
	"letter-order-service/internal/status"

	"github.com/google/uuid"
)

// CheckoutProvider is the payment provider contract: intent creation and
// webhook signature verification.
type CheckoutProvider interface {
	CreateCheckoutIntent(ctx context.Context, orderID string, amount float64, currency string, recipient *model.Recipient) (token, checkoutURL string, err error)
	VerifySignature(body []byte, signatureHeader string) bool
	Name() string
}

// TaskEnqueuer hands a job to the background queue, fire-and-forget with
// at-least-once delivery.
type TaskEnqueuer interface {
	Enqueue(ctx context.Context, jobType string, payload any) error
}

// PaymentService reconciles orders with the checkout provider.
type PaymentService struct {
	store    repository.Store
	provider CheckoutProvider
	enqueuer TaskEnqueuer
}

func NewPaymentService(store repository.Store, provider CheckoutProvider, enqueuer TaskEnqueuer) *PaymentService {
	return &PaymentService{store: store, provider: provider, enqueuer: enqueuer}
}

// CreateIntent starts a checkout for the order. A pending payment already
// created for this order is returned unchanged so a double click cannot
// charge twice. The amount always comes from the stored order total; an
// unpriced order is refused rather than defaulted.
func (s *PaymentService) CreateIntent(ctx context.Context, orderID string) (*dto.PaymentIntentResponse, error) {
	var (
		existing  *model.Payment
		amount    float64
		currency  string
		recipient *model.Recipient
	)

	err := s.store.RunTxn(ctx, func(tx repository.Txn) error {
		order, err := tx.Order(orderID)
		if err != nil {
			return err
		}
		if order.PaymentStatus == model.PaymentStatePaid || order.PaymentStatus == model.PaymentStatePaymentPending {
			if p, err := tx.PendingPayment(orderID); err == nil {
				existing = p
				return nil
			} else if err != ErrNotFound {
				return err
			}
			if order.PaymentStatus == model.PaymentStatePaid {
				return ErrAlreadyPaid
			}
		}
		if order.TotalAmount <= 0 {
			return ErrAmountNotSet
		}
		amount = order.TotalAmount
		currency = order.Currency
		recipient = order.Recipient
		return nil
	})
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &dto.PaymentIntentResponse{Token: existing.Token, CheckoutURL: existing.CheckoutURL, Status: "success"}, nil
	}

	// Provider call happens outside the transaction; a slow checkout API
	// must not hold the order lock.
	token, checkoutURL, err := s.provider.CreateCheckoutIntent(ctx, orderID, amount, currency, recipient)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProvider, err)
	}

	now := time.Now().UTC()
	err = s.store.RunTxn(ctx, func(tx repository.Txn) error {
		order, err := tx.Order(orderID)
		if err != nil {
			return err
		}
		if order.PaymentStatus == model.PaymentStatePaid {
			return ErrAlreadyPaid
		}
		// Lost a race against a concurrent intent: keep theirs, drop ours.
		if p, err := tx.PendingPayment(orderID); err == nil {
			existing = p
			return nil
		} else if err != ErrNotFound {
			return err
		}

		order.PaymentStatus = model.PaymentStatePaymentPending
		if err := tx.SaveOrder(order); err != nil {
			return err
		}
		return tx.SavePayment(&model.Payment{
			Token:       token,
			OrderID:     orderID,
			Status:      model.PaymentPending,
			Amount:      amount,
			Currency:    currency,
			Provider:    s.provider.Name(),
			CheckoutURL: checkoutURL,
			CreatedAt:   now,
		})
	})
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &dto.PaymentIntentResponse{Token: existing.Token, CheckoutURL: existing.CheckoutURL, Status: "success"}, nil
	}
	return &dto.PaymentIntentResponse{Token: token, CheckoutURL: checkoutURL, Status: "success"}, nil
}

// HandleWebhook settles a payment from a provider callback. Unknown tokens
// and repeated deliveries are acknowledged without effect; only a missing or
// bad signature fails loudly.
func (s *PaymentService) HandleWebhook(ctx context.Context, payload *dto.PaymentWebhookPayload, rawBody []byte, signatureHeader string) error {
	if signatureHeader == "" || !s.provider.VerifySignature(rawBody, signatureHeader) {
		return ErrUnauthorized
	}

	var (
		enqueuePDF   bool
		orderID      string
		trackingCode string
	)
	now := time.Now().UTC()

	err := s.store.RunTxn(ctx, func(tx repository.Txn) error {
		payment, err := tx.PaymentByToken(payload.Token)
		if err == ErrNotFound {
			// Unknown or stale token: acknowledge so the provider stops
			// retrying.
			return nil
		}
		if err != nil {
			return err
		}
		if payment.Status == model.PaymentSucceeded || payment.Status == model.PaymentFailed {
			// At-least-once delivery: already settled, no-op.
			return nil
		}

		internal := model.PaymentFailed
		if strings.EqualFold(payload.Status, "success") {
			internal = model.PaymentSucceeded
		}
		payment.Status = internal
		payment.ProviderPaymentID = payload.PaymentID
		payment.UpdatedAt = now
		if err := tx.SavePayment(payment); err != nil {
			return err
		}

		order, err := tx.Order(payment.OrderID)
		if err == ErrNotFound {
			return nil
		}
		if err != nil {
			return err
		}

		if internal == model.PaymentFailed {
			order.PaymentStatus = model.PaymentStateFailed
			return tx.SaveOrder(order)
		}

		order.PaymentStatus = model.PaymentStatePaid
		order.PaidAt = now
		current := order.Status

		if !status.IsValidTransition(current, status.Paid) {
			// Order moved on (e.g. cancelled) before settlement. Record the
			// money, leave the fulfillment status alone for an operator.
			log.Printf("webhook: order %s in %s, skipping transition to PAID", order.ID, current)
			return tx.SaveOrder(order)
		}

		order.Status = status.Paid
		order.StatusUpdatedAt = now
		order.StatusUpdatedBy = "system_webhook"
		if err := tx.SaveOrder(order); err != nil {
			return err
		}

		pub, err := tx.Public(order.TrackingCode)
		if err != nil {
			return fmt.Errorf("public mirror for %s: %w", order.ID, err)
		}
		pub.Status = status.Paid
		pub.PublicStepLabel = status.PublicLabel(status.Paid)
		pub.StatusUpdatedAt = now
		if err := tx.SavePublic(pub); err != nil {
			return err
		}

		if err := tx.AppendHistory(&model.StatusHistory{
			ID:         uuid.NewString(),
			OrderID:    order.ID,
			FromStatus: current,
			ToStatus:   status.Paid,
			Actor:      "system",
			Source:     "webhook",
			Timestamp:  now,
		}); err != nil {
			return err
		}
		if err := tx.AppendAudit(&model.AuditLog{
			ID:        uuid.NewString(),
			Action:    model.AuditPaymentReceived,
			OrderID:   order.ID,
			Actor:     "system",
			Timestamp: now,
		}); err != nil {
			return err
		}

		enqueuePDF = true
		orderID = order.ID
		trackingCode = order.TrackingCode
		return nil
	})
	if err != nil {
		return err
	}

	if enqueuePDF {
		// Fire-and-forget after commit. The provider already got its ack;
		// an enqueue failure is logged and left to the retry sweep.
		job := dto.PDFGenerateJobPayload{
			JobType:      model.JobTypePDFGenerate,
			JobID:        fmt.Sprintf("pdf_%s_%s", orderID, uuid.NewString()[:8]),
			OrderID:      orderID,
			TrackingCode: trackingCode,
			RequestedBy:  "system:webhook",
			Attempt:      1,
		}
		if err := s.enqueuer.Enqueue(ctx, model.JobTypePDFGenerate, job); err != nil {
			log.Printf("webhook: failed to enqueue pdf job for order %s: %v", orderID, err)
		}
	}
	return nil
}

// Status is the minimal projection the frontend polls while the customer is
// on the payment return page.
func (s *PaymentService) Status(ctx context.Context, orderID string) (*dto.PaymentStatusResponse, error) {
	order, err := s.store.FindOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	ps := string(order.PaymentStatus)
	if ps == "" {
		ps = string(model.PaymentStatePending)
	}
	return &dto.PaymentStatusResponse{OrderID: orderID, PaymentStatus: ps}, nil
}
