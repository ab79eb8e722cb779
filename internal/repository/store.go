package repository

import (
	"context"
	"errors"
	"time"

	"letter-order-service/internal/model"
	"letter-order-service/internal/status"
)

var (
	ErrNotFound = errors.New("document not found")

	// ErrDuplicateKey surfaces a unique-index violation, e.g. two concurrent
	// creates racing on the same client_request_id.
	ErrDuplicateKey = errors.New("duplicate key")
)

// Txn is the handle passed to the function executed atomically by RunTxn.
// Reads observe the state the transaction is serialized against; writes are
// applied all-or-nothing when the function returns nil. Returning an error
// aborts the unit with nothing applied.
type Txn interface {
	Order(id string) (*model.Order, error)
	Public(trackingCode string) (*model.OrderPublic, error)
	PaymentByToken(token string) (*model.Payment, error)
	PendingPayment(orderID string) (*model.Payment, error)
	Job(id string) (*model.Job, error)

	InsertOrder(o *model.Order) error
	SaveOrder(o *model.Order) error
	InsertPublic(p *model.OrderPublic) error
	SavePublic(p *model.OrderPublic) error
	AppendHistory(h *model.StatusHistory) error
	AppendAudit(a *model.AuditLog) error
	SavePayment(p *model.Payment) error
	SaveJob(j *model.Job) error
}

// ListOptions selects a page of orders for the admin listing, newest first.
// Cursor is the id of the last document of the previous page.
type ListOptions struct {
	Status status.Status
	Limit  int
	Cursor string
}

// Store is the transactional document store contract. Every operation that
// mutates order status or payment-critical fields goes through RunTxn; the
// remaining methods are plain reads.
type Store interface {
	// RunTxn executes fn as one atomic read-validate-write unit. Write
	// conflicts between concurrent units on the same documents are retried
	// by the store or surfaced as a retryable error, never partially
	// applied.
	RunTxn(ctx context.Context, fn func(tx Txn) error) error

	FindOrder(ctx context.Context, id string) (*model.Order, error)
	FindOrderByClientRequestID(ctx context.Context, key string) (*model.Order, error)
	FindPublic(ctx context.Context, trackingCode string) (*model.OrderPublic, error)
	ListOrders(ctx context.Context, opts ListOptions) ([]*model.Order, error)

	// Retention sweep support: orders in any of the given statuses, created
	// before cutoff, that still carry at least one PII field.
	FindCleanupCandidates(ctx context.Context, statuses []status.Status, cutoff time.Time, limit int) ([]*model.Order, error)
	CountCleanupCandidates(ctx context.Context, statuses []status.Status, cutoff time.Time) (int64, error)
}
