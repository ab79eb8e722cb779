package service

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"letter-order-service/internal/dto"
	"letter-order-service/internal/model"
	"letter-order-service/internal/repository"
	"letter-order-service/internal/status"
	"letter-order-service/internal/tracking"

	"github.com/google/uuid"
)

const currencyTRY = "TRY"

// Actor identifies who drives a status change.
type Actor struct {
	ID   string
	Role string // "admin" or "system"
}

func (a Actor) historyName() string {
	if a.Role == "" {
		return a.ID
	}
	if a.Role == "system" {
		return "system"
	}
	return a.Role + "_" + a.ID
}

// OrderService owns order creation, status transitions and public tracking.
type OrderService struct {
	store repository.Store
	price float64 // letter price, finalized at creation time
}

func NewOrderService(store repository.Store, price float64) *OrderService {
	return &OrderService{store: store, price: price}
}

// validateCreate enforces the field limits in characters, not bytes, so
// Turkish text is measured the same way the client counts it.
func validateCreate(req *dto.CreateOrderRequest) error {
	switch {
	case req.Recipient.Name == "":
		return &ValidationError{Field: "recipient.name", Reason: "required"}
	case utf8.RuneCountInString(req.Recipient.Name) > 100:
		return &ValidationError{Field: "recipient.name", Reason: "longer than 100 characters"}
	case req.Recipient.Address == "":
		return &ValidationError{Field: "recipient.address", Reason: "required"}
	case utf8.RuneCountInString(req.Recipient.Address) > 500:
		return &ValidationError{Field: "recipient.address", Reason: "longer than 500 characters"}
	case utf8.RuneCountInString(req.Recipient.Phone) > 20:
		return &ValidationError{Field: "recipient.phone", Reason: "longer than 20 characters"}
	case req.LetterContent == "":
		return &ValidationError{Field: "letterContent", Reason: "required"}
	case utf8.RuneCountInString(req.LetterContent) > 20000:
		return &ValidationError{Field: "letterContent", Reason: "longer than 20000 characters"}
	case utf8.RuneCountInString(req.Notes) > 1000:
		return &ValidationError{Field: "notes", Reason: "longer than 1000 characters"}
	}
	return nil
}

// Create validates, then writes the order, its public mirror, the first
// history entry and the creation audit entry in one atomic batch. With a
// client_request_id it is idempotent: a repeat returns the original
// identifiers and produces no new writes.
func (s *OrderService) Create(ctx context.Context, req *dto.CreateOrderRequest) (*dto.CreateOrderResponse, error) {
	if err := validateCreate(req); err != nil {
		return nil, err
	}

	if req.ClientRequestID != "" {
		existing, err := s.store.FindOrderByClientRequestID(ctx, req.ClientRequestID)
		if err == nil {
			return &dto.CreateOrderResponse{
				OrderID:      existing.ID,
				TrackingCode: existing.TrackingCode,
				Status:       existing.Status,
			}, nil
		}
		if err != ErrNotFound {
			return nil, err
		}
	}

	code, err := tracking.NewCode()
	if err != nil {
		return nil, err
	}
	orderID := uuid.NewString()
	now := time.Now().UTC()

	order := &model.Order{
		ID:              orderID,
		Status:          status.Created,
		PaymentStatus:   model.PaymentStatePending,
		TotalAmount:     s.price,
		Currency:        currencyTRY,
		IsGuest:         req.IsGuest,
		UserID:          req.UserID,
		Recipient:       &model.Recipient{Name: req.Recipient.Name, Address: req.Recipient.Address, Phone: req.Recipient.Phone},
		LetterContent:   req.LetterContent,
		Notes:           req.Notes,
		TrackingCode:    code,
		ClientRequestID: req.ClientRequestID,
		CreatedAt:       now,
		StatusUpdatedAt: now,
	}

	err = s.store.RunTxn(ctx, func(tx repository.Txn) error {
		if err := tx.InsertOrder(order); err != nil {
			return err
		}
		if err := tx.InsertPublic(&model.OrderPublic{
			TrackingCode:    code,
			OrderID:         orderID,
			Status:          status.Created,
			PublicStepLabel: status.PublicLabel(status.Created),
			CreatedAt:       now,
		}); err != nil {
			return err
		}
		if err := tx.AppendHistory(&model.StatusHistory{
			ID:        uuid.NewString(),
			OrderID:   orderID,
			ToStatus:  status.Created,
			Actor:     "system",
			Timestamp: now,
		}); err != nil {
			return err
		}
		return tx.AppendAudit(&model.AuditLog{
			ID:        uuid.NewString(),
			Action:    model.AuditOrderCreated,
			OrderID:   orderID,
			Actor:     "system",
			Timestamp: now,
		})
	})
	if err != nil {
		// Lost a race against a concurrent submission with the same
		// client_request_id: the unique index rejected our insert, so the
		// winner's order is the one to return.
		if req.ClientRequestID != "" && errors.Is(err, repository.ErrDuplicateKey) {
			if existing, ferr := s.store.FindOrderByClientRequestID(ctx, req.ClientRequestID); ferr == nil {
				return &dto.CreateOrderResponse{
					OrderID:      existing.ID,
					TrackingCode: existing.TrackingCode,
					Status:       existing.Status,
				}, nil
			}
		}
		return nil, fmt.Errorf("create order: %w", err)
	}

	return &dto.CreateOrderResponse{
		OrderID:      orderID,
		TrackingCode: code,
		Status:       status.Created,
	}, nil
}

// Transition moves an order to a new status with the full fan-out. The
// caller states the status it expects to overwrite; a mismatch aborts with
// StatusConflictError carrying what is actually there.
func (s *OrderService) Transition(ctx context.Context, orderID string, to, expectedFrom status.Status, actor Actor, source, note string) (status.Status, error) {
	var previous status.Status
	now := time.Now().UTC()

	err := s.store.RunTxn(ctx, func(tx repository.Txn) error {
		order, err := tx.Order(orderID)
		if err != nil {
			return err
		}
		current := order.Status

		if current != expectedFrom {
			return &StatusConflictError{Expected: expectedFrom, Current: current}
		}
		if !status.IsValidTransition(current, to) {
			return ErrInvalidTransition
		}

		order.Status = to
		order.StatusUpdatedAt = now
		order.StatusUpdatedBy = actor.ID
		if err := tx.SaveOrder(order); err != nil {
			return err
		}

		pub, err := tx.Public(order.TrackingCode)
		if err != nil {
			return fmt.Errorf("public mirror for %s: %w", orderID, err)
		}
		pub.Status = to
		pub.PublicStepLabel = status.PublicLabel(to)
		pub.StatusUpdatedAt = now
		if err := tx.SavePublic(pub); err != nil {
			return err
		}

		if err := tx.AppendHistory(&model.StatusHistory{
			ID:         uuid.NewString(),
			OrderID:    orderID,
			FromStatus: current,
			ToStatus:   to,
			Actor:      actor.historyName(),
			Source:     source,
			Note:       note,
			Timestamp:  now,
		}); err != nil {
			return err
		}
		if err := tx.AppendAudit(&model.AuditLog{
			ID:      uuid.NewString(),
			Action:  model.AuditOrderStatusChange,
			OrderID: orderID,
			Actor:   actor.ID,
			Metadata: map[string]any{
				"from": current,
				"to":   to,
			},
			Timestamp: now,
		}); err != nil {
			return err
		}

		previous = current
		return nil
	})
	if err != nil {
		return "", err
	}
	return previous, nil
}

// TrackPublic resolves a tracking code to the PII-free public view.
func (s *OrderService) TrackPublic(ctx context.Context, trackingCode string) (*dto.TrackResponse, error) {
	pub, err := s.store.FindPublic(ctx, trackingCode)
	if err != nil {
		return nil, err
	}
	return &dto.TrackResponse{
		TrackingCode:    pub.TrackingCode,
		Status:          pub.Status,
		CreatedAt:       pub.CreatedAt,
		PublicStepLabel: pub.PublicStepLabel,
	}, nil
}

const recipientSummaryMax = 30

// ListOrders returns one admin page, newest first.
func (s *OrderService) ListOrders(ctx context.Context, statusFilter status.Status, limit int, cursor string) (*dto.AdminOrderListResponse, error) {
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	orders, err := s.store.ListOrders(ctx, repository.ListOptions{
		Status: statusFilter,
		Limit:  limit,
		Cursor: cursor,
	})
	if err != nil {
		return nil, err
	}

	items := make([]dto.AdminOrderSummary, 0, len(orders))
	for _, o := range orders {
		summary := ""
		if o.Recipient != nil {
			summary = o.Recipient.Address
			// Truncate on a rune boundary; a byte slice could split a
			// multi-byte character and emit invalid UTF-8.
			if runes := []rune(summary); len(runes) > recipientSummaryMax {
				summary = string(runes[:recipientSummaryMax]) + "..."
			}
		}
		items = append(items, dto.AdminOrderSummary{
			OrderID:          o.ID,
			TrackingCode:     o.TrackingCode,
			Status:           o.Status,
			TotalAmount:      o.TotalAmount,
			IsGuest:          o.IsGuest,
			UserID:           o.UserID,
			RecipientSummary: summary,
			CreatedAt:        o.CreatedAt,
			StatusUpdatedAt:  o.StatusUpdatedAt,
		})
	}

	resp := &dto.AdminOrderListResponse{
		Items:   items,
		HasMore: len(orders) == limit,
	}
	if resp.HasMore && len(orders) > 0 {
		resp.NextCursor = orders[len(orders)-1].ID
	}
	return resp, nil
}
