// dto.go
package dto

import (
	"time"

	"letter-order-service/internal/status"
)

type RecipientDTO struct {
	Name    string `json:"name" binding:"required,max=100"`
	Address string `json:"address" binding:"required,max=500"`
	Phone   string `json:"phone" binding:"omitempty,max=20"`
}

// CreateOrderRequest creates an order. ClientRequestID is an optional
// idempotency key: resubmitting with the same key returns the first result.
type CreateOrderRequest struct {
	ClientRequestID string       `json:"clientRequestId" binding:"omitempty,max=100"`
	IsGuest         bool         `json:"isGuest"`
	UserID          string       `json:"userId"`
	Recipient       RecipientDTO `json:"recipient" binding:"required"`
	LetterContent   string       `json:"letterContent" binding:"required,max=20000"`
	Notes           string       `json:"notes" binding:"omitempty,max=1000"`
}

type CreateOrderResponse struct {
	OrderID      string        `json:"orderId"`
	TrackingCode string        `json:"trackingCode"`
	Status       status.Status `json:"status"`
}

type TrackResponse struct {
	TrackingCode    string        `json:"trackingCode"`
	Status          status.Status `json:"status"`
	CreatedAt       time.Time     `json:"createdAt"`
	PublicStepLabel string        `json:"publicStepLabel"`
}

// --- admin ---

type UpdateStatusRequest struct {
	ToStatus           status.Status `json:"toStatus" binding:"required"`
	ExpectedFromStatus status.Status `json:"expectedFromStatus" binding:"required"`
	Note               string        `json:"note" binding:"omitempty,max=1000"`
}

type UpdateStatusResponse struct {
	OrderID        string        `json:"orderId"`
	PreviousStatus status.Status `json:"previousStatus"`
	NewStatus      status.Status `json:"newStatus"`
}

// AdminOrderSummary deliberately truncates the recipient address; admins get
// just enough for triage, the full record stays behind the order endpoint.
type AdminOrderSummary struct {
	OrderID          string        `json:"orderId"`
	TrackingCode     string        `json:"trackingCode"`
	Status           status.Status `json:"status"`
	TotalAmount      float64       `json:"totalAmount"`
	IsGuest          bool          `json:"isGuest"`
	UserID           string        `json:"userId,omitempty"`
	RecipientSummary string        `json:"recipientSummary,omitempty"`
	CreatedAt        time.Time     `json:"createdAt"`
	StatusUpdatedAt  time.Time     `json:"statusUpdatedAt"`
}

type AdminOrderListResponse struct {
	Items      []AdminOrderSummary `json:"items"`
	NextCursor string              `json:"nextCursor,omitempty"`
	HasMore    bool                `json:"hasMore"`
}

// --- payments ---

type PaymentIntentRequest struct {
	OrderID string `json:"orderId" binding:"required"`
}

type PaymentIntentResponse struct {
	Token       string `json:"token"`
	CheckoutURL string `json:"checkoutUrl"`
	Status      string `json:"status"`
}

// PaymentWebhookPayload mirrors the provider callback body. ConversationID
// carries the order id on the provider side.
type PaymentWebhookPayload struct {
	Token          string `json:"token" binding:"required"`
	Status         string `json:"status" binding:"required"`
	PaymentID      string `json:"paymentId"`
	ConversationID string `json:"conversationId"`
}

type PaymentStatusResponse struct {
	OrderID       string `json:"orderId"`
	PaymentStatus string `json:"paymentStatus"`
}

// --- ops jobs ---

type PDFGenerateJobPayload struct {
	JobType      string `json:"job_type"`
	JobID        string `json:"job_id" binding:"required"`
	OrderID      string `json:"order_id" binding:"required"`
	TrackingCode string `json:"tracking_code"`
	RequestedBy  string `json:"requested_by"`
	Attempt      int    `json:"attempt"`
}

type PIICleanupJobPayload struct {
	JobType     string `json:"job_type"`
	JobID       string `json:"job_id" binding:"required"`
	CutoffDays  int    `json:"cutoff_days"`
	DryRun      *bool  `json:"dry_run"` // defaults to true when omitted
	RequestedBy string `json:"requested_by"`
}

type OpsJobResponse struct {
	JobID   string `json:"jobId"`
	Status  string `json:"status"`
	Message string `json:"message"`
}
