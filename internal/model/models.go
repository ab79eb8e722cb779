// models.go
package model

import (
	"time"

	"letter-order-service/internal/status"
)

// PaymentState is the payment side of an order, independent of the
// fulfillment status.
type PaymentState string

const (
	PaymentStatePending        PaymentState = "PENDING"
	PaymentStatePaymentPending PaymentState = "PAYMENT_PENDING"
	PaymentStatePaid           PaymentState = "PAID"
	PaymentStateFailed         PaymentState = "FAILED"
)

// PDFState tracks letter PDF generation for a paid order.
type PDFState string

const (
	PDFStateGenerating PDFState = "GENERATING"
	PDFStateReady      PDFState = "READY"
	PDFStateFailed     PDFState = "FAILED"
)

// Recipient holds the letter destination. All three fields are PII and get
// removed by the retention sweep.
type Recipient struct {
	Name    string `bson:"name" json:"name"`
	Address string `bson:"address" json:"address"`
	Phone   string `bson:"phone,omitempty" json:"phone,omitempty"`
}

// Order is the private order document. Mutated only inside a store
// transaction.
type Order struct {
	ID              string        `bson:"_id" json:"orderId"`
	Status          status.Status `bson:"status" json:"status"`
	PaymentStatus   PaymentState  `bson:"payment_status,omitempty" json:"paymentStatus,omitempty"`
	TotalAmount     float64       `bson:"total_amount" json:"totalAmount"`
	Currency        string        `bson:"currency" json:"currency"`
	IsGuest         bool          `bson:"is_guest" json:"isGuest"`
	UserID          string        `bson:"user_id,omitempty" json:"userId,omitempty"`
	Recipient       *Recipient    `bson:"recipient,omitempty" json:"recipient,omitempty"`
	LetterContent   string        `bson:"letter_content,omitempty" json:"letterContent,omitempty"`
	Notes           string        `bson:"notes,omitempty" json:"notes,omitempty"`
	TrackingCode    string        `bson:"tracking_code" json:"trackingCode"`
	ClientRequestID string        `bson:"client_request_id,omitempty" json:"clientRequestId,omitempty"`
	PDFStatus       PDFState      `bson:"pdf_status,omitempty" json:"pdfStatus,omitempty"`
	PDFPath         string        `bson:"pdf_path,omitempty" json:"pdfPath,omitempty"`
	PDFError        string        `bson:"pdf_error_message,omitempty" json:"pdfErrorMessage,omitempty"`
	PDFUpdatedAt    time.Time     `bson:"pdf_updated_at,omitempty" json:"pdfUpdatedAt,omitempty"`
	PaidAt          time.Time     `bson:"paid_at,omitempty" json:"paidAt,omitempty"`
	PIICleanedAt    time.Time     `bson:"pii_cleaned_at,omitempty" json:"piiCleanedAt,omitempty"`
	CreatedAt       time.Time     `bson:"created_at" json:"createdAt"`
	StatusUpdatedAt time.Time     `bson:"status_updated_at" json:"statusUpdatedAt"`
	StatusUpdatedBy string        `bson:"status_updated_by,omitempty" json:"statusUpdatedBy,omitempty"`
}

// OrderPublic is the tracking-code-keyed mirror. Strictly no PII: the
// tracking code is the only reference the public side exposes.
type OrderPublic struct {
	TrackingCode    string        `bson:"_id" json:"trackingCode"`
	OrderID         string        `bson:"order_id" json:"-"`
	Status          status.Status `bson:"status" json:"status"`
	PublicStepLabel string        `bson:"public_step_label" json:"publicStepLabel"`
	CreatedAt       time.Time     `bson:"created_at" json:"createdAt"`
	StatusUpdatedAt time.Time     `bson:"status_updated_at,omitempty" json:"statusUpdatedAt,omitempty"`
}

// StatusHistory is an append-only record of one status change. FromStatus is
// empty for the creation entry.
type StatusHistory struct {
	ID         string        `bson:"_id" json:"id"`
	OrderID    string        `bson:"order_id" json:"orderId"`
	FromStatus status.Status `bson:"from_status,omitempty" json:"fromStatus,omitempty"`
	ToStatus   status.Status `bson:"to_status" json:"toStatus"`
	Actor      string        `bson:"actor" json:"actor"`
	Source     string        `bson:"source,omitempty" json:"source,omitempty"`
	Note       string        `bson:"note,omitempty" json:"note,omitempty"`
	Timestamp  time.Time     `bson:"timestamp" json:"timestamp"`
}

// AuditLog is an append-only admin/system audit entry.
type AuditLog struct {
	ID        string         `bson:"_id" json:"id"`
	Action    string         `bson:"action" json:"action"`
	OrderID   string         `bson:"order_id,omitempty" json:"orderId,omitempty"`
	Actor     string         `bson:"actor" json:"actor"`
	Metadata  map[string]any `bson:"metadata,omitempty" json:"metadata,omitempty"`
	Timestamp time.Time      `bson:"timestamp" json:"timestamp"`
}

// Audit action kinds.
const (
	AuditOrderCreated      = "ORDER_CREATED"
	AuditOrderStatusChange = "ORDER_STATUS_CHANGE"
	AuditPaymentReceived   = "PAYMENT_RECEIVED"
	AuditPIICleanup        = "PII_CLEANUP"
)

// PaymentStatus is the provider-settlement state of one checkout attempt.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentSucceeded PaymentStatus = "SUCCEEDED"
	PaymentFailed    PaymentStatus = "FAILED"
)

// Payment is keyed by the provider checkout token.
type Payment struct {
	Token             string        `bson:"_id" json:"token"`
	OrderID           string        `bson:"order_id" json:"orderId"`
	Status            PaymentStatus `bson:"status" json:"status"`
	Amount            float64       `bson:"amount" json:"amount"`
	Currency          string        `bson:"currency" json:"currency"`
	Provider          string        `bson:"provider" json:"provider"`
	CheckoutURL       string        `bson:"checkout_url" json:"checkoutUrl"`
	ProviderPaymentID string        `bson:"provider_payment_id,omitempty" json:"providerPaymentId,omitempty"`
	CreatedAt         time.Time     `bson:"created_at" json:"createdAt"`
	UpdatedAt         time.Time     `bson:"updated_at,omitempty" json:"updatedAt,omitempty"`
}

// JobStatus of one background job execution record.
type JobStatus string

const (
	JobRunning   JobStatus = "RUNNING"
	JobSucceeded JobStatus = "SUCCEEDED"
	JobFailed    JobStatus = "FAILED"
)

// Job types handled by the ops consumer.
const (
	JobTypePDFGenerate = "pdf_generate"
	JobTypePIICleanup  = "pii_cleanup"
)

// Job is keyed by the externally supplied job id, which doubles as the
// idempotency key for at-least-once deliveries.
type Job struct {
	ID        string    `bson:"_id" json:"jobId"`
	JobType   string    `bson:"job_type" json:"jobType"`
	OrderID   string    `bson:"order_id,omitempty" json:"orderId,omitempty"`
	Attempt   int       `bson:"attempt" json:"attempt"`
	Status    JobStatus `bson:"status" json:"status"`
	LastError string    `bson:"last_error,omitempty" json:"lastError,omitempty"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at,omitempty" json:"updatedAt,omitempty"`
}
