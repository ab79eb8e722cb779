package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"letter-order-service/internal/dto"
	"letter-order-service/internal/model"
	"letter-order-service/internal/repository"
	"letter-order-service/internal/status"
)

type fakeProvider struct {
	intentCalls int
	intentErr   error
}

func (p *fakeProvider) CreateCheckoutIntent(ctx context.Context, orderID string, amount float64, currency string, recipient *model.Recipient) (string, string, error) {
	p.intentCalls++
	if p.intentErr != nil {
		return "", "", p.intentErr
	}
	return "tok_" + orderID, "https://checkout.test/" + orderID, nil
}

func (p *fakeProvider) VerifySignature(body []byte, signatureHeader string) bool {
	return signatureHeader == "valid-sig"
}

func (p *fakeProvider) Name() string { return "iyzico" }

type fakeEnqueuer struct {
	jobs []string
	err  error
}

func (e *fakeEnqueuer) Enqueue(ctx context.Context, jobType string, payload any) error {
	if e.err != nil {
		return e.err
	}
	e.jobs = append(e.jobs, jobType)
	return nil
}

func newPaymentFixture(t *testing.T, price float64) (*repository.Memory, *PaymentService, *fakeProvider, *fakeEnqueuer, string) {
	t.Helper()
	mem := repository.NewMemory()
	res, err := NewOrderService(mem, price).Create(context.Background(), validCreateReq())
	if err != nil {
		t.Fatalf("seed order: %v", err)
	}
	provider := &fakeProvider{}
	enqueuer := &fakeEnqueuer{}
	return mem, NewPaymentService(mem, provider, enqueuer), provider, enqueuer, res.OrderID
}

func TestCreateIntent(t *testing.T) {
	mem, svc, _, _, orderID := newPaymentFixture(t, 100)
	ctx := context.Background()

	res, err := svc.CreateIntent(ctx, orderID)
	if err != nil {
		t.Fatalf("CreateIntent: %v", err)
	}
	if res.Token != "tok_"+orderID || res.CheckoutURL == "" {
		t.Errorf("intent = %+v", res)
	}

	order, _ := mem.FindOrder(ctx, orderID)
	if order.PaymentStatus != model.PaymentStatePaymentPending {
		t.Errorf("order payment status = %s", order.PaymentStatus)
	}
	payment, err := mem.PaymentByToken(res.Token)
	if err != nil {
		t.Fatalf("payment not stored: %v", err)
	}
	if payment.OrderID != orderID || payment.Status != model.PaymentPending || payment.Amount != 100 {
		t.Errorf("payment = %+v", payment)
	}
}

func TestCreateIntentDoubleSubmit(t *testing.T) {
	_, svc, provider, _, orderID := newPaymentFixture(t, 100)
	ctx := context.Background()

	first, err := svc.CreateIntent(ctx, orderID)
	if err != nil {
		t.Fatalf("first intent: %v", err)
	}
	second, err := svc.CreateIntent(ctx, orderID)
	if err != nil {
		t.Fatalf("second intent: %v", err)
	}
	if first.Token != second.Token || first.CheckoutURL != second.CheckoutURL {
		t.Errorf("double submit produced a new intent: %q vs %q", first.Token, second.Token)
	}
	if provider.intentCalls != 1 {
		t.Errorf("provider called %d times, want 1", provider.intentCalls)
	}
}

func TestCreateIntentAlreadyPaid(t *testing.T) {
	mem, svc, _, _, orderID := newPaymentFixture(t, 100)
	ctx := context.Background()

	err := mem.RunTxn(ctx, func(tx repository.Txn) error {
		order, err := tx.Order(orderID)
		if err != nil {
			return err
		}
		order.PaymentStatus = model.PaymentStatePaid
		return tx.SaveOrder(order)
	})
	if err != nil {
		t.Fatalf("seed paid order: %v", err)
	}

	if _, err := svc.CreateIntent(ctx, orderID); !errors.Is(err, ErrAlreadyPaid) {
		t.Fatalf("err = %v, want ErrAlreadyPaid", err)
	}
}

func TestCreateIntentAmountNotSet(t *testing.T) {
	_, svc, _, _, orderID := newPaymentFixture(t, 0)
	if _, err := svc.CreateIntent(context.Background(), orderID); !errors.Is(err, ErrAmountNotSet) {
		t.Fatalf("err = %v, want ErrAmountNotSet", err)
	}
}

func TestCreateIntentProviderError(t *testing.T) {
	mem, svc, provider, _, orderID := newPaymentFixture(t, 100)
	provider.intentErr = fmt.Errorf("upstream 503")
	ctx := context.Background()

	if _, err := svc.CreateIntent(ctx, orderID); !errors.Is(err, ErrProvider) {
		t.Fatalf("err = %v, want ErrProvider", err)
	}
	// Provider failure must not leave a half-written intent behind.
	order, _ := mem.FindOrder(ctx, orderID)
	if order.PaymentStatus != model.PaymentStatePending {
		t.Errorf("order payment status = %s, want PENDING", order.PaymentStatus)
	}
}

func TestCreateIntentOrderNotFound(t *testing.T) {
	_, svc, _, _, _ := newPaymentFixture(t, 100)
	if _, err := svc.CreateIntent(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func webhookPayload(token, providerStatus string) *dto.PaymentWebhookPayload {
	return &dto.PaymentWebhookPayload{Token: token, Status: providerStatus, PaymentID: "prov-1"}
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	_, svc, _, _, _ := newPaymentFixture(t, 100)
	ctx := context.Background()

	if err := svc.HandleWebhook(ctx, webhookPayload("tok", "success"), []byte("{}"), ""); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("missing signature err = %v, want ErrUnauthorized", err)
	}
	if err := svc.HandleWebhook(ctx, webhookPayload("tok", "success"), []byte("{}"), "forged"); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("bad signature err = %v, want ErrUnauthorized", err)
	}
}

func TestWebhookUnknownTokenAcked(t *testing.T) {
	_, svc, _, enqueuer, _ := newPaymentFixture(t, 100)

	if err := svc.HandleWebhook(context.Background(), webhookPayload("never-issued", "success"), []byte("{}"), "valid-sig"); err != nil {
		t.Fatalf("unknown token must be acknowledged, got %v", err)
	}
	if len(enqueuer.jobs) != 0 {
		t.Errorf("unknown token enqueued %d jobs", len(enqueuer.jobs))
	}
}

func TestWebhookSuccessFanOut(t *testing.T) {
	mem, svc, _, enqueuer, orderID := newPaymentFixture(t, 100)
	ctx := context.Background()

	intent, err := svc.CreateIntent(ctx, orderID)
	if err != nil {
		t.Fatalf("intent: %v", err)
	}
	if err := svc.HandleWebhook(ctx, webhookPayload(intent.Token, "success"), []byte("{}"), "valid-sig"); err != nil {
		t.Fatalf("HandleWebhook: %v", err)
	}

	payment, _ := mem.PaymentByToken(intent.Token)
	if payment.Status != model.PaymentSucceeded || payment.ProviderPaymentID != "prov-1" {
		t.Errorf("payment = %+v", payment)
	}

	order, _ := mem.FindOrder(ctx, orderID)
	if order.Status != status.Paid || order.PaymentStatus != model.PaymentStatePaid {
		t.Errorf("order = status %s, payment %s", order.Status, order.PaymentStatus)
	}
	if order.PaidAt.IsZero() {
		t.Error("paid_at not set")
	}

	pub, _ := mem.FindPublic(ctx, order.TrackingCode)
	if pub.Status != status.Paid {
		t.Errorf("public mirror status = %s", pub.Status)
	}

	history := mem.HistoryForOrder(orderID)
	last := history[len(history)-1]
	if last.ToStatus != status.Paid || last.Source != "webhook" || last.Actor != "system" {
		t.Errorf("history entry = %+v", last)
	}
	if got := len(mem.AuditsByAction(model.AuditPaymentReceived)); got != 1 {
		t.Errorf("payment audits = %d, want 1", got)
	}

	if len(enqueuer.jobs) != 1 || enqueuer.jobs[0] != model.JobTypePDFGenerate {
		t.Errorf("enqueued jobs = %v, want one pdf_generate", enqueuer.jobs)
	}
}

func TestWebhookDeduplicatesDelivery(t *testing.T) {
	mem, svc, _, enqueuer, orderID := newPaymentFixture(t, 100)
	ctx := context.Background()

	intent, _ := svc.CreateIntent(ctx, orderID)
	payload := webhookPayload(intent.Token, "success")

	if err := svc.HandleWebhook(ctx, payload, []byte("{}"), "valid-sig"); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	if err := svc.HandleWebhook(ctx, payload, []byte("{}"), "valid-sig"); err != nil {
		t.Fatalf("repeat delivery must be acknowledged, got %v", err)
	}

	if len(enqueuer.jobs) != 1 {
		t.Errorf("enqueued jobs = %d, want 1", len(enqueuer.jobs))
	}
	paidEntries := 0
	for _, h := range mem.HistoryForOrder(orderID) {
		if h.ToStatus == status.Paid {
			paidEntries++
		}
	}
	if paidEntries != 1 {
		t.Errorf("PAID history entries = %d, want 1", paidEntries)
	}
}

func TestWebhookFailedPayment(t *testing.T) {
	mem, svc, _, enqueuer, orderID := newPaymentFixture(t, 100)
	ctx := context.Background()

	intent, _ := svc.CreateIntent(ctx, orderID)
	if err := svc.HandleWebhook(ctx, webhookPayload(intent.Token, "failure"), []byte("{}"), "valid-sig"); err != nil {
		t.Fatalf("HandleWebhook: %v", err)
	}

	payment, _ := mem.PaymentByToken(intent.Token)
	if payment.Status != model.PaymentFailed {
		t.Errorf("payment status = %s", payment.Status)
	}
	order, _ := mem.FindOrder(ctx, orderID)
	if order.PaymentStatus != model.PaymentStateFailed {
		t.Errorf("order payment status = %s", order.PaymentStatus)
	}
	if order.Status != status.Created {
		t.Errorf("failed payment moved order status to %s", order.Status)
	}
	if len(enqueuer.jobs) != 0 {
		t.Errorf("failed payment enqueued %d jobs", len(enqueuer.jobs))
	}
}

func TestWebhookSkipsIllegalTransition(t *testing.T) {
	mem, svc, _, enqueuer, orderID := newPaymentFixture(t, 100)
	orders := NewOrderService(mem, 100)
	ctx := context.Background()

	intent, _ := svc.CreateIntent(ctx, orderID)
	if _, err := orders.Transition(ctx, orderID, status.Cancelled, status.Created, Actor{ID: "u1", Role: "admin"}, "admin_panel", ""); err != nil {
		t.Fatalf("cancel order: %v", err)
	}

	if err := svc.HandleWebhook(ctx, webhookPayload(intent.Token, "success"), []byte("{}"), "valid-sig"); err != nil {
		t.Fatalf("late settlement must be acknowledged, got %v", err)
	}

	order, _ := mem.FindOrder(ctx, orderID)
	if order.Status != status.Cancelled {
		t.Errorf("settlement overrode cancellation: status = %s", order.Status)
	}
	if order.PaymentStatus != model.PaymentStatePaid {
		t.Errorf("money not recorded: payment status = %s", order.PaymentStatus)
	}
	if len(enqueuer.jobs) != 0 {
		t.Errorf("cancelled order got %d pdf jobs", len(enqueuer.jobs))
	}
}

func TestWebhookEnqueueFailureStillAcks(t *testing.T) {
	_, svc, _, enqueuer, orderID := newPaymentFixture(t, 100)
	enqueuer.err = fmt.Errorf("broker down")
	ctx := context.Background()

	intent, _ := svc.CreateIntent(ctx, orderID)
	if err := svc.HandleWebhook(ctx, webhookPayload(intent.Token, "success"), []byte("{}"), "valid-sig"); err != nil {
		t.Fatalf("settled webhook must ack despite enqueue failure, got %v", err)
	}
}

func TestPaymentStatus(t *testing.T) {
	_, svc, _, _, orderID := newPaymentFixture(t, 100)
	ctx := context.Background()

	res, err := svc.Status(ctx, orderID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if res.PaymentStatus != string(model.PaymentStatePending) {
		t.Errorf("payment status = %s, want PENDING", res.PaymentStatus)
	}

	intent, _ := svc.CreateIntent(ctx, orderID)
	if err := svc.HandleWebhook(ctx, webhookPayload(intent.Token, "success"), []byte("{}"), "valid-sig"); err != nil {
		t.Fatalf("settle: %v", err)
	}
	res, _ = svc.Status(ctx, orderID)
	if res.PaymentStatus != string(model.PaymentStatePaid) {
		t.Errorf("payment status = %s, want PAID", res.PaymentStatus)
	}

	if _, err := svc.Status(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
