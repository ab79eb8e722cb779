package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"letter-order-service/internal/model"
	"letter-order-service/internal/status"
)

// Memory implements Store in process. It exists for tests and local runs
// without a replica set; a global lock gives every transaction serializable
// isolation, and writes are staged and applied only on commit so an aborted
// unit leaves no trace.
type Memory struct {
	mu       sync.Mutex
	orders   map[string]*model.Order
	public   map[string]*model.OrderPublic
	history  []*model.StatusHistory
	audits   []*model.AuditLog
	payments map[string]*model.Payment
	jobs     map[string]*model.Job
}

func NewMemory() *Memory {
	return &Memory{
		orders:   make(map[string]*model.Order),
		public:   make(map[string]*model.OrderPublic),
		payments: make(map[string]*model.Payment),
		jobs:     make(map[string]*model.Job),
	}
}

func cloneOrder(o *model.Order) *model.Order {
	if o == nil {
		return nil
	}
	cp := *o
	if o.Recipient != nil {
		r := *o.Recipient
		cp.Recipient = &r
	}
	return &cp
}

func clonePublic(p *model.OrderPublic) *model.OrderPublic {
	if p == nil {
		return nil
	}
	cp := *p
	return &cp
}

func clonePayment(p *model.Payment) *model.Payment {
	if p == nil {
		return nil
	}
	cp := *p
	return &cp
}

func cloneJob(j *model.Job) *model.Job {
	if j == nil {
		return nil
	}
	cp := *j
	return &cp
}

type memTxn struct {
	m *Memory

	// staged writes, applied on commit only
	orders   map[string]*model.Order
	public   map[string]*model.OrderPublic
	payments map[string]*model.Payment
	jobs     map[string]*model.Job
	history  []*model.StatusHistory
	audits   []*model.AuditLog
}

func (m *Memory) RunTxn(ctx context.Context, fn func(tx Txn) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memTxn{
		m:        m,
		orders:   make(map[string]*model.Order),
		public:   make(map[string]*model.OrderPublic),
		payments: make(map[string]*model.Payment),
		jobs:     make(map[string]*model.Job),
	}
	if err := fn(tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

func (tx *memTxn) commit() {
	for id, o := range tx.orders {
		tx.m.orders[id] = o
	}
	for code, p := range tx.public {
		tx.m.public[code] = p
	}
	for token, p := range tx.payments {
		tx.m.payments[token] = p
	}
	for id, j := range tx.jobs {
		tx.m.jobs[id] = j
	}
	tx.m.history = append(tx.m.history, tx.history...)
	tx.m.audits = append(tx.m.audits, tx.audits...)
}

func (tx *memTxn) Order(id string) (*model.Order, error) {
	if o, ok := tx.orders[id]; ok {
		return cloneOrder(o), nil
	}
	if o, ok := tx.m.orders[id]; ok {
		return cloneOrder(o), nil
	}
	return nil, ErrNotFound
}

func (tx *memTxn) Public(trackingCode string) (*model.OrderPublic, error) {
	if p, ok := tx.public[trackingCode]; ok {
		return clonePublic(p), nil
	}
	if p, ok := tx.m.public[trackingCode]; ok {
		return clonePublic(p), nil
	}
	return nil, ErrNotFound
}

func (tx *memTxn) PaymentByToken(token string) (*model.Payment, error) {
	if p, ok := tx.payments[token]; ok {
		return clonePayment(p), nil
	}
	if p, ok := tx.m.payments[token]; ok {
		return clonePayment(p), nil
	}
	return nil, ErrNotFound
}

func (tx *memTxn) PendingPayment(orderID string) (*model.Payment, error) {
	check := func(p *model.Payment) bool {
		return p.OrderID == orderID && p.Status == model.PaymentPending
	}
	for _, p := range tx.payments {
		if check(p) {
			return clonePayment(p), nil
		}
	}
	for token, p := range tx.m.payments {
		if _, staged := tx.payments[token]; staged {
			continue
		}
		if check(p) {
			return clonePayment(p), nil
		}
	}
	return nil, ErrNotFound
}

func (tx *memTxn) Job(id string) (*model.Job, error) {
	if j, ok := tx.jobs[id]; ok {
		return cloneJob(j), nil
	}
	if j, ok := tx.m.jobs[id]; ok {
		return cloneJob(j), nil
	}
	return nil, ErrNotFound
}

// InsertOrder enforces the same unique constraints the Mongo indexes do.
func (tx *memTxn) InsertOrder(o *model.Order) error {
	check := func(existing *model.Order) error {
		if existing.ID == o.ID {
			return fmt.Errorf("%w: order id %s", ErrDuplicateKey, o.ID)
		}
		if o.ClientRequestID != "" && existing.ClientRequestID == o.ClientRequestID {
			return fmt.Errorf("%w: client_request_id %s", ErrDuplicateKey, o.ClientRequestID)
		}
		if existing.TrackingCode == o.TrackingCode {
			return fmt.Errorf("%w: tracking_code %s", ErrDuplicateKey, o.TrackingCode)
		}
		return nil
	}
	for _, existing := range tx.orders {
		if err := check(existing); err != nil {
			return err
		}
	}
	for id, existing := range tx.m.orders {
		if _, staged := tx.orders[id]; staged {
			continue
		}
		if err := check(existing); err != nil {
			return err
		}
	}
	tx.orders[o.ID] = cloneOrder(o)
	return nil
}

func (tx *memTxn) SaveOrder(o *model.Order) error {
	tx.orders[o.ID] = cloneOrder(o)
	return nil
}

func (tx *memTxn) InsertPublic(p *model.OrderPublic) error {
	tx.public[p.TrackingCode] = clonePublic(p)
	return nil
}

func (tx *memTxn) SavePublic(p *model.OrderPublic) error {
	tx.public[p.TrackingCode] = clonePublic(p)
	return nil
}

func (tx *memTxn) AppendHistory(h *model.StatusHistory) error {
	cp := *h
	tx.history = append(tx.history, &cp)
	return nil
}

func (tx *memTxn) AppendAudit(a *model.AuditLog) error {
	cp := *a
	tx.audits = append(tx.audits, &cp)
	return nil
}

func (tx *memTxn) SavePayment(p *model.Payment) error {
	tx.payments[p.Token] = clonePayment(p)
	return nil
}

func (tx *memTxn) SaveJob(j *model.Job) error {
	tx.jobs[j.ID] = cloneJob(j)
	return nil
}

func (m *Memory) FindOrder(ctx context.Context, id string) (*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o, ok := m.orders[id]; ok {
		return cloneOrder(o), nil
	}
	return nil, ErrNotFound
}

func (m *Memory) FindOrderByClientRequestID(ctx context.Context, key string) (*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.ClientRequestID != "" && o.ClientRequestID == key {
			return cloneOrder(o), nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) FindPublic(ctx context.Context, trackingCode string) (*model.OrderPublic, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.public[trackingCode]; ok {
		return clonePublic(p), nil
	}
	return nil, ErrNotFound
}

func (m *Memory) ListOrders(ctx context.Context, opts ListOptions) ([]*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var all []*model.Order
	for _, o := range m.orders {
		if opts.Status != "" && o.Status != opts.Status {
			continue
		}
		all = append(all, o)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return strings.Compare(all[i].ID, all[j].ID) > 0
	})

	start := 0
	if opts.Cursor != "" {
		for i, o := range all {
			if o.ID == opts.Cursor {
				start = i + 1
				break
			}
		}
	}

	var out []*model.Order
	for i := start; i < len(all) && len(out) < opts.Limit; i++ {
		out = append(out, cloneOrder(all[i]))
	}
	return out, nil
}

func (m *Memory) FindCleanupCandidates(ctx context.Context, statuses []status.Status, cutoff time.Time, limit int) ([]*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*model.Order
	for _, o := range m.orders {
		if len(out) >= limit {
			break
		}
		if m.isCleanupCandidate(o, statuses, cutoff) {
			out = append(out, cloneOrder(o))
		}
	}
	return out, nil
}

func (m *Memory) CountCleanupCandidates(ctx context.Context, statuses []status.Status, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for _, o := range m.orders {
		if m.isCleanupCandidate(o, statuses, cutoff) {
			n++
		}
	}
	return n, nil
}

func (m *Memory) isCleanupCandidate(o *model.Order, statuses []status.Status, cutoff time.Time) bool {
	eligible := false
	for _, s := range statuses {
		if o.Status == s {
			eligible = true
			break
		}
	}
	if !eligible || !o.CreatedAt.Before(cutoff) {
		return false
	}
	return o.Recipient != nil || o.LetterContent != "" || o.Notes != ""
}

// Test inspection helpers.

func (m *Memory) HistoryForOrder(orderID string) []*model.StatusHistory {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.StatusHistory
	for _, h := range m.history {
		if h.OrderID == orderID {
			cp := *h
			out = append(out, &cp)
		}
	}
	return out
}

func (m *Memory) AuditsByAction(action string) []*model.AuditLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.AuditLog
	for _, a := range m.audits {
		if a.Action == action {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out
}

func (m *Memory) PaymentByToken(token string) (*model.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.payments[token]; ok {
		return clonePayment(p), nil
	}
	return nil, ErrNotFound
}

func (m *Memory) JobByID(id string) (*model.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if j, ok := m.jobs[id]; ok {
		return cloneJob(j), nil
	}
	return nil, ErrNotFound
}
