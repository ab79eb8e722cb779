package repository

import (
	"context"
	"fmt"
	"time"

	"letter-order-service/internal/model"
	"letter-order-service/internal/status"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Mongo implements Store on a MongoDB database. Multi-document atomicity
// comes from session transactions, so the deployment must be a replica set.
type Mongo struct {
	client   *mongo.Client
	orders   *mongo.Collection
	public   *mongo.Collection
	history  *mongo.Collection
	audits   *mongo.Collection
	payments *mongo.Collection
	jobs     *mongo.Collection
}

func NewMongo(client *mongo.Client, db *mongo.Database) *Mongo {
	return &Mongo{
		client:   client,
		orders:   db.Collection("orders"),
		public:   db.Collection("order_public"),
		history:  db.Collection("order_status_history"),
		audits:   db.Collection("admin_audit_logs"),
		payments: db.Collection("payments"),
		jobs:     db.Collection("jobs"),
	}
}

// EnsureIndexes creates the unique indexes the create path relies on:
// client_request_id (sparse, the field is absent on orders created without
// one) and tracking_code. Without them idempotency would rest on the racy
// pre-read alone.
func (m *Mongo) EnsureIndexes(ctx context.Context) error {
	_, err := m.orders.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "client_request_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
		{
			Keys:    bson.D{{Key: "tracking_code", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	})
	if err != nil {
		return fmt.Errorf("ensure order indexes: %w", err)
	}
	return nil
}

// RunTxn runs fn inside a session transaction. The driver retries the whole
// unit on transient write conflicts; a business error returned by fn aborts
// the transaction and is passed through unchanged.
func (m *Mongo) RunTxn(ctx context.Context, fn func(tx Txn) error) error {
	session, err := m.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(&mongoTxn{m: m, ctx: sc})
	})
	return err
}

type mongoTxn struct {
	m   *Mongo
	ctx mongo.SessionContext
}

func findOne[T any](ctx context.Context, col *mongo.Collection, filter bson.M) (*T, error) {
	var out T
	err := col.FindOne(ctx, filter).Decode(&out)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (t *mongoTxn) Order(id string) (*model.Order, error) {
	return findOne[model.Order](t.ctx, t.m.orders, bson.M{"_id": id})
}

func (t *mongoTxn) Public(trackingCode string) (*model.OrderPublic, error) {
	return findOne[model.OrderPublic](t.ctx, t.m.public, bson.M{"_id": trackingCode})
}

func (t *mongoTxn) PaymentByToken(token string) (*model.Payment, error) {
	return findOne[model.Payment](t.ctx, t.m.payments, bson.M{"_id": token})
}

func (t *mongoTxn) PendingPayment(orderID string) (*model.Payment, error) {
	return findOne[model.Payment](t.ctx, t.m.payments, bson.M{
		"order_id": orderID,
		"status":   model.PaymentPending,
	})
}

func (t *mongoTxn) Job(id string) (*model.Job, error) {
	return findOne[model.Job](t.ctx, t.m.jobs, bson.M{"_id": id})
}

func (t *mongoTxn) InsertOrder(o *model.Order) error {
	_, err := t.m.orders.InsertOne(t.ctx, o)
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %v", ErrDuplicateKey, err)
	}
	return err
}

func (t *mongoTxn) SaveOrder(o *model.Order) error {
	// Full replace: cleared PII fields are tagged omitempty and drop out of
	// the stored document.
	_, err := t.m.orders.ReplaceOne(t.ctx, bson.M{"_id": o.ID}, o)
	return err
}

func (t *mongoTxn) InsertPublic(p *model.OrderPublic) error {
	_, err := t.m.public.InsertOne(t.ctx, p)
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %v", ErrDuplicateKey, err)
	}
	return err
}

func (t *mongoTxn) SavePublic(p *model.OrderPublic) error {
	_, err := t.m.public.ReplaceOne(t.ctx, bson.M{"_id": p.TrackingCode}, p)
	return err
}

func (t *mongoTxn) AppendHistory(h *model.StatusHistory) error {
	_, err := t.m.history.InsertOne(t.ctx, h)
	return err
}

func (t *mongoTxn) AppendAudit(a *model.AuditLog) error {
	_, err := t.m.audits.InsertOne(t.ctx, a)
	return err
}

func (t *mongoTxn) SavePayment(p *model.Payment) error {
	opts := options.Replace().SetUpsert(true)
	_, err := t.m.payments.ReplaceOne(t.ctx, bson.M{"_id": p.Token}, p, opts)
	return err
}

func (t *mongoTxn) SaveJob(j *model.Job) error {
	opts := options.Replace().SetUpsert(true)
	_, err := t.m.jobs.ReplaceOne(t.ctx, bson.M{"_id": j.ID}, j, opts)
	return err
}

func (m *Mongo) FindOrder(ctx context.Context, id string) (*model.Order, error) {
	return findOne[model.Order](ctx, m.orders, bson.M{"_id": id})
}

func (m *Mongo) FindOrderByClientRequestID(ctx context.Context, key string) (*model.Order, error) {
	return findOne[model.Order](ctx, m.orders, bson.M{"client_request_id": key})
}

func (m *Mongo) FindPublic(ctx context.Context, trackingCode string) (*model.OrderPublic, error) {
	return findOne[model.OrderPublic](ctx, m.public, bson.M{"_id": trackingCode})
}

// ListOrders pages through orders newest first using keyset pagination on
// (created_at, _id).
func (m *Mongo) ListOrders(ctx context.Context, opts ListOptions) ([]*model.Order, error) {
	filter := bson.M{}
	if opts.Status != "" {
		filter["status"] = opts.Status
	}

	if opts.Cursor != "" {
		cursorDoc, err := m.FindOrder(ctx, opts.Cursor)
		if err == nil {
			filter["$or"] = bson.A{
				bson.M{"created_at": bson.M{"$lt": cursorDoc.CreatedAt}},
				bson.M{"created_at": cursorDoc.CreatedAt, "_id": bson.M{"$lt": cursorDoc.ID}},
			}
		} else if err != ErrNotFound {
			return nil, err
		}
	}

	findOpts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(opts.Limit))

	cur, err := m.orders.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []*model.Order
	for cur.Next(ctx) {
		var o model.Order
		if err := cur.Decode(&o); err != nil {
			return nil, err
		}
		out = append(out, &o)
	}
	return out, cur.Err()
}

func cleanupFilter(statuses []status.Status, cutoff time.Time) bson.M {
	return bson.M{
		"status":     bson.M{"$in": statuses},
		"created_at": bson.M{"$lt": cutoff},
		"$or": bson.A{
			bson.M{"recipient": bson.M{"$exists": true}},
			bson.M{"letter_content": bson.M{"$exists": true}},
			bson.M{"notes": bson.M{"$exists": true}},
		},
	}
}

func (m *Mongo) FindCleanupCandidates(ctx context.Context, statuses []status.Status, cutoff time.Time, limit int) ([]*model.Order, error) {
	cur, err := m.orders.Find(ctx, cleanupFilter(statuses, cutoff), options.Find().SetLimit(int64(limit)))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []*model.Order
	for cur.Next(ctx) {
		var o model.Order
		if err := cur.Decode(&o); err != nil {
			return nil, err
		}
		out = append(out, &o)
	}
	return out, cur.Err()
}

func (m *Mongo) CountCleanupCandidates(ctx context.Context, statuses []status.Status, cutoff time.Time) (int64, error) {
	return m.orders.CountDocuments(ctx, cleanupFilter(statuses, cutoff))
}
