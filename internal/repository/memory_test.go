package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"letter-order-service/internal/model"
	"letter-order-service/internal/status"
)

func TestMemoryTxnCommit(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()

	err := mem.RunTxn(ctx, func(tx Txn) error {
		if err := tx.InsertOrder(&model.Order{ID: "o1", TrackingCode: "T1", Status: status.Created}); err != nil {
			return err
		}
		return tx.InsertPublic(&model.OrderPublic{TrackingCode: "T1", OrderID: "o1", Status: status.Created})
	})
	if err != nil {
		t.Fatalf("RunTxn: %v", err)
	}

	if _, err := mem.FindOrder(ctx, "o1"); err != nil {
		t.Errorf("order not committed: %v", err)
	}
	if _, err := mem.FindPublic(ctx, "T1"); err != nil {
		t.Errorf("public doc not committed: %v", err)
	}
}

func TestMemoryTxnAbortDiscardsAllWrites(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()

	boom := errors.New("boom")
	err := mem.RunTxn(ctx, func(tx Txn) error {
		if err := tx.InsertOrder(&model.Order{ID: "o1", TrackingCode: "T1", Status: status.Created}); err != nil {
			return err
		}
		if err := tx.AppendHistory(&model.StatusHistory{ID: "h1", OrderID: "o1", ToStatus: status.Created}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want injected abort", err)
	}

	if _, err := mem.FindOrder(ctx, "o1"); err != ErrNotFound {
		t.Error("aborted insert leaked into the store")
	}
	if got := len(mem.HistoryForOrder("o1")); got != 0 {
		t.Errorf("aborted history entries = %d, want 0", got)
	}
}

func TestMemoryInsertOrderUniqueConstraints(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()

	seed := &model.Order{ID: "o1", TrackingCode: "T1", ClientRequestID: "req-1", Status: status.Created}
	if err := mem.RunTxn(ctx, func(tx Txn) error { return tx.InsertOrder(seed) }); err != nil {
		t.Fatalf("seed: %v", err)
	}

	cases := []struct {
		name  string
		order *model.Order
	}{
		{"duplicate id", &model.Order{ID: "o1", TrackingCode: "T2"}},
		{"duplicate client_request_id", &model.Order{ID: "o2", TrackingCode: "T3", ClientRequestID: "req-1"}},
		{"duplicate tracking_code", &model.Order{ID: "o3", TrackingCode: "T1"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := mem.RunTxn(ctx, func(tx Txn) error { return tx.InsertOrder(tc.order) })
			if !errors.Is(err, ErrDuplicateKey) {
				t.Fatalf("err = %v, want ErrDuplicateKey", err)
			}
			if _, ferr := mem.FindOrder(ctx, tc.order.ID); tc.order.ID != "o1" && ferr != ErrNotFound {
				t.Error("rejected insert leaked into the store")
			}
		})
	}

	// Orders without a client_request_id never collide on the empty value.
	err := mem.RunTxn(ctx, func(tx Txn) error {
		if err := tx.InsertOrder(&model.Order{ID: "o4", TrackingCode: "T4"}); err != nil {
			return err
		}
		return tx.InsertOrder(&model.Order{ID: "o5", TrackingCode: "T5"})
	})
	if err != nil {
		t.Fatalf("inserts without client_request_id: %v", err)
	}
}

func TestMemoryTxnReadsOwnWrites(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()

	err := mem.RunTxn(ctx, func(tx Txn) error {
		if err := tx.InsertOrder(&model.Order{ID: "o1", TrackingCode: "T1", Status: status.Created}); err != nil {
			return err
		}
		order, err := tx.Order("o1")
		if err != nil {
			return err
		}
		order.Status = status.Paid
		return tx.SaveOrder(order)
	})
	if err != nil {
		t.Fatalf("RunTxn: %v", err)
	}

	order, err := mem.FindOrder(ctx, "o1")
	if err != nil {
		t.Fatalf("FindOrder: %v", err)
	}
	if order.Status != status.Paid {
		t.Errorf("status = %s, want the staged write", order.Status)
	}
}

func TestMemoryFindReturnsCopies(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()

	err := mem.RunTxn(ctx, func(tx Txn) error {
		return tx.InsertOrder(&model.Order{ID: "o1", TrackingCode: "T1", Status: status.Created})
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	order, _ := mem.FindOrder(ctx, "o1")
	order.Status = status.Shipped

	reread, _ := mem.FindOrder(ctx, "o1")
	if reread.Status != status.Created {
		t.Error("mutation of a returned document leaked into the store")
	}
}

func TestMemoryListOrders(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()

	base := time.Now().UTC()
	err := mem.RunTxn(ctx, func(tx Txn) error {
		for i, st := range []status.Status{status.Created, status.Paid, status.Shipped} {
			order := &model.Order{
				ID:           "o" + string(rune('1'+i)),
				TrackingCode: "T" + string(rune('1'+i)),
				Status:       st,
				CreatedAt:    base.Add(time.Duration(i) * time.Second),
			}
			if err := tx.InsertOrder(order); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	all, err := mem.ListOrders(ctx, ListOptions{Limit: 10})
	if err != nil {
		t.Fatalf("ListOrders: %v", err)
	}
	if len(all) != 3 || all[0].ID != "o3" || all[2].ID != "o1" {
		t.Errorf("listing not newest-first: %v", orderIDs(all))
	}

	paid, err := mem.ListOrders(ctx, ListOptions{Status: status.Paid, Limit: 10})
	if err != nil {
		t.Fatalf("filtered ListOrders: %v", err)
	}
	if len(paid) != 1 || paid[0].ID != "o2" {
		t.Errorf("status filter returned %v", orderIDs(paid))
	}

	page, err := mem.ListOrders(ctx, ListOptions{Limit: 10, Cursor: "o3"})
	if err != nil {
		t.Fatalf("cursor ListOrders: %v", err)
	}
	if len(page) != 2 || page[0].ID != "o2" {
		t.Errorf("cursor page = %v", orderIDs(page))
	}
}

func orderIDs(orders []*model.Order) []string {
	ids := make([]string, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}
	return ids
}
