package postgres

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Spok95/warehouse-ledger/internal/domain/catalog"
	"github.com/Spok95/warehouse-ledger/internal/domain/inventory"
	"github.com/Spok95/warehouse-ledger/internal/infra/logger"
	"github.com/Spok95/warehouse-ledger/internal/store"
)

// Тесты идут только против живой БД: APP_TEST_POSTGRES_DSN.
func testStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("APP_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("APP_TEST_POSTGRES_DSN is not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := Migrate(ctx, dsn, logger.Nop()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	pool, err := Connect(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)
	return New(pool)
}

func uniq(prefix string) string {
	return prefix + "-" + uuid.NewString()[:8]
}

func TestPostgresCategoryUpsert(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	name := uniq("cat")

	first, created, err := s.UpsertCategory(ctx, "  "+name+" ")
	if err != nil || !created {
		t.Fatalf("first upsert: created=%v err=%v", created, err)
	}
	t.Cleanup(func() { _ = s.DeleteCategory(ctx, first.ID) })

	again, created, err := s.UpsertCategory(ctx, name)
	if err != nil || created || again.ID != first.ID {
		t.Fatalf("second upsert: %+v created=%v err=%v", again, created, err)
	}
}

func TestPostgresLedger(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	it, err := s.CreateItem(ctx, catalog.NewItem{Code: uniq("item"), Name: "Test", TargetStock: 100})
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	t.Cleanup(func() { _ = s.DeleteItem(ctx, it.ID) })

	if _, err := s.CreateItem(ctx, catalog.NewItem{Code: it.Code, Name: "Dup"}); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected conflict on duplicate item code, got %v", err)
	}

	day := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	code := uniq("TXR")
	derive := func(_ catalog.Item, latest *inventory.Transaction) (inventory.Transaction, error) {
		if latest != nil {
			t.Errorf("expected empty ledger, got %+v", latest)
		}
		return inventory.Transaction{
			Code: code, Date: day, QtyOut: 10, StockAfter: 90, StockBefore: 100,
			Month: inventory.MonthBucket(day), RestockFlag: inventory.RestockNo, TargetStock: 100,
		}, nil
	}
	saved, err := s.AppendTransaction(ctx, it.ID, derive)
	if err != nil {
		t.Fatalf("AppendTransaction: %v", err)
	}
	if saved.Month != "Jan-2024" || !saved.Date.Equal(day) {
		t.Fatalf("unexpected row %+v", saved)
	}

	got, err := s.GetItem(ctx, it.ID)
	if err != nil || got.Stock != 90 {
		t.Fatalf("item stock not updated: %+v %v", got, err)
	}

	if _, err := s.AppendTransaction(ctx, it.ID, func(catalog.Item, *inventory.Transaction) (inventory.Transaction, error) {
		return inventory.Transaction{Code: code, Date: day, RestockFlag: inventory.RestockNo}, nil
	}); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected conflict on duplicate code, got %v", err)
	}

	entries, err := s.Entries(ctx, inventory.Filter{ItemCode: it.Code})
	if err != nil || len(entries) != 1 || entries[0].ItemName != "Test" {
		t.Fatalf("entries: %+v %v", entries, err)
	}

	if err := s.DeleteTransaction(ctx, code); err != nil {
		t.Fatalf("DeleteTransaction: %v", err)
	}
	if _, err := s.GetTransaction(ctx, code); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}
