package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Spok95/warehouse-ledger/internal/domain/catalog"
	"github.com/Spok95/warehouse-ledger/internal/domain/inventory"
	"github.com/Spok95/warehouse-ledger/internal/store"
)

func fixed(code string, date time.Time, after int64) store.DeriveFunc {
	return func(it catalog.Item, latest *inventory.Transaction) (inventory.Transaction, error) {
		var before int64
		if latest != nil {
			before = latest.StockAfter
		}
		return inventory.Transaction{Code: code, Date: date, StockBefore: before, StockAfter: after}, nil
	}
}

func TestCategoryNameNormalized(t *testing.T) {
	s := New()
	ctx := context.Background()

	var created int
	for _, name := range []string{"Masker", " masker ", "MASKER"} {
		_, ok, err := s.UpsertCategory(ctx, name)
		if err != nil {
			t.Fatalf("UpsertCategory(%q): %v", name, err)
		}
		if ok {
			created++
		}
	}
	list, _ := s.ListCategories(ctx)
	if created != 1 || len(list) != 1 || list[0].Name != "masker" {
		t.Fatalf("expected one category 'masker', got created=%d list=%+v", created, list)
	}

	if _, _, err := s.UpsertCategory(ctx, "   "); !store.IsValidation(err) {
		t.Fatalf("expected validation error for blank name, got %v", err)
	}
}

func TestReservedCategoryName(t *testing.T) {
	s := New()
	ctx := context.Background()

	for _, name := range []string{"uncategorized", " Uncategorized "} {
		if _, _, err := s.UpsertCategory(ctx, name); !store.IsValidation(err) {
			t.Errorf("UpsertCategory(%q): got %v, want ValidationError", name, err)
		}
	}
	c, _, err := s.UpsertCategory(ctx, "serum")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.RenameCategory(ctx, c.ID, "UNCATEGORIZED"); !store.IsValidation(err) {
		t.Errorf("RenameCategory: got %v, want ValidationError", err)
	}
	if list, _ := s.ListCategories(ctx); len(list) != 1 || list[0].Name != "serum" {
		t.Errorf("unexpected categories %+v", list)
	}
}

func TestRenameCategoryConflict(t *testing.T) {
	s := New()
	ctx := context.Background()
	a, _, _ := s.UpsertCategory(ctx, "serum")
	s.UpsertCategory(ctx, "masker")

	if _, err := s.RenameCategory(ctx, a.ID, " MASKER"); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	c, err := s.RenameCategory(ctx, a.ID, "Toner")
	if err != nil || c.Name != "toner" {
		t.Fatalf("rename: %+v, %v", c, err)
	}
}

func TestDeleteCategoryDetachesItems(t *testing.T) {
	s := New()
	ctx := context.Background()
	c, _, _ := s.UpsertCategory(ctx, "masker")
	it, err := s.CreateItem(ctx, catalog.NewItem{Code: "A", Name: "A", CategoryID: &c.ID})
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	if err := s.DeleteCategory(ctx, c.ID); err != nil {
		t.Fatalf("DeleteCategory: %v", err)
	}
	got, _ := s.GetItem(ctx, it.ID)
	if got.CategoryID != nil {
		t.Fatalf("expected category detached, got %d", *got.CategoryID)
	}
	if err := s.DeleteCategory(ctx, c.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCreateItem(t *testing.T) {
	s := New()
	ctx := context.Background()
	missing := int64(42)

	tests := []struct {
		name string
		in   catalog.NewItem
		want func(error) bool
	}{
		{"ok", catalog.NewItem{Code: "A", Name: "A", InitialStock: 5}, func(err error) bool { return err == nil }},
		{"duplicate code", catalog.NewItem{Code: " A ", Name: "A2"}, func(err error) bool { return errors.Is(err, store.ErrConflict) }},
		{"empty code", catalog.NewItem{Code: " "}, store.IsValidation},
		{"negative stock", catalog.NewItem{Code: "B", InitialStock: -1}, store.IsValidation},
		{"unknown category", catalog.NewItem{Code: "C", CategoryID: &missing}, func(err error) bool { return errors.Is(err, store.ErrNotFound) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.CreateItem(ctx, tt.in)
			if !tt.want(err) {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestAppendTransaction(t *testing.T) {
	s := New()
	ctx := context.Background()
	it, _ := s.CreateItem(ctx, catalog.NewItem{Code: "A", Name: "A"})
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	saved, err := s.AppendTransaction(ctx, it.ID, fixed("TXR100001", day, 40))
	if err != nil {
		t.Fatalf("AppendTransaction: %v", err)
	}
	if saved.ID == 0 || saved.ItemID != it.ID || saved.CreatedAt.IsZero() {
		t.Fatalf("store fields not assigned: %+v", saved)
	}
	got, _ := s.GetItem(ctx, it.ID)
	if got.Stock != 40 {
		t.Fatalf("item stock = %d, want 40", got.Stock)
	}

	if _, err := s.AppendTransaction(ctx, it.ID, fixed("TXR100001", day, 10)); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected conflict on duplicate code, got %v", err)
	}
	if _, err := s.AppendTransaction(ctx, 999, fixed("TXR100002", day, 10)); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found for unknown item, got %v", err)
	}
	got, _ = s.GetItem(ctx, it.ID)
	if got.Stock != 40 {
		t.Fatalf("failed append changed stock to %d", got.Stock)
	}
}

func TestLatestTieBreakByInsertion(t *testing.T) {
	s := New()
	ctx := context.Background()
	it, _ := s.CreateItem(ctx, catalog.NewItem{Code: "A", Name: "A"})
	jan1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	jan5 := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)

	s.AppendTransaction(ctx, it.ID, fixed("T1", jan5, 50))
	s.AppendTransaction(ctx, it.ID, fixed("T2", jan5, 70))
	// более ранняя дата не становится последней
	s.AppendTransaction(ctx, it.ID, fixed("T3", jan1, 10))

	var seen int64 = -1
	_, err := s.AppendTransaction(ctx, it.ID, func(_ catalog.Item, latest *inventory.Transaction) (inventory.Transaction, error) {
		seen = latest.StockAfter
		return inventory.Transaction{Code: "T4", Date: jan5}, nil
	})
	if err != nil {
		t.Fatalf("AppendTransaction: %v", err)
	}
	if seen != 70 {
		t.Fatalf("latest stock_after = %d, want 70", seen)
	}

	txs, _ := s.FindTransactionsByItem(ctx, it.ID)
	codes := make([]string, 0, len(txs))
	for _, tx := range txs {
		codes = append(codes, tx.Code)
	}
	want := []string{"T3", "T1", "T2", "T4"}
	for i := range want {
		if codes[i] != want[i] {
			t.Fatalf("order: got %v, want %v", codes, want)
		}
	}
}

func TestDeriveErrorAborts(t *testing.T) {
	s := New()
	ctx := context.Background()
	it, _ := s.CreateItem(ctx, catalog.NewItem{Code: "A", Name: "A", InitialStock: 3})
	boom := errors.New("boom")

	_, err := s.AppendTransaction(ctx, it.ID, func(catalog.Item, *inventory.Transaction) (inventory.Transaction, error) {
		return inventory.Transaction{}, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected derive error, got %v", err)
	}
	txs, _ := s.FindTransactionsByItem(ctx, it.ID)
	if len(txs) != 0 {
		t.Fatalf("expected empty ledger, got %d rows", len(txs))
	}
}

func TestUpdateAndDeleteTransaction(t *testing.T) {
	s := New()
	ctx := context.Background()
	it, _ := s.CreateItem(ctx, catalog.NewItem{Code: "A", Name: "A"})
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	orig, _ := s.AppendTransaction(ctx, it.ID, fixed("TXR100001", day, 40))

	upd, err := s.UpdateTransaction(ctx, "TXR100001", func(t inventory.Transaction) (inventory.Transaction, error) {
		t.ID, t.Code, t.QtyOut = 777, "OTHER", 9
		return t, nil
	})
	if err != nil {
		t.Fatalf("UpdateTransaction: %v", err)
	}
	if upd.ID != orig.ID || upd.Code != "TXR100001" || upd.QtyOut != 9 {
		t.Fatalf("identity fields must survive update: %+v", upd)
	}

	if err := s.DeleteTransaction(ctx, "TXR100001"); err != nil {
		t.Fatalf("DeleteTransaction: %v", err)
	}
	if err := s.DeleteTransaction(ctx, "TXR100001"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
	if _, err := s.UpdateTransaction(ctx, "TXR100001", nil); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found on update, got %v", err)
	}
}

func TestDeleteItemCascades(t *testing.T) {
	s := New()
	ctx := context.Background()
	it, _ := s.CreateItem(ctx, catalog.NewItem{Code: "A", Name: "A"})
	other, _ := s.CreateItem(ctx, catalog.NewItem{Code: "B", Name: "B"})
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.AppendTransaction(ctx, it.ID, fixed("T1", day, 1))
	s.AppendTransaction(ctx, other.ID, fixed("T2", day, 1))

	if err := s.DeleteItem(ctx, it.ID); err != nil {
		t.Fatalf("DeleteItem: %v", err)
	}
	entries, _ := s.Entries(ctx, inventory.Filter{})
	if len(entries) != 1 || entries[0].Code != "T2" || entries[0].ItemCode != "B" {
		t.Fatalf("unexpected entries after cascade: %+v", entries)
	}
}
