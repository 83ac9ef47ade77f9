// Package memory хранит журнал в памяти процесса (dev-режим и тесты).
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Spok95/warehouse-ledger/internal/domain/catalog"
	"github.com/Spok95/warehouse-ledger/internal/domain/inventory"
	"github.com/Spok95/warehouse-ledger/internal/store"
)

type Store struct {
	mu     sync.RWMutex
	nextID int64

	categories map[int64]catalog.Category
	items      map[int64]catalog.Item
	// журнал в порядке вставки
	txs []inventory.Transaction

	now func() time.Time
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		categories: make(map[int64]catalog.Category),
		items:      make(map[int64]catalog.Item),
		now:        time.Now,
	}
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

/* Categories */

func (s *Store) UpsertCategory(_ context.Context, name string) (*catalog.Category, bool, error) {
	name, err := store.CategoryName(name)
	if err != nil {
		return nil, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.categoryByName(name); ok {
		return &c, false, nil
	}
	c := catalog.Category{ID: s.id(), Name: name, CreatedAt: s.now()}
	s.categories[c.ID] = c
	return &c, true, nil
}

func (s *Store) categoryByName(name string) (catalog.Category, bool) {
	for _, c := range s.categories {
		if c.Name == name {
			return c, true
		}
	}
	return catalog.Category{}, false
}

func (s *Store) GetCategory(_ context.Context, id int64) (*catalog.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.categories[id]
	if !ok {
		return nil, fmt.Errorf("category %d: %w", id, store.ErrNotFound)
	}
	return &c, nil
}

func (s *Store) ListCategories(_ context.Context) ([]catalog.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]catalog.Category, 0, len(s.categories))
	for _, c := range s.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) RenameCategory(_ context.Context, id int64, name string) (*catalog.Category, error) {
	name, err := store.CategoryName(name)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.categories[id]
	if !ok {
		return nil, fmt.Errorf("category %d: %w", id, store.ErrNotFound)
	}
	if other, ok := s.categoryByName(name); ok && other.ID != id {
		return nil, fmt.Errorf("category %q: %w", name, store.ErrConflict)
	}
	c.Name = name
	s.categories[id] = c
	return &c, nil
}

func (s *Store) DeleteCategory(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.categories[id]; !ok {
		return fmt.Errorf("category %d: %w", id, store.ErrNotFound)
	}
	delete(s.categories, id)
	// как ON DELETE SET NULL
	for itemID, it := range s.items {
		if it.CategoryID != nil && *it.CategoryID == id {
			it.CategoryID = nil
			s.items[itemID] = it
		}
	}
	return nil
}

/* Items */

func (s *Store) CreateItem(_ context.Context, in catalog.NewItem) (*catalog.Item, error) {
	code := strings.TrimSpace(in.Code)
	if code == "" {
		return nil, store.Invalid("item_code", "must not be empty")
	}
	if in.TargetStock < 0 || in.InitialStock < 0 {
		return nil, store.Invalid("stock", "must not be negative")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.itemByCode(code); ok {
		return nil, fmt.Errorf("item %q: %w", code, store.ErrConflict)
	}
	if in.CategoryID != nil {
		if _, ok := s.categories[*in.CategoryID]; !ok {
			return nil, fmt.Errorf("category %d: %w", *in.CategoryID, store.ErrNotFound)
		}
	}
	it := catalog.Item{
		ID:          s.id(),
		Code:        code,
		Name:        in.Name,
		CategoryID:  copyID(in.CategoryID),
		TargetStock: in.TargetStock,
		Stock:       in.InitialStock,
		CreatedAt:   s.now(),
	}
	s.items[it.ID] = it
	return &it, nil
}

func (s *Store) itemByCode(code string) (catalog.Item, bool) {
	for _, it := range s.items {
		if it.Code == code {
			return it, true
		}
	}
	return catalog.Item{}, false
}

func (s *Store) GetItem(_ context.Context, id int64) (*catalog.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	it, ok := s.items[id]
	if !ok {
		return nil, fmt.Errorf("item %d: %w", id, store.ErrNotFound)
	}
	return &it, nil
}

func (s *Store) GetItemByCode(_ context.Context, code string) (*catalog.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	it, ok := s.itemByCode(strings.TrimSpace(code))
	if !ok {
		return nil, fmt.Errorf("item %q: %w", code, store.ErrNotFound)
	}
	return &it, nil
}

func (s *Store) ListItems(_ context.Context) ([]catalog.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]catalog.Item, 0, len(s.items))
	for _, it := range s.items {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (s *Store) UpdateItem(_ context.Context, id int64, upd catalog.ItemUpdate) (*catalog.Item, error) {
	if upd.TargetStock < 0 {
		return nil, store.Invalid("target_stock", "must not be negative")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	it, ok := s.items[id]
	if !ok {
		return nil, fmt.Errorf("item %d: %w", id, store.ErrNotFound)
	}
	if upd.CategoryID != nil {
		if _, ok := s.categories[*upd.CategoryID]; !ok {
			return nil, fmt.Errorf("category %d: %w", *upd.CategoryID, store.ErrNotFound)
		}
	}
	it.Name = upd.Name
	it.CategoryID = copyID(upd.CategoryID)
	it.TargetStock = upd.TargetStock
	s.items[id] = it
	return &it, nil
}

func (s *Store) DeleteItem(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return fmt.Errorf("item %d: %w", id, store.ErrNotFound)
	}
	delete(s.items, id)
	kept := s.txs[:0]
	for _, t := range s.txs {
		if t.ItemID != id {
			kept = append(kept, t)
		}
	}
	s.txs = kept
	return nil
}

/* Ledger */

func (s *Store) AppendTransaction(_ context.Context, itemID int64, derive store.DeriveFunc) (*inventory.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	it, ok := s.items[itemID]
	if !ok {
		return nil, fmt.Errorf("item %d: %w", itemID, store.ErrNotFound)
	}
	latest := s.latest(itemID)

	t, err := derive(it, latest)
	if err != nil {
		return nil, err
	}
	if s.txIndex(t.Code) >= 0 {
		return nil, fmt.Errorf("transaction %q: %w", t.Code, store.ErrConflict)
	}
	t.ID = s.id()
	t.ItemID = itemID
	t.CreatedAt = s.now()
	s.txs = append(s.txs, t)

	it.Stock = t.StockAfter
	s.items[itemID] = it
	return &t, nil
}

// latest: последняя транзакция товара по дате, затем по порядку вставки.
func (s *Store) latest(itemID int64) *inventory.Transaction {
	var last *inventory.Transaction
	for i := range s.txs {
		t := s.txs[i]
		if t.ItemID != itemID {
			continue
		}
		if last == nil || !t.Date.Before(last.Date) {
			last = &t
		}
	}
	return last
}

func (s *Store) txIndex(code string) int {
	for i, t := range s.txs {
		if t.Code == code {
			return i
		}
	}
	return -1
}

func (s *Store) GetTransaction(_ context.Context, code string) (*inventory.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.txIndex(code)
	if i < 0 {
		return nil, fmt.Errorf("transaction %q: %w", code, store.ErrNotFound)
	}
	t := s.txs[i]
	return &t, nil
}

func (s *Store) ListTransactions(ctx context.Context, f inventory.Filter) ([]inventory.Transaction, error) {
	entries, err := s.Entries(ctx, f)
	if err != nil {
		return nil, err
	}
	out := make([]inventory.Transaction, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Transaction)
	}
	return out, nil
}

func (s *Store) FindTransactionsByItem(_ context.Context, itemID int64) ([]inventory.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []inventory.Transaction
	for _, t := range s.txs {
		if t.ItemID == itemID {
			out = append(out, t)
		}
	}
	sortByDate(out)
	return out, nil
}

func (s *Store) UpdateTransaction(_ context.Context, code string, mutate store.MutateFunc) (*inventory.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.txIndex(code)
	if i < 0 {
		return nil, fmt.Errorf("transaction %q: %w", code, store.ErrNotFound)
	}
	t, err := mutate(s.txs[i])
	if err != nil {
		return nil, err
	}
	// ключевые поля не меняются
	t.ID, t.Code, t.ItemID, t.CreatedAt = s.txs[i].ID, s.txs[i].Code, s.txs[i].ItemID, s.txs[i].CreatedAt
	s.txs[i] = t
	return &t, nil
}

func (s *Store) DeleteTransaction(_ context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.txIndex(code)
	if i < 0 {
		return fmt.Errorf("transaction %q: %w", code, store.ErrNotFound)
	}
	s.txs = append(s.txs[:i], s.txs[i+1:]...)
	return nil
}

func (s *Store) Entries(_ context.Context, f inventory.Filter) ([]inventory.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []inventory.Entry
	for _, t := range s.txs {
		it := s.items[t.ItemID]
		if !f.Match(it.Code, t) {
			continue
		}
		e := inventory.Entry{Transaction: t, ItemCode: it.Code, ItemName: it.Name}
		if it.CategoryID != nil {
			e.CategoryName = s.categories[*it.CategoryID].Name
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func sortByDate(txs []inventory.Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		if !txs[i].Date.Equal(txs[j].Date) {
			return txs[i].Date.Before(txs[j].Date)
		}
		return txs[i].ID < txs[j].ID
	})
}

func copyID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
