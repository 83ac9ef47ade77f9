// Package recorder проводит движения товара через журнал: расчёт остатка,
// страхового запаса, флага пополнения и кода транзакции.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Spok95/warehouse-ledger/internal/domain/catalog"
	"github.com/Spok95/warehouse-ledger/internal/domain/inventory"
	"github.com/Spok95/warehouse-ledger/internal/infra/metrics"
	"github.com/Spok95/warehouse-ledger/internal/store"
)

const (
	PathAuto   = "auto"
	PathManual = "manual"
)

// Notifier получает транзакции с флагом пополнения YES.
type Notifier interface {
	RestockNeeded(ctx context.Context, item catalog.Item, t inventory.Transaction) error
}

type nopNotifier struct{}

func (nopNotifier) RestockNeeded(context.Context, catalog.Item, inventory.Transaction) error {
	return nil
}

// AutoRequest: движение OUT; приход рассчитывается по политике пополнения.
type AutoRequest struct {
	ItemCode     string
	Date         string
	QtyOut       int64
	ItemName     string // для нового товара
	CategoryName string // для нового товара
}

// ManualRequest: движение с явными IN/OUT.
type ManualRequest struct {
	ItemCode string
	Date     string
	QtyIn    int64
	QtyOut   int64
	Code     string // пусто: сгенерировать
}

type UpdateRequest struct {
	QtyOut int64
	Date   string // пусто: оставить дату
}

type Recorder struct {
	store    store.Store
	log      *slog.Logger
	policy   Policy
	codes    CodeGenerator
	notifier Notifier
	metrics  *metrics.Metrics
	loc      *time.Location
	now      func() time.Time
}

type Option func(*Recorder)

func WithPolicy(p Policy) Option { return func(r *Recorder) { r.policy = p } }

func WithCodes(g CodeGenerator) Option { return func(r *Recorder) { r.codes = g } }

func WithNotifier(n Notifier) Option { return func(r *Recorder) { r.notifier = n } }

func WithMetrics(m *metrics.Metrics) Option { return func(r *Recorder) { r.metrics = m } }

func WithLocation(loc *time.Location) Option { return func(r *Recorder) { r.loc = loc } }

func WithClock(now func() time.Time) Option { return func(r *Recorder) { r.now = now } }

func New(st store.Store, log *slog.Logger, opts ...Option) *Recorder {
	r := &Recorder{
		store:    st,
		log:      log,
		policy:   DefaultPolicy(),
		notifier: nopNotifier{},
		loc:      time.UTC,
		now:      time.Now,
	}
	for _, o := range opts {
		o(r)
	}
	if r.codes == nil {
		r.codes = RandomCodes(r.policy.CodePrefix)
	}
	if r.policy.CodeAttempts < 1 {
		r.policy.CodeAttempts = 1
	}
	return r
}

// RecordAuto проводит расход; остаток до движения берётся из последней
// транзакции товара (0, если журнал пуст).
func (r *Recorder) RecordAuto(ctx context.Context, req AutoRequest) (*inventory.Transaction, error) {
	code := strings.TrimSpace(req.ItemCode)
	if code == "" {
		return nil, store.Invalid("item_code", "must not be empty")
	}
	if req.QtyOut < 0 {
		return nil, store.Invalid("qty_out", "must not be negative, got %d", req.QtyOut)
	}
	date, err := r.parseDate(req.Date)
	if err != nil {
		return nil, err
	}
	item, err := r.resolveItem(ctx, code, req.ItemName, req.CategoryName)
	if err != nil {
		return nil, err
	}

	return r.append(ctx, PathAuto, item, "", func(it catalog.Item, latest *inventory.Transaction) inventory.Transaction {
		var before int64
		if latest != nil {
			before = latest.StockAfter
		}
		t := inventory.Transaction{Date: date}
		apply(&t, before, 0, req.QtyOut, r.policy.targetFor(it), true)
		return t
	})
}

// RecordManual проводит движение с явными количествами от текущего остатка товара.
func (r *Recorder) RecordManual(ctx context.Context, req ManualRequest) (*inventory.Transaction, error) {
	if strings.TrimSpace(req.ItemCode) == "" {
		return nil, store.Invalid("item_code", "must not be empty")
	}
	if req.QtyIn < 0 {
		return nil, store.Invalid("qty_in", "must not be negative, got %d", req.QtyIn)
	}
	if req.QtyOut < 0 {
		return nil, store.Invalid("qty_out", "must not be negative, got %d", req.QtyOut)
	}
	date, err := r.parseDate(req.Date)
	if err != nil {
		return nil, err
	}
	item, err := r.store.GetItemByCode(ctx, req.ItemCode)
	if err != nil {
		return nil, err
	}

	return r.append(ctx, PathManual, item, strings.TrimSpace(req.Code), func(it catalog.Item, _ *inventory.Transaction) inventory.Transaction {
		t := inventory.Transaction{Date: date}
		apply(&t, it.Stock, req.QtyIn, req.QtyOut, r.policy.targetFor(it), false)
		return t
	})
}

// Update пересчитывает производные поля от сохранённого остатка до движения.
// Последующие транзакции и остаток товара не пересчитываются.
func (r *Recorder) Update(ctx context.Context, code string, req UpdateRequest) (*inventory.Transaction, error) {
	if req.QtyOut < 0 {
		return nil, store.Invalid("qty_out", "must not be negative, got %d", req.QtyOut)
	}
	var date time.Time
	if strings.TrimSpace(req.Date) != "" {
		d, err := r.parseDate(req.Date)
		if err != nil {
			return nil, err
		}
		date = d
	}
	return r.store.UpdateTransaction(ctx, code, func(t inventory.Transaction) (inventory.Transaction, error) {
		if !date.IsZero() {
			t.Date = date
		}
		target := t.TargetStock
		if target <= 0 {
			target = r.policy.DefaultTargetStock
		}
		apply(&t, t.StockBefore, 0, req.QtyOut, target, true)
		return t, nil
	})
}

// Delete удаляет транзакцию; остаток товара не меняется.
func (r *Recorder) Delete(ctx context.Context, code string) error {
	if err := r.store.DeleteTransaction(ctx, code); err != nil {
		return err
	}
	r.log.Info("transaction deleted", "code", code)
	return nil
}

type buildFunc func(it catalog.Item, latest *inventory.Transaction) inventory.Transaction

func (r *Recorder) append(ctx context.Context, path string, item *catalog.Item, fixedCode string, build buildFunc) (*inventory.Transaction, error) {
	attempts := r.policy.CodeAttempts
	if fixedCode != "" {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		code := fixedCode
		if code == "" {
			code = r.codes.Next()
			taken, err := r.codeTaken(ctx, code)
			if err != nil {
				return nil, err
			}
			if taken {
				r.collision(code)
				continue
			}
		}

		var locked catalog.Item
		saved, err := r.store.AppendTransaction(ctx, item.ID, func(it catalog.Item, latest *inventory.Transaction) (inventory.Transaction, error) {
			locked = it
			t := build(it, latest)
			t.Code = code
			return t, nil
		})
		if err == nil {
			r.recorded(ctx, path, locked, *saved)
			return saved, nil
		}
		// коллизия на уникальном индексе: пробуем другой код
		if fixedCode == "" && errors.Is(err, store.ErrConflict) {
			r.collision(code)
			continue
		}
		return nil, err
	}
	return nil, fmt.Errorf("no free transaction code after %d attempts: %w", attempts, store.ErrConflict)
}

func (r *Recorder) codeTaken(ctx context.Context, code string) (bool, error) {
	_, err := r.store.GetTransaction(ctx, code)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, store.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

func (r *Recorder) collision(code string) {
	r.metrics.CodeCollision()
	r.log.Warn("transaction code collision", "code", code)
}

func (r *Recorder) recorded(ctx context.Context, path string, item catalog.Item, t inventory.Transaction) {
	restock := t.RestockFlag == inventory.RestockYes
	r.metrics.Recorded(path, restock)
	r.log.Debug("transaction recorded",
		"path", path,
		"code", t.Code,
		"item_code", item.Code,
		"stock_before", t.StockBefore,
		"stock_after", t.StockAfter,
		"restock", t.RestockFlag,
	)
	if !restock {
		return
	}
	item.Stock = t.StockAfter
	if err := r.notifier.RestockNeeded(ctx, item, t); err != nil {
		r.log.Error("restock notification failed", "code", t.Code, "err", err)
	}
}

// resolveItem находит товар по коду; неизвестный товар заводится при AutoCreateItems.
func (r *Recorder) resolveItem(ctx context.Context, code, name, categoryName string) (*catalog.Item, error) {
	item, err := r.store.GetItemByCode(ctx, code)
	if err == nil || !errors.Is(err, store.ErrNotFound) || !r.policy.AutoCreateItems {
		return item, err
	}

	var categoryID *int64
	if catalog.GroupKey(categoryName) != catalog.Uncategorized {
		c, _, err := r.store.UpsertCategory(ctx, categoryName)
		if err != nil {
			return nil, err
		}
		categoryID = &c.ID
	}
	if strings.TrimSpace(name) == "" {
		name = "Item " + code
	}
	item, err = r.store.CreateItem(ctx, catalog.NewItem{Code: code, Name: name, CategoryID: categoryID})
	if errors.Is(err, store.ErrConflict) {
		// параллельная запись успела создать товар
		return r.store.GetItemByCode(ctx, code)
	}
	if err != nil {
		return nil, err
	}
	r.log.Info("item registered from movement", "item_code", code, "category_id", categoryID)
	return item, nil
}

func (r *Recorder) parseDate(raw string) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return inventory.Day(r.now().In(r.loc)), nil
	}
	d, err := inventory.ParseDate(raw)
	if err != nil {
		return time.Time{}, store.Invalid("date", "%v", err)
	}
	return d, nil
}
