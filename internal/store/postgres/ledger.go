package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/Spok95/warehouse-ledger/internal/domain/inventory"
	"github.com/Spok95/warehouse-ledger/internal/store"
)

const txColumns = `t.id, t.transaction_code, t.item_id, t.tx_date, t.qty_in, t.qty_out,
	t.stock_before, t.stock_after, t.bulan, t.safety_stock, t.restock_flag,
	t.restock_qty, t.target_stock, t.created_at`

func scanTx(row pgx.Row, extra ...any) (*inventory.Transaction, error) {
	var t inventory.Transaction
	dst := append([]any{
		&t.ID, &t.Code, &t.ItemID, &t.Date, &t.QtyIn, &t.QtyOut,
		&t.StockBefore, &t.StockAfter, &t.Month, &t.SafetyStock, &t.RestockFlag,
		&t.RestockQty, &t.TargetStock, &t.CreatedAt,
	}, extra...)
	if err := row.Scan(dst...); err != nil {
		return nil, err
	}
	t.Date = inventory.Day(t.Date)
	return &t, nil
}

// AppendTransaction: блокировка товара, чтение последней транзакции, вставка
// и обновление остатка: в одной транзакции БД.
func (s *Store) AppendTransaction(ctx context.Context, itemID int64, derive store.DeriveFunc) (*inventory.Transaction, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	item, err := scanItem(tx.QueryRow(ctx, `SELECT `+itemColumns+` FROM items WHERE id = $1 FOR UPDATE`, itemID))
	if err != nil {
		return nil, mapErr(err, fmt.Sprintf("item %d", itemID))
	}

	latest, err := scanTx(tx.QueryRow(ctx, `
		SELECT `+txColumns+`
		FROM transactions t
		WHERE t.item_id = $1
		ORDER BY t.tx_date DESC, t.id DESC
		LIMIT 1
	`, itemID))
	if errors.Is(err, pgx.ErrNoRows) {
		latest, err = nil, nil
	}
	if err != nil {
		return nil, err
	}

	next, err := derive(*item, latest)
	if err != nil {
		return nil, err
	}

	saved, err := scanTx(tx.QueryRow(ctx, `
		INSERT INTO transactions AS t (transaction_code, item_id, tx_date, qty_in, qty_out,
			stock_before, stock_after, bulan, safety_stock, restock_flag, restock_qty, target_stock)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		RETURNING `+txColumns,
		next.Code, itemID, next.Date, next.QtyIn, next.QtyOut,
		next.StockBefore, next.StockAfter, next.Month, next.SafetyStock, string(next.RestockFlag),
		next.RestockQty, next.TargetStock))
	if err != nil {
		return nil, mapErr(err, fmt.Sprintf("transaction %q", next.Code))
	}

	if _, err = tx.Exec(ctx, `UPDATE items SET stock = $2 WHERE id = $1`, itemID, saved.StockAfter); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return saved, nil
}

func (s *Store) GetTransaction(ctx context.Context, code string) (*inventory.Transaction, error) {
	t, err := scanTx(s.pool.QueryRow(ctx, `SELECT `+txColumns+` FROM transactions t WHERE t.transaction_code = $1`, code))
	if err != nil {
		return nil, mapErr(err, fmt.Sprintf("transaction %q", code))
	}
	return t, nil
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

// FindTransactionsByItem возвращает журнал товара по возрастанию даты,
// при равных датах: в порядке вставки.
func (s *Store) FindTransactionsByItem(ctx context.Context, itemID int64) ([]inventory.Transaction, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+txColumns+`
		FROM transactions t
		WHERE t.item_id = $1
		ORDER BY t.tx_date, t.id
	`, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []inventory.Transaction
	for rows.Next() {
		t, err := scanTx(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func (s *Store) UpdateTransaction(ctx context.Context, code string, mutate store.MutateFunc) (*inventory.Transaction, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	cur, err := scanTx(tx.QueryRow(ctx, `SELECT `+txColumns+` FROM transactions t WHERE t.transaction_code = $1 FOR UPDATE`, code))
	if err != nil {
		return nil, mapErr(err, fmt.Sprintf("transaction %q", code))
	}
	next, err := mutate(*cur)
	if err != nil {
		return nil, err
	}
	saved, err := scanTx(tx.QueryRow(ctx, `
		UPDATE transactions AS t SET
			tx_date = $2, qty_in = $3, qty_out = $4, stock_before = $5, stock_after = $6,
			bulan = $7, safety_stock = $8, restock_flag = $9, restock_qty = $10, target_stock = $11
		WHERE t.id = $1
		RETURNING `+txColumns,
		cur.ID, next.Date, next.QtyIn, next.QtyOut, next.StockBefore, next.StockAfter,
		next.Month, next.SafetyStock, string(next.RestockFlag), next.RestockQty, next.TargetStock))
	if err != nil {
		return nil, mapErr(err, fmt.Sprintf("transaction %q", code))
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return saved, nil
}

func (s *Store) DeleteTransaction(ctx context.Context, code string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM transactions WHERE transaction_code = $1`, code)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("transaction %q: %w", code, store.ErrNotFound)
	}
	return nil
}

func (s *Store) Entries(ctx context.Context, f inventory.Filter) ([]inventory.Entry, error) {
	q := `
		SELECT ` + txColumns + `, i.item_code, i.name, COALESCE(c.name, '')
		FROM transactions t
		JOIN items i ON i.id = t.item_id
		LEFT JOIN categories c ON c.id = i.category_id
	`
	var (
		where []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.ItemCode != "" {
		add("i.item_code = $%d", f.ItemCode)
	}
	if f.Code != "" {
		add("t.transaction_code = $%d", f.Code)
	}
	if !f.From.IsZero() {
		add("t.tx_date >= $%d", f.From)
	}
	if !f.To.IsZero() {
		add("t.tx_date <= $%d", f.To)
	}
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY t.tx_date, t.id"

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []inventory.Entry
	for rows.Next() {
		var e inventory.Entry
		t, err := scanTx(rows, &e.ItemCode, &e.ItemName, &e.CategoryName)
		if err != nil {
			return nil, err
		}
		e.Transaction = *t
		out = append(out, e)
	}
	return out, rows.Err()
}
