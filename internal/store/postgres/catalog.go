package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/Spok95/warehouse-ledger/internal/domain/catalog"
	"github.com/Spok95/warehouse-ledger/internal/store"
)

/* Categories */

func (s *Store) UpsertCategory(ctx context.Context, name string) (*catalog.Category, bool, error) {
	name, err := store.CategoryName(name)
	if err != nil {
		return nil, false, err
	}
	row := s.pool.QueryRow(ctx, `
		INSERT INTO categories (name) VALUES ($1)
		ON CONFLICT (name) DO NOTHING
		RETURNING id, name, created_at
	`, name)
	var c catalog.Category
	err = row.Scan(&c.ID, &c.Name, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		// уже есть: вернём существующую
		existing, err := s.categoryByName(ctx, name)
		return existing, false, err
	}
	if err != nil {
		return nil, false, mapErr(err, "upsert category")
	}
	return &c, true, nil
}

func (s *Store) categoryByName(ctx context.Context, name string) (*catalog.Category, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, name, created_at
		FROM categories WHERE name = $1
	`, name)
	var c catalog.Category
	if err := row.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
		return nil, mapErr(err, fmt.Sprintf("category %q", name))
	}
	return &c, nil
}

func (s *Store) GetCategory(ctx context.Context, id int64) (*catalog.Category, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, name, created_at
		FROM categories WHERE id = $1
	`, id)
	var c catalog.Category
	if err := row.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
		return nil, mapErr(err, fmt.Sprintf("category %d", id))
	}
	return &c, nil
}

func (s *Store) ListCategories(ctx context.Context) ([]catalog.Category, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, created_at
		FROM categories
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []catalog.Category
	for rows.Next() {
		var c catalog.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) RenameCategory(ctx context.Context, id int64, name string) (*catalog.Category, error) {
	name, err := store.CategoryName(name)
	if err != nil {
		return nil, err
	}
	row := s.pool.QueryRow(ctx, `
		UPDATE categories SET name = $2 WHERE id = $1
		RETURNING id, name, created_at
	`, id, name)
	var c catalog.Category
	if err := row.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
		return nil, mapErr(err, fmt.Sprintf("category %d", id))
	}
	return &c, nil
}

func (s *Store) DeleteCategory(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return mapErr(err, fmt.Sprintf("category %d", id))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("category %d: %w", id, store.ErrNotFound)
	}
	return nil
}

/* Items */

const itemColumns = `id, item_code, name, category_id, target_stock, stock, created_at`

func scanItem(row pgx.Row) (*catalog.Item, error) {
	var it catalog.Item
	if err := row.Scan(&it.ID, &it.Code, &it.Name, &it.CategoryID, &it.TargetStock, &it.Stock, &it.CreatedAt); err != nil {
		return nil, err
	}
	return &it, nil
}

func (s *Store) CreateItem(ctx context.Context, in catalog.NewItem) (*catalog.Item, error) {
	code := strings.TrimSpace(in.Code)
	if code == "" {
		return nil, store.Invalid("item_code", "must not be empty")
	}
	if in.TargetStock < 0 || in.InitialStock < 0 {
		return nil, store.Invalid("stock", "must not be negative")
	}
	it, err := scanItem(s.pool.QueryRow(ctx, `
		INSERT INTO items (item_code, name, category_id, target_stock, stock)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING `+itemColumns,
		code, in.Name, in.CategoryID, in.TargetStock, in.InitialStock))
	if err != nil {
		return nil, mapErr(err, fmt.Sprintf("item %q", code))
	}
	return it, nil
}

func (s *Store) GetItem(ctx context.Context, id int64) (*catalog.Item, error) {
	it, err := scanItem(s.pool.QueryRow(ctx, `SELECT `+itemColumns+` FROM items WHERE id = $1`, id))
	if err != nil {
		return nil, mapErr(err, fmt.Sprintf("item %d", id))
	}
	return it, nil
}

func (s *Store) GetItemByCode(ctx context.Context, code string) (*catalog.Item, error) {
	code = strings.TrimSpace(code)
	it, err := scanItem(s.pool.QueryRow(ctx, `SELECT `+itemColumns+` FROM items WHERE item_code = $1`, code))
	if err != nil {
		return nil, mapErr(err, fmt.Sprintf("item %q", code))
	}
	return it, nil
}

func (s *Store) ListItems(ctx context.Context) ([]catalog.Item, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+itemColumns+` FROM items ORDER BY item_code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []catalog.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *it)
	}
	return out, rows.Err()
}

func (s *Store) UpdateItem(ctx context.Context, id int64, upd catalog.ItemUpdate) (*catalog.Item, error) {
	if upd.TargetStock < 0 {
		return nil, store.Invalid("target_stock", "must not be negative")
	}
	it, err := scanItem(s.pool.QueryRow(ctx, `
		UPDATE items SET name = $2, category_id = $3, target_stock = $4
		WHERE id = $1
		RETURNING `+itemColumns,
		id, upd.Name, upd.CategoryID, upd.TargetStock))
	if err != nil {
		return nil, mapErr(err, fmt.Sprintf("item %d", id))
	}
	return it, nil
}

func (s *Store) DeleteItem(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM items WHERE id = $1`, id)
	if err != nil {
		return mapErr(err, fmt.Sprintf("item %d", id))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("item %d: %w", id, store.ErrNotFound)
	}
	return nil
}
