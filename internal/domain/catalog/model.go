package catalog

import (
	"strings"
	"time"
)

// Uncategorized: ключ группировки для товаров без категории.
const Uncategorized = "uncategorized"

type Category struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type Item struct {
	ID          int64     `json:"id"`
	Code        string    `json:"item_code"`
	Name        string    `json:"name"`
	CategoryID  *int64    `json:"category_id"`
	TargetStock int64     `json:"target_stock"`
	Stock       int64     `json:"stock"`
	CreatedAt   time.Time `json:"created_at"`
}

type NewItem struct {
	Code         string
	Name         string
	CategoryID   *int64
	TargetStock  int64
	InitialStock int64
}

type ItemUpdate struct {
	Name        string
	CategoryID  *int64
	TargetStock int64
}

// NormalizeName приводит имя категории к виду, по которому проверяется уникальность.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// GroupKey возвращает ключ категории для аналитики.
func GroupKey(name string) string {
	if n := NormalizeName(name); n != "" {
		return n
	}
	return Uncategorized
}
