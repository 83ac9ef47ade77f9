// Package store описывает хранилище журнала: категории, товары и транзакции.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/Spok95/warehouse-ledger/internal/domain/catalog"
	"github.com/Spok95/warehouse-ledger/internal/domain/inventory"
)

var (
	ErrNotFound = errors.New("store: not found")
	ErrConflict = errors.New("store: conflict")
)

// ValidationError: некорректные входные данные.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
}

func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// CategoryName нормализует имя категории; пустое имя и ключ товаров без
// категории недопустимы.
func CategoryName(raw string) (string, error) {
	name := catalog.NormalizeName(raw)
	switch name {
	case "":
		return "", Invalid("name", "must not be empty")
	case catalog.Uncategorized:
		return "", Invalid("name", "%q is reserved for items without a category", name)
	}
	return name, nil
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// DeriveFunc строит новую транзакцию по товару (уже заблокированному) и последней
// транзакции товара (nil, если журнал пуст). StockAfter результата становится
// новым остатком товара.
type DeriveFunc func(item catalog.Item, latest *inventory.Transaction) (inventory.Transaction, error)

// MutateFunc переписывает поля существующей транзакции.
type MutateFunc func(tx inventory.Transaction) (inventory.Transaction, error)

type Categories interface {
	UpsertCategory(ctx context.Context, name string) (*catalog.Category, bool, error)
	GetCategory(ctx context.Context, id int64) (*catalog.Category, error)
	ListCategories(ctx context.Context) ([]catalog.Category, error)
	RenameCategory(ctx context.Context, id int64, name string) (*catalog.Category, error)
	DeleteCategory(ctx context.Context, id int64) error
}

type Items interface {
	CreateItem(ctx context.Context, in catalog.NewItem) (*catalog.Item, error)
	GetItem(ctx context.Context, id int64) (*catalog.Item, error)
	GetItemByCode(ctx context.Context, code string) (*catalog.Item, error)
	ListItems(ctx context.Context) ([]catalog.Item, error)
	UpdateItem(ctx context.Context, id int64, upd catalog.ItemUpdate) (*catalog.Item, error)
	DeleteItem(ctx context.Context, id int64) error
}

type Ledger interface {
	AppendTransaction(ctx context.Context, itemID int64, derive DeriveFunc) (*inventory.Transaction, error)
	GetTransaction(ctx context.Context, code string) (*inventory.Transaction, error)
	ListTransactions(ctx context.Context, f inventory.Filter) ([]inventory.Transaction, error)
	FindTransactionsByItem(ctx context.Context, itemID int64) ([]inventory.Transaction, error)
	UpdateTransaction(ctx context.Context, code string, mutate MutateFunc) (*inventory.Transaction, error)
	DeleteTransaction(ctx context.Context, code string) error
	Entries(ctx context.Context, f inventory.Filter) ([]inventory.Entry, error)
}

type Store interface {
	Categories
	Items
	Ledger
}
