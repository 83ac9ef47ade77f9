package inventory

import "time"

type RestockFlag string

const (
	RestockYes RestockFlag = "YES"
	RestockNo  RestockFlag = "NO"
)

type Transaction struct {
	ID          int64       `json:"id"`
	Code        string      `json:"transaction_code"`
	ItemID      int64       `json:"item_id"`
	Date        time.Time   `json:"date"`
	QtyIn       int64       `json:"qty_in"`
	QtyOut      int64       `json:"qty_out"`
	StockBefore int64       `json:"stock_before"`
	StockAfter  int64       `json:"stock_after"`
	Month       string      `json:"bulan"`
	SafetyStock float64     `json:"safety_stock"`
	RestockFlag RestockFlag `json:"restock_flag"`
	RestockQty  int64       `json:"restock_qty"`
	TargetStock int64       `json:"target_stock"`
	CreatedAt   time.Time   `json:"created_at"`
}

// Entry: строка журнала вместе с товаром и категорией (для аналитики и отчётов).
type Entry struct {
	Transaction
	ItemCode     string `json:"item_code"`
	ItemName     string `json:"item_name"`
	CategoryName string `json:"category_name"`
}

// Filter ограничивает выборку журнала; пустые поля не фильтруют.
type Filter struct {
	ItemCode string
	Code     string
	From     time.Time
	To       time.Time
}

// Match проверяет строку журнала против фильтра.
func (f Filter) Match(itemCode string, t Transaction) bool {
	if f.ItemCode != "" && f.ItemCode != itemCode {
		return false
	}
	if f.Code != "" && f.Code != t.Code {
		return false
	}
	if !f.From.IsZero() && t.Date.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && t.Date.After(f.To) {
		return false
	}
	return true
}
