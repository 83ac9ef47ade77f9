package recorder

import (
	"github.com/Spok95/warehouse-ledger/internal/domain/catalog"
	"github.com/Spok95/warehouse-ledger/internal/domain/inventory"
)

// Policy: правила пополнения и генерации кодов.
type Policy struct {
	DefaultTargetStock int64
	CodePrefix         string
	CodeAttempts       int
	AutoCreateItems    bool
}

func DefaultPolicy() Policy {
	return Policy{
		DefaultTargetStock: 500,
		CodePrefix:         "TXR",
		CodeAttempts:       5,
		AutoCreateItems:    true,
	}
}

func (p Policy) targetFor(it catalog.Item) int64 {
	if it.TargetStock > 0 {
		return it.TargetStock
	}
	return p.DefaultTargetStock
}

// apply заполняет производные поля транзакции.
// Ручной путь: остаток = max(до + приход − расход, 0).
// Авто-путь: хранится остаток после расхода, приход фиксирует объём
// пополнения и в остаток не прибавляется.
func apply(t *inventory.Transaction, before, qtyIn, qtyOut, target int64, autoIn bool) {
	after := max(before+qtyIn-qtyOut, 0)
	if autoIn {
		after = max(before-qtyOut, 0)
	}

	safety := float64(qtyOut) / 2
	flag := inventory.RestockNo
	var restock int64
	if float64(after) < safety {
		flag = inventory.RestockYes
		// отрицательно, если цель ниже остатка
		restock = target - after
	}
	if autoIn {
		qtyIn = 0
		if flag == inventory.RestockYes {
			qtyIn = max(restock, 0)
		}
	}

	t.StockBefore = before
	t.QtyIn = qtyIn
	t.QtyOut = qtyOut
	t.StockAfter = after
	t.SafetyStock = safety
	t.RestockFlag = flag
	t.RestockQty = restock
	t.TargetStock = target
	t.Month = inventory.MonthBucket(t.Date)
}
