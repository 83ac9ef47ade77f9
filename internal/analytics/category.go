package analytics

import (
	"context"

	"github.com/Spok95/warehouse-ledger/internal/domain/catalog"
	"github.com/Spok95/warehouse-ledger/internal/domain/inventory"
)

type CategoryTurnover struct {
	Category      string   `json:"category"`
	TotalIn       int64    `json:"total_in"`
	TotalOut      int64    `json:"total_out"`
	TotalAvgStock float64  `json:"total_avg_stock"`
	TurnoverRatio *float64 `json:"turnover_ratio"`
	OutInRatio    *float64 `json:"out_in_ratio"`
}

type CategoryTrend struct {
	Category string       `json:"category"`
	Months   []MonthTotal `json:"months"`
}

type MonthlyRestocks struct {
	Month      string           `json:"bulan"`
	Categories map[string]int64 `json:"categories"`
}

// byCategory группирует строки по нормализованному имени категории.
func byCategory(entries []inventory.Entry) map[string][]inventory.Entry {
	groups := make(map[string][]inventory.Entry)
	for _, en := range entries {
		key := catalog.GroupKey(en.CategoryName)
		groups[key] = append(groups[key], en)
	}
	return groups
}

func (e *Engine) CategoryTurnover(ctx context.Context) ([]CategoryTurnover, error) {
	entries, done, err := e.load(ctx, MetricCategoryTurnover, inventory.Filter{})
	if err != nil {
		return nil, err
	}
	defer done()

	groups := byCategory(entries)
	out := make([]CategoryTurnover, 0, len(groups))
	for _, name := range itemKeys(groups) {
		rows := groups[name]
		t := turnoverOf(rows)
		ct := CategoryTurnover{
			Category:      name,
			TotalOut:      t.TotalOut,
			TotalAvgStock: t.TotalAvgStock,
			TurnoverRatio: t.Ratio,
		}
		for _, en := range rows {
			ct.TotalIn += en.QtyIn
		}
		ct.OutInRatio = ratio(float64(ct.TotalOut), float64(ct.TotalIn))
		out = append(out, ct)
	}
	return out, nil
}

func (e *Engine) CategoryOutTrend(ctx context.Context) ([]CategoryTrend, error) {
	entries, done, err := e.load(ctx, MetricCategoryOutTrend, inventory.Filter{})
	if err != nil {
		return nil, err
	}
	defer done()

	groups := byCategory(entries)
	out := make([]CategoryTrend, 0, len(groups))
	for _, name := range itemKeys(groups) {
		months := monthTotals(groups[name])
		if len(months) == 0 {
			continue
		}
		out = append(out, CategoryTrend{Category: name, Months: months})
	}
	return out, nil
}

// CategoryRestockFrequency: число транзакций с флагом YES по месяцам и категориям.
func (e *Engine) CategoryRestockFrequency(ctx context.Context) ([]MonthlyRestocks, error) {
	entries, done, err := e.load(ctx, MetricCategoryRestocks, inventory.Filter{})
	if err != nil {
		return nil, err
	}
	defer done()

	counts := make(map[string]map[string]int64)
	for _, en := range entries {
		if en.RestockFlag != inventory.RestockYes {
			continue
		}
		m := bucketOf(en)
		if counts[m] == nil {
			counts[m] = make(map[string]int64)
		}
		counts[m][catalog.GroupKey(en.CategoryName)]++
	}

	months := make([]string, 0, len(counts))
	for m := range counts {
		months = append(months, m)
	}
	inventory.SortMonths(months)

	out := make([]MonthlyRestocks, 0, len(months))
	for _, m := range months {
		out = append(out, MonthlyRestocks{Month: m, Categories: counts[m]})
	}
	return out, nil
}
