package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/Spok95/warehouse-ledger/internal/domain/inventory"
	"github.com/Spok95/warehouse-ledger/internal/store"
)

type ItemFrequency struct {
	ItemCode     string  `json:"item_code"`
	ItemName     string  `json:"item_name"`
	Transactions int64   `json:"transactions"`
	AvgPerDay    float64 `json:"avg_per_day"`
}

type FrequencyReport struct {
	TotalDays int64           `json:"total_days"`
	Items     []ItemFrequency `json:"items"`
}

type RestockInterval struct {
	ItemCode string   `json:"item_code"`
	ItemName string   `json:"item_name"`
	Restocks int64    `json:"restocks"`
	AvgDays  *float64 `json:"avg_days"`
}

type MonthTotal struct {
	Month    string `json:"bulan"`
	TotalOut int64  `json:"total_out"`
}

type Turnover struct {
	TotalOut      int64    `json:"total_out"`
	TotalAvgStock float64  `json:"total_avg_stock"`
	Ratio         *float64 `json:"turnover_ratio"`
}

type InOutRatio struct {
	TotalIn  int64    `json:"total_in"`
	TotalOut int64    `json:"total_out"`
	Ratio    *float64 `json:"ratio"`
}

type Forecast struct {
	ItemCode     string  `json:"item_code"`
	TotalOut     int64   `json:"total_out"`
	Days         int64   `json:"days"`
	AvgOutPerDay float64 `json:"avg_out_per_day"`
	DaysAhead    int     `json:"days_ahead"`
	ForecastQty  float64 `json:"forecast_qty"`
}

// Frequency: число движений по товару и среднее в день по всему журналу.
func (e *Engine) Frequency(ctx context.Context) (*FrequencyReport, error) {
	entries, done, err := e.load(ctx, MetricFrequency, inventory.Filter{})
	if err != nil {
		return nil, err
	}
	defer done()

	days := make(map[time.Time]struct{})
	counts := make(map[string]*ItemFrequency)
	for _, en := range entries {
		days[en.Date] = struct{}{}
		if en.QtyIn <= 0 && en.QtyOut <= 0 {
			continue
		}
		f, ok := counts[en.ItemCode]
		if !ok {
			f = &ItemFrequency{ItemCode: en.ItemCode, ItemName: en.ItemName}
			counts[en.ItemCode] = f
		}
		f.Transactions++
	}

	rep := &FrequencyReport{TotalDays: int64(len(days)), Items: []ItemFrequency{}}
	for _, code := range itemKeys(counts) {
		f := counts[code]
		if rep.TotalDays > 0 {
			f.AvgPerDay = float64(f.Transactions) / float64(rep.TotalDays)
		}
		rep.Items = append(rep.Items, *f)
	}
	return rep, nil
}

// RestockIntervals: средний интервал в днях между приходами товара.
func (e *Engine) RestockIntervals(ctx context.Context) ([]RestockInterval, error) {
	entries, done, err := e.load(ctx, MetricRestockInterval, inventory.Filter{})
	if err != nil {
		return nil, err
	}
	defer done()

	names := make(map[string]string)
	dates := make(map[string][]time.Time)
	for _, en := range entries {
		if en.QtyIn <= 0 {
			continue
		}
		names[en.ItemCode] = en.ItemName
		dates[en.ItemCode] = append(dates[en.ItemCode], en.Date)
	}

	out := make([]RestockInterval, 0, len(dates))
	for _, code := range itemKeys(dates) {
		ds := dates[code]
		ri := RestockInterval{ItemCode: code, ItemName: names[code], Restocks: int64(len(ds))}
		// журнал уже отсортирован по дате
		if len(ds) >= 2 {
			var sum int64
			for i := 1; i < len(ds); i++ {
				sum += inventory.DaysBetween(ds[i-1], ds[i])
			}
			ri.AvgDays = ratio(float64(sum), float64(len(ds)-1))
		}
		out = append(out, ri)
	}
	return out, nil
}

// TrendOut: расход по месяцам в календарном порядке.
func (e *Engine) TrendOut(ctx context.Context) ([]MonthTotal, error) {
	entries, done, err := e.load(ctx, MetricTrendOut, inventory.Filter{})
	if err != nil {
		return nil, err
	}
	defer done()
	return monthTotals(entries), nil
}

func monthTotals(entries []inventory.Entry) []MonthTotal {
	sums := make(map[string]int64)
	for _, en := range entries {
		if en.QtyOut == 0 {
			continue
		}
		sums[bucketOf(en)] += en.QtyOut
	}
	months := make([]string, 0, len(sums))
	for m := range sums {
		months = append(months, m)
	}
	inventory.SortMonths(months)

	out := make([]MonthTotal, 0, len(months))
	for _, m := range months {
		out = append(out, MonthTotal{Month: m, TotalOut: sums[m]})
	}
	return out
}

func bucketOf(en inventory.Entry) string {
	if en.Month != "" {
		return en.Month
	}
	return inventory.MonthBucket(en.Date)
}

// Turnover: общий расход к сумме средних остатков по товарам.
func (e *Engine) Turnover(ctx context.Context) (*Turnover, error) {
	entries, done, err := e.load(ctx, MetricTurnover, inventory.Filter{})
	if err != nil {
		return nil, err
	}
	defer done()

	r := turnoverOf(entries)
	return &r, nil
}

type stockRange struct {
	minBefore int64
	maxAfter  int64
}

func turnoverOf(entries []inventory.Entry) Turnover {
	var t Turnover
	ranges := make(map[string]*stockRange)
	for _, en := range entries {
		t.TotalOut += en.QtyOut
		r, ok := ranges[en.ItemCode]
		if !ok {
			ranges[en.ItemCode] = &stockRange{minBefore: en.StockBefore, maxAfter: en.StockAfter}
			continue
		}
		r.minBefore = min(r.minBefore, en.StockBefore)
		r.maxAfter = max(r.maxAfter, en.StockAfter)
	}
	for _, r := range ranges {
		t.TotalAvgStock += float64(r.minBefore+r.maxAfter) / 2
	}
	t.Ratio = ratio(float64(t.TotalOut), t.TotalAvgStock)
	return t
}

// InOutRatio: общий расход к общему приходу.
func (e *Engine) InOutRatio(ctx context.Context) (*InOutRatio, error) {
	entries, done, err := e.load(ctx, MetricInOutRatio, inventory.Filter{})
	if err != nil {
		return nil, err
	}
	defer done()

	var r InOutRatio
	for _, en := range entries {
		r.TotalIn += en.QtyIn
		r.TotalOut += en.QtyOut
	}
	r.Ratio = ratio(float64(r.TotalOut), float64(r.TotalIn))
	return &r, nil
}

// Forecast: ожидаемый расход товара на daysAhead дней; 0: горизонт по умолчанию.
func (e *Engine) Forecast(ctx context.Context, itemCode string, daysAhead int) (*Forecast, error) {
	if itemCode == "" {
		return nil, store.Invalid("item", "must not be empty")
	}
	if daysAhead < 0 {
		return nil, store.Invalid("days", "must not be negative, got %d", daysAhead)
	}
	if daysAhead == 0 {
		daysAhead = e.forecastDays
	}

	entries, done, err := e.load(ctx, MetricForecast, inventory.Filter{ItemCode: itemCode})
	if err != nil {
		return nil, err
	}
	defer done()
	if len(entries) == 0 {
		return nil, fmt.Errorf("forecast for item %q: no transactions: %w", itemCode, store.ErrNotFound)
	}

	var (
		total    int64
		from, to time.Time
	)
	for _, en := range entries {
		total += en.QtyOut
		if en.Date.IsZero() {
			continue
		}
		if from.IsZero() || en.Date.Before(from) {
			from = en.Date
		}
		if to.IsZero() || en.Date.After(to) {
			to = en.Date
		}
	}
	days := int64(1)
	if !from.IsZero() {
		days = inventory.DaysBetween(from, to) + 1
	}

	f := &Forecast{
		ItemCode:     itemCode,
		TotalOut:     total,
		Days:         days,
		AvgOutPerDay: float64(total) / float64(days),
		DaysAhead:    daysAhead,
	}
	f.ForecastQty = f.AvgOutPerDay * float64(daysAhead)
	return f, nil
}
