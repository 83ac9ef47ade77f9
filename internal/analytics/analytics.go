// Package analytics считает агрегаты по журналу: частоту движений, интервалы
// пополнения, тренд расхода, оборачиваемость и прогноз.
//
// Все отношения с нулевым знаменателем возвращаются как nil, а не как ошибка.
package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/Spok95/warehouse-ledger/internal/domain/inventory"
	"github.com/Spok95/warehouse-ledger/internal/infra/metrics"
	"github.com/Spok95/warehouse-ledger/internal/store"
)

const (
	MetricFrequency        = "frequency"
	MetricRestockInterval  = "restock-interval"
	MetricTrendOut         = "trend-out"
	MetricTurnover         = "turnover"
	MetricInOutRatio       = "in-out-ratio"
	MetricForecast         = "forecast"
	MetricCategoryTurnover = "category-turnover"
	MetricCategoryOutTrend = "category-out-trend"
	MetricCategoryRestocks = "category-restock-frequency"
)

const DefaultForecastDaysAhead = 30

// Metrics: имена, доступные через Compute.
var Metrics = []string{
	MetricFrequency,
	MetricRestockInterval,
	MetricTrendOut,
	MetricTurnover,
	MetricInOutRatio,
	MetricForecast,
	MetricCategoryTurnover,
	MetricCategoryOutTrend,
	MetricCategoryRestocks,
}

// Source: часть хранилища, нужная аналитике.
type Source interface {
	Entries(ctx context.Context, f inventory.Filter) ([]inventory.Entry, error)
}

type Params struct {
	ItemCode  string
	DaysAhead int
}

type Engine struct {
	src          Source
	log          *slog.Logger
	metrics      *metrics.Metrics
	forecastDays int
}

func New(src Source, log *slog.Logger, m *metrics.Metrics) *Engine {
	return &Engine{src: src, log: log, metrics: m, forecastDays: DefaultForecastDaysAhead}
}

// WithForecastDays задаёт горизонт прогноза по умолчанию.
func (e *Engine) WithForecastDays(days int) *Engine {
	if days > 0 {
		e.forecastDays = days
	}
	return e
}

// Compute вызывает метрику по имени.
func (e *Engine) Compute(ctx context.Context, name string, p Params) (any, error) {
	switch name {
	case MetricFrequency:
		return e.Frequency(ctx)
	case MetricRestockInterval:
		return e.RestockIntervals(ctx)
	case MetricTrendOut:
		return e.TrendOut(ctx)
	case MetricTurnover:
		return e.Turnover(ctx)
	case MetricInOutRatio:
		return e.InOutRatio(ctx)
	case MetricForecast:
		return e.Forecast(ctx, p.ItemCode, p.DaysAhead)
	case MetricCategoryTurnover:
		return e.CategoryTurnover(ctx)
	case MetricCategoryOutTrend:
		return e.CategoryOutTrend(ctx)
	case MetricCategoryRestocks:
		return e.CategoryRestockFrequency(ctx)
	}
	return nil, store.Invalid("metric", "unknown metric %q", name)
}

func (e *Engine) load(ctx context.Context, metric string, f inventory.Filter) ([]inventory.Entry, func(), error) {
	started := time.Now()
	entries, err := e.src.Entries(ctx, f)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: load ledger: %w", metric, err)
	}
	done := func() {
		e.metrics.ObserveAnalytics(metric, started)
		e.log.Debug("analytics computed", "metric", metric, "rows", len(entries), "took", time.Since(started))
	}
	return entries, done, nil
}

func ratio(num, den float64) *float64 {
	if den == 0 {
		return nil
	}
	v := num / den
	return &v
}

// itemKeys: коды товаров в стабильном порядке.
func itemKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
