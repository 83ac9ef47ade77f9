// Package report собирает выгрузку журнала и аналитики в Excel.
package report

import (
	"bytes"
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/Spok95/warehouse-ledger/internal/analytics"
	"github.com/Spok95/warehouse-ledger/internal/domain/inventory"
)

const (
	SheetLedger     = "Ledger"
	SheetTrend      = "Trend"
	SheetCategories = "Categories"

	// NA: значение неопределённого отношения.
	NA = "N/A"
)

var ledgerHeader = []interface{}{
	"transaction_code", "date", "item_code", "item_name", "category",
	"qty_in", "qty_out", "stock_before", "stock_after", "bulan",
	"safety_stock", "restock_flag", "restock_qty",
}

type Source interface {
	Entries(ctx context.Context, f inventory.Filter) ([]inventory.Entry, error)
}

type Builder struct {
	src    Source
	engine *analytics.Engine
}

func NewBuilder(src Source, engine *analytics.Engine) *Builder {
	return &Builder{src: src, engine: engine}
}

// Ledger строит книгу: журнал за период (f), тренд расхода и сводку по категориям
// по всему журналу.
func (b *Builder) Ledger(ctx context.Context, f inventory.Filter) ([]byte, error) {
	entries, err := b.src.Entries(ctx, f)
	if err != nil {
		return nil, err
	}
	trend, err := b.engine.TrendOut(ctx)
	if err != nil {
		return nil, err
	}
	cats, err := b.engine.CategoryTurnover(ctx)
	if err != nil {
		return nil, err
	}
	return Build(entries, trend, cats)
}

// Build пишет три листа и возвращает содержимое .xlsx.
func Build(entries []inventory.Entry, trend []analytics.MonthTotal, cats []analytics.CategoryTurnover) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	// лист по умолчанию переименовываем в Ledger
	if err := f.SetSheetName(f.GetSheetName(f.GetActiveSheetIndex()), SheetLedger); err != nil {
		return nil, err
	}
	for _, name := range []string{SheetTrend, SheetCategories} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, err
		}
	}

	ledger := make([][]interface{}, 0, len(entries)+1)
	ledger = append(ledger, ledgerHeader)
	for _, e := range entries {
		ledger = append(ledger, []interface{}{
			e.Code, e.Date.Format(inventory.DateLayoutISO), e.ItemCode, e.ItemName, e.CategoryName,
			e.QtyIn, e.QtyOut, e.StockBefore, e.StockAfter, e.Month,
			e.SafetyStock, string(e.RestockFlag), e.RestockQty,
		})
	}
	if err := writeRows(f, SheetLedger, ledger); err != nil {
		return nil, err
	}

	trendRows := [][]interface{}{{"bulan", "total_out"}}
	for _, m := range trend {
		trendRows = append(trendRows, []interface{}{m.Month, m.TotalOut})
	}
	if err := writeRows(f, SheetTrend, trendRows); err != nil {
		return nil, err
	}

	catRows := [][]interface{}{{"category", "total_in", "total_out", "total_avg_stock", "turnover_ratio", "out_in_ratio"}}
	for _, c := range cats {
		catRows = append(catRows, []interface{}{
			c.Category, c.TotalIn, c.TotalOut, c.TotalAvgStock, cell(c.TurnoverRatio), cell(c.OutInRatio),
		})
	}
	if err := writeRows(f, SheetCategories, catRows); err != nil {
		return nil, err
	}

	buf := &bytes.Buffer{}
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, r := range rows {
		addr, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, addr, &r); err != nil {
			return fmt.Errorf("%s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func cell(v *float64) interface{} {
	if v == nil {
		return NA
	}
	return *v
}
