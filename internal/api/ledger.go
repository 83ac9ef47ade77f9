package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Spok95/warehouse-ledger/internal/analytics"
	"github.com/Spok95/warehouse-ledger/internal/domain/inventory"
	"github.com/Spok95/warehouse-ledger/internal/recorder"
	"github.com/Spok95/warehouse-ledger/internal/store"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type autoInput struct {
	ItemCode string `json:"item_code"`
	Date     string `json:"date"`
	QtyOut   int64  `json:"qty_out"`
	ItemName string `json:"item_name"`
	Category string `json:"category"`
}

type manualInput struct {
	ItemCode string `json:"item_code"`
	Date     string `json:"date"`
	QtyIn    int64  `json:"qty_in"`
	QtyOut   int64  `json:"qty_out"`
	Code     string `json:"transaction_code"`
}

type updateInput struct {
	QtyOut int64  `json:"qty_out"`
	Date   string `json:"date"`
}

// ledgerFilter читает ?item=&code=&from=&to=.
func ledgerFilter(c *gin.Context) (inventory.Filter, error) {
	f := inventory.Filter{ItemCode: c.Query("item"), Code: c.Query("code")}
	for _, p := range []struct {
		key string
		dst *time.Time
	}{{"from", &f.From}, {"to", &f.To}} {
		raw := c.Query(p.key)
		if raw == "" {
			continue
		}
		d, err := inventory.ParseDate(raw)
		if err != nil {
			return f, store.Invalid(p.key, "%v", err)
		}
		*p.dst = d
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From) {
		return f, store.Invalid("to", "must not be before from")
	}
	return f, nil
}

func (h *Handler) listTransactions(c *gin.Context) {
	f, err := ledgerFilter(c)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	entries, err := h.store.Entries(c.Request.Context(), f)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	if entries == nil {
		entries = []inventory.Entry{}
	}
	ok(c, http.StatusOK, entries)
}

func (h *Handler) recordAuto(c *gin.Context) {
	var in autoInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	t, err := h.recorder.RecordAuto(c.Request.Context(), recorder.AutoRequest{
		ItemCode:     in.ItemCode,
		Date:         in.Date,
		QtyOut:       in.QtyOut,
		ItemName:     in.ItemName,
		CategoryName: in.Category,
	})
	if err != nil {
		fail(c, h.log, err)
		return
	}
	ok(c, http.StatusCreated, t)
}

func (h *Handler) recordManual(c *gin.Context) {
	var in manualInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	t, err := h.recorder.RecordManual(c.Request.Context(), recorder.ManualRequest{
		ItemCode: in.ItemCode,
		Date:     in.Date,
		QtyIn:    in.QtyIn,
		QtyOut:   in.QtyOut,
		Code:     in.Code,
	})
	if err != nil {
		fail(c, h.log, err)
		return
	}
	ok(c, http.StatusCreated, t)
}

func (h *Handler) getTransaction(c *gin.Context) {
	t, err := h.store.GetTransaction(c.Request.Context(), c.Param("code"))
	if err != nil {
		fail(c, h.log, err)
		return
	}
	ok(c, http.StatusOK, t)
}

func (h *Handler) updateTransaction(c *gin.Context) {
	var in updateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	t, err := h.recorder.Update(c.Request.Context(), c.Param("code"), recorder.UpdateRequest{QtyOut: in.QtyOut, Date: in.Date})
	if err != nil {
		fail(c, h.log, err)
		return
	}
	ok(c, http.StatusOK, t)
}

func (h *Handler) deleteTransaction(c *gin.Context) {
	if err := h.recorder.Delete(c.Request.Context(), c.Param("code")); err != nil {
		fail(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

/* Analytics */

func (h *Handler) listMetrics(c *gin.Context) {
	ok(c, http.StatusOK, analytics.Metrics)
}

func (h *Handler) computeMetric(c *gin.Context) {
	p := analytics.Params{ItemCode: c.Query("item")}
	if raw := c.Query("days"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil {
			fail(c, h.log, store.Invalid("days", "must be an integer"))
			return
		}
		p.DaysAhead = days
	}
	res, err := h.engine.Compute(c.Request.Context(), c.Param("metric"), p)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	ok(c, http.StatusOK, res)
}

func (h *Handler) ledgerReport(c *gin.Context) {
	f, err := ledgerFilter(c)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	data, err := h.reports.Ledger(c.Request.Context(), f)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	name := fmt.Sprintf("ledger_%s.xlsx", time.Now().Format("20060102_150405"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, xlsxContentType, data)
}
