// Package api отдаёт HTTP-интерфейс журнала поверх gin.
package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/Spok95/warehouse-ledger/internal/analytics"
	"github.com/Spok95/warehouse-ledger/internal/recorder"
	"github.com/Spok95/warehouse-ledger/internal/report"
	"github.com/Spok95/warehouse-ledger/internal/store"
)

type Handler struct {
	store    store.Store
	recorder *recorder.Recorder
	engine   *analytics.Engine
	reports  *report.Builder
	log      *slog.Logger
}

func New(st store.Store, rec *recorder.Recorder, engine *analytics.Engine, reports *report.Builder, log *slog.Logger) *Handler {
	return &Handler{store: st, recorder: rec, engine: engine, reports: reports, log: log}
}

// Register вешает маршруты на группу /api.
func (h *Handler) Register(r gin.IRouter) {
	api := r.Group("/api")

	categories := api.Group("/categories")
	{
		categories.GET("", h.listCategories)
		categories.POST("", h.createCategory)
		categories.GET("/:id", h.getCategory)
		categories.PUT("/:id", h.renameCategory)
		categories.DELETE("/:id", h.deleteCategory)
	}

	items := api.Group("/items")
	{
		items.GET("", h.listItems)
		items.POST("", h.createItem)
		items.GET("/:code", h.getItem)
		items.PUT("/:code", h.updateItem)
		items.DELETE("/:code", h.deleteItem)
	}

	txs := api.Group("/transactions")
	{
		txs.GET("", h.listTransactions)
		txs.POST("", h.recordManual)
		txs.POST("/auto", h.recordAuto)
		txs.GET("/:code", h.getTransaction)
		txs.PUT("/:code", h.updateTransaction)
		txs.DELETE("/:code", h.deleteTransaction)
	}

	api.GET("/analytics", h.listMetrics)
	api.GET("/analytics/:metric", h.computeMetric)
	api.GET("/reports/ledger.xlsx", h.ledgerReport)
}
