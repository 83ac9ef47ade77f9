package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"github.com/Spok95/warehouse-ledger/internal/analytics"
	"github.com/Spok95/warehouse-ledger/internal/infra/logger"
	"github.com/Spok95/warehouse-ledger/internal/recorder"
	"github.com/Spok95/warehouse-ledger/internal/report"
	"github.com/Spok95/warehouse-ledger/internal/store/memory"
)

func init() { gin.SetMode(gin.TestMode) }

type seqCodes struct{ n int }

func (s *seqCodes) Next() string {
	s.n++
	return fmt.Sprintf("TXR%06d", 100000+s.n)
}

func newRouter(t *testing.T) *gin.Engine {
	t.Helper()
	st := memory.New()
	log := logger.Nop()
	clock := func() time.Time { return time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC) }
	rec := recorder.New(st, log, recorder.WithCodes(&seqCodes{}), recorder.WithClock(clock))
	engine := analytics.New(st, log, nil)

	r := gin.New()
	r.Use(RequestID(), AccessLog(log))
	New(st, rec, engine, report.NewBuilder(st, engine), log).Register(r)
	return r
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
	Field string          `json:"field"`
}

func do(t *testing.T, r http.Handler, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 && w.Header().Get("Content-Type") != xlsxContentType {
		_ = json.Unmarshal(w.Body.Bytes(), &env)
	}
	return w, env
}

func TestCategoriesCRUD(t *testing.T) {
	r := newRouter(t)

	w, env := do(t, r, http.MethodPost, "/api/categories", gin.H{"name": " Masker "})
	if w.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", w.Code, w.Body)
	}
	var cat struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}
	_ = json.Unmarshal(env.Data, &cat)
	if cat.Name != "masker" {
		t.Fatalf("name not normalized: %q", cat.Name)
	}

	if w, _ := do(t, r, http.MethodPost, "/api/categories", gin.H{"name": "MASKER"}); w.Code != http.StatusOK {
		t.Fatalf("repeat create should return existing with 200, got %d", w.Code)
	}
	if w, env := do(t, r, http.MethodPost, "/api/categories", gin.H{"name": "  "}); w.Code != http.StatusBadRequest || env.Field != "name" {
		t.Fatalf("blank name: %d %+v", w.Code, env)
	}
	if w, env := do(t, r, http.MethodPost, "/api/categories", gin.H{"name": "Uncategorized"}); w.Code != http.StatusBadRequest || env.Field != "name" {
		t.Fatalf("reserved name: %d %+v", w.Code, env)
	}
	if w, _ := do(t, r, http.MethodGet, "/api/categories/abc", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("bad id: %d", w.Code)
	}
	if w, _ := do(t, r, http.MethodDelete, "/api/categories/1", nil); w.Code != http.StatusNoContent {
		t.Fatalf("delete: %d", w.Code)
	}
	if w, _ := do(t, r, http.MethodGet, "/api/categories/1", nil); w.Code != http.StatusNotFound {
		t.Fatalf("get deleted: %d", w.Code)
	}
}

func TestItemsCRUD(t *testing.T) {
	r := newRouter(t)
	item := gin.H{"item_code": "MSK-01", "name": "Sheet mask", "category": "Masker", "target_stock": 300, "stock": 50}

	if w, _ := do(t, r, http.MethodPost, "/api/items", item); w.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", w.Code, w.Body)
	}
	if w, _ := do(t, r, http.MethodPost, "/api/items", item); w.Code != http.StatusConflict {
		t.Fatalf("duplicate: %d", w.Code)
	}

	w, env := do(t, r, http.MethodPut, "/api/items/MSK-01", gin.H{"target_stock": 400})
	if w.Code != http.StatusOK {
		t.Fatalf("update: %d %s", w.Code, w.Body)
	}
	var got struct {
		Name        string `json:"name"`
		TargetStock int64  `json:"target_stock"`
		Stock       int64  `json:"stock"`
	}
	_ = json.Unmarshal(env.Data, &got)
	if got.Name != "Sheet mask" || got.TargetStock != 400 || got.Stock != 50 {
		t.Fatalf("unexpected item %+v", got)
	}

	if w, _ := do(t, r, http.MethodDelete, "/api/items/MSK-01", nil); w.Code != http.StatusNoContent {
		t.Fatalf("delete: %d", w.Code)
	}
	if w, _ := do(t, r, http.MethodGet, "/api/items/MSK-01", nil); w.Code != http.StatusNotFound {
		t.Fatalf("get deleted: %d", w.Code)
	}
}

func TestTransactionsFlow(t *testing.T) {
	r := newRouter(t)

	w, env := do(t, r, http.MethodPost, "/api/transactions/auto", gin.H{
		"item_code": "SRM-01", "date": "2024-01-05", "qty_out": 400, "category": "Serum",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("auto: %d %s", w.Code, w.Body)
	}
	var tx struct {
		Code        string `json:"transaction_code"`
		StockAfter  int64  `json:"stock_after"`
		RestockFlag string `json:"restock_flag"`
		Month       string `json:"bulan"`
	}
	_ = json.Unmarshal(env.Data, &tx)
	// новый товар: остаток 0, флаг пополнения до цели по умолчанию
	if tx.Code != "TXR100001" || tx.Month != "Jan-2024" || tx.RestockFlag != "YES" || tx.StockAfter != 0 {
		t.Fatalf("unexpected auto transaction %+v", tx)
	}

	if w, _ := do(t, r, http.MethodPost, "/api/transactions", gin.H{
		"item_code": "SRM-01", "date": "2024-01-06", "qty_in": 10, "transaction_code": tx.Code,
	}); w.Code != http.StatusConflict {
		t.Fatalf("supplied duplicate code: %d", w.Code)
	}
	if w, env := do(t, r, http.MethodPost, "/api/transactions", gin.H{
		"item_code": "SRM-01", "date": "not a date", "qty_in": 10,
	}); w.Code != http.StatusBadRequest || env.Field != "date" {
		t.Fatalf("bad date: %d %+v", w.Code, env)
	}
	if w, _ := do(t, r, http.MethodPost, "/api/transactions", gin.H{"item_code": "NOPE", "qty_in": 1}); w.Code != http.StatusNotFound {
		t.Fatalf("unknown item: %d", w.Code)
	}

	w, env = do(t, r, http.MethodGet, "/api/transactions?item=SRM-01&from=2024-01-01&to=2024-01-31", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list: %d", w.Code)
	}
	var list []map[string]interface{}
	_ = json.Unmarshal(env.Data, &list)
	if len(list) != 1 || list[0]["item_code"] != "SRM-01" || list[0]["category_name"] != "serum" {
		t.Fatalf("unexpected list %v", list)
	}
	if w, _ := do(t, r, http.MethodGet, "/api/transactions?from=2024-02-01&to=2024-01-01", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("inverted range: %d", w.Code)
	}

	if w, _ := do(t, r, http.MethodPut, "/api/transactions/"+tx.Code, gin.H{"qty_out": 450}); w.Code != http.StatusOK {
		t.Fatalf("update: %d %s", w.Code, w.Body)
	}
	if w, _ := do(t, r, http.MethodDelete, "/api/transactions/"+tx.Code, nil); w.Code != http.StatusNoContent {
		t.Fatalf("delete: %d", w.Code)
	}
	if w, _ := do(t, r, http.MethodGet, "/api/transactions/"+tx.Code, nil); w.Code != http.StatusNotFound {
		t.Fatalf("get deleted: %d", w.Code)
	}
}

func TestAnalyticsEndpoints(t *testing.T) {
	r := newRouter(t)
	do(t, r, http.MethodPost, "/api/transactions/auto", gin.H{"item_code": "A", "date": "2024-01-01", "qty_out": 10})
	do(t, r, http.MethodPost, "/api/transactions/auto", gin.H{"item_code": "A", "date": "2024-01-10", "qty_out": 20})

	w, env := do(t, r, http.MethodGet, "/api/analytics/forecast?item=A&days=7", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("forecast: %d %s", w.Code, w.Body)
	}
	var fc struct {
		ForecastQty float64 `json:"forecast_qty"`
	}
	_ = json.Unmarshal(env.Data, &fc)
	if fc.ForecastQty != 21 {
		t.Fatalf("forecast_qty = %v, want 21", fc.ForecastQty)
	}

	tests := []struct {
		path string
		want int
	}{
		{"/api/analytics/forecast?item=GHOST", http.StatusNotFound},
		{"/api/analytics/forecast?item=A&days=x", http.StatusBadRequest},
		{"/api/analytics/velocity", http.StatusBadRequest},
		{"/api/analytics/trend-out", http.StatusOK},
		{"/api/analytics/in-out-ratio", http.StatusOK},
		{"/api/analytics", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if w, _ := do(t, r, http.MethodGet, tt.path, nil); w.Code != tt.want {
				t.Fatalf("GET %s = %d, want %d", tt.path, w.Code, tt.want)
			}
		})
	}

	// оба движения начинались с 0 и зафиксировали приход по 500
	_, env = do(t, r, http.MethodGet, "/api/analytics/in-out-ratio", nil)
	var io struct {
		TotalIn int64    `json:"total_in"`
		Ratio   *float64 `json:"ratio"`
	}
	_ = json.Unmarshal(env.Data, &io)
	if io.TotalIn != 1000 || io.Ratio == nil || *io.Ratio != 30.0/1000.0 {
		t.Fatalf("unexpected in/out ratio %+v", io)
	}
}

func TestNullRatioRendersAsJSONNull(t *testing.T) {
	r := newRouter(t)
	do(t, r, http.MethodPost, "/api/items", gin.H{"item_code": "A", "name": "A", "stock": 10})
	do(t, r, http.MethodPost, "/api/transactions", gin.H{"item_code": "A", "date": "2024-01-01", "qty_out": 3})

	_, env := do(t, r, http.MethodGet, "/api/analytics/in-out-ratio", nil)
	var io map[string]interface{}
	_ = json.Unmarshal(env.Data, &io)
	if v, ok := io["ratio"]; !ok || v != nil {
		t.Fatalf("expected null ratio, got %v", io)
	}
}

func TestLedgerReport(t *testing.T) {
	r := newRouter(t)
	do(t, r, http.MethodPost, "/api/transactions/auto", gin.H{"item_code": "A", "date": "2024-01-01", "qty_out": 10})

	w, _ := do(t, r, http.MethodGet, "/api/reports/ledger.xlsx", nil)
	if w.Code != http.StatusOK || w.Header().Get("Content-Type") != xlsxContentType {
		t.Fatalf("report: %d %q", w.Code, w.Header().Get("Content-Type"))
	}
	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	if err != nil {
		t.Fatalf("open xlsx: %v", err)
	}
	defer func() { _ = f.Close() }()
	rows, _ := f.GetRows(report.SheetLedger)
	if len(rows) != 2 {
		t.Fatalf("expected header and one row, got %v", rows)
	}
}

func TestRequestIDHeader(t *testing.T) {
	r := newRouter(t)

	w, _ := do(t, r, http.MethodGet, "/api/categories", nil)
	if w.Header().Get(HeaderRequestID) == "" {
		t.Fatal("request id not generated")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/categories", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if got := rec.Header().Get(HeaderRequestID); got != "abc-123" {
		t.Fatalf("request id = %q, want propagated", got)
	}
}
