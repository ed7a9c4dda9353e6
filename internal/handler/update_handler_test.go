package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nie11kun/price-comparator/internal/exchange"
	"github.com/nie11kun/price-comparator/internal/model"
	"github.com/nie11kun/price-comparator/internal/scraper"
	"github.com/nie11kun/price-comparator/internal/service"
)

// writeStore accepts pipeline writes on top of memStore's read path.
type writeStore struct {
	memStore
	mu      sync.Mutex
	written []model.PriceRecord
}

func (s *writeStore) ReplaceAppPrices(_ context.Context, records []model.PriceRecord) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.written = append(s.written, records...)
	return len(records), nil
}

type fixedConverter struct{}

func (fixedConverter) Convert(_ context.Context, amount decimal.Decimal, currency string) (decimal.NullDecimal, exchange.Source) {
	if currency == "CNY" {
		return decimal.NewNullDecimal(amount), exchange.SourceLive
	}
	return decimal.NewNullDecimal(amount.Mul(decimal.RequireFromString("7.25"))), exchange.SourceFallback
}

type stubScraper struct {
	started   chan struct{}
	block     chan struct{}
	startOnce sync.Once
}

func (s *stubScraper) AppName() string { return model.AppChatGPT }

func (s *stubScraper) Scrape(_ context.Context, region string) (scraper.Result, error) {
	if s.started != nil {
		s.startOnce.Do(func() { close(s.started) })
	}
	if s.block != nil {
		<-s.block
	}
	if region != "US" {
		return scraper.Result{Status: scraper.StatusNotAvailable}, nil
	}
	return scraper.Result{Status: scraper.StatusFound, Records: []model.PriceRecord{{
		AppName:  model.AppChatGPT,
		PlanName: "ChatGPT Plus",
		Region:   "US",
		Currency: "USD",
		Price:    decimal.RequireFromString("19.99"),
	}}}, nil
}

func newUpdateService(store service.PriceStore, sc scraper.Scraper) *service.UpdateService {
	return service.NewUpdateService(
		store,
		fixedConverter{},
		func() []scraper.Scraper { return []scraper.Scraper{sc} },
		[]string{"US", "CN"},
		nil,
		0,
	)
}

func setupUpdateRouter(svc *service.UpdateService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	h := NewUpdateHandler(svc)
	router.POST("/admin/trigger-update", h.TriggerUpdate)
	return router
}

func triggerUpdate(t *testing.T, router *gin.Engine) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req, err := http.NewRequest("POST", "/admin/trigger-update", nil)
	require.NoError(t, err)
	router.ServeHTTP(w, req)
	return w
}

func TestUpdateHandler_TriggerUpdate(t *testing.T) {
	t.Run("happy: runs the pipeline and returns a summary", func(t *testing.T) {
		store := &writeStore{}
		router := setupUpdateRouter(newUpdateService(store, &stubScraper{}))

		w := triggerUpdate(t, router)
		assert.Equal(t, http.StatusOK, w.Code)

		var summary service.Summary
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
		assert.Equal(t, 1, summary.RecordsWritten)
		assert.Empty(t, summary.Errors)
		assert.False(t, summary.StartedAt.IsZero())

		require.Len(t, store.written, 1)
		assert.Equal(t, "US", store.written[0].Region)
	})

	t.Run("bad: second trigger while running gets 409", func(t *testing.T) {
		started := make(chan struct{})
		block := make(chan struct{})
		router := setupUpdateRouter(newUpdateService(&writeStore{}, &stubScraper{started: started, block: block}))

		first := make(chan *httptest.ResponseRecorder, 1)
		go func() { first <- triggerUpdate(t, router) }()

		select {
		case <-started:
		case <-time.After(time.Second):
			t.Fatal("first run never started")
		}

		w := triggerUpdate(t, router)
		assert.Equal(t, http.StatusConflict, w.Code)

		close(block)
		assert.Equal(t, http.StatusOK, (<-first).Code)
	})

	t.Run("bad: storage failure maps to 500", func(t *testing.T) {
		router := setupUpdateRouter(newUpdateService(&memStore{}, &stubScraper{}))

		w := triggerUpdate(t, router)
		assert.Equal(t, http.StatusInternalServerError, w.Code)

		var resp map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Contains(t, resp["error"], "update failed")
	})
}
