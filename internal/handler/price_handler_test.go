package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nie11kun/price-comparator/internal/model"
	"github.com/nie11kun/price-comparator/internal/service"
)

// memStore serves preset rows to the read path.
type memStore struct {
	rows        []model.PriceRecord
	lastUpdated time.Time
	queryErr    error
}

func (s *memStore) ReplaceAppPrices(context.Context, []model.PriceRecord) (int, error) {
	return 0, errors.New("not implemented")
}

func (s *memStore) QueryPrices(_ context.Context, _, planName string) ([]model.PriceRecord, error) {
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	if planName == "" {
		return s.rows, nil
	}
	var out []model.PriceRecord
	for _, r := range s.rows {
		if r.PlanName == planName {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *memStore) LastUpdated(context.Context) (time.Time, error) {
	return s.lastUpdated, nil
}

func setupPriceRouter(store service.PriceStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	h := NewPriceHandler(service.NewPriceService(store))
	router.GET("/api/prices", h.GetPrices)
	return router
}

func getPrices(t *testing.T, router *gin.Engine, query string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req, err := http.NewRequest("GET", "/api/prices"+query, nil)
	require.NoError(t, err)
	router.ServeHTTP(w, req)
	return w
}

func TestPriceHandler_GetPrices(t *testing.T) {
	updated := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	stored := []model.PriceRecord{
		{
			AppName:     model.AppChatGPT,
			PlanName:    "ChatGPT Plus",
			Region:      "TR",
			Currency:    "TRY",
			Price:       decimal.RequireFromString("399.99"),
			PriceCNY:    decimal.NewNullDecimal(decimal.RequireFromString("82.50")),
			LastUpdated: updated,
		},
		{
			AppName:     model.AppChatGPT,
			PlanName:    "ChatGPT Plus",
			Region:      "US",
			Currency:    "USD",
			Price:       decimal.RequireFromString("19.99"),
			PriceCNY:    decimal.NewNullDecimal(decimal.RequireFromString("144.93")),
			LastUpdated: updated,
		},
	}

	t.Run("happy: returns prices for a known app", func(t *testing.T) {
		router := setupPriceRouter(&memStore{rows: stored, lastUpdated: updated})

		w := getPrices(t, router, "?app=ChatGPT")
		assert.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			App         string              `json:"app"`
			Prices      []model.PriceRecord `json:"prices"`
			LastUpdated string              `json:"last_updated"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "ChatGPT", resp.App)
		assert.Equal(t, "2025-06-01T12:00:00Z", resp.LastUpdated)
		require.Len(t, resp.Prices, 2)
		assert.Equal(t, "Turkey", resp.Prices[0].CountryName)
	})

	t.Run("happy: plan filter is echoed back", func(t *testing.T) {
		router := setupPriceRouter(&memStore{rows: stored, lastUpdated: updated})

		w := getPrices(t, router, "?app=ChatGPT&plan=ChatGPT+Plus")
		assert.Equal(t, http.StatusOK, w.Code)

		var resp map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "ChatGPT Plus", resp["plan_filter"])
	})

	t.Run("edge: empty store reports Never", func(t *testing.T) {
		router := setupPriceRouter(&memStore{})

		w := getPrices(t, router, "?app=Claude")
		assert.Equal(t, http.StatusOK, w.Code)

		var resp map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "Never", resp["last_updated"])
	})

	t.Run("bad: missing app parameter", func(t *testing.T) {
		router := setupPriceRouter(&memStore{})

		w := getPrices(t, router, "")
		assert.Equal(t, http.StatusBadRequest, w.Code)

		var resp map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "missing 'app' parameter", resp["error"])
	})

	t.Run("bad: unknown app", func(t *testing.T) {
		router := setupPriceRouter(&memStore{})

		w := getPrices(t, router, "?app=Netflix")
		assert.Equal(t, http.StatusBadRequest, w.Code)

		var resp map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Contains(t, resp["error"], "unknown app: Netflix")
	})

	t.Run("bad: store failure maps to 500", func(t *testing.T) {
		router := setupPriceRouter(&memStore{queryErr: errors.New("connection refused")})

		w := getPrices(t, router, "?app=ChatGPT")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}
