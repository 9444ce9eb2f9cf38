package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradingjournal/src/analytics"
	"tradingjournal/src/cache"
	"tradingjournal/src/model"
)

type mockClosedTrades struct {
	trades   []model.Trade
	calls    int
	from, to *time.Time
}

func (m *mockClosedTrades) ListClosed(_ context.Context, _ uint, from, to *time.Time) ([]model.Trade, error) {
	m.calls++
	m.from, m.to = from, to
	return m.trades, nil
}

type memoryCache struct {
	data map[string][]byte
}

func (c *memoryCache) Get(_ context.Context, userID uint, key string, dst interface{}) (cache.Slot, bool, error) {
	raw, ok := c.data[key]
	if !ok {
		return cache.Slot(key), false, nil
	}
	return cache.Slot(key), true, json.Unmarshal(raw, dst)
}

func (c *memoryCache) Set(_ context.Context, slot cache.Slot, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.data[string(slot)] = raw
	return nil
}

func closedTrade(id uint, net float64, closeAt time.Time) model.Trade {
	return model.Trade{
		ID: id, UserID: 1, Symbol: "EURUSD", TradeType: model.TradeBuy,
		OpenTime: closeAt.Add(-time.Hour), CloseTime: &closeAt,
		NetProfit: &net, IsClosed: true,
	}
}

func TestAnalyticsSummaryHandler_CachesPerRange(t *testing.T) {
	base := time.Date(2025, 5, 5, 12, 0, 0, 0, time.UTC)
	repo := &mockClosedTrades{trades: []model.Trade{
		closedTrade(1, 100, base),
		closedTrade(2, -50, base.Add(time.Hour)),
		closedTrade(3, 200, base.Add(2*time.Hour)),
	}}
	store := &memoryCache{data: map[string][]byte{}}
	handler := AnalyticsSummaryHandler(repo, store)
	user := &model.User{ID: 1}

	for i, want := range []string{"MISS", "HIT"} {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, asUser(httptest.NewRequest(http.MethodGet, "/api/trades/analytics/summary", nil), user))
		if rr.Code != http.StatusOK {
			t.Fatalf("request %d: expected status 200, got %d", i, rr.Code)
		}
		assert.Equal(t, want, rr.Header().Get("X-Cache"))

		var summary analytics.Summary
		decodeBody(t, rr, &summary)
		assert.Equal(t, 3, summary.TotalTrades)
		assert.Equal(t, 250.0, summary.NetProfit)
		assert.Equal(t, 66.67, summary.WinRate)
	}
	assert.Equal(t, 1, repo.calls)

	// a different range is a different cache entry
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/trades/analytics/summary?start_date=2025-05-01&end_date=2025-05-31", nil)
	handler.ServeHTTP(rr, asUser(req, user))
	assert.Equal(t, "MISS", rr.Header().Get("X-Cache"))
	assert.Equal(t, 2, repo.calls)
	require.NotNil(t, repo.from)
	require.NotNil(t, repo.to)
	assert.Equal(t, "2025-05-01", repo.from.Format("2006-01-02"))
}

func TestAnalyticsReportHandler(t *testing.T) {
	base := time.Date(2025, 5, 5, 12, 0, 0, 0, time.UTC)
	repo := &mockClosedTrades{trades: []model.Trade{closedTrade(1, 10, base), closedTrade(2, -5, base.Add(time.Minute))}}
	handler := AnalyticsReportHandler(repo, &memoryCache{data: map[string][]byte{}})

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, asUser(httptest.NewRequest(http.MethodGet, "/api/trades/analytics/report", nil), &model.User{ID: 1}))
	require.Equal(t, http.StatusOK, rr.Code)

	var report analytics.Report
	decodeBody(t, rr, &report)
	assert.Equal(t, 2, report.Summary.TotalTrades)
	require.Len(t, report.ProfitOverTime, 2)
	assert.Equal(t, 5.0, report.ProfitOverTime[1].Cumulative)
	require.Len(t, report.TradesBySymbol, 1)
	assert.Equal(t, "EURUSD", report.TradesBySymbol[0].Symbol)
}

func TestAnalyticsSummaryHandler_BadDate(t *testing.T) {
	repo := &mockClosedTrades{}
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/trades/analytics/summary?end_date=31/05/2025", nil)
	AnalyticsSummaryHandler(repo, &memoryCache{data: map[string][]byte{}}).ServeHTTP(rr, asUser(req, &model.User{ID: 1}))

	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, 0, repo.calls)
}
