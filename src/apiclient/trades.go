package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"tradingjournal/src/analytics"
	"tradingjournal/src/model"
)

// TradeFilter narrows GetTrades. Zero values are left out of the query.
type TradeFilter struct {
	Symbol    string
	StartDate *time.Time
	EndDate   *time.Time
	IsClosed  *bool
	Limit     int
	Offset    int
}

func (f TradeFilter) query() map[string]string {
	q := map[string]string{}
	if f.Symbol != "" {
		q["symbol"] = f.Symbol
	}
	if f.StartDate != nil {
		q["start_date"] = f.StartDate.Format(time.RFC3339)
	}
	if f.EndDate != nil {
		q["end_date"] = f.EndDate.Format(time.RFC3339)
	}
	if f.IsClosed != nil {
		q["is_closed"] = strconv.FormatBool(*f.IsClosed)
	}
	if f.Limit > 0 {
		q["limit"] = strconv.Itoa(f.Limit)
	}
	if f.Offset > 0 {
		q["offset"] = strconv.Itoa(f.Offset)
	}
	return q
}

type DateRange struct {
	StartDate *time.Time
	EndDate   *time.Time
}

func (d DateRange) query() map[string]string {
	return TradeFilter{StartDate: d.StartDate, EndDate: d.EndDate}.query()
}

func tradePath(id uint) string {
	return fmt.Sprintf("/api/trades/%d", id)
}

func (c *Client) CreateTrade(ctx context.Context, payload model.CreateTradePayload) (*model.Trade, error) {
	var trade model.Trade
	if err := c.do(ctx, call{method: http.MethodPost, path: "/api/trades", body: payload, result: &trade}); err != nil {
		return nil, err
	}
	return &trade, nil
}

func (c *Client) GetTrades(ctx context.Context, filter TradeFilter) ([]model.Trade, error) {
	var trades []model.Trade
	if err := c.do(ctx, call{method: http.MethodGet, path: "/api/trades", query: filter.query(), result: &trades}); err != nil {
		return nil, err
	}
	return trades, nil
}

func (c *Client) GetTrade(ctx context.Context, id uint) (*model.Trade, error) {
	var trade model.Trade
	if err := c.do(ctx, call{method: http.MethodGet, path: tradePath(id), result: &trade}); err != nil {
		return nil, err
	}
	return &trade, nil
}

func (c *Client) UpdateTrade(ctx context.Context, id uint, payload model.UpdateTradePayload) (*model.Trade, error) {
	var trade model.Trade
	if err := c.do(ctx, call{method: http.MethodPatch, path: tradePath(id), body: payload, result: &trade}); err != nil {
		return nil, err
	}
	return &trade, nil
}

func (c *Client) DeleteTrade(ctx context.Context, id uint) error {
	return c.do(ctx, call{method: http.MethodDelete, path: tradePath(id)})
}

func (c *Client) GetAnalytics(ctx context.Context, r DateRange) (*analytics.Summary, error) {
	var summary analytics.Summary
	if err := c.do(ctx, call{method: http.MethodGet, path: "/api/trades/analytics/summary", query: r.query(), result: &summary}); err != nil {
		return nil, err
	}
	return &summary, nil
}

func (c *Client) GetAnalyticsReport(ctx context.Context, r DateRange) (*analytics.Report, error) {
	var report analytics.Report
	if err := c.do(ctx, call{method: http.MethodGet, path: "/api/trades/analytics/report", query: r.query(), result: &report}); err != nil {
		return nil, err
	}
	return &report, nil
}
