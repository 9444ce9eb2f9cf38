package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"tradingjournal/src/model"
)

func entryPath(tradeID uint) string {
	return fmt.Sprintf("/api/journal/entries/%d", tradeID)
}

func tradeTagPath(tradeID, tagID uint) string {
	return fmt.Sprintf("/api/journal/trades/%d/tags/%d", tradeID, tagID)
}

func (c *Client) UpsertJournalEntry(ctx context.Context, tradeID uint, payload model.JournalEntryPayload) (*model.JournalEntry, error) {
	var entry model.JournalEntry
	if err := c.do(ctx, call{method: http.MethodPost, path: entryPath(tradeID), body: payload, result: &entry}); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (c *Client) GetJournalEntry(ctx context.Context, tradeID uint) (*model.JournalEntry, error) {
	var entry model.JournalEntry
	if err := c.do(ctx, call{method: http.MethodGet, path: entryPath(tradeID), result: &entry}); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (c *Client) ListJournalEntries(ctx context.Context, limit, offset int) ([]model.JournalEntry, error) {
	q := map[string]string{}
	if limit > 0 {
		q["limit"] = strconv.Itoa(limit)
	}
	if offset > 0 {
		q["offset"] = strconv.Itoa(offset)
	}
	var entries []model.JournalEntry
	if err := c.do(ctx, call{method: http.MethodGet, path: "/api/journal/entries", query: q, result: &entries}); err != nil {
		return nil, err
	}
	return entries, nil
}

func (c *Client) CreateTag(ctx context.Context, payload model.TagPayload) (*model.TradeTag, error) {
	var tag model.TradeTag
	if err := c.do(ctx, call{method: http.MethodPost, path: "/api/journal/tags", body: payload, result: &tag}); err != nil {
		return nil, err
	}
	return &tag, nil
}

func (c *Client) ListTags(ctx context.Context) ([]model.TradeTag, error) {
	var tags []model.TradeTag
	if err := c.do(ctx, call{method: http.MethodGet, path: "/api/journal/tags", result: &tags}); err != nil {
		return nil, err
	}
	return tags, nil
}

func (c *Client) AddTagToTrade(ctx context.Context, tradeID, tagID uint) error {
	return c.do(ctx, call{method: http.MethodPost, path: tradeTagPath(tradeID, tagID)})
}

func (c *Client) RemoveTagFromTrade(ctx context.Context, tradeID, tagID uint) error {
	return c.do(ctx, call{method: http.MethodDelete, path: tradeTagPath(tradeID, tagID)})
}
