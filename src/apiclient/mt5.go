package apiclient

import (
	"context"
	"net/http"

	"tradingjournal/src/model"
)

func (c *Client) UpsertMT5Account(ctx context.Context, payload model.MT5AccountPayload) (*model.MT5Account, error) {
	var account model.MT5Account
	if err := c.do(ctx, call{method: http.MethodPost, path: "/api/mt5/account", body: payload, result: &account}); err != nil {
		return nil, err
	}
	return &account, nil
}

func (c *Client) GetMT5Account(ctx context.Context) (*model.MT5Account, error) {
	var account model.MT5Account
	if err := c.do(ctx, call{method: http.MethodGet, path: "/api/mt5/account", result: &account}); err != nil {
		return nil, err
	}
	return &account, nil
}

func (c *Client) GetMT5Accounts(ctx context.Context) ([]model.MT5Account, error) {
	var accounts []model.MT5Account
	if err := c.do(ctx, call{method: http.MethodGet, path: "/api/mt5/accounts", result: &accounts}); err != nil {
		return nil, err
	}
	return accounts, nil
}

func (c *Client) DeleteMT5Account(ctx context.Context) error {
	return c.do(ctx, call{method: http.MethodDelete, path: "/api/mt5/account"})
}

func (c *Client) ToggleMT5Sync(ctx context.Context) (*model.MT5Account, error) {
	var account model.MT5Account
	if err := c.do(ctx, call{method: http.MethodPost, path: "/api/mt5/account/toggle", result: &account}); err != nil {
		return nil, err
	}
	return &account, nil
}

func (c *Client) GetMT5Status(ctx context.Context) (*model.MT5Status, error) {
	var status model.MT5Status
	if err := c.do(ctx, call{method: http.MethodGet, path: "/api/mt5/status", result: &status}); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *Client) SyncMT5Account(ctx context.Context) error {
	return c.do(ctx, call{method: http.MethodPost, path: "/api/mt5/sync"})
}

// DueMT5Accounts is the sync worker's view of accounts to process. It is
// authenticated with the VPS secret, not a user session.
func (c *Client) DueMT5Accounts(ctx context.Context) ([]model.SyncAccount, error) {
	var accounts []model.SyncAccount
	if err := c.do(ctx, call{method: http.MethodGet, path: "/api/mt5/vps/accounts", result: &accounts, auth: authVPS}); err != nil {
		return nil, err
	}
	return accounts, nil
}

func (c *Client) ReportMT5Status(ctx context.Context, update model.MT5StatusUpdate) error {
	return c.do(ctx, call{method: http.MethodPost, path: "/api/mt5/vps/status", body: update, auth: authVPS})
}
