package mt5sync

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	logger "github.com/sirupsen/logrus"

	"tradingjournal/src/model"
)

const (
	defaultRetryAttempts   = 5
	defaultRetryBaseDelay  = 500 * time.Millisecond
	defaultRetryMaxBackoff = 8 * time.Second
)

// Terminal opens logged-in sessions on an MT5 terminal. Only one session
// is expected to be open at a time.
type Terminal interface {
	Open(ctx context.Context, account model.SyncAccount) (Session, error)
}

type Session interface {
	Deals(ctx context.Context, from, to time.Time) ([]Deal, error)
	Positions(ctx context.Context) ([]Position, error)
	Close(ctx context.Context) error
}

// isRetryableResp retries throttling and server errors. A request that
// failed in transit is only retried when it is not a login: the bridge may
// already have opened a session for it.
func isRetryableResp(r *resty.Response, err error) bool {
	if r == nil || r.Request == nil {
		return false
	}
	if err != nil {
		return r.Request.Method != http.MethodPost
	}
	switch r.StatusCode() {
	case http.StatusTooManyRequests, http.StatusRequestTimeout:
		return true
	}
	return r.StatusCode() >= 500
}

// BridgeTerminal talks to an HTTP bridge that runs next to the MT5
// terminal and exposes its login, history and positions calls.
type BridgeTerminal struct {
	http *resty.Client
}

func NewBridgeTerminal(baseURL string, timeout time.Duration) *BridgeTerminal {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(defaultRetryAttempts - 1).
		SetRetryWaitTime(defaultRetryBaseDelay).
		SetRetryMaxWaitTime(defaultRetryMaxBackoff).
		AddRetryCondition(isRetryableResp)

	return &BridgeTerminal{http: httpClient}
}

func NewDefaultBridgeTerminal() *BridgeTerminal {
	config := GetConfig()
	return NewBridgeTerminal(config.BridgeURL, config.BridgeTimeout)
}

type bridgeError struct {
	Error string `json:"error"`
}

func bridgeFailure(op string, resp *resty.Response) error {
	if e, ok := resp.Error().(*bridgeError); ok && e.Error != "" {
		return fmt.Errorf("%s: %s", op, e.Error)
	}
	return fmt.Errorf("%s: bridge returned %d", op, resp.StatusCode())
}

type loginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
	Server   string `json:"server"`
}

type loginResponse struct {
	SessionID string `json:"session_id"`
}

func (b *BridgeTerminal) Open(ctx context.Context, account model.SyncAccount) (Session, error) {
	var out loginResponse
	resp, err := b.http.R().
		SetContext(ctx).
		SetBody(loginRequest{Login: account.Login, Password: account.Password, Server: account.Server}).
		SetResult(&out).
		SetError(&bridgeError{}).
		Post("/sessions")
	if err != nil {
		return nil, fmt.Errorf("MT5 initialization failed: %w", err)
	}
	if resp.IsError() {
		return nil, bridgeFailure("Login failed", resp)
	}
	if out.SessionID == "" {
		return nil, fmt.Errorf("Login failed: bridge returned no session")
	}

	logger.WithFields(map[string]interface{}{
		"login":  account.Login,
		"server": account.Server,
	}).Info("Logged in to MT5 terminal")
	return &bridgeSession{http: b.http, id: out.SessionID}, nil
}

type bridgeSession struct {
	http *resty.Client
	id   string
}

type dealsResponse struct {
	Deals []Deal `json:"deals"`
}

type positionsResponse struct {
	Positions []Position `json:"positions"`
}

func (s *bridgeSession) Deals(ctx context.Context, from, to time.Time) ([]Deal, error) {
	var out dealsResponse
	resp, err := s.http.R().
		SetContext(ctx).
		SetPathParam("id", s.id).
		SetQueryParams(map[string]string{
			"from": strconv.FormatInt(from.Unix(), 10),
			"to":   strconv.FormatInt(to.Unix(), 10),
		}).
		SetResult(&out).
		SetError(&bridgeError{}).
		Get("/sessions/{id}/deals")
	if err != nil {
		return nil, fmt.Errorf("history deals: %w", err)
	}
	if resp.IsError() {
		return nil, bridgeFailure("history deals", resp)
	}
	return out.Deals, nil
}

func (s *bridgeSession) Positions(ctx context.Context) ([]Position, error) {
	var out positionsResponse
	resp, err := s.http.R().
		SetContext(ctx).
		SetPathParam("id", s.id).
		SetResult(&out).
		SetError(&bridgeError{}).
		Get("/sessions/{id}/positions")
	if err != nil {
		return nil, fmt.Errorf("positions: %w", err)
	}
	if resp.IsError() {
		return nil, bridgeFailure("positions", resp)
	}
	return out.Positions, nil
}

func (s *bridgeSession) Close(ctx context.Context) error {
	resp, err := s.http.R().
		SetContext(ctx).
		SetPathParam("id", s.id).
		SetError(&bridgeError{}).
		Delete("/sessions/{id}")
	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if resp.IsError() && resp.StatusCode() != http.StatusNotFound {
		return bridgeFailure("shutdown", resp)
	}
	return nil
}
