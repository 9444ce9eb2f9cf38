package apiclient

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	logger "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"tradingjournal/src/model"
)

const (
	vpsSecretHeader       = "X-VPS-Secret"
	defaultRefreshTimeout = 30 * time.Second
)

var (
	errNoRefreshToken = errors.New("no refresh token")
	errEmptyRefresh   = errors.New("refresh returned no access token")
)

// Client calls the journal API. A 401 triggers one token refresh, shared
// by every request that failed at the same time, and one retry.
type Client struct {
	http      *resty.Client
	tokens    TokenStore
	vpsSecret string
	timeout   time.Duration
	refreshes singleflight.Group

	// OnAuthFailure runs after the tokens were cleared because the session
	// could not be refreshed.
	OnAuthFailure func()
}

func New(baseURL string, timeout time.Duration, tokens TokenStore) *Client {
	if tokens == nil {
		tokens = NewMemoryTokenStore()
	}
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	if timeout <= 0 {
		timeout = defaultRefreshTimeout
	}
	return &Client{http: httpClient, tokens: tokens, timeout: timeout}
}

// NewDefaultClient builds a client from the environment, persisting tokens
// to API_TOKEN_FILE when it is set.
func NewDefaultClient() (*Client, error) {
	config := GetConfig()

	var tokens TokenStore = NewMemoryTokenStore()
	if config.TokenFile != "" {
		store, err := NewFileTokenStore(config.TokenFile)
		if err != nil {
			return nil, err
		}
		tokens = store
	}
	return New(config.APIURL, config.APITimeout, tokens).WithVPSSecret(config.VPSSecret), nil
}

func (c *Client) WithVPSSecret(secret string) *Client {
	c.vpsSecret = secret
	return c
}

func (c *Client) Tokens() TokenStore {
	return c.tokens
}

type authMode int

const (
	authBearer authMode = iota
	authNone
	authVPS
)

type call struct {
	method string
	path   string
	body   interface{}
	query  map[string]string
	result interface{}
	auth   authMode
}

func (c *Client) send(ctx context.Context, req call, access string) (*resty.Response, error) {
	r := c.http.R().SetContext(ctx)
	if req.body != nil {
		r.SetBody(req.body)
	}
	if len(req.query) > 0 {
		r.SetQueryParams(req.query)
	}
	if req.result != nil {
		r.SetResult(req.result)
	}
	switch req.auth {
	case authVPS:
		r.SetHeader(vpsSecretHeader, c.vpsSecret)
	case authBearer:
		if access != "" {
			r.SetAuthToken(access)
		}
	}
	return r.Execute(req.method, req.path)
}

func (c *Client) do(ctx context.Context, req call) error {
	var access string
	if req.auth == authBearer {
		access, _ = c.tokens.Tokens()
	}

	resp, err := c.send(ctx, req, access)
	if err != nil {
		return err
	}

	if resp.StatusCode() == http.StatusUnauthorized && req.auth == authBearer {
		fresh, err := c.refresh(ctx, access)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if !refreshRejected(err) {
				logger.WithError(err).Warn("token refresh did not complete")
				return err
			}
			logger.WithError(err).Warn("token refresh failed")
			c.expire()
			return ErrSessionExpired
		}
		resp, err = c.send(ctx, req, fresh)
		if err != nil {
			return err
		}
		if resp.StatusCode() == http.StatusUnauthorized {
			c.expire()
			return ErrSessionExpired
		}
	}

	if resp.IsError() {
		return parseError(resp.StatusCode(), resp.Body())
	}
	return nil
}

// refresh returns a usable access token. If another request already
// rotated the token since stale was sent, the current one is reused.
// The shared call does not inherit the caller's cancellation; a caller
// that gives up only stops waiting for it.
func (c *Client) refresh(ctx context.Context, stale string) (string, error) {
	current, refreshToken := c.tokens.Tokens()
	if current != "" && current != stale {
		return current, nil
	}
	if refreshToken == "" {
		return "", errNoRefreshToken
	}

	ch := c.refreshes.DoChan("refresh", func() (interface{}, error) {
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		return c.exchangeRefresh(shared, refreshToken)
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (c *Client) exchangeRefresh(ctx context.Context, refreshToken string) (string, error) {
	var pair model.TokenPair
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(model.RefreshPayload{RefreshToken: refreshToken}).
		SetResult(&pair).
		Post("/api/auth/refresh")
	if err != nil {
		return "", err
	}
	if resp.IsError() {
		return "", parseError(resp.StatusCode(), resp.Body())
	}
	if pair.AccessToken == "" {
		return "", errEmptyRefresh
	}

	next := refreshToken
	if pair.RefreshToken != "" {
		next = pair.RefreshToken
	}
	if err := c.tokens.SetTokens(pair.AccessToken, next); err != nil {
		return "", err
	}
	return pair.AccessToken, nil
}

// refreshRejected reports whether the session itself is unusable, as
// opposed to the refresh call failing in transit or on a server error.
func refreshRejected(err error) bool {
	if errors.Is(err, errNoRefreshToken) || errors.Is(err, errEmptyRefresh) {
		return true
	}
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode < http.StatusInternalServerError
}

func (c *Client) expire() {
	if err := c.tokens.Clear(); err != nil {
		logger.WithError(err).Warn("failed to clear tokens")
	}
	if c.OnAuthFailure != nil {
		c.OnAuthFailure()
	}
}
