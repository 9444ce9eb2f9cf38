package apiclient

import (
	"context"
	"net/http"

	"tradingjournal/src/model"
)

type Message struct {
	Message string `json:"message"`
}

func (c *Client) Register(ctx context.Context, payload model.RegisterPayload) (*model.UserResponse, error) {
	var user model.UserResponse
	err := c.do(ctx, call{method: http.MethodPost, path: "/api/auth/register", body: payload, result: &user, auth: authNone})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Login stores the returned token pair.
func (c *Client) Login(ctx context.Context, email, password string) (*model.TokenPair, error) {
	var pair model.TokenPair
	err := c.do(ctx, call{
		method: http.MethodPost,
		path:   "/api/auth/login",
		body:   model.LoginPayload{Email: email, Password: password},
		result: &pair,
		auth:   authNone,
	})
	if err != nil {
		return nil, err
	}
	if err := c.tokens.SetTokens(pair.AccessToken, pair.RefreshToken); err != nil {
		return nil, err
	}
	return &pair, nil
}

// Logout revokes the stored refresh token. Local tokens are cleared even
// when the server call fails.
func (c *Client) Logout(ctx context.Context) error {
	_, refresh := c.tokens.Tokens()
	err := c.do(ctx, call{
		method: http.MethodPost,
		path:   "/api/auth/logout",
		body:   model.RefreshPayload{RefreshToken: refresh},
	})
	if clearErr := c.tokens.Clear(); clearErr != nil && err == nil {
		err = clearErr
	}
	return err
}

func (c *Client) LogoutAll(ctx context.Context) (string, error) {
	var msg Message
	err := c.do(ctx, call{method: http.MethodPost, path: "/api/auth/logout-all", result: &msg})
	if clearErr := c.tokens.Clear(); clearErr != nil && err == nil {
		err = clearErr
	}
	return msg.Message, err
}

func (c *Client) Me(ctx context.Context) (*model.UserResponse, error) {
	var user model.UserResponse
	if err := c.do(ctx, call{method: http.MethodGet, path: "/api/auth/me", result: &user}); err != nil {
		return nil, err
	}
	return &user, nil
}
