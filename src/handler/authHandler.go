package handler

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	logger "github.com/sirupsen/logrus"

	"tradingjournal/src/auth"
	"tradingjournal/src/model"
	"tradingjournal/src/repository"
	"tradingjournal/src/security"
)

const refreshCookieName = "refresh_token"

type authService interface {
	Register(ctx context.Context, payload model.RegisterPayload) (*model.User, error)
	Login(ctx context.Context, payload model.LoginPayload, meta auth.ClientMeta) (*model.User, *model.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*model.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	LogoutAll(ctx context.Context, userID uint) (int64, error)
}

// CookieOptions controls the HttpOnly refresh token cookie set on login.
type CookieOptions struct {
	Secure bool
	MaxAge time.Duration
}

func RegisterHandler(svc authService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload model.RegisterPayload
		if !decodeJSON(w, r, &payload) {
			return
		}

		user, err := svc.Register(r.Context(), payload)
		if errors.Is(err, auth.ErrEmailTaken) {
			writeDetail(w, http.StatusBadRequest, err.Error())
			return
		}
		if err != nil {
			writeError(w, r, "Register", err)
			return
		}

		writeJSON(w, http.StatusCreated, user.ToResponse())
	}
}

func LoginHandler(svc authService, cookie CookieOptions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload model.LoginPayload
		if !decodeJSON(w, r, &payload) {
			return
		}

		_, pair, err := svc.Login(r.Context(), payload, clientMeta(r))
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeDetail(w, http.StatusUnauthorized, err.Error())
			return
		case errors.Is(err, auth.ErrInactiveUser):
			writeDetail(w, http.StatusForbidden, err.Error())
			return
		case err != nil:
			internalError(w, r, "Login", err, nil)
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     refreshCookieName,
			Value:    pair.RefreshToken,
			Path:     "/api/auth",
			MaxAge:   int(cookie.MaxAge.Seconds()),
			HttpOnly: true,
			Secure:   cookie.Secure,
			SameSite: http.SameSiteLaxMode,
		})
		writeJSON(w, http.StatusOK, pair)
	}
}

// refreshTokenFrom prefers the JSON body and falls back to the cookie.
func refreshTokenFrom(r *http.Request) string {
	var payload model.RefreshPayload
	if r.Body != nil && r.ContentLength != 0 {
		if err := jsonDecodeLenient(r, &payload); err != nil {
			logger.WithError(err).Debug("ignoring unreadable refresh payload")
		}
	}
	if payload.RefreshToken != "" {
		return payload.RefreshToken
	}
	if c, err := r.Cookie(refreshCookieName); err == nil {
		return c.Value
	}
	return ""
}

func RefreshHandler(svc authService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := refreshTokenFrom(r)
		if token == "" {
			writeDetail(w, http.StatusUnauthorized, "Refresh token missing")
			return
		}

		pair, err := svc.Refresh(r.Context(), token)
		if errors.Is(err, security.ErrInvalidToken) {
			writeDetail(w, http.StatusUnauthorized, "Invalid or expired refresh token")
			return
		}
		if err != nil {
			internalError(w, r, "Refresh", err, nil)
			return
		}

		writeJSON(w, http.StatusOK, pair)
	}
}

func LogoutHandler(svc authService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := currentUser(w, r); !ok {
			return
		}

		if err := svc.Logout(r.Context(), refreshTokenFrom(r)); err != nil {
			internalError(w, r, "Logout", err, nil)
			return
		}

		http.SetCookie(w, &http.Cookie{Name: refreshCookieName, Value: "", Path: "/api/auth", MaxAge: -1, HttpOnly: true})
		writeMessage(w, "Successfully logged out")
	}
}

func LogoutAllHandler(svc authService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := currentUser(w, r)
		if !ok {
			return
		}

		n, err := svc.LogoutAll(r.Context(), user.ID)
		if err != nil {
			internalError(w, r, "LogoutAll", err, nil)
			return
		}

		http.SetCookie(w, &http.Cookie{Name: refreshCookieName, Value: "", Path: "/api/auth", MaxAge: -1, HttpOnly: true})
		writeMessage(w, fmt.Sprintf("Logged out from %d device(s)", n))
	}
}

func MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := currentUser(w, r)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, user.ToResponse())
	}
}

func clientMeta(r *http.Request) auth.ClientMeta {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		ip = host
	}
	return auth.ClientMeta{UserAgent: r.UserAgent(), IPAddress: ip}
}

// DefaultAuthService wires the auth service to the production repositories.
func DefaultAuthService() *auth.Service {
	return auth.NewService(
		repository.NewUserRepository(),
		repository.NewRefreshTokenRepository(),
		security.NewTokenIssuer(security.GetConfig()),
	)
}
