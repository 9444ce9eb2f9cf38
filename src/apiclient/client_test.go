package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradingjournal/src/model"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL, 5*time.Second, NewMemoryTokenStore())
}

func TestClient_LoginStoresTokensAndSendsBearer(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		var body model.LoginPayload
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ann@example.com", body.Email)
		writeJSON(w, http.StatusOK, model.TokenPair{AccessToken: "acc", RefreshToken: "ref", TokenType: "bearer"})
	})
	mux.HandleFunc("/api/auth/me", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer acc", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, model.UserResponse{ID: 4, Email: "ann@example.com"})
	})
	c := newTestClient(t, mux)

	_, err := c.Login(context.Background(), "ann@example.com", "Secret#123")
	require.NoError(t, err)
	access, refresh := c.Tokens().Tokens()
	assert.Equal(t, "acc", access)
	assert.Equal(t, "ref", refresh)

	me, err := c.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint(4), me.ID)
}

func TestClient_RefreshesOnceForConcurrentUnauthorized(t *testing.T) {
	const callers = 5
	var (
		refreshCalls int32
		arrived      sync.WaitGroup
	)
	arrived.Add(callers)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/trades", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer fresh" {
			writeJSON(w, http.StatusOK, []model.Trade{{ID: 1}})
			return
		}
		// hold every stale request until all callers are in flight
		arrived.Done()
		arrived.Wait()
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Could not validate credentials"})
	})
	mux.HandleFunc("/api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&refreshCalls, 1)
		var body model.RefreshPayload
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ref", body.RefreshToken)
		time.Sleep(200 * time.Millisecond)
		writeJSON(w, http.StatusOK, model.TokenPair{AccessToken: "fresh", TokenType: "bearer"})
	})
	c := newTestClient(t, mux)
	require.NoError(t, c.Tokens().SetTokens("stale", "ref"))

	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			trades, err := c.GetTrades(context.Background(), TradeFilter{})
			errs[i] = err
			if err == nil {
				assert.Len(t, trades, 1)
			}
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&refreshCalls))
	access, refresh := c.Tokens().Tokens()
	assert.Equal(t, "fresh", access)
	assert.Equal(t, "ref", refresh)
}

func TestClient_CancelledCallerDoesNotFailSharedRefresh(t *testing.T) {
	refreshStarted := make(chan struct{})
	release := make(chan struct{})
	var refreshCalls int32

	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer fresh" {
			writeJSON(w, http.StatusOK, model.UserResponse{ID: 4})
			return
		}
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Could not validate credentials"})
	})
	mux.HandleFunc("/api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&refreshCalls, 1) == 1 {
			close(refreshStarted)
		}
		<-release
		writeJSON(w, http.StatusOK, model.TokenPair{AccessToken: "fresh", TokenType: "bearer"})
	})
	c := newTestClient(t, mux)
	require.NoError(t, c.Tokens().SetTokens("stale", "ref"))

	var hooked int32
	c.OnAuthFailure = func() { atomic.AddInt32(&hooked, 1) }

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := c.Me(ctxA)
		errA <- err
	}()

	select {
	case <-refreshStarted:
	case <-time.After(2 * time.Second):
		close(release)
		t.Fatalf("refresh was never requested")
	}

	errB := make(chan error, 1)
	go func() {
		_, err := c.Me(context.Background())
		errB <- err
	}()

	cancelA()
	assert.ErrorIs(t, <-errA, context.Canceled)

	close(release)
	assert.NoError(t, <-errB)

	access, refresh := c.Tokens().Tokens()
	assert.Equal(t, "fresh", access)
	assert.Equal(t, "ref", refresh)
	assert.Equal(t, int32(0), atomic.LoadInt32(&hooked))
	assert.Equal(t, int32(1), atomic.LoadInt32(&refreshCalls))
}

func TestClient_RefreshServerErrorKeepsSession(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/me", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Could not validate credentials"})
	})
	mux.HandleFunc("/api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"detail": "Database unavailable"})
	})
	c := newTestClient(t, mux)
	require.NoError(t, c.Tokens().SetTokens("stale", "ref"))

	var hooked int
	c.OnAuthFailure = func() { hooked++ }

	_, err := c.Me(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSessionExpired)
	assert.True(t, IsStatus(err, http.StatusServiceUnavailable))
	assert.Equal(t, 0, hooked)
	_, refresh := c.Tokens().Tokens()
	assert.Equal(t, "ref", refresh)
}

func TestClient_FailedRefreshExpiresSession(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/me", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Could not validate credentials"})
	})
	mux.HandleFunc("/api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Invalid or expired refresh token"})
	})
	c := newTestClient(t, mux)
	require.NoError(t, c.Tokens().SetTokens("stale", "ref"))

	var hooked int
	c.OnAuthFailure = func() { hooked++ }

	_, err := c.Me(context.Background())
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.Equal(t, 1, hooked)
	access, refresh := c.Tokens().Tokens()
	assert.Empty(t, access)
	assert.Empty(t, refresh)
}

func TestClient_RetryStillUnauthorized(t *testing.T) {
	var meCalls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/me", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&meCalls, 1)
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Inactive user"})
	})
	mux.HandleFunc("/api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, model.TokenPair{AccessToken: "fresh", TokenType: "bearer"})
	})
	c := newTestClient(t, mux)
	require.NoError(t, c.Tokens().SetTokens("stale", "ref"))

	_, err := c.Me(context.Background())
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.Equal(t, int32(2), atomic.LoadInt32(&meCalls))
	access, _ := c.Tokens().Tokens()
	assert.Empty(t, access)
}

func TestClient_NoRefreshWithoutRefreshToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/me", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Not authenticated"})
	})
	mux.HandleFunc("/api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("refresh must not be called")
	})
	c := newTestClient(t, mux)

	_, err := c.Me(context.Background())
	assert.ErrorIs(t, err, ErrSessionExpired)
}

func TestClient_LoginFailureIsAPIError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Incorrect email or password"})
	}))

	_, err := c.Login(context.Background(), "a@b.co", "nope")
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusUnauthorized))
	assert.Contains(t, err.Error(), "Incorrect email or password")
}

func TestClient_ValidationError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"detail": []map[string]interface{}{
				{"loc": []string{"body", "volume"}, "msg": "ensure this value is greater than 0", "type": "value_error"},
			},
		})
	}))
	require.NoError(t, c.Tokens().SetTokens("acc", "ref"))

	_, err := c.CreateTrade(context.Background(), model.CreateTradePayload{Symbol: "EURUSD"})
	require.Error(t, err)
	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	require.Len(t, apiErr.Fields, 1)
	assert.Equal(t, "volume", apiErr.Fields[0].Field)
	assert.Equal(t, "volume: ensure this value is greater than 0", apiErr.Message)
}

func TestClient_VPSCallsUseSecret(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/mt5/vps/accounts", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "vps-secret", r.Header.Get("X-VPS-Secret"))
		assert.Empty(t, r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, []model.SyncAccount{{AccountID: 2, Login: "777", Password: "pw"}})
	})
	mux.HandleFunc("/api/mt5/vps/status", func(w http.ResponseWriter, r *http.Request) {
		var update model.MT5StatusUpdate
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&update))
		assert.Equal(t, uint(2), update.AccountID)
		assert.Equal(t, model.SyncSuccess, update.Status)
		writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
	})
	c := newTestClient(t, mux).WithVPSSecret("vps-secret")
	require.NoError(t, c.Tokens().SetTokens("acc", "ref"))

	accounts, err := c.DueMT5Accounts(context.Background())
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "pw", accounts[0].Password)

	err = c.ReportMT5Status(context.Background(), model.MT5StatusUpdate{AccountID: 2, Status: model.SyncSuccess, Message: "Synced 0 new trades"})
	assert.NoError(t, err)
}

func TestClient_TradeFilterQuery(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	closed := true
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "EURUSD", q.Get("symbol"))
		assert.Equal(t, "2024-01-01T00:00:00Z", q.Get("start_date"))
		assert.Equal(t, "true", q.Get("is_closed"))
		assert.Equal(t, "20", q.Get("limit"))
		assert.Empty(t, q.Get("offset"))
		writeJSON(w, http.StatusOK, []model.Trade{})
	}))

	trades, err := c.GetTrades(context.Background(), TradeFilter{Symbol: "EURUSD", StartDate: &start, IsClosed: &closed, Limit: 20})
	require.NoError(t, err)
	assert.Empty(t, trades)
}

func TestClient_LogoutClearsTokens(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body model.RefreshPayload
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ref", body.RefreshToken)
		writeJSON(w, http.StatusOK, Message{Message: "Successfully logged out"})
	}))
	require.NoError(t, c.Tokens().SetTokens("acc", "ref"))

	require.NoError(t, c.Logout(context.Background()))
	access, refresh := c.Tokens().Tokens()
	assert.Empty(t, access)
	assert.Empty(t, refresh)
}
