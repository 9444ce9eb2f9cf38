package handler

import (
	"context"
	"net/http"
	"strings"

	logger "github.com/sirupsen/logrus"

	"tradingjournal/src/model"
)

type mt5AccountStore interface {
	FindByUser(ctx context.Context, userID uint) (*model.MT5Account, error)
	Save(ctx context.Context, account *model.MT5Account) error
	DeleteByUser(ctx context.Context, userID uint) (bool, error)
	RequestSync(ctx context.Context, userID uint) (bool, error)
}

type syncedTradeCounter interface {
	CountBySource(ctx context.Context, userID uint, source model.TradeSource) (int64, error)
}

type credentialCipher interface {
	Encrypt(plain string) (string, error)
	Decrypt(encoded string) (string, error)
}

const noMT5Account = "No MT5 account configured"

// userAccount answers 404 itself when the user has no MT5 account.
func userAccount(w http.ResponseWriter, r *http.Request, repo mt5AccountStore, method string, userID uint) (*model.MT5Account, bool) {
	account, err := repo.FindByUser(r.Context(), userID)
	if err != nil {
		internalError(w, r, method, err, nil)
		return nil, false
	}
	if account == nil {
		writeDetail(w, http.StatusNotFound, noMT5Account)
		return nil, false
	}
	return account, true
}

// UpsertMT5AccountHandler stores the user's MT5 credentials. The password
// is required the first time and kept when omitted on later updates.
func UpsertMT5AccountHandler(repo mt5AccountStore, cipher credentialCipher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := currentUser(w, r)
		if !ok {
			return
		}

		var payload model.MT5AccountPayload
		if !decodeJSON(w, r, &payload) {
			return
		}

		account, err := repo.FindByUser(r.Context(), user.ID)
		if err != nil {
			internalError(w, r, "UpsertMT5Account", err, nil)
			return
		}
		creating := account == nil
		if creating && (payload.Password == nil || *payload.Password == "") {
			writeDetail(w, http.StatusBadRequest, "Password is required for new accounts")
			return
		}
		if err := payload.Validate(creating); err != nil {
			writeError(w, r, "UpsertMT5Account", err)
			return
		}

		if creating {
			account = &model.MT5Account{
				UserID:          user.ID,
				LastSyncMessage: "Account created, waiting for first sync",
			}
		} else {
			account.LastSyncMessage = "Credentials updated, waiting for sync"
		}
		account.Login = strings.TrimSpace(payload.Login)
		account.Server = strings.TrimSpace(payload.Server)
		account.LastSyncStatus = model.SyncPending
		account.SyncIntervalMinutes = model.DefaultSyncIntervalMinutes
		if payload.SyncIntervalMinutes != nil {
			account.SyncIntervalMinutes = *payload.SyncIntervalMinutes
		}
		account.IsActive = true
		if payload.IsActive != nil && !creating {
			account.IsActive = *payload.IsActive
		}
		if payload.Password != nil && *payload.Password != "" {
			encrypted, err := cipher.Encrypt(*payload.Password)
			if err != nil {
				internalError(w, r, "UpsertMT5Account", err, nil)
				return
			}
			account.PasswordEncrypted = encrypted
		}

		if err := repo.Save(r.Context(), account); err != nil {
			internalError(w, r, "UpsertMT5Account", err, nil)
			return
		}

		logger.WithFields(map[string]interface{}{
			"user_id":  user.ID,
			"creating": creating,
		}).Info("MT5 account saved")
		writeJSON(w, http.StatusCreated, account)
	}
}

func GetMT5AccountHandler(repo mt5AccountStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := currentUser(w, r)
		if !ok {
			return
		}
		account, ok := userAccount(w, r, repo, "GetMT5Account", user.ID)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, account)
	}
}

// ListMT5AccountsHandler returns the user's accounts as a list, which is
// empty rather than 404 when nothing is configured.
func ListMT5AccountsHandler(repo mt5AccountStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := currentUser(w, r)
		if !ok {
			return
		}
		account, err := repo.FindByUser(r.Context(), user.ID)
		if err != nil {
			internalError(w, r, "ListMT5Accounts", err, nil)
			return
		}
		accounts := []model.MT5Account{}
		if account != nil {
			accounts = append(accounts, *account)
		}
		writeJSON(w, http.StatusOK, accounts)
	}
}

func DeleteMT5AccountHandler(repo mt5AccountStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := currentUser(w, r)
		if !ok {
			return
		}
		deleted, err := repo.DeleteByUser(r.Context(), user.ID)
		if err != nil {
			internalError(w, r, "DeleteMT5Account", err, nil)
			return
		}
		if !deleted {
			writeDetail(w, http.StatusNotFound, noMT5Account)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func ToggleMT5SyncHandler(repo mt5AccountStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := currentUser(w, r)
		if !ok {
			return
		}
		account, ok := userAccount(w, r, repo, "ToggleMT5Sync", user.ID)
		if !ok {
			return
		}

		account.IsActive = !account.IsActive
		if account.IsActive {
			account.LastSyncMessage = "Sync enabled"
		} else {
			account.LastSyncMessage = "Sync disabled by user"
		}
		if err := repo.Save(r.Context(), account); err != nil {
			internalError(w, r, "ToggleMT5Sync", err, nil)
			return
		}
		writeJSON(w, http.StatusOK, account)
	}
}

// RequestMT5SyncHandler makes the account due on the next scheduler pass.
func RequestMT5SyncHandler(repo mt5AccountStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := currentUser(w, r)
		if !ok {
			return
		}
		found, err := repo.RequestSync(r.Context(), user.ID)
		if err != nil {
			internalError(w, r, "RequestMT5Sync", err, nil)
			return
		}
		if !found {
			writeDetail(w, http.StatusNotFound, noMT5Account)
			return
		}
		writeMessage(w, "Sync requested")
	}
}

func MT5StatusHandler(repo mt5AccountStore, trades syncedTradeCounter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := currentUser(w, r)
		if !ok {
			return
		}
		account, err := repo.FindByUser(r.Context(), user.ID)
		if err != nil {
			internalError(w, r, "MT5Status", err, nil)
			return
		}
		if account == nil {
			writeJSON(w, http.StatusOK, model.MT5Status{})
			return
		}

		count, err := trades.CountBySource(r.Context(), user.ID, model.SourceMT5)
		if err != nil {
			internalError(w, r, "MT5Status", err, nil)
			return
		}

		writeJSON(w, http.StatusOK, model.MT5Status{
			HasConfig:         true,
			IsActive:          account.IsActive,
			LastSyncAt:        account.LastSyncAt,
			LastSyncStatus:    account.LastSyncStatus,
			LastSyncMessage:   account.LastSyncMessage,
			LastTradeTime:     account.LastTradeTime,
			TotalTradesSynced: count,
		})
	}
}
