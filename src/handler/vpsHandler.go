package handler

import (
	"context"
	"net/http"
	"time"

	logger "github.com/sirupsen/logrus"

	"tradingjournal/src/model"
	"tradingjournal/src/security"
)

const VPSSecretHeader = "X-VPS-Secret"

type dueAccountLister interface {
	ListDue(ctx context.Context, now time.Time) ([]model.MT5Account, error)
}

type syncRecorder interface {
	RecordSync(ctx context.Context, update model.MT5StatusUpdate, at time.Time) (bool, error)
}

// RequireVPSSecret guards the sync worker endpoints. An empty secret
// rejects every request.
func RequireVPSSecret(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !security.SecretsEqual(secret, r.Header.Get(VPSSecretHeader)) {
				logger.WithField("remote", r.RemoteAddr).Warn("rejected VPS request")
				writeDetail(w, http.StatusUnauthorized, "Invalid VPS secret")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// DueMT5AccountsHandler lists accounts whose sync interval has elapsed with
// their decrypted passwords. Accounts that fail to decrypt are skipped.
func DueMT5AccountsHandler(repo dueAccountLister, cipher credentialCipher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accounts, err := repo.ListDue(r.Context(), time.Now())
		if err != nil {
			internalError(w, r, "DueMT5Accounts", err, nil)
			return
		}

		out := make([]model.SyncAccount, 0, len(accounts))
		for _, a := range accounts {
			password, err := cipher.Decrypt(a.PasswordEncrypted)
			if err != nil || password == "" {
				logger.WithField("account_id", a.ID).WithError(err).Warn("skipping MT5 account with unreadable password")
				continue
			}
			out = append(out, a.ToSyncAccount(password))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func ReportMT5StatusHandler(repo syncRecorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var update model.MT5StatusUpdate
		if !decodeJSON(w, r, &update) {
			return
		}
		if err := update.Validate(); err != nil {
			writeError(w, r, "ReportMT5Status", err)
			return
		}

		found, err := repo.RecordSync(r.Context(), update, time.Now().UTC())
		if err != nil {
			internalError(w, r, "ReportMT5Status", err, map[string]interface{}{"account_id": update.AccountID})
			return
		}
		if !found {
			writeDetail(w, http.StatusNotFound, "Account not found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
	}
}
