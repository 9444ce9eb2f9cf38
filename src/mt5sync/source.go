package mt5sync

import (
	"context"
	"fmt"
	"time"

	logger "github.com/sirupsen/logrus"

	"tradingjournal/src/model"
	"tradingjournal/src/repository"
)

// AccountSource hands out the accounts due for a sync and takes back the
// outcome of each run.
type AccountSource interface {
	DueAccounts(ctx context.Context) ([]model.SyncAccount, error)
	ReportStatus(ctx context.Context, update model.MT5StatusUpdate) error
}

// TradeSink stores synced trades keyed by (user, ticket).
type TradeSink interface {
	UpsertMT5Trade(ctx context.Context, trade *model.Trade) (repository.UpsertResult, error)
	CloseMT5Trade(ctx context.Context, exit model.MT5Close) (*model.Trade, error)
}

type accountStore interface {
	ListDue(ctx context.Context, now time.Time) ([]model.MT5Account, error)
	RecordSync(ctx context.Context, update model.MT5StatusUpdate, at time.Time) (bool, error)
}

type decrypter interface {
	Decrypt(encoded string) (string, error)
}

// RepositorySource reads accounts straight from the database. Used when
// the sync engine runs next to the API.
type RepositorySource struct {
	repo   accountStore
	cipher decrypter
	now    func() time.Time
}

func NewRepositorySource(repo accountStore, cipher decrypter) *RepositorySource {
	return &RepositorySource{repo: repo, cipher: cipher, now: time.Now}
}

func (s *RepositorySource) DueAccounts(ctx context.Context) ([]model.SyncAccount, error) {
	accounts, err := s.repo.ListDue(ctx, s.now())
	if err != nil {
		return nil, err
	}
	out := make([]model.SyncAccount, 0, len(accounts))
	for _, a := range accounts {
		password, err := s.cipher.Decrypt(a.PasswordEncrypted)
		if err != nil || password == "" {
			logger.WithField("account_id", a.ID).WithError(err).Warn("skipping MT5 account with unreadable password")
			continue
		}
		out = append(out, a.ToSyncAccount(password))
	}
	return out, nil
}

func (s *RepositorySource) ReportStatus(ctx context.Context, update model.MT5StatusUpdate) error {
	found, err := s.repo.RecordSync(ctx, update, s.now().UTC())
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("mt5 account %d not found", update.AccountID)
	}
	return nil
}

type vpsClient interface {
	DueMT5Accounts(ctx context.Context) ([]model.SyncAccount, error)
	ReportMT5Status(ctx context.Context, update model.MT5StatusUpdate) error
}

// APISource fetches accounts over the API's VPS endpoints, for a worker
// running on the machine that hosts the terminal.
type APISource struct {
	client vpsClient
}

func NewAPISource(client vpsClient) *APISource {
	return &APISource{client: client}
}

func (s *APISource) DueAccounts(ctx context.Context) ([]model.SyncAccount, error) {
	return s.client.DueMT5Accounts(ctx)
}

func (s *APISource) ReportStatus(ctx context.Context, update model.MT5StatusUpdate) error {
	return s.client.ReportMT5Status(ctx, update)
}
