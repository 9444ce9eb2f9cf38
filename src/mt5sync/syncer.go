package mt5sync

import (
	"context"
	"fmt"
	"time"

	logger "github.com/sirupsen/logrus"

	"tradingjournal/src/events"
	"tradingjournal/src/exceptions"
	"tradingjournal/src/model"
	"tradingjournal/src/repository"
)

type tradeObserver interface {
	TradeChanged(ctx context.Context, eventType events.EventType, userID uint, trade *model.Trade)
}

// Result is the outcome of syncing one account.
type Result struct {
	Status        model.SyncStatus
	Message       string
	TradesSynced  int
	LastTradeTime *time.Time
}

// Syncer pulls trade history from the terminal for every due account, one
// account at a time.
type Syncer struct {
	source   AccountSource
	sink     TradeSink
	terminal Terminal
	config   Config

	notifier   tradeObserver
	exceptions exceptions.Recorder
	now        func() time.Time
}

func NewSyncer(source AccountSource, sink TradeSink, terminal Terminal, config Config) *Syncer {
	return &Syncer{
		source:   source,
		sink:     sink,
		terminal: terminal,
		config:   config,
		now:      time.Now,
	}
}

func (s *Syncer) WithNotifier(n tradeObserver) *Syncer {
	s.notifier = n
	return s
}

func (s *Syncer) WithRecorder(r exceptions.Recorder) *Syncer {
	s.exceptions = r
	return s
}

// Run syncs immediately and then on every check interval until ctx ends.
func (s *Syncer) Run(ctx context.Context) error {
	logger.WithFields(map[string]interface{}{
		"check_interval": s.config.CheckInterval.String(),
		"account_delay":  s.config.AccountDelay.String(),
	}).Info("MT5 sync service starting")

	interval := s.config.CheckInterval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := s.RunOnce(ctx); err != nil {
			logger.WithError(err).Error("sync cycle failed")
		}
		select {
		case <-ctx.Done():
			logger.Println("sync loop stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// RunOnce runs one cycle over all due accounts and returns how many were
// processed.
func (s *Syncer) RunOnce(ctx context.Context) (int, error) {
	accounts, err := s.source.DueAccounts(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetch due accounts: %w", err)
	}
	if len(accounts) == 0 {
		logger.Debug("No accounts need syncing")
		return 0, nil
	}
	logger.WithField("accounts", len(accounts)).Info("Found accounts to sync")

	processed := 0
	for i, account := range accounts {
		if i > 0 && !sleep(ctx, s.config.AccountDelay) {
			break
		}

		log := logger.WithFields(map[string]interface{}{
			"account_id": account.AccountID,
			"user_id":    account.UserID,
		})
		log.Info("Processing account")

		res := s.SyncAccount(ctx, account)
		processed++

		update := model.MT5StatusUpdate{
			AccountID:     account.AccountID,
			Status:        res.Status,
			Message:       res.Message,
			LastTradeTime: res.LastTradeTime,
		}
		if err := s.source.ReportStatus(ctx, update); err != nil {
			log.WithError(err).Error("Failed to report sync status")
			s.capture(ctx, "ReportStatus", err, account)
		}
	}
	return processed, nil
}

// SyncAccount logs in, pulls deals and open positions, and stores every
// trade that is new or newly closed.
func (s *Syncer) SyncAccount(ctx context.Context, account model.SyncAccount) Result {
	session, err := s.terminal.Open(ctx, account)
	if err != nil {
		s.capture(ctx, "Open", err, account)
		return Result{Status: model.SyncError, Message: err.Error()}
	}
	defer func() {
		if err := session.Close(context.WithoutCancel(ctx)); err != nil {
			logger.WithField("account_id", account.AccountID).WithError(err).Warn("Failed to close terminal session")
		}
	}()

	to := s.now().UTC()
	from := to.Add(-s.config.HistoryLookback)
	if account.LastTradeTime != nil {
		from = *account.LastTradeTime
	}

	deals, err := session.Deals(ctx, from, to)
	if err != nil {
		s.capture(ctx, "Deals", err, account)
		return Result{Status: model.SyncError, Message: "Error: " + err.Error()}
	}
	positions, err := session.Positions(ctx)
	if err != nil {
		s.capture(ctx, "Positions", err, account)
		return Result{Status: model.SyncError, Message: "Error: " + err.Error()}
	}

	batch := BuildTrades(account.UserID, deals, positions)
	synced := 0
	for i := range batch.Trades {
		trade := &batch.Trades[i]
		result, err := s.sink.UpsertMT5Trade(ctx, trade)
		if err != nil {
			s.capture(ctx, "UpsertMT5Trade", err, account)
			return Result{Status: model.SyncError, Message: "Error: " + err.Error(), TradesSynced: synced}
		}
		if result == repository.UpsertSkipped {
			continue
		}
		synced++
		if s.notifier != nil {
			s.notifier.TradeChanged(ctx, events.TradeSynced, account.UserID, trade)
		}
	}
	for _, exit := range batch.Closes {
		trade, err := s.sink.CloseMT5Trade(ctx, exit)
		if err != nil {
			s.capture(ctx, "CloseMT5Trade", err, account)
			return Result{Status: model.SyncError, Message: "Error: " + err.Error(), TradesSynced: synced}
		}
		if trade == nil {
			continue
		}
		synced++
		if s.notifier != nil {
			s.notifier.TradeChanged(ctx, events.TradeSynced, account.UserID, trade)
		}
	}

	message := fmt.Sprintf("Synced %d new trades", synced)
	logger.WithFields(map[string]interface{}{
		"user_id": account.UserID,
		"deals":   len(deals),
		"open":    len(positions),
	}).Info(message)

	res := Result{Status: model.SyncSuccess, Message: message, TradesSynced: synced}
	if batch.LastTradeTime != nil && (account.LastTradeTime == nil || batch.LastTradeTime.After(*account.LastTradeTime)) {
		res.LastTradeTime = batch.LastTradeTime
	}
	return res
}

func (s *Syncer) capture(ctx context.Context, method string, err error, account model.SyncAccount) {
	exceptions.Capture(ctx, s.exceptions, "mt5sync", "Syncer", method, exceptions.LevelError, err,
		map[string]interface{}{"account_id": account.AccountID, "user_id": account.UserID})
}

// sleep waits d and reports false if ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
