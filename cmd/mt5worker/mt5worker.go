package mt5worker

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"tradingjournal/src/apiclient"
	"tradingjournal/src/cache"
	"tradingjournal/src/database"
	"tradingjournal/src/events"
	"tradingjournal/src/mt5sync"
	"tradingjournal/src/repository"
	"tradingjournal/src/security"
)

type MT5Worker struct {
	Once bool
}

func (t *MT5Worker) Start() error {
	config := GetConfig()
	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	// trades are always written to the database; only the account source
	// differs between local and remote mode
	if err := database.InitMainDB(); err != nil {
		logrus.WithError(err).Error("Failed to connect to main database")
		return err
	}

	var source mt5sync.AccountSource
	if config.Remote {
		client, err := apiclient.NewDefaultClient()
		if err != nil {
			return err
		}
		source = mt5sync.NewAPISource(client)
		logrus.Info("Reading MT5 accounts from the API")
	} else {
		cipher, err := security.NewCipher(security.GetConfig().EncryptionKey)
		if err != nil {
			return fmt.Errorf("credential cipher: %w", err)
		}
		source = mt5sync.NewRepositorySource(repository.NewMT5AccountRepository(), cipher)
	}

	analyticsCache, closeCache, err := cache.New(ctx, cache.GetConfig())
	if err != nil {
		return err
	}
	defer func() { _ = closeCache() }()
	publisher, closePublisher := events.New(events.GetConfig())
	defer func() { _ = closePublisher() }()

	syncer := mt5sync.NewSyncer(
		source,
		repository.NewTradeRepository(),
		mt5sync.NewDefaultBridgeTerminal(),
		mt5sync.GetConfig(),
	).
		WithNotifier(&events.TradeNotifier{Cache: analyticsCache, Publisher: publisher}).
		WithRecorder(repository.NewExceptionRepository())

	if t.Once {
		n, err := syncer.RunOnce(ctx)
		if err != nil {
			return err
		}
		logrus.WithField("accounts", n).Info("Sync cycle finished")
		return nil
	}
	return syncer.Run(ctx)
}
