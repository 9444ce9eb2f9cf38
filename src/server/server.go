package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	logger "github.com/sirupsen/logrus"

	"tradingjournal/src/cache"
	"tradingjournal/src/chat"
	"tradingjournal/src/events"
	"tradingjournal/src/handler"
	"tradingjournal/src/mt5sync"
	"tradingjournal/src/repository"
	"tradingjournal/src/security"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.WithError(err).Error("failed to encode response")
	}
}

// DefaultDependencies wires the routes to the main database, the
// configured cache and event producer. The returned func releases them.
func DefaultDependencies(ctx context.Context, config *Config) (Dependencies, func(), error) {
	secConfig := security.GetConfig()
	cipher, err := security.NewCipher(secConfig.EncryptionKey)
	if err != nil {
		return Dependencies{}, nil, fmt.Errorf("credential cipher: %w", err)
	}
	if secConfig.VPSSecret == "" {
		logger.Warn("VPS_SECRET not set, sync worker endpoints are disabled")
	}

	exceptionRepo := repository.NewExceptionRepository()
	handler.SetExceptionRecorder(exceptionRepo)

	analyticsCache, closeCache, err := cache.New(ctx, cache.GetConfig())
	if err != nil {
		return Dependencies{}, nil, err
	}
	publisher, closePublisher := events.New(events.GetConfig())

	deps := Dependencies{
		Auth:       handler.DefaultAuthService(),
		Users:      repository.NewUserRepository(),
		Trades:     repository.NewTradeRepository(),
		Journal:    repository.NewJournalRepository(),
		MT5:        repository.NewMT5AccountRepository(),
		Chat:       repository.NewChatRepository(),
		Exceptions: exceptionRepo,
		Cache:      analyticsCache,
		Notifier:   &events.TradeNotifier{Cache: analyticsCache, Publisher: publisher},
		Hub:        chat.NewHub(config.AllowedOrigins),
		Cipher:     cipher,
		VPSSecret:  secConfig.VPSSecret,
		RefreshTTL: time.Duration(secConfig.RefreshTokenExpireDays) * 24 * time.Hour,
	}

	cleanup := func() {
		deps.Hub.Close()
		if err := closePublisher(); err != nil {
			logger.WithError(err).Warn("closing event producer")
		}
		if err := closeCache(); err != nil {
			logger.WithError(err).Warn("closing analytics cache")
		}
	}
	return deps, cleanup, nil
}

func StartServer(config *Config) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, cleanup, err := DefaultDependencies(ctx, config)
	if err != nil {
		logger.WithError(err).Fatal("Failed to wire dependencies")
	}
	defer cleanup()

	if config.MT5SyncInProcess {
		syncer := mt5sync.NewSyncer(
			mt5sync.NewRepositorySource(deps.MT5, deps.Cipher),
			deps.Trades,
			mt5sync.NewDefaultBridgeTerminal(),
			mt5sync.GetConfig(),
		).WithNotifier(deps.Notifier).WithRecorder(deps.Exceptions)
		go func() {
			if err := syncer.Run(ctx); err != nil {
				logger.WithError(err).Error("MT5 sync stopped")
			}
		}()
	}

	// Server setup
	addr := ":" + config.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           NewRouter(config, deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.WithField("environment", config.Environment).Infof("Listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server crashed")
		}
	}()

	// Shutdown on SIGINT or SIGTERM
	<-ctx.Done()

	logger.Info("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Shutdown error")
	}
}
