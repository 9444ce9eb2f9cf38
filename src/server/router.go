package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	logger "github.com/sirupsen/logrus"

	"tradingjournal/src/auth"
	"tradingjournal/src/cache"
	"tradingjournal/src/chat"
	"tradingjournal/src/events"
	"tradingjournal/src/handler"
	"tradingjournal/src/repository"
	"tradingjournal/src/security"
)

// Dependencies are the collaborators the routes are built from.
type Dependencies struct {
	Auth       *auth.Service
	Users      *repository.UserRepository
	Trades     *repository.TradeRepository
	Journal    *repository.JournalRepository
	MT5        *repository.MT5AccountRepository
	Chat       *repository.ChatRepository
	Exceptions *repository.ExceptionRepository
	Cache      cache.AnalyticsCache
	Notifier   *events.TradeNotifier
	Hub        *chat.Hub
	Cipher     *security.Cipher
	VPSSecret  string
	RefreshTTL time.Duration
}

func NewRouter(config *Config, deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// === Global Middleware ===
	r.Use(middleware.RealIP)
	r.Use(requestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(securityHeaders(config.IsProduction()))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   config.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", requestIDHeader},
		ExposedHeaders:   []string{requestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Public routes
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"message": "Trading Journal API",
			"version": "1.0.0",
			"status":  "running",
		})
	})
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})
	r.Get("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			logger.WithError(err).Error("/healthcheck error")
		}
	})

	requireUser := auth.RequireUser(deps.Auth)
	limiter := newIPRateLimiter(config.RateLimitPerMinute)

	r.Route("/api/auth", func(r chi.Router) {
		cookie := handler.CookieOptions{Secure: config.IsProduction(), MaxAge: deps.RefreshTTL}
		r.With(limiter.middleware).Post("/register", handler.RegisterHandler(deps.Auth))
		r.With(limiter.middleware).Post("/login", handler.LoginHandler(deps.Auth, cookie))
		r.With(limiter.middleware).Post("/refresh", handler.RefreshHandler(deps.Auth))

		r.Group(func(r chi.Router) {
			r.Use(requireUser)
			r.Post("/logout", handler.LogoutHandler(deps.Auth))
			r.Post("/logout-all", handler.LogoutAllHandler(deps.Auth))
			r.Get("/me", handler.MeHandler())
		})
	})

	r.Route("/api/users", func(r chi.Router) {
		r.Use(requireUser)
		r.Patch("/me", handler.UpdateUserHandler(deps.Users))
		r.Post("/me/password", handler.ChangePasswordHandler(deps.Auth))
	})

	r.Route("/api/trades", func(r chi.Router) {
		r.Use(requireUser)
		r.Post("/", handler.CreateTradeHandler(deps.Trades, deps.Notifier))
		r.Get("/", handler.SearchTradesHandler(deps.Trades))
		r.Get("/analytics/summary", handler.AnalyticsSummaryHandler(deps.Trades, deps.Cache))
		r.Get("/analytics/report", handler.AnalyticsReportHandler(deps.Trades, deps.Cache))
		r.Get("/{tradeID}", handler.GetTradeHandler(deps.Trades))
		r.Patch("/{tradeID}", handler.UpdateTradeHandler(deps.Trades, deps.Notifier))
		r.Delete("/{tradeID}", handler.DeleteTradeHandler(deps.Trades, deps.Notifier))
	})

	r.Route("/api/journal", func(r chi.Router) {
		r.Use(requireUser)
		r.Get("/entries", handler.ListJournalEntriesHandler(deps.Journal))
		r.Post("/entries/{tradeID}", handler.UpsertJournalEntryHandler(deps.Journal, deps.Trades))
		r.Get("/entries/{tradeID}", handler.GetJournalEntryHandler(deps.Journal))
		r.Post("/tags", handler.CreateTagHandler(deps.Journal))
		r.Get("/tags", handler.ListTagsHandler(deps.Journal))
		r.Post("/trades/{tradeID}/tags/{tagID}", handler.TradeTagHandler(deps.Journal, deps.Trades, true))
		r.Delete("/trades/{tradeID}/tags/{tagID}", handler.TradeTagHandler(deps.Journal, deps.Trades, false))
	})

	r.Route("/api/mt5", func(r chi.Router) {
		// sync worker endpoints, no user session
		r.Route("/vps", func(r chi.Router) {
			r.Use(handler.RequireVPSSecret(deps.VPSSecret))
			r.Get("/accounts", handler.DueMT5AccountsHandler(deps.MT5, deps.Cipher))
			r.Post("/status", handler.ReportMT5StatusHandler(deps.MT5))
		})

		r.Group(func(r chi.Router) {
			r.Use(requireUser)
			r.Post("/account", handler.UpsertMT5AccountHandler(deps.MT5, deps.Cipher))
			r.Get("/account", handler.GetMT5AccountHandler(deps.MT5))
			r.Delete("/account", handler.DeleteMT5AccountHandler(deps.MT5))
			r.Post("/account/toggle", handler.ToggleMT5SyncHandler(deps.MT5))
			r.Get("/accounts", handler.ListMT5AccountsHandler(deps.MT5))
			r.Post("/sync", handler.RequestMT5SyncHandler(deps.MT5))
			r.Get("/status", handler.MT5StatusHandler(deps.MT5, deps.Trades))
		})
	})

	r.Route("/api/chat", func(r chi.Router) {
		r.Use(requireUser)
		r.Post("/messages", handler.SendChatMessageHandler(deps.Chat, deps.Hub))
		r.Get("/messages", handler.ListChatMessagesHandler(deps.Chat))
		r.Delete("/messages/{messageID}", handler.DeleteChatMessageHandler(deps.Chat, deps.Hub))
		r.Get("/ws", handler.ChatStreamHandler(deps.Hub))

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAdmin)
			r.Get("/admin/users", handler.ChatConversationsHandler(deps.Chat))
			r.Get("/admin/stats", handler.ChatStatsHandler(deps.Chat))
		})
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(requireUser, auth.RequireAdmin)
		r.Get("/exceptions", handler.ListExceptionsHandler(deps.Exceptions))
	})

	return r
}
