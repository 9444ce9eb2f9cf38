package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	logger "github.com/sirupsen/logrus"

	"tradingjournal/src/analytics"
	"tradingjournal/src/cache"
	"tradingjournal/src/model"
)

type closedTradeLister interface {
	ListClosed(ctx context.Context, userID uint, from, to *time.Time) ([]model.Trade, error)
}

type analyticsCache interface {
	Get(ctx context.Context, userID uint, key string, dst interface{}) (cache.Slot, bool, error)
	Set(ctx context.Context, slot cache.Slot, value interface{}) error
}

func rangeKey(kind string, from, to *time.Time) string {
	format := func(t *time.Time) string {
		if t == nil {
			return "-"
		}
		return t.UTC().Format(time.RFC3339)
	}
	return fmt.Sprintf("%s:%s:%s", kind, format(from), format(to))
}

// cachedAnalytics serves the value from the cache into dst, or loads the
// closed trades in the requested close_time range, builds it and stores it.
func cachedAnalytics(
	w http.ResponseWriter,
	r *http.Request,
	method string,
	kind string,
	repo closedTradeLister,
	store analyticsCache,
	dst interface{},
	build func([]model.Trade) interface{},
) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	from, ok := parseQueryTime(w, r, "start_date")
	if !ok {
		return
	}
	to, ok := parseQueryTime(w, r, "end_date")
	if !ok {
		return
	}

	key := rangeKey(kind, from, to)
	slot, hit, err := store.Get(r.Context(), user.ID, key, dst)
	if err != nil {
		logger.WithError(err).WithField("user_id", user.ID).Warn("analytics cache read failed")
	} else if hit {
		w.Header().Set("X-Cache", "HIT")
		writeJSON(w, http.StatusOK, dst)
		return
	}

	trades, err := repo.ListClosed(r.Context(), user.ID, from, to)
	if err != nil {
		internalError(w, r, method, err, nil)
		return
	}

	result := build(trades)
	if err := store.Set(r.Context(), slot, result); err != nil {
		logger.WithError(err).WithField("user_id", user.ID).Warn("analytics cache write failed")
	}
	w.Header().Set("X-Cache", "MISS")
	writeJSON(w, http.StatusOK, result)
}

// AnalyticsSummaryHandler returns the summary statistics of the user's
// closed trades, optionally limited to a close_time range.
func AnalyticsSummaryHandler(repo closedTradeLister, store analyticsCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cachedAnalytics(w, r, "AnalyticsSummary", "summary", repo, store, &analytics.Summary{}, func(trades []model.Trade) interface{} {
			return analytics.Summarize(trades)
		})
	}
}

// AnalyticsReportHandler returns the summary plus every chart series.
func AnalyticsReportHandler(repo closedTradeLister, store analyticsCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cachedAnalytics(w, r, "AnalyticsReport", "report", repo, store, &analytics.Report{}, func(trades []model.Trade) interface{} {
			return analytics.Compute(trades)
		})
	}
}
