package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"tradingjournal/src/events"
	"tradingjournal/src/model"
	"tradingjournal/src/repository"
)

type tradeStore interface {
	Create(ctx context.Context, trade *model.Trade) error
	FindByIDAndUser(ctx context.Context, id, userID uint) (*model.Trade, error)
	Search(ctx context.Context, options repository.TradeSearchOptions) ([]model.Trade, error)
	Update(ctx context.Context, trade *model.Trade) error
	Delete(ctx context.Context, id, userID uint) (bool, error)
}

type tradeObserver interface {
	TradeChanged(ctx context.Context, eventType events.EventType, userID uint, trade *model.Trade)
}

var queryTimeLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

func parseQueryTime(w http.ResponseWriter, r *http.Request, name string) (*time.Time, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil, true
	}
	for _, layout := range queryTimeLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return &t, true
		}
	}
	writeQueryError(w, name, "invalid datetime format")
	return nil, false
}

func CreateTradeHandler(repo tradeStore, observer tradeObserver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := currentUser(w, r)
		if !ok {
			return
		}

		var payload model.CreateTradePayload
		if !decodeJSON(w, r, &payload) {
			return
		}
		if err := payload.Validate(); err != nil {
			writeError(w, r, "CreateTrade", err)
			return
		}

		trade := payload.ToTrade(user.ID)
		if err := repo.Create(r.Context(), trade); err != nil {
			internalError(w, r, "CreateTrade", err, map[string]interface{}{"symbol": trade.Symbol})
			return
		}

		observer.TradeChanged(r.Context(), events.TradeCreated, user.ID, trade)
		writeJSON(w, http.StatusCreated, trade)
	}
}

// SearchTradesHandler lists the user's trades, newest open_time first.
// Filters: symbol, start_date, end_date, is_closed, limit, offset.
func SearchTradesHandler(repo tradeStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := currentUser(w, r)
		if !ok {
			return
		}

		query := r.URL.Query()
		options := repository.TradeSearchOptions{UserID: user.ID, WithTags: true}

		if symbol := strings.TrimSpace(query.Get("symbol")); symbol != "" {
			symbol = strings.ToUpper(symbol)
			options.Symbol = &symbol
		}
		if options.StartDate, ok = parseQueryTime(w, r, "start_date"); !ok {
			return
		}
		if options.EndDate, ok = parseQueryTime(w, r, "end_date"); !ok {
			return
		}
		if v := query.Get("is_closed"); v != "" {
			closed, err := strconv.ParseBool(v)
			if err != nil {
				writeQueryError(w, "is_closed", "value could not be parsed to a boolean")
				return
			}
			options.IsClosed = &closed
		}
		if options.Limit, options.Offset, ok = pagination(w, r, 100, 1000); !ok {
			return
		}

		trades, err := repo.Search(r.Context(), options)
		if err != nil {
			internalError(w, r, "SearchTrades", err, nil)
			return
		}
		if trades == nil {
			trades = []model.Trade{}
		}
		writeJSON(w, http.StatusOK, trades)
	}
}

func GetTradeHandler(repo tradeStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := currentUser(w, r)
		if !ok {
			return
		}
		id, ok := pathID(w, r, "tradeID")
		if !ok {
			return
		}

		trade, err := repo.FindByIDAndUser(r.Context(), id, user.ID)
		if err != nil {
			internalError(w, r, "GetTrade", err, nil)
			return
		}
		if trade == nil {
			writeDetail(w, http.StatusNotFound, "Trade not found")
			return
		}
		writeJSON(w, http.StatusOK, trade)
	}
}

func UpdateTradeHandler(repo tradeStore, observer tradeObserver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := currentUser(w, r)
		if !ok {
			return
		}
		id, ok := pathID(w, r, "tradeID")
		if !ok {
			return
		}

		var payload model.UpdateTradePayload
		if !decodeJSON(w, r, &payload) {
			return
		}
		if err := payload.Validate(); err != nil {
			writeError(w, r, "UpdateTrade", err)
			return
		}

		trade, err := repo.FindByIDAndUser(r.Context(), id, user.ID)
		if err != nil {
			internalError(w, r, "UpdateTrade", err, nil)
			return
		}
		if trade == nil {
			writeDetail(w, http.StatusNotFound, "Trade not found")
			return
		}
		if err := payload.ValidateAgainst(trade); err != nil {
			writeError(w, r, "UpdateTrade", err)
			return
		}

		payload.Apply(trade)
		if err := repo.Update(r.Context(), trade); err != nil {
			internalError(w, r, "UpdateTrade", err, map[string]interface{}{"trade_id": id})
			return
		}

		observer.TradeChanged(r.Context(), events.TradeUpdated, user.ID, trade)
		writeJSON(w, http.StatusOK, trade)
	}
}

func DeleteTradeHandler(repo tradeStore, observer tradeObserver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := currentUser(w, r)
		if !ok {
			return
		}
		id, ok := pathID(w, r, "tradeID")
		if !ok {
			return
		}

		deleted, err := repo.Delete(r.Context(), id, user.ID)
		if err != nil {
			internalError(w, r, "DeleteTrade", err, map[string]interface{}{"trade_id": id})
			return
		}
		if !deleted {
			writeDetail(w, http.StatusNotFound, "Trade not found")
			return
		}

		observer.TradeChanged(r.Context(), events.TradeDeleted, user.ID, &model.Trade{ID: id, UserID: user.ID})
		writeMessage(w, "Trade deleted successfully")
	}
}
