package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"tradingjournal/src/model"
)

type journalStore interface {
	FindEntry(ctx context.Context, userID, tradeID uint) (*model.JournalEntry, error)
	SaveEntry(ctx context.Context, entry *model.JournalEntry) error
	ListEntries(ctx context.Context, userID uint, limit, offset int) ([]model.JournalEntry, error)
	CreateTag(ctx context.Context, tag *model.TradeTag) error
	FindTagByName(ctx context.Context, userID uint, name string) (*model.TradeTag, error)
	FindTag(ctx context.Context, userID, tagID uint) (*model.TradeTag, error)
	ListTags(ctx context.Context, userID uint) ([]model.TradeTag, error)
}

type tradeFinder interface {
	FindByIDAndUser(ctx context.Context, id, userID uint) (*model.Trade, error)
}

type tradeTagger interface {
	tradeFinder
	AddTag(ctx context.Context, trade *model.Trade, tag *model.TradeTag) error
	RemoveTag(ctx context.Context, trade *model.Trade, tag *model.TradeTag) error
}

// userTrade answers 404 itself when the trade is not the user's.
func userTrade(w http.ResponseWriter, r *http.Request, trades tradeFinder, method string, userID, tradeID uint) (*model.Trade, bool) {
	trade, err := trades.FindByIDAndUser(r.Context(), tradeID, userID)
	if err != nil {
		internalError(w, r, method, err, map[string]interface{}{"trade_id": tradeID})
		return nil, false
	}
	if trade == nil {
		writeDetail(w, http.StatusNotFound, "Trade not found")
		return nil, false
	}
	return trade, true
}

// UpsertJournalEntryHandler creates the trade's entry or updates only the
// fields present in the request.
func UpsertJournalEntryHandler(repo journalStore, trades tradeFinder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := currentUser(w, r)
		if !ok {
			return
		}
		tradeID, ok := pathID(w, r, "tradeID")
		if !ok {
			return
		}

		var payload model.JournalEntryPayload
		if !decodeJSON(w, r, &payload) {
			return
		}
		if err := payload.Validate(); err != nil {
			writeError(w, r, "UpsertJournalEntry", err)
			return
		}

		if _, ok := userTrade(w, r, trades, "UpsertJournalEntry", user.ID, tradeID); !ok {
			return
		}

		entry, err := repo.FindEntry(r.Context(), user.ID, tradeID)
		if err != nil {
			internalError(w, r, "UpsertJournalEntry", err, nil)
			return
		}
		if entry == nil {
			entry = &model.JournalEntry{UserID: user.ID, TradeID: tradeID, ScreenshotURLs: []string{}}
		}
		payload.ApplyTo(entry)

		if err := repo.SaveEntry(r.Context(), entry); err != nil {
			internalError(w, r, "UpsertJournalEntry", err, map[string]interface{}{"trade_id": tradeID})
			return
		}
		writeJSON(w, http.StatusOK, entry)
	}
}

func GetJournalEntryHandler(repo journalStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := currentUser(w, r)
		if !ok {
			return
		}
		tradeID, ok := pathID(w, r, "tradeID")
		if !ok {
			return
		}

		entry, err := repo.FindEntry(r.Context(), user.ID, tradeID)
		if err != nil {
			internalError(w, r, "GetJournalEntry", err, nil)
			return
		}
		if entry == nil {
			writeDetail(w, http.StatusNotFound, "Journal entry not found")
			return
		}
		writeJSON(w, http.StatusOK, entry)
	}
}

func ListJournalEntriesHandler(repo journalStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := currentUser(w, r)
		if !ok {
			return
		}
		limit, offset, ok := pagination(w, r, 100, 1000)
		if !ok {
			return
		}

		entries, err := repo.ListEntries(r.Context(), user.ID, limit, offset)
		if err != nil {
			internalError(w, r, "ListJournalEntries", err, nil)
			return
		}
		if entries == nil {
			entries = []model.JournalEntry{}
		}
		writeJSON(w, http.StatusOK, entries)
	}
}

func CreateTagHandler(repo journalStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := currentUser(w, r)
		if !ok {
			return
		}

		var payload model.TagPayload
		if !decodeJSON(w, r, &payload) {
			return
		}
		if err := payload.Validate(); err != nil {
			writeError(w, r, "CreateTag", err)
			return
		}

		name := strings.TrimSpace(payload.Name)
		existing, err := repo.FindTagByName(r.Context(), user.ID, name)
		if err != nil {
			internalError(w, r, "CreateTag", err, nil)
			return
		}
		if existing != nil {
			writeDetail(w, http.StatusBadRequest, "Tag already exists")
			return
		}

		tag := &model.TradeTag{UserID: user.ID, Name: name, Color: payload.Color, Category: payload.Category}
		if err := repo.CreateTag(r.Context(), tag); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				writeDetail(w, http.StatusBadRequest, "Tag already exists")
				return
			}
			internalError(w, r, "CreateTag", err, nil)
			return
		}
		writeJSON(w, http.StatusCreated, tag)
	}
}

func ListTagsHandler(repo journalStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := currentUser(w, r)
		if !ok {
			return
		}

		tags, err := repo.ListTags(r.Context(), user.ID)
		if err != nil {
			internalError(w, r, "ListTags", err, nil)
			return
		}
		if tags == nil {
			tags = []model.TradeTag{}
		}
		writeJSON(w, http.StatusOK, tags)
	}
}

// TradeTagHandler links (add=true) or unlinks a tag and a trade, both of
// which must belong to the user.
func TradeTagHandler(repo journalStore, trades tradeTagger, add bool) http.HandlerFunc {
	method := "RemoveTagFromTrade"
	if add {
		method = "AddTagToTrade"
	}
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := currentUser(w, r)
		if !ok {
			return
		}
		tradeID, ok := pathID(w, r, "tradeID")
		if !ok {
			return
		}
		tagID, ok := pathID(w, r, "tagID")
		if !ok {
			return
		}

		trade, ok := userTrade(w, r, trades, method, user.ID, tradeID)
		if !ok {
			return
		}
		tag, err := repo.FindTag(r.Context(), user.ID, tagID)
		if err != nil {
			internalError(w, r, method, err, nil)
			return
		}
		if tag == nil {
			writeDetail(w, http.StatusNotFound, "Tag not found")
			return
		}

		if add {
			err = trades.AddTag(r.Context(), trade, tag)
		} else {
			err = trades.RemoveTag(r.Context(), trade, tag)
		}
		if err != nil {
			internalError(w, r, method, err, map[string]interface{}{"trade_id": tradeID, "tag_id": tagID})
			return
		}

		if add {
			writeMessage(w, "Tag added to trade")
		} else {
			writeMessage(w, "Tag removed from trade")
		}
	}
}
