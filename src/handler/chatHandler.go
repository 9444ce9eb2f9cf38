package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"tradingjournal/src/model"
)

type chatStore interface {
	Create(ctx context.Context, msg *model.ChatMessage) error
	FindByID(ctx context.Context, id uint) (*model.ChatMessage, error)
	Delete(ctx context.Context, id uint) error
	ListConversation(ctx context.Context, conversationUserID uint, limit, offset int) ([]model.ChatMessageView, error)
	Conversations(ctx context.Context) ([]model.ChatConversation, error)
	Stats(ctx context.Context) (model.ChatStats, error)
}

type chatBroadcaster interface {
	MessageCreated(view model.ChatMessageView)
	MessageDeleted(msg model.ChatMessage)
	Serve(w http.ResponseWriter, r *http.Request, user *model.User)
}

// SendChatMessageHandler posts into the caller's own conversation, or for
// admins into the conversation named by conversation_user_id.
func SendChatMessageHandler(repo chatStore, hub chatBroadcaster) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := currentUser(w, r)
		if !ok {
			return
		}

		var payload model.ChatPayload
		if !decodeJSON(w, r, &payload) {
			return
		}
		if err := payload.Validate(); err != nil {
			writeError(w, r, "SendChatMessage", err)
			return
		}

		conversation := user.ID
		if user.IsAdmin() {
			if payload.ConversationUserID == nil || *payload.ConversationUserID == 0 {
				writeDetail(w, http.StatusBadRequest, "Admins must specify conversation_user_id")
				return
			}
			conversation = *payload.ConversationUserID
		}

		msg := &model.ChatMessage{
			UserID:             user.ID,
			ConversationUserID: conversation,
			Message:            strings.TrimSpace(payload.Message),
			IsAdmin:            user.IsAdmin(),
		}
		if err := repo.Create(r.Context(), msg); err != nil {
			internalError(w, r, "SendChatMessage", err, nil)
			return
		}

		view := model.ChatMessageView{ChatMessage: *msg, UserName: user.DisplayName()}
		hub.MessageCreated(view)
		writeJSON(w, http.StatusCreated, view)
	}
}

// ListChatMessagesHandler returns a page of messages oldest first. Users
// only read their own conversation; admins read one or all.
func ListChatMessagesHandler(repo chatStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := currentUser(w, r)
		if !ok {
			return
		}

		var requested uint
		if v := r.URL.Query().Get("conversation_user_id"); v != "" {
			id, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				writeQueryError(w, "conversation_user_id", "value is not a valid integer")
				return
			}
			requested = uint(id)
		}
		limit, offset, ok := pagination(w, r, 100, 500)
		if !ok {
			return
		}

		conversation := requested
		if !user.IsAdmin() {
			if requested != 0 && requested != user.ID {
				writeDetail(w, http.StatusForbidden, "You can only view your own messages")
				return
			}
			conversation = user.ID
		}

		messages, err := repo.ListConversation(r.Context(), conversation, limit, offset)
		if err != nil {
			internalError(w, r, "ListChatMessages", err, nil)
			return
		}
		writeJSON(w, http.StatusOK, messages)
	}
}

func DeleteChatMessageHandler(repo chatStore, hub chatBroadcaster) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := currentUser(w, r)
		if !ok {
			return
		}
		id, ok := pathID(w, r, "messageID")
		if !ok {
			return
		}

		msg, err := repo.FindByID(r.Context(), id)
		if err != nil {
			internalError(w, r, "DeleteChatMessage", err, nil)
			return
		}
		if msg == nil {
			writeDetail(w, http.StatusNotFound, "Message not found")
			return
		}
		if msg.UserID != user.ID && !user.IsAdmin() {
			writeDetail(w, http.StatusForbidden, "You can only delete your own messages")
			return
		}

		if err := repo.Delete(r.Context(), id); err != nil {
			internalError(w, r, "DeleteChatMessage", err, map[string]interface{}{"message_id": id})
			return
		}
		hub.MessageDeleted(*msg)
		w.WriteHeader(http.StatusNoContent)
	}
}

func ChatConversationsHandler(repo chatStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conversations, err := repo.Conversations(r.Context())
		if err != nil {
			internalError(w, r, "ChatConversations", err, nil)
			return
		}
		if conversations == nil {
			conversations = []model.ChatConversation{}
		}
		writeJSON(w, http.StatusOK, conversations)
	}
}

func ChatStatsHandler(repo chatStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := repo.Stats(r.Context())
		if err != nil {
			internalError(w, r, "ChatStats", err, nil)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

// ChatStreamHandler upgrades to a websocket that pushes new and deleted
// messages of the caller's conversation.
func ChatStreamHandler(hub chatBroadcaster) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := currentUser(w, r)
		if !ok {
			return
		}
		hub.Serve(w, r, user)
	}
}
