package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradingjournal/src/model"
)

type mockChatStore struct {
	messages      map[uint]*model.ChatMessage
	listedFor     []uint
	deleted       []uint
	conversations []model.ChatConversation
}

func newMockChatStore(msgs ...*model.ChatMessage) *mockChatStore {
	m := &mockChatStore{messages: map[uint]*model.ChatMessage{}}
	for _, msg := range msgs {
		m.messages[msg.ID] = msg
	}
	return m
}

func (m *mockChatStore) Create(_ context.Context, msg *model.ChatMessage) error {
	msg.ID = uint(len(m.messages) + 1)
	m.messages[msg.ID] = msg
	return nil
}

func (m *mockChatStore) FindByID(_ context.Context, id uint) (*model.ChatMessage, error) {
	return m.messages[id], nil
}

func (m *mockChatStore) Delete(_ context.Context, id uint) error {
	m.deleted = append(m.deleted, id)
	delete(m.messages, id)
	return nil
}

func (m *mockChatStore) ListConversation(_ context.Context, conversationUserID uint, limit, offset int) ([]model.ChatMessageView, error) {
	m.listedFor = append(m.listedFor, conversationUserID)
	return []model.ChatMessageView{}, nil
}

func (m *mockChatStore) Conversations(context.Context) ([]model.ChatConversation, error) {
	return m.conversations, nil
}

func (m *mockChatStore) Stats(context.Context) (model.ChatStats, error) {
	return model.ChatStats{TotalMessages: int64(len(m.messages))}, nil
}

type mockHub struct {
	created []model.ChatMessageView
	deleted []model.ChatMessage
	served  []uint
}

func (h *mockHub) MessageCreated(v model.ChatMessageView) { h.created = append(h.created, v) }
func (h *mockHub) MessageDeleted(m model.ChatMessage)     { h.deleted = append(h.deleted, m) }
func (h *mockHub) Serve(w http.ResponseWriter, _ *http.Request, user *model.User) {
	h.served = append(h.served, user.ID)
	w.WriteHeader(http.StatusSwitchingProtocols)
}

func TestSendChatMessageHandler_User(t *testing.T) {
	repo, hub := newMockChatStore(), &mockHub{}
	user := &model.User{ID: 4, Email: "t@x.io", FullName: "Tess", Role: model.RoleUser}

	rr := httptest.NewRecorder()
	// a user cannot post into someone else's conversation
	body := model.ChatPayload{Message: "  help with sync  ", ConversationUserID: ptrUint(9)}
	SendChatMessageHandler(repo, hub).ServeHTTP(rr, asUser(newRequest(t, http.MethodPost, "/api/chat/messages", body), user))

	require.Equal(t, http.StatusCreated, rr.Code)
	var view model.ChatMessageView
	decodeBody(t, rr, &view)
	assert.EqualValues(t, 4, view.ConversationUserID)
	assert.Equal(t, "help with sync", view.Message)
	assert.Equal(t, "Tess", view.UserName)
	assert.False(t, view.IsAdmin)
	require.Len(t, hub.created, 1)
}

func TestSendChatMessageHandler_Admin(t *testing.T) {
	repo, hub := newMockChatStore(), &mockHub{}
	admin := &model.User{ID: 1, Email: "admin@x.io", Role: model.RoleAdmin}

	rr := httptest.NewRecorder()
	SendChatMessageHandler(repo, hub).ServeHTTP(rr, asUser(newRequest(t, http.MethodPost, "/api/chat/messages", model.ChatPayload{Message: "hi"}), admin))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Admins must specify conversation_user_id", detailOf(t, rr))

	rr = httptest.NewRecorder()
	body := model.ChatPayload{Message: "hi", ConversationUserID: ptrUint(4)}
	SendChatMessageHandler(repo, hub).ServeHTTP(rr, asUser(newRequest(t, http.MethodPost, "/api/chat/messages", body), admin))
	require.Equal(t, http.StatusCreated, rr.Code)
	var view model.ChatMessageView
	decodeBody(t, rr, &view)
	assert.EqualValues(t, 4, view.ConversationUserID)
	assert.True(t, view.IsAdmin)
	assert.Equal(t, "admin@x.io", view.UserName)
}

func TestSendChatMessageHandler_Empty(t *testing.T) {
	rr := httptest.NewRecorder()
	SendChatMessageHandler(newMockChatStore(), &mockHub{}).ServeHTTP(rr,
		asUser(newRequest(t, http.MethodPost, "/api/chat/messages", model.ChatPayload{Message: "   "}), &model.User{ID: 1}))
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestListChatMessagesHandler_Scoping(t *testing.T) {
	repo := newMockChatStore()
	handler := ListChatMessagesHandler(repo)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, asUser(httptest.NewRequest(http.MethodGet, "/api/chat/messages?conversation_user_id=9", nil), &model.User{ID: 4}))
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, asUser(httptest.NewRequest(http.MethodGet, "/api/chat/messages", nil), &model.User{ID: 4}))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, asUser(httptest.NewRequest(http.MethodGet, "/api/chat/messages?conversation_user_id=9", nil), &model.User{ID: 1, Role: model.RoleAdmin}))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, asUser(httptest.NewRequest(http.MethodGet, "/api/chat/messages", nil), &model.User{ID: 1, Role: model.RoleAdmin}))
	assert.Equal(t, http.StatusOK, rr.Code)

	assert.Equal(t, []uint{4, 9, 0}, repo.listedFor)
}

func TestDeleteChatMessageHandler(t *testing.T) {
	repo := newMockChatStore(
		&model.ChatMessage{ID: 1, UserID: 4, ConversationUserID: 4},
		&model.ChatMessage{ID: 2, UserID: 1, ConversationUserID: 4, IsAdmin: true},
	)
	hub := &mockHub{}
	handler := DeleteChatMessageHandler(repo, hub)
	user := &model.User{ID: 4}

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, asUser(withParams(httptest.NewRequest(http.MethodDelete, "/api/chat/messages/2", nil), "messageID", "2"), user))
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, asUser(withParams(httptest.NewRequest(http.MethodDelete, "/api/chat/messages/1", nil), "messageID", "1"), user))
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, asUser(withParams(httptest.NewRequest(http.MethodDelete, "/api/chat/messages/2", nil), "messageID", "2"), &model.User{ID: 1, Role: model.RoleAdmin}))
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, asUser(withParams(httptest.NewRequest(http.MethodDelete, "/api/chat/messages/3", nil), "messageID", "3"), user))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	assert.Equal(t, []uint{1, 2}, repo.deleted)
	assert.Len(t, hub.deleted, 2)
}

func TestChatAdminHandlers(t *testing.T) {
	repo := newMockChatStore(&model.ChatMessage{ID: 1})

	rr := httptest.NewRecorder()
	ChatConversationsHandler(repo).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/chat/admin/users", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, "[]", rr.Body.String())

	rr = httptest.NewRecorder()
	ChatStatsHandler(repo).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/chat/admin/stats", nil))
	assert.JSONEq(t, `{"total_messages":1,"total_users":0,"admin_count":0}`, rr.Body.String())
}

func TestChatStreamHandler(t *testing.T) {
	hub := &mockHub{}
	rr := httptest.NewRecorder()
	ChatStreamHandler(hub).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/chat/ws", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = httptest.NewRecorder()
	ChatStreamHandler(hub).ServeHTTP(rr, asUser(httptest.NewRequest(http.MethodGet, "/api/chat/ws", nil), &model.User{ID: 5}))
	assert.Equal(t, []uint{5}, hub.served)
}
