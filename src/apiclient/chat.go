package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"tradingjournal/src/model"
)

// ChatQuery pages through a conversation. ConversationUserID is only
// honoured for admins.
type ChatQuery struct {
	ConversationUserID *uint
	Limit              int
	Offset             int
}

func (c *Client) SendChatMessage(ctx context.Context, payload model.ChatPayload) (*model.ChatMessageView, error) {
	var msg model.ChatMessageView
	if err := c.do(ctx, call{method: http.MethodPost, path: "/api/chat/messages", body: payload, result: &msg}); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (c *Client) GetChatMessages(ctx context.Context, q ChatQuery) ([]model.ChatMessageView, error) {
	query := map[string]string{}
	if q.ConversationUserID != nil {
		query["conversation_user_id"] = strconv.FormatUint(uint64(*q.ConversationUserID), 10)
	}
	if q.Limit > 0 {
		query["limit"] = strconv.Itoa(q.Limit)
	}
	if q.Offset > 0 {
		query["offset"] = strconv.Itoa(q.Offset)
	}
	var msgs []model.ChatMessageView
	if err := c.do(ctx, call{method: http.MethodGet, path: "/api/chat/messages", query: query, result: &msgs}); err != nil {
		return nil, err
	}
	return msgs, nil
}

func (c *Client) DeleteChatMessage(ctx context.Context, id uint) error {
	return c.do(ctx, call{method: http.MethodDelete, path: fmt.Sprintf("/api/chat/messages/%d", id)})
}
