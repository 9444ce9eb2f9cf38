package repository

import (
	"context"
	"errors"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tradingjournal/src/database"
	"tradingjournal/src/model"
)

type ChatRepository struct {
	db *gorm.DB
}

func NewChatRepository() *ChatRepository {
	return &ChatRepository{db: database.MainDB}
}

func (r *ChatRepository) WithDB(db *gorm.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

func (r *ChatRepository) Create(ctx context.Context, msg *model.ChatMessage) error {
	if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":            "ChatRepository",
			"op":              "Create",
			"conversation_id": msg.ConversationUserID,
		}).WithError(err).Error("Failed to store chat message")
		return err
	}
	return nil
}

// FindByID returns (nil, nil) for unknown messages.
func (r *ChatRepository) FindByID(ctx context.Context, id uint) (*model.ChatMessage, error) {
	var msg model.ChatMessage
	err := r.db.WithContext(ctx).First(&msg, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *ChatRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&model.ChatMessage{}, id).Error
}

// ListConversation pages from the newest message backwards and returns the
// page in chronological order, each message labelled with its author name.
// A zero conversationUserID lists every conversation.
func (r *ChatRepository) ListConversation(ctx context.Context, conversationUserID uint, limit, offset int) ([]model.ChatMessageView, error) {
	query := r.db.WithContext(ctx).Order("created_at DESC, id DESC")
	if conversationUserID != 0 {
		query = query.Where("conversation_user_id = ?", conversationUserID)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var msgs []model.ChatMessage
	if err := query.Find(&msgs).Error; err != nil {
		return nil, err
	}

	authors, err := r.authorNames(ctx, msgs)
	if err != nil {
		return nil, err
	}

	views := make([]model.ChatMessageView, 0, len(msgs))
	for i := len(msgs) - 1; i >= 0; i-- {
		views = append(views, model.ChatMessageView{ChatMessage: msgs[i], UserName: authors[msgs[i].UserID]})
	}
	return views, nil
}

func (r *ChatRepository) authorNames(ctx context.Context, msgs []model.ChatMessage) (map[uint]string, error) {
	ids := make([]uint, 0, len(msgs))
	seen := map[uint]bool{}
	for _, m := range msgs {
		if !seen[m.UserID] {
			seen[m.UserID] = true
			ids = append(ids, m.UserID)
		}
	}

	names := make(map[uint]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}
	var users []model.User
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	for i := range users {
		names[users[i].ID] = users[i].DisplayName()
	}
	return names, nil
}

// Conversations lists every conversation with its size and latest message,
// most recently active first.
func (r *ChatRepository) Conversations(ctx context.Context) ([]model.ChatConversation, error) {
	var rows []struct {
		ConversationUserID uint
		MessageCount       int64
		LastID             uint
	}
	err := r.db.WithContext(ctx).
		Model(&model.ChatMessage{}).
		Select("conversation_user_id, COUNT(*) AS message_count, MAX(id) AS last_id").
		Group("conversation_user_id").
		Order("last_id DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []model.ChatConversation{}, nil
	}

	userIDs := make([]uint, 0, len(rows))
	lastIDs := make([]uint, 0, len(rows))
	for _, row := range rows {
		userIDs = append(userIDs, row.ConversationUserID)
		lastIDs = append(lastIDs, row.LastID)
	}

	var users []model.User
	if err := r.db.WithContext(ctx).Where("id IN ?", userIDs).Find(&users).Error; err != nil {
		return nil, err
	}
	byUser := make(map[uint]model.User, len(users))
	for _, u := range users {
		byUser[u.ID] = u
	}

	var last []model.ChatMessage
	if err := r.db.WithContext(ctx).Where("id IN ?", lastIDs).Find(&last).Error; err != nil {
		return nil, err
	}
	lastAt := make(map[uint]model.ChatMessage, len(last))
	for _, m := range last {
		lastAt[m.ID] = m
	}

	out := make([]model.ChatConversation, 0, len(rows))
	for _, row := range rows {
		u := byUser[row.ConversationUserID]
		c := model.ChatConversation{
			UserID:       row.ConversationUserID,
			Email:        u.Email,
			FullName:     u.FullName,
			MessageCount: row.MessageCount,
		}
		if m, ok := lastAt[row.LastID]; ok {
			at := m.CreatedAt
			c.LastMessageAt = &at
		}
		out = append(out, c)
	}
	return out, nil
}

func (r *ChatRepository) Stats(ctx context.Context) (model.ChatStats, error) {
	var stats model.ChatStats
	db := r.db.WithContext(ctx)
	if err := db.Model(&model.ChatMessage{}).Count(&stats.TotalMessages).Error; err != nil {
		return stats, err
	}
	if err := db.Model(&model.User{}).Where("is_active = ?", true).Count(&stats.TotalUsers).Error; err != nil {
		return stats, err
	}
	if err := db.Model(&model.User{}).Where("role = ?", model.RoleAdmin).Count(&stats.AdminCount).Error; err != nil {
		return stats, err
	}
	return stats, nil
}
