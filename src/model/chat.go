package model

import (
	"strings"
	"time"
)

const MaxChatMessageLength = 5000

// ChatMessage belongs to the support conversation of ConversationUserID.
// UserID is the author, which is an admin when IsAdmin is set.
type ChatMessage struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	UserID             uint      `gorm:"not null;index" json:"user_id"`
	ConversationUserID uint      `gorm:"not null;index" json:"conversation_user_id"`
	Message            string    `gorm:"type:text;not null" json:"message"`
	IsAdmin            bool      `gorm:"not null" json:"is_admin"`
	CreatedAt          time.Time `gorm:"index" json:"created_at"`
}

type ChatMessageView struct {
	ChatMessage
	UserName string `json:"user_name"`
}

type ChatPayload struct {
	Message            string `json:"message"`
	ConversationUserID *uint  `json:"conversation_user_id"`
}

func (p ChatPayload) Validate() error {
	var errs ValidationErrors
	msg := strings.TrimSpace(p.Message)
	if msg == "" {
		errs.Add("message", "ensure this value has at least 1 characters")
	} else if len([]rune(msg)) > MaxChatMessageLength {
		errs.Add("message", "ensure this value has at most 5000 characters")
	}
	return errs.Err()
}

// ChatConversation is one row of the admin inbox.
type ChatConversation struct {
	UserID        uint       `json:"user_id"`
	Email         string     `json:"email"`
	FullName      string     `json:"full_name"`
	MessageCount  int64      `json:"message_count"`
	LastMessageAt *time.Time `json:"last_message_at"`
}

type ChatStats struct {
	TotalMessages int64 `json:"total_messages"`
	TotalUsers    int64 `json:"total_users"`
	AdminCount    int64 `json:"admin_count"`
}
