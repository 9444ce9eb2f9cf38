package model

import (
	"regexp"
	"strings"
	"time"
)

// JournalEntry holds the written review of a single trade.
type JournalEntry struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	UserID            uint      `gorm:"not null;index" json:"user_id"`
	TradeID           uint      `gorm:"not null;uniqueIndex" json:"trade_id"`
	Title             string    `gorm:"size:255" json:"title"`
	Notes             string    `gorm:"type:text" json:"notes"`
	PreTradeAnalysis  string    `gorm:"type:text" json:"pre_trade_analysis"`
	PostTradeAnalysis string    `gorm:"type:text" json:"post_trade_analysis"`
	EmotionalState    string    `gorm:"size:50" json:"emotional_state"`
	Mistakes          string    `gorm:"type:text" json:"mistakes"`
	LessonsLearned    string    `gorm:"type:text" json:"lessons_learned"`
	ScreenshotURLs    []string  `gorm:"column:screenshot_urls;serializer:json;type:text" json:"screenshot_urls"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type JournalEntryPayload struct {
	Title             *string   `json:"title"`
	Notes             *string   `json:"notes"`
	PreTradeAnalysis  *string   `json:"pre_trade_analysis"`
	PostTradeAnalysis *string   `json:"post_trade_analysis"`
	EmotionalState    *string   `json:"emotional_state"`
	Mistakes          *string   `json:"mistakes"`
	LessonsLearned    *string   `json:"lessons_learned"`
	ScreenshotURLs    *[]string `json:"screenshot_urls"`
}

func (p JournalEntryPayload) Validate() error {
	var errs ValidationErrors
	if p.Title != nil && len(*p.Title) > 255 {
		errs.Add("title", "ensure this value has at most 255 characters")
	}
	if p.EmotionalState != nil && len(*p.EmotionalState) > 50 {
		errs.Add("emotional_state", "ensure this value has at most 50 characters")
	}
	return errs.Err()
}

// ApplyTo overwrites only the fields present in the payload.
func (p JournalEntryPayload) ApplyTo(e *JournalEntry) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&e.Title, p.Title)
	set(&e.Notes, p.Notes)
	set(&e.PreTradeAnalysis, p.PreTradeAnalysis)
	set(&e.PostTradeAnalysis, p.PostTradeAnalysis)
	set(&e.EmotionalState, p.EmotionalState)
	set(&e.Mistakes, p.Mistakes)
	set(&e.LessonsLearned, p.LessonsLearned)
	if p.ScreenshotURLs != nil {
		e.ScreenshotURLs = append([]string(nil), (*p.ScreenshotURLs)...)
	}
}

// TradeTag labels trades by strategy, session or market condition.
type TradeTag struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_trade_tags_user_name" json:"user_id"`
	Name      string    `gorm:"size:100;not null;uniqueIndex:idx_trade_tags_user_name" json:"name"`
	Color     string    `gorm:"size:7" json:"color"`
	Category  string    `gorm:"size:50" json:"category"`
	CreatedAt time.Time `json:"created_at"`
}

var hexColor = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

type TagPayload struct {
	Name     string `json:"name"`
	Color    string `json:"color"`
	Category string `json:"category"`
}

func (p TagPayload) Validate() error {
	var errs ValidationErrors
	name := strings.TrimSpace(p.Name)
	if name == "" {
		errs.Add("name", "field required")
	} else if len(name) > 100 {
		errs.Add("name", "ensure this value has at most 100 characters")
	}
	if p.Color != "" && !hexColor.MatchString(p.Color) {
		errs.Add("color", "string does not match regex \"^#[0-9A-Fa-f]{6}$\"")
	}
	if len(p.Category) > 50 {
		errs.Add("category", "ensure this value has at most 50 characters")
	}
	return errs.Err()
}
