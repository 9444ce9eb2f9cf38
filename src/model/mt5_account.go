package model

import (
	"strings"
	"time"
)

type SyncStatus string

const (
	SyncPending SyncStatus = "pending"
	SyncSuccess SyncStatus = "success"
	SyncError   SyncStatus = "error"
)

func (s SyncStatus) Valid() bool {
	return s == SyncPending || s == SyncSuccess || s == SyncError
}

const (
	DefaultSyncIntervalMinutes = 5
	MinSyncIntervalMinutes     = 1
	MaxSyncIntervalMinutes     = 60
)

// MT5Account is a user's MetaTrader 5 login, at most one per user. The
// password is only ever stored encrypted.
type MT5Account struct {
	ID                  uint       `gorm:"primaryKey" json:"id"`
	UserID              uint       `gorm:"not null;uniqueIndex" json:"user_id"`
	Login               string     `gorm:"column:mt5_login;size:50;not null" json:"mt5_login"`
	PasswordEncrypted   string     `gorm:"column:mt5_password_encrypted;type:text;not null" json:"-"`
	Server              string     `gorm:"column:mt5_server;size:255;not null" json:"mt5_server"`
	IsActive            bool       `gorm:"not null;index" json:"is_active"`
	SyncIntervalMinutes int        `gorm:"not null" json:"sync_interval_minutes"`
	LastSyncAt          *time.Time `json:"last_sync_at"`
	LastSyncStatus      SyncStatus `gorm:"size:20" json:"last_sync_status"`
	LastSyncMessage     string     `gorm:"type:text" json:"last_sync_message"`
	LastTradeTime       *time.Time `json:"last_trade_time"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

func (a *MT5Account) interval() time.Duration {
	minutes := a.SyncIntervalMinutes
	if minutes < MinSyncIntervalMinutes {
		minutes = DefaultSyncIntervalMinutes
	}
	return time.Duration(minutes) * time.Minute
}

// IsDue reports whether an active account should be synced at now: it was
// never synced, or its interval has elapsed since the last sync.
func (a *MT5Account) IsDue(now time.Time) bool {
	if !a.IsActive {
		return false
	}
	if a.LastSyncAt == nil {
		return true
	}
	return !now.Before(a.LastSyncAt.Add(a.interval()))
}

type MT5AccountPayload struct {
	Login               string  `json:"mt5_login"`
	Password            *string `json:"mt5_password"`
	Server              string  `json:"mt5_server"`
	SyncIntervalMinutes *int    `json:"sync_interval_minutes"`
	IsActive            *bool   `json:"is_active"`
}

// Validate checks the payload; a password is mandatory only when the
// account does not exist yet.
func (p MT5AccountPayload) Validate(creating bool) error {
	var errs ValidationErrors
	if strings.TrimSpace(p.Login) == "" {
		errs.Add("mt5_login", "field required")
	}
	if strings.TrimSpace(p.Server) == "" {
		errs.Add("mt5_server", "field required")
	}
	if creating && (p.Password == nil || *p.Password == "") {
		errs.Add("mt5_password", "Password is required for new accounts")
	}
	if p.SyncIntervalMinutes != nil {
		if m := *p.SyncIntervalMinutes; m < MinSyncIntervalMinutes || m > MaxSyncIntervalMinutes {
			errs.Add("sync_interval_minutes", "ensure this value is between 1 and 60")
		}
	}
	return errs.Err()
}

// MT5StatusUpdate is what a sync worker reports after processing an account.
type MT5StatusUpdate struct {
	AccountID     uint       `json:"account_id"`
	Status        SyncStatus `json:"status"`
	Message       string     `json:"message"`
	LastTradeTime *time.Time `json:"last_trade_time,omitempty"`
}

func (u MT5StatusUpdate) Validate() error {
	var errs ValidationErrors
	if u.AccountID == 0 {
		errs.Add("account_id", "field required")
	}
	if !u.Status.Valid() {
		errs.Add("status", "value is not a valid enumeration member; permitted: 'pending', 'success', 'error'")
	}
	return errs.Err()
}

// MT5Status summarizes the sync state for the settings page.
type MT5Status struct {
	HasConfig         bool       `json:"has_config"`
	IsActive          bool       `json:"is_active"`
	LastSyncAt        *time.Time `json:"last_sync_at"`
	LastSyncStatus    SyncStatus `json:"last_sync_status"`
	LastSyncMessage   string     `json:"last_sync_message"`
	LastTradeTime     *time.Time `json:"last_trade_time"`
	TotalTradesSynced int64      `json:"total_trades_synced"`
}

// SyncAccount carries decrypted credentials to a sync worker.
type SyncAccount struct {
	AccountID           uint       `json:"account_id"`
	UserID              uint       `json:"user_id"`
	Login               string     `json:"mt5_login"`
	Password            string     `json:"mt5_password"`
	Server              string     `json:"mt5_server"`
	SyncIntervalMinutes int        `json:"sync_interval_minutes"`
	LastTradeTime       *time.Time `json:"last_trade_time"`
}

func (a *MT5Account) ToSyncAccount(password string) SyncAccount {
	return SyncAccount{
		AccountID:           a.ID,
		UserID:              a.UserID,
		Login:               a.Login,
		Password:            password,
		Server:              a.Server,
		SyncIntervalMinutes: a.SyncIntervalMinutes,
		LastTradeTime:       a.LastTradeTime,
	}
}
