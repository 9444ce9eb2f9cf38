package model

import "time"

// Exception is a failure worth keeping after the log line scrolls away:
// unexpected request errors and failed MT5 syncs.
type Exception struct {
	ID uint `gorm:"primaryKey" json:"id"`

	Service string `gorm:"size:100;index" json:"service"` // api | mt5sync
	Module  string `gorm:"size:100;index" json:"module"`  // handler | syncer
	Method  string `gorm:"size:100" json:"method"`

	Message string `gorm:"type:text" json:"message"`
	Stack   string `gorm:"type:text" json:"stack"`

	Level string `gorm:"size:20;index" json:"level"` // warn | error | fatal

	RequestID string `gorm:"size:64;index" json:"request_id,omitempty"`
	UserID    *uint  `gorm:"index" json:"user_id,omitempty"`

	// JSON encoded extra fields
	Context string `gorm:"type:text" json:"context,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
