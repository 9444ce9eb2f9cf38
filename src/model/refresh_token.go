package model

import "time"

// RefreshToken is a persisted, revocable refresh JWT bound to one device.
type RefreshToken struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	Token     string     `gorm:"size:512;uniqueIndex;not null" json:"-"`
	UserID    uint       `gorm:"not null;index" json:"user_id"`
	IsRevoked bool       `gorm:"not null;index" json:"is_revoked"`
	ExpiresAt time.Time  `gorm:"not null" json:"expires_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
	UserAgent string     `gorm:"size:500" json:"user_agent"`
	IPAddress string     `gorm:"size:45" json:"ip_address"`
	CreatedAt time.Time  `json:"created_at"`
}

func (t *RefreshToken) IsUsable(now time.Time) bool {
	return t != nil && !t.IsRevoked && now.Before(t.ExpiresAt)
}
