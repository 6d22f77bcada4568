package models

import (
	"time"

	"gorm.io/gorm"
)

// DeviceFingerprint ties a stable hash of client signals to a user. The
// same fingerprint appearing under several users is a risk signal, not a
// constraint violation, so only the (user, fingerprint) pair is unique.
type DeviceFingerprint struct {
	gorm.Model

	UserID      uint   `gorm:"index;uniqueIndex:idx_user_fingerprint" json:"user_id"`
	Fingerprint string `gorm:"size:64;index;uniqueIndex:idx_user_fingerprint" json:"fingerprint"`

	FirstSeenAt time.Time `json:"first_seen_at"`
	LastSeenAt  time.Time `json:"last_seen_at"`
}
