package models

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type FraudFlagType string

const (
	FraudFlagDuplicateIdentity FraudFlagType = "duplicate_identity"
	FraudFlagVelocityPayment   FraudFlagType = "velocity_payment"
	FraudFlagVelocityPayout    FraudFlagType = "velocity_payout"
	FraudFlagSuspiciousPattern FraudFlagType = "suspicious_pattern"
	FraudFlagChargeback        FraudFlagType = "chargeback"
	FraudFlagDeviceFingerprint FraudFlagType = "device_fingerprint"
)

func (t FraudFlagType) Valid() bool {
	switch t {
	case FraudFlagDuplicateIdentity, FraudFlagVelocityPayment, FraudFlagVelocityPayout,
		FraudFlagSuspiciousPattern, FraudFlagChargeback, FraudFlagDeviceFingerprint:
		return true
	}
	return false
}

const (
	FraudSeverityMin = 1
	FraudSeverityMax = 5
)

// FraudFlag is an append-only suspicious-activity record. Components only
// ever create flags; the single mutation allowed afterwards is the
// administrative resolve step.
type FraudFlag struct {
	gorm.Model

	UserID    *uint `gorm:"index" json:"user_id,omitempty"`
	CreatorID *uint `gorm:"index" json:"creator_id,omitempty"`

	Type        FraudFlagType  `gorm:"size:32;index;not null" json:"type"`
	Severity    int            `gorm:"not null" json:"severity"`
	Description string         `gorm:"size:255" json:"description"`
	Metadata    datatypes.JSON `gorm:"type:jsonb" json:"metadata,omitempty"`

	IsResolved bool    `gorm:"default:false;index" json:"is_resolved"`
	ResolvedBy *string `gorm:"size:64" json:"resolved_by,omitempty"`
	Resolution *string `gorm:"size:255" json:"resolution,omitempty"`
}
