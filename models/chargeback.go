package models

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ChargebackStatus string

const (
	ChargebackStatusPending  ChargebackStatus = "pending"
	ChargebackStatusDisputed ChargebackStatus = "disputed"
	ChargebackStatusWon      ChargebackStatus = "won"
	ChargebackStatusLost     ChargebackStatus = "lost"
)

func (s ChargebackStatus) Valid() bool {
	switch s {
	case ChargebackStatusPending, ChargebackStatusDisputed, ChargebackStatusWon, ChargebackStatusLost:
		return true
	}
	return false
}

// CanTransitionTo encodes the dispute lifecycle: pending may move to
// disputed or straight to a verdict; disputed may only move to a verdict.
func (s ChargebackStatus) CanTransitionTo(next ChargebackStatus) bool {
	switch s {
	case ChargebackStatusPending:
		return next == ChargebackStatusDisputed || next == ChargebackStatusWon || next == ChargebackStatusLost
	case ChargebackStatusDisputed:
		return next == ChargebackStatusWon || next == ChargebackStatusLost
	}
	return false
}

// Chargeback records a disputed payment. PenaltyApplied guards the lost
// verdict against double-charging the creator for the same dispute.
type Chargeback struct {
	gorm.Model

	Reference string `gorm:"size:36;uniqueIndex;not null" json:"reference"`
	PaymentID uint   `gorm:"index;not null" json:"payment_id"`
	CreatorID uint   `gorm:"index;not null" json:"creator_id"`

	Amount int64            `gorm:"not null" json:"amount"`
	Status ChargebackStatus `gorm:"size:16;index;default:'pending'" json:"status"`

	PenaltyAmount  int64 `gorm:"default:0" json:"penalty_amount"`
	PenaltyApplied bool  `gorm:"default:false" json:"penalty_applied"`

	ExternalChargebackID *string `gorm:"size:64;index" json:"external_chargeback_id,omitempty"`
}

func (cb *Chargeback) BeforeCreate(tx *gorm.DB) (err error) {
	if cb.Reference == "" {
		cb.Reference = strings.ToLower(uuid.New().String())
	}
	return nil
}
