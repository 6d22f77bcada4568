package models

import (
	"gorm.io/gorm"
)

// Balance keeps a creator's settlement funds in minor currency units
// (centavos). Available is what a payout may debit; Pending is money held
// back by the payment processor until its release window passes.
//
// Available must never go negative: every debit runs as a single
// conditional UPDATE guarded by `available >= amount`, never as a
// read-then-write from application code.
type Balance struct {
	gorm.Model

	CreatorID uint  `gorm:"uniqueIndex" json:"creator_id"`
	Available int64 `gorm:"not null;default:0" json:"available"`
	Pending   int64 `gorm:"not null;default:0" json:"pending"`
}
