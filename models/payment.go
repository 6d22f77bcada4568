package models

import (
	"gorm.io/gorm"
)

type PaymentStatus string

const (
	PaymentStatusPending     PaymentStatus = "pending"
	PaymentStatusApproved    PaymentStatus = "approved"
	PaymentStatusRefused     PaymentStatus = "refused"
	PaymentStatusRefunded    PaymentStatus = "refunded"
	PaymentStatusChargedBack PaymentStatus = "charged_back"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusApproved, PaymentStatusRefused,
		PaymentStatusRefunded, PaymentStatusChargedBack:
		return true
	}
	return false
}

// Payment is written by the subscription/purchase flow; the settlement core
// reads it for velocity counting and as the anchor of a chargeback.
type Payment struct {
	gorm.Model

	Reference string `gorm:"size:36;uniqueIndex" json:"reference"`
	UserID    uint   `gorm:"index;not null" json:"user_id"`
	CreatorID uint   `gorm:"index;not null" json:"creator_id"`

	Amount int64         `gorm:"not null" json:"amount"`
	Status PaymentStatus `gorm:"size:16;index;default:'pending'" json:"status"`
}
