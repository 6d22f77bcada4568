package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PayoutStatus string

const (
	PayoutStatusPending    PayoutStatus = "pending"
	PayoutStatusProcessing PayoutStatus = "processing"
	PayoutStatusCompleted  PayoutStatus = "completed"
	PayoutStatusFailed     PayoutStatus = "failed"
)

func (s PayoutStatus) Valid() bool {
	switch s {
	case PayoutStatusPending, PayoutStatusProcessing, PayoutStatusCompleted, PayoutStatusFailed:
		return true
	}
	return false
}

// Terminal reports whether the status admits no further transition.
func (s PayoutStatus) Terminal() bool {
	return s == PayoutStatusCompleted || s == PayoutStatusFailed
}

// Payout is one settlement request. Amount is the gross debited from the
// creator's available balance; NetAmount = Amount - Fee is what the gateway
// transfers to the PIX key. The destination is snapshotted at request time
// so a later key change cannot redirect an in-flight transfer.
type Payout struct {
	gorm.Model

	Reference string `gorm:"size:36;uniqueIndex;not null" json:"reference"`
	CreatorID uint   `gorm:"index" json:"creator_id"`

	Amount    int64 `gorm:"not null" json:"amount"`
	Fee       int64 `gorm:"not null" json:"fee"`
	NetAmount int64 `gorm:"not null" json:"net_amount"`

	Status PayoutStatus `gorm:"size:16;index;default:'pending'" json:"status"`

	PixKey     string     `gorm:"size:128" json:"pix_key"`
	PixKeyType PixKeyType `gorm:"size:16" json:"pix_key_type"`

	ExternalTransferID *string    `gorm:"size:64;index" json:"external_transfer_id,omitempty"`
	FailedReason       *string    `gorm:"size:255" json:"failed_reason,omitempty"`
	ProcessedAt        *time.Time `json:"processed_at,omitempty"`
}

func (p *Payout) BeforeCreate(tx *gorm.DB) (err error) {
	if p.Reference == "" {
		p.Reference = strings.ToLower(uuid.New().String())
	}
	return nil
}
