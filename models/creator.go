package models

import (
	"gorm.io/gorm"
)

type KycStatus string

const (
	KycStatusNone     KycStatus = "none"
	KycStatusPending  KycStatus = "pending"
	KycStatusApproved KycStatus = "approved"
	KycStatusRejected KycStatus = "rejected"
	KycStatusExpired  KycStatus = "expired"
)

func (s KycStatus) Valid() bool {
	switch s {
	case KycStatusNone, KycStatusPending, KycStatusApproved, KycStatusRejected, KycStatusExpired:
		return true
	}
	return false
}

type PixKeyType string

const (
	PixKeyTypeCPF    PixKeyType = "cpf"
	PixKeyTypeCNPJ   PixKeyType = "cnpj"
	PixKeyTypeEmail  PixKeyType = "email"
	PixKeyTypePhone  PixKeyType = "phone"
	PixKeyTypeRandom PixKeyType = "random"
)

func (t PixKeyType) Valid() bool {
	switch t {
	case PixKeyTypeCPF, PixKeyTypeCNPJ, PixKeyTypeEmail, PixKeyTypePhone, PixKeyTypeRandom:
		return true
	}
	return false
}

type Creator struct {
	gorm.Model

	UserID  uint   `gorm:"uniqueIndex" json:"user_id"`
	Handle  string `gorm:"uniqueIndex;size:64" json:"handle"`
	CpfCnpj string `gorm:"index;size:18" json:"cpf_cnpj"`

	KycStatus KycStatus `gorm:"size:16;default:'none'" json:"kyc_status"`
	IsPro     bool      `gorm:"default:false" json:"is_pro"`
	IsActive  bool      `gorm:"default:true" json:"is_active"`

	PayoutsBlocked    bool   `gorm:"default:false" json:"payouts_blocked"`
	PayoutBlockReason string `gorm:"size:255" json:"payout_block_reason"`

	// Populated by the KYC flow only after approval.
	PixKey     string     `gorm:"size:128" json:"pix_key"`
	PixKeyType PixKeyType `gorm:"size:16" json:"pix_key_type"`

	ChargebackCount          int   `gorm:"default:0" json:"chargeback_count"`
	ChargebackPenaltyBalance int64 `gorm:"default:0" json:"chargeback_penalty_balance"`

	Payouts []Payout `gorm:"foreignKey:CreatorID"`
}
