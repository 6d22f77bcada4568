package models

import (
	"gorm.io/gorm"
)

type User struct {
	gorm.Model

	Name     string `gorm:"size:128" json:"name"`
	Email    string `gorm:"uniqueIndex;size:128" json:"email"`
	CpfCnpj  string `gorm:"index;size:18" json:"cpf_cnpj"`
	IsActive bool   `gorm:"default:true" json:"is_active"`

	Payments     []Payment           `gorm:"foreignKey:UserID"`
	Fingerprints []DeviceFingerprint `gorm:"foreignKey:UserID"`
}
