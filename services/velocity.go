package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/javascriptando/vips.lat-sub001/models"
)

// VelocityKind selects which event stream a velocity check counts.
type VelocityKind string

const (
	// VelocityPayment counts payments received by a user inside the window.
	VelocityPayment VelocityKind = "payment"
	// VelocityPayout counts payout attempts by the creator profile of a
	// user inside the window.
	VelocityPayout VelocityKind = "payout"
)

func (k VelocityKind) Valid() bool {
	switch k {
	case VelocityPayment, VelocityPayout:
		return true
	}
	return false
}

// VelocityResult is advisory. Callers decide whether to block, flag or
// merely log; the check itself never mutates anything.
type VelocityResult struct {
	Allowed       bool  `json:"allowed"`
	Count         int64 `json:"count"`
	Limit         int64 `json:"limit"`
	WindowMinutes int   `json:"window_minutes"`
}

type VelocityService struct {
	db *gorm.DB
}

func NewVelocityService(db *gorm.DB) *VelocityService {
	return &VelocityService{db: db}
}

// Check counts events for the user in the trailing window and compares
// against limit. The count is a plain read; a burst of simultaneous
// requests can each see a count just under the limit and all pass. Hard
// guarantees stay with the ledger, which is why the result is advisory.
func (s *VelocityService) Check(ctx context.Context, kind VelocityKind, userID uint, windowMinutes int, limit int64) (*VelocityResult, error) {
	if !kind.Valid() {
		return nil, Errorf(KindValidationFailed, "unknown velocity kind %q", kind)
	}
	if windowMinutes <= 0 {
		return nil, NewError(KindValidationFailed, "velocity window must be positive")
	}
	if limit < 0 {
		return nil, NewError(KindValidationFailed, "velocity limit must not be negative")
	}

	since := time.Now().Add(-time.Duration(windowMinutes) * time.Minute)
	db := s.db.WithContext(ctx)

	var count int64
	switch kind {
	case VelocityPayment:
		err := db.Model(&models.Payment{}).
			Where("user_id = ? AND created_at >= ?", userID, since).
			Count(&count).Error
		if err != nil {
			return nil, err
		}
	case VelocityPayout:
		var creator models.Creator
		err := db.Select("id").Where("user_id = ?", userID).First(&creator).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		if err == nil {
			err = db.Model(&models.Payout{}).
				Where("creator_id = ? AND created_at >= ?", creator.ID, since).
				Count(&count).Error
			if err != nil {
				return nil, err
			}
		}
	}

	return &VelocityResult{
		Allowed:       count < limit,
		Count:         count,
		Limit:         limit,
		WindowMinutes: windowMinutes,
	}, nil
}
