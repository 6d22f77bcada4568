package services

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/javascriptando/vips.lat-sub001/models"
)

// CreateFraudFlagInput describes one anomaly to record. At least one of
// UserID and CreatorID must be set.
type CreateFraudFlagInput struct {
	UserID      *uint
	CreatorID   *uint
	Type        models.FraudFlagType
	Severity    int
	Description string
	Metadata    map[string]any
}

// FraudFlagFilter narrows List. Nil pointer fields are ignored.
type FraudFlagFilter struct {
	Type        *models.FraudFlagType
	Resolved    *bool
	UserID      *uint
	CreatorID   *uint
	MinSeverity int
	Limit       int
}

type FraudFlagService struct {
	db     *gorm.DB
	logger *zap.SugaredLogger
}

func NewFraudFlagService(db *gorm.DB, logger *zap.SugaredLogger) *FraudFlagService {
	return &FraudFlagService{db: db, logger: logger}
}

// Create records a fraud flag. Severity outside the 1 to 5 scale is
// clamped to the nearest bound rather than rejected, so a buggy caller
// still leaves an audit trail.
func (s *FraudFlagService) Create(ctx context.Context, in CreateFraudFlagInput) (*models.FraudFlag, error) {
	if !in.Type.Valid() {
		return nil, Errorf(KindValidationFailed, "unknown fraud flag type %q", in.Type)
	}
	if in.UserID == nil && in.CreatorID == nil {
		return nil, NewError(KindValidationFailed, "fraud flag must reference a user or a creator")
	}

	severity := in.Severity
	if severity < models.FraudSeverityMin {
		severity = models.FraudSeverityMin
	}
	if severity > models.FraudSeverityMax {
		severity = models.FraudSeverityMax
	}

	flag := models.FraudFlag{
		UserID:      in.UserID,
		CreatorID:   in.CreatorID,
		Type:        in.Type,
		Severity:    severity,
		Description: in.Description,
	}
	if in.Metadata != nil {
		raw, err := json.Marshal(in.Metadata)
		if err != nil {
			return nil, Errorf(KindValidationFailed, "fraud flag metadata not serializable: %v", err)
		}
		flag.Metadata = datatypes.JSON(raw)
	}

	if err := s.db.WithContext(ctx).Create(&flag).Error; err != nil {
		return nil, err
	}
	s.logger.Infow("fraud flag created",
		"flag_id", flag.ID,
		"type", flag.Type,
		"severity", flag.Severity,
	)
	return &flag, nil
}

// Resolve closes an open flag, recording who resolved it and why. A flag
// can be resolved once; the guard is the conditional update itself.
func (s *FraudFlagService) Resolve(ctx context.Context, id uint, resolvedBy, resolution string) (*models.FraudFlag, error) {
	if resolvedBy == "" {
		return nil, NewError(KindValidationFailed, "resolved_by is required")
	}
	db := s.db.WithContext(ctx)

	res := db.Model(&models.FraudFlag{}).
		Where("id = ? AND is_resolved = ?", id, false).
		Updates(map[string]any{
			"is_resolved": true,
			"resolved_by": resolvedBy,
			"resolution":  resolution,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		var flag models.FraudFlag
		if err := db.First(&flag, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, NewError(KindNotFound, "fraud flag not found")
			}
			return nil, err
		}
		return nil, NewError(KindValidationFailed, "fraud flag already resolved")
	}

	var flag models.FraudFlag
	if err := db.First(&flag, id).Error; err != nil {
		return nil, err
	}
	return &flag, nil
}

// List returns flags matching the filter, newest first.
func (s *FraudFlagService) List(ctx context.Context, f FraudFlagFilter) ([]models.FraudFlag, error) {
	q := s.db.WithContext(ctx).Model(&models.FraudFlag{})
	if f.Type != nil {
		if !f.Type.Valid() {
			return nil, Errorf(KindValidationFailed, "unknown fraud flag type %q", *f.Type)
		}
		q = q.Where("type = ?", *f.Type)
	}
	if f.Resolved != nil {
		q = q.Where("is_resolved = ?", *f.Resolved)
	}
	if f.UserID != nil {
		q = q.Where("user_id = ?", *f.UserID)
	}
	if f.CreatorID != nil {
		q = q.Where("creator_id = ?", *f.CreatorID)
	}
	if f.MinSeverity > 0 {
		q = q.Where("severity >= ?", f.MinSeverity)
	}
	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 100
	}

	var flags []models.FraudFlag
	if err := q.Order("created_at DESC").Limit(limit).Find(&flags).Error; err != nil {
		return nil, err
	}
	return flags, nil
}
