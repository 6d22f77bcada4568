package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/javascriptando/vips.lat-sub001/models"
)

// LedgerService is the only code allowed to change creator balances.
// Every mutation is a single conditional statement so two concurrent
// requests can never read-modify-write each other's money away.
type LedgerService struct {
	db     *gorm.DB
	logger *zap.SugaredLogger
}

func NewLedgerService(db *gorm.DB, logger *zap.SugaredLogger) *LedgerService {
	return &LedgerService{db: db, logger: logger}
}

// Credit adds amount centavos to the creator's available balance,
// creating the balance row on first credit.
func (s *LedgerService) Credit(ctx context.Context, creatorID uint, amount int64) error {
	if amount <= 0 {
		return Errorf(KindValidationFailed, "credit amount must be positive, got %d", amount)
	}
	if creatorID == 0 {
		return NewError(KindValidationFailed, "credit requires a creator id")
	}
	if err := creditBalance(s.db.WithContext(ctx), creatorID, amount); err != nil {
		return err
	}
	s.logger.Debugw("balance credited", "creator_id", creatorID, "amount", amount)
	return nil
}

// Debit removes amount centavos from the creator's available balance.
// Returns an insufficient funds error when the balance cannot cover it;
// the balance row is never driven below zero.
func (s *LedgerService) Debit(ctx context.Context, creatorID uint, amount int64) error {
	if amount <= 0 {
		return Errorf(KindValidationFailed, "debit amount must be positive, got %d", amount)
	}
	if creatorID == 0 {
		return NewError(KindValidationFailed, "debit requires a creator id")
	}
	if err := debitBalance(s.db.WithContext(ctx), creatorID, amount); err != nil {
		return err
	}
	s.logger.Debugw("balance debited", "creator_id", creatorID, "amount", amount)
	return nil
}

// GetBalance returns the creator's balance. A creator who was never
// credited reads as zero rather than as an error.
func (s *LedgerService) GetBalance(ctx context.Context, creatorID uint) (*models.Balance, error) {
	var balance models.Balance
	err := s.db.WithContext(ctx).Where("creator_id = ?", creatorID).First(&balance).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.Balance{CreatorID: creatorID}, nil
	}
	if err != nil {
		return nil, err
	}
	return &balance, nil
}

// creditBalance upserts the balance row in one statement. Shared with the
// payout compensation and chargeback paths, which run it inside their own
// transactions.
func creditBalance(db *gorm.DB, creatorID uint, amount int64) error {
	return db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "creator_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"available":  gorm.Expr("available + ?", amount),
			"updated_at": time.Now(),
		}),
	}).Create(&models.Balance{CreatorID: creatorID, Available: amount}).Error
}

// debitBalance decrements available only when it covers the amount. Zero
// rows affected means the guard rejected the debit, which also covers a
// creator with no balance row at all.
func debitBalance(db *gorm.DB, creatorID uint, amount int64) error {
	res := db.Model(&models.Balance{}).
		Where("creator_id = ? AND available >= ?", creatorID, amount).
		Updates(map[string]any{"available": gorm.Expr("available - ?", amount)})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return NewError(KindInsufficientFunds, "available balance does not cover the requested amount")
	}
	return nil
}
