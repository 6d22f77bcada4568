package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/javascriptando/vips.lat-sub001/models"
)

// chargebackBlockThreshold is the strike count at which a creator's
// payouts are blocked pending manual review.
const chargebackBlockThreshold = 3

// RecordChargebackInput describes a dispute opened against a payment.
// The payment is addressed by internal id or, as webhooks do, by its
// reference. Amount of zero means the full payment amount is disputed.
type RecordChargebackInput struct {
	PaymentID            uint
	PaymentReference     string
	CreatorID            uint
	Amount               int64
	ExternalChargebackID *string
}

// ChargebackFilter narrows List. Nil pointer fields are ignored.
type ChargebackFilter struct {
	CreatorID *uint
	Status    *models.ChargebackStatus
	Limit     int
}

type ChargebackService struct {
	db     *gorm.DB
	flags  *FraudFlagService
	logger *zap.SugaredLogger
}

func NewChargebackService(db *gorm.DB, flags *FraudFlagService, logger *zap.SugaredLogger) *ChargebackService {
	return &ChargebackService{db: db, flags: flags, logger: logger}
}

// Record opens a chargeback: the payment flips to charged back, the
// creator's strike counter goes up, and at the third strike payouts are
// blocked. A chargeback already known by its external id is returned
// unchanged so gateway webhook retries stay idempotent.
func (s *ChargebackService) Record(ctx context.Context, in RecordChargebackInput) (*models.Chargeback, error) {
	db := s.db.WithContext(ctx)

	q := db
	switch {
	case in.PaymentID != 0:
		q = q.Where("id = ?", in.PaymentID)
	case in.PaymentReference != "":
		q = q.Where("reference = ?", in.PaymentReference)
	default:
		return nil, NewError(KindValidationFailed, "payment id or reference is required")
	}
	var payment models.Payment
	if err := q.First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewError(KindNotFound, "payment not found")
		}
		return nil, err
	}
	if in.CreatorID != 0 && in.CreatorID != payment.CreatorID {
		return nil, NewError(KindValidationFailed, "payment does not belong to the given creator")
	}
	amount := in.Amount
	if amount <= 0 {
		amount = payment.Amount
	}
	if amount > payment.Amount {
		return nil, NewError(KindValidationFailed, "chargeback amount exceeds the payment amount")
	}

	if in.ExternalChargebackID != nil && *in.ExternalChargebackID != "" {
		var existing models.Chargeback
		err := db.Where("external_chargeback_id = ?", *in.ExternalChargebackID).First(&existing).Error
		if err == nil {
			return &existing, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	escalated := false
	cb := models.Chargeback{
		PaymentID:            payment.ID,
		CreatorID:            payment.CreatorID,
		Amount:               amount,
		Status:               models.ChargebackStatusPending,
		ExternalChargebackID: in.ExternalChargebackID,
	}
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&cb).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Payment{}).
			Where("id = ?", payment.ID).
			Update("status", models.PaymentStatusChargedBack).Error; err != nil {
			return err
		}
		res := tx.Model(&models.Creator{}).
			Where("id = ?", payment.CreatorID).
			Update("chargeback_count", gorm.Expr("chargeback_count + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return NewError(KindNotFound, "creator not found")
		}

		var creator models.Creator
		if err := tx.First(&creator, payment.CreatorID).Error; err != nil {
			return err
		}
		if creator.ChargebackCount >= chargebackBlockThreshold && !creator.PayoutsBlocked {
			res := tx.Model(&models.Creator{}).
				Where("id = ? AND payouts_blocked = ?", creator.ID, false).
				Updates(map[string]any{
					"payouts_blocked":     true,
					"payout_block_reason": "multiple chargebacks",
				})
			if res.Error != nil {
				return res.Error
			}
			escalated = res.RowsAffected > 0
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	uid, cid := payment.UserID, payment.CreatorID
	if _, ferr := s.flags.Create(ctx, CreateFraudFlagInput{
		UserID:      &uid,
		CreatorID:   &cid,
		Type:        models.FraudFlagChargeback,
		Severity:    4,
		Description: fmt.Sprintf("chargeback opened on payment %s", payment.Reference),
		Metadata: map[string]any{
			"payment_id": payment.ID,
			"chargeback": cb.Reference,
			"amount":     amount,
		},
	}); ferr != nil {
		s.logger.Warnw("chargeback flag not recorded", "chargeback", cb.Reference, "error", ferr)
	}

	if escalated {
		s.logger.Warnw("payouts blocked after repeated chargebacks",
			"creator_id", payment.CreatorID, "chargeback", cb.Reference)
	}
	s.logger.Infow("chargeback recorded",
		"chargeback", cb.Reference,
		"payment_id", payment.ID,
		"creator_id", payment.CreatorID,
		"amount", amount,
	)
	return &cb, nil
}

// UpdateStatus moves a chargeback through its dispute lifecycle. A lost
// verdict charges the creator the disputed amount exactly once; a won
// verdict gives back one strike. Repeating the current status is a
// no-op, not an error.
func (s *ChargebackService) UpdateStatus(ctx context.Context, id uint, next models.ChargebackStatus) (*models.Chargeback, error) {
	if !next.Valid() {
		return nil, Errorf(KindValidationFailed, "unknown chargeback status %q", next)
	}
	db := s.db.WithContext(ctx)

	var cb models.Chargeback
	if err := db.First(&cb, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewError(KindNotFound, "chargeback not found")
		}
		return nil, err
	}
	if cb.Status == next {
		return &cb, nil
	}
	if !cb.Status.CanTransitionTo(next) {
		return nil, Errorf(KindValidationFailed, "chargeback cannot move from %s to %s", cb.Status, next)
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Chargeback{}).
			Where("id = ? AND status = ?", cb.ID, cb.Status).
			Update("status", next)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return NewError(KindValidationFailed, "chargeback status changed concurrently")
		}

		switch next {
		case models.ChargebackStatusLost:
			return applyPenalty(tx, &cb)
		case models.ChargebackStatusWon:
			// The block at three strikes stays even if the counter drops
			// back under it; lifting a block is a manual review decision.
			return tx.Model(&models.Creator{}).
				Where("id = ? AND chargeback_count > 0", cb.CreatorID).
				Update("chargeback_count", gorm.Expr("chargeback_count - 1")).Error
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := db.First(&cb, cb.ID).Error; err != nil {
		return nil, err
	}
	s.logger.Infow("chargeback status updated",
		"chargeback", cb.Reference,
		"status", cb.Status,
		"penalty_applied", cb.PenaltyApplied,
	)
	return &cb, nil
}

// UpdateStatusByExternalID resolves the chargeback by the gateway's id
// and applies the transition. Used by the webhook intake.
func (s *ChargebackService) UpdateStatusByExternalID(ctx context.Context, externalID string, next models.ChargebackStatus) (*models.Chargeback, error) {
	if externalID == "" {
		return nil, NewError(KindValidationFailed, "external chargeback id is required")
	}
	var cb models.Chargeback
	err := s.db.WithContext(ctx).Where("external_chargeback_id = ?", externalID).First(&cb).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewError(KindNotFound, "chargeback not found")
		}
		return nil, err
	}
	return s.UpdateStatus(ctx, cb.ID, next)
}

// List returns chargebacks matching the filter, newest first.
func (s *ChargebackService) List(ctx context.Context, f ChargebackFilter) ([]models.Chargeback, error) {
	q := s.db.WithContext(ctx).Model(&models.Chargeback{})
	if f.CreatorID != nil {
		q = q.Where("creator_id = ?", *f.CreatorID)
	}
	if f.Status != nil {
		if !f.Status.Valid() {
			return nil, Errorf(KindValidationFailed, "unknown chargeback status %q", *f.Status)
		}
		q = q.Where("status = ?", *f.Status)
	}
	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	var rows []models.Chargeback
	if err := q.Order("created_at DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// SettleOutstandingPenalties sweeps creators carrying penalty debt and
// settles whatever their current balance covers, partially if needed.
// Returns the total centavos recovered.
func (s *ChargebackService) SettleOutstandingPenalties(ctx context.Context) (int64, error) {
	var creators []models.Creator
	err := s.db.WithContext(ctx).
		Select("id").
		Where("chargeback_penalty_balance > 0").
		Order("chargeback_penalty_balance DESC").
		Limit(200).
		Find(&creators).Error
	if err != nil {
		return 0, err
	}

	var total int64
	for i := range creators {
		id := creators[i].ID
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var creator models.Creator
			if err := tx.First(&creator, id).Error; err != nil {
				return err
			}
			if creator.ChargebackPenaltyBalance <= 0 {
				return nil
			}
			var balance models.Balance
			err := tx.Where("creator_id = ?", id).First(&balance).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			target := creator.ChargebackPenaltyBalance
			if balance.Available < target {
				target = balance.Available
			}
			settled, err := settlePenalty(tx, id, target)
			if err != nil {
				return err
			}
			if settled {
				total += target
			}
			return nil
		})
		if err != nil {
			s.logger.Warnw("penalty sweep failed for creator", "creator_id", id, "error", err)
		}
	}
	if total > 0 {
		s.logger.Infow("outstanding penalties settled", "centavos", total)
	}
	return total, nil
}

// applyPenalty charges the creator for a lost dispute inside the
// caller's transaction. The disputed amount lands on the penalty balance
// first; if the available balance covers it in full it is settled on the
// spot, otherwise it stays outstanding for the sweep. The conditional
// penalty_applied flip makes the whole step single-shot.
func applyPenalty(tx *gorm.DB, cb *models.Chargeback) error {
	res := tx.Model(&models.Chargeback{}).
		Where("id = ? AND penalty_applied = ?", cb.ID, false).
		Updates(map[string]any{
			"penalty_applied": true,
			"penalty_amount":  cb.Amount,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return nil
	}
	if err := tx.Model(&models.Creator{}).
		Where("id = ?", cb.CreatorID).
		Update("chargeback_penalty_balance", gorm.Expr("chargeback_penalty_balance + ?", cb.Amount)).Error; err != nil {
		return err
	}
	_, err := settlePenalty(tx, cb.CreatorID, cb.Amount)
	return err
}

// settlePenalty moves amount from the creator's available balance
// against their outstanding penalty, all or nothing. When the balance
// cannot cover amount nothing moves and settled comes back false.
func settlePenalty(tx *gorm.DB, creatorID uint, amount int64) (bool, error) {
	if amount <= 0 {
		return false, nil
	}
	if err := debitBalance(tx, creatorID, amount); err != nil {
		if IsKind(err, KindInsufficientFunds) {
			return false, nil
		}
		return false, err
	}
	res := tx.Model(&models.Creator{}).
		Where("id = ? AND chargeback_penalty_balance >= ?", creatorID, amount).
		Update("chargeback_penalty_balance", gorm.Expr("chargeback_penalty_balance - ?", amount))
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, fmt.Errorf("penalty balance of creator %d below settled amount %d", creatorID, amount)
	}
	return true, nil
}
