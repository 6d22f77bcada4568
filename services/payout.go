package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/javascriptando/vips.lat-sub001/models"
	"github.com/javascriptando/vips.lat-sub001/providers"
)

// PayoutConfig holds the settlement policy. All money values are
// centavos.
type PayoutConfig struct {
	MinAmount             int64
	FixedFee              int64
	MinNet                int64
	VelocityWindowMinutes int
	VelocityLimit         int64
	MonthlyLimit          int64
	MonthlyLimitPro       int64
	MonthlyWindowDays     int
}

func DefaultPayoutConfig() PayoutConfig {
	return PayoutConfig{
		MinAmount:             2000,
		FixedFee:              500,
		MinNet:                100,
		VelocityWindowMinutes: 60,
		VelocityLimit:         3,
		MonthlyLimit:          4,
		MonthlyLimitPro:       8,
		MonthlyWindowDays:     30,
	}
}

// PayoutConfigFromEnv starts from the defaults and applies any
// PAYOUT_* overrides that parse.
func PayoutConfigFromEnv() PayoutConfig {
	cfg := DefaultPayoutConfig()
	cfg.MinAmount = envInt64("PAYOUT_MIN_AMOUNT", cfg.MinAmount)
	cfg.FixedFee = envInt64("PAYOUT_FIXED_FEE", cfg.FixedFee)
	cfg.MinNet = envInt64("PAYOUT_MIN_NET", cfg.MinNet)
	cfg.VelocityWindowMinutes = envInt("PAYOUT_VELOCITY_WINDOW_MINUTES", cfg.VelocityWindowMinutes)
	cfg.VelocityLimit = envInt64("PAYOUT_VELOCITY_LIMIT", cfg.VelocityLimit)
	cfg.MonthlyLimit = envInt64("PAYOUT_MONTHLY_LIMIT", cfg.MonthlyLimit)
	cfg.MonthlyLimitPro = envInt64("PAYOUT_MONTHLY_LIMIT_PRO", cfg.MonthlyLimitPro)
	cfg.MonthlyWindowDays = envInt("PAYOUT_MONTHLY_WINDOW_DAYS", cfg.MonthlyWindowDays)
	return cfg
}

func envInt64(key string, fallback int64) int64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}

func envInt(key string, fallback int) int {
	return int(envInt64(key, int64(fallback)))
}

// PayoutService runs the settlement flow: validate, debit, transfer,
// and compensate when the transfer does not go through.
type PayoutService struct {
	db       *gorm.DB
	ledger   *LedgerService
	velocity *VelocityService
	flags    *FraudFlagService
	gateway  providers.SettlementGateway
	cfg      PayoutConfig
	logger   *zap.SugaredLogger
}

func NewPayoutService(
	db *gorm.DB,
	ledger *LedgerService,
	velocity *VelocityService,
	flags *FraudFlagService,
	gateway providers.SettlementGateway,
	cfg PayoutConfig,
	logger *zap.SugaredLogger,
) *PayoutService {
	return &PayoutService{
		db:       db,
		ledger:   ledger,
		velocity: velocity,
		flags:    flags,
		gateway:  gateway,
		cfg:      cfg,
		logger:   logger,
	}
}

// Config returns the policy the service was built with.
func (s *PayoutService) Config() PayoutConfig { return s.cfg }

// RequestPayout validates a creator's withdrawal and settles it through
// the gateway. An amount of zero or less means the full available
// balance. On gateway failure the debited amount is credited back and
// the caller gets an external gateway error; if even that credit cannot
// be written the error kind escalates to reconciliation required.
func (s *PayoutService) RequestPayout(ctx context.Context, creatorID uint, amount int64) (*models.Payout, error) {
	db := s.db.WithContext(ctx)

	var creator models.Creator
	if err := db.First(&creator, creatorID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewError(KindNotFound, "creator not found")
		}
		return nil, err
	}
	if creator.KycStatus != models.KycStatusApproved {
		return nil, NewError(KindKycRequired, "identity verification must be approved before requesting payouts")
	}
	if creator.PayoutsBlocked {
		reason := creator.PayoutBlockReason
		if reason == "" {
			reason = "account under review"
		}
		return nil, Errorf(KindPayoutsBlocked, "payouts blocked: %s", reason)
	}
	if creator.PixKey == "" || !creator.PixKeyType.Valid() {
		return nil, NewError(KindValidationFailed, "no settlement destination configured")
	}

	vel, err := s.velocity.Check(ctx, VelocityPayout, creator.UserID, s.cfg.VelocityWindowMinutes, s.cfg.VelocityLimit)
	if err != nil {
		return nil, err
	}
	if !vel.Allowed {
		uid, cid := creator.UserID, creator.ID
		if _, ferr := s.flags.Create(ctx, CreateFraudFlagInput{
			UserID:      &uid,
			CreatorID:   &cid,
			Type:        models.FraudFlagVelocityPayout,
			Severity:    3,
			Description: fmt.Sprintf("%d payout attempts within %d minutes", vel.Count, vel.WindowMinutes),
			Metadata: map[string]any{
				"count":          vel.Count,
				"limit":          vel.Limit,
				"window_minutes": vel.WindowMinutes,
			},
		}); ferr != nil {
			s.logger.Warnw("payout velocity flag not recorded", "creator_id", creator.ID, "error", ferr)
		}
		return nil, NewError(KindRateLimited, "too many payout attempts, try again later")
	}

	// The monthly count is advisory. Two requests racing past it can both
	// pass; the conditional debit below still caps total money out.
	windowStart := time.Now().AddDate(0, 0, -s.cfg.MonthlyWindowDays)
	var monthCount int64
	err = db.Model(&models.Payout{}).
		Where("creator_id = ? AND created_at >= ? AND status <> ?", creator.ID, windowStart, models.PayoutStatusFailed).
		Count(&monthCount).Error
	if err != nil {
		return nil, err
	}
	monthlyLimit := s.cfg.MonthlyLimit
	if creator.IsPro {
		monthlyLimit = s.cfg.MonthlyLimitPro
	}
	if monthCount >= monthlyLimit {
		return nil, Errorf(KindRateLimited, "monthly payout limit of %d reached", monthlyLimit)
	}

	balance, err := s.ledger.GetBalance(ctx, creator.ID)
	if err != nil {
		return nil, err
	}
	gross := amount
	if gross <= 0 {
		gross = balance.Available
	}
	if gross < s.cfg.MinAmount {
		return nil, Errorf(KindBelowMinimum, "minimum payout is %d centavos", s.cfg.MinAmount)
	}
	if gross > balance.Available {
		return nil, NewError(KindInsufficientFunds, "available balance does not cover the requested amount")
	}
	net := gross - s.cfg.FixedFee
	if net < s.cfg.MinNet {
		return nil, Errorf(KindBelowMinimum, "amount after the %d centavos fee is below the minimum transfer", s.cfg.FixedFee)
	}

	payout := models.Payout{
		CreatorID:  creator.ID,
		Amount:     gross,
		Fee:        s.cfg.FixedFee,
		NetAmount:  net,
		Status:     models.PayoutStatusProcessing,
		PixKey:     creator.PixKey,
		PixKeyType: creator.PixKeyType,
	}
	if err := db.Create(&payout).Error; err != nil {
		return nil, err
	}

	if err := s.ledger.Debit(ctx, creator.ID, gross); err != nil {
		// Balance moved between the check and the debit. Nothing to
		// refund, the debit never landed.
		s.markFailed(ctx, payout.ID, "debit rejected: "+err.Error())
		return nil, err
	}

	result, err := s.gateway.Transfer(ctx, providers.TransferRequest{
		Amount:            decimal.New(net, -2),
		PixKey:            payout.PixKey,
		PixKeyType:        string(payout.PixKeyType),
		Description:       "creator payout " + payout.Reference,
		ExternalReference: payout.Reference,
	})
	if err != nil {
		return nil, s.compensate(ctx, &payout, err)
	}
	if result.Status == providers.TransferFailed {
		return nil, s.compensate(ctx, &payout, fmt.Errorf("gateway reported transfer %s as failed", result.ID))
	}

	updates := map[string]any{"external_transfer_id": result.ID}
	if result.Status == providers.TransferDone {
		updates["status"] = models.PayoutStatusCompleted
		updates["processed_at"] = time.Now()
	}
	res := db.Model(&models.Payout{}).
		Where("id = ? AND status = ?", payout.ID, models.PayoutStatusProcessing).
		Updates(updates)
	if res.Error != nil {
		s.logger.Errorw("payout submitted but its record could not be updated",
			"payout", payout.Reference, "transfer_id", result.ID, "error", res.Error)
		return nil, WrapError(KindReconciliationRequired, "payout submitted but its record could not be updated", res.Error)
	}

	if err := db.Where("id = ?", payout.ID).First(&payout).Error; err != nil {
		return nil, err
	}
	s.logger.Infow("payout submitted",
		"payout", payout.Reference,
		"creator_id", creator.ID,
		"gross", gross,
		"net", net,
		"status", payout.Status,
	)
	return &payout, nil
}

// ApplyTransferStatus folds a gateway-reported transfer state into the
// payout identified by our reference. Terminal payouts are returned
// unchanged, which keeps gateway webhook retries idempotent.
func (s *PayoutService) ApplyTransferStatus(ctx context.Context, reference, transferID string, status providers.TransferStatus) (*models.Payout, error) {
	if !status.Valid() {
		return nil, Errorf(KindValidationFailed, "unknown transfer status %q", status)
	}
	db := s.db.WithContext(ctx)

	var payout models.Payout
	if err := db.Where("reference = ?", reference).First(&payout).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewError(KindNotFound, "payout not found")
		}
		return nil, err
	}
	if payout.Status.Terminal() {
		return &payout, nil
	}

	switch status {
	case providers.TransferProcessing:
		if payout.ExternalTransferID == nil && transferID != "" {
			if err := db.Model(&payout).Update("external_transfer_id", transferID).Error; err != nil {
				return nil, err
			}
		}
	case providers.TransferDone:
		updates := map[string]any{
			"status":       models.PayoutStatusCompleted,
			"processed_at": time.Now(),
		}
		if transferID != "" {
			updates["external_transfer_id"] = transferID
		}
		res := db.Model(&models.Payout{}).
			Where("id = ? AND status = ?", payout.ID, models.PayoutStatusProcessing).
			Updates(updates)
		if res.Error != nil {
			return nil, res.Error
		}
	case providers.TransferFailed:
		if err := s.refundAndFail(ctx, &payout, "gateway reported the transfer as failed"); err != nil {
			s.logger.Errorw("payout refund could not be written, balance and payout disagree",
				"payout", payout.Reference, "creator_id", payout.CreatorID, "amount", payout.Amount, "error", err)
			return nil, WrapError(KindReconciliationRequired, "payout failed and the refund could not be recorded", err)
		}
	}

	if err := db.Where("id = ?", payout.ID).First(&payout).Error; err != nil {
		return nil, err
	}
	return &payout, nil
}

// ReconcilePending polls the gateway for payouts stuck in processing
// longer than olderThan and folds the answers back in. Returns how many
// were finalized. Processing payouts with no transfer id cannot be
// polled; they are counted and logged for manual review.
func (s *PayoutService) ReconcilePending(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().Add(-olderThan)
	db := s.db.WithContext(ctx)

	var orphaned int64
	err := db.Model(&models.Payout{}).
		Where("status = ? AND external_transfer_id IS NULL AND created_at < ?", models.PayoutStatusProcessing, cutoff).
		Count(&orphaned).Error
	if err != nil {
		return 0, err
	}
	if orphaned > 0 {
		s.logger.Errorw("processing payouts with no transfer id require manual reconciliation", "count", orphaned)
	}

	var stuck []models.Payout
	err = db.Where("status = ? AND external_transfer_id IS NOT NULL AND created_at < ?", models.PayoutStatusProcessing, cutoff).
		Order("created_at ASC").
		Limit(100).
		Find(&stuck).Error
	if err != nil {
		return 0, err
	}

	finalized := 0
	for i := range stuck {
		p := &stuck[i]
		result, err := s.gateway.GetTransfer(ctx, *p.ExternalTransferID)
		if err != nil {
			s.logger.Warnw("transfer status poll failed", "payout", p.Reference, "error", err)
			continue
		}
		if result.Status == providers.TransferProcessing {
			continue
		}
		if _, err := s.ApplyTransferStatus(ctx, p.Reference, result.ID, result.Status); err != nil {
			s.logger.Errorw("pending payout could not be reconciled", "payout", p.Reference, "error", err)
			continue
		}
		finalized++
	}
	if finalized > 0 {
		s.logger.Infow("pending payouts reconciled", "count", finalized)
	}
	return finalized, nil
}

// ListPayouts returns the creator's payouts, newest first.
func (s *PayoutService) ListPayouts(ctx context.Context, creatorID uint, limit int) ([]models.Payout, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var payouts []models.Payout
	err := s.db.WithContext(ctx).
		Where("creator_id = ?", creatorID).
		Order("created_at DESC").
		Limit(limit).
		Find(&payouts).Error
	if err != nil {
		return nil, err
	}
	return payouts, nil
}

// CreatorBalance returns the balance of an existing creator. Unknown
// creators get a not found error rather than a zero balance.
func (s *PayoutService) CreatorBalance(ctx context.Context, creatorID uint) (*models.Balance, error) {
	var creator models.Creator
	if err := s.db.WithContext(ctx).Select("id").First(&creator, creatorID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewError(KindNotFound, "creator not found")
		}
		return nil, err
	}
	return s.ledger.GetBalance(ctx, creatorID)
}

// refundAndFail finalizes a debited payout whose transfer did not go
// through: the row flips processing to failed and the gross amount is
// credited back, in one transaction. The status flip is the idempotency
// guard; a payout already terminal gets no second refund.
func (s *PayoutService) refundAndFail(ctx context.Context, payout *models.Payout, reason string) error {
	refunded := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Payout{}).
			Where("id = ? AND status = ?", payout.ID, models.PayoutStatusProcessing).
			Updates(map[string]any{
				"status":        models.PayoutStatusFailed,
				"failed_reason": truncateReason(reason),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		refunded = true
		return creditBalance(tx, payout.CreatorID, payout.Amount)
	})
	if err != nil {
		return err
	}
	if refunded {
		payout.Status = models.PayoutStatusFailed
		r := truncateReason(reason)
		payout.FailedReason = &r
		s.logger.Warnw("payout failed, funds returned",
			"payout", payout.Reference,
			"creator_id", payout.CreatorID,
			"amount", payout.Amount,
			"reason", reason,
		)
	}
	return nil
}

// compensate wraps refundAndFail for the request path, shaping the error
// the creator sees.
func (s *PayoutService) compensate(ctx context.Context, payout *models.Payout, cause error) error {
	if err := s.refundAndFail(ctx, payout, cause.Error()); err != nil {
		s.logger.Errorw("payout refund could not be written, balance and payout disagree",
			"payout", payout.Reference,
			"creator_id", payout.CreatorID,
			"amount", payout.Amount,
			"cause", cause,
			"error", err,
		)
		return WrapError(KindReconciliationRequired, "payout failed and the refund could not be recorded", err)
	}
	return WrapError(KindExternalGateway, "payout failed, funds returned to balance", cause)
}

// markFailed finalizes a payout that never got debited. No refund runs
// here; zero rows affected means another path already finalized it.
func (s *PayoutService) markFailed(ctx context.Context, payoutID uint, reason string) {
	res := s.db.WithContext(ctx).Model(&models.Payout{}).
		Where("id = ? AND status = ?", payoutID, models.PayoutStatusProcessing).
		Updates(map[string]any{
			"status":        models.PayoutStatusFailed,
			"failed_reason": truncateReason(reason),
		})
	if res.Error != nil {
		s.logger.Errorw("payout failure could not be recorded", "payout_id", payoutID, "error", res.Error)
	}
}

func truncateReason(reason string) string {
	if len(reason) > 255 {
		return reason[:255]
	}
	return reason
}
