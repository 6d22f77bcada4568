package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/javascriptando/vips.lat-sub001/models"
)

// normalizedDocExpr strips the separators CPF/CNPJ values are usually
// stored with, so lookups match regardless of formatting. Plain REPLACE
// chains so the same query runs on postgres and sqlite.
const normalizedDocExpr = "REPLACE(REPLACE(REPLACE(cpf_cnpj, '.', ''), '-', ''), '/', '')"

// NormalizeDocument keeps only the digits of a CPF or CNPJ.
func NormalizeDocument(document string) string {
	var b strings.Builder
	b.Grow(len(document))
	for _, r := range document {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidCPF checks the two mod-11 verification digits of a CPF.
// Accepts formatted or bare input.
func ValidCPF(document string) bool {
	doc := NormalizeDocument(document)
	if len(doc) != 11 || allSameDigit(doc) {
		return false
	}
	if checkDigitMod11(doc[:9], 10) != int(doc[9]-'0') {
		return false
	}
	return checkDigitMod11(doc[:10], 11) == int(doc[10]-'0')
}

// ValidCNPJ checks the two mod-11 verification digits of a CNPJ.
// Accepts formatted or bare input.
func ValidCNPJ(document string) bool {
	doc := NormalizeDocument(document)
	if len(doc) != 14 || allSameDigit(doc) {
		return false
	}
	first := []int{5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
	second := []int{6, 5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
	if checkDigitWeighted(doc[:12], first) != int(doc[12]-'0') {
		return false
	}
	return checkDigitWeighted(doc[:13], second) == int(doc[13]-'0')
}

// ValidDocument dispatches on length: 11 digits is a CPF, 14 a CNPJ.
func ValidDocument(document string) bool {
	switch len(NormalizeDocument(document)) {
	case 11:
		return ValidCPF(document)
	case 14:
		return ValidCNPJ(document)
	default:
		return false
	}
}

func allSameDigit(doc string) bool {
	for i := 1; i < len(doc); i++ {
		if doc[i] != doc[0] {
			return false
		}
	}
	return true
}

// checkDigitMod11 computes a CPF verification digit with descending
// weights starting at firstWeight.
func checkDigitMod11(digits string, firstWeight int) int {
	sum := 0
	for i := 0; i < len(digits); i++ {
		sum += int(digits[i]-'0') * (firstWeight - i)
	}
	remainder := sum % 11
	if remainder < 2 {
		return 0
	}
	return 11 - remainder
}

// checkDigitWeighted computes a CNPJ verification digit against an
// explicit weight table.
func checkDigitWeighted(digits string, weights []int) int {
	sum := 0
	for i := 0; i < len(digits); i++ {
		sum += int(digits[i]-'0') * weights[i]
	}
	remainder := sum % 11
	if remainder < 2 {
		return 0
	}
	return 11 - remainder
}

// DeviceSignals are the browser traits hashed into a device fingerprint.
type DeviceSignals struct {
	UserAgent        string `json:"user_agent"`
	ScreenResolution string `json:"screen_resolution"`
	Timezone         string `json:"timezone"`
	Language         string `json:"language"`
	IPAddress        string `json:"ip_address"`
}

// FingerprintHash derives the stable fingerprint for a set of signals.
// Field order is part of the contract; changing it orphans stored rows.
func FingerprintHash(sig DeviceSignals) string {
	payload := strings.Join([]string{
		sig.UserAgent,
		sig.ScreenResolution,
		sig.Timezone,
		sig.Language,
		sig.IPAddress,
	}, "|")
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// IdentityMatch names the account already holding a document another
// account tried to register.
type IdentityMatch struct {
	OwnerType string `json:"owner_type"`
	OwnerID   uint   `json:"owner_id"`
	Document  string `json:"document"`
}

type IdentityService struct {
	db     *gorm.DB
	flags  *FraudFlagService
	logger *zap.SugaredLogger
}

func NewIdentityService(db *gorm.DB, flags *FraudFlagService, logger *zap.SugaredLogger) *IdentityService {
	return &IdentityService{db: db, flags: flags, logger: logger}
}

// FindDuplicate scans users and creators for another account holding the
// same document, ignoring the requesting user and their own creator
// profile. Returns nil when the document is unique. A conflict raises a
// duplicate identity fraud flag on the requesting user, best effort.
func (s *IdentityService) FindDuplicate(ctx context.Context, userID uint, document string) (*IdentityMatch, error) {
	if !ValidDocument(document) {
		return nil, NewError(KindValidationFailed, "malformed identity document")
	}
	norm := NormalizeDocument(document)
	db := s.db.WithContext(ctx)

	var user models.User
	err := db.Where(normalizedDocExpr+" = ? AND id <> ?", norm, userID).First(&user).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	var match *IdentityMatch
	if err == nil {
		match = &IdentityMatch{OwnerType: "user", OwnerID: user.ID, Document: user.CpfCnpj}
	}

	if match == nil {
		var creator models.Creator
		err = db.Where(normalizedDocExpr+" = ? AND user_id <> ?", norm, userID).First(&creator).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		if err == nil {
			match = &IdentityMatch{OwnerType: "creator", OwnerID: creator.ID, Document: creator.CpfCnpj}
		}
	}
	if match == nil {
		return nil, nil
	}

	flaggedUser := userID
	if _, err := s.flags.Create(ctx, CreateFraudFlagInput{
		UserID:      &flaggedUser,
		Type:        models.FraudFlagDuplicateIdentity,
		Severity:    4,
		Description: "identity document already registered to another account",
		Metadata: map[string]any{
			"owner_type": match.OwnerType,
			"owner_id":   match.OwnerID,
		},
	}); err != nil {
		s.logger.Warnw("duplicate identity flag not recorded", "user_id", userID, "error", err)
	}
	return match, nil
}

// RecordFingerprint stores or refreshes the fingerprint row for this user
// and device. When the same device shows up under a different user a
// device fingerprint fraud flag is raised, best effort.
func (s *IdentityService) RecordFingerprint(ctx context.Context, userID uint, sig DeviceSignals) (*models.DeviceFingerprint, error) {
	if sig.UserAgent == "" || sig.IPAddress == "" {
		return nil, NewError(KindValidationFailed, "device signals require at least user agent and ip address")
	}
	db := s.db.WithContext(ctx)

	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewError(KindNotFound, "user not found")
		}
		return nil, err
	}

	hash := FingerprintHash(sig)
	var existing models.DeviceFingerprint
	err := db.Where("user_id = ? AND fingerprint = ?", userID, hash).First(&existing).Error
	if err == nil {
		if err := db.Model(&existing).Update("last_seen_at", time.Now()).Error; err != nil {
			return nil, err
		}
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var other models.DeviceFingerprint
	err = db.Where("fingerprint = ? AND user_id <> ?", hash, userID).First(&other).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if err == nil {
		flaggedUser := userID
		if _, ferr := s.flags.Create(ctx, CreateFraudFlagInput{
			UserID:      &flaggedUser,
			Type:        models.FraudFlagDeviceFingerprint,
			Severity:    3,
			Description: fmt.Sprintf("device already seen on user %d", other.UserID),
			Metadata: map[string]any{
				"other_user_id": other.UserID,
				"fingerprint":   hash,
			},
		}); ferr != nil {
			s.logger.Warnw("device fingerprint flag not recorded", "user_id", userID, "error", ferr)
		}
	}

	now := time.Now()
	row := models.DeviceFingerprint{
		UserID:      userID,
		Fingerprint: hash,
		FirstSeenAt: now,
		LastSeenAt:  now,
	}
	if err := db.Create(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// FingerprintsForUser lists the devices a user has been seen on, most
// recent first.
func (s *IdentityService) FingerprintsForUser(ctx context.Context, userID uint) ([]models.DeviceFingerprint, error) {
	var rows []models.DeviceFingerprint
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("last_seen_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
