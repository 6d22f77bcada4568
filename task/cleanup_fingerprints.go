package tasks

import (
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/javascriptando/vips.lat-sub001/models"
)

// CleanupStaleFingerprints hard-deletes device rows not seen within the
// retention window, FINGERPRINT_RETENTION_DAYS (default 180). Device
// data is personal data; keeping it past its usefulness is a liability.
func CleanupStaleFingerprints(db *gorm.DB, logger *zap.SugaredLogger) {
	days := 180
	if raw := os.Getenv("FINGERPRINT_RETENTION_DAYS"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			days = v
		}
	}

	cutoff := time.Now().AddDate(0, 0, -days)
	result := db.Unscoped().
		Where("last_seen_at < ?", cutoff).
		Delete(&models.DeviceFingerprint{})
	if result.Error != nil {
		logger.Warnw("stale fingerprint cleanup failed", "error", result.Error)
		return
	}
	if result.RowsAffected > 0 {
		logger.Infow("stale fingerprints deleted",
			"count", result.RowsAffected, "retention_days", days)
	}
}
