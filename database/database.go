package database

import (
	"fmt"
	"os"
	"strconv"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/javascriptando/vips.lat-sub001/models"
)

// Connect opens the postgres pool from the DB_* environment and, when
// DB_AUTO_MIGRATE is set, syncs the schema. The handle is returned, not
// stored; everything downstream receives it explicitly.
func Connect() (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		os.Getenv("DB_HOST"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		os.Getenv("DB_PORT"),
		os.Getenv("DB_SSLMODE"),
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if autoMigrate, _ := strconv.ParseBool(os.Getenv("DB_AUTO_MIGRATE")); autoMigrate {
		if err := Migrate(db); err != nil {
			return nil, err
		}
	}
	return db, nil
}

// Migrate syncs every table the settlement core owns or reads.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Creator{},
		&models.Balance{},
		&models.Payment{},
		&models.Payout{},
		&models.Chargeback{},
		&models.FraudFlag{},
		&models.DeviceFingerprint{},
	); err != nil {
		return fmt.Errorf("auto-migrate database: %w", err)
	}
	return nil
}
