package db

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Windi-Fikriyansyah/handygo/internal/models"
)

// Connect opens the Postgres pool. Driver errors for unique violations are
// translated to gorm.ErrDuplicatedKey.
func Connect(dsn string) (*gorm.DB, error) {
	gdb, err := gorm.Open(postgres.Open(dsn), Options())
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	return gdb, nil
}

// Options is shared with the test dialector so both behave the same.
func Options() *gorm.Config {
	return &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	}
}

// Migrate creates or updates every table the API uses.
func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&models.User{},
		&models.Service{},
		&models.Contractor{},
		&models.Job{},
		&models.JobApplication{},
		&models.JobCard{},
		&models.Booking{},
		&models.VerificationSession{},
	)
}
