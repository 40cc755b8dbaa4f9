package database

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect establishes a connection to a PostgreSQL database. Each service
// owns its own store, so the handle is returned rather than held globally;
// services receive it by injection.
func Connect(dsn string, logLevel logger.LogLevel) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// MigrateDevices runs migrations for the devices-service store.
func MigrateDevices(db *gorm.DB) error {
	err := db.AutoMigrate(
		&Device{},
		&Alert{},
		&DeviceMetric{},
		&DeviceActivity{},
		&DeviceProcess{},
	)
	if err != nil {
		return fmt.Errorf("failed to run devices migrations: %w", err)
	}
	return nil
}

// MigrateMentor runs migrations for the mentor-service store.
func MigrateMentor(db *gorm.DB) error {
	if err := db.AutoMigrate(&MentorAlert{}); err != nil {
		return fmt.Errorf("failed to run mentor migrations: %w", err)
	}
	return nil
}

// Close closes the underlying connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
