package db

import (
	"fmt"

	"gorm.io/gorm"

	"parkgate/internal/repository"
)

// Schema is created through AutoMigrate so the same code serves both the
// sqlite ledger file and a postgres deployment; the statements below add
// the indexes the controllers' hot queries depend on.
var migrationStatements = []string{
	`CREATE INDEX IF NOT EXISTS idx_car_logs_plate_paid ON car_logs(plate, paid);`,
	`CREATE INDEX IF NOT EXISTS idx_car_logs_entry_time ON car_logs(entry_time);`,
	`CREATE INDEX IF NOT EXISTS idx_incidents_timestamp ON incidents(timestamp);`,
}

func runMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(&repository.CarLog{}, &repository.IncidentLog{}); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
