package database

import (
	"log"

	"github.com/campusride/rideshare-backend/internal/models"
	"gorm.io/gorm"
)

func RunMigrations(db *gorm.DB) error {
	// Create tables if they don't exist
	err := db.AutoMigrate(
		&models.User{},
		&models.Ride{},
		&models.Message{},
		&models.DeviceToken{},
	)
	if err != nil {
		return err
	}

	// Update rides table constraints
	if db.Migrator().HasTable(&models.Ride{}) {
		constraints := []string{
			`ALTER TABLE rides DROP CONSTRAINT IF EXISTS rides_transport_mode_check`,
			`ALTER TABLE rides ADD CONSTRAINT rides_transport_mode_check CHECK (transport_mode IN ('Train', 'Flight', 'Bus', 'Auto', 'Cab'))`,
			`ALTER TABLE rides DROP CONSTRAINT IF EXISTS rides_status_check`,
			`ALTER TABLE rides ADD CONSTRAINT rides_status_check CHECK (status IN ('active', 'completed'))`,
		}
		for _, stmt := range constraints {
			if err := db.Exec(stmt).Error; err != nil {
				log.Printf("Migration statement failed (%s): %v", stmt, err)
			}
		}
	}

	// Ride owners are always participants; backfill rows created before the
	// join table existed.
	if db.Migrator().HasTable("ride_participants") {
		if err := db.Exec(`
			INSERT INTO ride_participants (ride_id, user_id)
			SELECT id, user_id FROM rides
			ON CONFLICT DO NOTHING`).Error; err != nil {
			return err
		}
	}

	return nil
}
