package database

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/yeremiapane/food-delivery-app/models"
)

// Models lists every persisted entity in dependency order.
func Models() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Restaurant{},
		&models.Address{},
		&models.DeliveryPerson{},
		&models.MenuItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.Payment{},
		&models.OrderTracking{},
	}
}

// Migrate creates or updates the schema and installs the triggers.
func Migrate(db *gorm.DB, log logrus.FieldLogger) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	log.Info("AutoMigrate completed")

	if err := ExecuteTriggers(db, log); err != nil {
		return fmt.Errorf("triggers: %w", err)
	}
	return nil
}
