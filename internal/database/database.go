package database

import (
	"errors"
	"fmt"
	"log/slog"

	"restaurant-pos-api/internal/auth"
	"restaurant-pos-api/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open opens the SQLite database file (created if missing) and runs migrations.
// glebarez/sqlite is a pure Go driver, so no CGO is required.
func Open(path string, level logger.LogLevel) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates or updates every table.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	return nil
}

// DemoPassword is the password of every seeded user.
const DemoPassword = "password123"

// Seed inserts a demo restaurant with one user per role and a few stock items.
// It does nothing when users already exist.
func Seed(db *gorm.DB, log *slog.Logger) error {
	var count int64
	if err := db.Model(&models.User{}).Count(&count).Error; err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if count > 0 {
		log.Debug("seed skipped, users already present", "users", count)
		return nil
	}

	hash, err := auth.HashPassword(DemoPassword)
	if err != nil {
		return err
	}

	const restaurantID = "rest-1"
	users := []models.User{
		{ID: uuid.NewString(), Username: "admin", Password: hash, RestaurantID: restaurantID, Role: models.RoleAdmin},
		{ID: uuid.NewString(), Username: "manager", Password: hash, RestaurantID: restaurantID, Role: models.RoleManager},
		{ID: uuid.NewString(), Username: "chef", Password: hash, RestaurantID: restaurantID, Role: models.RoleKitchen},
		{ID: uuid.NewString(), Username: "waiter", Password: hash, RestaurantID: restaurantID, Role: models.RoleWaiter},
	}
	items := []models.InventoryItem{
		{ID: uuid.NewString(), RestaurantID: restaurantID, Name: "Tomatoes", Quantity: 40, Unit: "kg", LowStockThreshold: 10},
		{ID: uuid.NewString(), RestaurantID: restaurantID, Name: "Mozzarella", Quantity: 12, Unit: "kg", LowStockThreshold: 5},
		{ID: uuid.NewString(), RestaurantID: restaurantID, Name: "Basil", Quantity: 2, Unit: "bunch", LowStockThreshold: 3},
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&users).Error; err != nil {
			return err
		}
		return tx.Create(&items).Error
	})
	if err != nil {
		return fmt.Errorf("seed demo data: %w", err)
	}
	log.Info("demo data seeded", "restaurantId", restaurantID, "users", len(users), "items", len(items))
	return nil
}

// IsNotFound reports whether err is gorm's missing-record error.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
