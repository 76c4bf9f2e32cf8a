package database

import (
	"os"
	"path/filepath"

	"github.com/Jey-Sankar-Sai-Pinjala/ReachInBox-oneBox/internal/database/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Initialize creates and returns a database connection
func Initialize(dbPath string) (*gorm.DB, error) {
	// Ensure the directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	db, err := gorm.Open(sqlite.Open(dbPath), gormConfig)
	if err != nil {
		return nil, err
	}

	if err := runMigrations(db); err != nil {
		return nil, err
	}

	return db, nil
}

// runMigrations runs all database migrations
func runMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Email{},
		&models.Log{},
	); err != nil {
		return err
	}

	// Rows written before the category column existed carry NULL
	db.Model(&models.Email{}).
		Where("category = '' OR category IS NULL").
		Update("category", models.CategoryUncategorized)

	// Same for folder
	db.Model(&models.Email{}).
		Where("folder = '' OR folder IS NULL").
		Update("folder", models.FolderInbox)

	return nil
}
