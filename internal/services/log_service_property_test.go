package services

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Jey-Sankar-Sai-Pinjala/ReachInBox-oneBox/internal/database/models"
)

func setupLogTestDB(t *testing.T) (*gorm.DB, func()) {
	tmpFile, err := os.CreateTemp("", "log_test_*.db")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	tmpFile.Close()

	db, err := gorm.Open(sqlite.Open(tmpFile.Name()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		os.Remove(tmpFile.Name())
		t.Fatalf("Failed to open database: %v", err)
	}

	err = db.AutoMigrate(&models.Log{})
	if err != nil {
		os.Remove(tmpFile.Name())
		t.Fatalf("Failed to migrate: %v", err)
	}

	cleanup := func() {
		sqlDB, _ := db.DB()
		if sqlDB != nil {
			sqlDB.Close()
		}
		os.Remove(tmpFile.Name())
	}

	return db, cleanup
}

// TestProperty_LogCompleteness_APIRequest tests that API requests are logged correctly
func TestProperty_LogCompleteness_APIRequest(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 20
	properties := gopter.NewProperties(parameters)

	properties.Property("api_request_creates_complete_log_entry", prop.ForAll(
		func(statusCode int) bool {
			db, cleanup := setupLogTestDB(t)
			defer cleanup()

			service := NewLogService(db)
			beforeTime := time.Now().Add(-time.Second)

			method := "GET"
			path := "/api/test"
			durationMs := int64(100)
			clientIP := "127.0.0.1"
			userAgent := "TestAgent"

			err := service.LogAPIRequest(method, path, statusCode, durationMs, clientIP, userAgent)
			if err != nil {
				return false
			}

			afterTime := time.Now().Add(time.Second)

			var log models.Log
			if err := db.Where("module = ? AND action = ?", "api", "request").First(&log).Error; err != nil {
				return false
			}

			expectedLevel := "INFO"
			if statusCode >= 500 {
				expectedLevel = "ERROR"
			} else if statusCode >= 400 {
				expectedLevel = "WARN"
			}

			return log.Module == "api" &&
				log.Action == "request" &&
				log.Level == expectedLevel &&
				log.Message == method+" "+path &&
				log.CreatedAt.After(beforeTime) &&
				log.CreatedAt.Before(afterTime)
		},
		gen.IntRange(200, 599),
	))

	properties.TestingRun(t)
}

// TestProperty_LogCompleteness_SyncOperations tests that sync operations are logged correctly
func TestProperty_LogCompleteness_SyncOperations(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 20
	properties := gopter.NewProperties(parameters)

	properties.Property("sync_cycle_creates_complete_log_entry", prop.ForAll(
		func(emailCount int, watermark uint32, failed bool) bool {
			db, cleanup := setupLogTestDB(t)
			defer cleanup()

			service := NewLogService(db)
			beforeTime := time.Now().Add(-time.Second)

			var cycleErr error
			if failed {
				cycleErr = errors.New("fetch aborted")
			}

			err := service.LogSyncCycle("acc-1", "live_fetch", emailCount, watermark, cycleErr)
			if err != nil {
				return false
			}

			afterTime := time.Now().Add(time.Second)

			var log models.Log
			if err := db.Where("module = ? AND action = ?", "sync", "live_fetch").First(&log).Error; err != nil {
				return false
			}

			expectedLevel := "INFO"
			if failed {
				expectedLevel = "ERROR"
			}

			return log.AccountID == "acc-1" &&
				log.Module == "sync" &&
				log.Level == expectedLevel &&
				log.CreatedAt.After(beforeTime) &&
				log.CreatedAt.Before(afterTime)
		},
		gen.IntRange(0, 100),
		gen.UInt32(),
		gen.Bool(),
	))

	properties.Property("connect_outcome_sets_level", prop.ForAll(
		func(failed bool) bool {
			db, cleanup := setupLogTestDB(t)
			defer cleanup()

			service := NewLogService(db)

			var connectErr error
			if failed {
				connectErr = errors.New("login rejected")
			}

			if err := service.LogSyncConnect("acc-1", connectErr); err != nil {
				return false
			}

			var log models.Log
			if err := db.Where("module = ? AND action = ?", "sync", "connect").First(&log).Error; err != nil {
				return false
			}

			if failed {
				return log.Level == "ERROR"
			}
			return log.Level == "INFO"
		},
		gen.Bool(),
	))

	properties.TestingRun(t)
}

// TestProperty_LogCompleteness_ProcessingOperations tests that categorization is logged correctly
func TestProperty_LogCompleteness_ProcessingOperations(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 20
	properties := gopter.NewProperties(parameters)

	properties.Property("categorization_creates_complete_log_entry", prop.ForAll(
		func(isAI bool) bool {
			db, cleanup := setupLogTestDB(t)
			defer cleanup()

			service := NewLogService(db)
			beforeTime := time.Now().Add(-time.Second)

			processedBy := "local"
			if isAI {
				processedBy = "ai"
			}

			err := service.LogCategorized("acc-1", "uid-1", models.CategoryInterested, processedBy, nil)
			if err != nil {
				return false
			}

			afterTime := time.Now().Add(time.Second)

			var log models.Log
			if err := db.Where("module = ? AND action = ?", "process", "categorize").First(&log).Error; err != nil {
				return false
			}

			return log.AccountID == "acc-1" &&
				log.Module == "process" &&
				log.Action == "categorize" &&
				log.Level == "INFO" &&
				log.CreatedAt.After(beforeTime) &&
				log.CreatedAt.Before(afterTime)
		},
		gen.Bool(),
	))

	properties.TestingRun(t)
}

// TestProperty_LogLevelFiltering tests that log level filtering works correctly
func TestProperty_LogLevelFiltering(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 20
	properties := gopter.NewProperties(parameters)

	properties.Property("log_level_filtering_respects_configured_level", prop.ForAll(
		func(accountID string) bool {
			db, cleanup := setupLogTestDB(t)
			defer cleanup()

			// Create service with ERROR level - should only log ERROR
			service := NewLogServiceWithLevel(db, "ERROR")

			service.LogDebug(accountID, models.LogModuleAPI, "test", "debug message", nil)
			service.LogInfo(accountID, models.LogModuleAPI, "test", "info message", nil)
			service.LogWarn(accountID, models.LogModuleAPI, "test", "warn message", nil)
			service.LogError(accountID, models.LogModuleAPI, "test", "error message", nil)

			var count int64
			db.Model(&models.Log{}).Count(&count)

			return count == 1
		},
		gen.Identifier(),
	))

	properties.Property("info_level_logs_info_warn_error", prop.ForAll(
		func(accountID string) bool {
			db, cleanup := setupLogTestDB(t)
			defer cleanup()

			service := NewLogServiceWithLevel(db, "INFO")

			service.LogDebug(accountID, models.LogModuleAPI, "test", "debug message", nil)
			service.LogInfo(accountID, models.LogModuleAPI, "test", "info message", nil)
			service.LogWarn(accountID, models.LogModuleAPI, "test", "warn message", nil)
			service.LogError(accountID, models.LogModuleAPI, "test", "error message", nil)

			// INFO, WARN, ERROR should be logged (3 entries)
			var count int64
			db.Model(&models.Log{}).Count(&count)

			return count == 3
		},
		gen.Identifier(),
	))

	properties.TestingRun(t)
}
