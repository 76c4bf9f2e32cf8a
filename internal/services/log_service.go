package services

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/Jey-Sankar-Sai-Pinjala/ReachInBox-oneBox/internal/database/models"
	"gorm.io/gorm"
)

// LogService handles logging operations
type LogService struct {
	db       *gorm.DB
	logLevel models.LogLevel
}

// NewLogService creates a new LogService instance
func NewLogService(db *gorm.DB) *LogService {
	return &LogService{
		db:       db,
		logLevel: models.LogLevelInfo, // Default log level
	}
}

// NewLogServiceWithLevel creates a new LogService instance with specified log level
func NewLogServiceWithLevel(db *gorm.DB, level string) *LogService {
	return &LogService{
		db:       db,
		logLevel: parseLogLevel(level),
	}
}

// parseLogLevel converts a string to LogLevel
func parseLogLevel(level string) models.LogLevel {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return models.LogLevelDebug
	case "INFO":
		return models.LogLevelInfo
	case "WARN", "WARNING":
		return models.LogLevelWarn
	case "ERROR":
		return models.LogLevelError
	default:
		return models.LogLevelInfo
	}
}

// SetLogLevel sets the minimum log level
func (s *LogService) SetLogLevel(level string) {
	s.logLevel = parseLogLevel(level)
}

// GetLogLevel returns the current log level
func (s *LogService) GetLogLevel() models.LogLevel {
	return s.logLevel
}

// shouldLog checks if a log entry should be recorded based on log level
func (s *LogService) shouldLog(level models.LogLevel) bool {
	levelPriority := map[models.LogLevel]int{
		models.LogLevelDebug: 0,
		models.LogLevelInfo:  1,
		models.LogLevelWarn:  2,
		models.LogLevelError: 3,
	}

	return levelPriority[level] >= levelPriority[s.logLevel]
}

// LogEntry represents a log entry to be created
type LogEntry struct {
	AccountID string
	Level     models.LogLevel
	Module    models.LogModule
	Action    string
	Message   string
	Details   interface{} // Will be serialized to JSON
}

// Log creates a new log entry
func (s *LogService) Log(entry LogEntry) error {
	// Check if this log level should be recorded
	if !s.shouldLog(entry.Level) {
		return nil
	}

	var detailsJSON string
	if entry.Details != nil {
		bytes, err := json.Marshal(entry.Details)
		if err != nil {
			detailsJSON = "{}"
		} else {
			detailsJSON = string(bytes)
		}
	}

	log := &models.Log{
		AccountID: entry.AccountID,
		Level:     string(entry.Level),
		Module:    string(entry.Module),
		Action:    entry.Action,
		Message:   entry.Message,
		Details:   detailsJSON,
	}

	return s.db.Create(log).Error
}

// LogInfo creates an INFO level log entry
func (s *LogService) LogInfo(accountID string, module models.LogModule, action, message string, details interface{}) error {
	return s.Log(LogEntry{
		AccountID: accountID,
		Level:     models.LogLevelInfo,
		Module:    module,
		Action:    action,
		Message:   message,
		Details:   details,
	})
}

// LogWarn creates a WARN level log entry
func (s *LogService) LogWarn(accountID string, module models.LogModule, action, message string, details interface{}) error {
	return s.Log(LogEntry{
		AccountID: accountID,
		Level:     models.LogLevelWarn,
		Module:    module,
		Action:    action,
		Message:   message,
		Details:   details,
	})
}

// LogError creates an ERROR level log entry
func (s *LogService) LogError(accountID string, module models.LogModule, action, message string, details interface{}) error {
	return s.Log(LogEntry{
		AccountID: accountID,
		Level:     models.LogLevelError,
		Module:    module,
		Action:    action,
		Message:   message,
		Details:   details,
	})
}

// LogDebug creates a DEBUG level log entry
func (s *LogService) LogDebug(accountID string, module models.LogModule, action, message string, details interface{}) error {
	return s.Log(LogEntry{
		AccountID: accountID,
		Level:     models.LogLevelDebug,
		Module:    module,
		Action:    action,
		Message:   message,
		Details:   details,
	})
}

// ===== Sync Operation Logging =====

// SyncOperationDetails represents details for mailbox sync logs
type SyncOperationDetails struct {
	AccountID  string `json:"account_id"`
	State      string `json:"state,omitempty"`
	Watermark  uint32 `json:"watermark,omitempty"`
	EmailCount int    `json:"email_count,omitempty"`
	Status     string `json:"status"`
	ErrorMsg   string `json:"error_msg,omitempty"`
}

// LogSyncConnect logs the outcome of a connect attempt
func (s *LogService) LogSyncConnect(accountID string, err error) error {
	details := SyncOperationDetails{
		AccountID: accountID,
		Status:    "connected",
	}

	level := models.LogLevelInfo
	message := "Mailbox connected"

	if err != nil {
		level = models.LogLevelError
		details.Status = "failed"
		details.ErrorMsg = err.Error()
		message = "Mailbox connect failed"
	}

	return s.Log(LogEntry{
		AccountID: accountID,
		Level:     level,
		Module:    models.LogModuleSync,
		Action:    "connect",
		Message:   message,
		Details:   details,
	})
}

// LogSyncCycle logs a completed fetch cycle (backfill or live)
func (s *LogService) LogSyncCycle(accountID, action string, count int, watermark uint32, err error) error {
	details := SyncOperationDetails{
		AccountID:  accountID,
		EmailCount: count,
		Watermark:  watermark,
		Status:     "success",
	}

	level := models.LogLevelInfo
	message := "Fetch cycle completed"

	if err != nil {
		level = models.LogLevelError
		details.Status = "failed"
		details.ErrorMsg = err.Error()
		message = "Fetch cycle failed"
	}

	return s.Log(LogEntry{
		AccountID: accountID,
		Level:     level,
		Module:    models.LogModuleSync,
		Action:    action,
		Message:   message,
		Details:   details,
	})
}

// LogSyncDisconnect logs a session teardown
func (s *LogService) LogSyncDisconnect(accountID, reason string) error {
	return s.LogInfo(accountID, models.LogModuleSync, "disconnect", "Mailbox disconnected", SyncOperationDetails{
		AccountID: accountID,
		Status:    reason,
	})
}

// ===== Parse Failure Logging =====

// ParseFailureDetails represents details for dropped messages
type ParseFailureDetails struct {
	AccountID string `json:"account_id"`
	UID       uint32 `json:"uid,omitempty"`
	ErrorMsg  string `json:"error_msg"`
}

// LogParseFailure logs a message dropped by the parser
func (s *LogService) LogParseFailure(accountID string, uid uint32, err error) error {
	return s.Log(LogEntry{
		AccountID: accountID,
		Level:     models.LogLevelError,
		Module:    models.LogModuleParse,
		Action:    "drop",
		Message:   "Message dropped: parse failed",
		Details: ParseFailureDetails{
			AccountID: accountID,
			UID:       uid,
			ErrorMsg:  err.Error(),
		},
	})
}

// ===== Categorization Logging =====

// CategorizeDetails represents details for categorization logs
type CategorizeDetails struct {
	EmailUID    string `json:"email_uid"`
	Category    string `json:"category"`
	ProcessedBy string `json:"processed_by"` // "ai" or "local"
	Status      string `json:"status"`
	ErrorMsg    string `json:"error_msg,omitempty"`
}

// LogCategorized logs the outcome of categorizing one email
func (s *LogService) LogCategorized(accountID, emailUID, category, processedBy string, err error) error {
	details := CategorizeDetails{
		EmailUID:    emailUID,
		Category:    category,
		ProcessedBy: processedBy,
		Status:      "success",
	}

	level := models.LogLevelInfo
	message := "Email categorized"

	if err != nil {
		level = models.LogLevelError
		details.Status = "failed"
		details.ErrorMsg = err.Error()
		message = "Categorization failed"
	}

	return s.Log(LogEntry{
		AccountID: accountID,
		Level:     level,
		Module:    models.LogModuleProcess,
		Action:    "categorize",
		Message:   message,
		Details:   details,
	})
}

// ===== Notification Logging =====

// NotifyDetails represents details for webhook delivery logs
type NotifyDetails struct {
	EmailUID string `json:"email_uid,omitempty"`
	Target   string `json:"target"` // "slack" or "webhook"
	Status   string `json:"status"`
	ErrorMsg string `json:"error_msg,omitempty"`
}

// LogNotify logs a webhook delivery attempt
func (s *LogService) LogNotify(accountID, emailUID, target string, err error) error {
	details := NotifyDetails{
		EmailUID: emailUID,
		Target:   target,
		Status:   "delivered",
	}

	level := models.LogLevelInfo
	message := "Notification delivered"

	if err != nil {
		level = models.LogLevelError
		details.Status = "failed"
		details.ErrorMsg = err.Error()
		message = "Notification delivery failed"
	}

	return s.Log(LogEntry{
		AccountID: accountID,
		Level:     level,
		Module:    models.LogModuleNotify,
		Action:    "deliver",
		Message:   message,
		Details:   details,
	})
}

// ===== API Request Logging =====

// APIRequestDetails represents details for API request logs
type APIRequestDetails struct {
	Method     string `json:"method"`
	Path       string `json:"path"`
	StatusCode int    `json:"status_code"`
	Duration   int64  `json:"duration_ms"`
	ClientIP   string `json:"client_ip"`
	UserAgent  string `json:"user_agent,omitempty"`
}

// LogAPIRequest logs an API request
func (s *LogService) LogAPIRequest(method, path string, statusCode int, durationMs int64, clientIP, userAgent string) error {
	level := models.LogLevelInfo
	if statusCode >= 400 && statusCode < 500 {
		level = models.LogLevelWarn
	} else if statusCode >= 500 {
		level = models.LogLevelError
	}

	return s.Log(LogEntry{
		Level:   level,
		Module:  models.LogModuleAPI,
		Action:  "request",
		Message: method + " " + path,
		Details: APIRequestDetails{
			Method:     method,
			Path:       path,
			StatusCode: statusCode,
			Duration:   durationMs,
			ClientIP:   clientIP,
			UserAgent:  userAgent,
		},
	})
}

// ===== Log Query Methods =====

// LogQuery represents query parameters for log retrieval
type LogQuery struct {
	AccountID string
	Level     string
	Module    string
	Action    string
	StartTime *time.Time
	EndTime   *time.Time
	Page      int
	Limit     int
}

// LogQueryResult represents the result of a log query
type LogQueryResult struct {
	Total int64
	Logs  []models.Log
}

// QueryLogs retrieves logs based on query parameters
func (s *LogService) QueryLogs(query LogQuery) (*LogQueryResult, error) {
	db := s.db.Model(&models.Log{})

	if query.AccountID != "" {
		db = db.Where("account_id = ?", query.AccountID)
	}
	if query.Level != "" {
		db = db.Where("level = ?", query.Level)
	}
	if query.Module != "" {
		db = db.Where("module = ?", query.Module)
	}
	if query.Action != "" {
		db = db.Where("action = ?", query.Action)
	}
	if query.StartTime != nil {
		db = db.Where("created_at >= ?", query.StartTime)
	}
	if query.EndTime != nil {
		db = db.Where("created_at <= ?", query.EndTime)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, err
	}

	if query.Page <= 0 {
		query.Page = 1
	}
	if query.Limit <= 0 {
		query.Limit = 50
	}

	offset := (query.Page - 1) * query.Limit

	var logs []models.Log
	if err := db.Order("created_at DESC").Offset(offset).Limit(query.Limit).Find(&logs).Error; err != nil {
		return nil, err
	}

	return &LogQueryResult{
		Total: total,
		Logs:  logs,
	}, nil
}

// GetRecentLogs retrieves the most recent logs
func (s *LogService) GetRecentLogs(limit int) ([]models.Log, error) {
	if limit <= 0 {
		limit = 100
	}

	var logs []models.Log
	if err := s.db.Order("created_at DESC").Limit(limit).Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

// GetLogsByModule retrieves logs for a specific module
func (s *LogService) GetLogsByModule(module models.LogModule, limit int) ([]models.Log, error) {
	if limit <= 0 {
		limit = 100
	}

	var logs []models.Log
	if err := s.db.Where("module = ?", string(module)).Order("created_at DESC").Limit(limit).Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}
