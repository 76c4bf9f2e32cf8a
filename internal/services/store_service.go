package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/Jey-Sankar-Sai-Pinjala/ReachInBox-oneBox/internal/database/models"
	"github.com/Jey-Sankar-Sai-Pinjala/ReachInBox-oneBox/internal/parser"
)

var (
	// ErrEmailNotFound indicates the requested email does not exist
	ErrEmailNotFound = errors.New("email not found")
	// ErrInvalidCategory indicates an unknown category label
	ErrInvalidCategory = errors.New("invalid category")
)

const (
	// DefaultPageSize is the page size when the caller does not set one
	DefaultPageSize = 20
	// MaxPageSize caps a single page of results
	MaxPageSize = 100
)

// StoreService persists normalized emails and answers queries over them.
// Duplicate deliveries of the same protocol message are collapsed here,
// keyed by account and message id.
type StoreService struct {
	db         *gorm.DB
	logService *LogService
}

// NewStoreService creates a new StoreService instance
func NewStoreService(db *gorm.DB, logService *LogService) *StoreService {
	return &StoreService{
		db:         db,
		logService: logService,
	}
}

// Index stores one normalized message. When a message with the same
// account and message id already exists the stored row wins and the new
// delivery is discarded. Returns the stored email and whether a new row
// was created.
func (s *StoreService) Index(nm *parser.NormalizedMessage) (*models.Email, bool, error) {
	if nm == nil {
		return nil, false, parser.ErrNoMessage
	}

	if nm.MessageID != "" {
		var existing models.Email
		err := s.db.Where("account_id = ? AND message_id = ?", nm.AccountID, nm.MessageID).
			First(&existing).Error
		if err == nil {
			return &existing, false, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, fmt.Errorf("failed to check for duplicate: %w", err)
		}
	}

	toAddrs, err := json.Marshal(nm.To)
	if err != nil {
		toAddrs = []byte("[]")
	}

	email := models.Email{
		UID:             nm.ID,
		AccountID:       nm.AccountID,
		Folder:          nm.Folder,
		MessageID:       nm.MessageID,
		Subject:         nm.Subject,
		FromAddr:        nm.From,
		ToAddrs:         string(toAddrs),
		Date:            nm.Date,
		Body:            nm.Body,
		InReplyTo:       nm.InReplyTo,
		HasAttachments:  nm.HasAttachments,
		AttachmentCount: nm.AttachmentCount,
		Category:        nm.Category,
		IndexedAt:       time.Now(),
	}
	if email.Category == "" {
		email.Category = models.CategoryUncategorized
	}

	if err := s.db.Create(&email).Error; err != nil {
		// A concurrent worker may have inserted the same message between
		// the duplicate check and the insert; the unique index on
		// (account_id, message_id) rejects the second insert. Re-read and
		// return the winning row.
		if nm.MessageID != "" {
			var existing models.Email
			lookupErr := s.db.Where("account_id = ? AND message_id = ?", nm.AccountID, nm.MessageID).
				First(&existing).Error
			if lookupErr == nil {
				return &existing, false, nil
			}
		}
		return nil, false, fmt.Errorf("failed to index email: %w", err)
	}

	return &email, true, nil
}

// EmailQuery describes a filtered, paginated email listing
type EmailQuery struct {
	AccountID string
	Folder    string
	Category  string
	Search    string
	Page      int
	PageSize  int
}

// normalize clamps pagination to sane bounds
func (q *EmailQuery) normalize() {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize <= 0 {
		q.PageSize = DefaultPageSize
	}
	if q.PageSize > MaxPageSize {
		q.PageSize = MaxPageSize
	}
}

// buildQuery applies the filters shared by List and Count
func (s *StoreService) buildQuery(q EmailQuery) *gorm.DB {
	query := s.db.Model(&models.Email{})

	if q.AccountID != "" {
		query = query.Where("account_id = ?", q.AccountID)
	}
	if q.Folder != "" {
		query = query.Where("folder = ?", q.Folder)
	}
	if q.Category != "" {
		query = query.Where("category = ?", q.Category)
	}
	if q.Search != "" {
		pattern := "%" + q.Search + "%"
		query = query.Where("subject LIKE ? OR body LIKE ? OR from_addr LIKE ?",
			pattern, pattern, pattern)
	}

	return query
}

// List returns one page of emails newest first, plus the total match count
func (s *StoreService) List(q EmailQuery) ([]models.Email, int64, error) {
	q.normalize()

	var total int64
	if err := s.buildQuery(q).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count emails: %w", err)
	}

	var emails []models.Email
	err := s.buildQuery(q).
		Order("date DESC").
		Limit(q.PageSize).
		Offset((q.Page - 1) * q.PageSize).
		Find(&emails).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list emails: %w", err)
	}

	return emails, total, nil
}

// GetByUID fetches one email by its generated id
func (s *StoreService) GetByUID(uid string) (*models.Email, error) {
	var email models.Email
	err := s.db.Where("uid = ?", uid).First(&email).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEmailNotFound
		}
		return nil, fmt.Errorf("failed to get email: %w", err)
	}
	return &email, nil
}

// UpdateCategory overrides the stored category of one email
func (s *StoreService) UpdateCategory(uid, category string) (*models.Email, error) {
	if !models.IsValidCategory(category) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCategory, category)
	}

	email, err := s.GetByUID(uid)
	if err != nil {
		return nil, err
	}

	if err := s.db.Model(email).Update("category", category).Error; err != nil {
		return nil, fmt.Errorf("failed to update category: %w", err)
	}
	email.Category = category

	return email, nil
}

// SetCategory stores a freshly computed category without validation
// against the caller; used by the processing pipeline after classification
func (s *StoreService) SetCategory(uid, category, processedBy string) error {
	if !models.IsValidCategory(category) {
		category = models.CategoryUncategorized
	}
	err := s.db.Model(&models.Email{}).
		Where("uid = ?", uid).
		Update("category", category).Error
	if err != nil {
		return fmt.Errorf("failed to set category: %w", err)
	}
	return nil
}

// CategoryCount pairs a category label with how many emails carry it
type CategoryCount struct {
	Category string `json:"category"`
	Count    int64  `json:"count"`
}

// EmailStats summarizes the mailbox store
type EmailStats struct {
	Total       int64           `json:"total"`
	ByCategory  []CategoryCount `json:"by_category"`
	ByAccount   []AccountCount  `json:"by_account"`
	LastIndexed time.Time       `json:"last_indexed,omitempty"`
}

// AccountCount pairs an account with how many emails it has stored
type AccountCount struct {
	AccountID string `json:"account_id"`
	Count     int64  `json:"count"`
}

// Stats aggregates totals across the email store
func (s *StoreService) Stats() (*EmailStats, error) {
	stats := &EmailStats{}

	if err := s.db.Model(&models.Email{}).Count(&stats.Total).Error; err != nil {
		return nil, fmt.Errorf("failed to count emails: %w", err)
	}

	err := s.db.Model(&models.Email{}).
		Select("category, COUNT(*) as count").
		Group("category").
		Order("count DESC").
		Scan(&stats.ByCategory).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate categories: %w", err)
	}

	err = s.db.Model(&models.Email{}).
		Select("account_id, COUNT(*) as count").
		Group("account_id").
		Order("count DESC").
		Scan(&stats.ByAccount).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate accounts: %w", err)
	}

	var latest models.Email
	err = s.db.Order("indexed_at DESC").First(&latest).Error
	if err == nil {
		stats.LastIndexed = latest.IndexedAt
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to read latest email: %w", err)
	}

	return stats, nil
}

// CountByAccount reports how many emails one account has stored
func (s *StoreService) CountByAccount(accountID string) (int64, error) {
	var count int64
	err := s.db.Model(&models.Email{}).
		Where("account_id = ?", accountID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count emails: %w", err)
	}
	return count, nil
}
