package models

import (
	"time"
)

// Email categories assigned by the categorizer
const (
	CategoryInterested    = "Interested"
	CategoryMeetingBooked = "Meeting Booked"
	CategoryNotInterested = "Not Interested"
	CategorySpam          = "Spam"
	CategoryOutOfOffice   = "Out of Office"
	CategoryUncategorized = "Uncategorized"
)

// FolderInbox is the only folder this system syncs
const FolderInbox = "INBOX"

// ValidCategories lists every label the categorizer may assign
var ValidCategories = []string{
	CategoryInterested,
	CategoryMeetingBooked,
	CategoryNotInterested,
	CategorySpam,
	CategoryOutOfOffice,
	CategoryUncategorized,
}

// IsValidCategory reports whether s is a known category label
func IsValidCategory(s string) bool {
	for _, c := range ValidCategories {
		if c == s {
			return true
		}
	}
	return false
}

// Email represents a synced, normalized email message
type Email struct {
	ID              uint      `gorm:"primaryKey" json:"-"`
	UID             string    `gorm:"uniqueIndex;size:36;not null" json:"id"` // generated per parse
	AccountID       string    `gorm:"index;uniqueIndex:idx_account_message,where:message_id <> '';size:255;not null" json:"account_id"`
	Folder          string    `gorm:"size:100;default:INBOX" json:"folder"`
	MessageID       string    `gorm:"index;uniqueIndex:idx_account_message,where:message_id <> '';size:255" json:"message_id"`
	Subject         string    `gorm:"size:500" json:"subject"`
	FromAddr        string    `gorm:"size:255" json:"from"`
	ToAddrs         string    `gorm:"type:text" json:"to"` // JSON array stored as string
	Date            time.Time `gorm:"index" json:"date"`
	Body            string    `gorm:"type:text" json:"body"`
	InReplyTo       string    `gorm:"size:255" json:"in_reply_to,omitempty"`
	HasAttachments  bool      `gorm:"default:false" json:"has_attachments"`
	AttachmentCount int       `gorm:"default:0" json:"attachment_count"`
	Category        string    `gorm:"size:50;index;default:Uncategorized" json:"category"`
	IndexedAt       time.Time `json:"indexed_at"`
	CreatedAt       time.Time `json:"created_at"`
}

func (Email) TableName() string {
	return "emails"
}
