package local

import (
	"strings"

	"github.com/Jey-Sankar-Sai-Pinjala/ReachInBox-oneBox/internal/database/models"
)

// Keyword sets for rule-based categorization, checked in priority order
var (
	meetingKeywords = []string{
		"meeting", "call", "schedule", "calendar invite", "appointment",
		"booked", "confirmed our", "see you on",
	}

	outOfOfficeKeywords = []string{
		"out of office", "vacation", "away", "auto-reply", "automatic reply",
		"annual leave", "currently unavailable", "back in the office",
	}

	spamKeywords = []string{
		"promotion", "offer", "discount", "limited time", "act now",
		"click here", "winner", "congratulations", "100% free", "unsubscribe here",
	}

	spamSenderMarkers = []string{
		"noreply", "no-reply", "donotreply", "marketing@",
	}

	interestedKeywords = []string{
		"interested", "learn more", "information", "tell me more",
		"details", "pricing", "sounds good", "would love to",
	}

	notInterestedKeywords = []string{
		"not interested", "unsubscribe", "remove me", "no thanks",
		"decline", "not a fit", "stop contacting",
	}
)

// Categorize assigns a sales-intent label using keyword matching only.
// It is the fallback when no AI provider is configured or reachable.
func Categorize(subject, body, from string) string {
	subject = strings.ToLower(subject)
	body = strings.ToLower(body)
	from = strings.ToLower(from)
	combined := subject + " " + body

	// "not interested" contains "interested", so refusals check first
	if countKeywordMatches(combined, notInterestedKeywords) > 0 {
		return models.CategoryNotInterested
	}

	if countKeywordMatches(combined, meetingKeywords) > 0 {
		return models.CategoryMeetingBooked
	}

	if countKeywordMatches(combined, outOfOfficeKeywords) > 0 {
		return models.CategoryOutOfOffice
	}

	if countKeywordMatches(combined, spamKeywords) > 0 ||
		countKeywordMatches(from, spamSenderMarkers) > 0 {
		return models.CategorySpam
	}

	if countKeywordMatches(combined, interestedKeywords) > 0 {
		return models.CategoryInterested
	}

	return models.CategoryUncategorized
}

// countKeywordMatches counts how many keywords are found in the text
func countKeywordMatches(text string, keywords []string) int {
	count := 0
	for _, keyword := range keywords {
		if strings.Contains(text, keyword) {
			count++
		}
	}
	return count
}
