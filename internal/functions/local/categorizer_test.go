package local

import (
	"testing"

	"github.com/Jey-Sankar-Sai-Pinjala/ReachInBox-oneBox/internal/database/models"
)

func TestCategorize(t *testing.T) {
	tests := []struct {
		name     string
		subject  string
		body     string
		from     string
		expected string
	}{
		{
			name:     "refusal beats interest keywords",
			subject:  "Re: Intro",
			body:     "Thanks, but we are not interested at the moment.",
			from:     "cto@prospect.com",
			expected: models.CategoryNotInterested,
		},
		{
			name:     "unsubscribe request",
			subject:  "Re: Outreach",
			body:     "Please remove me from your list.",
			from:     "person@corp.com",
			expected: models.CategoryNotInterested,
		},
		{
			name:     "meeting confirmation",
			subject:  "Re: Demo",
			body:     "Booked! See the calendar invite for Tuesday.",
			from:     "vp@prospect.com",
			expected: models.CategoryMeetingBooked,
		},
		{
			name:     "out of office auto reply",
			subject:  "Automatic reply: Intro",
			body:     "I am out of office until Monday.",
			from:     "person@corp.com",
			expected: models.CategoryOutOfOffice,
		},
		{
			name:     "promo content",
			subject:  "Limited time offer!!!",
			body:     "Act now and click here for your discount.",
			from:     "deals@shop.com",
			expected: models.CategorySpam,
		},
		{
			name:     "noreply sender",
			subject:  "Your receipt",
			body:     "Order summary attached.",
			from:     "noreply@store.com",
			expected: models.CategorySpam,
		},
		{
			name:     "genuine interest",
			subject:  "Re: Quick question",
			body:     "This sounds good, could you share pricing details?",
			from:     "founder@startup.io",
			expected: models.CategoryInterested,
		},
		{
			name:     "no signal",
			subject:  "FYI",
			body:     "Forwarding this along.",
			from:     "colleague@corp.com",
			expected: models.CategoryUncategorized,
		},
		{
			name:     "empty everything",
			subject:  "",
			body:     "",
			from:     "",
			expected: models.CategoryUncategorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Categorize(tt.subject, tt.body, tt.from)
			if got != tt.expected {
				t.Errorf("Categorize(%q, %q, %q) = %q, want %q",
					tt.subject, tt.body, tt.from, got, tt.expected)
			}
		})
	}
}

func TestCategorize_AlwaysReturnsValidLabel(t *testing.T) {
	inputs := []struct{ subject, body, from string }{
		{"Re: Intro", "not interested but the meeting was interesting", "a@b.c"},
		{"", "vacation auto-reply unsubscribe here", "noreply@x.y"},
		{"offer", "interested in your meeting", "marketing@z.z"},
	}

	for _, in := range inputs {
		got := Categorize(in.subject, in.body, in.from)
		if !models.IsValidCategory(got) {
			t.Errorf("Categorize(%q, %q, %q) returned unknown label %q",
				in.subject, in.body, in.from, got)
		}
	}
}
