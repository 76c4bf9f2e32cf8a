package imapsync

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestLiveFetchStart(t *testing.T) {
	tests := []struct {
		name      string
		watermark uint32
		uidNext   uint32
		expected  uint32
	}{
		{
			name:      "known watermark resumes after it",
			watermark: 100,
			uidNext:   101,
			expected:  101,
		},
		{
			name:      "watermark beats uidnext hint",
			watermark: 500,
			uidNext:   200,
			expected:  501,
		},
		{
			name:      "unknown watermark backs off a window",
			watermark: 0,
			uidNext:   200,
			expected:  200 - liveFetchFallbackWindow,
		},
		{
			name:      "small mailbox starts from the beginning",
			watermark: 0,
			uidNext:   30,
			expected:  1,
		},
		{
			name:      "empty mailbox",
			watermark: 0,
			uidNext:   0,
			expected:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := liveFetchStart(tt.watermark, tt.uidNext); got != tt.expected {
				t.Errorf("liveFetchStart(%d, %d) = %d, want %d",
					tt.watermark, tt.uidNext, got, tt.expected)
			}
		})
	}
}

func TestProperty_LiveFetchStart(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	// The computed start never re-fetches at or below a known watermark,
	// so anything already counted cannot re-enter a cycle's range
	properties.Property("start is strictly above a known watermark", prop.ForAll(
		func(watermark, uidNext uint32) bool {
			start := liveFetchStart(watermark, uidNext)
			if watermark > 0 {
				return start == watermark+1
			}
			return start >= 1
		},
		gen.UInt32Range(0, 1<<30),
		gen.UInt32Range(0, 1<<30),
	))

	properties.TestingRun(t)
}
