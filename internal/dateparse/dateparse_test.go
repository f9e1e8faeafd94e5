package dateparse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseFrom(t *testing.T) {
	// Wednesday, 2026-03-11, late evening in a zone east of UTC.
	ref := time.Date(2026, 3, 11, 23, 30, 0, 0, time.FixedZone("IST", 5*3600+1800))

	tests := []struct {
		input string
		want  string
	}{
		{"today", "2026-03-11"},
		{"TODAY", "2026-03-11"},
		{" Tomorrow ", "2026-03-12"},
		{"yesterday", "2026-03-10"},

		{"next week", "2026-03-18"},
		{"nextweek", "2026-03-18"},
		{"next month", "2026-04-11"},

		{"eow", "2026-03-13"},
		{"end of week", "2026-03-13"},
		{"eom", "2026-03-31"},

		{"monday", "2026-03-16"},
		{"mon", "2026-03-16"},
		{"wednesday", "2026-03-18"},
		{"thursday", "2026-03-12"},
		{"sunday", "2026-03-15"},

		{"next monday", "2026-03-23"},
		{"next wednesday", "2026-03-18"},
		{"next friday", "2026-03-20"},

		{"+0", "2026-03-11"},
		{"+3", "2026-03-14"},
		{"in 1 day", "2026-03-12"},
		{"in 10 days", "2026-03-21"},
		{"in 1 week", "2026-03-18"},
		{"in 2 weeks", "2026-03-25"},

		{"2026-06-15", "2026-06-15"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseFrom(tt.input, ref)
			assert.True(t, ok)
			assert.Equal(t, tt.want+"T00:00:00Z", got.Format(time.RFC3339))
		})
	}
}

func TestParseFromRejects(t *testing.T) {
	ref := time.Date(2026, 3, 11, 12, 0, 0, 0, time.UTC)
	for _, input := range []string{"", "invalid", "next year", "+", "+-1", "in days", "03/04/2026", "2026-13-01"} {
		_, ok := ParseFrom(input, ref)
		assert.False(t, ok, input)
	}
}

func TestNextWeekdaySameDay(t *testing.T) {
	monday := time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC)

	for _, input := range []string{"monday", "next monday"} {
		got, ok := ParseFrom(input, monday)
		assert.True(t, ok)
		assert.Equal(t, "2026-03-16", got.Format(time.DateOnly), input)
	}
}

func TestEndOfMonth(t *testing.T) {
	tests := map[string]string{
		"2024-02-15": "2024-02-29",
		"2026-02-15": "2026-02-28",
		"2026-04-10": "2026-04-30",
		"2026-12-01": "2026-12-31",
	}
	for ref, want := range tests {
		now, _ := time.Parse(time.DateOnly, ref)
		got, ok := ParseFrom("eom", now)
		assert.True(t, ok)
		assert.Equal(t, want, got.Format(time.DateOnly), ref)
	}
}
