// Package dateparse turns due-date shorthand into calendar dates.
package dateparse

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Parse resolves input relative to the current time. See ParseFrom.
func Parse(input string) (time.Time, bool) {
	return ParseFrom(input, time.Now())
}

// ParseFrom resolves input relative to now and returns midnight UTC of the
// resulting calendar day. Accepted forms:
//   - today, tomorrow, yesterday
//   - monday, tue, ... (next occurrence; the same weekday means next week)
//   - next monday (at least a week out), next week, next month
//   - eow (Friday), eom (last day of the month)
//   - +N, in N days, in N weeks
//   - YYYY-MM-DD
func ParseFrom(input string, now time.Time) (time.Time, bool) {
	input = strings.ToLower(strings.TrimSpace(input))

	switch input {
	case "today":
		return day(now), true
	case "tomorrow":
		return day(now.AddDate(0, 0, 1)), true
	case "yesterday":
		return day(now.AddDate(0, 0, -1)), true
	case "next week", "nextweek":
		return day(now.AddDate(0, 0, 7)), true
	case "next month", "nextmonth":
		return day(now.AddDate(0, 1, 0)), true
	case "end of week", "eow":
		return day(nextWeekday(now, time.Friday, false)), true
	case "end of month", "eom":
		return day(endOfMonth(now)), true
	}

	if wd, ok := parseWeekday(input); ok {
		return day(nextWeekday(now, wd, strings.HasPrefix(input, "next "))), true
	}

	if rest, ok := strings.CutPrefix(input, "+"); ok {
		if days, err := strconv.Atoi(rest); err == nil && days >= 0 {
			return day(now.AddDate(0, 0, days)), true
		}
		return time.Time{}, false
	}

	if m := inPattern.FindStringSubmatch(input); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return time.Time{}, false
		}
		if strings.HasPrefix(m[2], "week") {
			n *= 7
		}
		return day(now.AddDate(0, 0, n)), true
	}

	if t, err := time.Parse(time.DateOnly, input); err == nil {
		return t, true
	}
	return time.Time{}, false
}

var inPattern = regexp.MustCompile(`^in (\d{1,4}) (days?|weeks?)$`)

// day keeps now's calendar date and drops the clock and zone.
func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func parseWeekday(input string) (time.Weekday, bool) {
	switch strings.TrimPrefix(input, "next ") {
	case "sunday", "sun":
		return time.Sunday, true
	case "monday", "mon":
		return time.Monday, true
	case "tuesday", "tue":
		return time.Tuesday, true
	case "wednesday", "wed":
		return time.Wednesday, true
	case "thursday", "thu":
		return time.Thursday, true
	case "friday", "fri":
		return time.Friday, true
	case "saturday", "sat":
		return time.Saturday, true
	}
	return 0, false
}

// nextWeekday returns the next occurrence of target. With forceNext it
// returns the one after this week's, except that on target itself both
// forms land seven days out.
func nextWeekday(now time.Time, target time.Weekday, forceNext bool) time.Time {
	daysUntil := int(target - now.Weekday())
	sameDay := daysUntil == 0
	if daysUntil <= 0 {
		daysUntil += 7
	}
	if forceNext && !sameDay {
		daysUntil += 7
	}
	return now.AddDate(0, 0, daysUntil)
}

func endOfMonth(now time.Time) time.Time {
	year, month, _ := now.Date()
	return time.Date(year, month+1, 1, 0, 0, 0, 0, now.Location()).AddDate(0, 0, -1)
}
