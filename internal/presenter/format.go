package presenter

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// FormatField formats data[key] according to its FieldSpec.
func FormatField(spec FieldSpec, key string, data map[string]any, locale Locale) string {
	val := data[key]
	switch spec.Format {
	case "boolean":
		return formatBoolean(spec, val)
	case "date":
		return formatDate(val, locale)
	case "relative_time":
		return formatRelativeTime(val, locale, time.Now())
	case "enum":
		return formatEnum(spec, val)
	case "number":
		return formatNumber(val, locale)
	case "money":
		code, _ := data[spec.Currency].(string)
		return formatMoney(val, code, locale)
	default:
		return formatText(val)
	}
}

// formatBoolean converts a boolean to a label from the field schema, or "yes"/"no".
func formatBoolean(spec FieldSpec, val any) string {
	b := toBool(val)
	if label, ok := spec.Labels[fmt.Sprintf("%v", b)]; ok {
		return label
	}
	if b {
		return "yes"
	}
	return "no"
}

// formatEnum maps a wire constant like IN_PROGRESS to its label, falling
// back to a title-cased rendering of the constant.
func formatEnum(spec FieldSpec, val any) string {
	str, ok := val.(string)
	if !ok || str == "" {
		return ""
	}
	if label, ok := spec.Labels[str]; ok {
		return label
	}
	words := strings.Fields(strings.ToLower(strings.ReplaceAll(str, "_", " ")))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func parseTime(val any) (time.Time, bool) {
	str, ok := val.(string)
	if !ok || str == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, str); err == nil {
		return t, true
	}
	if t, err := time.Parse("2006-01-02", str); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// formatDate formats a date string in the locale's date layout.
func formatDate(val any, locale Locale) string {
	t, ok := parseTime(val)
	if !ok {
		s, _ := val.(string)
		return s
	}
	return locale.FormatDate(t)
}

// formatRelativeTime formats a timestamp relative to now (e.g. "2 hours ago").
// Future timestamps and anything older than a week fall back to a date.
func formatRelativeTime(val any, locale Locale, now time.Time) string {
	t, ok := parseTime(val)
	if !ok {
		s, _ := val.(string)
		return s
	}

	switch diff := now.Sub(t); {
	case diff < 0, diff >= 7*24*time.Hour:
		return locale.FormatDate(t)
	case diff < time.Minute:
		return "just now"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

func formatNumber(val any, locale Locale) string {
	switch v := val.(type) {
	case float64:
		return locale.FormatNumber(v)
	case int:
		return locale.FormatNumber(float64(v))
	case int64:
		return locale.FormatNumber(float64(v))
	}
	return formatText(val)
}

// formatMoney formats an amount in minor units with its currency.
func formatMoney(val any, code string, locale Locale) string {
	var minor int64
	switch v := val.(type) {
	case float64:
		minor = int64(v)
	case int64:
		minor = v
	case int:
		minor = int64(v)
	default:
		return formatText(val)
	}
	return locale.FormatMoney(minor, code)
}

// formatText converts any value to a string representation.
func formatText(val any) string {
	switch v := val.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		if v {
			return "yes"
		}
		return "no"
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%.2f", v)
	case int, int64:
		return fmt.Sprintf("%d", v)
	case []any:
		items := make([]string, 0, len(v))
		for _, item := range v {
			items = append(items, formatText(item))
		}
		return strings.Join(items, ", ")
	default:
		return fmt.Sprintf("%v", v)
	}
}

// toBool converts various types to bool.
func toBool(val any) bool {
	switch v := val.(type) {
	case bool:
		return v
	case string:
		return v == "true" || v == "1" || v == "yes"
	case float64:
		return v != 0
	default:
		return false
	}
}

// IsOverdue checks if a date value is before the start of today in local time.
// Handles both date-only ("2006-01-02") and RFC3339 timestamps.
func IsOverdue(val any) bool {
	str, ok := val.(string)
	if !ok || str == "" {
		return false
	}

	now := time.Now()
	todayLocal := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	if t, err := time.Parse(time.RFC3339, str); err == nil {
		return t.In(now.Location()).Before(todayLocal)
	}
	// Date-only values have no timezone; parse in local timezone
	if t, err := time.ParseInLocation("2006-01-02", str, now.Location()); err == nil {
		return t.Before(todayLocal)
	}
	return false
}
