package domain

import (
	"time"
)

// DateLayout is the calendar-day format used for order dates and filters.
const DateLayout = "2006-01-02"

// FormatDate renders t as a calendar day in t's own location.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate validates a YYYY-MM-DD string.
func ParseDate(field, raw string) (string, error) {
	if _, err := time.Parse(DateLayout, raw); err != nil {
		return "", NewValidationError(field, "must be a date in YYYY-MM-DD format")
	}
	return raw, nil
}
