// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import (
	"time"

	"weighbridge/internal/core/apperror"
	"weighbridge/internal/core/id"
)

// DateLayout is the calendar-day format accepted alongside RFC 3339.
const DateLayout = "2006-01-02"

// ListResponse wraps list results with pagination.
type ListResponse[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}

// ErrorResponse for error details.
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// ParseDate accepts RFC 3339 timestamps or plain calendar days. A plain day
// is read as UTC midnight, or as the last instant of the day when endOfDay is
// set so that inclusive ranges cover the whole day.
func ParseDate(field, raw string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	day, err := time.Parse(DateLayout, raw)
	if err != nil {
		return time.Time{}, apperror.NewValidation("invalid date").
			WithDetail("field", field).
			WithDetail("value", raw)
	}
	if endOfDay {
		return day.Add(24*time.Hour - time.Nanosecond), nil
	}
	return day, nil
}

// ParseOptionalDate is ParseDate for optional fields; an empty value yields nil.
func ParseOptionalDate(field, raw string, endOfDay bool) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := ParseDate(field, raw, endOfDay)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ParseID parses a required reference.
func ParseID(field, raw string) (id.ID, error) {
	parsed, err := id.Parse(raw)
	if err != nil {
		return id.Nil(), apperror.NewValidation("invalid id format").
			WithDetail("field", field).
			WithDetail("value", raw)
	}
	return parsed, nil
}

// ParseOptionalID parses an optional reference; an empty value yields nil.
func ParseOptionalID(field, raw string) (*id.ID, error) {
	if raw == "" {
		return nil, nil
	}
	parsed, err := ParseID(field, raw)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}
