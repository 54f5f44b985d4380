package utils

import (
	"errors"
	"math"
	"regexp"
	"strings"
)

var (
	// Alphanumeric, underscore, hyphen, dot and colon: duty, segment and GTFS ids
	validIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_.:-]+$`)

	htmlTagPattern = regexp.MustCompile(`<[^>]*>`)
)

// MaxServiceDayMinutes bounds minute values; a service day may run past 24:00 but never past 48:00.
const MaxServiceDayMinutes = 48 * 60

// ValidateID validates that an ID is safe and within reasonable limits
func ValidateID(id string) error {
	if id == "" {
		return errors.New("id cannot be empty")
	}

	if len(id) > 100 {
		return errors.New("id too long (max 100 characters)")
	}

	if !validIDPattern.MatchString(id) {
		return errors.New("id contains invalid characters")
	}

	return nil
}

// ValidateOptionalID is ValidateID for fields that may be left empty.
func ValidateOptionalID(id string) error {
	if id == "" {
		return nil
	}
	return ValidateID(id)
}

// ValidateMinutes validates a minute offset on the service-day scale.
func ValidateMinutes(minutes float64) error {
	if math.IsNaN(minutes) || math.IsInf(minutes, 0) {
		return errors.New("minutes must be a finite number")
	}
	if minutes < 0 || minutes > MaxServiceDayMinutes {
		return errors.New("minutes must be between 0 and 2880")
	}
	return nil
}

// ValidateDeltaMinutes validates a pointer offset, which may be negative.
func ValidateDeltaMinutes(delta float64) error {
	if math.IsNaN(delta) || math.IsInf(delta, 0) {
		return errors.New("delta must be a finite number")
	}
	if math.Abs(delta) > MaxServiceDayMinutes {
		return errors.New("delta too large (max 2880 minutes)")
	}
	return nil
}

// SanitizeInput removes HTML tags and surrounding whitespace
func SanitizeInput(input string) string {
	sanitized := htmlTagPattern.ReplaceAllString(input, "")
	return strings.TrimSpace(sanitized)
}

// ValidateIDs checks every named id and collects failures per field.
func ValidateIDs(ids map[string]string) map[string][]string {
	fieldErrors := make(map[string][]string)
	for field, id := range ids {
		if err := ValidateID(id); err != nil {
			fieldErrors[field] = append(fieldErrors[field], err.Error())
		}
	}
	return fieldErrors
}
