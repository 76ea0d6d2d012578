package api

import (
	"fmt"
	"regexp"
)

const floatPattern = `-?[0-9]*\.[0-9]+`

var (
	floatRe    = regexp.MustCompile(`^` + floatPattern + `$`)
	postCodeRe = regexp.MustCompile(`^\d{5}$`)
	locationRe = regexp.MustCompile(`^` + floatPattern + `\s?,\s?` + floatPattern + `$`)
)

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func validateRange(value, lo, hi float64, field string) error {
	if value < lo || value > hi {
		return invalid(field, "has to be between %g and %g, got %g", lo, hi, value)
	}
	return nil
}

func validateNotEmpty(value, field string) error {
	if value == "" {
		return invalid(field, "must not be empty")
	}
	return nil
}

func validateCount(n, lo, hi int, field string) error {
	if n < lo {
		return invalid(field, "at least %d required", lo)
	}
	if n > hi {
		return invalid(field, "a maximum of %d is allowed per request, got %d", hi, n)
	}
	return nil
}

func validateFloat(value, field string) error {
	if !floatRe.MatchString(value) {
		return invalid(field, "%q is not a valid floating point value", value)
	}
	return nil
}

func validatePostCode(value, field string) error {
	if !postCodeRe.MatchString(value) {
		return invalid(field, "%q is not a valid post code, it must have a format of 12345", value)
	}
	return nil
}

func validateLocation(value, field string) error {
	if !locationRe.MatchString(value) {
		return invalid(field, "%q is not location data, it must be in the format of \"58.0,13.0\"", value)
	}
	return nil
}
