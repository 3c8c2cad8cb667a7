package validation

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/jmoon/divtrack/internal/models"
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

func init() {
	Validate = validator.New()

	// Register custom validator for the unit enum
	// This should never fail in normal operation
	if err := Validate.RegisterValidation("dividend_unit", validateDividendUnit); err != nil {
		panic(fmt.Sprintf("failed to register dividend_unit validator: %v", err))
	}
}

// validateDividendUnit validates that a string is a valid DividendUnit enum value
func validateDividendUnit(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	switch models.DividendUnit(value) {
	case models.DividendUnitKRW, models.DividendUnitUSD:
		return true
	default:
		return false
	}
}

// ValidateDividendUnit validates a DividendUnit string value
func ValidateDividendUnit(value string) error {
	switch models.DividendUnit(value) {
	case models.DividendUnitKRW, models.DividendUnitUSD:
		return nil
	default:
		return fmt.Errorf("invalid unit: %s (must be 'KRW' or 'USD')", value)
	}
}

// payDateLayouts are the accepted input layouts for dividend dates and
// reference dates, tried in order. Parsed values are normalized to UTC.
var payDateLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"2006-01",
}

// ParseDate parses an ISO 8601 date string and normalizes it to a UTC
// instant. Returns an error for unparseable input.
func ParseDate(value string) (time.Time, error) {
	s := strings.TrimSpace(value)
	if s == "" {
		return time.Time{}, fmt.Errorf("date is empty")
	}
	for _, layout := range payDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date: %s", value)
}

// SanitizeText sanitizes text input by trimming whitespace and removing control characters
func SanitizeText(text string) string {
	text = strings.TrimSpace(text)

	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sanitized.WriteRune(r)
	}

	return sanitized.String()
}
