package utils

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/ttacon/libphonenumber"
)

var emailRegex = regexp.MustCompile(`^[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,4}$`)

var CountryCode = "MM"

func IsValidEmail(email string) bool {
	if len(email) < 3 || len(email) > 254 {
		return false
	}
	return emailRegex.MatchString(strings.ToLower(email))
}

func ValidatePhoneNumber(phoneNumber, countryCode string) error {
	parsed, err := libphonenumber.Parse(phoneNumber, countryCode)
	if err != nil {
		return fmt.Errorf("invalid phone number: %v", err)
	}
	if !libphonenumber.IsValidNumber(parsed) {
		return fmt.Errorf("invalid phone number for region %s", countryCode)
	}
	return nil
}

func GenerateUniqueFilename() string {
	timestamp := time.Now().UnixNano()
	uniqueID := uuid.New()
	return fmt.Sprintf("%d_%s", timestamp, uniqueID)
}

// ProcessValidationErrors maps validator errors into field => message
// for the API layer.
func ProcessValidationErrors(err error) map[string]string {
	errorsMap := make(map[string]string)
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		for _, fieldError := range validationErrors {
			fieldName := LowercaseFirst(fieldError.Field())
			errorsMap[fieldName] = fieldName + " is " + fieldError.Tag()
		}
	} else {
		errorsMap["error"] = err.Error()
	}
	return errorsMap
}

func NewTrue() *bool {
	b := true
	return &b
}

func NewFalse() *bool {
	b := false
	return &b
}

func DereferencePtr[T any](ptr *T, defaults ...T) T {
	if ptr != nil {
		return *ptr
	}
	if len(defaults) > 0 {
		return defaults[0]
	}
	var zero T
	return zero
}

func NilIfEmpty[T comparable](v T) *T {
	var zero T
	if v == zero {
		return nil
	}
	return &v
}

func UppercaseFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func LowercaseFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

func UniqueSlice[T comparable](slice []T) []T {
	seen := make(map[T]struct{}, len(slice))
	out := make([]T, 0, len(slice))
	for _, v := range slice {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func ParseDecimal(value string) (decimal.Decimal, error) {
	value = strings.TrimSpace(strings.ReplaceAll(value, ",", ""))
	if value == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(value)
}

// ConvertToDate truncates t to midnight in the given timezone.
func ConvertToDate(t time.Time, timezone string) (time.Time, error) {
	if timezone == "" {
		timezone = "Asia/Yangon"
	}
	location, err := time.LoadLocation(timezone)
	if err != nil {
		return time.Time{}, err
	}
	local := t.In(location)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, location), nil
}

// FormatBusinessDate renders a zero-padded ISO date (YYYY-MM-DD).
// All ledger/order date strings in this codebase use this format so plain
// string comparison orders them correctly.
func FormatBusinessDate(t time.Time) string {
	return t.Format("2006-01-02")
}

// CombineShiftTimestamp stamps a record with the operator-selected shift date
// and the current wall-clock time-of-day.
func CombineShiftTimestamp(shiftDate string, now time.Time) string {
	return shiftDate + "T" + now.Format("15:04:05")
}

// ParseBusinessDate parses a YYYY-MM-DD string.
func ParseBusinessDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}

// DaysInclusive returns the number of calendar days in [start, end], both
// bounds counted. Returns 0 when either date fails to parse or end < start.
func DaysInclusive(start, end string) int {
	s, err := ParseBusinessDate(start)
	if err != nil {
		return 0
	}
	e, err := ParseBusinessDate(end)
	if err != nil {
		return 0
	}
	days := int(e.Sub(s).Hours()/24) + 1
	if days < 0 {
		return 0
	}
	return days
}
