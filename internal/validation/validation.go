package validation

import (
	"net/mail"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/gravadigital/community-portal/internal/domain/common"
)

// ValidateRequired checks that a field is not blank
func ValidateRequired(value, fieldName string) error {
	if strings.TrimSpace(value) == "" {
		return common.NewValidationError(fieldName, "is required")
	}
	return nil
}

// ValidateMinLength checks the minimum length in characters
func ValidateMinLength(value string, minLength int, fieldName string) error {
	if utf8.RuneCountInString(value) < minLength {
		return common.NewValidationError(fieldName, "must be at least "+strconv.Itoa(minLength)+" characters long")
	}
	return nil
}

// ValidateMaxLength checks the maximum length in characters
func ValidateMaxLength(value string, maxLength int, fieldName string) error {
	if utf8.RuneCountInString(value) > maxLength {
		return common.NewValidationError(fieldName, "must be at most "+strconv.Itoa(maxLength)+" characters long")
	}
	return nil
}

// ValidateUUID checks that value is a valid UUID
func ValidateUUID(value, fieldName string) error {
	_, err := ParseUUID(value, fieldName)
	return err
}

// ParseUUID parses value, reporting failures against fieldName
func ParseUUID(value, fieldName string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(value))
	if err != nil {
		return uuid.Nil, common.NewValidationError(fieldName, "must be a valid UUID")
	}
	return id, nil
}

// ParseUUIDs parses every value of a list
func ParseUUIDs(values []string, fieldName string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(values))
	for _, v := range values {
		id, err := ParseUUID(v, fieldName)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// ValidateEmail checks the address format
func ValidateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != strings.TrimSpace(email) || !strings.Contains(addr.Address[strings.LastIndex(addr.Address, "@"):], ".") {
		return common.NewValidationError("email", "must have a valid format")
	}
	return nil
}

// ValidateDateRange checks that the end does not precede the start
func ValidateDateRange(startDate, endDate time.Time) error {
	if startDate.IsZero() || endDate.IsZero() {
		return common.NewValidationError("dates", "start and end are required")
	}
	if endDate.Before(startDate) {
		return common.NewValidationError("end", "must be after start")
	}
	return nil
}

// ParseTime parses an optional RFC 3339 query value
func ParseTime(value, fieldName string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, common.NewValidationError(fieldName, "must be an RFC 3339 timestamp")
	}
	return t, nil
}

// ParseInt parses an optional non-negative integer query value
func ParseInt(value, fieldName string) (int, error) {
	if value == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return 0, common.NewValidationError(fieldName, "must be a non-negative integer")
	}
	return n, nil
}

// ProfileValidation holds the account specific rules
type ProfileValidation struct{}

// ValidateName validates a first or last name
func (v ProfileValidation) ValidateName(name, fieldName string) error {
	if err := ValidateRequired(name, fieldName); err != nil {
		return err
	}
	return ValidateMaxLength(name, 100, fieldName)
}

// ValidateEmail validates a sign up email
func (v ProfileValidation) ValidateEmail(email string) error {
	if err := ValidateRequired(email, "email"); err != nil {
		return err
	}
	return ValidateEmail(email)
}

// ValidatePassword requires 8 to 72 characters with a letter and a digit.
// bcrypt ignores input past 72 bytes.
func (v ProfileValidation) ValidatePassword(password string) error {
	if err := ValidateMinLength(password, 8, "password"); err != nil {
		return err
	}
	if len(password) > 72 {
		return common.NewValidationError("password", "must be at most 72 bytes long")
	}

	var letter, digit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !letter || !digit {
		return common.NewValidationError("password", "must contain a letter and a digit")
	}
	return nil
}
