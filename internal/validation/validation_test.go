package validation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gravadigital/community-portal/internal/domain/common"
)

func TestLengthMessages(t *testing.T) {
	err := ValidateMinLength("ab", 3, "title")
	require.Error(t, err)
	assert.Equal(t, "title: must be at least 3 characters long", err.Error())
	assert.ErrorIs(t, err, common.ErrInvalid)

	err = ValidateMaxLength("abcdef", 5, "title")
	require.Error(t, err)
	assert.Equal(t, "title: must be at most 5 characters long", err.Error())

	assert.NoError(t, ValidateMinLength("ñandú", 5, "title"))
}

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		email string
		valid bool
	}{
		{email: "ana@example.org", valid: true},
		{email: "ana.gomez+club@mail.example.com", valid: true},
		{email: "ana", valid: false},
		{email: "ana@localhost", valid: false},
		{email: "Ana <ana@example.org>", valid: false},
		{email: "", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			err := ValidateEmail(tt.email)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, common.ErrInvalid)
			}
		})
	}
}

func TestParseUUID(t *testing.T) {
	id, err := ParseUUID(" 6f1c2a0e-3b7d-4c1e-9a55-0d2f6c8b9e10 ", "event_id")
	require.NoError(t, err)
	assert.Equal(t, "6f1c2a0e-3b7d-4c1e-9a55-0d2f6c8b9e10", id.String())

	_, err = ParseUUID("nope", "event_id")
	assert.EqualError(t, err, "event_id: must be a valid UUID")

	_, err = ParseUUIDs([]string{"6f1c2a0e-3b7d-4c1e-9a55-0d2f6c8b9e10", "x"}, "option_ids")
	assert.Error(t, err)
}

func TestValidateDateRange(t *testing.T) {
	start := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	assert.NoError(t, ValidateDateRange(start, start.Add(time.Hour)))
	assert.NoError(t, ValidateDateRange(start, start))
	assert.Error(t, ValidateDateRange(start, start.Add(-time.Minute)))
	assert.Error(t, ValidateDateRange(time.Time{}, start))
}

func TestParseQueryValues(t *testing.T) {
	ts, err := ParseTime("2026-05-01T10:00:00Z", "from")
	require.NoError(t, err)
	assert.Equal(t, 2026, ts.Year())

	ts, err = ParseTime("", "from")
	require.NoError(t, err)
	assert.True(t, ts.IsZero())

	_, err = ParseTime("yesterday", "from")
	assert.ErrorIs(t, err, common.ErrInvalid)

	n, err := ParseInt("25", "limit")
	require.NoError(t, err)
	assert.Equal(t, 25, n)

	_, err = ParseInt("-1", "limit")
	assert.Error(t, err)
}

func TestValidatePassword(t *testing.T) {
	v := ProfileValidation{}

	assert.NoError(t, v.ValidatePassword("correct horse 9"))
	assert.Error(t, v.ValidatePassword("short1"))
	assert.Error(t, v.ValidatePassword("onlyletters"))
	assert.Error(t, v.ValidatePassword("1234567890"))
}
