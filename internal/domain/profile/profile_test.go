package profile

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/gravadigital/community-portal/internal/domain/common"
)

func TestNewProfileNormalizes(t *testing.T) {
	p := NewProfile("  Alice@Example.ORG ", " Alice ", "Martin")

	assert.Equal(t, "alice@example.org", p.Email)
	assert.Equal(t, "Alice Martin", p.FullName())
	assert.Equal(t, RoleMember, p.Role)
	assert.True(t, p.IsActive())
	assert.NoError(t, p.Validate())
}

func TestPasswordRoundTrip(t *testing.T) {
	p := NewProfile("bob@example.org", "Bob", "")
	require.NoError(t, p.SetPassword("correct horse", bcrypt.MinCost))

	assert.NoError(t, p.CheckPassword("correct horse"))
	err := p.CheckPassword("wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.ErrorIs(t, err, common.ErrUnauthenticated)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*Profile)
		field string
	}{
		{name: "bad email", edit: func(p *Profile) { p.Email = "nope" }, field: "email"},
		{name: "missing first name", edit: func(p *Profile) { p.FirstName = "" }, field: "first_name"},
		{name: "bad role", edit: func(p *Profile) { p.Role = "root" }, field: "role"},
		{name: "bad status", edit: func(p *Profile) { p.Status = "gone" }, field: "status"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewProfile("c@example.org", "C", "")
			tt.edit(p)
			var ve *common.ValidationError
			require.True(t, errors.As(p.Validate(), &ve))
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestSessionIsValid(t *testing.T) {
	now := time.Now()
	s := &Session{ExpiresAt: now.Add(time.Hour)}
	assert.True(t, s.IsValid(now))
	assert.False(t, s.IsValid(now.Add(2*time.Hour)))

	revoked := now
	s.RevokedAt = &revoked
	assert.False(t, s.IsValid(now))
}
