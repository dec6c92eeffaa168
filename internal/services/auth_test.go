package services

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gravadigital/community-portal/internal/domain/common"
	"github.com/gravadigital/community-portal/internal/domain/profile"
)

func TestSignUpAndSignIn(t *testing.T) {
	env := newTestEnv(t)
	auth := env.services.Auth
	ctx := context.Background()

	result, err := auth.SignUp(ctx, SignUpRequest{
		Email:     "  Ana.Gomez@Example.org ",
		Password:  "secret123",
		FirstName: "Ana",
		LastName:  "Gómez",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.Equal(t, "ana.gomez@example.org", result.Profile.Email)
	assert.Equal(t, profile.RoleMember, result.Profile.Role)
	assert.Equal(t, profile.StatusActive, result.Profile.Status)

	_, err = auth.SignUp(ctx, SignUpRequest{Email: "ana.gomez@example.org", Password: "secret123", FirstName: "Ana"})
	assert.ErrorIs(t, err, profile.ErrEmailTaken)

	signedIn, err := auth.SignIn(ctx, SignInRequest{Email: "ANA.GOMEZ@example.org", Password: "secret123"})
	require.NoError(t, err)

	session, err := auth.GetSession(ctx, signedIn.Token)
	require.NoError(t, err)
	assert.Equal(t, result.Profile.ID, session.Profile.ID)
	assert.Equal(t, result.Profile.ID, session.Actor().ID)
}

func TestSignUpValidation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		req  SignUpRequest
	}{
		{name: "bad email", req: SignUpRequest{Email: "nope", Password: "secret123", FirstName: "Ana"}},
		{name: "short password", req: SignUpRequest{Email: "a@example.org", Password: "abc1", FirstName: "Ana"}},
		{name: "password without digit", req: SignUpRequest{Email: "a@example.org", Password: "abcdefghij", FirstName: "Ana"}},
		{name: "missing first name", req: SignUpRequest{Email: "a@example.org", Password: "secret123", FirstName: " "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.services.Auth.SignUp(context.Background(), tt.req)
			assert.ErrorIs(t, err, common.ErrInvalid)
		})
	}
}

func TestSignInRejections(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	actor := env.member(t, "bob@example.org", profile.RoleMember)

	_, err := env.services.Auth.SignIn(ctx, SignInRequest{Email: "bob@example.org", Password: "wrong-password1"})
	assert.ErrorIs(t, err, profile.ErrInvalidCredentials)
	assert.ErrorIs(t, err, common.ErrUnauthenticated)

	_, err = env.services.Auth.SignIn(ctx, SignInRequest{Email: "nobody@example.org", Password: "password123"})
	assert.ErrorIs(t, err, profile.ErrInvalidCredentials)

	p, err := env.store.Profiles().GetByID(ctx, actor.ID)
	require.NoError(t, err)
	p.Status = profile.StatusInactive
	require.NoError(t, env.store.Profiles().Update(ctx, p))

	_, err = env.services.Auth.SignIn(ctx, SignInRequest{Email: "bob@example.org", Password: "password123"})
	assert.ErrorIs(t, err, profile.ErrInactive)
}

func TestSignOutRevokesSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.member(t, "carla@example.org", profile.RoleMember)

	result, err := env.services.Auth.SignIn(ctx, SignInRequest{Email: "carla@example.org", Password: "password123"})
	require.NoError(t, err)

	require.NoError(t, env.services.Auth.SignOut(ctx, result.Token))

	_, err = env.services.Auth.GetSession(ctx, result.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestGetSessionRejectsBadTokens(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.member(t, "dan@example.org", profile.RoleMember)

	result, err := env.services.Auth.SignIn(ctx, SignInRequest{Email: "dan@example.org", Password: "password123"})
	require.NoError(t, err)

	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ID:        "6f1c2a0e-3b7d-4c1e-9a55-0d2f6c8b9e10",
		Subject:   result.Profile.ID.String(),
		Issuer:    env.cfg.App.Name,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	forged, err := foreign.SignedString([]byte("another-secret"))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "garbage", token: "not-a-token"},
		{name: "tampered", token: result.Token + "x"},
		{name: "foreign secret", token: forged},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.services.Auth.GetSession(ctx, tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestGetSessionExpiredToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.member(t, "eva@example.org", profile.RoleMember)

	auth := env.services.Auth
	result, err := auth.SignIn(ctx, SignInRequest{Email: "eva@example.org", Password: "password123"})
	require.NoError(t, err)

	auth.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = auth.GetSession(ctx, result.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestProfileChangesInvalidateCache(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	actor := env.member(t, "fede@example.org", profile.RoleMember)
	auth := env.services.Auth
	auth.InvalidateOnChange(ctx, env.hub)

	result, err := auth.SignIn(ctx, SignInRequest{Email: "fede@example.org", Password: "password123"})
	require.NoError(t, err)
	_, err = auth.GetSession(ctx, result.Token)
	require.NoError(t, err)

	p, err := env.store.Profiles().GetByID(ctx, actor.ID)
	require.NoError(t, err)
	p.Status = profile.StatusInactive
	require.NoError(t, env.store.Profiles().Update(ctx, p))

	assert.Eventually(t, func() bool {
		_, err := auth.GetSession(ctx, result.Token)
		return err != nil
	}, time.Second, 10*time.Millisecond)

	_, err = auth.GetSession(ctx, result.Token)
	assert.ErrorIs(t, err, profile.ErrInactive)
}
