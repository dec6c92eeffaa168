package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/gravadigital/community-portal/internal/domain/announcement"
	"github.com/gravadigital/community-portal/internal/domain/common"
	"github.com/gravadigital/community-portal/internal/domain/profile"
	"github.com/gravadigital/community-portal/internal/realtime"
	"github.com/gravadigital/community-portal/internal/storage/memory"
)

func TestReadAccounts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accounts.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"email": "ana@example.org", "password": "secret123", "first_name": "Ana", "role": "admin"}
	]`), 0o600))

	accounts, err := readAccounts(path)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, profile.RoleAdmin, accounts[0].Role)

	require.NoError(t, os.WriteFile(path, []byte(`{"email":`), 0o600))
	_, err = readAccounts(path)
	assert.Error(t, err)
}

func TestSeedAccounts(t *testing.T) {
	ctx := context.Background()
	store := memory.New(realtime.NewHub(16))
	repo := store.Profiles()

	accounts := []Account{
		{Email: "Ana@Example.org", Password: "secret123", FirstName: "Ana", Role: profile.RoleAdmin, Skills: []string{"cooking"}},
		{Email: "bob@example.org", Password: "secret123", FirstName: "Bob"},
	}
	created, err := seedAccounts(ctx, repo, accounts, bcrypt.MinCost)
	require.NoError(t, err)
	assert.Equal(t, 2, created)

	ana, err := repo.GetByEmail(ctx, "ana@example.org")
	require.NoError(t, err)
	assert.Equal(t, profile.RoleAdmin, ana.Role)
	assert.Equal(t, []string{"cooking"}, []string(ana.Skills))
	assert.NoError(t, ana.CheckPassword("secret123"))

	bob, err := repo.GetByEmail(ctx, "bob@example.org")
	require.NoError(t, err)
	assert.Equal(t, profile.RoleMember, bob.Role)
	assert.Equal(t, profile.StatusActive, bob.Status)

	// a second run skips what exists
	created, err = seedAccounts(ctx, repo, accounts, bcrypt.MinCost)
	require.NoError(t, err)
	assert.Zero(t, created)
}

func TestSeedAccountsRejectsInvalidEntries(t *testing.T) {
	ctx := context.Background()
	repo := memory.New(realtime.NewHub(16)).Profiles()

	tests := []struct {
		name    string
		account Account
	}{
		{"bad email", Account{Email: "not-an-email", Password: "secret123", FirstName: "Ana"}},
		{"weak password", Account{Email: "ana@example.org", Password: "short", FirstName: "Ana"}},
		{"unknown role", Account{Email: "ana@example.org", Password: "secret123", FirstName: "Ana", Role: "owner"}},
		{"missing name", Account{Email: "ana@example.org", Password: "secret123"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			created, err := seedAccounts(ctx, repo, []Account{tt.account}, bcrypt.MinCost)
			require.Error(t, err)
			assert.ErrorIs(t, err, common.ErrInvalid)
			assert.Zero(t, created)
		})
	}
}

func TestExportAll(t *testing.T) {
	ctx := context.Background()
	store := memory.New(realtime.NewHub(16))

	p := profile.NewProfile("ana@example.org", "Ana", "Diaz")
	require.NoError(t, store.Profiles().Create(ctx, p))
	a := announcement.NewAnnouncement("Bake sale", "Saturday at 10", announcement.CategoryGeneral, p.ID)
	require.NoError(t, store.Announcements().Create(ctx, a))

	dir := filepath.Join(t.TempDir(), "out")
	written, err := exportAll(ctx, store, dir)
	require.NoError(t, err)
	assert.Len(t, written, 7)

	data, err := os.ReadFile(filepath.Join(dir, "profiles.json"))
	require.NoError(t, err)
	var profiles []struct {
		ID    uuid.UUID `json:"id"`
		Email string    `json:"email"`
	}
	require.NoError(t, json.Unmarshal(data, &profiles))
	require.Len(t, profiles, 1)
	assert.Equal(t, p.ID, profiles[0].ID)
	assert.NotContains(t, string(data), "password")

	data, err = os.ReadFile(filepath.Join(dir, "announcements.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Bake sale")

	data, err = os.ReadFile(filepath.Join(dir, "events.json"))
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(data))
}

func TestCollectPages(t *testing.T) {
	total := exportPageSize + 5
	calls := 0
	rows, err := collectPages(func(page common.Page) ([]int, error) {
		calls++
		n := total - page.Offset
		if n > page.Limit {
			n = page.Limit
		}
		return make([]int, n), nil
	})
	require.NoError(t, err)
	assert.Len(t, rows, total)
	assert.Equal(t, 2, calls)
}
