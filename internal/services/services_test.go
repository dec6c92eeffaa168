package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/gravadigital/community-portal/internal/config"
	"github.com/gravadigital/community-portal/internal/domain/common"
	"github.com/gravadigital/community-portal/internal/domain/profile"
	"github.com/gravadigital/community-portal/internal/realtime"
	"github.com/gravadigital/community-portal/internal/storage/memory"
	"github.com/gravadigital/community-portal/internal/storage/objects"
)

type testEnv struct {
	cfg      *config.Config
	hub      *realtime.Hub
	store    *memory.Store
	blobs    *objects.MemoryStore
	services *Services
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.App.Name = "portal-test"
	cfg.Auth.JWTSecret = "test-secret-with-enough-characters-0123"
	cfg.Auth.TokenTTL = time.Hour
	cfg.Auth.BcryptCost = bcrypt.MinCost
	cfg.Upload.MaxFileSize = 1024
	cfg.Objects.URLExpiry = time.Minute
	return cfg
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := testConfig()
	hub := realtime.NewHub(16)
	t.Cleanup(hub.Close)

	store := memory.New(hub)
	blobs := objects.NewMemoryStore()
	return &testEnv{
		cfg:      cfg,
		hub:      hub,
		store:    store,
		blobs:    blobs,
		services: New(cfg, store, hub, blobs),
	}
}

// member stores an active profile with the given role and returns it as an actor
func (e *testEnv) member(t *testing.T, email string, role profile.Role) common.Actor {
	t.Helper()
	p := profile.NewProfile(email, "Test", "Member")
	p.Role = role
	require.NoError(t, p.SetPassword("password123", bcrypt.MinCost))
	require.NoError(t, e.store.Profiles().Create(context.Background(), p))
	return p.Actor()
}
