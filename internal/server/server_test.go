package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/gravadigital/community-portal/internal/config"
	"github.com/gravadigital/community-portal/internal/domain/profile"
	"github.com/gravadigital/community-portal/internal/realtime"
	"github.com/gravadigital/community-portal/internal/services"
	"github.com/gravadigital/community-portal/internal/storage/memory"
	"github.com/gravadigital/community-portal/internal/storage/objects"
)

const testPassword = "password123"

type apiEnv struct {
	t      *testing.T
	store  *memory.Store
	blobs  *objects.MemoryStore
	router http.Handler
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Code    int             `json:"code"`
	Field   string          `json:"field"`
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.App.Name = "portal-test"
	cfg.Server.GinMode = gin.TestMode
	cfg.Storage.Type = "memory"
	cfg.Auth.JWTSecret = "test-secret-with-enough-characters-0123"
	cfg.Auth.TokenTTL = time.Hour
	cfg.Auth.BcryptCost = bcrypt.MinCost
	cfg.Upload.MaxFileSize = 1024
	cfg.Objects.URLExpiry = time.Minute
	cfg.CORS.AllowOrigins = "http://localhost:5173"
	return cfg
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	cfg := testConfig()
	hub := realtime.NewHub(16)
	t.Cleanup(hub.Close)

	store := memory.New(hub)
	blobs := objects.NewMemoryStore()
	svc := services.New(cfg, store, hub, blobs)

	return &apiEnv{
		t:      t,
		store:  store,
		blobs:  blobs,
		router: New(cfg, svc, store).Router(),
	}
}

// account stores an active profile and signs it in, returning its token
func (e *apiEnv) account(email string, role profile.Role) (string, uuid.UUID) {
	e.t.Helper()
	p := profile.NewProfile(email, "Test", "Member")
	p.Role = role
	require.NoError(e.t, p.SetPassword(testPassword, bcrypt.MinCost))
	require.NoError(e.t, e.store.Profiles().Create(context.Background(), p))

	rec := e.do(http.MethodPost, "/api/auth/signin", "", gin.H{"email": email, "password": testPassword})
	require.Equal(e.t, http.StatusOK, rec.Code, rec.Body.String())
	var result services.AuthResult
	decodeData(e.t, rec, &result)
	return result.Token, p.ID
}

func (e *apiEnv) do(method, path, token string, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return e.send(req, token)
}

func (e *apiEnv) send(req *http.Request, token string) *httptest.ResponseRecorder {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	env := decodeEnvelope(t, rec)
	require.True(t, env.Success, rec.Body.String())
	require.NoError(t, json.Unmarshal(env.Data, out))
}

func TestPingAndHealth(t *testing.T) {
	env := newAPIEnv(t)

	rec := env.do(http.MethodGet, "/ping", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "portal-test is running")

	rec = env.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestAuthFlow(t *testing.T) {
	env := newAPIEnv(t)

	signup := gin.H{"email": "ana@example.org", "password": "correct-horse-9", "first_name": "Ana", "last_name": "Diaz"}
	rec := env.do(http.MethodPost, "/api/auth/signup", "", signup)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var result services.AuthResult
	decodeData(t, rec, &result)
	require.NotEmpty(t, result.Token)
	assert.Equal(t, profile.RoleMember, result.Profile.Role)

	rec = env.do(http.MethodPost, "/api/auth/signup", "", signup)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(http.MethodPost, "/api/auth/signup", "", gin.H{"email": "bob@example.org"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodPost, "/api/auth/signin", "", gin.H{"email": "ana@example.org", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(http.MethodGet, "/api/auth/session", result.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var session services.Session
	decodeData(t, rec, &session)
	assert.Equal(t, result.Profile.ID, session.Profile.ID)

	rec = env.do(http.MethodPost, "/api/auth/signout", result.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(http.MethodGet, "/api/auth/session", result.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = env.do(http.MethodGet, "/api/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProfileEndpoints(t *testing.T) {
	env := newAPIEnv(t)
	member, memberID := env.account("ana@example.org", profile.RoleMember)
	admin, _ := env.account("root@example.org", profile.RoleAdmin)

	rec := env.do(http.MethodPatch, "/api/me", member, gin.H{"bio": "Gardener", "skills": []string{"Carpentry", "carpentry", "Cooking"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var me profile.Profile
	decodeData(t, rec, &me)
	assert.Equal(t, []string{"Carpentry", "Cooking"}, []string(me.Skills))

	rec = env.do(http.MethodGet, "/api/profiles?skill=cooking", member, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var dir services.Directory
	decodeData(t, rec, &dir)
	require.Len(t, dir.Profiles, 1)
	assert.Equal(t, memberID, dir.Profiles[0].ID)

	path := "/api/profiles/" + memberID.String() + "/access"
	rec = env.do(http.MethodPatch, path, member, gin.H{"role": "admin"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = env.do(http.MethodPatch, path, admin, gin.H{"role": "coordinator"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(http.MethodGet, "/api/profiles/not-a-uuid", member, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "id", decodeEnvelope(t, rec).Field)
	rec = env.do(http.MethodGet, "/api/profiles/"+uuid.NewString(), member, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPermanenceRegistrationEndpoints(t *testing.T) {
	env := newAPIEnv(t)
	coordinator, _ := env.account("coord@example.org", profile.RoleCoordinator)
	ana, _ := env.account("ana@example.org", profile.RoleMember)
	bob, bobID := env.account("bob@example.org", profile.RoleMember)

	start := time.Now().Add(24 * time.Hour).Truncate(time.Hour)
	shift := gin.H{
		"title":          "Saturday front desk",
		"start_at":       start,
		"end_at":         start.Add(3 * time.Hour),
		"min_volunteers": 1,
		"max_volunteers": 1,
	}
	rec := env.do(http.MethodPost, "/api/permanences", ana, shift)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(http.MethodPost, "/api/permanences", coordinator, shift)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created services.PermanenceView
	decodeData(t, rec, &created)

	volunteers := "/api/permanences/" + created.ID.String() + "/volunteers"
	rec = env.do(http.MethodPost, volunteers, ana, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var view services.PermanenceView
	decodeData(t, rec, &view)
	assert.Equal(t, 1, view.Volunteers)

	rec = env.do(http.MethodPost, volunteers, bob, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(http.MethodPost, volunteers+"?profile_id="+bobID.String(), ana, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(http.MethodDelete, volunteers, ana, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(http.MethodPost, volunteers+"?profile_id="+bobID.String(), coordinator, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = env.do(http.MethodGet, "/api/permanences?mine=true", bob, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var mine []services.PermanenceView
	decodeData(t, rec, &mine)
	assert.Len(t, mine, 1)

	rec = env.do(http.MethodGet, "/api/permanences?from=yesterday", bob, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVoteEndpoints(t *testing.T) {
	env := newAPIEnv(t)
	coordinator, _ := env.account("coord@example.org", profile.RoleCoordinator)
	ana, _ := env.account("ana@example.org", profile.RoleMember)

	now := time.Now()
	rec := env.do(http.MethodPost, "/api/votes", coordinator, gin.H{
		"title":       "New meeting day",
		"start_date":  now.Add(-time.Hour),
		"end_date":    now.Add(24 * time.Hour),
		"max_choices": 1,
		"options":     []string{"Monday", "Friday"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		ID      uuid.UUID `json:"id"`
		Options []struct {
			ID    uuid.UUID `json:"id"`
			Label string    `json:"label"`
		} `json:"options"`
	}
	decodeData(t, rec, &created)
	require.Len(t, created.Options, 2)
	base := "/api/votes/" + created.ID.String()

	rec = env.do(http.MethodGet, base, ana, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(http.MethodPost, base+"/open", coordinator, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	ballot := gin.H{"option_ids": []string{created.Options[1].ID.String()}}
	rec = env.do(http.MethodPost, base+"/ballot", ana, ballot)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = env.do(http.MethodPost, base+"/ballot", ana, ballot)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(http.MethodGet, base+"/ballot", ana, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var mine struct {
		OptionIDs []uuid.UUID `json:"option_ids"`
	}
	decodeData(t, rec, &mine)
	assert.Equal(t, []uuid.UUID{created.Options[1].ID}, mine.OptionIDs)

	rec = env.do(http.MethodPost, base+"/close", coordinator, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(http.MethodGet, base+"/results", ana, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var results struct {
		TotalVoters int         `json:"total_voters"`
		Leading     []uuid.UUID `json:"leading"`
	}
	decodeData(t, rec, &results)
	assert.Equal(t, 1, results.TotalVoters)
	assert.Equal(t, []uuid.UUID{created.Options[1].ID}, results.Leading)
}

func TestCorsPreflight(t *testing.T) {
	env := newAPIEnv(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/events", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := env.send(req, "")

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}
