package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/gravadigital/community-portal/internal/config"
	"github.com/gravadigital/community-portal/internal/domain/common"
	"github.com/gravadigital/community-portal/internal/domain/profile"
	"github.com/gravadigital/community-portal/internal/logger"
	"github.com/gravadigital/community-portal/internal/realtime"
	"github.com/gravadigital/community-portal/internal/validation"
)

var (
	ErrInvalidToken = common.Kind(common.ErrUnauthenticated, "invalid or expired token")
)

const profileCacheTTL = time.Minute

// AuthService handles sign up, sign in and token validation
type AuthService struct {
	profiles  profile.Repository
	secret    []byte
	issuer    string
	ttl       time.Duration
	cost      int
	validator validation.ProfileValidation
	cache     *profileCache
	now       Clock
	log       *log.Logger
}

// NewAuthService creates the auth service. An empty JWT secret is replaced by a
// random one, so tokens do not survive a restart.
func NewAuthService(profiles profile.Repository, cfg *config.Config) *AuthService {
	s := &AuthService{
		profiles:  profiles,
		secret:    []byte(cfg.Auth.JWTSecret),
		issuer:    cfg.App.Name,
		ttl:       cfg.Auth.TokenTTL,
		cost:      cfg.Auth.BcryptCost,
		validator: validation.ProfileValidation{},
		cache:     newProfileCache(profileCacheTTL),
		now:       time.Now,
		log:       logger.Service("auth"),
	}
	if len(s.secret) == 0 {
		s.secret = make([]byte, 32)
		_, _ = rand.Read(s.secret)
		s.log.Warn("JWT_SECRET is not set, using an ephemeral secret")
	}
	if s.ttl <= 0 {
		s.ttl = 24 * time.Hour
	}
	return s
}

// SignUpRequest represents a request to create an account
type SignUpRequest struct {
	Email     string `json:"email" binding:"required"`
	Password  string `json:"password" binding:"required"`
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name"`
}

// SignInRequest represents a request to open a session
type SignInRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AuthResult is returned by sign up and sign in
type AuthResult struct {
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expires_at"`
	Profile   *profile.Profile `json:"profile"`
}

// Session is a validated token
type Session struct {
	ID        uuid.UUID        `json:"session_id"`
	ExpiresAt time.Time        `json:"expires_at"`
	Profile   *profile.Profile `json:"profile"`
}

// Actor returns the profile behind the session
func (s *Session) Actor() common.Actor {
	return s.Profile.Actor()
}

// SignUp creates an active member account and opens a session for it
func (s *AuthService) SignUp(ctx context.Context, req SignUpRequest) (*AuthResult, error) {
	s.log.Debug("Signing up", "email", req.Email)

	if err := s.validator.ValidateEmail(req.Email); err != nil {
		return nil, err
	}
	if err := s.validator.ValidatePassword(req.Password); err != nil {
		return nil, err
	}
	if err := s.validator.ValidateName(req.FirstName, "first_name"); err != nil {
		return nil, err
	}
	if err := validation.ValidateMaxLength(req.LastName, 100, "last_name"); err != nil {
		return nil, err
	}

	p := profile.NewProfile(req.Email, req.FirstName, req.LastName)
	if err := p.SetPassword(req.Password, s.cost); err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.profiles.Create(ctx, p); err != nil {
		return nil, err
	}

	s.log.Info("Account created", "profile_id", p.ID)
	return s.openSession(ctx, p)
}

// SignIn checks the credentials of an active profile and opens a session
func (s *AuthService) SignIn(ctx context.Context, req SignInRequest) (*AuthResult, error) {
	s.log.Debug("Signing in", "email", req.Email)

	p, err := s.profiles.GetByEmail(ctx, req.Email)
	if errors.Is(err, profile.ErrNotFound) {
		return nil, profile.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := p.CheckPassword(req.Password); err != nil {
		s.log.Warn("Rejected sign in", "profile_id", p.ID)
		return nil, err
	}
	if !p.IsActive() {
		return nil, profile.ErrInactive
	}

	return s.openSession(ctx, p)
}

func (s *AuthService) openSession(ctx context.Context, p *profile.Profile) (*AuthResult, error) {
	now := s.now().UTC()
	session := &profile.Session{
		ID:        uuid.New(),
		ProfileID: p.ID,
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	}
	if err := s.profiles.CreateSession(ctx, session); err != nil {
		return nil, err
	}

	claims := jwt.RegisteredClaims{
		ID:        session.ID.String(),
		Subject:   p.ID.String(),
		Issuer:    s.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	s.cache.put(p, now)
	s.log.Info("Session opened", "profile_id", p.ID, "session_id", session.ID)
	return &AuthResult{Token: token, ExpiresAt: session.ExpiresAt, Profile: p}, nil
}

// SignOut revokes the session referenced by the token
func (s *AuthService) SignOut(ctx context.Context, token string) error {
	claims, err := s.parse(token)
	if err != nil {
		return err
	}
	sessionID, err := uuid.Parse(claims.ID)
	if err != nil {
		return ErrInvalidToken
	}
	if err := s.profiles.RevokeSession(ctx, sessionID, s.now().UTC()); err != nil {
		if errors.Is(err, profile.ErrSessionNotFound) {
			return ErrInvalidToken
		}
		return err
	}

	s.log.Info("Session revoked", "session_id", sessionID)
	return nil
}

// GetSession validates the token, its session row and the profile status
func (s *AuthService) GetSession(ctx context.Context, token string) (*Session, error) {
	claims, err := s.parse(token)
	if err != nil {
		return nil, err
	}
	sessionID, err := uuid.Parse(claims.ID)
	if err != nil {
		return nil, ErrInvalidToken
	}
	profileID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, ErrInvalidToken
	}

	now := s.now().UTC()
	session, err := s.profiles.GetSession(ctx, sessionID)
	if errors.Is(err, profile.ErrSessionNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	if !session.IsValid(now) || session.ProfileID != profileID {
		return nil, ErrInvalidToken
	}

	p, ok := s.cache.get(profileID, now)
	if !ok {
		p, err = s.profiles.GetByID(ctx, profileID)
		if errors.Is(err, profile.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		if err != nil {
			return nil, err
		}
		s.cache.put(p, now)
	}
	if !p.IsActive() {
		return nil, profile.ErrInactive
	}

	return &Session{ID: session.ID, ExpiresAt: session.ExpiresAt, Profile: p}, nil
}

func (s *AuthService) parse(token string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// InvalidateOnChange drops cached profiles whenever their row changes.
// It returns once the subscription is open and stops when ctx ends.
func (s *AuthService) InvalidateOnChange(ctx context.Context, hub Subscriber) {
	sub := hub.Subscribe(ctx, realtime.Filter{Table: "profiles"})
	go func() {
		for change := range sub.Changes() {
			id, err := uuid.Parse(change.Field("id"))
			if err != nil {
				continue
			}
			s.cache.forget(id)
			s.log.Debug("Profile cache invalidated", "profile_id", id, "action", change.Action)
		}
	}()
}

type cachedProfile struct {
	profile  profile.Profile
	storedAt time.Time
}

// profileCache keeps recently seen profiles for token validation
type profileCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[uuid.UUID]cachedProfile
}

func newProfileCache(ttl time.Duration) *profileCache {
	return &profileCache{ttl: ttl, entries: make(map[uuid.UUID]cachedProfile)}
}

func (c *profileCache) get(id uuid.UUID, now time.Time) (*profile.Profile, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[id]
	if !ok || now.Sub(entry.storedAt) > c.ttl {
		delete(c.entries, id)
		return nil, false
	}
	p := entry.profile
	return &p, true
}

func (c *profileCache) put(p *profile.Profile, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[p.ID] = cachedProfile{profile: *p, storedAt: now}
}

func (c *profileCache) forget(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
}
