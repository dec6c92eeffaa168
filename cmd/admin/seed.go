package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/gravadigital/community-portal/internal/domain/profile"
	"github.com/gravadigital/community-portal/internal/logger"
	"github.com/gravadigital/community-portal/internal/validation"
)

// Account is one entry of a seed file
type Account struct {
	Email     string         `json:"email"`
	Password  string         `json:"password"`
	FirstName string         `json:"first_name"`
	LastName  string         `json:"last_name"`
	Role      profile.Role   `json:"role"`
	Status    profile.Status `json:"status"`
	Skills    []string       `json:"skills"`
}

func readAccounts(path string) ([]Account, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var accounts []Account
	if err := json.Unmarshal(data, &accounts); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return accounts, nil
}

// seedAccounts creates the accounts that do not exist yet and returns how many
// were created. Existing emails are skipped and any other failure aborts.
func seedAccounts(ctx context.Context, profiles profile.Repository, accounts []Account, cost int) (int, error) {
	log := logger.Service("admin")
	v := validation.ProfileValidation{}

	created := 0
	for i, a := range accounts {
		if err := v.ValidateEmail(a.Email); err != nil {
			return created, fmt.Errorf("account %d: %w", i, err)
		}
		if err := v.ValidatePassword(a.Password); err != nil {
			return created, fmt.Errorf("account %d: %w", i, err)
		}

		existing, err := profiles.GetByEmail(ctx, a.Email)
		switch {
		case err == nil:
			log.Warn("Account already exists", "email", existing.Email)
			continue
		case !errors.Is(err, profile.ErrNotFound):
			return created, fmt.Errorf("account %d: %w", i, err)
		}

		p := profile.NewProfile(a.Email, a.FirstName, a.LastName)
		if a.Role != "" {
			p.Role = a.Role
		}
		if a.Status != "" {
			p.Status = a.Status
		}
		p.Skills = append(p.Skills, a.Skills...)
		if err := p.Validate(); err != nil {
			return created, fmt.Errorf("account %d: %w", i, err)
		}
		if err := p.SetPassword(a.Password, cost); err != nil {
			return created, fmt.Errorf("account %d: failed to hash password: %w", i, err)
		}

		if err := profiles.Create(ctx, p); err != nil {
			return created, fmt.Errorf("account %d: %w", i, err)
		}
		log.Debug("Account created", "email", p.Email, "role", p.Role)
		created++
	}
	return created, nil
}
