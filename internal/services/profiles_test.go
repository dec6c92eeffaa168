package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gravadigital/community-portal/internal/domain/common"
	"github.com/gravadigital/community-portal/internal/domain/profile"
)

func ptr[T any](v T) *T { return &v }

func TestUpdateOwnProfile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	actor := env.member(t, "ana@example.org", profile.RoleMember)

	p, err := env.services.Profiles.UpdateOwn(ctx, actor, UpdateProfileRequest{
		Phone:  ptr(" 555-0101 "),
		Bio:    ptr("Gardening and carpentry"),
		Skills: &[]string{"Carpentry", "carpentry", " ", "First aid"},
	})
	require.NoError(t, err)
	assert.Equal(t, "555-0101", p.Phone)
	assert.Equal(t, []string{"Carpentry", "First aid"}, []string(p.Skills))
	assert.Equal(t, "Test", p.FirstName)

	_, err = env.services.Profiles.UpdateOwn(ctx, actor, UpdateProfileRequest{FirstName: ptr("")})
	assert.ErrorIs(t, err, common.ErrInvalid)
}

func TestDirectoryHidesInactiveFromMembers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	member := env.member(t, "ana@example.org", profile.RoleMember)
	admin := env.member(t, "root@example.org", profile.RoleAdmin)
	gone := env.member(t, "gone@example.org", profile.RoleMember)

	_, err := env.services.Profiles.SetRoleStatus(ctx, admin, gone.ID, SetRoleStatusRequest{Status: profile.StatusInactive})
	require.NoError(t, err)

	dir, err := env.services.Profiles.Directory(ctx, member, DirectoryRequest{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, dir.Total)
	for _, p := range dir.Profiles {
		assert.NotEqual(t, gone.ID, p.ID)
	}

	dir, err = env.services.Profiles.Directory(ctx, admin, DirectoryRequest{Status: profile.StatusInactive})
	require.NoError(t, err)
	require.Len(t, dir.Profiles, 1)
	assert.Equal(t, gone.ID, dir.Profiles[0].ID)
	assert.Equal(t, 50, dir.Limit)
}

func TestSetRoleStatusPermissions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	member := env.member(t, "ana@example.org", profile.RoleMember)
	coordinator := env.member(t, "coord@example.org", profile.RoleCoordinator)
	admin := env.member(t, "root@example.org", profile.RoleAdmin)

	tests := []struct {
		name    string
		actor   common.Actor
		target  common.Actor
		req     SetRoleStatusRequest
		wantErr error
	}{
		{name: "member", actor: member, target: coordinator, req: SetRoleStatusRequest{Role: profile.RoleMember}, wantErr: ErrAdminOnly},
		{name: "coordinator", actor: coordinator, target: member, req: SetRoleStatusRequest{Role: profile.RoleCoordinator}, wantErr: ErrAdminOnly},
		{name: "admin demotes self", actor: admin, target: admin, req: SetRoleStatusRequest{Role: profile.RoleMember}, wantErr: ErrSelfDeactivation},
		{name: "unknown role", actor: admin, target: member, req: SetRoleStatusRequest{Role: "owner"}, wantErr: common.ErrInvalid},
		{name: "admin promotes", actor: admin, target: member, req: SetRoleStatusRequest{Role: profile.RoleCoordinator}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := env.services.Profiles.SetRoleStatus(ctx, tt.actor, tt.target.ID, tt.req)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.req.Role, p.Role)
		})
	}
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	actor := env.member(t, "ana@example.org", profile.RoleMember)

	err := env.services.Profiles.ChangePassword(ctx, actor, ChangePasswordRequest{CurrentPassword: "nope", NewPassword: "another123"})
	assert.ErrorIs(t, err, profile.ErrInvalidCredentials)

	require.NoError(t, env.services.Profiles.ChangePassword(ctx, actor, ChangePasswordRequest{
		CurrentPassword: "password123",
		NewPassword:     "another123",
	}))

	_, err = env.services.Auth.SignIn(ctx, SignInRequest{Email: "ana@example.org", Password: "another123"})
	assert.NoError(t, err)
}
