package services

import (
	"context"
	"testing"

	"bibliotrack/internal/pkg/password"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUserFixture() (*UserService, *fakeUserRepo, *fakeLogRepo) {
	users := &fakeUserRepo{}
	auditSvc, logs := testAudit()
	return NewUserService(users, auditSvc), users, logs
}

func strptr(s string) *string { return &s }

func boolptr(b bool) *bool { return &b }

func TestListUsers(t *testing.T) {
	svc, users, _ := newUserFixture()
	seedUser(users, "alice", "Secret123", "USER", true)
	seedUser(users, "bob", "Secret123", "USER", true)
	seedUser(users, "carol", "Secret123", "USER", true)
	seedUser(users, "ghost", "Secret123", "USER", false)

	// Deactivated accounts stay out of the directory
	summaries, total, err := svc.ListUsers(context.Background(), 0, 2)
	require.NoError(t, err)

	assert.Len(t, summaries, 2)
	assert.Equal(t, int64(3), total)
	for _, u := range summaries {
		assert.NotEmpty(t, u.ID)
		assert.NotEmpty(t, u.Username)
	}

	// Second page holds the remainder
	summaries, total, err = svc.ListUsers(context.Background(), 2, 2)
	require.NoError(t, err)
	assert.Len(t, summaries, 1)
	assert.Equal(t, int64(3), total)
}

func TestGetUserByID(t *testing.T) {
	svc, users, _ := newUserFixture()
	ghost := seedUser(users, "ghost", "Secret123", "USER", false)

	// Admin lookups see deactivated accounts too
	resp, err := svc.GetUserByID(context.Background(), ghost.ID)
	require.NoError(t, err)
	assert.Equal(t, "ghost", resp.Username)
	assert.False(t, resp.IsActive)

	_, err = svc.GetUserByID(context.Background(), "no-such-id")
	assert.ErrorIs(t, err, ErrUserNotFoundSvc)
}

func TestUpdateUserByAdmin(t *testing.T) {
	svc, users, _ := newUserFixture()
	admin := seedUser(users, "admin", "Secret123", "ADMIN", true)
	target := seedUser(users, "reader", "Secret123", "USER", true)

	resp, err := svc.UpdateUserByAdmin(context.Background(), target.ID, admin.ID, &UpdateUserByAdminInput{
		Email:    strptr("new@library.org"),
		Role:     strptr("LIBRARIAN"),
		IsActive: boolptr(false),
	})
	require.NoError(t, err)
	assert.Equal(t, "new@library.org", resp.Email)
	assert.Equal(t, "LIBRARIAN", resp.Role)
	assert.False(t, resp.IsActive)

	stored := users.stored(target.ID)
	assert.Equal(t, "new@library.org", stored.Email)
	assert.Equal(t, "LIBRARIAN", stored.Role)
}

func TestUpdateUserByAdminRejections(t *testing.T) {
	svc, users, _ := newUserFixture()
	admin := seedUser(users, "admin", "Secret123", "ADMIN", true)
	seedUser(users, "taken", "Secret123", "USER", true)
	target := seedUser(users, "reader", "Secret123", "USER", true)

	// Admins cannot change their own role
	_, err := svc.UpdateUserByAdmin(context.Background(), admin.ID, admin.ID, &UpdateUserByAdminInput{
		Role: strptr("USER"),
	})
	assert.ErrorIs(t, err, ErrCannotChangeOwnRole)

	_, err = svc.UpdateUserByAdmin(context.Background(), target.ID, admin.ID, &UpdateUserByAdminInput{
		Email: strptr("not-an-email"),
	})
	assert.ErrorIs(t, err, ErrInvalidEmail)

	_, err = svc.UpdateUserByAdmin(context.Background(), target.ID, admin.ID, &UpdateUserByAdminInput{
		Email: strptr("taken@library.org"),
	})
	assert.ErrorIs(t, err, ErrEmailAlreadyExists)

	_, err = svc.UpdateUserByAdmin(context.Background(), target.ID, admin.ID, &UpdateUserByAdminInput{
		Role: strptr("OVERLORD"),
	})
	assert.ErrorIs(t, err, ErrInvalidRole)

	_, err = svc.UpdateUserByAdmin(context.Background(), "no-such-id", admin.ID, &UpdateUserByAdminInput{})
	assert.ErrorIs(t, err, ErrUserNotFoundSvc)
}

func TestDeactivateUser(t *testing.T) {
	svc, users, logs := newUserFixture()
	admin := seedUser(users, "admin", "Secret123", "ADMIN", true)
	target := seedUser(users, "reader", "Secret123", "USER", true)

	require.NoError(t, svc.DeactivateUser(context.Background(), target.ID, admin.ID))

	stored := users.stored(target.ID)
	assert.False(t, stored.IsActive)

	// The username stays reserved after deactivation
	exists, err := users.ExistsByUsername(context.Background(), "reader")
	require.NoError(t, err)
	assert.True(t, exists)

	assert.True(t, logs.hasMessage("User deactivated: reader"))
}

func TestDeactivateUserRejections(t *testing.T) {
	svc, users, _ := newUserFixture()
	admin := seedUser(users, "admin", "Secret123", "ADMIN", true)

	err := svc.DeactivateUser(context.Background(), admin.ID, admin.ID)
	assert.ErrorIs(t, err, ErrCannotDeleteSelf)

	err = svc.DeactivateUser(context.Background(), "no-such-id", admin.ID)
	assert.ErrorIs(t, err, ErrUserNotFoundSvc)
}

func TestGetProfile(t *testing.T) {
	svc, users, _ := newUserFixture()
	user := seedUser(users, "reader", "Secret123", "USER", true)
	ghost := seedUser(users, "ghost", "Secret123", "USER", false)

	resp, err := svc.GetProfile(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, "reader", resp.Username)

	// A deactivated account has no profile to serve
	_, err = svc.GetProfile(context.Background(), ghost.ID)
	assert.ErrorIs(t, err, ErrUserNotFoundSvc)
}

func TestUpdateProfile(t *testing.T) {
	svc, users, _ := newUserFixture()
	user := seedUser(users, "reader", "Secret123", "USER", true)
	seedUser(users, "taken", "Secret123", "USER", true)

	resp, err := svc.UpdateProfile(context.Background(), user.ID, &UpdateProfileInput{
		Email: strptr("fresh@library.org"),
	})
	require.NoError(t, err)
	assert.Equal(t, "fresh@library.org", resp.Email)

	_, err = svc.UpdateProfile(context.Background(), user.ID, &UpdateProfileInput{
		Email: strptr("taken@library.org"),
	})
	assert.ErrorIs(t, err, ErrEmailAlreadyExists)

	_, err = svc.UpdateProfile(context.Background(), user.ID, &UpdateProfileInput{
		Email: strptr("bad email"),
	})
	assert.ErrorIs(t, err, ErrInvalidEmail)
}

func TestChangePassword(t *testing.T) {
	svc, users, _ := newUserFixture()
	user := seedUser(users, "reader", "Secret123", "USER", true)

	err := svc.ChangePassword(context.Background(), user.ID, &ChangePasswordInput{
		OldPassword: "Wrong123",
		NewPassword: "Fresh456",
	})
	assert.ErrorIs(t, err, ErrOldPasswordWrong)

	err = svc.ChangePassword(context.Background(), user.ID, &ChangePasswordInput{
		OldPassword: "Secret123",
		NewPassword: "weak",
	})
	assert.ErrorIs(t, err, ErrWeakPassword)

	err = svc.ChangePassword(context.Background(), user.ID, &ChangePasswordInput{
		OldPassword: "Secret123",
		NewPassword: "Fresh456",
	})
	require.NoError(t, err)

	stored := users.stored(user.ID)
	assert.True(t, password.Verify("Fresh456", stored.Password))
	assert.False(t, password.Verify("Secret123", stored.Password))
}

func TestSetUserRole(t *testing.T) {
	svc, users, logs := newUserFixture()
	admin := seedUser(users, "admin", "Secret123", "ADMIN", true)
	target := seedUser(users, "reader", "Secret123", "USER", true)

	_, err := svc.SetUserRole(context.Background(), admin.ID, admin.ID, "USER")
	assert.ErrorIs(t, err, ErrCannotChangeOwnRole)

	_, err = svc.SetUserRole(context.Background(), target.ID, admin.ID, "OVERLORD")
	assert.ErrorIs(t, err, ErrInvalidRole)

	resp, err := svc.SetUserRole(context.Background(), target.ID, admin.ID, "LIBRARIAN")
	require.NoError(t, err)
	assert.Equal(t, "LIBRARIAN", resp.Role)
	assert.Equal(t, "LIBRARIAN", users.stored(target.ID).Role)

	assert.True(t, logs.hasMessage("Role changed: reader is now LIBRARIAN"))
}
