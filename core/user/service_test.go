package user_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FARHATREKAYA/quran-app/core"
	"github.com/FARHATREKAYA/quran-app/core/user"
	emailsvc "github.com/FARHATREKAYA/quran-app/services/email"
	dummydb "github.com/FARHATREKAYA/quran-app/storage/database/dummy"
	testutil "github.com/FARHATREKAYA/quran-app/tests"
)

func setup(t *testing.T) (user.Service, user.Repository, *emailsvc.ServiceMock) {
	t.Helper()

	conf := testutil.Config()
	logger := testutil.Logger(conf)
	core.ParseEmailTemplates(conf, logger)

	db, err := dummydb.Open()
	require.NoError(t, err)
	repo := dummydb.NewUserRepository(db)
	mail := emailsvc.NewServiceMock(conf, logger)
	return user.NewService(repo, mail, conf), repo, mail
}

func TestService_Register(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := setup(t)
	validate := testutil.Validator()

	nu := user.NewUser{Username: " Hafsa ", Email: "HAFSA@example.com", Password: "qur4n-r3ader"}
	require.NoError(t, nu.Validate(validate))
	usr, err := svc.Register(ctx, nu)
	require.NoError(t, err)
	assert.Equal(t, "hafsa", usr.Username)
	assert.Equal(t, "hafsa@example.com", usr.Email)
	assert.True(t, usr.IsActive)
	assert.False(t, usr.IsGuest)
	assert.NoError(t, usr.CheckPassword("qur4n-r3ader"))

	tests := []struct {
		name  string
		nu    user.NewUser
		field string
	}{
		{"username taken", user.NewUser{Username: "HAFSA", Password: "another-pass1"}, "username"},
		{"email taken", user.NewUser{Username: "hafsa2", Email: "hafsa@example.com", Password: "another-pass1"}, "email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, tt.nu.Validate(validate))
			_, err := svc.Register(ctx, tt.nu)
			require.True(t, core.IsValidation(err), "got %v", err)

			var verr *core.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Fields[0].Field)
		})
	}

	t.Run("password policy", func(t *testing.T) {
		for _, pwd := range []string{"short", "12345678901", "has space in it"} {
			nu := user.NewUser{Username: "zaid", Password: pwd}
			assert.Error(t, nu.Validate(validate), pwd)
		}
	})
}

func TestService_GuestAndSocial(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := setup(t)

	guest, err := svc.CreateGuest(ctx)
	require.NoError(t, err)
	assert.True(t, guest.IsGuest)
	assert.True(t, strings.HasPrefix(guest.Username, "guest_"))
	assert.Empty(t, guest.PasswordHash)

	sl := user.SocialLogin{Provider: user.ProviderGoogle, Token: "tok", SocialID: "g-123", Email: "maryam@example.com", Name: "Maryam Ali"}
	first, err := svc.SocialLogin(ctx, sl)
	require.NoError(t, err)
	assert.Equal(t, "maryam_ali", first.Username)
	assert.False(t, first.LastLogin.IsZero())

	again, err := svc.SocialLogin(ctx, sl)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	// same display name, other provider: the username gets a suffix
	fb, err := svc.SocialLogin(ctx, user.SocialLogin{Provider: user.ProviderFacebook, Token: "tok", SocialID: "f-9", Name: "Maryam Ali"})
	require.NoError(t, err)
	assert.Equal(t, "maryam_ali_1", fb.Username)
	assert.NotEqual(t, first.ID, fb.ID)
}

func TestService_AdminActions(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := setup(t)

	admin := testutil.CreateUser(t, repo, "admin", testutil.UserOpts{IsAdmin: true})
	member := testutil.CreateUser(t, repo, "member", testutil.UserOpts{Email: "member@example.com"})

	_, err := svc.SetActive(ctx, admin.ID, false)
	assert.Equal(t, user.ErrCannotBlockAdmin, err)

	blocked, err := svc.SetActive(ctx, member.ID, false)
	require.NoError(t, err)
	assert.False(t, blocked.IsActive)

	inactive := false
	n, err := svc.Count(ctx, user.QueryFilter{IsActive: &inactive})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	users, err := svc.Query(ctx, user.QueryFilter{Search: " MEM "}, core.Page{})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, member.ID, users[0].ID)

	assert.Equal(t, user.ErrCannotDeleteAdmin, svc.Delete(ctx, admin.ID, member.ID))
	assert.Equal(t, user.ErrCannotDeleteSelf, svc.Delete(ctx, member.ID, member.ID))
	require.NoError(t, svc.Delete(ctx, member.ID, admin.ID))

	_, err = svc.GetByID(ctx, member.ID)
	assert.True(t, core.IsNotFound(err))
	_, err = svc.GetByID(ctx, "not-a-uuid")
	assert.Equal(t, user.ErrNotFound, err)
}

func TestService_PasswordReset(t *testing.T) {
	ctx := context.Background()
	svc, repo, mail := setup(t)
	usr := testutil.CreateUser(t, repo, "khadija", testutil.UserOpts{Email: "khadija@example.com", Password: "old-passw0rd"})

	assert.True(t, core.IsNotFound(svc.RequestPasswordReset(ctx, "nobody@example.com")))

	require.NoError(t, svc.RequestPasswordReset(ctx, "KHADIJA@example.com"))
	sent := mail.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "khadija@example.com", sent[0].To[0].Address)
	data := sent[0].TemplateData.(map[string]interface{})
	uid, token := data["UID"].(string), data["Token"].(string)
	assert.Contains(t, sent[0].TextContent, token)

	err := svc.ResetPassword(ctx, user.ResetUserPassword{Token: "bad-token", UID: uid, Password: "n3w-passw0rd", PasswordConfirm: "n3w-passw0rd"})
	assert.True(t, core.IsValidation(err), "got %v", err)

	err = svc.ResetPassword(ctx, user.ResetUserPassword{Token: token, UID: uid, Password: "n3w-passw0rd", PasswordConfirm: "n3w-passw0rd"})
	require.NoError(t, err)

	updated, err := svc.GetByID(ctx, usr.ID)
	require.NoError(t, err)
	assert.NoError(t, updated.CheckPassword("n3w-passw0rd"))
	assert.Error(t, updated.CheckPassword("old-passw0rd"))
}
