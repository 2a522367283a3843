package user_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mpiangona/core"
	"github.com/trezcool/mpiangona/core/event"
	"github.com/trezcool/mpiangona/core/role"
	"github.com/trezcool/mpiangona/core/user"
	inmemdb "github.com/trezcool/mpiangona/storage/database/inmem"
	"github.com/trezcool/mpiangona/testutil"
)

const pwd = "Vatomandry#2024"

type fixture struct {
	svc      *user.Service
	repo     user.Repository
	roles    *role.Service
	sessions *user.SessionStore
	mailer   *testutil.Mailer
	changes  []event.Change
}

func setup(t *testing.T) *fixture {
	t.Helper()
	validate, _ := testutil.NewValidator()
	db := inmemdb.Open()
	bus := event.NewBus()
	f := &fixture{
		repo:     inmemdb.NewUserRepository(db),
		sessions: user.NewSessionStore(),
		mailer:   testutil.NewMailer(),
	}
	bus.Subscribe(event.Tables(event.TableSessions, event.TableRoles), func(c event.Change) { f.changes = append(f.changes, c) })
	f.roles = role.NewService(inmemdb.NewRoleRepository(db), bus)
	f.svc = user.NewService(f.repo, f.roles, f.sessions, f.mailer, bus, validate, core.NewTestConfig())
	return f
}

func fields(t *testing.T, err error) []string {
	t.Helper()
	var verrs validator.ValidationErrors
	require.True(t, errors.As(err, &verrs), "got %v", err)
	var flds []string
	for _, fe := range verrs {
		flds = append(flds, fe.Field()+":"+fe.Tag())
	}
	return flds
}

func TestService_SignUp(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	t.Run("password policy", func(t *testing.T) {
		tests := []struct {
			name string
			pwd  string
			tag  string
		}{
			{name: "too short", pwd: "Ab1!", tag: "pwdminlen"},
			{name: "whitespace", pwd: "Abcd 1234!", tag: "pwdnospace"},
			{name: "all numeric", pwd: "1234567890", tag: "pwdnotallnum"},
			{name: "not complex", pwd: "abcdefgh1", tag: "pwdcplx"},
			{name: "similar to username", pwd: "Rakotojean1!", tag: "pwdtoosim"},
			{name: "common", pwd: "Password1!", tag: "pwdnocommon"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := f.svc.SignUp(ctx, user.NewUser{Username: "rakotojean", Password: tt.pwd, PasswordConfirm: tt.pwd})
				assert.Equal(t, []string{"password:" + tt.tag}, fields(t, err))
			})
		}
	})

	t.Run("fields", func(t *testing.T) {
		_, err := f.svc.SignUp(ctx, user.NewUser{Username: "r!", Email: null.StringFrom("x"), Password: pwd, PasswordConfirm: "other"})
		assert.ElementsMatch(t, []string{"username:min", "email:email", "password_confirm:eqfield"}, fields(t, err))
	})

	usr, err := f.svc.SignUp(ctx, user.NewUser{Username: " Hery ", Email: null.StringFrom("Hery@FJKM.mg"), Password: pwd, PasswordConfirm: pwd})
	require.NoError(t, err)
	assert.Equal(t, "hery", usr.Username)
	assert.Equal(t, "hery@fjkm.mg", usr.Email.String)
	assert.True(t, usr.IsActive)
	assert.NoError(t, usr.CheckPassword(pwd))

	r, err := f.roles.RoleOf(ctx, usr.ID)
	require.NoError(t, err)
	assert.Equal(t, role.Default, r)

	t.Run("uniqueness", func(t *testing.T) {
		tests := []struct {
			name   string
			nu     user.NewUser
			target error
		}{
			{name: "username", nu: user.NewUser{Username: "HERY", Password: pwd, PasswordConfirm: pwd}, target: user.ErrUsernameExists},
			{name: "email", nu: user.NewUser{Username: "hery2", Email: null.StringFrom("hery@fjkm.mg"), Password: pwd, PasswordConfirm: pwd}, target: user.ErrEmailExists},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := f.svc.SignUp(ctx, tt.nu)
				assert.ErrorIs(t, err, tt.target)
				var verr *core.ValidationError
				assert.True(t, errors.As(err, &verr))
			})
		}
	})
}

func TestService_Sessions(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	usr := testutil.CreateUser(t, f.repo, "hery", "hery@fjkm.mg", pwd, true)
	testutil.CreateUser(t, f.repo, "inactive", "", pwd, false)

	tests := []struct {
		name  string
		login string
		pwd   string
	}{
		{name: "unknown user", login: "nobody", pwd: pwd},
		{name: "wrong password", login: "hery", pwd: "nope"},
		{name: "inactive user", login: "inactive", pwd: pwd},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := f.svc.SignIn(ctx, tt.login, tt.pwd)
			assert.ErrorIs(t, err, user.ErrInvalidCredentials)
		})
	}
	assert.Empty(t, f.changes)

	got, sess, err := f.svc.SignIn(ctx, " HERY@fjkm.mg ", pwd)
	require.NoError(t, err)
	assert.Equal(t, usr.ID, got.ID)
	assert.True(t, got.LastLogin.Valid)
	assert.Equal(t, usr.ID, sess.UserID)
	assert.WithinDuration(t, time.Now().Add(30*time.Minute), sess.ExpiresAt, time.Minute)
	assert.Equal(t, event.Change{Table: event.TableSessions, Action: event.Insert, ID: sess.ID, Actor: usr.ID, At: f.changes[0].At}, f.changes[0])

	live, liveUsr, err := f.svc.Session(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, live.ID)
	assert.Equal(t, "hery", liveUsr.Username)

	f.svc.SessionTTL = func(context.Context) time.Duration { return 2 * time.Hour }
	refreshed, err := f.svc.Refresh(ctx, sess.ID)
	require.NoError(t, err)
	assert.True(t, refreshed.ExpiresAt.After(sess.ExpiresAt))

	require.NoError(t, f.svc.SignOut(ctx, sess.ID))
	_, _, err = f.svc.Session(ctx, sess.ID)
	assert.ErrorIs(t, err, user.ErrSessionNotFound)
	assert.ErrorIs(t, f.svc.SignOut(ctx, sess.ID), user.ErrSessionNotFound)

	last := f.changes[len(f.changes)-1]
	assert.Equal(t, event.Delete, last.Action)
	assert.Equal(t, sess.ID, last.ID)
}

func TestService_SessionOfDeactivatedUser(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	usr := testutil.CreateUser(t, f.repo, "hery", "", pwd, true)

	_, sess, err := f.svc.SignIn(ctx, "hery", pwd)
	require.NoError(t, err)

	usr, err = f.repo.GetUserByID(ctx, usr.ID)
	require.NoError(t, err)
	usr.IsActive = false
	_, err = f.repo.UpdateUser(ctx, usr)
	require.NoError(t, err)

	_, _, err = f.svc.Session(ctx, sess.ID)
	assert.ErrorIs(t, err, user.ErrSessionNotFound)
	assert.Equal(t, 0, f.sessions.Len())
}

func TestService_PasswordReset(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	usr := testutil.CreateUser(t, f.repo, "hery", "hery@fjkm.mg", pwd, true)
	_, sess, err := f.svc.SignIn(ctx, "hery", pwd)
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.RequestPasswordReset(ctx, "nobody@fjkm.mg"), user.ErrNotFound)
	require.NoError(t, f.svc.RequestPasswordReset(ctx, " Hery@FJKM.mg "))
	require.True(t, f.mailer.Wait(5*time.Second), "reset mail not sent")

	sent := f.mailer.Sent()
	require.Len(t, sent, 1)
	msg := sent[0]
	assert.Equal(t, "password_reset", msg.TemplateName)
	assert.Equal(t, "hery@fjkm.mg", msg.To[0].Address)
	data := msg.TemplateData.(map[string]string)
	assert.Equal(t, "hery", data["Username"])

	newPwd := "Fiangonana&2025"
	tests := []struct {
		name string
		data user.ResetUserPassword
	}{
		{name: "bad uid", data: user.ResetUserPassword{UID: "%%%", Token: data["Token"], Password: newPwd, PasswordConfirm: newPwd}},
		{name: "bad token", data: user.ResetUserPassword{UID: data["UID"], Token: "abc-def", Password: newPwd, PasswordConfirm: newPwd}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.ResetPassword(ctx, tt.data)
			assert.ErrorIs(t, err, user.ErrInvalidResetToken)
		})
	}

	_, err = f.svc.ResetPassword(ctx, user.ResetUserPassword{UID: data["UID"], Token: data["Token"], Password: "weak", PasswordConfirm: "weak"})
	assert.Equal(t, []string{"password:pwdminlen"}, fields(t, err))

	reset := user.ResetUserPassword{UID: data["UID"], Token: data["Token"], Password: newPwd, PasswordConfirm: newPwd}
	got, err := f.svc.ResetPassword(ctx, reset)
	require.NoError(t, err)
	assert.Equal(t, usr.ID, got.ID)
	assert.NoError(t, got.CheckPassword(newPwd))

	_, _, err = f.svc.Session(ctx, sess.ID)
	assert.ErrorIs(t, err, user.ErrSessionNotFound, "a new password ends the open sessions")

	_, err = f.svc.ResetPassword(ctx, reset)
	assert.ErrorIs(t, err, user.ErrInvalidResetToken, "tokens are single use")
}

func TestSessionStore(t *testing.T) {
	store := user.NewSessionStore()
	short := store.Create("u1", -time.Second)
	long := store.Create("u1", time.Hour)
	other := store.Create("u2", time.Hour)
	assert.Equal(t, 3, store.Len())

	_, err := store.Get(short.ID)
	assert.ErrorIs(t, err, user.ErrSessionExpired)
	_, err = store.Get(short.ID)
	assert.ErrorIs(t, err, user.ErrSessionNotFound, "expired sessions are dropped")

	_, err = store.Extend("missing", time.Hour)
	assert.ErrorIs(t, err, user.ErrSessionNotFound)

	assert.Equal(t, []string{long.ID}, store.RevokeUser("u1"))
	assert.True(t, store.Revoke(other.ID))
	assert.False(t, store.Revoke(other.ID))
	assert.Equal(t, 0, store.Len())
}
