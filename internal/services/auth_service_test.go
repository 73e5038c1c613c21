package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/isdelr/goodcontent-auth/internal/apperr"
	"github.com/isdelr/goodcontent-auth/internal/auth"
	"github.com/isdelr/goodcontent-auth/internal/database"
	"github.com/isdelr/goodcontent-auth/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	testSecret = "test-secret"
	testInvite = "let-me-in"
)

type authFixture struct {
	svc    *AuthService
	users  *UserService
	events *EventService
	tokens *auth.TokenManager
}

func newAuthFixture(t *testing.T) authFixture {
	t.Helper()
	db := newTestDB(t)
	users := NewUserService(db, database.SQLite)
	users.now = tickingClock()
	events := NewEventService(db, database.SQLite, nil)
	tokens := auth.NewTokenManager(testSecret, 0)
	return authFixture{
		svc:    NewAuthService(users, events, auth.NewPasswordHasher(bcrypt.MinCost), tokens, testInvite),
		users:  users,
		events: events,
		tokens: tokens,
	}
}

func signupInput(email string) SignupInput {
	return SignupInput{
		Email:      email,
		Password:   "hunter2",
		FirstName:  "Ada",
		LastName:   "Lovelace",
		InviteCode: testInvite,
	}
}

func TestAuthService_Signup(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	session, err := f.svc.Signup(ctx, signupInput("ada@example.com"))
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", session.User.Email)
	assert.NotEmpty(t, session.Token)
	assert.WithinDuration(t, time.Now().Add(auth.SessionTTL), session.ExpiresAt, time.Minute)

	stored, err := f.users.GetUserByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2", stored.PasswordHash)
	assert.True(t, strings.HasPrefix(stored.PasswordHash, "$2"))

	claims, err := f.tokens.Verify(session.Token)
	require.NoError(t, err)
	assert.Equal(t, stored.ID, claims.UserID)
	assert.Equal(t, stored.Email, claims.Email)

	events, err := f.events.GetRecentEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, models.EventUserSignup, events[0].Type)
}

func TestAuthService_SignupWrongInvite(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	in := signupInput("ada@example.com")
	in.InviteCode = "nope"
	_, err := f.svc.Signup(ctx, in)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeValidationFailed, apperr.CodeOf(err))
	assert.Equal(t, apperr.FieldInviteCode, apperr.FieldOf(err))
	assert.Equal(t, apperr.MsgInvalidInviteCode, err.Error())

	_, err = f.users.GetUserByEmail(ctx, "ada@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestAuthService_SignupEmptyInviteSecretRejectsAll(t *testing.T) {
	f := newAuthFixture(t)
	f.svc.inviteCode = ""

	in := signupInput("ada@example.com")
	in.InviteCode = ""
	_, err := f.svc.Signup(context.Background(), in)
	assert.True(t, apperr.Is(err, apperr.CodeValidationFailed))
}

func TestAuthService_SignupDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	_, err := f.svc.Signup(ctx, signupInput("ada@example.com"))
	require.NoError(t, err)

	_, err = f.svc.Signup(ctx, signupInput("ada@example.com"))
	require.Error(t, err)
	assert.Equal(t, apperr.CodeConflict, apperr.CodeOf(err))
	assert.Equal(t, apperr.MsgEmailTaken, err.Error())

	all, err := f.svc.AllUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

// brokenSigner verifies like the real manager but cannot sign.
type brokenSigner struct {
	*auth.TokenManager
}

func (brokenSigner) Issue(string, string) (string, time.Time, error) {
	return "", time.Time{}, errors.New("signer unavailable")
}

func TestAuthService_SignupRemovesUserWhenTokenFails(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	f.svc.tokens = brokenSigner{f.tokens}

	_, err := f.svc.Signup(ctx, signupInput("ada@example.com"))
	require.Error(t, err)
	assert.Equal(t, apperr.CodeStoreFailure, apperr.CodeOf(err))

	_, err = f.users.GetUserByEmail(ctx, "ada@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)

	f.svc.tokens = f.tokens
	session, err := f.svc.Signup(ctx, signupInput("ada@example.com"))
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", session.User.Email)
}

func TestAuthService_SignupPasswordTooLong(t *testing.T) {
	f := newAuthFixture(t)

	in := signupInput("ada@example.com")
	in.Password = strings.Repeat("x", 73)
	_, err := f.svc.Signup(context.Background(), in)
	assert.Equal(t, apperr.CodeValidationFailed, apperr.CodeOf(err))
	assert.Equal(t, apperr.FieldPassword, apperr.FieldOf(err))
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	signed, err := f.svc.Signup(ctx, signupInput("ada@example.com"))
	require.NoError(t, err)

	session, err := f.svc.Login(ctx, "ada@example.com", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, signed.User.ID, session.User.ID)
	assert.NotEmpty(t, session.Token)
}

func TestAuthService_LoginFailuresAreIndistinguishable(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	_, err := f.svc.Signup(ctx, signupInput("ada@example.com"))
	require.NoError(t, err)

	_, wrongPassword := f.svc.Login(ctx, "ada@example.com", "wrong")
	_, unknownEmail := f.svc.Login(ctx, "bob@example.com", "hunter2")

	require.Error(t, wrongPassword)
	require.Error(t, unknownEmail)
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
	assert.Equal(t, apperr.CodeOf(wrongPassword), apperr.CodeOf(unknownEmail))
	assert.Equal(t, apperr.CodeAuthenticationInvalid, apperr.CodeOf(wrongPassword))
	assert.Equal(t, apperr.MsgInvalidCredentials, wrongPassword.Error())
}

func TestAuthService_CurrentUser(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	session, err := f.svc.Signup(ctx, signupInput("ada@example.com"))
	require.NoError(t, err)

	t.Run("valid token", func(t *testing.T) {
		user, err := f.svc.CurrentUser(ctx, session.Token)
		require.NoError(t, err)
		require.NotNil(t, user)
		assert.Equal(t, session.User.ID, user.ID)
	})

	t.Run("missing token", func(t *testing.T) {
		_, err := f.svc.CurrentUser(ctx, "")
		assert.Equal(t, apperr.CodeAuthenticationMissing, apperr.CodeOf(err))
		assert.Equal(t, apperr.MsgMissingToken, err.Error())
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := f.svc.CurrentUser(ctx, "garbage")
		assert.Equal(t, apperr.CodeAuthenticationInvalid, apperr.CodeOf(err))
		assert.ErrorIs(t, err, auth.ErrTokenMalformed)
	})

	t.Run("expired token", func(t *testing.T) {
		old := f.tokens.WithClock(func() time.Time { return time.Now().Add(-7 * time.Hour) })
		token, _, err := old.Issue(session.User.ID, session.User.Email)
		require.NoError(t, err)
		_, err = f.svc.CurrentUser(ctx, token)
		assert.Equal(t, apperr.CodeAuthenticationInvalid, apperr.CodeOf(err))
		assert.ErrorIs(t, err, auth.ErrTokenExpired)
	})

	t.Run("foreign signature", func(t *testing.T) {
		token, _, err := auth.NewTokenManager("other-secret", 0).Issue(session.User.ID, session.User.Email)
		require.NoError(t, err)
		_, err = f.svc.CurrentUser(ctx, token)
		assert.ErrorIs(t, err, auth.ErrTokenSignatureInvalid)
	})

	t.Run("deleted user", func(t *testing.T) {
		token, _, err := f.tokens.Issue("no-such-id", "ghost@example.com")
		require.NoError(t, err)
		user, err := f.svc.CurrentUser(ctx, token)
		require.NoError(t, err)
		assert.Nil(t, user)
	})
}

func TestAuthService_BigRedButton(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		_, err := f.svc.Signup(ctx, signupInput(email))
		require.NoError(t, err)
	}

	count, err := f.svc.BigRedButton(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)

	all, err := f.svc.AllUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	count, err = f.svc.BigRedButton(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)
}

func TestAuthService_UpdateUser(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	session, err := f.svc.Signup(ctx, signupInput("ada@example.com"))
	require.NoError(t, err)

	updated, err := f.svc.UpdateUser(ctx, models.UserLookup{ID: session.User.ID}, UserUpdate{Password: strPtr("new-password")})
	require.NoError(t, err)
	require.NotNil(t, updated)

	_, err = f.svc.Login(ctx, "ada@example.com", "hunter2")
	assert.True(t, apperr.Is(err, apperr.CodeAuthenticationInvalid))
	_, err = f.svc.Login(ctx, "ada@example.com", "new-password")
	assert.NoError(t, err)

	missing, err := f.svc.UpdateUser(ctx, models.UserLookup{Email: "nobody@example.com"}, UserUpdate{FirstName: strPtr("x")})
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = f.svc.UpdateUser(ctx, models.UserLookup{ID: "a", Email: "b"}, UserUpdate{})
	assert.Equal(t, apperr.FieldWhere, apperr.FieldOf(err))
	_, err = f.svc.UpdateUser(ctx, models.UserLookup{}, UserUpdate{})
	assert.Equal(t, apperr.CodeValidationFailed, apperr.CodeOf(err))
}

func TestAuthService_DeleteUser(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	_, err := f.svc.Signup(ctx, signupInput("ada@example.com"))
	require.NoError(t, err)
	_, err = f.svc.Signup(ctx, signupInput("bob@example.com"))
	require.NoError(t, err)

	deleted, err := f.svc.DeleteUser(ctx, models.UserLookup{Email: "ada@example.com"})
	require.NoError(t, err)
	require.NotNil(t, deleted)
	assert.Equal(t, "ada@example.com", deleted.Email)

	again, err := f.svc.DeleteUser(ctx, models.UserLookup{Email: "ada@example.com"})
	require.NoError(t, err)
	assert.Nil(t, again)

	count, err := f.svc.DeleteUsers(ctx, models.UserFilter{LastName: strPtr("Lovelace")})
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestAuthService_ListUsersRejectsNegativePage(t *testing.T) {
	f := newAuthFixture(t)
	_, err := f.svc.ListUsers(context.Background(), models.UserFilter{}, models.Page{Skip: -1})
	assert.Equal(t, apperr.FieldPage, apperr.FieldOf(err))
}
