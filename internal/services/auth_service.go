package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/isdelr/goodcontent-auth/internal/apperr"
	"github.com/isdelr/goodcontent-auth/internal/auth"
	"github.com/isdelr/goodcontent-auth/internal/models"
	"github.com/rs/zerolog/log"
)

// SignupInput carries the fields of the signup form.
type SignupInput struct {
	Email      string
	Password   string
	FirstName  string
	LastName   string
	InviteCode string
}

// UserUpdate is an administrative change to one or more users. Password is
// plaintext and gets hashed before it is stored.
type UserUpdate struct {
	FirstName *string
	LastName  *string
	Email     *string
	Password  *string
}

// Session is the outcome of a successful signup or login.
type Session struct {
	User      models.User
	Token     string
	ExpiresAt time.Time
}

// SessionTokens issues and verifies session tokens.
type SessionTokens interface {
	Issue(userID, email string) (string, time.Time, error)
	Verify(token string) (*auth.Claims, error)
}

// AuthService composes the credential store, password hashing and token
// issuance into the account flows.
type AuthService struct {
	users      UserServiceProvider
	events     EventServiceProvider
	hasher     auth.PasswordHasher
	tokens     SessionTokens
	inviteCode string

	dummyOnce sync.Once
	dummyHash string
}

// NewAuthService creates a new AuthService. events may be nil. An empty
// inviteCode rejects every signup.
func NewAuthService(users UserServiceProvider, events EventServiceProvider, hasher auth.PasswordHasher, tokens SessionTokens, inviteCode string) *AuthService {
	return &AuthService{
		users:      users,
		events:     events,
		hasher:     hasher,
		tokens:     tokens,
		inviteCode: inviteCode,
	}
}

// Signup checks the invite code, stores a new user and opens a session.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (Session, error) {
	if s.inviteCode == "" || subtle.ConstantTimeCompare([]byte(in.InviteCode), []byte(s.inviteCode)) != 1 {
		return Session{}, apperr.Invalid(apperr.FieldInviteCode, apperr.MsgInvalidInviteCode)
	}

	hash, err := s.hashPassword(in.Password)
	if err != nil {
		return Session{}, err
	}

	user, err := s.users.CreateUser(ctx, models.User{
		Email:        in.Email,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		PasswordHash: hash,
	})
	if err != nil {
		log.Warn().Err(err).Str("email", in.Email).Msg("Failed to register user")
		return Session{}, classify(err)
	}

	session, err := s.open(user)
	if err != nil {
		// Without a session the signup failed; keep the email free for a retry.
		if _, delErr := s.users.DeleteUser(ctx, models.UserLookup{ID: user.ID}); delErr != nil {
			log.Error().Err(delErr).Str("user_id", user.ID).Msg("Failed to remove user after signup error")
		}
		return Session{}, err
	}
	s.record(ctx, models.EventUserSignup, models.EventLevelInfo, fmt.Sprintf("%s signed up", user.Email), &user.ID)
	return session, nil
}

// Login verifies credentials and opens a session. Unknown email and wrong
// password fail identically.
func (s *AuthService) Login(ctx context.Context, email, password string) (Session, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		return Session{}, classify(err)
	}

	if err != nil {
		// Spend the same bcrypt work as a real comparison.
		s.hasher.Verify(password, s.dummy())
	}
	if err != nil || !s.hasher.Verify(password, user.PasswordHash) {
		log.Warn().Str("email", email).Msg("Failed authentication attempt")
		s.record(ctx, models.EventUserLoginFail, models.EventLevelWarn, fmt.Sprintf("failed login for %s", email), nil)
		return Session{}, apperr.New(apperr.CodeAuthenticationInvalid, apperr.MsgInvalidCredentials)
	}

	session, err := s.open(user)
	if err != nil {
		return Session{}, err
	}
	s.record(ctx, models.EventUserLogin, models.EventLevelInfo, fmt.Sprintf("%s logged in", user.Email), &user.ID)
	return session, nil
}

// CurrentUser resolves the user a session token belongs to. A valid token
// whose user no longer exists yields nil.
func (s *AuthService) CurrentUser(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, apperr.New(apperr.CodeAuthenticationMissing, apperr.MsgMissingToken)
	}
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeAuthenticationInvalid, err.Error(), err)
	}

	user, err := s.users.GetUserByID(ctx, claims.UserID)
	if errors.Is(err, ErrUserNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, classify(err)
	}
	return &user, nil
}

// AllUsers returns every user.
func (s *AuthService) AllUsers(ctx context.Context) ([]models.User, error) {
	return s.ListUsers(ctx, models.UserFilter{}, models.Page{})
}

// ListUsers returns the users matching filter.
func (s *AuthService) ListUsers(ctx context.Context, filter models.UserFilter, page models.Page) ([]models.User, error) {
	if page.Skip < 0 || page.First < 0 {
		return nil, apperr.Invalid(apperr.FieldPage, "skip and first must not be negative")
	}
	users, err := s.users.ListUsers(ctx, filter, page)
	if err != nil {
		return nil, classify(err)
	}
	return users, nil
}

// BigRedButton deletes every user and returns how many were removed.
func (s *AuthService) BigRedButton(ctx context.Context) (int64, error) {
	count, err := s.users.DeleteUsers(ctx, models.UserFilter{})
	if err != nil {
		return 0, classify(err)
	}
	log.Warn().Int64("count", count).Msg("All users deleted")
	s.record(ctx, models.EventUserDeleteAll, models.EventLevelWarn, fmt.Sprintf("%d user(s) destroyed", count), nil)
	return count, nil
}

// UpdateUser changes the user selected by lookup. A missing user yields nil.
func (s *AuthService) UpdateUser(ctx context.Context, lookup models.UserLookup, update UserUpdate) (*models.User, error) {
	if err := checkLookup(lookup); err != nil {
		return nil, err
	}
	patch, err := s.patch(update)
	if err != nil {
		return nil, err
	}

	user, err := s.users.UpdateUser(ctx, lookup, patch)
	if errors.Is(err, ErrUserNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, classify(err)
	}
	s.record(ctx, models.EventUserUpdate, models.EventLevelInfo, fmt.Sprintf("%s updated", user.Email), &user.ID)
	return &user, nil
}

// UpdateUsers changes every user matching filter.
func (s *AuthService) UpdateUsers(ctx context.Context, filter models.UserFilter, update UserUpdate) (int64, error) {
	patch, err := s.patch(update)
	if err != nil {
		return 0, err
	}
	count, err := s.users.UpdateUsers(ctx, filter, patch)
	if err != nil {
		return 0, classify(err)
	}
	s.record(ctx, models.EventUserUpdate, models.EventLevelInfo, fmt.Sprintf("%d user(s) updated", count), nil)
	return count, nil
}

// DeleteUser removes the user selected by lookup. A missing user yields nil.
func (s *AuthService) DeleteUser(ctx context.Context, lookup models.UserLookup) (*models.User, error) {
	if err := checkLookup(lookup); err != nil {
		return nil, err
	}
	user, err := s.users.DeleteUser(ctx, lookup)
	if errors.Is(err, ErrUserNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, classify(err)
	}
	s.record(ctx, models.EventUserDelete, models.EventLevelWarn, fmt.Sprintf("%s deleted", user.Email), &user.ID)
	return &user, nil
}

// DeleteUsers removes every user matching filter.
func (s *AuthService) DeleteUsers(ctx context.Context, filter models.UserFilter) (int64, error) {
	count, err := s.users.DeleteUsers(ctx, filter)
	if err != nil {
		return 0, classify(err)
	}
	s.record(ctx, models.EventUserDelete, models.EventLevelWarn, fmt.Sprintf("%d user(s) deleted", count), nil)
	return count, nil
}

// Ping reports whether the credential store is reachable.
func (s *AuthService) Ping(ctx context.Context) error {
	return s.users.Ping(ctx)
}

func (s *AuthService) open(user models.User) (Session, error) {
	token, expiresAt, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to generate JWT")
		return Session{}, apperr.Store(err)
	}
	return Session{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

func (s *AuthService) hashPassword(password string) (string, error) {
	hash, err := s.hasher.Hash(password)
	if errors.Is(err, auth.ErrPasswordTooLong) {
		return "", &apperr.Error{Code: apperr.CodeValidationFailed, Field: apperr.FieldPassword, Message: apperr.MsgPasswordTooLong, Err: err}
	}
	if err != nil {
		return "", apperr.Store(err)
	}
	return hash, nil
}

func (s *AuthService) patch(update UserUpdate) (models.UserPatch, error) {
	patch := models.UserPatch{
		FirstName: update.FirstName,
		LastName:  update.LastName,
		Email:     update.Email,
	}
	if update.Password != nil {
		hash, err := s.hashPassword(*update.Password)
		if err != nil {
			return models.UserPatch{}, err
		}
		patch.PasswordHash = &hash
	}
	return patch, nil
}

func (s *AuthService) dummy() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.hasher.Hash("not-a-real-password")
	})
	return s.dummyHash
}

func (s *AuthService) record(ctx context.Context, eventType, level, message string, userID *string) {
	if s.events == nil {
		return
	}
	if err := s.events.CreateEvent(ctx, eventType, level, message, userID); err != nil {
		log.Error().Err(err).Str("type", eventType).Msg("Failed to record event")
	}
}

func checkLookup(l models.UserLookup) error {
	if (l.ID == "") == (l.Email == "") {
		return apperr.Invalid(apperr.FieldWhere, apperr.MsgUniqueSelectorShape)
	}
	return nil
}

// classify maps store errors onto API error codes.
func classify(err error) error {
	var appErr *apperr.Error
	switch {
	case errors.As(err, &appErr):
		return err
	case errors.Is(err, ErrDuplicateEmail):
		return apperr.Wrap(apperr.CodeConflict, apperr.MsgEmailTaken, err)
	default:
		return apperr.Store(err)
	}
}
