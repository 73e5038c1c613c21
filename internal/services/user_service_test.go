package services

import (
	"context"
	"testing"

	"github.com/isdelr/goodcontent-auth/internal/database"
	"github.com/isdelr/goodcontent-auth/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestUserService(t *testing.T) *UserService {
	t.Helper()
	svc := NewUserService(newTestDB(t), database.SQLite)
	svc.now = tickingClock()
	return svc
}

func seedUsers(t *testing.T, svc *UserService, emails ...string) []models.User {
	t.Helper()
	var out []models.User
	for _, email := range emails {
		u, err := svc.CreateUser(context.Background(), models.User{
			Email:        email,
			FirstName:    "First",
			LastName:     "Last",
			PasswordHash: "hash",
		})
		require.NoError(t, err)
		out = append(out, u)
	}
	return out
}

func TestUserService_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	svc := newTestUserService(t)

	created := seedUsers(t, svc, "ada@example.com")[0]
	assert.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())
	assert.Equal(t, created.CreatedAt, created.UpdatedAt)

	byID, err := svc.GetUserByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", byID.Email)
	assert.Equal(t, "hash", byID.PasswordHash)
	assert.True(t, created.CreatedAt.Equal(byID.CreatedAt))

	byEmail, err := svc.GetUserByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)

	_, err = svc.GetUserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserService_CreateDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	svc := newTestUserService(t)
	seedUsers(t, svc, "ada@example.com")

	_, err := svc.CreateUser(ctx, models.User{Email: "ada@example.com", PasswordHash: "other"})
	assert.ErrorIs(t, err, ErrDuplicateEmail)

	users, err := svc.ListUsers(ctx, models.UserFilter{}, models.Page{})
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestUserService_ListUsers(t *testing.T) {
	ctx := context.Background()
	svc := newTestUserService(t)
	seeded := seedUsers(t, svc, "a@example.com", "b@example.com", "c@example.com", "d@example.com")

	tests := []struct {
		name   string
		filter models.UserFilter
		page   models.Page
		want   []string
	}{
		{name: "all", want: []string{"a@example.com", "b@example.com", "c@example.com", "d@example.com"}},
		{name: "first", page: models.Page{First: 2}, want: []string{"a@example.com", "b@example.com"}},
		{name: "skip", page: models.Page{Skip: 3}, want: []string{"d@example.com"}},
		{name: "skip and first", page: models.Page{Skip: 1, First: 2}, want: []string{"b@example.com", "c@example.com"}},
		{name: "by email", filter: models.UserFilter{Email: strPtr("c@example.com")}, want: []string{"c@example.com"}},
		{name: "by id", filter: models.UserFilter{ID: strPtr(seeded[1].ID)}, want: []string{"b@example.com"}},
		{name: "no match", filter: models.UserFilter{FirstName: strPtr("Nobody")}, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users, err := svc.ListUsers(ctx, tt.filter, tt.page)
			require.NoError(t, err)
			got := []string{}
			for _, u := range users {
				got = append(got, u.Email)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUserService_UpdateUser(t *testing.T) {
	ctx := context.Background()
	svc := newTestUserService(t)
	users := seedUsers(t, svc, "ada@example.com", "bob@example.com")

	updated, err := svc.UpdateUser(ctx, models.UserLookup{Email: "ada@example.com"}, models.UserPatch{FirstName: strPtr("Ada")})
	require.NoError(t, err)
	assert.Equal(t, users[0].ID, updated.ID)
	assert.Equal(t, "Ada", updated.FirstName)
	assert.Equal(t, "Last", updated.LastName)
	assert.True(t, updated.UpdatedAt.After(users[0].UpdatedAt))

	_, err = svc.UpdateUser(ctx, models.UserLookup{ID: "missing"}, models.UserPatch{FirstName: strPtr("x")})
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = svc.UpdateUser(ctx, models.UserLookup{ID: users[0].ID}, models.UserPatch{Email: strPtr("bob@example.com")})
	assert.ErrorIs(t, err, ErrDuplicateEmail)

	still, err := svc.GetUserByID(ctx, users[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", still.Email)
}

func TestUserService_UpdateUsers(t *testing.T) {
	ctx := context.Background()
	svc := newTestUserService(t)
	seedUsers(t, svc, "a@example.com", "b@example.com", "c@example.com")

	count, err := svc.UpdateUsers(ctx, models.UserFilter{}, models.UserPatch{LastName: strPtr("Smith")})
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)

	smiths, err := svc.ListUsers(ctx, models.UserFilter{LastName: strPtr("Smith")}, models.Page{})
	require.NoError(t, err)
	assert.Len(t, smiths, 3)

	count, err = svc.UpdateUsers(ctx, models.UserFilter{Email: strPtr("none@example.com")}, models.UserPatch{LastName: strPtr("x")})
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)
}

func TestUserService_Delete(t *testing.T) {
	ctx := context.Background()
	svc := newTestUserService(t)
	users := seedUsers(t, svc, "a@example.com", "b@example.com", "c@example.com")

	deleted, err := svc.DeleteUser(ctx, models.UserLookup{ID: users[0].ID})
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", deleted.Email)

	_, err = svc.DeleteUser(ctx, models.UserLookup{ID: users[0].ID})
	assert.ErrorIs(t, err, ErrUserNotFound)

	count, err := svc.DeleteUsers(ctx, models.UserFilter{Email: strPtr("b@example.com")})
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	count, err = svc.DeleteUsers(ctx, models.UserFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	count, err = svc.DeleteUsers(ctx, models.UserFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)
}
