package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/goodcontent-auth/internal/database"
	"github.com/isdelr/goodcontent-auth/internal/models"
)

var (
	// ErrUserNotFound is returned when no user matches a lookup.
	ErrUserNotFound = errors.New("user not found")
	// ErrDuplicateEmail is returned when a write would repeat an email.
	ErrDuplicateEmail = errors.New("email already registered")
)

const userColumns = "id, first_name, last_name, email, password, created_at, updated_at"

// UserServiceProvider defines the interface for the user credential store.
type UserServiceProvider interface {
	CreateUser(ctx context.Context, user models.User) (models.User, error)
	GetUserByID(ctx context.Context, id string) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	ListUsers(ctx context.Context, filter models.UserFilter, page models.Page) ([]models.User, error)
	UpdateUser(ctx context.Context, lookup models.UserLookup, patch models.UserPatch) (models.User, error)
	UpdateUsers(ctx context.Context, filter models.UserFilter, patch models.UserPatch) (int64, error)
	DeleteUser(ctx context.Context, lookup models.UserLookup) (models.User, error)
	DeleteUsers(ctx context.Context, filter models.UserFilter) (int64, error)
	Ping(ctx context.Context) error
}

// UserService stores user records in a SQL database.
type UserService struct {
	db      *sql.DB
	dialect database.Dialect
	now     func() time.Time
}

// NewUserService creates a new UserService.
func NewUserService(db *sql.DB, dialect database.Dialect) *UserService {
	return &UserService{db: db, dialect: dialect, now: time.Now}
}

// Ping checks that the database is reachable.
func (s *UserService) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CreateUser inserts a new user. ID and timestamps are assigned here;
// user.PasswordHash must already be hashed.
func (s *UserService) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	now := s.now().UTC()
	user.ID = uuid.New().String()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, s.dialect.Rebind(
		"INSERT INTO users ("+userColumns+") VALUES (?, ?, ?, ?, ?, ?, ?)"),
		user.ID, user.FirstName, user.LastName, user.Email, user.PasswordHash, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return models.User{}, fmt.Errorf("%w: %v", ErrDuplicateEmail, err)
		}
		return models.User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// GetUserByID retrieves a single user by their ID.
func (s *UserService) GetUserByID(ctx context.Context, id string) (models.User, error) {
	return s.getOne(ctx, s.db, "id = ?", id)
}

// GetUserByEmail retrieves a single user by their email, including the password hash.
func (s *UserService) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	return s.getOne(ctx, s.db, "email = ?", email)
}

// ListUsers returns the users matching filter, oldest first.
func (s *UserService) ListUsers(ctx context.Context, filter models.UserFilter, page models.Page) ([]models.User, error) {
	where, args := filterClause(filter)
	query := "SELECT " + userColumns + " FROM users" + where + " ORDER BY created_at, id"

	switch {
	case page.First > 0:
		query += " LIMIT ?"
		args = append(args, page.First)
		if page.Skip > 0 {
			query += " OFFSET ?"
			args = append(args, page.Skip)
		}
	case page.Skip > 0:
		if s.dialect == database.SQLite {
			query += " LIMIT -1"
		}
		query += " OFFSET ?"
		args = append(args, page.Skip)
	}

	rows, err := s.db.QueryContext(ctx, s.dialect.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("list users: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// UpdateUser applies patch to the user selected by lookup and returns the
// updated record.
func (s *UserService) UpdateUser(ctx context.Context, lookup models.UserLookup, patch models.UserPatch) (models.User, error) {
	cond, arg := lookupClause(lookup)

	var updated models.User
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		current, err := s.getOne(ctx, tx, cond, arg)
		if err != nil {
			return err
		}
		set, args := s.setClause(patch)
		args = append(args, current.ID)
		if _, err := tx.ExecContext(ctx, s.dialect.Rebind("UPDATE users SET "+set+" WHERE id = ?"), args...); err != nil {
			return err
		}
		updated, err = s.getOne(ctx, tx, "id = ?", current.ID)
		return err
	})
	if err != nil {
		return models.User{}, s.writeErr("update user", err)
	}
	return updated, nil
}

// UpdateUsers applies patch to every user matching filter and returns the
// number of rows changed.
func (s *UserService) UpdateUsers(ctx context.Context, filter models.UserFilter, patch models.UserPatch) (int64, error) {
	set, args := s.setClause(patch)
	where, whereArgs := filterClause(filter)
	args = append(args, whereArgs...)

	res, err := s.db.ExecContext(ctx, s.dialect.Rebind("UPDATE users SET "+set+where), args...)
	if err != nil {
		return 0, s.writeErr("update users", err)
	}
	return res.RowsAffected()
}

// DeleteUser removes the user selected by lookup and returns it.
func (s *UserService) DeleteUser(ctx context.Context, lookup models.UserLookup) (models.User, error) {
	cond, arg := lookupClause(lookup)

	var deleted models.User
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		deleted, err = s.getOne(ctx, tx, cond, arg)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, s.dialect.Rebind("DELETE FROM users WHERE id = ?"), deleted.ID)
		return err
	})
	if err != nil {
		return models.User{}, s.writeErr("delete user", err)
	}
	return deleted, nil
}

// DeleteUsers removes every user matching filter. The zero filter deletes
// all users.
func (s *UserService) DeleteUsers(ctx context.Context, filter models.UserFilter) (int64, error) {
	where, args := filterClause(filter)
	res, err := s.db.ExecContext(ctx, s.dialect.Rebind("DELETE FROM users"+where), args...)
	if err != nil {
		return 0, fmt.Errorf("delete users: %w", err)
	}
	return res.RowsAffected()
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func (s *UserService) getOne(ctx context.Context, q queryer, cond string, arg interface{}) (models.User, error) {
	row := q.QueryRowContext(ctx, s.dialect.Rebind("SELECT "+userColumns+" FROM users WHERE "+cond), arg)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

func (s *UserService) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (s *UserService) writeErr(op string, err error) error {
	switch {
	case errors.Is(err, ErrUserNotFound):
		return err
	case database.IsUniqueViolation(err):
		return fmt.Errorf("%w: %v", ErrDuplicateEmail, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

// setClause always bumps updated_at, so an empty patch still yields valid SQL.
func (s *UserService) setClause(patch models.UserPatch) (string, []interface{}) {
	var sets []string
	var args []interface{}
	add := func(col string, v *string) {
		if v != nil {
			sets = append(sets, col+" = ?")
			args = append(args, *v)
		}
	}
	add("first_name", patch.FirstName)
	add("last_name", patch.LastName)
	add("email", patch.Email)
	add("password", patch.PasswordHash)

	sets = append(sets, "updated_at = ?")
	args = append(args, s.now().UTC())
	return strings.Join(sets, ", "), args
}

func filterClause(f models.UserFilter) (string, []interface{}) {
	var conds []string
	var args []interface{}
	add := func(col string, v *string) {
		if v != nil {
			conds = append(conds, col+" = ?")
			args = append(args, *v)
		}
	}
	add("id", f.ID)
	add("email", f.Email)
	add("first_name", f.FirstName)
	add("last_name", f.LastName)

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func lookupClause(l models.UserLookup) (string, interface{}) {
	if l.ID != "" {
		return "id = ?", l.ID
	}
	return "email = ?", l.Email
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row scanner) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}
