package store

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/pavelanni/mathpro/internal/model"
)

const userColumns = `id, username, display_name, password_hash, role, grade, active, created_at`

// CreateUser inserts a new user. Staff accounts never carry a grade.
func (s *Store) CreateUser(ctx context.Context, u model.User) (int64, error) {
	if u.Role != model.UserRoleStudent {
		u.Grade = ""
	}
	var id int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO users (username, display_name, password_hash, role, grade, active, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		u.Username, u.DisplayName, u.PasswordHash, string(u.Role), u.Grade, u.Active, time.Now().Unix(),
	).Scan(&id)
	if err != nil {
		slog.Error("failed to create user", "username", u.Username, "error", err)
		return 0, err
	}
	slog.Info("created user", "id", id, "username", u.Username, "role", u.Role, "grade", u.Grade)
	return id, nil
}

// GetUserByUsername returns a user by username, or nil if there is none.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return s.getUser(ctx, `username = $1`, username)
}

// GetUserByID returns a user by ID, or nil if there is none.
func (s *Store) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	return s.getUser(ctx, `id = $1`, id)
}

func (s *Store) getUser(ctx context.Context, where string, arg any) (*model.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

// ListUsers returns staff first, then students by grade and name.
func (s *Store) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users
		ORDER BY CASE role WHEN 'admin' THEN 0 WHEN 'teacher' THEN 1 ELSE 2 END, grade, username`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// ToggleUserActive flips the active flag on a user and returns the new value.
// A missing user yields sql.ErrNoRows.
func (s *Store) ToggleUserActive(ctx context.Context, id int64) (bool, error) {
	var active bool
	err := s.db.QueryRowContext(ctx,
		`UPDATE users SET active = NOT active WHERE id = $1 RETURNING active`, id,
	).Scan(&active)
	return active, err
}

// UserCount returns the total number of users.
func (s *Store) UserCount(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*model.User, error) {
	var u model.User
	var role string
	var created int64
	if err := row.Scan(&u.ID, &u.Username, &u.DisplayName, &u.PasswordHash, &role, &u.Grade, &u.Active, &created); err != nil {
		return nil, err
	}
	u.Role = model.UserRole(role)
	u.CreatedAt = time.Unix(created, 0)
	return &u, nil
}
