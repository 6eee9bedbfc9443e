package store

import (
	"context"
	"fmt"
	"time"

	"github.com/BaGreal2/yamdb-server/internal/apperror"
	"github.com/BaGreal2/yamdb-server/internal/model"
)

const userColumns = `SELECT id, username, email, first_name, last_name, bio, role,
	is_superuser, confirmation_code, confirmed_at, created_at`

func (s *Store) ListUsers(ctx context.Context, p model.ListParams) (model.Page[model.User], error) {
	w := &where{}
	if p.Search != "" {
		w.add(`LOWER(username) LIKE ? ESCAPE '\'`, containsPattern(p.Search))
	}
	return page[model.User](ctx, s.db, userColumns, "FROM users", w, "id", p)
}

func (s *Store) getUserBy(ctx context.Context, column string, value any) (*model.User, error) {
	var u model.User
	query := s.db.Rebind(userColumns + " FROM users WHERE " + column + " = ?")
	if err := s.db.GetContext(ctx, &u, query, value); err != nil {
		return nil, notFound(err, "user")
	}
	return &u, nil
}

func (s *Store) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	return s.getUserBy(ctx, "id", id)
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return s.getUserBy(ctx, "username", username)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.getUserBy(ctx, "email", email)
}

func (s *Store) CreateUser(ctx context.Context, u *model.User) (*model.User, error) {
	if u.Role == "" {
		u.Role = model.RoleUser
	}
	u.CreatedAt = time.Now().UTC()
	query := s.db.Rebind(`INSERT INTO users
		(username, email, first_name, last_name, bio, role, is_superuser, confirmation_code, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`)
	err := s.db.QueryRowxContext(ctx, query,
		u.Username, u.Email, u.FirstName, u.LastName, u.Bio, u.Role, u.IsSuperuser, u.ConfirmationCode, u.CreatedAt,
	).Scan(&u.ID)
	if err != nil {
		return nil, mapUserErr(err)
	}
	return u, nil
}

// UpdateUser saves the profile fields. The confirmation code and superuser
// flag have dedicated setters.
func (s *Store) UpdateUser(ctx context.Context, u *model.User) error {
	query := s.db.Rebind(`UPDATE users SET username = ?, email = ?, first_name = ?, last_name = ?, bio = ?, role = ?
		WHERE id = ?`)
	res, err := s.db.ExecContext(ctx, query, u.Username, u.Email, u.FirstName, u.LastName, u.Bio, u.Role, u.ID)
	if err != nil {
		return mapUserErr(err)
	}
	return mustAffect(res, "user")
}

// DeleteUser removes the user together with their reviews and comments.
func (s *Store) DeleteUser(ctx context.Context, username string) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind("DELETE FROM users WHERE username = ?"), username)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return mustAffect(res, "user")
}

// SetConfirmationCode stores the hashed code; nil clears it.
func (s *Store) SetConfirmationCode(ctx context.Context, id int64, hash *string) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind("UPDATE users SET confirmation_code = ? WHERE id = ?"), hash, id)
	if err != nil {
		return fmt.Errorf("set confirmation code: %w", err)
	}
	return mustAffect(res, "user")
}

// MarkConfirmed records a successful code exchange, optionally burning the
// code.
func (s *Store) MarkConfirmed(ctx context.Context, id int64, at time.Time, clearCode bool) error {
	query := "UPDATE users SET confirmed_at = ? WHERE id = ?"
	if clearCode {
		query = "UPDATE users SET confirmed_at = ?, confirmation_code = NULL WHERE id = ?"
	}
	res, err := s.db.ExecContext(ctx, s.db.Rebind(query), at.UTC(), id)
	if err != nil {
		return fmt.Errorf("mark confirmed: %w", err)
	}
	return mustAffect(res, "user")
}

func (s *Store) UsernameTaken(ctx context.Context, username string, exceptID int64) (bool, error) {
	return s.taken(ctx, "username", username, exceptID)
}

func (s *Store) EmailTaken(ctx context.Context, email string, exceptID int64) (bool, error) {
	return s.taken(ctx, "email", email, exceptID)
}

func (s *Store) taken(ctx context.Context, column, value string, exceptID int64) (bool, error) {
	var n int
	query := s.db.Rebind("SELECT COUNT(*) FROM users WHERE " + column + " = ? AND id <> ?")
	if err := s.db.GetContext(ctx, &n, query, value, exceptID); err != nil {
		return false, fmt.Errorf("lookup %s: %w", column, err)
	}
	return n > 0, nil
}

// EnsureSuperuser creates the bootstrap superuser, or promotes the existing
// account with that username.
func (s *Store) EnsureSuperuser(ctx context.Context, username, email string) (*model.User, error) {
	u, err := s.GetUserByUsername(ctx, username)
	if err != nil && !apperror.Is(err, apperror.KindNotFound) {
		return nil, err
	}
	if u == nil {
		return s.CreateUser(ctx, &model.User{
			Username:    username,
			Email:       email,
			Role:        model.RoleAdmin,
			IsSuperuser: true,
		})
	}
	query := s.db.Rebind("UPDATE users SET is_superuser = ?, role = ? WHERE id = ?")
	if _, err := s.db.ExecContext(ctx, query, true, model.RoleAdmin, u.ID); err != nil {
		return nil, fmt.Errorf("promote superuser: %w", err)
	}
	u.IsSuperuser = true
	u.Role = model.RoleAdmin
	return u, nil
}

func mapUserErr(err error) error {
	constraint, _ := uniqueViolation(err)
	switch constraint {
	case "users_email_key", "users.email":
		return apperror.Conflict("email", apperror.CodeDuplicateEmail, "a user with that email already exists")
	case "users_username_key", "users.username":
		return apperror.Conflict("username", apperror.CodeDuplicateUsername, "a user with that username already exists")
	default:
		return fmt.Errorf("save user: %w", err)
	}
}
