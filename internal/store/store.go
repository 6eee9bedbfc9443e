// Package store persists the catalogue, reviews and users through sqlx. All
// queries are written with '?' placeholders and rebound for the driver in
// use, so the same code serves SQLite and PostgreSQL.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"github.com/BaGreal2/yamdb-server/internal/apperror"
	"github.com/BaGreal2/yamdb-server/internal/model"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

type Store struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func (s *Store) DB() *sqlx.DB { return s.db }

func (s *Store) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logrus.WithError(rbErr).Warn("rollback failed")
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// uniqueViolation reports whether err is a UNIQUE constraint failure and
// names what was violated: the Postgres constraint name, or the
// "table.column" list SQLite reports.
func uniqueViolation(err error) (string, bool) {
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) && liteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		msg := liteErr.Error()
		if i := strings.LastIndex(msg, "failed: "); i >= 0 {
			msg = msg[i+len("failed: "):]
		}
		return msg, true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return pqErr.Constraint, true
	}
	return "", false
}

// notFound maps sql.ErrNoRows to a 404 for resource.
func notFound(err error, resource string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return apperror.NotFound(resource)
	}
	return err
}

func mustAffect(res sql.Result, resource string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperror.NotFound(resource)
	}
	return nil
}

// normalize clamps list parameters to sane bounds.
func normalize(p model.ListParams) model.ListParams {
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds a case-insensitive substring pattern for
// "LOWER(col) LIKE ? ESCAPE '\'".
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
}

type where struct {
	clauses []string
	args    []any
}

func (w *where) add(clause string, args ...any) {
	w.clauses = append(w.clauses, clause)
	w.args = append(w.args, args...)
}

func (w *where) String() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

// page runs a count and a windowed select sharing the same FROM/WHERE tail.
func page[T any](ctx context.Context, db *sqlx.DB, selectPart, fromPart string, w *where, orderBy string, p model.ListParams) (model.Page[T], error) {
	p = normalize(p)
	out := model.Page[T]{Results: []T{}}

	countQuery := db.Rebind("SELECT COUNT(*) " + fromPart + w.String())
	if err := db.GetContext(ctx, &out.Count, countQuery, w.args...); err != nil {
		return out, fmt.Errorf("count: %w", err)
	}

	query := db.Rebind(selectPart + " " + fromPart + w.String() + " ORDER BY " + orderBy + " LIMIT ? OFFSET ?")
	args := append(append([]any{}, w.args...), p.Limit, p.Offset)
	if err := db.SelectContext(ctx, &out.Results, query, args...); err != nil {
		return out, fmt.Errorf("list: %w", err)
	}
	return out, nil
}
