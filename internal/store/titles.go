package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/BaGreal2/yamdb-server/internal/apperror"
	"github.com/BaGreal2/yamdb-server/internal/model"
)

const titleColumns = `SELECT t.id, t.name, t.year, t.description, t.category_id,
	c.name AS category_name, c.slug AS category_slug,
	(SELECT AVG(r.score) FROM reviews r WHERE r.title_id = t.id) AS rating`

const titleFrom = `FROM titles t LEFT JOIN categories c ON c.id = t.category_id`

type titleRow struct {
	model.Title
	CategoryName sql.NullString  `db:"category_name"`
	CategorySlug sql.NullString  `db:"category_slug"`
	Rating       sql.NullFloat64 `db:"rating"`
}

func (r titleRow) view() model.TitleView {
	v := model.TitleView{Title: r.Title}
	if r.CategoryID != nil && r.CategorySlug.Valid {
		v.Category = &model.Category{ID: *r.CategoryID, Name: r.CategoryName.String, Slug: r.CategorySlug.String}
	}
	if r.Rating.Valid {
		rating := r.Rating.Float64
		v.Rating = &rating
	}
	return v
}

// ListTitles returns titles ordered by name, filtered by partial name,
// exact year, category slug and genre slug.
func (s *Store) ListTitles(ctx context.Context, f model.TitleFilter, p model.ListParams) (model.Page[model.TitleView], error) {
	w := &where{}
	if f.Name != "" {
		w.add(`LOWER(t.name) LIKE ? ESCAPE '\'`, containsPattern(f.Name))
	}
	if f.Year != nil {
		w.add("t.year = ?", *f.Year)
	}
	if f.Category != "" {
		w.add("c.slug = ?", f.Category)
	}
	if f.Genre != "" {
		w.add(`EXISTS (SELECT 1 FROM genre_title gt JOIN genres g ON g.id = gt.genre_id
			WHERE gt.title_id = t.id AND g.slug = ?)`, f.Genre)
	}

	rows, err := page[titleRow](ctx, s.db, titleColumns, titleFrom, w, "t.name, t.id", p)
	if err != nil {
		return model.Page[model.TitleView]{}, err
	}
	out := model.Page[model.TitleView]{Count: rows.Count, Results: make([]model.TitleView, 0, len(rows.Results))}
	for _, r := range rows.Results {
		out.Results = append(out.Results, r.view())
	}
	if err := s.attachGenres(ctx, out.Results); err != nil {
		return model.Page[model.TitleView]{}, err
	}
	return out, nil
}

func (s *Store) GetTitle(ctx context.Context, id int64) (*model.TitleView, error) {
	var row titleRow
	query := s.db.Rebind(titleColumns + " " + titleFrom + " WHERE t.id = ?")
	if err := s.db.GetContext(ctx, &row, query, id); err != nil {
		return nil, notFound(err, "title")
	}
	views := []model.TitleView{row.view()}
	if err := s.attachGenres(ctx, views); err != nil {
		return nil, err
	}
	return &views[0], nil
}

// TitleExists is a cheap existence check for nested review routes.
func (s *Store) TitleExists(ctx context.Context, id int64) error {
	var n int
	query := s.db.Rebind("SELECT COUNT(*) FROM titles WHERE id = ?")
	if err := s.db.GetContext(ctx, &n, query, id); err != nil {
		return fmt.Errorf("lookup title: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("title")
	}
	return nil
}

func (s *Store) attachGenres(ctx context.Context, views []model.TitleView) error {
	if len(views) == 0 {
		return nil
	}
	ids := make([]int64, len(views))
	index := make(map[int64][]int, len(views))
	for i, v := range views {
		ids[i] = v.ID
		index[v.ID] = append(index[v.ID], i)
		views[i].Genres = []model.Genre{}
	}

	query, args, err := sqlx.In(`SELECT gt.title_id, g.id, g.name, g.slug
		FROM genre_title gt JOIN genres g ON g.id = gt.genre_id
		WHERE gt.title_id IN (?) ORDER BY g.name, g.id`, ids)
	if err != nil {
		return err
	}
	var rows []struct {
		TitleID int64 `db:"title_id"`
		model.Genre
	}
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("load genres: %w", err)
	}
	for _, r := range rows {
		for _, i := range index[r.TitleID] {
			views[i].Genres = append(views[i].Genres, r.Genre)
		}
	}
	return nil
}

// CreateTitle inserts a title with its genre links in one transaction.
func (s *Store) CreateTitle(ctx context.Context, in model.TitleInput) (*model.TitleView, error) {
	var id int64
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		t := model.Title{}
		applyTitle(&t, in)
		if in.Category != nil {
			categoryID, err := resolveCategory(ctx, tx, *in.Category)
			if err != nil {
				return err
			}
			t.CategoryID = categoryID
		}
		query := tx.Rebind("INSERT INTO titles (name, year, description, category_id) VALUES (?, ?, ?, ?) RETURNING id")
		if err := tx.QueryRowxContext(ctx, query, t.Name, t.Year, t.Description, t.CategoryID).Scan(&id); err != nil {
			return fmt.Errorf("insert title: %w", err)
		}
		if in.Genre != nil {
			return linkGenres(ctx, tx, id, *in.Genre)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetTitle(ctx, id)
}

// UpdateTitle applies the non-nil fields of in. A non-nil genre list
// replaces the links; an empty category slug clears the category.
func (s *Store) UpdateTitle(ctx context.Context, id int64, in model.TitleInput) (*model.TitleView, error) {
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		var t model.Title
		query := tx.Rebind("SELECT id, name, year, description, category_id FROM titles WHERE id = ?")
		if err := tx.GetContext(ctx, &t, query, id); err != nil {
			return notFound(err, "title")
		}
		applyTitle(&t, in)
		if in.Category != nil {
			categoryID, err := resolveCategory(ctx, tx, *in.Category)
			if err != nil {
				return err
			}
			t.CategoryID = categoryID
		}
		query = tx.Rebind("UPDATE titles SET name = ?, year = ?, description = ?, category_id = ? WHERE id = ?")
		if _, err := tx.ExecContext(ctx, query, t.Name, t.Year, t.Description, t.CategoryID, id); err != nil {
			return fmt.Errorf("update title: %w", err)
		}
		if in.Genre != nil {
			if _, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM genre_title WHERE title_id = ?"), id); err != nil {
				return fmt.Errorf("unlink genres: %w", err)
			}
			return linkGenres(ctx, tx, id, *in.Genre)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetTitle(ctx, id)
}

// DeleteTitle removes the title; its reviews, their comments and its genre
// links go with it.
func (s *Store) DeleteTitle(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind("DELETE FROM titles WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("delete title: %w", err)
	}
	return mustAffect(res, "title")
}

func applyTitle(t *model.Title, in model.TitleInput) {
	if in.Name != nil {
		t.Name = *in.Name
	}
	if in.Year != nil {
		t.Year = *in.Year
	}
	if in.Description != nil {
		t.Description = *in.Description
	}
}

func resolveCategory(ctx context.Context, tx *sqlx.Tx, slug string) (*int64, error) {
	if slug == "" {
		return nil, nil
	}
	var id int64
	if err := tx.GetContext(ctx, &id, tx.Rebind("SELECT id FROM categories WHERE slug = ?"), slug); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.Validation(apperror.FieldError{
				Field: "category", Code: apperror.CodeInvalidCategory, Message: "unknown category: " + slug,
			})
		}
		return nil, fmt.Errorf("lookup category: %w", err)
	}
	return &id, nil
}

func linkGenres(ctx context.Context, tx *sqlx.Tx, titleID int64, slugs []string) error {
	if len(slugs) == 0 {
		return nil
	}
	unique := make([]string, 0, len(slugs))
	seen := make(map[string]bool, len(slugs))
	for _, slug := range slugs {
		if !seen[slug] {
			seen[slug] = true
			unique = append(unique, slug)
		}
	}
	query, args, err := sqlx.In("INSERT INTO genre_title (genre_id, title_id) SELECT id, CAST(? AS BIGINT) FROM genres WHERE slug IN (?)", titleID, unique)
	if err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, tx.Rebind(query), args...)
	if err != nil {
		return fmt.Errorf("link genres: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && int(n) != len(unique) {
		return apperror.Validation(apperror.FieldError{
			Field: "genre", Code: apperror.CodeInvalidGenre, Message: "one or more genres do not exist",
		})
	}
	return nil
}
