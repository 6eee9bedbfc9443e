package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/BaGreal2/yamdb-server/internal/apperror"
	"github.com/BaGreal2/yamdb-server/internal/model"
)

// Categories and genres share a table layout, so one set of queries serves
// both, parameterised by table.
type taxonomy struct {
	table    string
	resource string
}

var (
	categories = taxonomy{table: "categories", resource: "category"}
	genres     = taxonomy{table: "genres", resource: "genre"}
)

func (s *Store) listTaxonomy(ctx context.Context, t taxonomy, p model.ListParams) (model.Page[model.Category], error) {
	w := &where{}
	if p.Search != "" {
		w.add(`LOWER(name) LIKE ? ESCAPE '\'`, containsPattern(p.Search))
	}
	return page[model.Category](ctx, s.db, "SELECT id, name, slug", "FROM "+t.table, w, "name, id", p)
}

func (s *Store) getTaxonomy(ctx context.Context, t taxonomy, slug string) (*model.Category, error) {
	var c model.Category
	query := s.db.Rebind("SELECT id, name, slug FROM " + t.table + " WHERE slug = ?")
	if err := s.db.GetContext(ctx, &c, query, slug); err != nil {
		return nil, notFound(err, t.resource)
	}
	return &c, nil
}

func (s *Store) createTaxonomy(ctx context.Context, t taxonomy, c *model.Category) (*model.Category, error) {
	query := s.db.Rebind("INSERT INTO " + t.table + " (name, slug) VALUES (?, ?) RETURNING id")
	if err := s.db.QueryRowxContext(ctx, query, c.Name, c.Slug).Scan(&c.ID); err != nil {
		return nil, t.mapErr(err)
	}
	return c, nil
}

func (s *Store) updateTaxonomy(ctx context.Context, t taxonomy, c *model.Category) error {
	query := s.db.Rebind("UPDATE " + t.table + " SET name = ?, slug = ? WHERE id = ?")
	res, err := s.db.ExecContext(ctx, query, c.Name, c.Slug, c.ID)
	if err != nil {
		return t.mapErr(err)
	}
	return mustAffect(res, t.resource)
}

func (s *Store) deleteTaxonomy(ctx context.Context, t taxonomy, slug string) error {
	query := s.db.Rebind("DELETE FROM " + t.table + " WHERE slug = ?")
	res, err := s.db.ExecContext(ctx, query, slug)
	if err != nil {
		return fmt.Errorf("delete %s: %w", t.resource, err)
	}
	return mustAffect(res, t.resource)
}

func (t taxonomy) mapErr(err error) error {
	if _, ok := uniqueViolation(err); ok {
		return apperror.Conflict("slug", apperror.CodeDuplicateSlug, fmt.Sprintf("%s with this slug already exists", t.resource))
	}
	return fmt.Errorf("save %s: %w", t.resource, err)
}

func (s *Store) ListCategories(ctx context.Context, p model.ListParams) (model.Page[model.Category], error) {
	return s.listTaxonomy(ctx, categories, p)
}

func (s *Store) GetCategory(ctx context.Context, slug string) (*model.Category, error) {
	return s.getTaxonomy(ctx, categories, slug)
}

func (s *Store) CreateCategory(ctx context.Context, c *model.Category) (*model.Category, error) {
	return s.createTaxonomy(ctx, categories, c)
}

func (s *Store) UpdateCategory(ctx context.Context, c *model.Category) error {
	return s.updateTaxonomy(ctx, categories, c)
}

// DeleteCategory leaves referencing titles in place with no category.
func (s *Store) DeleteCategory(ctx context.Context, slug string) error {
	return s.deleteTaxonomy(ctx, categories, slug)
}

func (s *Store) ListGenres(ctx context.Context, p model.ListParams) (model.Page[model.Genre], error) {
	return s.listTaxonomy(ctx, genres, p)
}

func (s *Store) GetGenre(ctx context.Context, slug string) (*model.Genre, error) {
	return s.getTaxonomy(ctx, genres, slug)
}

func (s *Store) CreateGenre(ctx context.Context, g *model.Genre) (*model.Genre, error) {
	return s.createTaxonomy(ctx, genres, g)
}

func (s *Store) UpdateGenre(ctx context.Context, g *model.Genre) error {
	return s.updateTaxonomy(ctx, genres, g)
}

func (s *Store) DeleteGenre(ctx context.Context, slug string) error {
	return s.deleteTaxonomy(ctx, genres, slug)
}

func (s *Store) CategoryExists(ctx context.Context, slug string) (bool, error) {
	var n int
	query := s.db.Rebind("SELECT COUNT(*) FROM categories WHERE slug = ?")
	if err := s.db.GetContext(ctx, &n, query, slug); err != nil {
		return false, fmt.Errorf("lookup category: %w", err)
	}
	return n > 0, nil
}

// KnownGenres returns the subset of slugs that name existing genres.
func (s *Store) KnownGenres(ctx context.Context, slugs []string) (map[string]bool, error) {
	known := make(map[string]bool, len(slugs))
	if len(slugs) == 0 {
		return known, nil
	}
	query, args, err := sqlx.In("SELECT slug FROM genres WHERE slug IN (?)", slugs)
	if err != nil {
		return nil, err
	}
	var found []string
	if err := s.db.SelectContext(ctx, &found, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("lookup genres: %w", err)
	}
	for _, slug := range found {
		known[slug] = true
	}
	return known, nil
}
