package store

import (
	"context"
	"fmt"
	"time"

	"github.com/BaGreal2/yamdb-server/internal/apperror"
	"github.com/BaGreal2/yamdb-server/internal/model"
)

const reviewColumns = `SELECT r.id, r.title_id, r.author_id, r.text, r.score, r.pub_date,
	u.username AS author_username, t.name AS title_name`

const reviewFrom = `FROM reviews r JOIN users u ON u.id = r.author_id JOIN titles t ON t.id = r.title_id`

func (s *Store) ListReviews(ctx context.Context, titleID int64, p model.ListParams) (model.Page[model.Review], error) {
	w := &where{}
	w.add("r.title_id = ?", titleID)
	return page[model.Review](ctx, s.db, reviewColumns, reviewFrom, w, "r.pub_date, r.id", p)
}

// GetReview loads a review that must belong to titleID.
func (s *Store) GetReview(ctx context.Context, titleID, reviewID int64) (*model.Review, error) {
	var r model.Review
	query := s.db.Rebind(reviewColumns + " " + reviewFrom + " WHERE r.id = ? AND r.title_id = ?")
	if err := s.db.GetContext(ctx, &r, query, reviewID, titleID); err != nil {
		return nil, notFound(err, "review")
	}
	return &r, nil
}

// CreateReview relies on the (title_id, author_id) constraint to reject a
// concurrent duplicate that slipped past validation.
func (s *Store) CreateReview(ctx context.Context, r *model.Review) (*model.Review, error) {
	r.PubDate = time.Now().UTC()
	query := s.db.Rebind("INSERT INTO reviews (title_id, author_id, text, score, pub_date) VALUES (?, ?, ?, ?, ?) RETURNING id")
	if err := s.db.QueryRowxContext(ctx, query, r.TitleID, r.AuthorID, r.Text, r.Score, r.PubDate).Scan(&r.ID); err != nil {
		if _, ok := uniqueViolation(err); ok {
			return nil, apperror.Conflict("non_field_errors", apperror.CodeDuplicateReview, "you have already reviewed this title")
		}
		return nil, fmt.Errorf("insert review: %w", err)
	}
	return s.GetReview(ctx, r.TitleID, r.ID)
}

func (s *Store) UpdateReview(ctx context.Context, r *model.Review) (*model.Review, error) {
	query := s.db.Rebind("UPDATE reviews SET text = ?, score = ? WHERE id = ?")
	res, err := s.db.ExecContext(ctx, query, r.Text, r.Score, r.ID)
	if err != nil {
		return nil, fmt.Errorf("update review: %w", err)
	}
	if err := mustAffect(res, "review"); err != nil {
		return nil, err
	}
	return s.GetReview(ctx, r.TitleID, r.ID)
}

// DeleteReview also removes the review's comments.
func (s *Store) DeleteReview(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind("DELETE FROM reviews WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	return mustAffect(res, "review")
}

func (s *Store) ReviewExists(ctx context.Context, titleID, authorID int64) (bool, error) {
	var n int
	query := s.db.Rebind("SELECT COUNT(*) FROM reviews WHERE title_id = ? AND author_id = ?")
	if err := s.db.GetContext(ctx, &n, query, titleID, authorID); err != nil {
		return false, fmt.Errorf("lookup review: %w", err)
	}
	return n > 0, nil
}
