package store

import (
	"context"
	"fmt"
	"time"

	"github.com/BaGreal2/yamdb-server/internal/model"
)

const commentColumns = `SELECT c.id, c.review_id, c.author_id, c.text, c.pub_date,
	u.username AS author_username, r.text AS review_text`

const commentFrom = `FROM comments c JOIN users u ON u.id = c.author_id JOIN reviews r ON r.id = c.review_id`

func (s *Store) ListComments(ctx context.Context, reviewID int64, p model.ListParams) (model.Page[model.Comment], error) {
	w := &where{}
	w.add("c.review_id = ?", reviewID)
	return page[model.Comment](ctx, s.db, commentColumns, commentFrom, w, "c.pub_date, c.id", p)
}

func (s *Store) GetComment(ctx context.Context, reviewID, commentID int64) (*model.Comment, error) {
	var c model.Comment
	query := s.db.Rebind(commentColumns + " " + commentFrom + " WHERE c.id = ? AND c.review_id = ?")
	if err := s.db.GetContext(ctx, &c, query, commentID, reviewID); err != nil {
		return nil, notFound(err, "comment")
	}
	return &c, nil
}

func (s *Store) CreateComment(ctx context.Context, c *model.Comment) (*model.Comment, error) {
	c.PubDate = time.Now().UTC()
	query := s.db.Rebind("INSERT INTO comments (review_id, author_id, text, pub_date) VALUES (?, ?, ?, ?) RETURNING id")
	if err := s.db.QueryRowxContext(ctx, query, c.ReviewID, c.AuthorID, c.Text, c.PubDate).Scan(&c.ID); err != nil {
		return nil, fmt.Errorf("insert comment: %w", err)
	}
	return s.GetComment(ctx, c.ReviewID, c.ID)
}

func (s *Store) UpdateComment(ctx context.Context, c *model.Comment) (*model.Comment, error) {
	res, err := s.db.ExecContext(ctx, s.db.Rebind("UPDATE comments SET text = ? WHERE id = ?"), c.Text, c.ID)
	if err != nil {
		return nil, fmt.Errorf("update comment: %w", err)
	}
	if err := mustAffect(res, "comment"); err != nil {
		return nil, err
	}
	return s.GetComment(ctx, c.ReviewID, c.ID)
}

func (s *Store) DeleteComment(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind("DELETE FROM comments WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	return mustAffect(res, "comment")
}
