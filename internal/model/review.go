package model

import "time"

type Review struct {
	ID             int64     `db:"id"`
	TitleID        int64     `db:"title_id"`
	AuthorID       int64     `db:"author_id"`
	Text           string    `db:"text"`
	Score          int       `db:"score"`
	PubDate        time.Time `db:"pub_date"`
	AuthorUsername string    `db:"author_username"`
	TitleName      string    `db:"title_name"`
}

type ReviewResponse struct {
	ID      int64     `json:"id"`
	Text    string    `json:"text"`
	Author  string    `json:"author"`
	Score   int       `json:"score"`
	PubDate time.Time `json:"pub_date"`
	Title   string    `json:"title"`
}

func NewReviewResponse(r *Review) ReviewResponse {
	return ReviewResponse{
		ID:      r.ID,
		Text:    r.Text,
		Author:  r.AuthorUsername,
		Score:   r.Score,
		PubDate: r.PubDate,
		Title:   r.TitleName,
	}
}

type ReviewInput struct {
	Text  *string `json:"text"`
	Score *int    `json:"score" validate:"omitempty,gte=0,lte=10"`
}

func (in ReviewInput) Apply(r *Review) {
	if in.Text != nil {
		r.Text = *in.Text
	}
	if in.Score != nil {
		r.Score = *in.Score
	}
}

type Comment struct {
	ID             int64     `db:"id"`
	ReviewID       int64     `db:"review_id"`
	AuthorID       int64     `db:"author_id"`
	Text           string    `db:"text"`
	PubDate        time.Time `db:"pub_date"`
	AuthorUsername string    `db:"author_username"`
	ReviewText     string    `db:"review_text"`
}

type CommentResponse struct {
	ID      int64     `json:"id"`
	Text    string    `json:"text"`
	Author  string    `json:"author"`
	PubDate time.Time `json:"pub_date"`
	Review  string    `json:"review"`
}

func NewCommentResponse(c *Comment) CommentResponse {
	return CommentResponse{
		ID:      c.ID,
		Text:    c.Text,
		Author:  c.AuthorUsername,
		PubDate: c.PubDate,
		Review:  c.ReviewText,
	}
}

type CommentInput struct {
	Text *string `json:"text"`
}
