package model

// Category and Genre share a shape: a display name and a unique slug.
type Category struct {
	ID   int64  `db:"id" json:"-"`
	Name string `db:"name" json:"name"`
	Slug string `db:"slug" json:"slug"`
}

type Genre = Category

type CategoryInput struct {
	Name *string `json:"name" validate:"omitempty,max=256"`
	Slug *string `json:"slug" validate:"omitempty,max=50,slug"`
}

func (in CategoryInput) Apply(c *Category) {
	if in.Name != nil {
		c.Name = *in.Name
	}
	if in.Slug != nil {
		c.Slug = *in.Slug
	}
}

type Title struct {
	ID          int64  `db:"id"`
	Name        string `db:"name"`
	Year        int    `db:"year"`
	Description string `db:"description"`
	CategoryID  *int64 `db:"category_id"`
}

// TitleView is a title with its resolved relations and computed rating.
type TitleView struct {
	Title
	Category *Category
	Genres   []Genre
	Rating   *float64
}

type TitleResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Year        int       `json:"year"`
	Rating      *float64  `json:"rating"`
	Description string    `json:"description"`
	Genre       []Genre   `json:"genre"`
	Category    *Category `json:"category"`
}

func NewTitleResponse(v *TitleView) TitleResponse {
	genres := v.Genres
	if genres == nil {
		genres = []Genre{}
	}
	return TitleResponse{
		ID:          v.ID,
		Name:        v.Name,
		Year:        v.Year,
		Rating:      v.Rating,
		Description: v.Description,
		Genre:       genres,
		Category:    v.Category,
	}
}

// TitleInput references genres and the category by slug.
type TitleInput struct {
	Name        *string   `json:"name" validate:"omitempty,max=256"`
	Year        *int      `json:"year"`
	Description *string   `json:"description"`
	Genre       *[]string `json:"genre"`
	Category    *string   `json:"category"`
}

type TitleFilter struct {
	Name     string
	Year     *int
	Category string
	Genre    string
}

type Page[T any] struct {
	Count   int `json:"count"`
	Results []T `json:"results"`
}

type ListParams struct {
	Limit  int
	Offset int
	Search string
}
