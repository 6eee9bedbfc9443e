package validation

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/BaGreal2/yamdb-server/internal/apperror"
	"github.com/BaGreal2/yamdb-server/internal/model"
)

// Catalog answers the existence questions the object-level rules need.
type Catalog interface {
	KnownGenres(ctx context.Context, slugs []string) (map[string]bool, error)
	CategoryExists(ctx context.Context, slug string) (bool, error)
	ReviewExists(ctx context.Context, titleID, authorID int64) (bool, error)
	UsernameTaken(ctx context.Context, username string, exceptID int64) (bool, error)
	EmailTaken(ctx context.Context, email string, exceptID int64) (bool, error)
}

// Validator composes the rules per payload. Presence depends on create vs
// update and is checked here; field shape comes from the `validate` tags.
// Lookup failures are returned as plain errors, rule failures as a single
// *apperror.Error.
type Validator struct {
	catalog Catalog
	shape   *validator.Validate
	now     func() time.Time
}

func New(catalog Catalog) *Validator {
	return &Validator{catalog: catalog, shape: newShapeValidator(), now: time.Now}
}

// WithClock replaces the clock used by the year rule.
func (v *Validator) WithClock(now func() time.Time) *Validator {
	return &Validator{catalog: v.catalog, shape: v.shape, now: now}
}

func (v *Validator) Category(in model.CategoryInput, partial bool) error {
	var c Collector
	if !partial || in.Name != nil {
		c.Check(NotBlank("name", in.Name))
	}
	if !partial || in.Slug != nil {
		c.Check(NotBlank("slug", in.Slug))
	}
	if err := v.checkShape(&c, in); err != nil {
		return err
	}
	return c.Err()
}

// Title validates a create (partial=false) or partial update payload. The
// year rule reads the clock on every call.
func (v *Validator) Title(ctx context.Context, in model.TitleInput, partial bool) error {
	var c Collector
	if !partial || in.Name != nil {
		c.Check(NotBlank("name", in.Name))
	}
	if err := v.checkShape(&c, in); err != nil {
		return err
	}
	if !partial || in.Year != nil {
		if c.Check(Required("year", in.Year != nil)) {
			c.Check(Year(*in.Year, v.now()))
		}
	}
	if in.Genre != nil && len(*in.Genre) > 0 {
		known, err := v.catalog.KnownGenres(ctx, *in.Genre)
		if err != nil {
			return err
		}
		c.Check(Genres(*in.Genre, known))
	}
	if in.Category != nil && *in.Category != "" {
		ok, err := v.catalog.CategoryExists(ctx, *in.Category)
		if err != nil {
			return err
		}
		c.Check(Category(*in.Category, ok))
	}
	return c.Err()
}

func (v *Validator) Review(ctx context.Context, titleID, authorID int64, in model.ReviewInput, creating bool) error {
	var c Collector
	if creating || in.Text != nil {
		c.Check(NotBlank("text", in.Text))
	}
	if creating || in.Score != nil {
		c.Check(Required("score", in.Score != nil))
	}
	if err := v.checkShape(&c, in); err != nil {
		return err
	}
	if creating {
		exists, err := v.catalog.ReviewExists(ctx, titleID, authorID)
		if err != nil {
			return err
		}
		c.Check(ReviewUnique(exists, creating))
	}
	return c.Err()
}

func (v *Validator) Comment(in model.CommentInput, creating bool) error {
	var c Collector
	if creating || in.Text != nil {
		c.Check(NotBlank("text", in.Text))
	}
	return c.Err()
}

// CheckSignup collects the shape failures of a signup request. The auth
// flow adds uniqueness failures to the same collector, since it may reuse
// an existing registration.
func (v *Validator) CheckSignup(req model.SignupRequest) (*Collector, error) {
	var c Collector
	if c.Check(NotBlank("username", &req.Username)) {
		c.Check(Username(req.Username))
	}
	c.Check(NotBlank("email", &req.Email))
	if err := v.checkShape(&c, req); err != nil {
		return nil, err
	}
	return &c, nil
}

func (v *Validator) Signup(req model.SignupRequest) error {
	c, err := v.CheckSignup(req)
	if err != nil {
		return err
	}
	return c.Err()
}

func (v *Validator) Token(req model.TokenRequest) error {
	var c Collector
	c.Check(NotBlank("username", &req.Username))
	c.Check(NotBlank("confirmation_code", &req.ConfirmationCode))
	if err := v.checkShape(&c, req); err != nil {
		return err
	}
	return c.Err()
}

// User validates an admin or self-profile payload. existing is nil on
// creation; on update it is the record being changed.
func (v *Validator) User(ctx context.Context, in model.UserInput, existing *model.User) error {
	var c Collector
	creating := existing == nil
	var selfID int64
	if existing != nil {
		selfID = existing.ID
	}

	if creating || in.Username != nil {
		if c.Check(NotBlank("username", in.Username)) {
			c.Check(Username(*in.Username))
		}
	}
	if creating || in.Email != nil {
		c.Check(NotBlank("email", in.Email))
	}
	if err := v.checkShape(&c, in); err != nil {
		return err
	}

	if in.Username != nil && !c.Failed("username") {
		taken, err := v.catalog.UsernameTaken(ctx, *in.Username, selfID)
		if err != nil {
			return err
		}
		if taken {
			c.Check(fail("username", apperror.CodeDuplicateUsername, "a user with that username already exists"))
		}
	}
	if in.Email != nil && !c.Failed("email") {
		taken, err := v.catalog.EmailTaken(ctx, *in.Email, selfID)
		if err != nil {
			return err
		}
		if taken {
			c.Check(fail("email", apperror.CodeDuplicateEmail, "a user with that email already exists"))
		}
	}
	return c.Err()
}
