// Package auth implements registration by emailed confirmation code and the
// exchange of that code for a bearer token.
package auth

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/BaGreal2/yamdb-server/internal/apperror"
	"github.com/BaGreal2/yamdb-server/internal/metrics"
	"github.com/BaGreal2/yamdb-server/internal/model"
	"github.com/BaGreal2/yamdb-server/internal/validation"
)

type State string

const (
	StateUnregistered        State = "UNREGISTERED"
	StatePendingConfirmation State = "PENDING_CONFIRMATION"
	StateAuthenticated       State = "AUTHENTICATED"
)

// StateOf derives the registration state of u.
func StateOf(u *model.User) State {
	switch {
	case u == nil:
		return StateUnregistered
	case u.ConfirmedAt != nil:
		return StateAuthenticated
	default:
		return StatePendingConfirmation
	}
}

type UserStore interface {
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	CreateUser(ctx context.Context, u *model.User) (*model.User, error)
	SetConfirmationCode(ctx context.Context, id int64, hash *string) error
	MarkConfirmed(ctx context.Context, id int64, at time.Time, clearCode bool) error
}

type Options struct {
	CodeLength int
	// SingleUse burns the code after a successful exchange. Off by default,
	// in which case a code stays valid until the next signup replaces it.
	SingleUse bool
	HashCost  int
}

type Service struct {
	users     UserStore
	mailer    Mailer
	tokens    *Tokens
	validator *validation.Validator
	opts      Options
	log       logrus.FieldLogger
}

func NewService(users UserStore, mailer Mailer, tokens *Tokens, validator *validation.Validator, opts Options, log logrus.FieldLogger) *Service {
	if opts.CodeLength <= 0 {
		opts.CodeLength = 6
	}
	if opts.HashCost == 0 {
		opts.HashCost = bcrypt.DefaultCost
	}
	return &Service{users: users, mailer: mailer, tokens: tokens, validator: validator, opts: opts, log: log}
}

func (s *Service) Tokens() *Tokens { return s.tokens }

// Signup registers username/email, or reuses the registration when both
// already belong to the same user, and mails a fresh confirmation code.
func (s *Service) Signup(ctx context.Context, req model.SignupRequest) (*model.User, error) {
	c, err := s.validator.CheckSignup(req)
	if err != nil {
		return nil, err
	}

	var byName, byEmail *model.User
	if !c.Failed("username") {
		if byName, err = s.lookup(ctx, s.users.GetUserByUsername, req.Username); err != nil {
			return nil, err
		}
	}
	if !c.Failed("email") {
		if byEmail, err = s.lookup(ctx, s.users.GetUserByEmail, req.Email); err != nil {
			return nil, err
		}
	}

	// A request naming one existing user in both fields is a repeat signup.
	repeated := byName != nil && byEmail != nil && byName.ID == byEmail.ID
	if !repeated {
		if byName != nil {
			c.Check(&apperror.FieldError{Field: "username", Code: apperror.CodeDuplicateUsername, Message: "a user with that username already exists"})
		}
		if byEmail != nil {
			c.Check(&apperror.FieldError{Field: "email", Code: apperror.CodeDuplicateEmail, Message: "a user with that email already exists"})
		}
	}
	if err := c.Err(); err != nil {
		return nil, err
	}

	user := byName
	if repeated {
		s.log.WithField("username", user.Username).Info("signup repeated, reissuing confirmation code")
	} else {
		user, err = s.users.CreateUser(ctx, &model.User{Username: req.Username, Email: req.Email, Role: model.RoleUser})
		if err != nil {
			return nil, err
		}
		s.log.WithField("username", user.Username).Info("user registered")
	}

	code, err := generateCode(s.opts.CodeLength)
	if err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), s.opts.HashCost)
	if err != nil {
		return nil, fmt.Errorf("hash confirmation code: %w", err)
	}
	hashed := string(hash)
	if err := s.users.SetConfirmationCode(ctx, user.ID, &hashed); err != nil {
		return nil, err
	}
	user.ConfirmationCode = &hashed

	if err := s.mailer.SendConfirmationCode(ctx, user.Email, user.Username, code); err != nil {
		return nil, err
	}
	metrics.RecordConfirmationCode(metrics.CodeIssued)
	return user, nil
}

// Exchange trades a confirmation code for an access token.
func (s *Service) Exchange(ctx context.Context, req model.TokenRequest) (string, error) {
	if err := s.validator.Token(req); err != nil {
		return "", err
	}
	user, err := s.users.GetUserByUsername(ctx, req.Username)
	if err != nil {
		return "", err
	}
	if user.ConfirmationCode == nil ||
		bcrypt.CompareHashAndPassword([]byte(*user.ConfirmationCode), []byte(req.ConfirmationCode)) != nil {
		s.log.WithField("username", user.Username).Warn("invalid confirmation code")
		metrics.RecordConfirmationCode(metrics.CodeRejected)
		return "", apperror.Validation(apperror.FieldError{
			Field: "confirmation_code", Code: apperror.CodeInvalidCode, Message: "invalid confirmation code",
		})
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return "", err
	}
	if err := s.users.MarkConfirmed(ctx, user.ID, time.Now(), s.opts.SingleUse); err != nil {
		return "", err
	}
	metrics.RecordConfirmationCode(metrics.CodeAccepted)
	return token, nil
}

func (s *Service) lookup(ctx context.Context, get func(context.Context, string) (*model.User, error), key string) (*model.User, error) {
	u, err := get(ctx, key)
	if apperror.Is(err, apperror.KindNotFound) {
		return nil, nil
	}
	return u, err
}

func generateCode(length int) (string, error) {
	code := make([]byte, length)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", fmt.Errorf("generate confirmation code: %w", err)
		}
		code[i] = byte(n.Int64()) + '0'
	}
	return string(code), nil
}
