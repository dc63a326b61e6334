// Package identity manages accounts and session tokens for the auth-gated mode.
package identity

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/okian/timeforge/pkg/logger"
	"github.com/okian/timeforge/pkg/metrics"
)

// Session is returned by Signup and Login.
type Session struct {
	AccessToken string  `json:"accessToken"`
	TokenType   string  `json:"tokenType"`
	ExpiresIn   int64   `json:"expiresIn"`
	User        Profile `json:"user"`
}

// Service registers users, logs them in and authenticates bearer tokens.
type Service struct {
	users  *UserRepository
	hasher *PasswordHasher
	tokens *TokenManager
	opts   options
}

// NewService migrates the users table on db and returns a Service signing tokens with secret.
func NewService(ctx context.Context, db *gorm.DB, secret string, opts ...Option) (*Service, error) {
	o := newOptions(opts)
	tokens, err := NewTokenManager(secret, o.ttl, o.now)
	if err != nil {
		return nil, err
	}
	users, err := NewUserRepository(ctx, db)
	if err != nil {
		return nil, err
	}
	if o.newID == nil {
		o.newID = func() string { return uuid.NewString() }
	}
	return &Service{
		users:  users,
		hasher: NewPasswordHasher(o.cost),
		tokens: tokens,
		opts:   o,
	}, nil
}

// Signup creates an account and returns a session for it.
func (s *Service) Signup(ctx context.Context, email, password, fullName string) (Session, error) {
	sess, err := s.signup(ctx, email, password, fullName)
	recordAttempt("signup", err)
	return sess, err
}

func (s *Service) signup(ctx context.Context, email, password, fullName string) (Session, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return Session{}, err
	}
	if err := checkPassword(password); err != nil {
		return Session{}, err
	}

	exists, err := s.users.EmailExists(ctx, email)
	if err != nil {
		return Session{}, err
	}
	if exists {
		return Session{}, ErrEmailInUse
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return Session{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.opts.now()
	u := &User{
		ID:           s.opts.newID(),
		Email:        email,
		FullName:     strings.TrimSpace(fullName),
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return Session{}, err
	}
	s.opts.log.Info(ctx, "account created", logger.String("user_id", u.ID))
	return s.session(u)
}

// Login verifies credentials and returns a session.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	sess, err := s.login(ctx, email, password)
	recordAttempt("login", err)
	return sess, err
}

func (s *Service) login(ctx context.Context, email, password string) (Session, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return Session{}, ErrInvalidCredentials
	}
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, err
	}
	if !s.hasher.Verify(password, u.PasswordHash) {
		return Session{}, ErrInvalidCredentials
	}
	return s.session(u)
}

// Authenticate validates a bearer token and returns the owner id it grants.
func (s *Service) Authenticate(token string) (string, error) {
	claims, err := s.tokens.Validate(strings.TrimSpace(token))
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// Profile returns the public view of the user with id.
func (s *Service) Profile(ctx context.Context, id string) (Profile, error) {
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		return Profile{}, err
	}
	return u.Profile(), nil
}

// Accounts returns the number of registered users.
func (s *Service) Accounts(ctx context.Context) (int64, error) {
	return s.users.Count(ctx)
}

func (s *Service) session(u *User) (Session, error) {
	tok, err := s.tokens.Issue(u.ID, u.Email)
	if err != nil {
		return Session{}, fmt.Errorf("issue token: %w", err)
	}
	return Session{
		AccessToken: tok,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.tokens.TTL().Seconds()),
		User:        u.Profile(),
	}, nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}

func recordAttempt(op string, err error) {
	result := "success"
	var idErr *Error
	switch {
	case err == nil:
	case errors.As(err, &idErr):
		result = idErr.Code
	default:
		result = "error"
	}
	metrics.RecordAuthAttempt(op, result)
}
