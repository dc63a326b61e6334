package service

import (
	"context"
	"strings"

	"github.com/okian/timeforge/internal/adapters/identity"
	"github.com/okian/timeforge/internal/domain/model"
)

// AuthEnabled reports whether requests must carry a bearer token.
func (s *Service) AuthEnabled() bool { return s.accounts != nil }

// Signup registers an account.
func (s *Service) Signup(ctx context.Context, email, password, fullName string) (identity.Session, error) {
	if s.accounts == nil {
		return identity.Session{}, ErrAuthDisabled
	}
	return s.accounts.Signup(ctx, email, password, fullName)
}

// Login opens a session for an existing account.
func (s *Service) Login(ctx context.Context, email, password string) (identity.Session, error) {
	if s.accounts == nil {
		return identity.Session{}, ErrAuthDisabled
	}
	return s.accounts.Login(ctx, email, password)
}

// Authenticate resolves the owner for an Authorization header value.
// Without accounts every request acts as model.LocalOwner.
func (s *Service) Authenticate(_ context.Context, authorization string) (string, error) {
	if s.accounts == nil {
		return model.LocalOwner, nil
	}
	token, ok := bearerToken(authorization)
	if !ok {
		return "", ErrUnauthenticated
	}
	return s.accounts.Authenticate(token)
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
