// Package auth turns bearer tokens into the principal every service call
// receives explicitly.
package auth

import (
	"context"
	"errors"

	"github.com/SAP-F-2025/qpaper-service/internal/models"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
)

// Identity is what a verified token says about its bearer.
type Identity struct {
	Subject string
	Email   string
	Name    string
	Avatar  string
	Role    models.UserRole
}

// Principal is the authenticated caller as known to this service.
type Principal struct {
	UserID   string          `json:"id"`
	Email    string          `json:"email"`
	Name     string          `json:"name"`
	Role     models.UserRole `json:"role"`
	Approved bool            `json:"isApproved"`
}

func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == models.RoleAdmin
}

// Verifier checks a raw token and extracts the identity it carries.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// Resolver maps a verified identity onto a local account.
type Resolver interface {
	Resolve(ctx context.Context, identity *Identity) (*Principal, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(ctx context.Context, identity *Identity) (*Principal, error)

func (f ResolverFunc) Resolve(ctx context.Context, identity *Identity) (*Principal, error) {
	return f(ctx, identity)
}
