// Package auth resolves the caller identity for protected routes. It is the
// only code that reads the Authorization header.
package auth

import (
	"context"
	"net/http"
	"strings"

	"travelbook/internal/apperr"
	"travelbook/internal/dispatch"
	"travelbook/internal/envelope"
	"travelbook/internal/token"
)

// UnauthorizedMessage is returned for every authentication failure so
// callers cannot tell a missing token from a rejected one.
const UnauthorizedMessage = "Unauthorized"

type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

type Verifier interface {
	Verify(ctx context.Context, raw string) (token.Claims, bool)
}

type Guard struct {
	verifier Verifier
}

func NewGuard(verifier Verifier) *Guard {
	return &Guard{verifier: verifier}
}

func (g *Guard) Resolve(r *http.Request) (Identity, error) {
	raw := bearerToken(r.Header.Get("Authorization"))
	if raw == "" {
		return Identity{}, apperr.Unauthorized(UnauthorizedMessage)
	}
	claims, ok := g.verifier.Verify(r.Context(), raw)
	if !ok {
		return Identity{}, apperr.Unauthorized(UnauthorizedMessage)
	}
	return Identity{ID: claims.UserID, Email: claims.Email, Role: claims.Role}, nil
}

// Authenticated adapts an identity-aware handler into a dispatch handler.
func (g *Guard) Authenticated(fn func(r *http.Request, id Identity) (envelope.Response, error)) dispatch.HandlerFunc {
	return func(r *http.Request) (envelope.Response, error) {
		id, err := g.Resolve(r)
		if err != nil {
			return envelope.Response{}, err
		}
		return fn(r, id)
	}
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.Fields(header)
	if len(parts) != 2 {
		return ""
	}
	if strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return parts[1]
}
