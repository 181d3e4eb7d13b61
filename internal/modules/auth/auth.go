package auth

import (
	"context"
	"time"
)

// RoleAdmin marks administrators: they edit the catalog, import rows and move orders along.
const RoleAdmin = "admin"

// Identity is the requester carried by a verified bearer token.
type Identity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// IsAdmin reports whether the identity holds the admin role.
func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }

// Service issues and verifies bearer tokens.
type Service interface {
	Issue(ctx context.Context, id Identity, ttl time.Duration) (string, error)
	Verify(ctx context.Context, token string) (Identity, error)
}
