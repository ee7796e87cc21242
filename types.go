package greenauth

import (
	"context"
	"time"

	"github.com/verdantio/greenauth/permission"
)

// User is the opaque principal the engine authenticates. The surrounding
// CRUD system owns the record; the engine needs only these fields.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	Active       bool
}

// UserDirectory is the interface callers must implement to integrate
// greenauth with their user database. Lookups return [ErrUserNotFound] for
// absent users so the engine can separate misses from outages.
type UserDirectory interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id int64) (*User, error)
	RolesForUser(ctx context.Context, userID int64) ([]permission.Role, error)
}

// PasswordVerifier is the opaque one-way credential check. The default
// implementation is [password.Bcrypt]; deployments with a different hash
// format substitute their own.
type PasswordVerifier interface {
	Verify(plain, hash string) bool
}

// TokenPair is the result of a login or a successful rotation. The refresh
// deadline is exposed so transports can set a matching cookie maxAge.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// Identity is the immutable per-request authentication context produced by
// [Engine.Authenticate]: the token's subject plus the permission set
// resolved fresh for this request. Downstream gates read it; nothing
// mutates it.
type Identity struct {
	UserID int64
	Email  string
	Roles  []string

	grant permission.Grant
}

// Can reports whether the identity holds the permission key.
func (id *Identity) Can(key string) bool {
	if id == nil {
		return false
	}
	return id.grant.Has(key)
}

// Permissions returns the resolved effective permission keys, sorted.
func (id *Identity) Permissions() []string {
	if id == nil {
		return nil
	}
	return id.grant.Keys
}
