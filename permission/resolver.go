package permission

import (
	"context"
	"sort"
)

// Role is one role membership as reported by the backing directory: the
// role's name, its active flag, and the permission keys attached to it.
type Role struct {
	Name   string
	Active bool
	Keys   []string
}

// RoleSource loads a user's role memberships. Implemented by the user
// directory; substituted with a fake in tests.
type RoleSource interface {
	RolesForUser(ctx context.Context, userID int64) ([]Role, error)
}

// Grant is a user's resolved effective permission set: the names of the
// active roles held and the de-duplicated union of their permission keys.
// A user with no roles gets an empty grant, not an error.
type Grant struct {
	Roles []string
	Keys  []string

	keySet map[string]struct{}
}

// Has reports whether the grant includes the permission key. Pure set
// membership; unknown keys simply report false.
func (g Grant) Has(key string) bool {
	_, ok := g.keySet[key]
	return ok
}

// Resolver computes effective permission sets. Resolution is performed
// fresh on every authenticated request: permission changes must be visible
// on the next request after a role assignment, even for access tokens
// issued before the change.
type Resolver struct {
	source RoleSource
}

// NewResolver wraps a role source.
func NewResolver(source RoleSource) *Resolver {
	return &Resolver{source: source}
}

// Resolve loads the user's role memberships and returns the union of every
// permission key attached to an active role. Inactive roles contribute
// neither their name nor their keys.
func (r *Resolver) Resolve(ctx context.Context, userID int64) (Grant, error) {
	roles, err := r.source.RolesForUser(ctx, userID)
	if err != nil {
		return Grant{}, err
	}

	grant := Grant{
		Roles:  []string{},
		Keys:   []string{},
		keySet: make(map[string]struct{}),
	}
	for _, role := range roles {
		if !role.Active {
			continue
		}
		grant.Roles = append(grant.Roles, role.Name)
		for _, key := range role.Keys {
			if _, seen := grant.keySet[key]; seen {
				continue
			}
			grant.keySet[key] = struct{}{}
			grant.Keys = append(grant.Keys, key)
		}
	}
	sort.Strings(grant.Keys)

	return grant, nil
}
