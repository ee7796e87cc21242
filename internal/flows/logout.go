package flows

import (
	"context"

	"github.com/verdantio/greenauth/jwt"
)

type LogoutSessionStore interface {
	Delete(ctx context.Context, jti, sid string) error
}

// LogoutDeps captures logout flow dependencies.
type LogoutDeps struct {
	ParseRefresh func(string) (*jwt.RefreshClaims, error)
	SessionStore LogoutSessionStore
}

// LogoutResult reports what was removed. SID and JTI stay empty when the
// presented token could not be decoded.
type LogoutResult struct {
	SID string
	JTI string
	Err error
}

// RunLogout removes the presented token's record from its family. An
// expired, malformed, or absent token is treated as already logged out;
// only a store outage surfaces as an error.
func RunLogout(ctx context.Context, refreshToken string, deps LogoutDeps) LogoutResult {
	if refreshToken == "" {
		return LogoutResult{}
	}

	claims, err := deps.ParseRefresh(refreshToken)
	if err != nil {
		return LogoutResult{}
	}

	jti := claims.JTI()
	sid := claims.SID
	return LogoutResult{
		SID: sid,
		JTI: jti,
		Err: deps.SessionStore.Delete(ctx, jti, sid),
	}
}
