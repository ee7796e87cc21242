package flows

import (
	"context"
	"errors"
	"time"

	"github.com/verdantio/greenauth/jwt"
	"github.com/verdantio/greenauth/session"
)

// RefreshFailureKind classifies refresh flow failures for root-level mapping.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	RefreshFailureDecode
	RefreshFailureRecordNotFound
	RefreshFailureRecordMismatch
	RefreshFailureReuse
	RefreshFailureStore
	RefreshFailureUserLookup
	RefreshFailureIssueAccess
	RefreshFailureIssueRefresh
)

// RefreshResult carries either the rotated token pair or failure metadata.
type RefreshResult struct {
	Failure       RefreshFailureKind
	Err           error
	UserID        int64
	SID           string
	SpentJTI      string
	NewJTI        string
	ExpiresAt     int64
	RevokedCount  int64
	AccessToken   string
	RefreshToken  string
}

type RotateSessionStore interface {
	MarkRotated(ctx context.Context, jti string, userID int64, sid string) (*session.Record, error)
	Create(ctx context.Context, jti string, rec session.Record) error
	RevokeFamily(ctx context.Context, sid string) (int64, error)
}

// RefreshDeps captures refresh flow dependencies.
type RefreshDeps struct {
	ParseRefresh func(string) (*jwt.RefreshClaims, error)
	LookupUser   func(ctx context.Context, userID int64) (email string, roles []string, err error)
	NewJTI       func() string
	IssueAccess  func(userID int64, email string, roles []string) (string, error)
	IssueRefresh func(userID int64, sid, jti string, expiresAt time.Time) (string, error)
	SessionStore RotateSessionStore
	Warn         func(string, ...any)
}

// RunRefresh executes the rotation state machine: the presented jti is
// atomically consumed (ACTIVE → SPENT), a fresh jti is issued under the same
// sid with the family's original deadline, and a new token pair is minted.
// Presenting an already-spent jti revokes the entire family.
func RunRefresh(ctx context.Context, refreshToken string, deps RefreshDeps) RefreshResult {
	claims, err := deps.ParseRefresh(refreshToken)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureDecode, Err: err}
	}
	userID, err := claims.UserID()
	if err != nil {
		return RefreshResult{Failure: RefreshFailureDecode, Err: err}
	}
	sid := claims.SID
	jti := claims.JTI()

	spent, err := deps.SessionStore.MarkRotated(ctx, jti, userID, sid)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrRecordNotFound):
			return RefreshResult{Failure: RefreshFailureRecordNotFound, Err: err, UserID: userID, SID: sid, SpentJTI: jti}
		case errors.Is(err, session.ErrRecordMismatch):
			return RefreshResult{Failure: RefreshFailureRecordMismatch, Err: err, UserID: userID, SID: sid, SpentJTI: jti}
		case errors.Is(err, session.ErrRefreshReuse):
			// Theft signal: the same refresh token was presented twice. Revoke
			// every jti in the family before failing.
			revoked, revokeErr := deps.SessionStore.RevokeFamily(ctx, sid)
			if revokeErr != nil && deps.Warn != nil {
				deps.Warn("family revocation after reuse failed", "sid", sid, "error", revokeErr)
			}
			return RefreshResult{Failure: RefreshFailureReuse, Err: err, UserID: userID, SID: sid, SpentJTI: jti, RevokedCount: revoked}
		default:
			return RefreshResult{Failure: RefreshFailureStore, Err: err, UserID: userID, SID: sid, SpentJTI: jti}
		}
	}

	email, roles, err := deps.LookupUser(ctx, userID)
	if err != nil {
		// The spent marker stays; a retry with the same token reads as reuse.
		return RefreshResult{Failure: RefreshFailureUserLookup, Err: err, UserID: userID, SID: sid, SpentJTI: jti}
	}

	newJTI := deps.NewJTI()
	rec := session.Record{
		UserID:    userID,
		SID:       sid,
		ExpiresAt: spent.ExpiresAt,
	}
	if err := deps.SessionStore.Create(ctx, newJTI, rec); err != nil {
		return RefreshResult{Failure: RefreshFailureStore, Err: err, UserID: userID, SID: sid, SpentJTI: jti}
	}

	access, err := deps.IssueAccess(userID, email, roles)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureIssueAccess, Err: err, UserID: userID, SID: sid, SpentJTI: jti}
	}
	refresh, err := deps.IssueRefresh(userID, sid, newJTI, time.Unix(spent.ExpiresAt, 0))
	if err != nil {
		return RefreshResult{Failure: RefreshFailureIssueRefresh, Err: err, UserID: userID, SID: sid, SpentJTI: jti}
	}

	return RefreshResult{
		UserID:       userID,
		SID:          sid,
		SpentJTI:     jti,
		NewJTI:       newJTI,
		ExpiresAt:    spent.ExpiresAt,
		AccessToken:  access,
		RefreshToken: refresh,
	}
}
