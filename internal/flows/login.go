package flows

import (
	"context"
	"time"

	"github.com/verdantio/greenauth/session"
)

// LoginFailureKind classifies login flow failures for root-level mapping.
type LoginFailureKind int

const (
	LoginFailureNone LoginFailureKind = iota
	LoginFailureCredentials
	LoginFailureInactive
	LoginFailureRoles
	LoginFailureSession
	LoginFailureIssueAccess
	LoginFailureIssueRefresh
)

// LoginUser is the flow-local user model.
type LoginUser struct {
	ID           int64
	Email        string
	PasswordHash string
	Active       bool
}

// LoginResult carries either the issued token pair or failure metadata.
type LoginResult struct {
	Failure      LoginFailureKind
	Err          error
	UserID       int64
	SID          string
	JTI          string
	ExpiresAt    int64
	AccessToken  string
	RefreshToken string
}

type CreateSessionStore interface {
	Create(ctx context.Context, jti string, rec session.Record) error
}

// LoginDeps captures login flow dependencies.
type LoginDeps struct {
	FindByEmail    func(context.Context, string) (*LoginUser, error)
	VerifyPassword func(plain, hash string) bool
	RoleNames      func(context.Context, int64) ([]string, error)
	NewSID         func() string
	NewJTI         func() string
	Now            func() time.Time
	RefreshTTL     time.Duration
	IssueAccess    func(userID int64, email string, roles []string) (string, error)
	IssueRefresh   func(userID int64, sid, jti string, expiresAt time.Time) (string, error)
	SessionStore   CreateSessionStore
}

// RunLogin verifies credentials and opens a new session family: fresh sid,
// first jti, ACTIVE refresh record, and an access+refresh token pair. The
// refresh deadline fixed here is never extended by later rotations.
func RunLogin(ctx context.Context, email, pass string, deps LoginDeps) LoginResult {
	user, err := deps.FindByEmail(ctx, email)
	if err != nil || user == nil {
		// Unknown user and wrong password are indistinguishable to the caller.
		return LoginResult{Failure: LoginFailureCredentials, Err: err}
	}
	if !deps.VerifyPassword(pass, user.PasswordHash) {
		return LoginResult{Failure: LoginFailureCredentials, UserID: user.ID}
	}
	if !user.Active {
		return LoginResult{Failure: LoginFailureInactive, UserID: user.ID}
	}

	roles, err := deps.RoleNames(ctx, user.ID)
	if err != nil {
		return LoginResult{Failure: LoginFailureRoles, Err: err, UserID: user.ID}
	}

	sid := deps.NewSID()
	jti := deps.NewJTI()
	expiresAt := deps.Now().Add(deps.RefreshTTL)

	rec := session.Record{
		UserID:    user.ID,
		SID:       sid,
		ExpiresAt: expiresAt.Unix(),
	}
	if err := deps.SessionStore.Create(ctx, jti, rec); err != nil {
		return LoginResult{Failure: LoginFailureSession, Err: err, UserID: user.ID, SID: sid}
	}

	access, err := deps.IssueAccess(user.ID, user.Email, roles)
	if err != nil {
		return LoginResult{Failure: LoginFailureIssueAccess, Err: err, UserID: user.ID, SID: sid}
	}
	refresh, err := deps.IssueRefresh(user.ID, sid, jti, expiresAt)
	if err != nil {
		return LoginResult{Failure: LoginFailureIssueRefresh, Err: err, UserID: user.ID, SID: sid}
	}

	return LoginResult{
		UserID:       user.ID,
		SID:          sid,
		JTI:          jti,
		ExpiresAt:    expiresAt.Unix(),
		AccessToken:  access,
		RefreshToken: refresh,
	}
}
