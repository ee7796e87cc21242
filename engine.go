package greenauth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/verdantio/greenauth/internal/flows"
	"github.com/verdantio/greenauth/jwt"
	"github.com/verdantio/greenauth/permission"
	"github.com/verdantio/greenauth/session"
)

// Engine defines a public type used by greenauth APIs.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Engine struct {
	config     Config
	jwtManager *jwt.Manager
	store      *session.Store
	resolver   *permission.Resolver
	directory  UserDirectory
	verifier   PasswordVerifier
	metrics    *Metrics
	logger     zerolog.Logger
}

var errUserInactive = errors.New("user inactive")

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot may return an error when input validation, dependency calls, or security checks fail.
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) MetricsSnapshot() map[MetricID]uint64 {
	if e == nil || e.metrics == nil {
		return map[MetricID]uint64{}
	}
	return e.metrics.Snapshot()
}

// Config returns a copy of the engine configuration. Transports read the
// cookie contract and token lifetimes from here.
func (e *Engine) Config() Config {
	return cloneConfig(e.config)
}

// Ping verifies the session store is reachable. Intended for startup and
// liveness checks.
func (e *Engine) Ping(ctx context.Context) error {
	if e == nil || e.store == nil {
		return ErrEngineNotReady
	}
	if err := e.store.Ping(ctx); err != nil {
		return wrapErr(ErrSessionUnavailable, err)
	}
	return nil
}

// Login verifies credentials and opens a new session: a fresh sid and jti,
// an ACTIVE refresh record with a fixed 7-day deadline, and a token pair.
// Unknown users and wrong passwords return the same error.
func (e *Engine) Login(ctx context.Context, email, pass string) (*TokenPair, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	if email == "" || pass == "" {
		e.metricInc(MetricLoginFailure)
		return nil, ErrInvalidCredentials
	}

	res := flows.RunLogin(ctx, email, pass, flows.LoginDeps{
		FindByEmail: func(ctx context.Context, email string) (*flows.LoginUser, error) {
			user, err := e.directory.FindByEmail(ctx, email)
			if err != nil {
				return nil, err
			}
			return &flows.LoginUser{
				ID:           user.ID,
				Email:        user.Email,
				PasswordHash: user.PasswordHash,
				Active:       user.Active,
			}, nil
		},
		VerifyPassword: e.verifier.Verify,
		RoleNames: func(ctx context.Context, userID int64) ([]string, error) {
			grant, err := e.resolver.Resolve(ctx, userID)
			if err != nil {
				return nil, err
			}
			return grant.Roles, nil
		},
		NewSID:       uuid.NewString,
		NewJTI:       uuid.NewString,
		Now:          time.Now,
		RefreshTTL:   e.config.JWT.RefreshTTL,
		IssueAccess:  e.jwtManager.IssueAccess,
		IssueRefresh: e.jwtManager.IssueRefresh,
		SessionStore: e.store,
	})

	switch res.Failure {
	case flows.LoginFailureNone:
		e.metricInc(MetricLoginSuccess)
		e.logger.Debug().Int64("user_id", res.UserID).Str("sid", res.SID).Msg("login succeeded")
		return &TokenPair{
			AccessToken:      res.AccessToken,
			RefreshToken:     res.RefreshToken,
			RefreshExpiresAt: time.Unix(res.ExpiresAt, 0),
		}, nil
	case flows.LoginFailureCredentials:
		if res.Err != nil && !errors.Is(res.Err, ErrUserNotFound) {
			// A directory outage must not read as a bad password.
			return nil, wrapErr(ErrDirectoryUnavailable, res.Err)
		}
		e.metricInc(MetricLoginFailure)
		return nil, ErrInvalidCredentials
	case flows.LoginFailureInactive:
		e.metricInc(MetricLoginFailure)
		e.logger.Warn().Int64("user_id", res.UserID).Msg("login attempt on inactive account")
		return nil, ErrInvalidCredentials
	case flows.LoginFailureRoles:
		return nil, wrapErr(ErrDirectoryUnavailable, res.Err)
	case flows.LoginFailureSession:
		return nil, wrapErr(ErrSessionUnavailable, res.Err)
	case flows.LoginFailureIssueAccess, flows.LoginFailureIssueRefresh:
		return nil, wrapErr(ErrTokenSigning, res.Err)
	default:
		return nil, wrapErr(ErrTokenSigning, res.Err)
	}
}

// Refresh rotates a refresh token: the presented jti is atomically consumed
// and a new pair is issued under the same sid with the session's original
// deadline. A replayed token revokes the whole family and fails with the
// same generic error as every other invalid token.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	res := flows.RunRefresh(ctx, refreshToken, flows.RefreshDeps{
		ParseRefresh: e.jwtManager.ParseRefresh,
		LookupUser: func(ctx context.Context, userID int64) (string, []string, error) {
			user, err := e.directory.FindByID(ctx, userID)
			if err != nil {
				return "", nil, err
			}
			if !user.Active {
				return "", nil, errUserInactive
			}
			grant, err := e.resolver.Resolve(ctx, userID)
			if err != nil {
				return "", nil, err
			}
			return user.Email, grant.Roles, nil
		},
		NewJTI:       uuid.NewString,
		IssueAccess:  e.jwtManager.IssueAccess,
		IssueRefresh: e.jwtManager.IssueRefresh,
		SessionStore: e.store,
		Warn: func(msg string, kv ...any) {
			e.logger.Warn().Fields(kv).Msg(msg)
		},
	})

	switch res.Failure {
	case flows.RefreshFailureNone:
		e.metricInc(MetricRefreshSuccess)
		return &TokenPair{
			AccessToken:      res.AccessToken,
			RefreshToken:     res.RefreshToken,
			RefreshExpiresAt: time.Unix(res.ExpiresAt, 0),
		}, nil
	case flows.RefreshFailureDecode:
		e.metricInc(MetricRefreshFailure)
		e.logger.Debug().Err(res.Err).Msg("refresh token rejected at decode")
		return nil, ErrUnauthorized
	case flows.RefreshFailureRecordNotFound, flows.RefreshFailureRecordMismatch:
		e.metricInc(MetricRefreshFailure)
		e.logger.Debug().Err(res.Err).Str("sid", res.SID).Str("jti", res.SpentJTI).Msg("refresh token has no matching record")
		return nil, ErrUnauthorized
	case flows.RefreshFailureReuse:
		e.metricInc(MetricReuseDetected)
		// Logged server-side only; the client sees the generic error so
		// reuse is not distinguishable from ordinary expiry.
		e.logger.Warn().
			Int64("user_id", res.UserID).
			Str("sid", res.SID).
			Str("jti", res.SpentJTI).
			Int64("revoked", res.RevokedCount).
			Msg("refresh token reuse detected; session family revoked")
		return nil, ErrUnauthorized
	case flows.RefreshFailureStore:
		return nil, wrapErr(ErrSessionUnavailable, res.Err)
	case flows.RefreshFailureUserLookup:
		if errors.Is(res.Err, ErrUserNotFound) || errors.Is(res.Err, errUserInactive) {
			e.metricInc(MetricRefreshFailure)
			return nil, ErrUnauthorized
		}
		return nil, wrapErr(ErrDirectoryUnavailable, res.Err)
	case flows.RefreshFailureIssueAccess, flows.RefreshFailureIssueRefresh:
		return nil, wrapErr(ErrTokenSigning, res.Err)
	default:
		return nil, wrapErr(ErrTokenSigning, res.Err)
	}
}

// Logout removes the presented refresh token's record from its family. It
// is idempotent: an expired, malformed, or absent token is treated as
// already logged out. Only a store outage returns an error.
func (e *Engine) Logout(ctx context.Context, refreshToken string) error {
	if e == nil {
		return ErrEngineNotReady
	}

	res := flows.RunLogout(ctx, refreshToken, flows.LogoutDeps{
		ParseRefresh: e.jwtManager.ParseRefresh,
		SessionStore: e.store,
	})
	if res.Err != nil {
		return wrapErr(ErrSessionUnavailable, res.Err)
	}

	e.metricInc(MetricLogout)
	if res.SID != "" {
		e.logger.Debug().Str("sid", res.SID).Str("jti", res.JTI).Msg("logout removed session record")
	}
	return nil
}

// LogoutAll revokes every refresh token in the session identified by sid,
// forcing a full re-login on all holders.
func (e *Engine) LogoutAll(ctx context.Context, sid string) error {
	if e == nil {
		return ErrEngineNotReady
	}

	revoked, err := e.store.RevokeFamily(ctx, sid)
	if err != nil {
		return wrapErr(ErrSessionUnavailable, err)
	}
	e.logger.Debug().Str("sid", sid).Int64("revoked", revoked).Msg("session family revoked")
	return nil
}

// Authenticate validates an access token and resolves the subject's
// effective permissions fresh from the directory. The token's embedded role
// snapshot is not consulted for permission checks, so a role change is
// visible on the very next request.
func (e *Engine) Authenticate(ctx context.Context, accessToken string) (*Identity, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	claims, err := e.jwtManager.ParseAccess(accessToken)
	if err != nil {
		e.logger.Debug().Err(err).Msg("access token rejected")
		return nil, ErrUnauthorized
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, ErrUnauthorized
	}

	grant, err := e.resolver.Resolve(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, wrapErr(ErrDirectoryUnavailable, err)
	}

	return &Identity{
		UserID: userID,
		Email:  claims.Email,
		Roles:  grant.Roles,
		grant:  grant,
	}, nil
}

// Authorize is the gate: pure set membership of requiredKey in the
// identity's resolved permissions. Endpoints needing several keys call it
// once per key (logical AND).
func (e *Engine) Authorize(id *Identity, requiredKey string) error {
	if id == nil {
		return ErrUnauthorized
	}
	if !id.Can(requiredKey) {
		return ErrForbidden
	}
	return nil
}
