package jwt

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrTokenExpired is returned when a token's exp claim is in the past.
var ErrTokenExpired = errors.New("token expired")

// ErrTokenMalformed is returned when a token cannot be parsed at all.
var ErrTokenMalformed = errors.New("token malformed")

// ErrTokenSignature is returned when a token's signature does not verify
// against the configured secret.
var ErrTokenSignature = errors.New("token signature invalid")

// Config defines a public type used by greenauth APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
	Leeway        time.Duration
}

// Manager defines a public type used by greenauth APIs.
//
// Manager instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Manager struct {
	config Config
}

// AccessClaims is the claim set of an access token. Roles is a snapshot of
// the user's role names at issuance time and is not re-checked against the
// directory until the token expires.
type AccessClaims struct {
	Email string   `json:"email"`
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// RefreshClaims is the claim set of a refresh token. SID is constant across
// the life of one login session; the jti (RegisteredClaims.ID) changes on
// every rotation.
type RefreshClaims struct {
	SID string `json:"sid"`
	jwt.RegisteredClaims
}

// UserID parses the numeric subject of the claim set.
func (c *AccessClaims) UserID() (int64, error) {
	return parseSubject(c.Subject)
}

// UserID parses the numeric subject of the claim set.
func (c *RefreshClaims) UserID() (int64, error) {
	return parseSubject(c.Subject)
}

// JTI returns the token identifier of this refresh token instance.
func (c *RefreshClaims) JTI() string {
	return c.ID
}

func parseSubject(sub string) (int64, error) {
	id, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: non-numeric subject", ErrTokenMalformed)
	}
	return id, nil
}

// NewManager describes the newmanager operation and its observable behavior.
//
// NewManager may return an error when input validation, dependency calls, or security checks fail.
// NewManager does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.AccessSecret) == 0 {
		return nil, errors.New("access secret required")
	}
	if len(cfg.RefreshSecret) == 0 {
		return nil, errors.New("refresh secret required")
	}
	if bytes.Equal(cfg.AccessSecret, cfg.RefreshSecret) {
		return nil, errors.New("access and refresh secrets must differ")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	return &Manager{config: cfg}, nil
}

// AccessTTL reports the configured access-token lifetime.
func (j *Manager) AccessTTL() time.Duration {
	return j.config.AccessTTL
}

// RefreshTTL reports the configured refresh-token lifetime.
func (j *Manager) RefreshTTL() time.Duration {
	return j.config.RefreshTTL
}

// IssueAccess signs an access token for the given user with the configured
// access TTL. The roles slice is embedded as issued; callers own the
// freshness of that snapshot.
func (j *Manager) IssueAccess(userID int64, email string, roles []string) (string, error) {
	now := time.Now()
	claims := AccessClaims{
		Email: email,
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			Issuer:    j.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.config.AccessTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.config.AccessSecret)
}

// IssueRefresh signs a refresh token bound to a session (sid) and a single
// token instance (jti). The expiry is explicit because rotation preserves
// the absolute deadline fixed at login rather than issuing a fresh window.
func (j *Manager) IssueRefresh(userID int64, sid, jti string, expiresAt time.Time) (string, error) {
	if sid == "" || jti == "" {
		return "", errors.New("sid and jti required")
	}
	now := time.Now()
	claims := RefreshClaims{
		SID: sid,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   strconv.FormatInt(userID, 10),
			Issuer:    j.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.config.RefreshSecret)
}

// ParseAccess verifies an access token against the access secret and
// returns its claims. Failures are classified as [ErrTokenExpired],
// [ErrTokenSignature], or [ErrTokenMalformed].
func (j *Manager) ParseAccess(tokenStr string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := j.parse(tokenStr, claims, j.config.AccessSecret); err != nil {
		return nil, err
	}
	return claims, nil
}

// ParseRefresh verifies a refresh token against the refresh secret and
// returns its claims. The sid and jti claims must both be present.
func (j *Manager) ParseRefresh(tokenStr string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := j.parse(tokenStr, claims, j.config.RefreshSecret); err != nil {
		return nil, err
	}
	if claims.SID == "" || claims.ID == "" {
		return nil, fmt.Errorf("%w: missing sid or jti", ErrTokenMalformed)
	}
	return claims, nil
}

func (j *Manager) parse(tokenStr string, claims jwt.Claims, secret []byte) error {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if j.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(j.config.Leeway))
	}
	if j.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(j.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil {
		return classifyParseError(err)
	}
	if !token.Valid {
		return fmt.Errorf("%w: invalid claims", ErrTokenMalformed)
	}
	return nil
}

func classifyParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrTokenExpired, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return fmt.Errorf("%w: %v", ErrTokenSignature, err)
	default:
		return fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}
}
