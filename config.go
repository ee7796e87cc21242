package greenauth

import (
	"bytes"
	"errors"
	"time"
)

// Config defines a public type used by greenauth APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	JWT     JWTConfig
	Session SessionConfig
	Cookie  CookieConfig
	Metrics MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig defines a public type used by greenauth APIs.
//
// JWTConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type JWTConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
	Leeway        time.Duration
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig defines a public type used by greenauth APIs.
//
// SessionConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SessionConfig struct {
	RedisPrefix string
	// OpTimeout bounds every session-store round-trip. A timeout surfaces
	// as an internal failure, never as an invalid token.
	OpTimeout time.Duration
}

/*
====================================
COOKIE CONFIG
====================================
*/

// CookieConfig describes the refresh-token cookie contract: HTTP-only,
// SameSite=Lax, scoped to the refresh path, Secure in production.
type CookieConfig struct {
	Name   string
	Path   string
	Secure bool
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig defines a public type used by greenauth APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled bool
}

// DefaultConfig returns the production defaults: 15-minute access tokens,
// 7-day refresh sessions, and the standard refresh-cookie contract.
// Secrets are deliberately absent and must be supplied by the caller.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 7 * 24 * time.Hour,
			Issuer:     "greenauth",
		},
		Session: SessionConfig{
			RedisPrefix: "ga:",
			OpTimeout:   3 * time.Second,
		},
		Cookie: CookieConfig{
			Name: "refresh_token",
			Path: "/api/auth/refresh",
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.AccessSecret = append([]byte(nil), cfg.JWT.AccessSecret...)
	out.JWT.RefreshSecret = append([]byte(nil), cfg.JWT.RefreshSecret...)
	return out
}

func (c Config) validate() error {
	if len(c.JWT.AccessSecret) == 0 || len(c.JWT.RefreshSecret) == 0 {
		return errors.New("both JWT secrets are required")
	}
	if bytes.Equal(c.JWT.AccessSecret, c.JWT.RefreshSecret) {
		return errors.New("access and refresh secrets must differ")
	}
	if c.JWT.AccessTTL <= 0 || c.JWT.RefreshTTL <= 0 {
		return errors.New("invalid TTL configuration")
	}
	if c.JWT.AccessTTL >= c.JWT.RefreshTTL {
		return errors.New("access TTL must be shorter than refresh TTL")
	}
	if c.Session.OpTimeout < 0 {
		return errors.New("invalid session op timeout")
	}
	if c.Cookie.Name == "" || c.Cookie.Path == "" {
		return errors.New("cookie name and path are required")
	}
	return nil
}
