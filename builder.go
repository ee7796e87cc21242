package greenauth

import (
	"errors"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/verdantio/greenauth/jwt"
	"github.com/verdantio/greenauth/password"
	"github.com/verdantio/greenauth/permission"
	"github.com/verdantio/greenauth/session"
)

// Builder defines a public type used by greenauth APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config    Config
	redis     *redis.Client
	directory UserDirectory
	verifier  PasswordVerifier
	logger    zerolog.Logger
	loggerSet bool

	built bool
}

// New describes the new operation and its observable behavior.
//
// New may return an error when input validation, dependency calls, or security checks fail.
// New does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig describes the withconfig operation and its observable behavior.
//
// WithConfig may return an error when input validation, dependency calls, or security checks fail.
// WithConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis describes the withredis operation and its observable behavior.
//
// WithRedis may return an error when input validation, dependency calls, or security checks fail.
// WithRedis does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithRedis(client *redis.Client) *Builder {
	b.redis = client
	return b
}

// WithDirectory describes the withdirectory operation and its observable behavior.
//
// WithDirectory may return an error when input validation, dependency calls, or security checks fail.
// WithDirectory does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithDirectory(dir UserDirectory) *Builder {
	b.directory = dir
	return b
}

// WithPasswordVerifier overrides the default bcrypt verifier.
func (b *Builder) WithPasswordVerifier(v PasswordVerifier) *Builder {
	b.verifier = v
	return b
}

// WithLogger attaches a structured logger. Without one the engine logs
// nowhere (zerolog.Nop), which is the right default for library embedding.
func (b *Builder) WithLogger(logger zerolog.Logger) *Builder {
	b.logger = logger
	b.loggerSet = true
	return b
}

// Build validates the configuration, wires the sub-components, and returns
// a ready Engine. Construction is allocation-only: no I/O happens until an
// Engine method is called.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	if b.redis == nil {
		return nil, errors.New("redis client is required")
	}
	if b.directory == nil {
		return nil, errors.New("user directory is required")
	}
	if err := b.config.validate(); err != nil {
		return nil, err
	}

	verifier := b.verifier
	if verifier == nil {
		bc, err := password.NewBcrypt(0)
		if err != nil {
			return nil, err
		}
		verifier = bc
	}

	logger := b.logger
	if !b.loggerSet {
		logger = zerolog.Nop()
	}

	jwtManager, err := jwt.NewManager(jwt.Config{
		AccessSecret:  b.config.JWT.AccessSecret,
		RefreshSecret: b.config.JWT.RefreshSecret,
		AccessTTL:     b.config.JWT.AccessTTL,
		RefreshTTL:    b.config.JWT.RefreshTTL,
		Issuer:        b.config.JWT.Issuer,
		Leeway:        b.config.JWT.Leeway,
	})
	if err != nil {
		return nil, err
	}

	b.built = true

	return &Engine{
		config:     b.config,
		jwtManager: jwtManager,
		store:      session.NewStore(b.redis, b.config.Session.RedisPrefix, b.config.Session.OpTimeout),
		resolver:   permission.NewResolver(b.directory),
		directory:  b.directory,
		verifier:   verifier,
		metrics:    NewMetrics(b.config.Metrics),
		logger:     logger,
	}, nil
}
