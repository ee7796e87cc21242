package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrStoreUnavailable is returned when Redis cannot be reached or an
// operation exceeds the store's bounded timeout. Callers must surface it as
// a transient internal failure, never as an invalid token.
var ErrStoreUnavailable = errors.New("session store unavailable")

// ErrRecordNotFound is returned when no refresh record exists for a jti.
var ErrRecordNotFound = errors.New("refresh record not found")

// ErrRecordMismatch is returned when the presented token's user or session
// identifiers do not match the stored record.
var ErrRecordMismatch = errors.New("refresh record mismatch")

// ErrRefreshReuse is returned when a jti that was already rotated is
// presented again. The caller is expected to revoke the whole family.
var ErrRefreshReuse = errors.New("refresh token reuse detected")

const (
	rotateStatusNotFound int64 = 0
	rotateStatusMismatch int64 = 1
	rotateStatusReuse    int64 = 2
	rotateStatusRotated  int64 = 3
)

// Record is the server-side bookkeeping entry for one refresh token
// instance, keyed by jti.
type Record struct {
	UserID    int64
	SID       string
	ExpiresAt int64
	Rotated   bool
}

const rotateRecordScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return {0}
end
local uid = redis.call("HGET", KEYS[1], "uid")
local sid = redis.call("HGET", KEYS[1], "sid")
if uid ~= ARGV[1] or sid ~= ARGV[2] then
  return {1}
end
if redis.call("HGET", KEYS[1], "rotated") == "1" then
  return {2}
end
redis.call("HSET", KEYS[1], "rotated", "1")
local exp = tonumber(redis.call("HGET", KEYS[1], "exp"))
local remain = exp - tonumber(ARGV[3])
if remain < 1 then
  remain = 1
end
redis.call("EXPIRE", KEYS[1], remain)
return {3, exp}
`

var rotateRecordLua = redis.NewScript(rotateRecordScript)

const deleteRecordScript = `
redis.call("DEL", KEYS[1])
redis.call("LREM", KEYS[2], 0, ARGV[1])
if redis.call("LLEN", KEYS[2]) == 0 then
  redis.call("DEL", KEYS[2])
end
return 1
`

var deleteRecordLua = redis.NewScript(deleteRecordScript)

const revokeFamilyScript = `
local members = redis.call("LRANGE", KEYS[1], 0, -1)
for _, jti in ipairs(members) do
  redis.call("DEL", ARGV[1] .. jti)
end
redis.call("DEL", KEYS[1])
return #members
`

var revokeFamilyLua = redis.NewScript(revokeFamilyScript)

// Store holds refresh records and session families in a shared Redis
// instance. Every server instance must consult the same store: a session may
// rotate on any of them.
type Store struct {
	redis     *redis.Client
	prefix    string
	opTimeout time.Duration
}

// NewStore wraps a Redis client. prefix namespaces all keys; opTimeout
// bounds every store operation (0 selects a 3s default).
func NewStore(client *redis.Client, prefix string, opTimeout time.Duration) *Store {
	if opTimeout <= 0 {
		opTimeout = 3 * time.Second
	}
	return &Store{
		redis:     client,
		prefix:    prefix,
		opTimeout: opTimeout,
	}
}

func (s *Store) recordKey(jti string) string {
	return s.prefix + "refresh-record:" + jti
}

func (s *Store) familyKey(sid string) string {
	return s.prefix + "session-family:" + sid
}

func (s *Store) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.opTimeout)
}

// Create persists a new ACTIVE record for jti and appends jti to its
// session family. Both keys expire at the record's absolute deadline.
//
//	Performance: 4 Redis commands in one transaction.
func (s *Store) Create(ctx context.Context, jti string, rec Record) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	recordKey := s.recordKey(jti)
	familyKey := s.familyKey(rec.SID)
	deadline := time.Unix(rec.ExpiresAt, 0)

	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, recordKey,
			"uid", strconv.FormatInt(rec.UserID, 10),
			"sid", rec.SID,
			"exp", strconv.FormatInt(rec.ExpiresAt, 10),
			"rotated", boolField(rec.Rotated),
		)
		pipe.ExpireAt(ctx, recordKey, deadline)
		pipe.RPush(ctx, familyKey, jti)
		pipe.ExpireAt(ctx, familyKey, deadline)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return nil
}

// Get retrieves the record for a jti, or [ErrRecordNotFound].
func (s *Store) Get(ctx context.Context, jti string) (*Record, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	fields, err := s.redis.HGetAll(ctx, s.recordKey(jti)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if len(fields) == 0 {
		return nil, ErrRecordNotFound
	}

	return parseRecord(fields)
}

// MarkRotated atomically transitions the record for jti from ACTIVE to
// SPENT, keeping the remaining TTL (at least one second). The userID/sid
// pair must match the stored record. Exactly one of N concurrent calls for
// the same jti succeeds; the rest observe [ErrRefreshReuse].
//
//	Performance: 1 Lua round-trip.
func (s *Store) MarkRotated(ctx context.Context, jti string, userID int64, sid string) (*Record, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	result, err := rotateRecordLua.Run(
		ctx,
		s.redis,
		[]string{s.recordKey(jti)},
		strconv.FormatInt(userID, 10),
		sid,
		time.Now().Unix(),
	).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	parts, ok := result.([]interface{})
	if !ok || len(parts) == 0 {
		return nil, fmt.Errorf("%w: invalid rotate script response", ErrStoreUnavailable)
	}

	code, ok := parts[0].(int64)
	if !ok {
		return nil, fmt.Errorf("%w: invalid rotate script status", ErrStoreUnavailable)
	}

	switch code {
	case rotateStatusNotFound:
		return nil, ErrRecordNotFound
	case rotateStatusMismatch:
		return nil, ErrRecordMismatch
	case rotateStatusReuse:
		return nil, ErrRefreshReuse
	case rotateStatusRotated:
		if len(parts) < 2 {
			return nil, fmt.Errorf("%w: missing rotate script payload", ErrStoreUnavailable)
		}
		exp, ok := parts[1].(int64)
		if !ok {
			return nil, fmt.Errorf("%w: invalid rotate script payload", ErrStoreUnavailable)
		}
		return &Record{
			UserID:    userID,
			SID:       sid,
			ExpiresAt: exp,
			Rotated:   true,
		}, nil
	default:
		return nil, fmt.Errorf("%w: unknown rotate script status", ErrStoreUnavailable)
	}
}

// Delete removes the record for jti and prunes it from its family list,
// deleting the list once empty. Deleting an absent record is not an error.
//
//	Performance: 1 Lua round-trip.
func (s *Store) Delete(ctx context.Context, jti, sid string) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	err := deleteRecordLua.Run(
		ctx,
		s.redis,
		[]string{s.recordKey(jti), s.familyKey(sid)},
		jti,
	).Err()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return nil
}

// RevokeFamily deletes every record listed under sid and the family list
// itself, invalidating the whole session at once. Returns the number of
// members removed.
//
//	Performance: 1 Lua round-trip.
func (s *Store) RevokeFamily(ctx context.Context, sid string) (int64, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	count, err := revokeFamilyLua.Run(
		ctx,
		s.redis,
		[]string{s.familyKey(sid)},
		s.prefix+"refresh-record:",
	).Int64()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return count, nil
}

// FamilyMembers returns every jti ever issued in the session, in issuance
// order. An unknown sid yields an empty slice.
func (s *Store) FamilyMembers(ctx context.Context, sid string) ([]string, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	members, err := s.redis.LRange(ctx, s.familyKey(sid), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return members, nil
}

// Ping verifies store reachability. Intended for startup health checks.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	if err := s.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func parseRecord(fields map[string]string) (*Record, error) {
	uid, err := strconv.ParseInt(fields["uid"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: corrupt uid field", ErrStoreUnavailable)
	}
	exp, err := strconv.ParseInt(fields["exp"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: corrupt exp field", ErrStoreUnavailable)
	}
	return &Record{
		UserID:    uid,
		SID:       fields["sid"],
		ExpiresAt: exp,
		Rotated:   fields["rotated"] == "1",
	}, nil
}

func boolField(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
