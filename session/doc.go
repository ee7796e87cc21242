// Package session provides the Redis-backed bookkeeping behind refresh-token
// rotation: one record per token instance (jti) and one family list per login
// session (sid).
//
// # Key layout
//
//	<prefix>refresh-record:<jti>   HASH {uid, sid, exp, rotated}, TTL-bound
//	<prefix>session-family:<sid>   LIST [jti, ...] in issuance order, TTL-bound
//
// # Atomicity
//
// The check-and-mark step of rotation is a single Lua script, so two
// concurrent rotations of the same jti cannot both observe rotated=0; exactly
// one wins and the other surfaces as [ErrRefreshReuse]. Family revocation and
// record deletion are likewise scripted so the record and its family entry
// never diverge.
//
// # Architecture boundaries
//
// This package owns Redis operations and the [Record] model. It does NOT
// interpret JWT tokens, resolve permissions, or decide what a reuse event
// means — those responsibilities belong to the Engine.
//
// # What this package must NOT do
//
//   - Import greenauth, jwt, or permission (no upward imports).
//   - Store token strings; only identifiers and flags live here.
package session
