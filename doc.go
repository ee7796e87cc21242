// Package greenauth is the authentication and authorization core of the
// greenhouse backend: signed access/refresh token issuance, refresh-token
// rotation with reuse detection and family revocation, and role-based
// permission resolution against a fixed catalog.
//
// The package is designed for concurrent server workloads: [Engine] methods
// are safe to call from multiple goroutines after initialization through
// [Builder.Build]. All cross-request state lives in a shared Redis store, so
// a session may rotate on any server instance.
//
// # Architecture boundaries
//
// greenauth is the public surface. It exposes [Engine], [Builder], [Config],
// and value types ([TokenPair], [Identity], the [Error] taxonomy). Flow
// orchestration lives under internal/ and is never exported. Token encoding,
// session bookkeeping, and permission resolution live in the jwt, session,
// and permission sub-packages.
//
// # What this package must NOT do
//
//   - Expose Redis clients or store key layouts in its public API.
//   - Distinguish expired, forged, and reused tokens in client-facing
//     errors; the specific cause is visible only in server-side logs.
//   - Import any sub-package that re-imports greenauth (no import cycles).
package greenauth
