// Package permission holds the fixed permission catalog, the resolver that
// computes a user's effective permission set from role memberships, and the
// set type used for authorization checks.
//
// Keys are flat strings from a compile-time catalog; grouping exists only
// for display. Unknown keys are rejected when they are assigned to a role,
// never at check time.
package permission
