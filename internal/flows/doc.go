// Package flows contains pure-function orchestrators for the Engine's
// login, refresh-rotation, and logout operations.
//
// Each flow function accepts a typed dependency struct and returns a result
// carrying either the issued tokens or a failure kind for the root package
// to map onto its error taxonomy. This keeps the Engine type thin and lets
// every branch of the rotation state machine be unit tested with fakes.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import greenauth (to avoid import cycles).
//   - Perform I/O directly — all I/O is mediated through dependency interfaces.
package flows
