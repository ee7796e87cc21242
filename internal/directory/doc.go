// Package directory provides the user/role directory implementations behind
// the engine's UserDirectory contract: a Postgres-backed directory for
// production and an in-memory fake for tests and examples.
package directory
