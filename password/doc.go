// Package password provides the default bcrypt implementation of the
// credential-verification contract. The engine only depends on the Verify
// signature; deployments with an existing hash format can substitute their
// own verifier.
package password
