// Package middleware provides net/http handler wrappers around the engine:
// an authentication guard that populates an immutable identity context
// value, and a permission gate that checks one required key per wrap.
package middleware
