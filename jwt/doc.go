// Package jwt issues and verifies the two token classes used by greenauth:
// short-lived access tokens carrying an identity snapshot, and long-lived
// refresh tokens carrying the session (sid) and token (jti) identifiers.
// The two classes are signed with separate HS256 secrets so a leaked access
// secret cannot be used to mint refresh tokens.
package jwt
