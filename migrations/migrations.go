// Package migrations embeds the goose SQL migrations for the directory
// schema: users, roles, user_roles, and role_privileges.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
