// Package migrations embeds the SQL schema migrations for the Postgres
// document store, applied with goose.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
