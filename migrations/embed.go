// Package migrations holds the SQL schema applied by golang-migrate when MIGRATIONS is set.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
