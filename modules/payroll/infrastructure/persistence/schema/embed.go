// Package schema embeds the goose migrations for the payroll tables.
package schema

import "embed"

//go:embed *.sql
var FS embed.FS
