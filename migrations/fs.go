// Package migrations embeds the checkout service's SQL schema migrations.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
