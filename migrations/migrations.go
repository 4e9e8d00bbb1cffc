// Package migrations embeds the versioned SQL schema for the announcement ledger.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
