// Package migrations embeds the versioned SQL schema migrations applied at
// startup and by the integration test helpers.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
