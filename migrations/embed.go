// Package migrations embeds the schema files so tooling and tests can
// apply them without a checkout.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
