// Package migrations holds the numbered schema files for the record and
// ingest run tables.
package migrations

import "embed"

// FS holds the *.up.sql and *.down.sql files, applied in version order.
//
//go:embed *.sql
var FS embed.FS
