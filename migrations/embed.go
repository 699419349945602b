// Package migrations holds the SQL schema of the operation history database
package migrations

import "embed"

// FS contains the *.sql migrations
//
//go:embed *.sql
var FS embed.FS
