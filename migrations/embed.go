// Package migrations embeds the SQL schema migrations of every supported
// server database. sqlite is created from the GORM models instead.
package migrations

import "embed"

// FS holds postgres/*.sql and mysql/*.sql
//
//go:embed postgres/*.sql mysql/*.sql
var FS embed.FS
