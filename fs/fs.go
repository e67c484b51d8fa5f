// Package appfs embeds the SQL migrations, email/page templates and other assets into the binary.
package appfs

import "embed"

//go:embed migrations all:assets
var FS embed.FS
