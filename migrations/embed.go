// Package migrations embeds the command audit schema into the binary, so
// a fresh deployment only needs a writable database path.
//
// Import it for side effects:
//
//	import _ "github.com/nerrad567/cast-bridge/migrations"
package migrations

import (
	"embed"

	"github.com/nerrad567/cast-bridge/internal/infrastructure/database"
)

//go:embed *.sql
var files embed.FS

func init() {
	database.RegisterMigrations(files)
}
