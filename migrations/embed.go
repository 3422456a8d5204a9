// Package migrations embeds the SQL migration files into the binary so the
// daemon can initialise its schema without the files being present on disk.
package migrations

import (
	"embed"

	"github.com/nerrad567/gray-logic-osd/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "." // Files are at root of embedded FS
}
