package fulfillment

import (
	"io/fs"

	"github.com/goliatone/go-shopify-fulfillment/migrations"
)

// GetMigrationsFS returns the embedded session table migrations for hosts that
// run their own migrator.
func GetMigrationsFS() fs.FS {
	return migrations.FS()
}
