// Package migrations embeds the SQL schema files so the migrate tool and
// startup routines can run them without shipping the files separately.
package migrations

import (
	"embed"

	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed *.sql
var files embed.FS

// Source returns a migrate source driver backed by the embedded files.
func Source() (source.Driver, error) {
	return iofs.New(files, ".")
}
