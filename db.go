package calygo

import "io/fs"

type Database interface {
	Close() error
	Migrate(migrations fs.FS) error
}
