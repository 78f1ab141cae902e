// Package multidb opens every labeled database in databaseResources config.
package multidb

import (
	"io"

	"github.com/jmoiron/sqlx"
)

type Driver string

func (d Driver) String() string {
	return string(d)
}

// Postgres is the only supported driver, the lib/pq driver is registered by this package.
const Postgres Driver = "postgres"

type GoSqlDb struct {
	Debug bool   // log every query through ylog.Debug
	DSN   string // Data Source Name
}

type DatabaseResource struct {
	Disable bool
	Driver  Driver

	Postgres GoSqlDb
}

type DatabaseResources map[string]DatabaseResource

type MultiDB interface {
	GetSqlx(driver Driver, key string) (*sqlx.DB, error)
	io.Closer
}
