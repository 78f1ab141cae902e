package container

import (
	"fmt"
	"io"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/yusufsyaifudin/pdfmailer/internal/svc/docrepo"
	"github.com/yusufsyaifudin/pdfmailer/internal/svc/userrepo"
	"github.com/yusufsyaifudin/pdfmailer/pkg/multidb"
	"github.com/yusufsyaifudin/pdfmailer/pkg/validator"
	"go.uber.org/multierr"
)

// Repositories is an abstraction layer to list down all repositories.
// This only will connect and save the repository.
// To use this, you must select the db label based on config file
type Repositories interface {
	io.Closer

	SQL(dbLabel string) (*sqlx.DB, error)
	DocRepo(dbLabel string) (docrepo.Repo, error)
	UserRepo(dbLabel string) (userrepo.Repo, error)
}

// RepositoryImpl the real implementation of Repositories
type RepositoryImpl struct {
	dbResourceMap ConfigDatabaseResources `validate:"required,structonly"`
	dbSqlConn     multidb.MultiDB         `validate:"required"` // all database connection
}

// Ensure that RepositoryImpl implements RepositoryImpl
var _ Repositories = (*RepositoryImpl)(nil)

// SetupRepositories return pointer because it heavily used.
// The returned value must be closed by caller once the application stops.
func SetupRepositories(conf ConfigDatabaseResources) (*RepositoryImpl, error) {
	sqlDbConfig := multidb.DatabaseResources{}
	resources := ConfigDatabaseResources{}
	for name, conn := range conf {
		resources[normalizeLabel(name)] = conn
		sqlDbConfig[name] = multidb.DatabaseResource{
			Disable:  conn.Disable,
			Driver:   multidb.Driver(conn.Driver),
			Postgres: multidb.GoSqlDb(conn.Postgres),
		}
	}

	dbSqlConn, err := multidb.NewSqlDbConnMaker(multidb.SqlDbConnMakerConfig{Config: sqlDbConfig})
	if err != nil {
		return nil, err
	}

	dep := &RepositoryImpl{
		dbResourceMap: resources,
		dbSqlConn:     dbSqlConn,
	}

	err = validator.Validate(dep)
	if err != nil {
		return nil, err
	}

	return dep, nil
}

// SQL returns the raw connection of dbLabel, i.e: for running migration.
func (r *RepositoryImpl) SQL(dbLabel string) (*sqlx.DB, error) {
	repoConnInfo, ok := r.dbResourceMap[normalizeLabel(dbLabel)]
	if !ok {
		return nil, fmt.Errorf("unknown database key %s", dbLabel)
	}

	switch sqlDriver := multidb.Driver(repoConnInfo.Driver); sqlDriver {
	case multidb.Postgres:
		return r.dbSqlConn.GetSqlx(sqlDriver, dbLabel)
	default:
		return nil, fmt.Errorf("not supported db driver '%s' on label '%s'", sqlDriver, dbLabel)
	}
}

// DocRepo return docrepo.Repo and return error when connection is closed or nil.
func (r *RepositoryImpl) DocRepo(dbLabel string) (repo docrepo.Repo, err error) {
	sqlConn, err := r.SQL(dbLabel)
	if err != nil {
		err = fmt.Errorf("docRepo: %w", err)
		return
	}

	repo, err = docrepo.Postgres(docrepo.RepoPostgresConfig{
		Connection: sqlConn,
	})
	return
}

func (r *RepositoryImpl) UserRepo(dbLabel string) (repo userrepo.Repo, err error) {
	sqlConn, err := r.SQL(dbLabel)
	if err != nil {
		err = fmt.Errorf("userRepo: %w", err)
		return
	}

	repo, err = userrepo.Postgres(userrepo.RepoPostgresConfig{
		Connection: sqlConn,
	})
	return
}

// Close will close all dependencies.
func (r *RepositoryImpl) Close() error {
	if r == nil {
		return nil
	}

	if r.dbSqlConn == nil {
		return nil
	}

	var err error
	if _err := r.dbSqlConn.Close(); _err != nil {
		err = multierr.Append(err, fmt.Errorf("close db error: %w", _err))
	}

	return err
}

func normalizeLabel(label string) string {
	return strings.TrimSpace(strings.ToLower(label))
}
