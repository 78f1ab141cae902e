package multidb

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	sqldblogger "github.com/simukti/sqldb-logger"
	"github.com/yusufsyaifudin/pdfmailer/pkg/validator"
	"go.uber.org/multierr"
)

type SqlDbConnMakerConfig struct {
	Config DatabaseResources `validate:"required"`
}

type SqlDbConnMaker struct {
	conf     DatabaseResources
	disabled map[string]struct{} // list of disabled databases, using struct for minimal memory footprint
	dbSQL    map[string]*sqlx.DB // db key name => real connection
	dbDriver map[string]Driver   // db key name => driver name
	closer   []string    // label in opening order, used to close and to name close error
}

var _ MultiDB = (*SqlDbConnMaker)(nil)

// NewSqlDbConnMaker open every enabled database. Connection is opened lazily by database/sql,
// so it does not fail when database is unreachable.
func NewSqlDbConnMaker(conf SqlDbConnMakerConfig) (*SqlDbConnMaker, error) {
	err := validator.Validate(conf)
	if err != nil {
		err = fmt.Errorf("sql db connection maker failed: %w", err)
		return nil, err
	}

	instance := &SqlDbConnMaker{
		conf:     conf.Config,
		disabled: make(map[string]struct{}),
		dbSQL:    make(map[string]*sqlx.DB),
		dbDriver: make(map[string]Driver),
		closer:   make([]string, 0),
	}

	err = instance.connect()
	if err != nil {
		// close previous opened connection if error happen
		if _err := instance.Close(); _err != nil {
			err = fmt.Errorf("close db sql error: %w: %s", err, _err)
		}

		return nil, err
	}

	return instance, nil
}

func (i *SqlDbConnMaker) GetSqlx(driver Driver, key string) (*sqlx.DB, error) {
	key = normalizeLabel(key)
	_, exists := i.disabled[key]
	if exists {
		return nil, fmt.Errorf("db with key '%s' is disabled", key)
	}

	dbConnection, ok := i.dbSQL[key]
	if !ok {
		return nil, fmt.Errorf("key '%s' is not exist on db list", key)
	}

	registeredDriver, ok := i.dbDriver[key]
	if ok && driver == registeredDriver {
		return dbConnection, nil
	}

	return nil, fmt.Errorf("db key '%s' not using driver %s", key, driver)
}

func (i *SqlDbConnMaker) Close() error {
	var err error
	for _, label := range i.closer {
		db, ok := i.dbSQL[label]
		if !ok || db == nil {
			continue
		}

		if _err := db.Close(); _err != nil {
			err = multierr.Append(err, fmt.Errorf("(%s) %w", label, _err))
		}
	}

	return err
}

func (i *SqlDbConnMaker) connect() error {
	for dbLabel, dbConfig := range i.conf {
		dbLabel = normalizeLabel(dbLabel)
		if err := validator.Var(dbLabel, "required,alphanum"); err != nil {
			err = fmt.Errorf("error connecting to database dbLabel '%s': %w", dbLabel, err)
			return err
		}

		if dbConfig.Disable {
			i.disabled[dbLabel] = struct{}{}
			continue
		}

		var sqlxConn *sqlx.DB
		switch dbConfig.Driver {
		case Postgres:
			db, err := openSQL(dbLabel, dbConfig.Driver, dbConfig.Postgres)
			if err != nil {
				return err
			}

			sqlxConn = sqlx.NewDb(db, dbConfig.Driver.String())

		default:
			return fmt.Errorf("not supported driver '%s' on db label '%s'", dbConfig.Driver, dbLabel)
		}

		i.dbSQL[dbLabel] = sqlxConn
		i.dbDriver[dbLabel] = dbConfig.Driver
		i.closer = append(i.closer, dbLabel)
	}

	return nil
}

func openSQL(dbLabel string, driver Driver, conf GoSqlDb) (*sql.DB, error) {
	db, err := sql.Open(driver.String(), conf.DSN)
	if err != nil {
		err = fmt.Errorf("cannot open db connection '%s': %w", dbLabel, err)
		return nil, err
	}

	if !conf.Debug {
		return db, nil
	}

	// re-open using the same driver, wrapped with query logger
	driverImpl := db.Driver()
	if err = db.Close(); err != nil {
		err = fmt.Errorf("cannot reopen db connection '%s' for debugging: %w", dbLabel, err)
		return nil, err
	}

	return sqldblogger.OpenDriver(conf.DSN, driverImpl, &QueryLogger{Label: dbLabel},
		sqldblogger.WithConnectionIDFieldname(dbLabel),
	), nil
}

func normalizeLabel(label string) string {
	return strings.TrimSpace(strings.ToLower(label))
}
