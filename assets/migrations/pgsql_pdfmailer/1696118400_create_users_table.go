package pgsql_pdfmailer

import (
	"context"
	"fmt"

	"github.com/yusufsyaifudin/pdfmailer/pkg/tracer"
)

// CreateUsersTable1696118400 is struct to define a migration with ID 1696118400_create_users_table
type CreateUsersTable1696118400 struct{}

// ID return unique identifier for each migration. The prefix is unix time when this migration is created.
func (m CreateUsersTable1696118400) ID(ctx context.Context) string {
	_, span := tracer.StartSpan(ctx, "CreateUsersTable1696118400.ID")
	defer span.End()

	return fmt.Sprintf("%d_%s.sql", m.SequenceNumber(ctx), "create_users_table")
}

// SequenceNumber return current time when the migration is created,
// this useful to see the current status of the migration.
func (m CreateUsersTable1696118400) SequenceNumber(_ context.Context) int {
	return 1696118400
}

// Up return sql migration for sync database
func (m CreateUsersTable1696118400) Up(ctx context.Context) (sql string, err error) {
	_, span := tracer.StartSpan(ctx, "CreateUsersTable1696118400.Up")
	defer span.End()

	sql = `
CREATE TABLE IF NOT EXISTS users (
	id BIGINT NOT NULL PRIMARY KEY,
	email VARCHAR NOT NULL,
	name VARCHAR NOT NULL DEFAULT '',
	password_hash VARCHAR NOT NULL,
	created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS unique_idx_users_email ON users (LOWER(email));
`
	return
}

// Down return sql migration for rollback database
func (m CreateUsersTable1696118400) Down(ctx context.Context) (sql string, err error) {
	_, span := tracer.StartSpan(ctx, "CreateUsersTable1696118400.Down")
	defer span.End()

	sql = `DROP TABLE IF EXISTS users;`
	return
}
