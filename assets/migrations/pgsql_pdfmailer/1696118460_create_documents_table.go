package pgsql_pdfmailer

import (
	"context"
	"fmt"

	"github.com/yusufsyaifudin/pdfmailer/pkg/tracer"
)

// CreateDocumentsTable1696118460 is struct to define a migration with ID 1696118460_create_documents_table
type CreateDocumentsTable1696118460 struct{}

// ID return unique identifier for each migration. The prefix is unix time when this migration is created.
func (m CreateDocumentsTable1696118460) ID(ctx context.Context) string {
	_, span := tracer.StartSpan(ctx, "CreateDocumentsTable1696118460.ID")
	defer span.End()

	return fmt.Sprintf("%d_%s.sql", m.SequenceNumber(ctx), "create_documents_table")
}

func (m CreateDocumentsTable1696118460) SequenceNumber(_ context.Context) int {
	return 1696118460
}

// Up return sql migration for sync database
func (m CreateDocumentsTable1696118460) Up(ctx context.Context) (sql string, err error) {
	_, span := tracer.StartSpan(ctx, "CreateDocumentsTable1696118460.Up")
	defer span.End()

	sql = `
CREATE TABLE IF NOT EXISTS documents (
	id BIGINT NOT NULL PRIMARY KEY,
	owner_id BIGINT NOT NULL,
	filename VARCHAR NOT NULL,
	original_name VARCHAR NOT NULL DEFAULT '',
	path VARCHAR NOT NULL,
	size BIGINT NOT NULL DEFAULT 0,
	created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now(),

	-- data integrity
	CONSTRAINT fk_documents_owner_id FOREIGN KEY(owner_id) REFERENCES users(id) ON DELETE CASCADE
);

-- for faster query WHERE owner_id = ? ORDER BY created_at DESC
CREATE INDEX IF NOT EXISTS idx_documents_owner_id_created_at ON documents (owner_id, created_at DESC);
`
	return
}

// Down return sql migration for rollback database
func (m CreateDocumentsTable1696118460) Down(ctx context.Context) (sql string, err error) {
	_, span := tracer.StartSpan(ctx, "CreateDocumentsTable1696118460.Down")
	defer span.End()

	sql = `DROP TABLE IF EXISTS documents;`
	return
}
