package pgsql_pdfmailer

import (
	"context"
	"fmt"

	"github.com/yusufsyaifudin/pdfmailer/pkg/tracer"
)

// CreateDocumentRecipientsTable1696118520 is struct to define a migration with ID 1696118520_create_document_recipients_table
type CreateDocumentRecipientsTable1696118520 struct{}

func (m CreateDocumentRecipientsTable1696118520) ID(ctx context.Context) string {
	_, span := tracer.StartSpan(ctx, "CreateDocumentRecipientsTable1696118520.ID")
	defer span.End()

	return fmt.Sprintf("%d_%s.sql", m.SequenceNumber(ctx), "create_document_recipients_table")
}

func (m CreateDocumentRecipientsTable1696118520) SequenceNumber(_ context.Context) int {
	return 1696118520
}

// Up return sql migration for sync database
func (m CreateDocumentRecipientsTable1696118520) Up(ctx context.Context) (sql string, err error) {
	_, span := tracer.StartSpan(ctx, "CreateDocumentRecipientsTable1696118520.Up")
	defer span.End()

	sql = `
CREATE TABLE IF NOT EXISTS document_recipients (
	id BIGINT NOT NULL PRIMARY KEY,
	document_id BIGINT NOT NULL,
	email VARCHAR NOT NULL,
	name VARCHAR NOT NULL DEFAULT '',
	pan VARCHAR NOT NULL DEFAULT '',
	pan1 VARCHAR NOT NULL DEFAULT '',
	status VARCHAR NOT NULL DEFAULT 'pending',
	sent_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now(),

	CONSTRAINT fk_document_recipients_document_id FOREIGN KEY(document_id) REFERENCES documents(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_document_recipients_document_id ON document_recipients (document_id, sent_at ASC);
`
	return
}

// Down return sql migration for rollback database
func (m CreateDocumentRecipientsTable1696118520) Down(ctx context.Context) (sql string, err error) {
	_, span := tracer.StartSpan(ctx, "CreateDocumentRecipientsTable1696118520.Down")
	defer span.End()

	sql = `DROP TABLE IF EXISTS document_recipients;`
	return
}
