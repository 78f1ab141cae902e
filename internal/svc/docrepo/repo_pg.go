package docrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/yusufsyaifudin/pdfmailer/pkg/tracer"
	"github.com/yusufsyaifudin/pdfmailer/pkg/validator"
	"go.opentelemetry.io/otel/trace"
)

const (
	sqlCreateDocument = `INSERT INTO documents (id, owner_id, filename, original_name, path, size, created_at) 
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING *;`

	sqlGetDocument      = `SELECT * FROM documents WHERE id = $1 AND owner_id = $2 LIMIT 1;`
	sqlListDocuments    = `SELECT * FROM documents WHERE owner_id = $1 ORDER BY created_at DESC, id DESC;`
	sqlDeleteDocument   = `DELETE FROM documents WHERE id = $1 AND owner_id = $2 RETURNING *;`
	sqlListRecipients   = `SELECT * FROM document_recipients WHERE document_id = ANY($1) ORDER BY sent_at ASC, id ASC;`
	sqlInsertRecipients = `INSERT INTO document_recipients (id, document_id, email, name, pan, pan1, status, sent_at) 
		VALUES (:id, :document_id, :email, :name, :pan, :pan1, :status, :sent_at);`
)

type RepoPostgresConfig struct {
	Connection sqlx.ExtContext `validate:"required"`
}

type RepoPostgres struct {
	Config RepoPostgresConfig
}

var _ Repo = (*RepoPostgres)(nil)

// Postgres return repo interface which implements using PgSQL
func Postgres(conf RepoPostgresConfig) (repo *RepoPostgres, err error) {
	err = validator.Validate(conf)
	if err != nil {
		return nil, err
	}

	repo = &RepoPostgres{
		Config: conf,
	}
	return
}

func (p *RepoPostgres) Create(ctx context.Context, in InputCreate) (out OutCreate, err error) {
	var span trace.Span
	ctx, span = tracer.StartSpan(ctx, "docrepo.Create")
	defer span.End()

	err = validator.Validate(in)
	if err != nil {
		err = fmt.Errorf("%w: %s", ErrValidation, err)
		return
	}

	doc := in.Document
	inserted := Document{}
	err = sqlx.GetContext(ctx, p.Config.Connection, &inserted, sqlCreateDocument,
		doc.ID, doc.OwnerID, doc.Filename, doc.OriginalName, doc.Path, doc.Size, doc.CreatedAt,
	)
	if err != nil {
		err = fmt.Errorf("insert document: %w", err)
		return
	}

	inserted.Recipients = make([]Recipient, 0)
	out = OutCreate{
		Document: inserted,
	}
	return
}

func (p *RepoPostgres) GetByID(ctx context.Context, in InputGetByID) (out OutGetByID, err error) {
	var span trace.Span
	ctx, span = tracer.StartSpan(ctx, "docrepo.GetByID")
	defer span.End()

	err = validator.Validate(in)
	if err != nil {
		err = fmt.Errorf("%w: %s", ErrValidation, err)
		return
	}

	doc := Document{}
	err = sqlx.GetContext(ctx, p.Config.Connection, &doc, sqlGetDocument, in.ID, in.OwnerID)
	if errors.Is(err, sql.ErrNoRows) {
		err = fmt.Errorf("%w: id %d", ErrNotFound, in.ID)
		return
	}

	if err != nil {
		err = fmt.Errorf("get document: %w", err)
		return
	}

	docs, err := p.withRecipients(ctx, []Document{doc})
	if err != nil {
		return
	}

	out = OutGetByID{
		Document: docs[0],
	}
	return
}

func (p *RepoPostgres) ListByOwner(ctx context.Context, in InputListByOwner) (out OutListByOwner, err error) {
	var span trace.Span
	ctx, span = tracer.StartSpan(ctx, "docrepo.ListByOwner")
	defer span.End()

	err = validator.Validate(in)
	if err != nil {
		err = fmt.Errorf("%w: %s", ErrValidation, err)
		return
	}

	docs := make([]Document, 0)
	err = sqlx.SelectContext(ctx, p.Config.Connection, &docs, sqlListDocuments, in.OwnerID)
	if err != nil {
		err = fmt.Errorf("list documents: %w", err)
		return
	}

	docs, err = p.withRecipients(ctx, docs)
	if err != nil {
		return
	}

	out = OutListByOwner{
		Documents: docs,
	}
	return
}

func (p *RepoPostgres) Delete(ctx context.Context, in InputDelete) (out OutDelete, err error) {
	var span trace.Span
	ctx, span = tracer.StartSpan(ctx, "docrepo.Delete")
	defer span.End()

	err = validator.Validate(in)
	if err != nil {
		err = fmt.Errorf("%w: %s", ErrValidation, err)
		return
	}

	// recipients are removed by ON DELETE CASCADE
	deleted := Document{}
	err = sqlx.GetContext(ctx, p.Config.Connection, &deleted, sqlDeleteDocument, in.ID, in.OwnerID)
	if errors.Is(err, sql.ErrNoRows) {
		err = fmt.Errorf("%w: id %d", ErrNotFound, in.ID)
		return
	}

	if err != nil {
		err = fmt.Errorf("delete document: %w", err)
		return
	}

	out = OutDelete{
		Document: deleted,
	}
	return
}

func (p *RepoPostgres) AddRecipients(ctx context.Context, in InputAddRecipients) (out OutAddRecipients, err error) {
	var span trace.Span
	ctx, span = tracer.StartSpan(ctx, "docrepo.AddRecipients")
	defer span.End()

	err = validator.Validate(in)
	if err != nil {
		err = fmt.Errorf("%w: %s", ErrValidation, err)
		return
	}

	recipients := make([]Recipient, 0, len(in.Recipients))
	for _, r := range in.Recipients {
		r.DocumentID = in.DocumentID
		recipients = append(recipients, r)
	}

	// sqlx expands slice of struct into multi rows VALUES
	_, err = sqlx.NamedExecContext(ctx, p.Config.Connection, sqlInsertRecipients, recipients)
	if err != nil {
		err = fmt.Errorf("insert document recipients: %w", err)
		return
	}

	out = OutAddRecipients{
		Recipients: recipients,
	}
	return
}

func (p *RepoPostgres) withRecipients(ctx context.Context, docs []Document) ([]Document, error) {
	if len(docs) == 0 {
		return docs, nil
	}

	ids := make(pq.Int64Array, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}

	recipients := make([]Recipient, 0)
	err := sqlx.SelectContext(ctx, p.Config.Connection, &recipients, sqlListRecipients, ids)
	if err != nil {
		return nil, fmt.Errorf("list document recipients: %w", err)
	}

	return attachRecipients(docs, recipients), nil
}

// attachRecipients groups recipients into its document, keeping recipients order.
func attachRecipients(docs []Document, recipients []Recipient) []Document {
	byDoc := make(map[int64][]Recipient, len(docs))
	for _, r := range recipients {
		byDoc[r.DocumentID] = append(byDoc[r.DocumentID], r)
	}

	out := make([]Document, 0, len(docs))
	for _, d := range docs {
		d.Recipients = byDoc[d.ID]
		if d.Recipients == nil {
			d.Recipients = make([]Recipient, 0)
		}

		out = append(out, d)
	}

	return out
}
