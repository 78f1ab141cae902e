package userrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/yusufsyaifudin/pdfmailer/pkg/tracer"
	"github.com/yusufsyaifudin/pdfmailer/pkg/validator"
	"go.opentelemetry.io/otel/trace"
)

const (
	sqlCreateUser     = `INSERT INTO users (id, email, name, password_hash, created_at) VALUES ($1, $2, $3, $4, $5) RETURNING *;`
	sqlGetUserByEmail = `SELECT * FROM users WHERE LOWER(email) = $1 LIMIT 1;`
	sqlGetUserByID    = `SELECT * FROM users WHERE id = $1 LIMIT 1;`

	pgUniqueViolation = "23505"
)

type RepoPostgresConfig struct {
	Connection sqlx.QueryerContext `validate:"required"`
}

type RepoPostgres struct {
	Config RepoPostgresConfig
}

var _ Repo = (*RepoPostgres)(nil)

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
	ctx, span = tracer.StartSpan(ctx, "userrepo.Create")
	defer span.End()

	err = validator.Validate(in)
	if err != nil {
		err = fmt.Errorf("%w: %s", ErrValidation, err)
		return
	}

	user := in.User
	user.Email = normalizeEmail(user.Email)

	inserted := User{}
	err = sqlx.GetContext(ctx, p.Config.Connection, &inserted, sqlCreateUser,
		user.ID, user.Email, user.Name, user.PasswordHash, user.CreatedAt,
	)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation {
		err = fmt.Errorf("%w: %s", ErrDuplicate, user.Email)
		return
	}

	if err != nil {
		err = fmt.Errorf("insert user: %w", err)
		return
	}

	out = OutCreate{
		User: inserted,
	}
	return
}

func (p *RepoPostgres) GetByEmail(ctx context.Context, in InputGetByEmail) (out OutGetByEmail, err error) {
	var span trace.Span
	ctx, span = tracer.StartSpan(ctx, "userrepo.GetByEmail")
	defer span.End()

	err = validator.Validate(in)
	if err != nil {
		err = fmt.Errorf("%w: %s", ErrValidation, err)
		return
	}

	user := User{}
	err = sqlx.GetContext(ctx, p.Config.Connection, &user, sqlGetUserByEmail, normalizeEmail(in.Email))
	if errors.Is(err, sql.ErrNoRows) {
		err = ErrNotFound
		return
	}

	if err != nil {
		err = fmt.Errorf("get user by email: %w", err)
		return
	}

	out = OutGetByEmail{
		User: user,
	}
	return
}

func (p *RepoPostgres) GetByID(ctx context.Context, in InputGetByID) (out OutGetByID, err error) {
	var span trace.Span
	ctx, span = tracer.StartSpan(ctx, "userrepo.GetByID")
	defer span.End()

	err = validator.Validate(in)
	if err != nil {
		err = fmt.Errorf("%w: %s", ErrValidation, err)
		return
	}

	user := User{}
	err = sqlx.GetContext(ctx, p.Config.Connection, &user, sqlGetUserByID, in.ID)
	if errors.Is(err, sql.ErrNoRows) {
		err = ErrNotFound
		return
	}

	if err != nil {
		err = fmt.Errorf("get user by id: %w", err)
		return
	}

	out = OutGetByID{
		User: user,
	}
	return
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}
