package userrepo

import (
	"context"
	"errors"
)

var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("user not found")
	ErrDuplicate  = errors.New("user already exists")
)

type Repo interface {
	Create(ctx context.Context, in InputCreate) (out OutCreate, err error)
	GetByEmail(ctx context.Context, in InputGetByEmail) (out OutGetByEmail, err error)
	GetByID(ctx context.Context, in InputGetByID) (out OutGetByID, err error)
}

type InputCreate struct {
	User User `validate:"required"`
}

type OutCreate struct {
	User User
}

type InputGetByEmail struct {
	Email string `validate:"required,email"`
}

type OutGetByEmail struct {
	User User
}

type InputGetByID struct {
	ID int64 `validate:"required"`
}

type OutGetByID struct {
	User User
}
