package docrepo

import (
	"context"
	"errors"
)

var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("document not found")
)

// Repo is stored document repository. Every read and delete is scoped to the owner.
type Repo interface {
	Create(ctx context.Context, in InputCreate) (out OutCreate, err error)
	GetByID(ctx context.Context, in InputGetByID) (out OutGetByID, err error)
	ListByOwner(ctx context.Context, in InputListByOwner) (out OutListByOwner, err error)
	Delete(ctx context.Context, in InputDelete) (out OutDelete, err error)
	AddRecipients(ctx context.Context, in InputAddRecipients) (out OutAddRecipients, err error)
}

type InputCreate struct {
	Document Document `validate:"required"`
}

type OutCreate struct {
	Document Document
}

type InputGetByID struct {
	ID      int64 `validate:"required"`
	OwnerID int64 `validate:"required"`
}

type OutGetByID struct {
	Document Document
}

type InputListByOwner struct {
	OwnerID int64 `validate:"required"`
}

// OutListByOwner documents are sorted newest first.
type OutListByOwner struct {
	Documents []Document
}

type InputDelete struct {
	ID      int64 `validate:"required"`
	OwnerID int64 `validate:"required"`
}

type OutDelete struct {
	Document Document
}

type InputAddRecipients struct {
	DocumentID int64       `validate:"required"`
	Recipients []Recipient `validate:"required,min=1"`
}

type OutAddRecipients struct {
	Recipients []Recipient
}
