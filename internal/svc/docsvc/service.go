package docsvc

import (
	"context"
	"errors"
	"io"

	"github.com/yusufsyaifudin/pdfmailer/internal/svc/docrepo"
)

var (
	ErrValidation   = errors.New("validation error")
	ErrNoFile       = errors.New("no file uploaded")
	ErrNotPDF       = errors.New("only pdf file is allowed")
	ErrTooLarge     = errors.New("file too large")
	ErrNotFound     = errors.New("pdf not found")
	ErrNoRecipients = errors.New("recipients are required")
	ErrFileMissing  = errors.New("pdf file not found on server")
)

// Service manages pdf uploaded by users and sends them to ad-hoc recipients.
type Service interface {
	Upload(ctx context.Context, in InputUpload) (out OutUpload, err error)
	List(ctx context.Context, in InputList) (out OutList, err error)
	Get(ctx context.Context, in InputGet) (out OutGet, err error)
	Delete(ctx context.Context, in InputDelete) (out OutDelete, err error)
	Send(ctx context.Context, in InputSend) (out OutSend, err error)
}

type InputUpload struct {
	OwnerID      int64     `validate:"required"`
	OriginalName string    `validate:"-"`
	Content      io.Reader `validate:"-"`
}

type OutUpload struct {
	Document docrepo.Document
}

type InputList struct {
	OwnerID int64 `validate:"required"`
}

type OutList struct {
	Documents []docrepo.Document
}

type InputGet struct {
	OwnerID int64 `validate:"required"`
	ID      int64 `validate:"required"`
}

type OutGet struct {
	Document docrepo.Document
}

type InputDelete struct {
	OwnerID int64 `validate:"required"`
	ID      int64 `validate:"required"`
}

type OutDelete struct {
	Document docrepo.Document
}

type Recipient struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	PAN   string `json:"pan"`
	PAN1  string `json:"pan1"`
}

// FailedRecipient is recipient which mail is not accepted, Error is the reason.
type FailedRecipient struct {
	Recipient
	Error string `json:"error"`
}

type InputSend struct {
	OwnerID    int64       `validate:"required"`
	OwnerName  string      `validate:"-"`
	DocumentID int64       `validate:"-"`
	Recipients []Recipient `validate:"-"`
}

type OutSend struct {
	Success []Recipient
	Failed  []FailedRecipient
}
