package dispatchsvc

import (
	"context"
	"time"

	"github.com/yusufsyaifudin/pdfmailer/internal/svc/pdfresolver"
)

// Service sends pdf documents found on disk to recipients identified by PAN and/or PAN1.
type Service interface {
	// SendOne is ad-hoc single recipient send, every negative outcome is also returned as error.
	SendOne(ctx context.Context, in InputSendOne) (out OutSendOne, err error)

	// RunBatch validates all recipients upfront, then sends to each of them sequentially.
	// Error is only returned when validation fails, in that case nothing is sent.
	RunBatch(ctx context.Context, in InputRunBatch) (out OutRunBatch, err error)

	// SendPlain sends message without attachment.
	SendPlain(ctx context.Context, in InputSendPlain) (out OutSendPlain, err error)
}

type Status string

const (
	StatusSent   Status = "Sent"
	StatusFailed Status = "Failed"
	StatusError  Status = "Error"
)

// Recipient of a pdf mail. PAN is looked up in primary directory, PAN1 in secondary directory.
type Recipient struct {
	Email string
	Name  string
	PAN   string
	PAN1  string
}

// Outcome is the final state of one recipient in a batch.
type Outcome struct {
	Recipient   Recipient
	Status      Status
	Detail      string
	Attachments []pdfresolver.Match
	FinishedAt  time.Time
}

// Report is built once the batch is done. Outcomes follow input order.
type Report struct {
	Outcomes    []Outcome
	SentCount   int
	FailedCount int
}

// Observer receives each outcome as soon as it is final, index is the recipient position in input.
type Observer func(index int, outcome Outcome)

type InputSendOne struct {
	Recipient Recipient
}

type OutSendOne struct {
	Outcome Outcome
}

type InputRunBatch struct {
	Recipients []Recipient `validate:"-"`
	Observer   Observer    `validate:"-"`
}

type OutRunBatch struct {
	Report Report
}

type InputSendPlain struct {
	Email   string `validate:"required,email"`
	Subject string `validate:"notblank"`
	Text    string `validate:"notblank"`
}

type OutSendPlain struct {
	Recipient string
}
