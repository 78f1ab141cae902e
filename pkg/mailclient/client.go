package mailclient

import (
	"context"
	"fmt"
	"io"
)

// Transport opens a Session. The credential is bound to the Transport, not to each call.
type Transport interface {
	Open(ctx context.Context) (Session, error)
}

// Session sends mails one by one over the same underlying connection.
// Session is not safe to be driven concurrently, and must be closed by whoever opened it.
type Session interface {
	io.Closer
	Send(ctx context.Context, mail Mail) error
}

// TransportError is returned when the mail server (or the way to reach it) rejects the message.
// Any other error from Send means the message was never handed to the server, i.e: attachment cannot be read.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("smtp %s: %s", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func transportErr(op string, err error) error {
	if err == nil {
		return nil
	}

	return &TransportError{Op: op, Err: err}
}
