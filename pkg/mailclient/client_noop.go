package mailclient

import (
	"context"
	"fmt"
	"io"

	"github.com/yusufsyaifudin/ylog"
)

// NoopMailer is dry-run Transport: the message is rendered but never leaves the process.
type NoopMailer struct {
	Out io.Writer
}

var _ Transport = (*NoopMailer)(nil)

func NewNoop(out io.Writer) *NoopMailer {
	if out == nil {
		out = io.Discard
	}

	return &NoopMailer{Out: out}
}

func (n *NoopMailer) Open(_ context.Context) (Session, error) {
	return &noopSession{out: n.Out}, nil
}

type noopSession struct {
	out io.Writer
}

func (s *noopSession) Send(ctx context.Context, mail Mail) error {
	if err := prepare(mail); err != nil {
		return err
	}

	size, err := WriteMessage(s.out, mail)
	if err != nil {
		return fmt.Errorf("render message: %w", err)
	}

	ylog.Info(ctx, "dry-run mail",
		ylog.KV("to", mail.To),
		ylog.KV("subject", mail.Subject),
		ylog.KV("attachments", len(mail.Attachments)),
		ylog.KV("size", size),
	)
	return nil
}

func (s *noopSession) Close() error {
	return nil
}
