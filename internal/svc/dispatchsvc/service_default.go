package dispatchsvc

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yusufsyaifudin/pdfmailer/internal/svc/pdfresolver"
	"github.com/yusufsyaifudin/pdfmailer/pkg/mailclient"
	"github.com/yusufsyaifudin/pdfmailer/pkg/pacer"
	"github.com/yusufsyaifudin/pdfmailer/pkg/tracer"
	"github.com/yusufsyaifudin/pdfmailer/pkg/validator"
	"github.com/yusufsyaifudin/ylog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultMinSendInterval = 500 * time.Millisecond

	detailSent       = "Email Sent"
	detailNoDocument = "no document found for given identifiers"
)

type Config struct {
	Resolver  pdfresolver.Resolver `validate:"required"`
	Transport mailclient.Transport `validate:"required"`

	// Sender is the From address of every mail.
	Sender       string `validate:"required,email"`
	PrimaryDir   string `validate:"required"`
	SecondaryDir string `validate:"required"`

	Template MessageTemplate `validate:"-"`

	// MinSendInterval is the minimum time between two consecutive send in one batch.
	MinSendInterval time.Duration `validate:"-"`

	Now   func() time.Time                                `validate:"-"`
	Sleep func(ctx context.Context, d time.Duration) error `validate:"-"`
}

type DefaultService struct {
	Config   Config
	template MessageTemplate
}

var _ Service = (*DefaultService)(nil)

func New(cfg Config) (*DefaultService, error) {
	err := validator.Validate(cfg)
	if err != nil {
		err = fmt.Errorf("dispatch service config error: %w", err)
		return nil, err
	}

	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	if cfg.Sleep == nil {
		cfg.Sleep = pacer.Sleep
	}

	return &DefaultService{
		Config:   cfg,
		template: cfg.Template.WithDefaults(),
	}, nil
}

func (s *DefaultService) SendOne(ctx context.Context, in InputSendOne) (out OutSendOne, err error) {
	var span trace.Span
	ctx, span = tracer.StartSpan(ctx, "dispatchsvc.SendOne")
	defer span.End()

	recipient := normalize(in.Recipient)
	if issues := validateRecipient(0, recipient); len(issues) > 0 {
		err = &ValidationError{Issues: issues}
		return
	}

	session := mailclient.NewLazySession(s.Config.Transport)
	defer s.closeSession(ctx, session)

	outcome, err := s.process(ctx, session, s.newPacer(), recipient)
	out = OutSendOne{
		Outcome: outcome,
	}
	return
}

func (s *DefaultService) RunBatch(ctx context.Context, in InputRunBatch) (out OutRunBatch, err error) {
	var span trace.Span
	ctx, span = tracer.StartSpan(ctx, "dispatchsvc.RunBatch")
	defer span.End()

	recipients, err := validateRecipients(in.Recipients)
	if err != nil {
		return
	}

	span.SetAttributes(attribute.Int("recipients", len(recipients)))
	ylog.Info(ctx, "batch: starting", ylog.KV("recipients", len(recipients)))

	// one session for the whole batch, so the connection to mail server is reused and never driven concurrently
	session := mailclient.NewLazySession(s.Config.Transport)
	defer s.closeSession(ctx, session)

	p := s.newPacer()
	outcomes := make([]Outcome, 0, len(recipients))
	for i, recipient := range recipients {
		outcome, _err := s.process(ctx, session, p, recipient)
		outcomes = append(outcomes, outcome)

		ylog.Info(ctx, fmt.Sprintf("batch: recipient %d/%d processed", i+1, len(recipients)),
			ylog.KV("email", recipient.Email),
			ylog.KV("status", outcome.Status),
			ylog.KV("error", _err),
		)

		if in.Observer != nil {
			in.Observer(i, outcome)
		}
	}

	report := buildReport(outcomes)
	ylog.Info(ctx, "batch: done",
		ylog.KV("sent", report.SentCount),
		ylog.KV("failed", report.FailedCount),
	)

	out = OutRunBatch{
		Report: report,
	}
	return
}

func (s *DefaultService) SendPlain(ctx context.Context, in InputSendPlain) (out OutSendPlain, err error) {
	var span trace.Span
	ctx, span = tracer.StartSpan(ctx, "dispatchsvc.SendPlain")
	defer span.End()

	in.Email = strings.TrimSpace(in.Email)
	err = validator.Validate(in)
	if err != nil {
		err = &ValidationError{Issues: []ValidationIssue{{Index: 0, Field: "input", Message: err.Error()}}}
		return
	}

	session := mailclient.NewLazySession(s.Config.Transport)
	defer s.closeSession(ctx, session)

	err = session.Send(ctx, mailclient.Mail{
		From:    s.Config.Sender,
		To:      in.Email,
		Subject: in.Subject,
		Body:    in.Text,
	})
	if err != nil {
		err = classifySendErr(err)
		return
	}

	out = OutSendPlain{
		Recipient: in.Email,
	}
	return
}

// process runs one recipient until its final state. The returned error is typed as
// *NotFoundError, *mailclient.TransportError or *UnexpectedError, and outcome always reflect it.
func (s *DefaultService) process(ctx context.Context, session *mailclient.LazySession, p *pacer.Pacer, r Recipient) (outcome Outcome, err error) {
	outcome = Outcome{
		Recipient: r,
	}

	defer func() {
		if rec := recover(); rec != nil {
			err = &UnexpectedError{Err: fmt.Errorf("panic: %v", rec)}
		}

		outcome.Status, outcome.Detail = classify(err)
		outcome.FinishedAt = s.Config.Now()
	}()

	matches, err := s.resolveAttachments(ctx, r)
	if err != nil {
		err = &UnexpectedError{Err: fmt.Errorf("resolve attachments: %w", err)}
		return
	}

	outcome.Attachments = matches
	if len(matches) == 0 {
		err = &NotFoundError{PAN: r.PAN, PAN1: r.PAN1}
		return
	}

	subject, body := s.template.Compose(r)
	mail := mailclient.Mail{
		From:        s.Config.Sender,
		To:          r.Email,
		Subject:     subject,
		Body:        body,
		Attachments: toAttachments(matches),
	}

	err = p.Wait(ctx)
	if err != nil {
		err = &UnexpectedError{Err: fmt.Errorf("waiting send interval: %w", err)}
		return
	}

	err = session.Send(ctx, mail)
	if err != nil {
		err = classifySendErr(err)
		return
	}

	return
}

func (s *DefaultService) newPacer() *pacer.Pacer {
	return pacer.New(s.Config.MinSendInterval, pacer.WithClock(s.Config.Now, s.Config.Sleep))
}

func (s *DefaultService) closeSession(ctx context.Context, session *mailclient.LazySession) {
	if _err := session.Close(); _err != nil {
		ylog.Error(ctx, "closing mail session failed", ylog.KV("error", _err))
	}
}

// classifySendErr keeps TransportError as is, any other error from sending is unexpected.
func classifySendErr(err error) error {
	var tErr *mailclient.TransportError
	if errors.As(err, &tErr) {
		return tErr
	}

	return &UnexpectedError{Err: err}
}

func classify(err error) (Status, string) {
	if err == nil {
		return StatusSent, detailSent
	}

	var (
		unexpectedErr *UnexpectedError
		notFoundErr   *NotFoundError
		transportErr  *mailclient.TransportError
	)

	switch {
	case errors.As(err, &unexpectedErr):
		return StatusError, unexpectedErr.Err.Error()
	case errors.As(err, &notFoundErr):
		return StatusFailed, detailNoDocument
	case errors.As(err, &transportErr):
		return StatusFailed, transportErr.Error()
	default:
		return StatusError, err.Error()
	}
}

func normalize(r Recipient) Recipient {
	return Recipient{
		Email: strings.TrimSpace(r.Email),
		Name:  strings.TrimSpace(r.Name),
		PAN:   strings.TrimSpace(r.PAN),
		PAN1:  strings.TrimSpace(r.PAN1),
	}
}

func validateRecipient(index int, r Recipient) []ValidationIssue {
	issues := make([]ValidationIssue, 0)
	if err := validator.Var(r.Email, "required,email"); err != nil {
		issues = append(issues, ValidationIssue{Index: index, Field: "email", Message: "must be a valid email address"})
	}

	if r.Name == "" {
		issues = append(issues, ValidationIssue{Index: index, Field: "name", Message: "is required"})
	}

	if r.PAN == "" && r.PAN1 == "" {
		issues = append(issues, ValidationIssue{Index: index, Field: "pan", Message: "at least one of pan or pan1 is required"})
	}

	return issues
}

// validateRecipients returns normalized recipients, or ValidationError listing every invalid entry.
func validateRecipients(recipients []Recipient) ([]Recipient, error) {
	if len(recipients) == 0 {
		return nil, &ValidationError{Issues: []ValidationIssue{
			{Index: -1, Field: "recipients", Message: "at least one recipient is required"},
		}}
	}

	out := make([]Recipient, 0, len(recipients))
	issues := make([]ValidationIssue, 0)
	for i, r := range recipients {
		r = normalize(r)
		issues = append(issues, validateRecipient(i, r)...)
		out = append(out, r)
	}

	if len(issues) > 0 {
		return nil, &ValidationError{Issues: issues}
	}

	return out, nil
}
