package mailclient

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"sync"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/yusufsyaifudin/pdfmailer/pkg/validator"
	"github.com/yusufsyaifudin/ylog"
	"go.uber.org/multierr"
)

type SmtpMailerConfig struct {
	EmailCredential *EmailCredential `validate:"required"`
}

// SmtpMailer is the Transport to real SMTP server.
type SmtpMailer struct {
	Config *SmtpMailerConfig
}

var _ Transport = (*SmtpMailer)(nil)

// NewSmtp will return new smtp transport without any real connection is made.
func NewSmtp(cfg *SmtpMailerConfig) (*SmtpMailer, error) {
	err := validator.Validate(cfg)
	if err != nil {
		err = fmt.Errorf("validation error: %w", err)
		return nil, err
	}

	err = validator.Validate(cfg.EmailCredential)
	if err != nil {
		err = fmt.Errorf("validation on email credential error: %w", err)
		return nil, err
	}

	return &SmtpMailer{Config: cfg}, nil
}

// Open returns session which connects on the first Send.
func (m *SmtpMailer) Open(_ context.Context) (Session, error) {
	return &smtpSession{cred: m.Config.EmailCredential}, nil
}

type smtpSession struct {
	cred *EmailCredential
	smtp *smtp.Client
	lock sync.Mutex
}

var _ Session = (*smtpSession)(nil)

func (s *smtpSession) Send(ctx context.Context, mail Mail) (err error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	err = prepare(mail)
	if err != nil {
		return
	}

	err = s.ensureClient(ctx)
	if err != nil {
		return
	}

	// RSET command is for aborting already started mail transaction (tools.ietf.org/html/rfc5321#section-4.1.1.5).
	err = transportErr("RSET", s.smtp.Reset())
	if err != nil {
		return
	}

	// New transaction is initiated using the MAIL command (tools.ietf.org/html/rfc5321#section-4.1.1.2).
	err = transportErr("MAIL", s.smtp.Mail(mail.From, nil))
	if err != nil {
		return
	}

	err = transportErr("RCPT", s.smtp.Rcpt(mail.To))
	if err != nil {
		return
	}

	wc, err := s.smtp.Data()
	if err != nil {
		err = transportErr("DATA", err)
		return
	}

	_, err = WriteMessage(wc, mail)
	if err != nil {
		_ = wc.Close()
		err = transportErr("DATA write", err)
		return
	}

	// server reply of the whole message is returned when the data writer is closed
	err = transportErr("DATA close", wc.Close())
	return
}

// ensureClient dial the server when no connection yet, or when the previous one no longer answer NOOP.
func (s *smtpSession) ensureClient(ctx context.Context) error {
	if s.smtp != nil {
		// NOOP command to check if connection still ok
		if err := s.smtp.Noop(); err == nil {
			return nil
		}

		ylog.Debug(ctx, "smtp connection is not ok, reconnecting")
		_ = s.smtp.Close()
		s.smtp = nil
	}

	c, err := initClient(ctx, s.cred)
	if err != nil {
		return transportErr("connect", err)
	}

	s.smtp = c
	return nil
}

// Close .
// https://stackoverflow.com/questions/2468851/when-should-i-send-quit-to-smtp-server-and-how-long-should-i-keep-a-session
// https://stackoverflow.com/a/19670136/5489910
func (s *smtpSession) Close() error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.smtp == nil {
		return nil
	}

	c := s.smtp
	s.smtp = nil

	_err := c.Quit()
	if _err == nil {
		return nil
	}

	var err error
	err = multierr.Append(err, fmt.Errorf("quit command error: %w", _err))
	_err = c.Close()
	if _err != nil {
		err = multierr.Append(err, fmt.Errorf("close command error: %w", _err))
		return err
	}

	return nil
}

// ----- Function here is intended to have simple function (not as method handler in a struct),
// because it will be easier to debug and test. In addition, we can ensure it will not use the variable that stateful.

func initClient(ctx context.Context, cred *EmailCredential) (*smtp.Client, error) {
	smtpAddr := net.JoinHostPort(cred.ServerHost, fmt.Sprint(cred.ServerPort))
	tlsConfig := &tls.Config{
		ServerName:         cred.ServerHost,
		InsecureSkipVerify: cred.InsecureSkipVerify, //nolint:gosec // opt-in via config for relay with self-signed cert
	}

	dialer := &net.Dialer{Timeout: defaultDialTimeout}

	var (
		conn net.Conn
		err  error
	)

	switch cred.TLSMode {
	case TLSModeImplicit:
		tlsDialer := &tls.Dialer{NetDialer: dialer, Config: tlsConfig}
		conn, err = tlsDialer.DialContext(ctx, "tcp", smtpAddr)
	default:
		conn, err = dialer.DialContext(ctx, "tcp", smtpAddr)
	}

	if err != nil {
		err = fmt.Errorf("tcp dial error: %w", err)
		return nil, err
	}

	c, err := smtp.NewClient(conn, cred.ServerHost)
	if err != nil {
		_ = conn.Close()
		err = fmt.Errorf("error new smtp client: %w", err)
		return nil, err
	}

	if cred.TLSMode == "" || cred.TLSMode == TLSModeStartTLS {
		err = c.StartTLS(tlsConfig)
		if err != nil {
			_ = c.Close()
			err = fmt.Errorf("error start tls: %w", err)
			return nil, err
		}
	}

	err = c.Auth(sasl.NewPlainClient(cred.AuthIdentity, cred.Username, cred.Password))
	if err != nil {
		_ = c.Close()
		err = fmt.Errorf("error auth: %w", err)
		return nil, err
	}

	err = c.Noop()
	if err != nil {
		_ = c.Close()
		err = fmt.Errorf("check smtp is not ok: %w", err)
		return nil, err
	}

	return c, nil
}
