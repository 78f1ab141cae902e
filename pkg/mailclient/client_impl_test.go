package mailclient_test

import (
	"bytes"
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yusufsyaifudin/pdfmailer/pkg/mailclient"
)

func writePDF(t *testing.T, dir, name string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte("%PDF-1.4 test"), 0o600))
	return p
}

func TestNewSmtp(t *testing.T) {
	t.Run("missing credential", func(t *testing.T) {
		client, err := mailclient.NewSmtp(&mailclient.SmtpMailerConfig{})
		assert.Nil(t, client)
		assert.Error(t, err)
	})

	t.Run("bad tls mode", func(t *testing.T) {
		client, err := mailclient.NewSmtp(&mailclient.SmtpMailerConfig{
			EmailCredential: &mailclient.EmailCredential{
				Protocol:   "smtp",
				ServerHost: "smtp.gmail.com",
				ServerPort: 465,
				TLSMode:    "ssl3",
				Username:   "xxx@gmail.com",
				Password:   "---",
			},
		})
		assert.Nil(t, client)
		assert.Error(t, err)
	})

	t.Run("ok without connecting", func(t *testing.T) {
		client, err := mailclient.NewSmtp(&mailclient.SmtpMailerConfig{
			EmailCredential: &mailclient.EmailCredential{
				Protocol:   "smtp",
				ServerHost: "smtp.gmail.com",
				ServerPort: 465,
				TLSMode:    mailclient.TLSModeImplicit,
				Username:   "xxx@gmail.com",
				Password:   "---",
			},
		})
		assert.NotNil(t, client)
		assert.NoError(t, err)

		sess, err := client.Open(context.Background())
		assert.NoError(t, err)
		assert.NoError(t, sess.Close()) // never connected, nothing to quit
	})
}

func TestSmtpSession_ConnectErrorIsTransportError(t *testing.T) {
	// reserve a port, then free it so that dial is refused
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())

	client, err := mailclient.NewSmtp(&mailclient.SmtpMailerConfig{
		EmailCredential: &mailclient.EmailCredential{
			Protocol:   "smtp",
			ServerHost: "127.0.0.1",
			ServerPort: port,
			TLSMode:    mailclient.TLSModeNone,
			Username:   "user",
			Password:   "pass",
		},
	})
	require.NoError(t, err)

	sess, err := client.Open(context.Background())
	require.NoError(t, err)
	defer sess.Close()

	err = sess.Send(context.Background(), mailclient.Mail{
		From:    "sender@example.com",
		To:      "alice@example.com",
		Subject: "PDF Document for Alice",
		Body:    "hi",
	})

	var tErr *mailclient.TransportError
	require.True(t, errors.As(err, &tErr), "got %v", err)
	assert.Equal(t, "connect", tErr.Op)
	assert.Contains(t, err.Error(), strconv.Itoa(port))
}

func TestSmtpSession_MissingAttachmentIsNotTransportError(t *testing.T) {
	client, err := mailclient.NewSmtp(&mailclient.SmtpMailerConfig{
		EmailCredential: &mailclient.EmailCredential{
			Protocol:   "smtp",
			ServerHost: "127.0.0.1",
			ServerPort: 1,
			Username:   "user",
			Password:   "pass",
		},
	})
	require.NoError(t, err)

	sess, err := client.Open(context.Background())
	require.NoError(t, err)

	err = sess.Send(context.Background(), mailclient.Mail{
		From:        "sender@example.com",
		To:          "alice@example.com",
		Subject:     "s",
		Attachments: []mailclient.Attachment{{Filename: "a.pdf", Path: "/does/not/exist.pdf"}},
	})
	assert.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)

	var tErr *mailclient.TransportError
	assert.False(t, errors.As(err, &tErr))
}

func TestNoopMailer(t *testing.T) {
	dir := t.TempDir()
	p1 := writePDF(t, dir, "ABC.pdf")
	p2 := writePDF(t, t.TempDir(), "ABC.pdf")

	out := &bytes.Buffer{}
	sess, err := mailclient.NewNoop(out).Open(context.Background())
	require.NoError(t, err)
	defer sess.Close()

	err = sess.Send(context.Background(), mailclient.Mail{
		From:    "sender@example.com",
		To:      "alice@example.com",
		Subject: "PDF Document for Alice",
		Body:    "Dear Alice",
		Attachments: []mailclient.Attachment{
			{Filename: "primary_ABC.pdf", Path: p1},
			{Filename: "secondary_ABC.pdf", Path: p2},
		},
	})
	require.NoError(t, err)

	msg := out.String()
	assert.Contains(t, msg, "Subject: PDF Document for Alice")
	assert.Contains(t, msg, "To: alice@example.com")
	assert.Contains(t, msg, `filename="primary_ABC.pdf"`)
	assert.Contains(t, msg, `filename="secondary_ABC.pdf"`)
}

func TestNoopMailer_InvalidRecipient(t *testing.T) {
	sess, err := mailclient.NewNoop(nil).Open(context.Background())
	require.NoError(t, err)

	err = sess.Send(context.Background(), mailclient.Mail{
		From:    "sender@example.com",
		To:      "not-an-email",
		Subject: "s",
	})
	assert.Error(t, err)
}

func TestTransportError(t *testing.T) {
	inner := errors.New("550 mailbox unavailable")
	err := error(&mailclient.TransportError{Op: "RCPT", Err: inner})
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, "smtp RCPT: 550 mailbox unavailable", err.Error())
}
