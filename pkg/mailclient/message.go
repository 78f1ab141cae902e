package mailclient

import (
	"fmt"
	"io"
	"os"

	"github.com/yusufsyaifudin/pdfmailer/pkg/validator"
	"gopkg.in/gomail.v2"
)

// prepare validates the mail and ensures every attachment is a readable regular file.
// This runs before any SMTP command, so a broken attachment never leaves a half-written DATA.
func prepare(mail Mail) error {
	if err := validator.Validate(mail); err != nil {
		return fmt.Errorf("invalid mail: %w", err)
	}

	for _, att := range mail.Attachments {
		stat, err := os.Stat(att.Path)
		if err != nil {
			return fmt.Errorf("attachment %s: %w", att.Filename, err)
		}

		if stat.IsDir() {
			return fmt.Errorf("attachment %s: %s is a directory", att.Filename, att.Path)
		}
	}

	return nil
}

func buildMessage(mail Mail) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", mail.From)
	m.SetHeader("To", mail.To)
	m.SetHeader("Subject", mail.Subject)
	m.SetBody("text/plain", mail.Body)

	for _, att := range mail.Attachments {
		m.Attach(att.Path, gomail.Rename(att.Filename))
	}

	return m
}

// WriteMessage renders the MIME message into w.
func WriteMessage(w io.Writer, mail Mail) (int64, error) {
	return buildMessage(mail).WriteTo(w)
}
