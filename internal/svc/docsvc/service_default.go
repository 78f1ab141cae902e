package docsvc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/yusufsyaifudin/pdfmailer/internal/svc/docrepo"
	"github.com/yusufsyaifudin/pdfmailer/pkg/mailclient"
	"github.com/yusufsyaifudin/pdfmailer/pkg/pacer"
	"github.com/yusufsyaifudin/pdfmailer/pkg/tracer"
	"github.com/yusufsyaifudin/pdfmailer/pkg/uid"
	"github.com/yusufsyaifudin/pdfmailer/pkg/validator"
	"github.com/yusufsyaifudin/ylog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/multierr"
)

const (
	DefaultMaxUploadSize = 10 << 20 // 10MB

	mailSubject = "PDF Document"
	sniffLen    = 512
)

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

type Config struct {
	Repo      docrepo.Repo         `validate:"required"`
	UIDGen    uid.UID              `validate:"required"`
	Transport mailclient.Transport `validate:"required"`

	Sender    string `validate:"required,email"`
	UploadDir string `validate:"required"`

	// MaxUploadSize in bytes, zero means DefaultMaxUploadSize.
	MaxUploadSize   int64         `validate:"min=0"`
	MinSendInterval time.Duration `validate:"-"`

	Now   func() time.Time                                `validate:"-"`
	Sleep func(ctx context.Context, d time.Duration) error `validate:"-"`
}

type DefaultService struct {
	Config Config
}

var _ Service = (*DefaultService)(nil)

func New(cfg Config) (*DefaultService, error) {
	err := validator.Validate(cfg)
	if err != nil {
		err = fmt.Errorf("document service config error: %w", err)
		return nil, err
	}

	if cfg.MaxUploadSize == 0 {
		cfg.MaxUploadSize = DefaultMaxUploadSize
	}

	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	if cfg.Sleep == nil {
		cfg.Sleep = pacer.Sleep
	}

	return &DefaultService{Config: cfg}, nil
}

func (s *DefaultService) Upload(ctx context.Context, in InputUpload) (out OutUpload, err error) {
	var span trace.Span
	ctx, span = tracer.StartSpan(ctx, "docsvc.Upload")
	defer span.End()

	err = validator.Validate(in)
	if err != nil {
		err = fmt.Errorf("%w: %s", ErrValidation, err)
		return
	}

	if in.Content == nil {
		err = ErrNoFile
		return
	}

	content := bufio.NewReaderSize(in.Content, sniffLen)
	head, _ := content.Peek(sniffLen)
	if len(head) == 0 {
		err = ErrNoFile
		return
	}

	if http.DetectContentType(head) != "application/pdf" {
		err = ErrNotPDF
		return
	}

	id, err := uid.Int64(s.Config.UIDGen)
	if err != nil {
		return
	}

	now := s.Config.Now().UTC()
	originalName := filepath.Base(strings.TrimSpace(in.OriginalName))
	if originalName == "." || originalName == string(filepath.Separator) {
		originalName = "document.pdf"
	}

	fileName := fmt.Sprintf("%d-%s", now.UnixMilli(), unsafeChars.ReplaceAllString(originalName, "_"))
	fullPath := filepath.Join(s.Config.UploadDir, fileName)

	size, err := s.writeFile(fullPath, content)
	if err != nil {
		return
	}

	created, err := s.Config.Repo.Create(ctx, docrepo.InputCreate{
		Document: docrepo.Document{
			ID:           id,
			OwnerID:      in.OwnerID,
			Filename:     fileName,
			OriginalName: originalName,
			Path:         fullPath,
			Size:         size,
			CreatedAt:    now,
		},
	})
	if err != nil {
		// no record, no file
		err = multierr.Append(fmt.Errorf("store document: %w", err), os.Remove(fullPath))
		return
	}

	ylog.Info(ctx, "pdf uploaded", ylog.KV("id", id), ylog.KV("size", size))
	out = OutUpload{
		Document: created.Document,
	}
	return
}

func (s *DefaultService) List(ctx context.Context, in InputList) (out OutList, err error) {
	var span trace.Span
	ctx, span = tracer.StartSpan(ctx, "docsvc.List")
	defer span.End()

	err = validator.Validate(in)
	if err != nil {
		err = fmt.Errorf("%w: %s", ErrValidation, err)
		return
	}

	list, err := s.Config.Repo.ListByOwner(ctx, docrepo.InputListByOwner{OwnerID: in.OwnerID})
	if err != nil {
		return
	}

	out = OutList{
		Documents: list.Documents,
	}
	return
}

func (s *DefaultService) Get(ctx context.Context, in InputGet) (out OutGet, err error) {
	var span trace.Span
	ctx, span = tracer.StartSpan(ctx, "docsvc.Get")
	defer span.End()

	err = validator.Validate(in)
	if err != nil {
		err = fmt.Errorf("%w: %s", ErrNotFound, err)
		return
	}

	doc, err := s.getOwned(ctx, in.OwnerID, in.ID)
	if err != nil {
		return
	}

	out = OutGet{
		Document: doc,
	}
	return
}

func (s *DefaultService) Delete(ctx context.Context, in InputDelete) (out OutDelete, err error) {
	var span trace.Span
	ctx, span = tracer.StartSpan(ctx, "docsvc.Delete")
	defer span.End()

	err = validator.Validate(in)
	if err != nil {
		err = fmt.Errorf("%w: %s", ErrNotFound, err)
		return
	}

	doc, err := s.getOwned(ctx, in.OwnerID, in.ID)
	if err != nil {
		return
	}

	if _err := os.Remove(doc.Path); _err != nil && !errors.Is(_err, os.ErrNotExist) {
		err = fmt.Errorf("remove pdf file: %w", _err)
		return
	}

	deleted, err := s.Config.Repo.Delete(ctx, docrepo.InputDelete{ID: in.ID, OwnerID: in.OwnerID})
	if errors.Is(err, docrepo.ErrNotFound) {
		err = ErrNotFound
		return
	}

	if err != nil {
		return
	}

	out = OutDelete{
		Document: deleted.Document,
	}
	return
}

func (s *DefaultService) Send(ctx context.Context, in InputSend) (out OutSend, err error) {
	var span trace.Span
	ctx, span = tracer.StartSpan(ctx, "docsvc.Send")
	defer span.End()

	err = validator.Validate(in)
	if err != nil {
		err = fmt.Errorf("%w: %s", ErrValidation, err)
		return
	}

	if in.DocumentID == 0 {
		err = ErrNotFound
		return
	}

	doc, err := s.getOwned(ctx, in.OwnerID, in.DocumentID)
	if err != nil {
		return
	}

	if len(in.Recipients) == 0 {
		err = ErrNoRecipients
		return
	}

	if stat, statErr := os.Stat(doc.Path); statErr != nil || stat.IsDir() {
		err = ErrFileMissing
		return
	}

	span.SetAttributes(attribute.Int("recipients", len(in.Recipients)))

	session := mailclient.NewLazySession(s.Config.Transport)
	defer func() {
		if _err := session.Close(); _err != nil {
			ylog.Error(ctx, "closing mail session failed", ylog.KV("error", _err))
		}
	}()

	p := pacer.New(s.Config.MinSendInterval, pacer.WithClock(s.Config.Now, s.Config.Sleep))
	out = OutSend{
		Success: make([]Recipient, 0, len(in.Recipients)),
		Failed:  make([]FailedRecipient, 0),
	}

	history := make([]docrepo.Recipient, 0, len(in.Recipients))
	for _, r := range in.Recipients {
		_err := p.Wait(ctx)
		if _err == nil {
			_err = session.Send(ctx, mailclient.Mail{
				From:    s.Config.Sender,
				To:      strings.TrimSpace(r.Email),
				Subject: mailSubject,
				Body:    composeBody(r, in.OwnerName),
				Attachments: []mailclient.Attachment{
					{Filename: doc.OriginalName, Path: doc.Path},
				},
			})
		}

		status := docrepo.RecipientSent
		if _err != nil {
			ylog.Error(ctx, "send stored pdf failed", ylog.KV("email", r.Email), ylog.KV("error", _err))
			out.Failed = append(out.Failed, FailedRecipient{Recipient: r, Error: _err.Error()})
			status = docrepo.RecipientFailed
		} else {
			out.Success = append(out.Success, r)
		}

		recipientID, idErr := uid.Int64(s.Config.UIDGen)
		if idErr != nil {
			ylog.Error(ctx, "cannot record recipient", ylog.KV("email", r.Email), ylog.KV("error", idErr))
			continue
		}

		history = append(history, docrepo.Recipient{
			ID:         recipientID,
			DocumentID: doc.ID,
			Email:      r.Email,
			Name:       r.Name,
			PAN:        r.PAN,
			PAN1:       r.PAN1,
			Status:     status,
			SentAt:     s.Config.Now().UTC(),
		})
	}

	if len(history) == 0 {
		return
	}

	_, err = s.Config.Repo.AddRecipients(ctx, docrepo.InputAddRecipients{
		DocumentID: doc.ID,
		Recipients: history,
	})
	if err != nil {
		err = fmt.Errorf("mails are processed but history cannot be saved: %w", err)
		return
	}

	return
}

func (s *DefaultService) getOwned(ctx context.Context, ownerID, id int64) (docrepo.Document, error) {
	found, err := s.Config.Repo.GetByID(ctx, docrepo.InputGetByID{ID: id, OwnerID: ownerID})
	if errors.Is(err, docrepo.ErrNotFound) {
		return docrepo.Document{}, ErrNotFound
	}

	if err != nil {
		return docrepo.Document{}, err
	}

	return found.Document, nil
}

// writeFile copies at most MaxUploadSize bytes into path. Partial file is removed on error.
func (s *DefaultService) writeFile(path string, content io.Reader) (size int64, err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		err = fmt.Errorf("create pdf file: %w", err)
		return
	}

	size, err = io.Copy(f, io.LimitReader(content, s.Config.MaxUploadSize+1))
	err = multierr.Append(err, f.Close())
	if err == nil && size > s.Config.MaxUploadSize {
		err = fmt.Errorf("%w: limit is %d bytes", ErrTooLarge, s.Config.MaxUploadSize)
	}

	if err != nil {
		if _err := os.Remove(path); _err != nil {
			err = multierr.Append(err, _err)
		}

		return 0, err
	}

	return size, nil
}

func composeBody(r Recipient, ownerName string) string {
	return fmt.Sprintf("Hello %s,\nPlease find the attached PDF document.\nPAN: %s\nPAN1: %s\nBest regards,\n%s",
		orDefault(r.Name, r.Email), orDefault(r.PAN, "N/A"), orDefault(r.PAN1, "N/A"), ownerName,
	)
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}

	return s
}
