package docsvc_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yusufsyaifudin/pdfmailer/internal/svc/docrepo"
	"github.com/yusufsyaifudin/pdfmailer/internal/svc/docsvc"
	"github.com/yusufsyaifudin/pdfmailer/pkg/mailclient"
)

const pdfContent = "%PDF-1.4\n%test document"

type seqUID struct {
	mu sync.Mutex
	n  uint64
}

func (s *seqUID) NextID() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return s.n, nil
}

type memDocRepo struct {
	docs    map[int64]docrepo.Document
	addErr  error
	created int
}

func newMemDocRepo() *memDocRepo {
	return &memDocRepo{docs: map[int64]docrepo.Document{}}
}

func (m *memDocRepo) Create(_ context.Context, in docrepo.InputCreate) (docrepo.OutCreate, error) {
	m.created++
	doc := in.Document
	doc.Recipients = make([]docrepo.Recipient, 0)
	m.docs[doc.ID] = doc
	return docrepo.OutCreate{Document: doc}, nil
}

func (m *memDocRepo) GetByID(_ context.Context, in docrepo.InputGetByID) (docrepo.OutGetByID, error) {
	doc, ok := m.docs[in.ID]
	if !ok || doc.OwnerID != in.OwnerID {
		return docrepo.OutGetByID{}, docrepo.ErrNotFound
	}

	return docrepo.OutGetByID{Document: doc}, nil
}

func (m *memDocRepo) ListByOwner(_ context.Context, in docrepo.InputListByOwner) (docrepo.OutListByOwner, error) {
	docs := make([]docrepo.Document, 0)
	for _, d := range m.docs {
		if d.OwnerID == in.OwnerID {
			docs = append(docs, d)
		}
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].CreatedAt.After(docs[j].CreatedAt) })
	return docrepo.OutListByOwner{Documents: docs}, nil
}

func (m *memDocRepo) Delete(_ context.Context, in docrepo.InputDelete) (docrepo.OutDelete, error) {
	doc, ok := m.docs[in.ID]
	if !ok || doc.OwnerID != in.OwnerID {
		return docrepo.OutDelete{}, docrepo.ErrNotFound
	}

	delete(m.docs, in.ID)
	return docrepo.OutDelete{Document: doc}, nil
}

func (m *memDocRepo) AddRecipients(_ context.Context, in docrepo.InputAddRecipients) (docrepo.OutAddRecipients, error) {
	if m.addErr != nil {
		return docrepo.OutAddRecipients{}, m.addErr
	}

	doc := m.docs[in.DocumentID]
	doc.Recipients = append(doc.Recipients, in.Recipients...)
	m.docs[in.DocumentID] = doc
	return docrepo.OutAddRecipients{Recipients: in.Recipients}, nil
}

type fakeTransport struct {
	opened int
	sent   []mailclient.Mail
	reject map[string]error
}

func (f *fakeTransport) Open(context.Context) (mailclient.Session, error) {
	f.opened++
	return f, nil
}

func (f *fakeTransport) Send(_ context.Context, mail mailclient.Mail) error {
	f.sent = append(f.sent, mail)
	return f.reject[mail.To]
}

func (f *fakeTransport) Close() error { return nil }

type fixture struct {
	svc       *docsvc.DefaultService
	repo      *memDocRepo
	transport *fakeTransport
	dir       string
	clock     time.Time
	slept     []time.Duration
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		repo:      newMemDocRepo(),
		transport: &fakeTransport{reject: map[string]error{}},
		dir:       t.TempDir(),
		clock:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	svc, err := docsvc.New(docsvc.Config{
		Repo:            f.repo,
		UIDGen:          &seqUID{},
		Transport:       f.transport,
		Sender:          "sender@example.com",
		UploadDir:       f.dir,
		MaxUploadSize:   1024,
		MinSendInterval: time.Second,
		Now:             func() time.Time { return f.clock },
		Sleep: func(_ context.Context, d time.Duration) error {
			f.slept = append(f.slept, d)
			f.clock = f.clock.Add(d)
			return nil
		},
	})
	require.NoError(t, err)

	f.svc = svc
	return f
}

func (f *fixture) upload(t *testing.T, ownerID int64, name string) docrepo.Document {
	t.Helper()

	out, err := f.svc.Upload(context.Background(), docsvc.InputUpload{
		OwnerID:      ownerID,
		OriginalName: name,
		Content:      strings.NewReader(pdfContent),
	})
	require.NoError(t, err)
	return out.Document
}

func TestNew(t *testing.T) {
	svc, err := docsvc.New(docsvc.Config{})
	assert.Error(t, err)
	assert.Nil(t, svc)
}

func TestUpload(t *testing.T) {
	f := newFixture(t)

	doc := f.upload(t, 7, "my report 2024.pdf")
	assert.Equal(t, int64(1), doc.ID)
	assert.Equal(t, int64(7), doc.OwnerID)
	assert.Equal(t, "my report 2024.pdf", doc.OriginalName)
	assert.Equal(t, "1704067200000-my_report_2024.pdf", doc.Filename)
	assert.Equal(t, int64(len(pdfContent)), doc.Size)
	assert.Equal(t, filepath.Join(f.dir, doc.Filename), doc.Path)

	content, err := os.ReadFile(doc.Path)
	require.NoError(t, err)
	assert.Equal(t, pdfContent, string(content))
}

func TestUpload_Rejected(t *testing.T) {
	ctx := context.Background()

	testCases := []struct {
		name    string
		content []byte
		wantErr error
	}{
		{name: "empty", content: nil, wantErr: docsvc.ErrNoFile},
		{name: "not pdf", content: []byte("hello, plain text"), wantErr: docsvc.ErrNotPDF},
		{name: "too large", content: append([]byte("%PDF-1.4\n"), bytes.Repeat([]byte("a"), 2048)...), wantErr: docsvc.ErrTooLarge},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.svc.Upload(ctx, docsvc.InputUpload{
				OwnerID:      1,
				OriginalName: "x.pdf",
				Content:      bytes.NewReader(tc.content),
			})
			assert.ErrorIs(t, err, tc.wantErr)
			assert.Equal(t, 0, f.repo.created)

			entries, err := os.ReadDir(f.dir)
			require.NoError(t, err)
			assert.Empty(t, entries, "no file must be left behind")
		})
	}

	t.Run("nil content", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Upload(ctx, docsvc.InputUpload{OwnerID: 1})
		assert.ErrorIs(t, err, docsvc.ErrNoFile)
	})
}

func TestListGetDelete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	first := f.upload(t, 1, "a.pdf")
	f.clock = f.clock.Add(time.Minute)
	second := f.upload(t, 1, "b.pdf")
	f.upload(t, 2, "other.pdf")

	list, err := f.svc.List(ctx, docsvc.InputList{OwnerID: 1})
	require.NoError(t, err)
	require.Len(t, list.Documents, 2)
	assert.Equal(t, second.ID, list.Documents[0].ID)
	assert.Equal(t, first.ID, list.Documents[1].ID)

	got, err := f.svc.Get(ctx, docsvc.InputGet{OwnerID: 1, ID: first.ID})
	require.NoError(t, err)
	assert.Equal(t, "a.pdf", got.Document.OriginalName)

	// other owner's document is not visible
	_, err = f.svc.Get(ctx, docsvc.InputGet{OwnerID: 2, ID: first.ID})
	assert.ErrorIs(t, err, docsvc.ErrNotFound)

	_, err = f.svc.Delete(ctx, docsvc.InputDelete{OwnerID: 1, ID: first.ID})
	require.NoError(t, err)
	_, statErr := os.Stat(first.Path)
	assert.ErrorIs(t, statErr, os.ErrNotExist)

	_, err = f.svc.Get(ctx, docsvc.InputGet{OwnerID: 1, ID: first.ID})
	assert.ErrorIs(t, err, docsvc.ErrNotFound)

	_, err = f.svc.Delete(ctx, docsvc.InputDelete{OwnerID: 1, ID: first.ID})
	assert.ErrorIs(t, err, docsvc.ErrNotFound)

	// record is deleted even when the file is already gone
	require.NoError(t, os.Remove(second.Path))
	_, err = f.svc.Delete(ctx, docsvc.InputDelete{OwnerID: 1, ID: second.ID})
	assert.NoError(t, err)
}

func TestSend(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := f.upload(t, 1, "statement.pdf")
	f.transport.reject["bad@example.com"] = &mailclient.TransportError{Op: "RCPT", Err: errors.New("550 no such user")}

	out, err := f.svc.Send(ctx, docsvc.InputSend{
		OwnerID:    1,
		OwnerName:  "Owner",
		DocumentID: doc.ID,
		Recipients: []docsvc.Recipient{
			{Email: "a@example.com", Name: "Alice", PAN: "AAAAA1111A"},
			{Email: "bad@example.com"},
			{Email: "c@example.com", PAN1: "CCCCC3333C"},
		},
	})
	require.NoError(t, err)

	require.Len(t, out.Success, 2)
	require.Len(t, out.Failed, 1)
	assert.Equal(t, "bad@example.com", out.Failed[0].Email)
	assert.Equal(t, "smtp RCPT: 550 no such user", out.Failed[0].Error)

	require.Len(t, f.transport.sent, 3)
	assert.Equal(t, 1, f.transport.opened)
	assert.Equal(t, []time.Duration{time.Second, time.Second}, f.slept)

	first := f.transport.sent[0]
	assert.Equal(t, "PDF Document", first.Subject)
	assert.Equal(t, "Hello Alice,\nPlease find the attached PDF document.\nPAN: AAAAA1111A\nPAN1: N/A\nBest regards,\nOwner", first.Body)
	assert.Equal(t, []mailclient.Attachment{{Filename: "statement.pdf", Path: doc.Path}}, first.Attachments)

	third := f.transport.sent[2]
	assert.True(t, strings.HasPrefix(third.Body, "Hello c@example.com,\n"))
	assert.Contains(t, third.Body, "PAN: N/A\nPAN1: CCCCC3333C")

	got, err := f.svc.Get(ctx, docsvc.InputGet{OwnerID: 1, ID: doc.ID})
	require.NoError(t, err)
	require.Len(t, got.Document.Recipients, 3, "every attempt is kept in history")

	history := make(map[string]docrepo.RecipientStatus)
	for _, r := range got.Document.Recipients {
		history[r.Email] = r.Status
		assert.Equal(t, doc.ID, r.DocumentID)
		assert.False(t, r.SentAt.IsZero())
	}

	assert.Equal(t, map[string]docrepo.RecipientStatus{
		"a@example.com":   docrepo.RecipientSent,
		"bad@example.com": docrepo.RecipientFailed,
		"c@example.com":   docrepo.RecipientSent,
	}, history)
	assert.Equal(t, "a@example.com", got.Document.Recipients[0].Email)
	assert.Equal(t, "bad@example.com", got.Document.Recipients[1].Email)
	assert.Equal(t, "c@example.com", got.Document.Recipients[2].Email)
}

func TestSend_AllFailedStillRecorded(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := f.upload(t, 1, "statement.pdf")
	f.transport.reject["a@example.com"] = &mailclient.TransportError{Op: "DATA", Err: errors.New("554 rejected")}

	out, err := f.svc.Send(ctx, docsvc.InputSend{
		OwnerID:    1,
		OwnerName:  "Owner",
		DocumentID: doc.ID,
		Recipients: []docsvc.Recipient{{Email: "a@example.com", Name: "Alice"}},
	})
	require.NoError(t, err)
	assert.Empty(t, out.Success)
	require.Len(t, out.Failed, 1)

	got, err := f.svc.Get(ctx, docsvc.InputGet{OwnerID: 1, ID: doc.ID})
	require.NoError(t, err)
	require.Len(t, got.Document.Recipients, 1)
	assert.Equal(t, docrepo.RecipientFailed, got.Document.Recipients[0].Status)
}

func TestSend_Rejected(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown document", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Send(ctx, docsvc.InputSend{OwnerID: 1, DocumentID: 99, Recipients: []docsvc.Recipient{{Email: "a@example.com"}}})
		assert.ErrorIs(t, err, docsvc.ErrNotFound)
	})

	t.Run("no recipients", func(t *testing.T) {
		f := newFixture(t)
		doc := f.upload(t, 1, "a.pdf")
		_, err := f.svc.Send(ctx, docsvc.InputSend{OwnerID: 1, DocumentID: doc.ID})
		assert.ErrorIs(t, err, docsvc.ErrNoRecipients)
	})

	t.Run("file missing", func(t *testing.T) {
		f := newFixture(t)
		doc := f.upload(t, 1, "a.pdf")
		require.NoError(t, os.Remove(doc.Path))

		_, err := f.svc.Send(ctx, docsvc.InputSend{OwnerID: 1, DocumentID: doc.ID, Recipients: []docsvc.Recipient{{Email: "a@example.com"}}})
		assert.ErrorIs(t, err, docsvc.ErrFileMissing)
		assert.Equal(t, 0, f.transport.opened)
	})

	t.Run("history cannot be saved", func(t *testing.T) {
		f := newFixture(t)
		doc := f.upload(t, 1, "a.pdf")
		f.repo.addErr = errors.New("db down")

		out, err := f.svc.Send(ctx, docsvc.InputSend{OwnerID: 1, DocumentID: doc.ID, Recipients: []docsvc.Recipient{{Email: "a@example.com"}}})
		assert.ErrorContains(t, err, "db down")
		assert.Len(t, out.Success, 1)
	})
}
