package restapi

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yusufsyaifudin/pdfmailer/internal/svc/authsvc"
	"github.com/yusufsyaifudin/pdfmailer/internal/svc/dispatchsvc"
	"github.com/yusufsyaifudin/pdfmailer/internal/svc/docsvc"
)

// stub services, only methods reached by the tests are implemented.

type stubDispatch struct {
	dispatchsvc.Service
	plain []dispatchsvc.InputSendPlain
}

func (s *stubDispatch) SendPlain(_ context.Context, in dispatchsvc.InputSendPlain) (dispatchsvc.OutSendPlain, error) {
	s.plain = append(s.plain, in)
	return dispatchsvc.OutSendPlain{Recipient: in.Email}, nil
}

type stubDocs struct {
	docsvc.Service
	listed []int64
}

func (s *stubDocs) List(_ context.Context, in docsvc.InputList) (docsvc.OutList, error) {
	s.listed = append(s.listed, in.OwnerID)
	return docsvc.OutList{}, nil
}

type stubAuth struct {
	authsvc.Service
}

func (stubAuth) Authenticate(_ context.Context, in authsvc.InputAuthenticate) (authsvc.OutAuthenticate, error) {
	if in.Token != "valid" {
		return authsvc.OutAuthenticate{}, authsvc.ErrUnauthenticated
	}

	return authsvc.OutAuthenticate{Session: authsvc.Session{User: authsvc.User{ID: 42}}}, nil
}

func newTestTransport(t *testing.T) (http.Handler, *stubDispatch, *stubDocs, string) {
	t.Helper()

	dir := t.TempDir()
	dispatch := &stubDispatch{}
	docs := &stubDocs{}

	transport, err := NewHTTPTransport(Config{
		DispatchService: dispatch,
		DocService:      docs,
		AuthService:     stubAuth{},
		PrimaryDir:      dir,
		MaxUploadSize:   1 << 20,
	})
	require.NoError(t, err)

	return transport.Server(), dispatch, docs, dir
}

func TestNewHTTPTransport_Invalid(t *testing.T) {
	_, err := NewHTTPTransport(Config{})
	assert.Error(t, err)
}

func TestRouter_Health(t *testing.T) {
	server, _, _, _ := newTestTransport(t)

	for _, p := range []string{"/health", "/ping", "/health/"} {
		rec := httptest.NewRecorder()
		server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, p, nil))
		assert.Equal(t, http.StatusOK, rec.Code, p)
	}
}

func TestRouter_SendPlain(t *testing.T) {
	server, dispatch, _, _ := newTestTransport(t)

	body := `{"email":"a@x.com","subject":"Hi","text":"Hello"}`
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/email/send", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, dispatch.plain, 1)
	assert.NotEmpty(t, rec.Header().Get("Tracer-ID"))

	resp := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Email Sent", resp["message"])
}

func TestRouter_PDFRequiresAuth(t *testing.T) {
	server, _, docs, _ := newTestTransport(t)

	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/pdf", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, docs.listed)

	req := httptest.NewRequest(http.MethodGet, "/api/pdf", nil)
	req.Header.Set("Authorization", "Bearer valid")
	rec = httptest.NewRecorder()
	server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []int64{42}, docs.listed)
}

func TestRouter_PDFDirectory(t *testing.T) {
	server, _, _, dir := newTestTransport(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ABCDE1234F.pdf"), []byte("%PDF-1.4"), 0o644))

	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/pdfs/ABCDE1234F.pdf", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "%PDF-1.4", rec.Body.String())

	rec = httptest.NewRecorder()
	server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/pdfs/missing.pdf", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_PDFDirectoryHasNoIndex(t *testing.T) {
	server, _, _, dir := newTestTransport(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ABCDE1234F.pdf"), []byte("%PDF-1.4"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ZZZZZ9999Z.pdf"), []byte("%PDF-1.4"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o755))

	for _, target := range []string{"/pdfs/", "/pdfs", "/pdfs/nested/", "/pdfs/nested"} {
		rec := httptest.NewRecorder()
		server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code, target)
		assert.NotContains(t, rec.Body.String(), "ABCDE1234F", target)
		assert.NotContains(t, rec.Body.String(), "ZZZZZ9999Z", target)
	}
}

func TestRouter_SwaggerUI(t *testing.T) {
	server, _, _, _ := newTestTransport(t)

	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/swaggerui/swagger.json", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequestLogger_Multipart(t *testing.T) {
	var gotBody string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b := make([]byte, 64)
		n, _ := r.Body.Read(b)
		gotBody = string(b[:n])
		w.WriteHeader(http.StatusNoContent)
	})

	handler := requestLogger(func(*http.Request) bool { return false }, DefaultRequestTimeout, next)

	req := httptest.NewRequest(http.MethodPost, "/api/pdf/upload", strings.NewReader("--x\r\n"))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "--x\r\n", gotBody)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate([]byte("abc")))

	long := strings.Repeat("a", maxLoggedBody+10)
	assert.Equal(t, strings.Repeat("a", maxLoggedBody)+"...(truncated 10 bytes)", truncate([]byte(long)))
}

func TestLogBody(t *testing.T) {
	obj, str, err := logBody(nil)
	assert.NoError(t, err)
	assert.Nil(t, obj)
	assert.Empty(t, str)

	obj, str, err = logBody([]byte(`{"email":"alice@example.com"}`))
	assert.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"email": "alice@example.com"}, obj)
	assert.Empty(t, str)

	obj, str, err = logBody([]byte("Email,Name,PAN,PAN1"))
	assert.NoError(t, err)
	assert.Nil(t, obj)
	assert.Equal(t, "Email,Name,PAN,PAN1", str)
}

func TestRequestLogger_BodyIsReplayed(t *testing.T) {
	var gotBody []byte
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte(`{"message":"ok"}`))
	})

	handler := requestLogger(func(*http.Request) bool { return false }, DefaultRequestTimeout, next)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/email/send", strings.NewReader(`{"email":"a@b.c"}`)))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"email":"a@b.c"}`, string(gotBody))
	assert.JSONEq(t, `{"message":"ok"}`, rec.Body.String())
}
