package respbuilder_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yusufsyaifudin/pdfmailer/pkg/respbuilder"
)

func TestError(t *testing.T) {
	ctx := respbuilder.Inject(context.Background(), respbuilder.Trace{TraceID: "trace-1"})

	t.Run("known kind", func(t *testing.T) {
		e := respbuilder.Error(ctx, respbuilder.ErrResourceNotFound, errors.New("doc 1"))
		assert.Equal(t, "04", e.Err.Code)
		assert.Equal(t, "doc 1", e.Err.Debug)
		assert.Equal(t, "trace-1", e.Err.TraceID)
	})

	t.Run("unknown kind hide debug", func(t *testing.T) {
		e := respbuilder.Error(ctx, respbuilder.ErrKind(99), errors.New("secret"))
		assert.Equal(t, "XX", e.Err.Code)
		assert.Empty(t, e.Err.Debug)
	})
}

func TestWriteJSON(t *testing.T) {
	ctx := respbuilder.Inject(context.Background(), respbuilder.Trace{TraceID: "trace-2"})
	r := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	respbuilder.WriteJSON(http.StatusOK, rec, r, respbuilder.StatusMessage(ctx, true, "Email Sent"))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "trace-2", rec.Header().Get("Tracer-ID"))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["status"])
	assert.Equal(t, "Email Sent", body["message"])
}

func TestMessage_OmitStatus(t *testing.T) {
	b, err := json.Marshal(respbuilder.Message(context.Background(), "PDF not found"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"message":"PDF not found"}`, string(b))
}

func TestWriteFile(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	respbuilder.WriteFile(http.StatusOK, rec, r, "text/csv", "email_data.csv", []byte("Email,Name,PAN,PAN1"))
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "email_data.csv")
	assert.Equal(t, "Email,Name,PAN,PAN1", rec.Body.String())
}
