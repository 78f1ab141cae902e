package restapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/satori/uuid"
	"github.com/segmentio/encoding/json"
	"github.com/yusufsyaifudin/pdfmailer/pkg/respbuilder"
	"github.com/yusufsyaifudin/pdfmailer/pkg/tracer"
	"github.com/yusufsyaifudin/ylog"
	"go.uber.org/multierr"
)

// maxLoggedBody is the most bytes of non-JSON payload copied into access log.
const maxLoggedBody = 4 << 10

const multipartOmitted = "[multipart body omitted]"

func toSimpleMap(h http.Header) map[string]string {
	out := map[string]string{}
	for k, v := range h {
		out[k] = strings.Join(v, " ")
	}

	return out
}

func truncate(b []byte) string {
	if len(b) <= maxLoggedBody {
		return string(b)
	}

	return fmt.Sprintf("%s...(truncated %d bytes)", b[:maxLoggedBody], len(b)-maxLoggedBody)
}

// dumpable reports whether request body can be read whole for logging.
// Multipart upload is streamed as is to the handler.
func dumpable(r *http.Request) bool {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return !strings.HasPrefix(mediaType, "multipart/")
}

// logBody turns payload into access log field: JSON goes to DataObject, anything else to DataString.
func logBody(b []byte) (obj interface{}, str string, err error) {
	if len(b) == 0 {
		return nil, "", nil
	}

	if !json.Valid(b) {
		return nil, truncate(b), nil
	}

	if err = json.Unmarshal(b, &obj); err != nil {
		return nil, truncate(b), err
	}

	return obj, "", nil
}

// readRequestBody drains body for logging then puts the same bytes back for the handler.
func readRequestBody(r *http.Request) ([]byte, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, nil
	}

	defer r.Body.Close()

	b, err := io.ReadAll(r.Body)
	r.Body = io.NopCloser(bytes.NewReader(b))
	if err != nil {
		return b, fmt.Errorf("error read request body: %w", err)
	}

	return b, nil
}

// requestLogger injects trace id for log and response body, bounds the request with timeout,
// then writes one access log line once handler is done.
func requestLogger(skipFunc func(r *http.Request) bool, timeout time.Duration, next http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if skipFunc(r) {
			next.ServeHTTP(w, r)
			return
		}

		var logErr error
		start := time.Now().UTC()

		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		traceID := uuid.NewV4().String()
		logTracer, err := ylog.NewTracer(tracer.LogData{
			RemoteAddr: r.RemoteAddr,
			TraceID:    traceID,
		}, ylog.WithTag("tracer"))
		if err != nil {
			logErr = multierr.Append(logErr, fmt.Errorf("error prepare log tracer data: %w", err))
		}

		ctx = ylog.Inject(ctx, logTracer)
		ctx = respbuilder.Inject(ctx, respbuilder.Trace{
			RemoteAddr: r.RemoteAddr,
			TraceID:    traceID,
		})
		r = r.WithContext(ctx)

		var reqObj interface{}
		reqStr := multipartOmitted
		if dumpable(r) {
			reqBody, _err := readRequestBody(r)
			logErr = multierr.Append(logErr, _err)

			reqObj, reqStr, _err = logBody(reqBody)
			logErr = multierr.Append(logErr, _err)
		}

		rec := httptest.NewRecorder()
		next.ServeHTTP(rec, r)

		respBody := rec.Body.Bytes()
		respObj, respStr, err := logBody(respBody)
		logErr = multierr.Append(logErr, err)

		for k, v := range rec.Header() {
			w.Header()[k] = v
		}

		w.WriteHeader(rec.Code)
		if _, err = w.Write(respBody); err != nil {
			logErr = multierr.Append(logErr, fmt.Errorf("error write response body: %w", err))
		}

		errStr := ""
		if logErr != nil {
			errStr = logErr.Error()
		}

		ylog.Access(ctx, ylog.AccessLogData{
			Path: r.RequestURI,
			Request: ylog.HTTPData{
				Header:     toSimpleMap(r.Header),
				DataObject: reqObj,
				DataString: reqStr,
			},
			Response: ylog.HTTPData{
				Header:     toSimpleMap(rec.Header()),
				DataObject: respObj,
				DataString: respStr,
			},
			Error:       errStr,
			ElapsedTime: time.Since(start).Milliseconds(),
		})
	}
}
