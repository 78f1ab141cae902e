package respbuilder

import (
	"net/http"

	"github.com/segmentio/encoding/json"
)

func WriteJSON(httpStatus int, rw http.ResponseWriter, r *http.Request, data interface{}) {
	trace := Extract(r.Context())

	rw.Header().Set("Content-Type", "application/json")
	rw.Header().Set("Tracer-ID", trace.TraceID)
	rw.WriteHeader(httpStatus)

	enc := json.NewEncoder(rw)
	err := enc.Encode(data)
	if err != nil {
		reason := ReasonMap[ErrUnhandled]
		errPayload, _ := json.Marshal(HTTPError{
			Err: ErrorEntity{
				Code:    reason.Code,
				Message: reason.Message,
				Debug:   err.Error(),
				TraceID: trace.TraceID,
			},
		})

		_, _ = rw.Write(errPayload)
		return
	}
}

// WriteFile writes non-JSON payload as attachment download, i.e: csv export.
func WriteFile(httpStatus int, rw http.ResponseWriter, r *http.Request, contentType, fileName string, content []byte) {
	trace := Extract(r.Context())

	rw.Header().Set("Content-Type", contentType)
	rw.Header().Set("Content-Disposition", `attachment; filename="`+fileName+`"`)
	rw.Header().Set("Tracer-ID", trace.TraceID)
	rw.WriteHeader(httpStatus)
	_, _ = rw.Write(content)
}
