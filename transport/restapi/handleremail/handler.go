package handleremail

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gorilla/schema"
	"github.com/segmentio/encoding/json"
	"github.com/yusufsyaifudin/pdfmailer/internal/svc/dispatchsvc"
	"github.com/yusufsyaifudin/pdfmailer/pkg/mailclient"
	"github.com/yusufsyaifudin/pdfmailer/pkg/recipientcsv"
	"github.com/yusufsyaifudin/pdfmailer/pkg/respbuilder"
	"github.com/yusufsyaifudin/pdfmailer/pkg/validator"
	"github.com/yusufsyaifudin/pdfmailer/transport/restapi/httptyped"
	"github.com/yusufsyaifudin/ylog"
)

const (
	msgPlainRequired = "Email, subject, and text are required"
	msgPDFRequired   = "Email, name, and PAN number are required"
	msgSent          = "Email Sent"
	msgSendError     = "Error Sending Mail!"
	msgServerError   = "Server error"

	defaultMaxCSVSize = 5 << 20
)

type HandlerConfig struct {
	Dispatch dispatchsvc.Service `validate:"required"`

	// MaxCSVSize limits csv import body, zero means 5MB.
	MaxCSVSize int64 `validate:"min=0"`
}

type Handler struct {
	Config  HandlerConfig
	decoder *schema.Decoder
}

func NewHandler(conf HandlerConfig) (*Handler, error) {
	err := validator.Validate(conf)
	if err != nil {
		return nil, err
	}

	if conf.MaxCSVSize == 0 {
		conf.MaxCSVSize = defaultMaxCSVSize
	}

	decoder := schema.NewDecoder()
	decoder.IgnoreUnknownKeys(true)

	return &Handler{Config: conf, decoder: decoder}, nil
}

type SendPlainReq struct {
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
}

// SendPlain sends mail without attachment.
// Path         : POST /api/email/send
// Request Body : SendPlainReq
// Response     : respbuilder.HTTPMessage
func (h *Handler) SendPlain() func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var reqBody SendPlainReq
		if err := decodeJSON(r, &reqBody); err != nil {
			respbuilder.WriteJSON(http.StatusBadRequest, w, r, respbuilder.Message(ctx, msgPlainRequired))
			return
		}

		if blank(reqBody.Email) || blank(reqBody.Subject) || blank(reqBody.Text) {
			respbuilder.WriteJSON(http.StatusBadRequest, w, r, respbuilder.Message(ctx, msgPlainRequired))
			return
		}

		_, err := h.Config.Dispatch.SendPlain(ctx, dispatchsvc.InputSendPlain{
			Email:   reqBody.Email,
			Subject: reqBody.Subject,
			Text:    reqBody.Text,
		})

		var vErr *dispatchsvc.ValidationError
		switch {
		case err == nil:
			respbuilder.WriteJSON(http.StatusOK, w, r, respbuilder.StatusMessage(ctx, true, msgSent))

		case errors.As(err, &vErr):
			respbuilder.WriteJSON(http.StatusBadRequest, w, r, respbuilder.Message(ctx, msgPlainRequired))

		default:
			ylog.Error(ctx, "send plain mail failed", ylog.KV("error", err))
			respbuilder.WriteJSON(http.StatusOK, w, r, respbuilder.Message(ctx, msgSendError))
		}
	}
}

type SendPDFReq struct {
	Email  string `json:"email"`
	Name   string `json:"name"`
	PanNo  string `json:"panNo"`
	Pan1No string `json:"pan1No"`
}

// SendPDF resolve pdf of PAN and PAN1 then send them in one mail.
// Path         : POST /api/email/send-pdf
// Request Body : SendPDFReq
// Response     : respbuilder.HTTPMessage
func (h *Handler) SendPDF() func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var reqBody SendPDFReq
		if err := decodeJSON(r, &reqBody); err != nil {
			respbuilder.WriteJSON(http.StatusBadRequest, w, r, respbuilder.Message(ctx, msgPDFRequired))
			return
		}

		if blank(reqBody.Email) || blank(reqBody.Name) || (blank(reqBody.PanNo) && blank(reqBody.Pan1No)) {
			respbuilder.WriteJSON(http.StatusBadRequest, w, r, respbuilder.Message(ctx, msgPDFRequired))
			return
		}

		_, err := h.Config.Dispatch.SendOne(ctx, dispatchsvc.InputSendOne{
			Recipient: dispatchsvc.Recipient{
				Email: reqBody.Email,
				Name:  reqBody.Name,
				PAN:   reqBody.PanNo,
				PAN1:  reqBody.Pan1No,
			},
		})

		var (
			vErr  *dispatchsvc.ValidationError
			nfErr *dispatchsvc.NotFoundError
			tErr  *mailclient.TransportError
		)

		switch {
		case err == nil:
			respbuilder.WriteJSON(http.StatusOK, w, r, respbuilder.StatusMessage(ctx, true, msgSent))

		case errors.As(err, &vErr):
			respbuilder.WriteJSON(http.StatusBadRequest, w, r, respbuilder.Message(ctx, msgPDFRequired))

		case errors.As(err, &nfErr):
			respbuilder.WriteJSON(http.StatusNotFound, w, r, respbuilder.Message(ctx, nfErr.Error()))

		case errors.As(err, &tErr):
			ylog.Error(ctx, "send pdf mail rejected", ylog.KV("error", err))
			respbuilder.WriteJSON(http.StatusOK, w, r, respbuilder.Message(ctx, msgSendError))

		default:
			ylog.Error(ctx, "send pdf mail error", ylog.KV("error", err))
			respbuilder.WriteJSON(http.StatusInternalServerError, w, r, respbuilder.Message(ctx, msgServerError))
		}
	}
}

type BatchReq struct {
	Recipients []httptyped.Recipient `json:"recipients"`
}

type BatchResp struct {
	Report httptyped.Report `json:"report"`
}

// Batch sends to every recipient sequentially and returns the report once all are done.
// Path         : POST /api/email/batch
// Request Body : BatchReq
// Response     : BatchResp
func (h *Handler) Batch() func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var reqBody BatchReq
		if err := decodeJSON(r, &reqBody); err != nil {
			resp := respbuilder.Error(ctx, respbuilder.ErrValidation, err)
			respbuilder.WriteJSON(http.StatusBadRequest, w, r, resp)
			return
		}

		recipients := make([]dispatchsvc.Recipient, 0, len(reqBody.Recipients))
		for _, rec := range reqBody.Recipients {
			recipients = append(recipients, rec.ToDispatch())
		}

		out, err := h.Config.Dispatch.RunBatch(ctx, dispatchsvc.InputRunBatch{
			Recipients: recipients,
		})

		var vErr *dispatchsvc.ValidationError
		if errors.As(err, &vErr) {
			resp := respbuilder.Error(ctx, respbuilder.ErrValidation, vErr)
			respbuilder.WriteJSON(http.StatusBadRequest, w, r, resp)
			return
		}

		if err != nil {
			resp := respbuilder.Error(ctx, respbuilder.ErrUnhandled, err)
			respbuilder.WriteJSON(http.StatusInternalServerError, w, r, resp)
			return
		}

		resp := respbuilder.Success(ctx, BatchResp{
			Report: httptyped.ReportFromSvc(out.Report),
		})
		respbuilder.WriteJSON(http.StatusOK, w, r, resp)
	}
}

type CSVImportResp struct {
	Recipients []recipientcsv.Row `json:"recipients"`
}

// CSVImport parse csv into recipient rows, from multipart field "file" or raw text/csv body.
// Path         : POST /api/email/csv/import
// Request Body : multipart/form-data or text/csv
// Response     : CSVImportResp
func (h *Handler) CSVImport() func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		body, closeBody, err := h.csvBody(w, r)
		if err != nil {
			resp := respbuilder.Error(ctx, respbuilder.ErrValidation, err)
			respbuilder.WriteJSON(http.StatusBadRequest, w, r, resp)
			return
		}

		defer func() {
			if _err := closeBody(); _err != nil {
				ylog.Error(ctx, "cannot close csv body", ylog.KV("error", _err))
			}
		}()

		rows, err := recipientcsv.Decode(body)
		if err != nil {
			resp := respbuilder.Error(ctx, respbuilder.ErrValidation, err)
			respbuilder.WriteJSON(http.StatusBadRequest, w, r, resp)
			return
		}

		resp := respbuilder.Success(ctx, CSVImportResp{
			Recipients: rows,
		})
		respbuilder.WriteJSON(http.StatusOK, w, r, resp)
	}
}

type CSVExportReq struct {
	Recipients []recipientcsv.Row `json:"recipients"`
}

type CSVExportQuery struct {
	Filename string `schema:"filename"`
}

// CSVExport renders recipients as downloadable csv.
// Path         : POST /api/email/csv/export?filename=
// Request Body : CSVExportReq
// Response     : text/csv
func (h *Handler) CSVExport() func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var query CSVExportQuery
		if err := h.decoder.Decode(&query, r.URL.Query()); err != nil {
			resp := respbuilder.Error(ctx, respbuilder.ErrValidation, err)
			respbuilder.WriteJSON(http.StatusBadRequest, w, r, resp)
			return
		}

		var reqBody CSVExportReq
		if err := decodeJSON(r, &reqBody); err != nil {
			resp := respbuilder.Error(ctx, respbuilder.ErrValidation, err)
			respbuilder.WriteJSON(http.StatusBadRequest, w, r, resp)
			return
		}

		content, err := recipientcsv.EncodeBytes(reqBody.Recipients)
		if err != nil {
			resp := respbuilder.Error(ctx, respbuilder.ErrUnhandled, err)
			respbuilder.WriteJSON(http.StatusInternalServerError, w, r, resp)
			return
		}

		respbuilder.WriteFile(http.StatusOK, w, r, "text/csv", exportFileName(query.Filename), content)
	}
}

// csvBody returns the csv content reader, the returned close func must always be called.
func (h *Handler) csvBody(w http.ResponseWriter, r *http.Request) (io.Reader, func() error, error) {
	noop := func() error { return nil }
	if r.Body == nil {
		return nil, noop, fmt.Errorf("request body is nil")
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.Config.MaxCSVSize)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		return r.Body, r.Body.Close, nil
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		return nil, noop, fmt.Errorf("multipart field 'file' is required: %w", err)
	}

	return file, file.Close, nil
}

func decodeJSON(r *http.Request, out interface{}) error {
	if r.Body == nil {
		return fmt.Errorf("request body is nil")
	}

	defer func() {
		if _err := r.Body.Close(); _err != nil {
			ylog.Error(r.Context(), "cannot close request body", ylog.KV("error", _err))
		}
	}()

	return json.NewDecoder(r.Body).Decode(out)
}

func exportFileName(name string) string {
	name = strings.ReplaceAll(filepath.Base(strings.TrimSpace(name)), `"`, "")
	if name == "" || name == "." || name == string(filepath.Separator) {
		return recipientcsv.DefaultFileName
	}

	if !strings.EqualFold(filepath.Ext(name), ".csv") {
		name += ".csv"
	}

	return name
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
