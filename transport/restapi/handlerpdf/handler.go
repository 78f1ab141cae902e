package handlerpdf

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/schema"
	"github.com/segmentio/encoding/json"
	"github.com/yusufsyaifudin/pdfmailer/internal/svc/authsvc"
	"github.com/yusufsyaifudin/pdfmailer/internal/svc/docsvc"
	"github.com/yusufsyaifudin/pdfmailer/pkg/respbuilder"
	"github.com/yusufsyaifudin/pdfmailer/pkg/validator"
	"github.com/yusufsyaifudin/pdfmailer/transport/restapi/httptyped"
	"github.com/yusufsyaifudin/ylog"
)

const (
	formField = "pdf"

	msgNoFile      = "No file uploaded"
	msgNotPDF      = "Only PDF files are allowed"
	msgTooLarge    = "File too large"
	msgUploaded    = "File uploaded successfully"
	msgNotFound    = "PDF not found"
	msgNoRecipient = "Recipients are required"
	msgFileMissing = "PDF file not found on server"
	msgDeleted     = "PDF deleted successfully"
	msgServerError = "Server error"
	msgUnauthorized = "Unauthorized"
)

type HandlerConfig struct {
	DocService docsvc.Service `validate:"required"`

	// MaxUploadSize is upper limit of multipart request body in bytes.
	MaxUploadSize int64 `validate:"required,min=1"`
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

	decoder := schema.NewDecoder()
	decoder.IgnoreUnknownKeys(true)

	return &Handler{Config: conf, decoder: decoder}, nil
}

type UploadResp struct {
	Message string                     `json:"message"`
	PDF     httptyped.UploadedDocument `json:"pdf"`
}

// Upload stores pdf from multipart field "pdf".
// Path         : POST /api/pdf/upload
// Request Body : multipart/form-data
// Response     : UploadResp
func (h *Handler) Upload() func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		session, ok := authsvc.Extract(ctx)
		if !ok {
			respbuilder.WriteJSON(http.StatusUnauthorized, w, r, respbuilder.Message(ctx, msgUnauthorized))
			return
		}

		// multipart overhead is small, a bit extra room above file limit is enough
		r.Body = http.MaxBytesReader(w, r.Body, h.Config.MaxUploadSize+(1<<20))
		file, header, err := r.FormFile(formField)
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				respbuilder.WriteJSON(http.StatusRequestEntityTooLarge, w, r, respbuilder.Message(ctx, msgTooLarge))
				return
			}

			respbuilder.WriteJSON(http.StatusBadRequest, w, r, respbuilder.Message(ctx, msgNoFile))
			return
		}

		defer func() {
			if _err := file.Close(); _err != nil {
				ylog.Error(ctx, "cannot close uploaded file", ylog.KV("error", _err))
			}
		}()

		out, err := h.Config.DocService.Upload(ctx, docsvc.InputUpload{
			OwnerID:      session.User.ID,
			OriginalName: header.Filename,
			Content:      file,
		})

		switch {
		case errors.Is(err, docsvc.ErrNoFile):
			respbuilder.WriteJSON(http.StatusBadRequest, w, r, respbuilder.Message(ctx, msgNoFile))
			return

		case errors.Is(err, docsvc.ErrNotPDF):
			respbuilder.WriteJSON(http.StatusBadRequest, w, r, respbuilder.Message(ctx, msgNotPDF))
			return

		case errors.Is(err, docsvc.ErrTooLarge):
			respbuilder.WriteJSON(http.StatusRequestEntityTooLarge, w, r, respbuilder.Message(ctx, msgTooLarge))
			return

		case err != nil:
			ylog.Error(ctx, "pdf upload error", ylog.KV("error", err))
			respbuilder.WriteJSON(http.StatusInternalServerError, w, r, respbuilder.Message(ctx, msgServerError))
			return
		}

		doc := out.Document
		respbuilder.WriteJSON(http.StatusCreated, w, r, UploadResp{
			Message: msgUploaded,
			PDF: httptyped.UploadedDocument{
				ID:           doc.ID,
				Filename:     doc.Filename,
				OriginalName: doc.OriginalName,
				Size:         doc.Size,
			},
		})
	}
}

type ListQuery struct {
	// Recipients false omits sending history from each document.
	Recipients *bool `schema:"recipients"`
}

// List documents of current user, newest first.
// Path         : GET /api/pdf
// Response     : []httptyped.Document
func (h *Handler) List() func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		session, ok := authsvc.Extract(ctx)
		if !ok {
			respbuilder.WriteJSON(http.StatusUnauthorized, w, r, respbuilder.Message(ctx, msgUnauthorized))
			return
		}

		var query ListQuery
		if err := h.decoder.Decode(&query, r.URL.Query()); err != nil {
			resp := respbuilder.Error(ctx, respbuilder.ErrValidation, err)
			respbuilder.WriteJSON(http.StatusBadRequest, w, r, resp)
			return
		}

		out, err := h.Config.DocService.List(ctx, docsvc.InputList{OwnerID: session.User.ID})
		if err != nil {
			ylog.Error(ctx, "list pdf error", ylog.KV("error", err))
			respbuilder.WriteJSON(http.StatusInternalServerError, w, r, respbuilder.Message(ctx, msgServerError))
			return
		}

		docs := make([]httptyped.Document, 0, len(out.Documents))
		for _, d := range out.Documents {
			doc := httptyped.DocumentFromRepo(d)
			if query.Recipients != nil && !*query.Recipients {
				doc.Recipients = nil
			}

			docs = append(docs, doc)
		}

		respbuilder.WriteJSON(http.StatusOK, w, r, docs)
	}
}

// Get one document of current user.
// Path         : GET /api/pdf/{id}
// Response     : httptyped.Document
func (h *Handler) Get() func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		session, ok := authsvc.Extract(ctx)
		if !ok {
			respbuilder.WriteJSON(http.StatusUnauthorized, w, r, respbuilder.Message(ctx, msgUnauthorized))
			return
		}

		id, err := parseID(chi.URLParam(r, "id"))
		if err != nil {
			respbuilder.WriteJSON(http.StatusNotFound, w, r, respbuilder.Message(ctx, msgNotFound))
			return
		}

		out, err := h.Config.DocService.Get(ctx, docsvc.InputGet{OwnerID: session.User.ID, ID: id})
		if errors.Is(err, docsvc.ErrNotFound) {
			respbuilder.WriteJSON(http.StatusNotFound, w, r, respbuilder.Message(ctx, msgNotFound))
			return
		}

		if err != nil {
			ylog.Error(ctx, "get pdf error", ylog.KV("error", err))
			respbuilder.WriteJSON(http.StatusInternalServerError, w, r, respbuilder.Message(ctx, msgServerError))
			return
		}

		respbuilder.WriteJSON(http.StatusOK, w, r, httptyped.DocumentFromRepo(out.Document))
	}
}

type SendReq struct {
	PdfID      string                `json:"pdfId"`
	Recipients []httptyped.Recipient `json:"recipients"`
}

type FailedRecipient struct {
	httptyped.Recipient
	Error string `json:"error"`
}

type SendResp struct {
	Message string                `json:"message"`
	Success []httptyped.Recipient `json:"success"`
	Failed  []FailedRecipient     `json:"failed"`
}

// Send stored document to each recipient.
// Path         : POST /api/pdf/send
// Request Body : SendReq
// Response     : SendResp
func (h *Handler) Send() func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		session, ok := authsvc.Extract(ctx)
		if !ok {
			respbuilder.WriteJSON(http.StatusUnauthorized, w, r, respbuilder.Message(ctx, msgUnauthorized))
			return
		}

		var reqBody SendReq
		if err := decodeJSON(r, &reqBody); err != nil {
			resp := respbuilder.Error(ctx, respbuilder.ErrValidation, err)
			respbuilder.WriteJSON(http.StatusBadRequest, w, r, resp)
			return
		}

		id, err := parseID(reqBody.PdfID)
		if err != nil {
			respbuilder.WriteJSON(http.StatusNotFound, w, r, respbuilder.Message(ctx, msgNotFound))
			return
		}

		recipients := make([]docsvc.Recipient, 0, len(reqBody.Recipients))
		for _, rec := range reqBody.Recipients {
			recipients = append(recipients, docsvc.Recipient{
				Email: rec.Email,
				Name:  rec.Name,
				PAN:   rec.PAN,
				PAN1:  rec.PAN1,
			})
		}

		out, err := h.Config.DocService.Send(ctx, docsvc.InputSend{
			OwnerID:    session.User.ID,
			OwnerName:  session.User.Name,
			DocumentID: id,
			Recipients: recipients,
		})

		switch {
		case errors.Is(err, docsvc.ErrNotFound):
			respbuilder.WriteJSON(http.StatusNotFound, w, r, respbuilder.Message(ctx, msgNotFound))
			return

		case errors.Is(err, docsvc.ErrNoRecipients):
			respbuilder.WriteJSON(http.StatusBadRequest, w, r, respbuilder.Message(ctx, msgNoRecipient))
			return

		case errors.Is(err, docsvc.ErrFileMissing):
			respbuilder.WriteJSON(http.StatusNotFound, w, r, respbuilder.Message(ctx, msgFileMissing))
			return

		case err != nil:
			// mails may be already sent, history is what failed
			ylog.Error(ctx, "send stored pdf error", ylog.KV("error", err))
			respbuilder.WriteJSON(http.StatusInternalServerError, w, r, respbuilder.Message(ctx, msgServerError))
			return
		}

		resp := SendResp{
			Message: fmt.Sprintf("PDF sent to %d recipients", len(out.Success)),
			Success: make([]httptyped.Recipient, 0, len(out.Success)),
			Failed:  make([]FailedRecipient, 0, len(out.Failed)),
		}

		for _, s := range out.Success {
			resp.Success = append(resp.Success, httptyped.Recipient(s))
		}

		for _, f := range out.Failed {
			resp.Failed = append(resp.Failed, FailedRecipient{
				Recipient: httptyped.Recipient(f.Recipient),
				Error:     f.Error,
			})
		}

		respbuilder.WriteJSON(http.StatusOK, w, r, resp)
	}
}

// Delete document file and its record.
// Path         : DELETE /api/pdf/{id}
// Response     : respbuilder.HTTPMessage
func (h *Handler) Delete() func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		session, ok := authsvc.Extract(ctx)
		if !ok {
			respbuilder.WriteJSON(http.StatusUnauthorized, w, r, respbuilder.Message(ctx, msgUnauthorized))
			return
		}

		id, err := parseID(chi.URLParam(r, "id"))
		if err != nil {
			respbuilder.WriteJSON(http.StatusNotFound, w, r, respbuilder.Message(ctx, msgNotFound))
			return
		}

		_, err = h.Config.DocService.Delete(ctx, docsvc.InputDelete{OwnerID: session.User.ID, ID: id})
		if errors.Is(err, docsvc.ErrNotFound) {
			respbuilder.WriteJSON(http.StatusNotFound, w, r, respbuilder.Message(ctx, msgNotFound))
			return
		}

		if err != nil {
			ylog.Error(ctx, "delete pdf error", ylog.KV("error", err))
			respbuilder.WriteJSON(http.StatusInternalServerError, w, r, respbuilder.Message(ctx, msgServerError))
			return
		}

		respbuilder.WriteJSON(http.StatusOK, w, r, respbuilder.Message(ctx, msgDeleted))
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id '%s'", s)
	}

	return id, nil
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
