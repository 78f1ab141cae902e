package genapidoc

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/yusufsyaifudin/pdfmailer/pkg/recipientcsv"
	"github.com/yusufsyaifudin/pdfmailer/pkg/respbuilder"
	"github.com/yusufsyaifudin/pdfmailer/transport/restapi/handlerauth"
	"github.com/yusufsyaifudin/pdfmailer/transport/restapi/handleremail"
	"github.com/yusufsyaifudin/pdfmailer/transport/restapi/handlerpdf"
	"github.com/yusufsyaifudin/pdfmailer/transport/restapi/httptyped"
)

var (
	exampleTime      = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	exampleRecipient = httptyped.Recipient{
		Email: "alice@example.com",
		Name:  "Alice",
		PAN:   "ABCDE1234F",
		PAN1:  "XYZAB9876K",
	}
	exampleUser = httptyped.User{
		ID:        432100012345,
		Email:     "owner@example.com",
		Name:      "Owner",
		CreatedAt: exampleTime,
	}
)

// Endpoints returns every route served by restapi, in the same order as router.
func Endpoints(ctx context.Context) []Endpoint {
	msg := func(s string) interface{} { return respbuilder.Message(ctx, s) }
	errResp := func(kind respbuilder.ErrKind, s string) interface{} {
		return respbuilder.Error(ctx, kind, errors.New(s))
	}

	document := httptyped.Document{
		ID:           432100099999,
		Filename:     "1709285400000-statement.pdf",
		OriginalName: "statement.pdf",
		Size:         20480,
		CreatedAt:    exampleTime,
		Recipients: []httptyped.DocumentRecipient{
			{
				Email:  exampleRecipient.Email,
				Name:   exampleRecipient.Name,
				PAN:    exampleRecipient.PAN,
				PAN1:   exampleRecipient.PAN1,
				Status: "sent",
				SentAt: exampleTime,
			},
		},
	}

	docID := pathParam("id", "Document id", "432100099999")

	return []Endpoint{
		// ** email
		{
			Name:    "EmailSendPlain",
			Method:  http.MethodPost,
			Path:    "/api/email/send",
			Tag:     "Email",
			Summary: "Send plain mail without attachment",
			Request: handleremail.SendPlainReq{Email: exampleRecipient.Email, Subject: "Hello", Text: "Plain text body"},
			Responses: map[int]Response{
				http.StatusOK:         {Description: "Email Sent, or Error Sending Mail! when server rejects it", Body: respbuilder.StatusMessage(ctx, true, "Email Sent")},
				http.StatusBadRequest: {Description: "Missing field", Body: msg("Email, subject, and text are required")},
			},
		},
		{
			Name:        "EmailSendPDF",
			Method:      http.MethodPost,
			Path:        "/api/email/send-pdf",
			Tag:         "Email",
			Summary:     "Send documents of PAN and PAN1 to one recipient",
			Description: "PAN is looked up in primary directory, PAN1 in secondary directory. All found documents are attached in one mail.",
			Request: handleremail.SendPDFReq{
				Email:  exampleRecipient.Email,
				Name:   exampleRecipient.Name,
				PanNo:  exampleRecipient.PAN,
				Pan1No: exampleRecipient.PAN1,
			},
			Responses: map[int]Response{
				http.StatusOK:                  {Description: "Email Sent, or Error Sending Mail! when server rejects it", Body: respbuilder.StatusMessage(ctx, true, "Email Sent")},
				http.StatusBadRequest:          {Description: "Missing field", Body: msg("Email, name, and PAN number are required")},
				http.StatusNotFound:            {Description: "No document matches", Body: msg("No PDFs found for PAN: ABCDE1234F or PAN1: XYZAB9876K")},
				http.StatusInternalServerError: {Description: "Unexpected error", Body: msg("Server error")},
			},
		},
		{
			Name:        "EmailBatch",
			Method:      http.MethodPost,
			Path:        "/api/email/batch",
			Tag:         "Email",
			Summary:     "Send documents to many recipients",
			Description: "Recipients are validated upfront then sent one by one with minimum interval. Response is returned once all are done.",
			Request:     handleremail.BatchReq{Recipients: []httptyped.Recipient{exampleRecipient}},
			Responses: map[int]Response{
				http.StatusOK: {Description: "Batch report", Body: respbuilder.Success(ctx, handleremail.BatchResp{
					Report: httptyped.Report{
						SentCount:   1,
						FailedCount: 0,
						Summary:     "Summary: 1 emails sent successfully. 0 emails failed.",
						Failures:    []string{},
						Outcomes: []httptyped.Outcome{
							{
								Recipient: exampleRecipient,
								Status:    "Sent",
								Detail:    "Email Sent",
								Attachments: []httptyped.Attachment{
									{Source: "primary", Filename: "ABCDE1234F.pdf"},
								},
								FinishedAt: exampleTime,
							},
						},
					},
				})},
				http.StatusBadRequest: {Description: "Invalid recipient, nothing is sent", Body: errResp(respbuilder.ErrValidation, "recipient #0 email: must be a valid email address")},
			},
		},
		{
			Name:           "EmailCSVImport",
			Method:         http.MethodPost,
			Path:           "/api/email/csv/import",
			Tag:            "Email",
			Summary:        "Parse recipient sheet",
			Description:    "Accepts multipart field file or raw text/csv body. Header row is skipped.",
			RequestContent: multipartFile("file"),
			Responses: map[int]Response{
				http.StatusOK: {Description: "Parsed rows", Body: respbuilder.Success(ctx, handleremail.CSVImportResp{
					Recipients: []recipientcsv.Row{{Email: exampleRecipient.Email, Name: exampleRecipient.Name, PAN: exampleRecipient.PAN}},
				})},
				http.StatusBadRequest: {Description: "Unreadable body", Body: errResp(respbuilder.ErrValidation, "multipart field 'file' is required")},
			},
		},
		{
			Name:    "EmailCSVExport",
			Method:  http.MethodPost,
			Path:    "/api/email/csv/export",
			Tag:     "Email",
			Summary: "Download recipients as csv",
			Params:  []*openapi3.Parameter{queryParam("filename", "string", "Download file name", recipientcsv.DefaultFileName)},
			Request: handleremail.CSVExportReq{Recipients: []recipientcsv.Row{{Email: exampleRecipient.Email, Name: exampleRecipient.Name, PAN: exampleRecipient.PAN}}},
			Responses: map[int]Response{
				http.StatusOK: {
					Description: "Email,Name,PAN,PAN1 sheet",
					Content:     openapi3.NewContentWithSchema(openapi3.NewStringSchema(), []string{"text/csv"}),
				},
			},
		},

		// ** auth
		{
			Name:    "AuthRegister",
			Method:  http.MethodPost,
			Path:    "/api/auth/register",
			Tag:     "Auth",
			Summary: "Register new user",
			Request: handlerauth.RegisterReq{Email: exampleUser.Email, Name: exampleUser.Name, Password: "secret123"},
			Responses: map[int]Response{
				http.StatusCreated:    {Description: "Registered", Body: respbuilder.Success(ctx, handlerauth.RegisterResp{User: exampleUser})},
				http.StatusBadRequest: {Description: "Invalid input", Body: errResp(respbuilder.ErrValidation, "validation error")},
				http.StatusConflict:   {Description: "Email is taken", Body: errResp(respbuilder.ErrDuplicateEntries, "user already exists")},
			},
		},
		{
			Name:    "AuthLogin",
			Method:  http.MethodPost,
			Path:    "/api/auth/login",
			Tag:     "Auth",
			Summary: "Login and get bearer token",
			Request: handlerauth.LoginReq{Email: exampleUser.Email, Password: "secret123"},
			Responses: map[int]Response{
				http.StatusOK: {Description: "Logged in", Body: respbuilder.Success(ctx, handlerauth.LoginResp{
					Token:    "6f1c0e...",
					ExpireAt: exampleTime.Add(24 * time.Hour),
					User:     exampleUser,
				})},
				http.StatusUnauthorized: {Description: "Wrong email or password", Body: errResp(respbuilder.ErrUnauthorized, "invalid credentials")},
			},
		},
		{
			Name:    "AuthLogout",
			Method:  http.MethodPost,
			Path:    "/api/auth/logout",
			Tag:     "Auth",
			Summary: "Revoke current bearer token",
			Auth:    true,
			Responses: map[int]Response{
				http.StatusOK:           {Description: "Logged out", Body: msg("Logged out")},
				http.StatusUnauthorized: {Description: "No token", Body: errResp(respbuilder.ErrUnauthorized, "unauthenticated")},
			},
		},

		// ** stored pdf
		{
			Name:           "PdfUpload",
			Method:         http.MethodPost,
			Path:           "/api/pdf/upload",
			Tag:            "PDF",
			Summary:        "Upload pdf",
			Auth:           true,
			RequestContent: multipartFile("pdf"),
			Responses: map[int]Response{
				http.StatusCreated: {Description: "Uploaded", Body: handlerpdf.UploadResp{
					Message: "File uploaded successfully",
					PDF: httptyped.UploadedDocument{
						ID:           document.ID,
						Filename:     document.Filename,
						OriginalName: document.OriginalName,
						Size:         document.Size,
					},
				}},
				http.StatusBadRequest:            {Description: "No file or not a pdf", Body: msg("No file uploaded")},
				http.StatusRequestEntityTooLarge: {Description: "File too large", Body: msg("File too large")},
			},
		},
		{
			Name:    "PdfList",
			Method:  http.MethodGet,
			Path:    "/api/pdf",
			Tag:     "PDF",
			Summary: "List my documents, newest first",
			Auth:    true,
			Params:  []*openapi3.Parameter{queryParam("recipients", "boolean", "false omits sending history", true)},
			Responses: map[int]Response{
				http.StatusOK: {Description: "Documents", Body: document, ArrayOf: true},
			},
		},
		{
			Name:    "PdfGet",
			Method:  http.MethodGet,
			Path:    "/api/pdf/{id}",
			Tag:     "PDF",
			Summary: "Get one of my documents",
			Auth:    true,
			Params:  []*openapi3.Parameter{docID},
			Responses: map[int]Response{
				http.StatusOK:       {Description: "Document", Body: document},
				http.StatusNotFound: {Description: "Unknown or not owned", Body: msg("PDF not found")},
			},
		},
		{
			Name:    "PdfSend",
			Method:  http.MethodPost,
			Path:    "/api/pdf/send",
			Tag:     "PDF",
			Summary: "Send stored document to recipients",
			Auth:    true,
			Request: handlerpdf.SendReq{PdfID: "432100099999", Recipients: []httptyped.Recipient{exampleRecipient}},
			Responses: map[int]Response{
				http.StatusOK: {Description: "Send result", Body: handlerpdf.SendResp{
					Message: "PDF sent to 1 recipients",
					Success: []httptyped.Recipient{exampleRecipient},
					Failed:  []handlerpdf.FailedRecipient{},
				}},
				http.StatusBadRequest: {Description: "No recipient", Body: msg("Recipients are required")},
				http.StatusNotFound:   {Description: "Unknown document or file missing on disk", Body: msg("PDF not found")},
			},
		},
		{
			Name:    "PdfDelete",
			Method:  http.MethodDelete,
			Path:    "/api/pdf/{id}",
			Tag:     "PDF",
			Summary: "Delete one of my documents",
			Auth:    true,
			Params:  []*openapi3.Parameter{docID},
			Responses: map[int]Response{
				http.StatusOK:       {Description: "Deleted", Body: msg("PDF deleted successfully")},
				http.StatusNotFound: {Description: "Unknown or not owned", Body: msg("PDF not found")},
			},
		},
	}
}
