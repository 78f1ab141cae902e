package httptyped

import (
	"time"

	"github.com/yusufsyaifudin/pdfmailer/internal/svc/authsvc"
	"github.com/yusufsyaifudin/pdfmailer/internal/svc/dispatchsvc"
	"github.com/yusufsyaifudin/pdfmailer/internal/svc/docrepo"
)

// Recipient is one addressee of a pdf mail as sent by client.
type Recipient struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	PAN   string `json:"pan"`
	PAN1  string `json:"pan1"`
}

func (r Recipient) ToDispatch() dispatchsvc.Recipient {
	return dispatchsvc.Recipient{
		Email: r.Email,
		Name:  r.Name,
		PAN:   r.PAN,
		PAN1:  r.PAN1,
	}
}

type Attachment struct {
	Source   string `json:"source"`
	Filename string `json:"filename"`
}

type Outcome struct {
	Recipient
	Status      string       `json:"status"`
	Detail      string       `json:"detail"`
	Attachments []Attachment `json:"attachments"`
	FinishedAt  time.Time    `json:"finishedAt"`
}

func OutcomeFromSvc(o dispatchsvc.Outcome) Outcome {
	attachments := make([]Attachment, 0, len(o.Attachments))
	for _, a := range o.Attachments {
		attachments = append(attachments, Attachment{
			Source:   string(a.Source),
			Filename: a.Filename,
		})
	}

	return Outcome{
		Recipient: Recipient{
			Email: o.Recipient.Email,
			Name:  o.Recipient.Name,
			PAN:   o.Recipient.PAN,
			PAN1:  o.Recipient.PAN1,
		},
		Status:      string(o.Status),
		Detail:      o.Detail,
		Attachments: attachments,
		FinishedAt:  o.FinishedAt,
	}
}

// Report of a batch, Summary and Failures are the human-readable lines.
type Report struct {
	SentCount   int       `json:"sentCount"`
	FailedCount int       `json:"failedCount"`
	Summary     string    `json:"summary"`
	Failures    []string  `json:"failures"`
	Outcomes    []Outcome `json:"outcomes"`
}

func ReportFromSvc(r dispatchsvc.Report) Report {
	outcomes := make([]Outcome, 0, len(r.Outcomes))
	for _, o := range r.Outcomes {
		outcomes = append(outcomes, OutcomeFromSvc(o))
	}

	return Report{
		SentCount:   r.SentCount,
		FailedCount: r.FailedCount,
		Summary:     r.Summary(),
		Failures:    r.FailureDetails(),
		Outcomes:    outcomes,
	}
}

// IDs are encoded as string since sonyflake id does not fit in javascript number.

type DocumentRecipient struct {
	Email  string    `json:"email"`
	Name   string    `json:"name"`
	PAN    string    `json:"pan"`
	PAN1   string    `json:"pan1"`
	Status string    `json:"status"`
	SentAt time.Time `json:"sentAt"`
}

type Document struct {
	ID           int64               `json:"id,string"`
	Filename     string              `json:"filename"`
	OriginalName string              `json:"originalName"`
	Size         int64               `json:"size"`
	CreatedAt    time.Time           `json:"createdAt"`
	Recipients   []DocumentRecipient `json:"recipients"`
}

func DocumentFromRepo(d docrepo.Document) Document {
	recipients := make([]DocumentRecipient, 0, len(d.Recipients))
	for _, r := range d.Recipients {
		recipients = append(recipients, DocumentRecipient{
			Email:  r.Email,
			Name:   r.Name,
			PAN:    r.PAN,
			PAN1:   r.PAN1,
			Status: string(r.Status),
			SentAt: r.SentAt,
		})
	}

	return Document{
		ID:           d.ID,
		Filename:     d.Filename,
		OriginalName: d.OriginalName,
		Size:         d.Size,
		CreatedAt:    d.CreatedAt,
		Recipients:   recipients,
	}
}

// UploadedDocument is the short form returned right after upload.
type UploadedDocument struct {
	ID           int64  `json:"id,string"`
	Filename     string `json:"filename"`
	OriginalName string `json:"originalName"`
	Size         int64  `json:"size"`
}

type User struct {
	ID        int64     `json:"id,string"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

func UserFromSvc(u authsvc.User) User {
	return User{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		CreatedAt: u.CreatedAt,
	}
}
