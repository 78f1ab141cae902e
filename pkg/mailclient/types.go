package mailclient

import "time"

type TLSMode string

const (
	// TLSModeStartTLS dial plain tcp then upgrade using STARTTLS, commonly port 587.
	TLSModeStartTLS TLSMode = "starttls"
	// TLSModeImplicit dial using TLS from the beginning, commonly port 465.
	TLSModeImplicit TLSMode = "tls"
	// TLSModeNone never upgrade the connection, only for local relay such as mailpit or smtp4dev.
	TLSModeNone TLSMode = "none"
)

const defaultDialTimeout = 10 * time.Second

type EmailCredential struct {
	Protocol           string  `json:"protocol" validate:"required,oneof=smtp"` // smtp, ...
	ServerHost         string  `json:"server_host" validate:"required"`
	ServerPort         int     `json:"server_port" validate:"required"`
	TLSMode            TLSMode `json:"tls_mode" validate:"omitempty,oneof=starttls tls none"`
	InsecureSkipVerify bool    `json:"insecure_skip_verify"`
	AuthIdentity       string  `json:"auth_identity" validate:"-"` //  Authorization identity may be left blank to indicate that it is the same as the username.
	Username           string  `json:"username" validate:"required"`
	Password           string  `json:"password" validate:"required"`
}

// Attachment is a file on local disk, Filename is the name shown to the recipient.
type Attachment struct {
	Filename string `json:"filename" validate:"required"`
	Path     string `json:"path" validate:"required"`
}

// Mail is one message for exactly one recipient.
type Mail struct {
	From        string       `json:"from" validate:"required,email"`
	To          string       `json:"to" validate:"required,email"`
	Subject     string       `json:"subject" validate:"required"`
	Body        string       `json:"body" validate:"-"`
	Attachments []Attachment `json:"attachments" validate:"dive"`
}
