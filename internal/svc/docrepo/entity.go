package docrepo

import "time"

type RecipientStatus string

const (
	RecipientPending RecipientStatus = "pending"
	RecipientSent    RecipientStatus = "sent"
	RecipientFailed  RecipientStatus = "failed"
)

// Document is uploaded pdf owned by one user. Path is location of the file on local disk.
type Document struct {
	ID           int64     `db:"id"`
	OwnerID      int64     `db:"owner_id"`
	Filename     string    `db:"filename"`
	OriginalName string    `db:"original_name"`
	Path         string    `db:"path"`
	Size         int64     `db:"size"`
	CreatedAt    time.Time `db:"created_at"`

	Recipients []Recipient `db:"-"`
}

// Recipient is the history of an addressee the document was sent to.
type Recipient struct {
	ID         int64           `db:"id"`
	DocumentID int64           `db:"document_id"`
	Email      string          `db:"email"`
	Name       string          `db:"name"`
	PAN        string          `db:"pan"`
	PAN1       string          `db:"pan1"`
	Status     RecipientStatus `db:"status"`
	SentAt     time.Time       `db:"sent_at"`
}
