package recipients

import "time"

// Status is the per-recipient signing state: pending -> viewed -> signed.
// viewed may be skipped and signed is terminal.
type Status string

const (
	StatusPending Status = "pending"
	StatusViewed  Status = "viewed"
	StatusSigned  Status = "signed"
)

// Recipient is one party asked to sign a document, addressed by an access token.
type Recipient struct {
	ID                 string
	DocumentID         string
	Email              string
	Name               string
	Status             Status
	AccessToken        string
	SignedAt           *time.Time
	SignedDocumentPath string
	CreatedAt          time.Time
}

// SignedUpdate carries the values written by the signed transition.
type SignedUpdate struct {
	Name               string
	SignedAt           time.Time
	SignedDocumentPath string
}
