package postgres

import (
	"time"
)

// PaymentModel mirrors the payments table. Version backs optimistic
// concurrency on top of the row lock taken for transitions.
type PaymentModel struct {
	ID               string
	ProjectID        string
	TerminIndex      int
	BaseAmount       int64
	TaxAmount        int64
	ServiceFeeAmount int64
	Amount           int64
	PendingAddFunds  int64
	Status           string
	GatewayOrderID   string
	GatewayReference *string
	AttemptCount     int
	Version          int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type ProjectModel struct {
	ID                 string
	OwnerID            string
	VendorID           *string
	TotalContractValue int64
	Installments       int
	CreatedAt          time.Time
	DeletedAt          *time.Time
}

type TerminModel struct {
	ProjectID string
	Index     int
	Value     int64
	DueAt     *time.Time
	Active    bool
}

type LedgerEntryModel struct {
	ID          string
	PaymentID   string
	ProjectID   string
	TerminIndex int
	FromParty   string
	ToParty     string
	Amount      int64
	Kind        string
	CreatedAt   time.Time
}

type StatusChangeModel struct {
	PaymentID string
	Status    string
	Event     string
	Actor     string
	Rejected  bool
	At        time.Time
}

type WebhookEventModel struct {
	ID               string
	GatewayReference string
	OrderID          string
	Event            string
	StatusCode       string
	GrossAmount      string
	RawPayload       []byte
	Processed        bool
	ReceivedAt       time.Time
}
