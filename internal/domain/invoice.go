package domain

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors for invoice operations.
var (
	ErrInvoiceNotFound    = errors.New("invoice not found")
	ErrInvoiceHasNoClient = errors.New("invoice has no associated client")
	ErrWorkflowGate       = errors.New("invoice must be sent to the client before the accountant")
)

// FileType classifies a stored invoice file.
type FileType string

const (
	FileTypeInvoice   FileType = "invoice"
	FileTypeTimesheet FileType = "timesheet"
)

// InvoiceFile references one stored file attached to an invoice.
type InvoiceFile struct {
	Key  string   `json:"key"`
	Name string   `json:"name"`
	Type FileType `json:"type"`
}

// Invoice represents an invoice and its send-workflow state.
// swagger:model Invoice
type Invoice struct {
	ID                 string        `json:"id"`
	ClientID           string        `json:"client_id"`
	Number             string        `json:"number"`
	Amount             float64       `json:"amount"`
	AmountEur          *float64      `json:"amount_eur"`
	Month              time.Month    `json:"month"`
	Year               int           `json:"year"`
	Files              []InvoiceFile `json:"files"`
	SentToClient       bool          `json:"sent_to_client"`
	SentToClientAt     *time.Time    `json:"sent_to_client_at"`
	SentToAccountant   bool          `json:"sent_to_accountant"`
	SentToAccountantAt *time.Time    `json:"sent_to_accountant_at"`
	PaymentReceived    bool          `json:"payment_received"`
	PaymentReceivedAt  *time.Time    `json:"payment_received_at"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
}

// StatusField names one of the manually togglable workflow flags.
type StatusField string

const (
	StatusSentToClient     StatusField = "sent_to_client"
	StatusSentToAccountant StatusField = "sent_to_accountant"
	StatusPaymentReceived  StatusField = "payment_received"
)

// InvoiceRepository defines the interface for invoice storage. Creation and
// deletion belong to the external CRUD layer; this core only reads invoices
// and persists workflow-state changes.
type InvoiceRepository interface {
	GetByID(ctx context.Context, id string) (*Invoice, error)
	UpdateWorkflow(ctx context.Context, inv *Invoice) error
}

// InvoiceWorkflow enforces the send-state machine. SentToAccountant may only
// be set while SentToClient already holds, on the email-send path and the
// manual-toggle path alike.
type InvoiceWorkflow interface {
	MarkSentToClient(ctx context.Context, inv *Invoice) error
	MarkSentToAccountant(ctx context.Context, inv *Invoice, client *Client, manualAmountEur *float64) error
	SetStatus(ctx context.Context, inv *Invoice, client *Client, field StatusField, value bool, manualAmountEur *float64) error
}

// InvoiceStatusService is the manual-override path: operator toggles applied
// without sending mail, under the same gate as the send path.
type InvoiceStatusService interface {
	SetStatus(ctx context.Context, invoiceID string, field StatusField, value bool, manualAmountEur *float64) (*Invoice, error)
}
