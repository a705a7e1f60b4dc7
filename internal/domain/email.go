package domain

import (
	"context"
	"errors"
)

// ErrFileNotFound is returned when a stored file key does not exist.
var ErrFileNotFound = errors.New("file not found in storage")

// Validation errors surfaced by the send use case.
var (
	ErrNoRecipientEmail = errors.New("recipient has no email address")
	ErrNoInvoiceFiles   = errors.New("invoice has no files to send")
)

// ErrTransportConfig is returned when a transport cannot be built from the
// resolved account or environment configuration.
var ErrTransportConfig = errors.New("mail transport configuration error")

// RecipientType selects whether an email targets the client or the
// accountant. It governs template choice, attachment selection, and the
// workflow gate.
type RecipientType string

const (
	RecipientClient     RecipientType = "client"
	RecipientAccountant RecipientType = "accountant"
)

// Attachment is a transient file fetched from storage at send time.
type Attachment struct {
	Filename    string
	Content     []byte
	ContentType string
}

// Message is one outgoing email.
type Message struct {
	From        string
	FromName    string
	To          string
	CC          []string
	Subject     string
	Body        string
	Attachments []Attachment
}

// Transport is a configured channel capable of sending one email.
type Transport interface {
	// Send delivers the message and returns the provider message identifier.
	Send(ctx context.Context, msg *Message) (messageID string, err error)
	// Verify exercises the transport (handshake and login) without sending.
	Verify(ctx context.Context) error
}

// TransportProvider resolves, caches, and invalidates transports per account.
// Resolution order: explicitly named account, then the owner's default
// account, then environment-configured SMTP credentials.
type TransportProvider interface {
	Get(ctx context.Context, accountID, ownerID string) (Transport, string, error)
	// Invalidate drops the cached transport for the account. Must be called
	// before a credential edit or delete is acknowledged.
	Invalidate(accountID string)
}

// FileStore fetches stored file content by key.
type FileStore interface {
	Fetch(ctx context.Context, key string) ([]byte, error)
}

// SendInvoiceInput is the request for one invoice email dispatch.
type SendInvoiceInput struct {
	InvoiceID       string
	Recipient       RecipientType
	ManualAmountEur *float64
	// AccountID optionally names the sending account; empty falls back to the
	// owner's default account, then to environment SMTP configuration.
	AccountID string
	OwnerID   string
}

// SendInvoiceResult reports a successful dispatch.
type SendInvoiceResult struct {
	MessageID string `json:"message_id"`
	HistoryID string `json:"history_id"`
}

// EmailService is the invoice email dispatch use case.
type EmailService interface {
	SendInvoice(ctx context.Context, in SendInvoiceInput) (*SendInvoiceResult, error)
	VerifyAccount(ctx context.Context, accountID, ownerID string) error
	History(ctx context.Context, invoiceID string, p PaginationParams) ([]*EmailHistoryRecord, int, error)
}
