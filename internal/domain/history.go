package domain

import (
	"context"
	"time"
)

// SendStatus is the outcome recorded for one send attempt.
type SendStatus string

const (
	SendStatusSent   SendStatus = "sent"
	SendStatusFailed SendStatus = "failed"
)

// EmailHistoryRecord is an immutable audit entry for one send attempt,
// successful or not. Records are append-only; no update or delete exists.
// swagger:model EmailHistoryRecord
type EmailHistoryRecord struct {
	ID             string        `json:"id"`
	InvoiceID      string        `json:"invoice_id"`
	TemplateID     *string       `json:"template_id"`
	RecipientEmail string        `json:"recipient_email"`
	RecipientName  string        `json:"recipient_name"`
	RecipientType  RecipientType `json:"recipient_type"`
	Subject        string        `json:"subject"`
	Body           string        `json:"body"`
	Status         SendStatus    `json:"status"`
	ErrorMessage   string        `json:"error_message,omitempty"`
	SentAt         time.Time     `json:"sent_at"`
}

// HistoryRepository appends and lists audit records.
type HistoryRepository interface {
	Insert(ctx context.Context, rec *EmailHistoryRecord) (string, error)
	ListByInvoice(ctx context.Context, invoiceID string, p PaginationParams) ([]*EmailHistoryRecord, int, error)
}
