package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"invoicedesk/internal/domain"
)

type emailService struct {
	invoices   domain.InvoiceRepository
	clients    domain.ClientRepository
	templates  domain.TemplateRepository
	settings   domain.SettingsRepository
	history    domain.HistoryRepository
	workflow   domain.InvoiceWorkflow
	transports domain.TransportProvider
	assembler  *AttachmentAssembler
	logger     *slog.Logger
}

// NewEmailService composes the invoice email dispatch use case.
func NewEmailService(
	invoices domain.InvoiceRepository,
	clients domain.ClientRepository,
	templates domain.TemplateRepository,
	settings domain.SettingsRepository,
	history domain.HistoryRepository,
	workflow domain.InvoiceWorkflow,
	transports domain.TransportProvider,
	assembler *AttachmentAssembler,
	logger *slog.Logger,
) domain.EmailService {
	return &emailService{
		invoices:   invoices,
		clients:    clients,
		templates:  templates,
		settings:   settings,
		history:    history,
		workflow:   workflow,
		transports: transports,
		assembler:  assembler,
		logger:     logger,
	}
}

// SendInvoice runs one synchronous dispatch: resolve, gate, render, assemble,
// send, persist state, record history. There are no retries; every attempt,
// failed or not, leaves exactly one history record once a recipient is known.
func (s *emailService) SendInvoice(ctx context.Context, in domain.SendInvoiceInput) (*domain.SendInvoiceResult, error) {
	inv, err := s.invoices.GetByID(ctx, in.InvoiceID)
	if err != nil {
		return nil, err
	}
	if inv.ClientID == "" {
		return nil, domain.ErrInvoiceHasNoClient
	}
	client, err := s.clients.GetByID(ctx, inv.ClientID)
	if err != nil {
		return nil, err
	}
	ownerID := in.OwnerID
	if ownerID == "" {
		ownerID = client.OwnerID
	}

	tmpl, err := s.resolveTemplate(ctx, client, in.Recipient)
	if err != nil {
		return nil, err
	}

	subject, body := RenderTemplate(tmpl, TemplateContext{
		ClientName:    client.Name,
		InvoiceNumber: inv.Number,
		Amount:        inv.Amount,
		Currency:      client.Currency,
		Month:         inv.Month,
		Year:          inv.Year,
		Now:           time.Now(),
		VATNumber:     client.VATNumber,
		ClientAddress: client.Address,
	})

	toEmail, toName, err := s.resolveRecipient(ctx, client, ownerID, in.Recipient)
	if err != nil {
		return nil, err
	}

	// From here on a recipient is known, so every outcome is auditable.
	rec := &domain.EmailHistoryRecord{
		InvoiceID:      inv.ID,
		TemplateID:     &tmpl.ID,
		RecipientEmail: toEmail,
		RecipientName:  toName,
		RecipientType:  in.Recipient,
		Subject:        subject,
		Body:           body,
	}

	messageID, err := s.dispatch(ctx, in, inv, client, ownerID, rec)
	if err != nil {
		s.recordOutcome(ctx, rec, domain.SendStatusFailed, err)
		return nil, err
	}

	// The message is out; the record is "sent" no matter what happens below.
	historyID := s.recordOutcome(ctx, rec, domain.SendStatusSent, nil)

	if err := s.advanceWorkflow(ctx, in, inv, client); err != nil {
		return nil, fmt.Errorf("email sent (message %s) but workflow update failed: %w", messageID, err)
	}

	s.logger.Info("invoice email sent",
		"invoice_id", inv.ID,
		"recipient_type", in.Recipient,
		"message_id", messageID,
	)
	return &domain.SendInvoiceResult{MessageID: messageID, HistoryID: historyID}, nil
}

// dispatch covers the steps whose failure must be audited as a failed
// attempt: the pre-flight gate, attachment assembly, transport resolution,
// and the send itself.
func (s *emailService) dispatch(ctx context.Context, in domain.SendInvoiceInput, inv *domain.Invoice, client *domain.Client, ownerID string, rec *domain.EmailHistoryRecord) (string, error) {
	// Pre-flight gate: never hand the message to a transport while the
	// invariant does not hold. The state machine checks again on persist.
	if in.Recipient == domain.RecipientAccountant && !inv.SentToClient {
		return "", domain.ErrWorkflowGate
	}
	if !hasInvoiceFile(inv) {
		return "", domain.ErrNoInvoiceFiles
	}

	attachments, err := s.assembler.Assemble(ctx, inv, client, in.Recipient)
	if err != nil {
		return "", err
	}

	var cc []string
	if in.Recipient == domain.RecipientClient {
		cc = client.CC
	}

	// ownerID is already defaulted to the client's owner, so the owner-default
	// account resolver works even when the caller did not identify themselves.
	transport, from, err := s.transports.Get(ctx, in.AccountID, ownerID)
	if err != nil {
		return "", err
	}

	messageID, err := transport.Send(ctx, &domain.Message{
		From:        from,
		To:          rec.RecipientEmail,
		CC:          cc,
		Subject:     rec.Subject,
		Body:        rec.Body,
		Attachments: attachments,
	})
	if err != nil {
		return "", fmt.Errorf("send invoice email: %w", err)
	}
	return messageID, nil
}

func (s *emailService) advanceWorkflow(ctx context.Context, in domain.SendInvoiceInput, inv *domain.Invoice, client *domain.Client) error {
	if in.Recipient == domain.RecipientAccountant {
		return s.workflow.MarkSentToAccountant(ctx, inv, client, in.ManualAmountEur)
	}
	return s.workflow.MarkSentToClient(ctx, inv)
}

func (s *emailService) resolveTemplate(ctx context.Context, client *domain.Client, recipient domain.RecipientType) (*domain.EmailTemplate, error) {
	if recipient == domain.RecipientAccountant {
		tmpl, err := s.templates.GetAccountant(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: create an accountant template first", domain.ErrTemplateNotFound)
		}
		return tmpl, nil
	}
	tmpl, err := s.templates.GetForClient(ctx, client.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: create a template for client %s first", domain.ErrTemplateNotFound, client.Name)
	}
	return tmpl, nil
}

func (s *emailService) resolveRecipient(ctx context.Context, client *domain.Client, ownerID string, recipient domain.RecipientType) (email, name string, err error) {
	if recipient == domain.RecipientAccountant {
		email, err = s.settings.AccountantEmail(ctx, ownerID)
		if err != nil {
			return "", "", fmt.Errorf("resolve accountant email: %w", err)
		}
		if email == "" {
			return "", "", fmt.Errorf("%w: configure an accountant email address", domain.ErrNoRecipientEmail)
		}
		return email, "Accountant", nil
	}
	if client.Email == "" {
		return "", "", fmt.Errorf("%w: client %s has no email", domain.ErrNoRecipientEmail, client.Name)
	}
	return client.Email, client.Name, nil
}

// recordOutcome appends the audit record. Recording is best effort: a
// history failure is logged and never replaces the primary result.
func (s *emailService) recordOutcome(ctx context.Context, rec *domain.EmailHistoryRecord, status domain.SendStatus, sendErr error) string {
	entry := *rec
	entry.Status = status
	entry.SentAt = time.Now()
	if sendErr != nil {
		entry.ErrorMessage = sendErr.Error()
	}
	id, err := s.history.Insert(ctx, &entry)
	if err != nil {
		s.logger.Error("failed to record email history",
			"invoice_id", entry.InvoiceID,
			"status", status,
			"err", err,
		)
		return ""
	}
	return id
}

func hasInvoiceFile(inv *domain.Invoice) bool {
	for _, f := range inv.Files {
		if f.Type == domain.FileTypeInvoice {
			return true
		}
	}
	return false
}

// VerifyAccount resolves the transport for the account (or fallback chain)
// and exercises the handshake and login without sending a message.
func (s *emailService) VerifyAccount(ctx context.Context, accountID, ownerID string) error {
	transport, _, err := s.transports.Get(ctx, accountID, ownerID)
	if err != nil {
		return err
	}
	return transport.Verify(ctx)
}

func (s *emailService) History(ctx context.Context, invoiceID string, p domain.PaginationParams) ([]*domain.EmailHistoryRecord, int, error) {
	return s.history.ListByInvoice(ctx, invoiceID, p)
}
