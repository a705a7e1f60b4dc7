package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"invoicedesk/internal/domain"
)

type workflowService struct {
	invoices domain.InvoiceRepository
	settings domain.SettingsRepository
}

// NewInvoiceWorkflow returns the send-state machine. It is the only writer
// of invoice workflow state, for the email-send path and the manual-toggle
// path alike.
func NewInvoiceWorkflow(invoices domain.InvoiceRepository, settings domain.SettingsRepository) domain.InvoiceWorkflow {
	return &workflowService{invoices: invoices, settings: settings}
}

func (s *workflowService) MarkSentToClient(ctx context.Context, inv *domain.Invoice) error {
	now := time.Now()
	inv.SentToClient = true
	inv.SentToClientAt = &now
	return s.invoices.UpdateWorkflow(ctx, inv)
}

func (s *workflowService) MarkSentToAccountant(ctx context.Context, inv *domain.Invoice, client *domain.Client, manualAmountEur *float64) error {
	if !inv.SentToClient {
		return domain.ErrWorkflowGate
	}
	now := time.Now()
	inv.SentToAccountant = true
	inv.SentToAccountantAt = &now
	if err := s.applyEurAmount(ctx, inv, client, manualAmountEur); err != nil {
		return err
	}
	return s.invoices.UpdateWorkflow(ctx, inv)
}

// applyEurAmount stores the EUR-equivalent amount for GBP invoices: the
// caller-supplied manual amount when present, otherwise amount times the
// configured conversion rate.
func (s *workflowService) applyEurAmount(ctx context.Context, inv *domain.Invoice, client *domain.Client, manualAmountEur *float64) error {
	if client.Currency != domain.CurrencyGBP {
		return nil
	}
	if manualAmountEur != nil {
		inv.AmountEur = manualAmountEur
		return nil
	}
	rate, err := s.settings.EurConversionRate(ctx, client.OwnerID)
	if err != nil {
		return fmt.Errorf("resolve conversion rate: %w", err)
	}
	eur := math.Round(inv.Amount*rate*100) / 100
	inv.AmountEur = &eur
	return nil
}

// SetStatus applies a manual operator toggle. Enabling sent_to_accountant
// requires sent_to_client, exactly as on the send path; disabling any flag
// is always allowed.
func (s *workflowService) SetStatus(ctx context.Context, inv *domain.Invoice, client *domain.Client, field domain.StatusField, value bool, manualAmountEur *float64) error {
	now := time.Now()
	switch field {
	case domain.StatusSentToClient:
		inv.SentToClient = value
		inv.SentToClientAt = timestampIf(value, now)
	case domain.StatusSentToAccountant:
		if value {
			if !inv.SentToClient {
				return domain.ErrWorkflowGate
			}
			if err := s.applyEurAmount(ctx, inv, client, manualAmountEur); err != nil {
				return err
			}
		}
		inv.SentToAccountant = value
		inv.SentToAccountantAt = timestampIf(value, now)
	case domain.StatusPaymentReceived:
		inv.PaymentReceived = value
		inv.PaymentReceivedAt = timestampIf(value, now)
	default:
		return fmt.Errorf("unknown status field %q", field)
	}
	return s.invoices.UpdateWorkflow(ctx, inv)
}

func timestampIf(set bool, now time.Time) *time.Time {
	if !set {
		return nil
	}
	return &now
}
