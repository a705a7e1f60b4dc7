package services

import (
	"context"

	"invoicedesk/internal/domain"
)

type statusService struct {
	invoices domain.InvoiceRepository
	clients  domain.ClientRepository
	workflow domain.InvoiceWorkflow
}

// NewStatusService returns the manual-override path for workflow flags.
func NewStatusService(invoices domain.InvoiceRepository, clients domain.ClientRepository, workflow domain.InvoiceWorkflow) domain.InvoiceStatusService {
	return &statusService{invoices: invoices, clients: clients, workflow: workflow}
}

func (s *statusService) SetStatus(ctx context.Context, invoiceID string, field domain.StatusField, value bool, manualAmountEur *float64) (*domain.Invoice, error) {
	inv, err := s.invoices.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	var client *domain.Client
	if inv.ClientID != "" {
		client, err = s.clients.GetByID(ctx, inv.ClientID)
		if err != nil {
			return nil, err
		}
	} else {
		// Toggles that do not need currency context still work without a
		// client; the workflow only consults it for the EUR conversion.
		client = &domain.Client{}
	}
	if err := s.workflow.SetStatus(ctx, inv, client, field, value, manualAmountEur); err != nil {
		return nil, err
	}
	return inv, nil
}
