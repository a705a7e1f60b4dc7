package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"invoicedesk/internal/domain"
)

type invoiceRepository struct {
	DB *sql.DB
}

func NewInvoiceRepository(db *sql.DB) domain.InvoiceRepository {
	return &invoiceRepository{DB: db}
}

func (r *invoiceRepository) GetByID(ctx context.Context, id string) (*domain.Invoice, error) {
	query := `
		SELECT id, COALESCE(client_id::text, ''), number, amount, amount_eur, month, year,
		       sent_to_client, sent_to_client_at, sent_to_accountant, sent_to_accountant_at,
		       payment_received, payment_received_at, created_at, updated_at
		FROM invoices
		WHERE id = $1
	`
	inv := &domain.Invoice{}
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&inv.ID, &inv.ClientID, &inv.Number, &inv.Amount, &inv.AmountEur, &inv.Month, &inv.Year,
		&inv.SentToClient, &inv.SentToClientAt, &inv.SentToAccountant, &inv.SentToAccountantAt,
		&inv.PaymentReceived, &inv.PaymentReceivedAt, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrInvoiceNotFound
	}
	if err != nil {
		return nil, err
	}

	files, err := r.listFiles(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load invoice files: %w", err)
	}
	inv.Files = files
	return inv, nil
}

func (r *invoiceRepository) listFiles(ctx context.Context, invoiceID string) ([]domain.InvoiceFile, error) {
	query := `
		SELECT key, name, file_type
		FROM invoice_files
		WHERE invoice_id = $1
		ORDER BY position, key
	`
	rows, err := r.DB.QueryContext(ctx, query, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []domain.InvoiceFile
	for rows.Next() {
		var f domain.InvoiceFile
		if err := rows.Scan(&f.Key, &f.Name, &f.Type); err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// UpdateWorkflow persists the workflow flags, their timestamps, and the EUR
// amount. All other invoice columns belong to the external CRUD layer.
func (r *invoiceRepository) UpdateWorkflow(ctx context.Context, inv *domain.Invoice) error {
	query := `
		UPDATE invoices
		SET sent_to_client = $1, sent_to_client_at = $2,
		    sent_to_accountant = $3, sent_to_accountant_at = $4,
		    payment_received = $5, payment_received_at = $6,
		    amount_eur = $7, updated_at = now()
		WHERE id = $8
	`
	res, err := r.DB.ExecContext(ctx, query,
		inv.SentToClient, inv.SentToClientAt,
		inv.SentToAccountant, inv.SentToAccountantAt,
		inv.PaymentReceived, inv.PaymentReceivedAt,
		inv.AmountEur, inv.ID,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrInvoiceNotFound
	}
	return nil
}
