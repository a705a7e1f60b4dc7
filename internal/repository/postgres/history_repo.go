package postgres

import (
	"context"
	"database/sql"

	"invoicedesk/internal/domain"
)

type historyRepository struct {
	DB *sql.DB
}

func NewHistoryRepository(db *sql.DB) domain.HistoryRepository {
	return &historyRepository{DB: db}
}

// Insert appends one audit record. The table is append-only; no update or
// delete statements exist anywhere for email_history.
func (r *historyRepository) Insert(ctx context.Context, rec *domain.EmailHistoryRecord) (string, error) {
	query := `
		INSERT INTO email_history (invoice_id, template_id, recipient_email, recipient_name,
		                           recipient_type, subject, body, status, error_message, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''), $10)
		RETURNING id
	`
	err := r.DB.QueryRowContext(ctx, query,
		rec.InvoiceID, rec.TemplateID, rec.RecipientEmail, rec.RecipientName,
		rec.RecipientType, rec.Subject, rec.Body, rec.Status, rec.ErrorMessage, rec.SentAt,
	).Scan(&rec.ID)
	if err != nil {
		return "", err
	}
	return rec.ID, nil
}

func (r *historyRepository) ListByInvoice(ctx context.Context, invoiceID string, p domain.PaginationParams) ([]*domain.EmailHistoryRecord, int, error) {
	var total int
	if err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM email_history WHERE invoice_id = $1`, invoiceID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT id, invoice_id, template_id, recipient_email, recipient_name,
		       recipient_type, subject, body, status, COALESCE(error_message, ''), sent_at
		FROM email_history
		WHERE invoice_id = $1
		ORDER BY sent_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.DB.QueryContext(ctx, query, invoiceID, p.PageSize, p.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var records []*domain.EmailHistoryRecord
	for rows.Next() {
		rec := &domain.EmailHistoryRecord{}
		if err := rows.Scan(
			&rec.ID, &rec.InvoiceID, &rec.TemplateID, &rec.RecipientEmail, &rec.RecipientName,
			&rec.RecipientType, &rec.Subject, &rec.Body, &rec.Status, &rec.ErrorMessage, &rec.SentAt,
		); err != nil {
			return nil, 0, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return records, total, nil
}
