package postgres

import (
	"context"
	"database/sql"
	"errors"

	"invoicedesk/internal/domain"
)

type templateRepository struct {
	DB *sql.DB
}

func NewTemplateRepository(db *sql.DB) domain.TemplateRepository {
	return &templateRepository{DB: db}
}

func (r *templateRepository) GetForClient(ctx context.Context, clientID string) (*domain.EmailTemplate, error) {
	query := `
		SELECT id, template_type, client_id, subject, body
		FROM email_templates
		WHERE template_type = $1 AND client_id = $2
	`
	return r.scanOne(r.DB.QueryRowContext(ctx, query, domain.TemplateToClient, clientID))
}

func (r *templateRepository) GetAccountant(ctx context.Context) (*domain.EmailTemplate, error) {
	query := `
		SELECT id, template_type, client_id, subject, body
		FROM email_templates
		WHERE template_type = $1
		ORDER BY id
		LIMIT 1
	`
	return r.scanOne(r.DB.QueryRowContext(ctx, query, domain.TemplateToAccountant))
}

func (r *templateRepository) scanOne(row *sql.Row) (*domain.EmailTemplate, error) {
	t := &domain.EmailTemplate{}
	err := row.Scan(&t.ID, &t.Type, &t.ClientID, &t.Subject, &t.Body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrTemplateNotFound
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}
