package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
	"invoicedesk/internal/domain"
)

type clientRepository struct {
	DB *sql.DB
}

func NewClientRepository(db *sql.DB) domain.ClientRepository {
	return &clientRepository{DB: db}
}

func (r *clientRepository) GetByID(ctx context.Context, id string) (*domain.Client, error) {
	query := `
		SELECT id, owner_id, name, email, cc, currency, requires_timesheet, vat_number, address
		FROM clients
		WHERE id = $1
	`
	c := &domain.Client{}
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&c.ID, &c.OwnerID, &c.Name, &c.Email, pq.Array(&c.CC),
		&c.Currency, &c.RequiresTimesheet, &c.VATNumber, &c.Address,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrClientNotFound
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}
