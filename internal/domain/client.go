package domain

import (
	"context"
	"errors"
)

// ErrClientNotFound is returned when a client does not exist.
var ErrClientNotFound = errors.New("client not found")

// Currency is the client's invoicing currency.
type Currency string

const (
	CurrencyEUR Currency = "EUR"
	CurrencyGBP Currency = "GBP"
)

// Client represents an invoiced client.
// swagger:model Client
type Client struct {
	ID                string   `json:"id"`
	OwnerID           string   `json:"owner_id"`
	Name              string   `json:"name"`
	Email             string   `json:"email"`
	CC                []string `json:"cc"`
	Currency          Currency `json:"currency"`
	RequiresTimesheet bool     `json:"requires_timesheet"`
	VATNumber         string   `json:"vat_number"`
	Address           string   `json:"address"`
}

// ClientRepository defines read access to clients. CRUD is external.
type ClientRepository interface {
	GetByID(ctx context.Context, id string) (*Client, error)
}
