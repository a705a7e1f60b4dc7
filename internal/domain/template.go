package domain

import (
	"context"
	"errors"
)

// ErrTemplateNotFound is returned when no template exists for the requested
// recipient. There are no fallbacks: client sends need a client-specific
// template, accountant sends need the dedicated accountant template.
var ErrTemplateNotFound = errors.New("email template not found")

// TemplateType discriminates client-scoped and global accountant templates.
type TemplateType string

const (
	TemplateToClient     TemplateType = "to_client"
	TemplateToAccountant TemplateType = "to_accountant"
)

// EmailTemplate holds subject and body text with {{placeholder}} tokens.
// swagger:model EmailTemplate
type EmailTemplate struct {
	ID       string       `json:"id"`
	Type     TemplateType `json:"type"`
	ClientID *string      `json:"client_id"`
	Subject  string       `json:"subject"`
	Body     string       `json:"body"`
}

// TemplateRepository defines read access to email templates.
type TemplateRepository interface {
	// GetForClient returns the to_client template scoped to the given client.
	GetForClient(ctx context.Context, clientID string) (*EmailTemplate, error)
	// GetAccountant returns the global to_accountant template.
	GetAccountant(ctx context.Context) (*EmailTemplate, error)
}
