package postgres

import (
	"context"
	"database/sql"
	"errors"

	"invoicedesk/internal/domain"
)

type accountRepository struct {
	DB *sql.DB
}

func NewAccountRepository(db *sql.DB) domain.AccountRepository {
	return &accountRepository{DB: db}
}

const accountColumns = `
	id, owner_id, name, from_address, host, port, username, auth_kind,
	password, oauth_provider, oauth_client_id, oauth_client_secret,
	oauth_refresh_token, oauth_access_token, is_default, created_at, updated_at
`

func (r *accountRepository) GetByID(ctx context.Context, id string) (*domain.EmailAccount, error) {
	query := `SELECT ` + accountColumns + ` FROM email_accounts WHERE id = $1`
	return scanAccount(r.DB.QueryRowContext(ctx, query, id))
}

func (r *accountRepository) GetDefaultForOwner(ctx context.Context, ownerID string) (*domain.EmailAccount, error) {
	query := `SELECT ` + accountColumns + ` FROM email_accounts WHERE owner_id = $1 AND is_default`
	return scanAccount(r.DB.QueryRowContext(ctx, query, ownerID))
}

func scanAccount(row *sql.Row) (*domain.EmailAccount, error) {
	a := &domain.EmailAccount{}
	var password, provider, clientID, clientSecret, refreshToken, accessToken sql.NullString
	err := row.Scan(
		&a.ID, &a.OwnerID, &a.Name, &a.FromAddress, &a.Host, &a.Port, &a.Username, &a.Auth,
		&password, &provider, &clientID, &clientSecret,
		&refreshToken, &accessToken, &a.IsDefault, &a.CreatedAt, &a.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	a.Password = password.String
	if a.Auth == domain.AuthOAuth2 {
		a.OAuth = &domain.OAuth2Credentials{
			Provider:     provider.String,
			ClientID:     clientID.String,
			ClientSecret: clientSecret.String,
			RefreshToken: refreshToken.String,
			AccessToken:  accessToken.String,
		}
	}
	return a, nil
}

// UpdateTokens persists a refreshed access token. The refresh token is only
// replaced when the provider rotated it (non-empty refreshToken).
func (r *accountRepository) UpdateTokens(ctx context.Context, id, accessToken, refreshToken string) error {
	query := `
		UPDATE email_accounts
		SET oauth_access_token = $1,
		    oauth_refresh_token = COALESCE(NULLIF($2, ''), oauth_refresh_token),
		    updated_at = now()
		WHERE id = $3
	`
	res, err := r.DB.ExecContext(ctx, query, accessToken, refreshToken, id)
	if err != nil {
		return err
	}
	return requireAffected(res, domain.ErrAccountNotFound)
}

// UpdateCredentials rewrites the account's sending configuration. Stored
// OAuth tokens survive edits that do not carry new ones, so a rename or
// host change never severs a connected account.
func (r *accountRepository) UpdateCredentials(ctx context.Context, acc *domain.EmailAccount) error {
	var provider, clientID, clientSecret, refreshToken, accessToken *string
	if acc.OAuth != nil {
		provider = &acc.OAuth.Provider
		clientID = &acc.OAuth.ClientID
		clientSecret = &acc.OAuth.ClientSecret
		refreshToken = &acc.OAuth.RefreshToken
		accessToken = &acc.OAuth.AccessToken
	}
	query := `
		UPDATE email_accounts
		SET name = $1, from_address = $2, host = $3, port = $4, username = $5,
		    auth_kind = $6, password = NULLIF($7, ''),
		    oauth_provider = $8, oauth_client_id = $9, oauth_client_secret = $10,
		    oauth_refresh_token = COALESCE(NULLIF($11, ''), oauth_refresh_token),
		    oauth_access_token = COALESCE(NULLIF($12, ''), oauth_access_token),
		    is_default = $13, updated_at = now()
		WHERE id = $14
	`
	res, err := r.DB.ExecContext(ctx, query,
		acc.Name, acc.FromAddress, acc.Host, acc.Port, acc.Username,
		acc.Auth, acc.Password,
		provider, clientID, clientSecret, refreshToken, accessToken,
		acc.IsDefault, acc.ID,
	)
	if err != nil {
		return err
	}
	return requireAffected(res, domain.ErrAccountNotFound)
}

func (r *accountRepository) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM email_accounts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireAffected(res, domain.ErrAccountNotFound)
}

func requireAffected(res sql.Result, notFound error) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return notFound
	}
	return nil
}
