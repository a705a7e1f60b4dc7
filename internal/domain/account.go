package domain

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors for email account resolution and OAuth refresh.
var (
	ErrAccountNotFound = errors.New("email account not found")
	ErrNoUsableAccount = errors.New("no usable email account configured")
	// ErrOAuthRefresh means the provider rejected the stored refresh token or
	// the account lacks an app registration. Callers surface a "reconnect
	// account" prompt rather than a generic failure.
	ErrOAuthRefresh = errors.New("oauth token refresh failed")
)

// AuthKind tags how an account authenticates against its SMTP host.
type AuthKind string

const (
	AuthBasic  AuthKind = "basic"
	AuthOAuth2 AuthKind = "oauth2"
)

// OAuth2Credentials is the credential set for an OAuth2-backed account.
// AccessToken is the only field this core mutates, on refresh; RefreshToken
// may additionally be replaced when the provider rotates it.
type OAuth2Credentials struct {
	Provider     string `json:"provider"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"-"`
	RefreshToken string `json:"-"`
	AccessToken  string `json:"-"`
}

// EmailAccount is a sending identity: SMTP endpoint plus either a password
// (AuthBasic) or OAuth2 credentials (AuthOAuth2). At most one account per
// owner carries IsDefault.
// swagger:model EmailAccount
type EmailAccount struct {
	ID          string             `json:"id"`
	OwnerID     string             `json:"owner_id"`
	Name        string             `json:"name"`
	FromAddress string             `json:"from_address"`
	Host        string             `json:"host"`
	Port        int                `json:"port"`
	Username    string             `json:"username"`
	Auth        AuthKind           `json:"auth"`
	Password    string             `json:"-"`
	OAuth       *OAuth2Credentials `json:"oauth,omitempty"`
	IsDefault   bool               `json:"is_default"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// AccountRepository defines storage for email accounts. Account creation and
// the settings UI are external; this core reads accounts, persists refreshed
// tokens, and handles credential edits/deletes (which must invalidate any
// cached transport).
type AccountRepository interface {
	GetByID(ctx context.Context, id string) (*EmailAccount, error)
	GetDefaultForOwner(ctx context.Context, ownerID string) (*EmailAccount, error)
	UpdateTokens(ctx context.Context, id, accessToken, refreshToken string) error
	UpdateCredentials(ctx context.Context, acc *EmailAccount) error
	Delete(ctx context.Context, id string) error
}

// OAuthConnector completes the OAuth connect flow by trading an
// authorization code for tokens persisted on the account.
type OAuthConnector interface {
	ExchangeCode(ctx context.Context, acc *EmailAccount, code string) error
}

// AccountService handles credential edits and deletion. Both must invalidate
// any cached transport for the account before they are acknowledged.
type AccountService interface {
	UpdateCredentials(ctx context.Context, acc *EmailAccount) error
	Delete(ctx context.Context, id string) error
	ConnectOAuth(ctx context.Context, accountID, code string) error
}
