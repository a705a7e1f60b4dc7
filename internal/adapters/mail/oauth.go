package mail

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/oauth2"

	"invoicedesk/config"
	"invoicedesk/internal/domain"
)

// providerTokenURLs maps account provider tags to token endpoints. Providers
// outside this table need the account to carry its own endpoint-compatible
// app registration, which in practice means one of these anyway.
var providerTokenURLs = map[string]string{
	"google":    "https://oauth2.googleapis.com/token",
	"gmail":     "https://oauth2.googleapis.com/token",
	"microsoft": "https://login.microsoftonline.com/common/oauth2/v2.0/token",
	"outlook":   "https://login.microsoftonline.com/common/oauth2/v2.0/token",
}

// googleProviders may fall back to the shared app registration from config.
var googleProviders = map[string]bool{"google": true, "gmail": true}

// TokenRefresher exchanges stored refresh tokens for fresh access tokens and
// persists the result on the account.
type TokenRefresher struct {
	accounts domain.AccountRepository
	shared   config.OAuth
	logger   *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewTokenRefresher(accounts domain.AccountRepository, shared config.OAuth, logger *slog.Logger) *TokenRefresher {
	return &TokenRefresher{
		accounts: accounts,
		shared:   shared,
		logger:   logger,
		locks:    make(map[string]*sync.Mutex),
	}
}

// lockFor returns the mutex serializing refreshes for one account. Cached
// transports share the account's credentials across goroutines, so the
// refresh-and-rotate sequence must not interleave.
func (r *TokenRefresher) lockFor(accountID string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.locks[accountID]
	if !ok {
		l = &sync.Mutex{}
		r.locks[accountID] = l
	}
	return l
}

// EnsureAccessToken returns a provider-vouched access token for the account.
// Basic-auth accounts are a no-op (empty token, nil error). Failures wrap
// domain.ErrOAuthRefresh so callers can surface a reconnect prompt.
// Concurrent calls for the same account are serialized: the credentials are
// shared with every cached transport that captured this account.
func (r *TokenRefresher) EnsureAccessToken(ctx context.Context, acc *domain.EmailAccount) (string, error) {
	if acc.Auth != domain.AuthOAuth2 || acc.OAuth == nil {
		return "", nil
	}
	lock := r.lockFor(acc.ID)
	lock.Lock()
	defer lock.Unlock()

	cred := acc.OAuth
	if cred.RefreshToken == "" {
		return "", fmt.Errorf("%w: account %s has no refresh token, reconnect the account", domain.ErrOAuthRefresh, acc.ID)
	}

	cfg, err := r.oauthConfig(cred)
	if err != nil {
		return "", err
	}

	// Seeding only the refresh token forces a real exchange: the provider
	// either vouches for the account now or rejects the grant now.
	src := cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: cred.RefreshToken})
	tok, err := src.Token()
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrOAuthRefresh, err)
	}

	rotated := ""
	if tok.RefreshToken != "" && tok.RefreshToken != cred.RefreshToken {
		rotated = tok.RefreshToken
	}
	if err := r.accounts.UpdateTokens(ctx, acc.ID, tok.AccessToken, rotated); err != nil {
		// The token is valid even if persisting it failed; log and continue.
		r.logger.Warn("failed to persist refreshed access token", "account_id", acc.ID, "err", err)
	}
	cred.AccessToken = tok.AccessToken
	if rotated != "" {
		cred.RefreshToken = rotated
	}
	return tok.AccessToken, nil
}

// oauthConfig resolves the token endpoint and app credentials for the
// account. Accounts without their own client id/secret may use the shared
// Google registration; other providers require user-supplied registration.
func (r *TokenRefresher) oauthConfig(cred *domain.OAuth2Credentials) (*oauth2.Config, error) {
	provider := strings.ToLower(cred.Provider)
	tokenURL, ok := providerTokenURLs[provider]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported oauth provider %q", domain.ErrOAuthRefresh, cred.Provider)
	}

	clientID, clientSecret := cred.ClientID, cred.ClientSecret
	if clientID == "" || clientSecret == "" {
		if googleProviders[provider] && r.shared.GoogleClientID != "" {
			clientID, clientSecret = r.shared.GoogleClientID, r.shared.GoogleClientSecret
		} else {
			return nil, fmt.Errorf("%w: provider %q requires an app registration (client id/secret) on the account", domain.ErrOAuthRefresh, cred.Provider)
		}
	}

	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: tokenURL},
	}, nil
}

// ExchangeCode trades an authorization code from the OAuth callback for
// tokens and persists them on the account.
func (r *TokenRefresher) ExchangeCode(ctx context.Context, acc *domain.EmailAccount, code string) error {
	if acc.OAuth == nil {
		return fmt.Errorf("%w: account %s is not an oauth2 account", domain.ErrOAuthRefresh, acc.ID)
	}
	cfg, err := r.oauthConfig(acc.OAuth)
	if err != nil {
		return err
	}
	cfg.RedirectURL = r.shared.RedirectURL
	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("%w: code exchange: %v", domain.ErrOAuthRefresh, err)
	}
	if err := r.accounts.UpdateTokens(ctx, acc.ID, tok.AccessToken, tok.RefreshToken); err != nil {
		return fmt.Errorf("persist exchanged tokens: %w", err)
	}
	return nil
}
