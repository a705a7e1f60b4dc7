package services

import (
	"context"
	"fmt"
	"log/slog"

	"invoicedesk/internal/domain"
)

type accountService struct {
	accounts   domain.AccountRepository
	transports domain.TransportProvider
	connector  domain.OAuthConnector
	logger     *slog.Logger
}

// NewAccountService returns the credential-edit service. Every mutation
// invalidates the cached transport for the account before returning, so no
// later send can reuse a transport built from the old credentials.
func NewAccountService(accounts domain.AccountRepository, transports domain.TransportProvider, connector domain.OAuthConnector, logger *slog.Logger) domain.AccountService {
	return &accountService{
		accounts:   accounts,
		transports: transports,
		connector:  connector,
		logger:     logger,
	}
}

func (s *accountService) UpdateCredentials(ctx context.Context, acc *domain.EmailAccount) error {
	if err := validateAccount(acc); err != nil {
		return err
	}
	if err := s.accounts.UpdateCredentials(ctx, acc); err != nil {
		return err
	}
	s.transports.Invalidate(acc.ID)
	s.logger.Info("email account credentials updated", "account_id", acc.ID)
	return nil
}

func (s *accountService) Delete(ctx context.Context, id string) error {
	if err := s.accounts.Delete(ctx, id); err != nil {
		return err
	}
	s.transports.Invalidate(id)
	s.logger.Info("email account deleted", "account_id", id)
	return nil
}

// ConnectOAuth completes the OAuth callback: exchanges the authorization
// code, persists the tokens, and drops any transport built before the
// account was connected.
func (s *accountService) ConnectOAuth(ctx context.Context, accountID, code string) error {
	acc, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return err
	}
	if err := s.connector.ExchangeCode(ctx, acc, code); err != nil {
		return err
	}
	s.transports.Invalidate(accountID)
	return nil
}

func validateAccount(acc *domain.EmailAccount) error {
	if acc.Host == "" || acc.Username == "" || acc.FromAddress == "" {
		return fmt.Errorf("%w: host, username, and from address are required", domain.ErrTransportConfig)
	}
	switch acc.Auth {
	case domain.AuthBasic:
		if acc.Password == "" {
			return fmt.Errorf("%w: basic accounts require a password", domain.ErrTransportConfig)
		}
	case domain.AuthOAuth2:
		if acc.OAuth == nil || acc.OAuth.Provider == "" {
			return fmt.Errorf("%w: oauth2 accounts require a provider", domain.ErrTransportConfig)
		}
	default:
		return fmt.Errorf("%w: unknown auth kind %q", domain.ErrTransportConfig, acc.Auth)
	}
	return nil
}
