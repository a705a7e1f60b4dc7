package mail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/smtp"
	"sync"

	"invoicedesk/config"
	"invoicedesk/internal/domain"
)

// envCacheKey is the cache sentinel for the environment-fallback transport.
const envCacheKey = "env"

// resolved names one usable sending configuration. acc is nil for the
// environment fallback.
type resolved struct {
	key string
	acc *domain.EmailAccount
}

// resolver tries one strategy for locating a sending configuration. A nil
// result with a nil error means "not applicable, try the next one".
type resolver func(ctx context.Context, accountID, ownerID string) (*resolved, error)

type cacheEntry struct {
	transport domain.Transport
	from      string
}

// Manager resolves accounts to transports and caches the built transport per
// account identity. The cache is process-wide shared state: Invalidate must
// run synchronously before a credential edit or delete is acknowledged, or a
// later send would reuse a transport built from revoked credentials.
type Manager struct {
	accounts  domain.AccountRepository
	refresher *TokenRefresher
	env       config.SMTPFallback
	dialer    Dialer
	logger    *slog.Logger

	mu    sync.Mutex
	cache map[string]cacheEntry
}

func NewManager(accounts domain.AccountRepository, refresher *TokenRefresher, env config.SMTPFallback, dialer Dialer, logger *slog.Logger) *Manager {
	if dialer == nil {
		dialer = NetDialer{}
	}
	return &Manager{
		accounts:  accounts,
		refresher: refresher,
		env:       env,
		dialer:    dialer,
		logger:    logger,
		cache:     make(map[string]cacheEntry),
	}
}

// Get returns the transport and from-address for the request, building and
// caching it on first use. Resolution order: named account, owner's default
// account, environment fallback.
func (m *Manager) Get(ctx context.Context, accountID, ownerID string) (domain.Transport, string, error) {
	res, err := m.resolve(ctx, accountID, ownerID)
	if err != nil {
		return nil, "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if entry, ok := m.cache[res.key]; ok {
		return entry.transport, entry.from, nil
	}

	entry, err := m.build(res)
	if err != nil {
		return nil, "", err
	}
	m.cache[res.key] = entry
	m.logger.Debug("mail transport built", "cache_key", res.key)
	return entry.transport, entry.from, nil
}

// Invalidate drops the cached transport for the account id (or the
// environment sentinel). Safe to call for ids that were never cached.
func (m *Manager) Invalidate(accountID string) {
	if accountID == "" {
		accountID = envCacheKey
	}
	m.mu.Lock()
	delete(m.cache, accountID)
	m.mu.Unlock()
	m.logger.Debug("mail transport invalidated", "cache_key", accountID)
}

func (m *Manager) resolve(ctx context.Context, accountID, ownerID string) (*resolved, error) {
	resolvers := []resolver{m.resolveNamed, m.resolveOwnerDefault, m.resolveEnv}
	for _, try := range resolvers {
		res, err := try(ctx, accountID, ownerID)
		if err != nil {
			return nil, err
		}
		if res != nil {
			return res, nil
		}
	}
	return nil, fmt.Errorf("%w: no account configured and no SMTP environment fallback", domain.ErrNoUsableAccount)
}

func (m *Manager) resolveNamed(ctx context.Context, accountID, _ string) (*resolved, error) {
	if accountID == "" {
		return nil, nil
	}
	acc, err := m.accounts.GetByID(ctx, accountID)
	if err != nil {
		// An explicitly named account that does not exist is an error, not a
		// signal to fall through to another sender identity.
		return nil, err
	}
	return &resolved{key: acc.ID, acc: acc}, nil
}

func (m *Manager) resolveOwnerDefault(ctx context.Context, _, ownerID string) (*resolved, error) {
	if ownerID == "" {
		return nil, nil
	}
	acc, err := m.accounts.GetDefaultForOwner(ctx, ownerID)
	if errors.Is(err, domain.ErrAccountNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &resolved{key: acc.ID, acc: acc}, nil
}

func (m *Manager) resolveEnv(_ context.Context, _, _ string) (*resolved, error) {
	if !m.env.Configured() {
		return nil, nil
	}
	return &resolved{key: envCacheKey}, nil
}

func (m *Manager) build(res *resolved) (cacheEntry, error) {
	if res.acc == nil {
		t := &SMTPTransport{
			dialer:   m.dialer,
			host:     m.env.Host,
			port:     m.env.Port,
			from:     m.env.FromAddress,
			fromName: m.env.FromName,
			auth: func(context.Context) (smtp.Auth, error) {
				return smtp.PlainAuth("", m.env.User, m.env.Password, m.env.Host), nil
			},
		}
		return cacheEntry{transport: t, from: m.env.FromAddress}, nil
	}

	acc := res.acc
	if acc.Host == "" || acc.Username == "" {
		return cacheEntry{}, fmt.Errorf("%w: account %s is missing SMTP host or username", domain.ErrTransportConfig, acc.ID)
	}
	t := &SMTPTransport{
		dialer:   m.dialer,
		host:     acc.Host,
		port:     acc.Port,
		from:     acc.FromAddress,
		fromName: acc.Name,
	}
	switch acc.Auth {
	case domain.AuthOAuth2:
		t.auth = func(ctx context.Context) (smtp.Auth, error) {
			token, err := m.refresher.EnsureAccessToken(ctx, acc)
			if err != nil {
				return nil, err
			}
			return XOAuth2(acc.Username, token), nil
		}
	default:
		if acc.Password == "" {
			return cacheEntry{}, fmt.Errorf("%w: account %s has no password", domain.ErrTransportConfig, acc.ID)
		}
		t.auth = func(context.Context) (smtp.Auth, error) {
			return smtp.PlainAuth("", acc.Username, acc.Password, acc.Host), nil
		}
	}
	return cacheEntry{transport: t, from: acc.FromAddress}, nil
}
