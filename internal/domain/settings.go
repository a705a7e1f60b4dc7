package domain

import "context"

// DefaultEurConversionRate is used for GBP invoices when no rate is
// configured. Carried over from the source system's documented default; not
// a market rate.
const DefaultEurConversionRate = 1.15

// SettingsRepository reads per-owner settings.
type SettingsRepository interface {
	// EurConversionRate returns the configured GBP to EUR rate for the owner,
	// or DefaultEurConversionRate when none is set.
	EurConversionRate(ctx context.Context, ownerID string) (float64, error)
	// AccountantEmail returns the configured accountant address for the
	// owner, or empty when none is set.
	AccountantEmail(ctx context.Context, ownerID string) (string, error)
}
