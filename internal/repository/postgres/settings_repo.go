package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"invoicedesk/internal/domain"
)

const (
	eurRateKey         = "eur_conversion_rate"
	accountantEmailKey = "accountant_email"
)

type settingsRepository struct {
	DB *sql.DB
}

func NewSettingsRepository(db *sql.DB) domain.SettingsRepository {
	return &settingsRepository{DB: db}
}

func (r *settingsRepository) EurConversionRate(ctx context.Context, ownerID string) (float64, error) {
	var value string
	err := r.DB.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE owner_id = $1 AND key = $2`, ownerID, eurRateKey,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.DefaultEurConversionRate, nil
	}
	if err != nil {
		return 0, err
	}
	rate, err := strconv.ParseFloat(value, 64)
	if err != nil || rate <= 0 {
		return 0, fmt.Errorf("invalid %s setting %q", eurRateKey, value)
	}
	return rate, nil
}

func (r *settingsRepository) AccountantEmail(ctx context.Context, ownerID string) (string, error) {
	var value string
	err := r.DB.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE owner_id = $1 AND key = $2`, ownerID, accountantEmailKey,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}
