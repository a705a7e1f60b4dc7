package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"invoicedesk/internal/domain"

	"github.com/stretchr/testify/require"
)

func accountRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "owner_id", "name", "from_address", "host", "port", "username", "auth_kind",
		"password", "oauth_provider", "oauth_client_id", "oauth_client_secret",
		"oauth_refresh_token", "oauth_access_token", "is_default", "created_at", "updated_at",
	})
}

func TestAccountRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		id      string
		mock    func(mock sqlmock.Sqlmock)
		want    func(t *testing.T, acc *domain.EmailAccount)
		wantErr bool
		errIs   error
	}{
		{
			name: "basic account has no oauth credentials",
			id:   "acc-1",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT (.+) FROM email_accounts WHERE id = \$1`).
					WithArgs("acc-1").
					WillReturnRows(accountRows().
						AddRow("acc-1", "u-1", "Billing", "me@test", "smtp.test", 587, "me@test", "basic",
							"secret", nil, nil, nil, nil, nil, true, now, now))
			},
			want: func(t *testing.T, acc *domain.EmailAccount) {
				require.Equal(t, domain.AuthBasic, acc.Auth)
				require.Equal(t, "secret", acc.Password)
				require.Nil(t, acc.OAuth)
				require.True(t, acc.IsDefault)
			},
		},
		{
			name: "oauth account carries credentials",
			id:   "acc-2",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT (.+) FROM email_accounts WHERE id = \$1`).
					WithArgs("acc-2").
					WillReturnRows(accountRows().
						AddRow("acc-2", "u-1", "Gmail", "me@gmail.test", "smtp.gmail.com", 587, "me@gmail.test", "oauth2",
							nil, "google", "cid", "csecret", "rt-1", "at-1", false, now, now))
			},
			want: func(t *testing.T, acc *domain.EmailAccount) {
				require.Equal(t, domain.AuthOAuth2, acc.Auth)
				require.NotNil(t, acc.OAuth)
				require.Equal(t, "google", acc.OAuth.Provider)
				require.Equal(t, "rt-1", acc.OAuth.RefreshToken)
				require.Empty(t, acc.Password)
			},
		},
		{
			name: "not found",
			id:   "missing",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT (.+) FROM email_accounts WHERE id = \$1`).
					WithArgs("missing").
					WillReturnError(sql.ErrNoRows)
			},
			wantErr: true,
			errIs:   domain.ErrAccountNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mock(mock)
			repo := NewAccountRepository(db)
			acc, err := repo.GetByID(ctx, tt.id)
			if tt.wantErr {
				require.Error(t, err)
				if tt.errIs != nil {
					require.ErrorIs(t, err, tt.errIs)
				}
			} else {
				require.NoError(t, err)
				tt.want(t, acc)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestAccountRepository_GetDefaultForOwner(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`SELECT (.+) FROM email_accounts WHERE owner_id = \$1 AND is_default`).
		WithArgs("u-1").
		WillReturnRows(accountRows().
			AddRow("acc-1", "u-1", "Billing", "me@test", "smtp.test", 587, "me@test", "basic",
				"secret", nil, nil, nil, nil, nil, true, now, now))

	acc, err := NewAccountRepository(db).GetDefaultForOwner(context.Background(), "u-1")
	require.NoError(t, err)
	require.Equal(t, "acc-1", acc.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepository_UpdateTokens(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name         string
		accessToken  string
		refreshToken string
		mock         func(mock sqlmock.Sqlmock)
		wantErr      bool
		errIs        error
	}{
		{
			name:         "access token only keeps stored refresh token",
			accessToken:  "at-2",
			refreshToken: "",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`UPDATE email_accounts`).
					WithArgs("at-2", "", "acc-1").
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name:         "rotated refresh token is persisted",
			accessToken:  "at-2",
			refreshToken: "rt-2",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`UPDATE email_accounts`).
					WithArgs("at-2", "rt-2", "acc-1").
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name:        "not found",
			accessToken: "at-2",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`UPDATE email_accounts`).
					WillReturnResult(sqlmock.NewResult(0, 0))
			},
			wantErr: true,
			errIs:   domain.ErrAccountNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mock(mock)
			err = NewAccountRepository(db).UpdateTokens(ctx, "acc-1", tt.accessToken, tt.refreshToken)
			if tt.wantErr {
				require.ErrorIs(t, err, tt.errIs)
			} else {
				require.NoError(t, err)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestAccountRepository_UpdateCredentials(t *testing.T) {
	ctx := context.Background()
	// The token columns fall back to their stored values when the edit
	// carries empty ones, matching UpdateTokens.
	updateQuery := `(?s)UPDATE email_accounts\s+SET name = \$1.*` +
		`oauth_refresh_token = COALESCE\(NULLIF\(\$11, ''\), oauth_refresh_token\),\s*` +
		`oauth_access_token = COALESCE\(NULLIF\(\$12, ''\), oauth_access_token\)`

	tests := []struct {
		name    string
		acc     *domain.EmailAccount
		mock    func(mock sqlmock.Sqlmock)
		wantErr error
	}{
		{
			name: "oauth rename without tokens keeps stored tokens",
			acc: &domain.EmailAccount{
				ID: "acc-1", Name: "Renamed", FromAddress: "me@corp.test",
				Host: "smtp.gmail.com", Port: 587, Username: "me@corp.test",
				Auth:  domain.AuthOAuth2,
				OAuth: &domain.OAuth2Credentials{Provider: "google", ClientID: "cid", ClientSecret: "cs"},
			},
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(updateQuery).
					WithArgs("Renamed", "me@corp.test", "smtp.gmail.com", 587, "me@corp.test",
						domain.AuthOAuth2, "", "google", "cid", "cs", "", "", false, "acc-1").
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name: "basic account writes null oauth columns",
			acc: &domain.EmailAccount{
				ID: "acc-2", Name: "Basic", FromAddress: "billing@me.test",
				Host: "smtp.me.test", Port: 465, Username: "billing",
				Auth: domain.AuthBasic, Password: "pw", IsDefault: true,
			},
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(updateQuery).
					WithArgs("Basic", "billing@me.test", "smtp.me.test", 465, "billing",
						domain.AuthBasic, "pw", nil, nil, nil, nil, nil, true, "acc-2").
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name: "not found",
			acc:  &domain.EmailAccount{ID: "acc-9", Host: "smtp.me.test", Username: "x"},
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`UPDATE email_accounts`).
					WillReturnResult(sqlmock.NewResult(0, 0))
			},
			wantErr: domain.ErrAccountNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mock(mock)
			err = NewAccountRepository(db).UpdateCredentials(ctx, tt.acc)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestAccountRepository_Delete(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`DELETE FROM email_accounts WHERE id = \$1`).
		WithArgs("acc-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM email_accounts WHERE id = \$1`).
		WithArgs("acc-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewAccountRepository(db)
	require.NoError(t, repo.Delete(context.Background(), "acc-1"))
	require.ErrorIs(t, repo.Delete(context.Background(), "acc-1"), domain.ErrAccountNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
