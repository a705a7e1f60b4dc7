package controllers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"invoicedesk/internal/delivery/http/helpers"
	"invoicedesk/internal/delivery/http/middleware"
	"invoicedesk/internal/domain"
)

// UpdateAccountRequest is the request body for PUT /email/accounts/{accountID}
type UpdateAccountRequest struct {
	Name        string `json:"name"`
	FromAddress string `json:"from_address"`
	Host        string `json:"host"`
	Port        int    `json:"port"`
	Username    string `json:"username"`
	Auth        string `json:"auth"`
	Password    string `json:"password"`
	// OAuth fields apply when auth is "oauth2".
	Provider     string `json:"provider"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	IsDefault    bool   `json:"is_default"`
}

// Validate implements Validator.
func (u UpdateAccountRequest) Validate() []string {
	var errs []string
	if strings.TrimSpace(u.Host) == "" {
		errs = append(errs, "host is required")
	}
	if strings.TrimSpace(u.Username) == "" {
		errs = append(errs, "username is required")
	}
	if strings.TrimSpace(u.FromAddress) == "" {
		errs = append(errs, "from_address is required")
	}
	switch domain.AuthKind(u.Auth) {
	case domain.AuthBasic, domain.AuthOAuth2:
	default:
		errs = append(errs, "auth must be \"basic\" or \"oauth2\"")
	}
	return errs
}

func (u UpdateAccountRequest) toAccount(id, ownerID string) *domain.EmailAccount {
	acc := &domain.EmailAccount{
		ID:          id,
		OwnerID:     ownerID,
		Name:        u.Name,
		FromAddress: u.FromAddress,
		Host:        u.Host,
		Port:        u.Port,
		Username:    u.Username,
		Auth:        domain.AuthKind(u.Auth),
		Password:    u.Password,
		IsDefault:   u.IsDefault,
	}
	if acc.Auth == domain.AuthOAuth2 {
		acc.OAuth = &domain.OAuth2Credentials{
			Provider:     u.Provider,
			ClientID:     u.ClientID,
			ClientSecret: u.ClientSecret,
		}
	}
	return acc
}

// AccountController handles email account credential edits and deletion.
type AccountController struct {
	Logger  *slog.Logger
	Service domain.AccountService
}

// NewAccountController creates an AccountController.
func NewAccountController(logger *slog.Logger, svc domain.AccountService) *AccountController {
	return &AccountController{Logger: logger, Service: svc}
}

// Update godoc
// @Summary Update an email account's credentials
// @Description Persists the new credentials and drops any cached transport for the account before acknowledging, so the next send uses the new credentials.
// @Tags accounts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param accountID path string true "Account id"
// @Param body body UpdateAccountRequest true "New credentials"
// @Success 200 {object} helpers.APIResponse "data contains the updated account"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /email/accounts/{accountID} [put]
func (c *AccountController) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	accountID := strings.TrimSpace(r.PathValue("accountID"))
	if accountID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "accountID is required")
		return
	}
	var req UpdateAccountRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}

	acc := req.toAccount(accountID, userID)
	if err := c.Service.UpdateCredentials(r.Context(), acc); err != nil {
		c.writeAccountError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, acc)
}

// Delete godoc
// @Summary Delete an email account
// @Description Removes the account and drops any cached transport for it before acknowledging.
// @Tags accounts
// @Produce json
// @Security BearerAuth
// @Param accountID path string true "Account id"
// @Success 204
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /email/accounts/{accountID} [delete]
func (c *AccountController) Delete(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.UserIDFromContext(r.Context()); !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	accountID := strings.TrimSpace(r.PathValue("accountID"))
	if accountID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "accountID is required")
		return
	}
	if err := c.Service.Delete(r.Context(), accountID); err != nil {
		c.writeAccountError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *AccountController) writeAccountError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrAccountNotFound):
		helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "email account not found")
	case errors.Is(err, domain.ErrTransportConfig):
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
	default:
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
	}
}
