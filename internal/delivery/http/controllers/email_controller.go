package controllers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"invoicedesk/internal/delivery/http/helpers"
	"invoicedesk/internal/delivery/http/middleware"
	"invoicedesk/internal/domain"
)

// SendEmailRequest is the request body for POST /email/send
type SendEmailRequest struct {
	InvoiceID        string   `json:"invoice_id"`
	RecipientType    string   `json:"recipient_type"`
	InvoiceAmountEur *float64 `json:"invoice_amount_eur"`
	AccountID        string   `json:"account_id"`
}

// Validate implements Validator.
func (s SendEmailRequest) Validate() []string {
	var errs []string
	if strings.TrimSpace(s.InvoiceID) == "" {
		errs = append(errs, "invoice_id is required")
	}
	rt := domain.RecipientType(s.RecipientType)
	if rt != domain.RecipientClient && rt != domain.RecipientAccountant {
		errs = append(errs, "recipient_type must be \"client\" or \"accountant\"")
	}
	if s.InvoiceAmountEur != nil && *s.InvoiceAmountEur <= 0 {
		errs = append(errs, "invoice_amount_eur must be positive")
	}
	return errs
}

// SendEmailSuccessResponse is the success envelope for POST /email/send (200).
type SendEmailSuccessResponse struct {
	Data  *domain.SendInvoiceResult `json:"data"`
	Error *helpers.APIError         `json:"error"`
}

// VerifyResponse is the body for GET /email/verify. Always returned with 200;
// a failed verification is a result, not an HTTP error.
type VerifyResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// HistoryResponse is the paginated body for GET /email/history.
type HistoryResponse struct {
	Records []*domain.EmailHistoryRecord `json:"records"`
	Meta    helpers.PaginationMeta       `json:"meta"`
}

// oauthState is the JSON-encoded state round-tripped through the provider.
type oauthState struct {
	AccountID string `json:"account_id"`
	OwnerID   string `json:"owner_id"`
}

// EmailController handles invoice email dispatch, transport verification,
// the OAuth connect callback, and the audit history listing.
type EmailController struct {
	Logger      *slog.Logger
	Service     domain.EmailService
	Accounts    domain.AccountService
	SettingsURL string
}

// NewEmailController creates an EmailController.
func NewEmailController(logger *slog.Logger, svc domain.EmailService, accounts domain.AccountService, settingsURL string) *EmailController {
	return &EmailController{
		Logger:      logger,
		Service:     svc,
		Accounts:    accounts,
		SettingsURL: settingsURL,
	}
}

// Send godoc
// @Summary Send an invoice email
// @Description Sends the invoice to the client or the accountant. Accountant sends require the invoice to be marked sent-to-client first. Every attempt, success or failure, is recorded in the email history.
// @Tags email
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body SendEmailRequest true "Send request"
// @Success 200 {object} controllers.SendEmailSuccessResponse "data contains message_id and history_id"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error or oauth_reconnect"
// @Router /email/send [post]
func (c *EmailController) Send(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	var req SendEmailRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}

	result, err := c.Service.SendInvoice(r.Context(), domain.SendInvoiceInput{
		InvoiceID:       req.InvoiceID,
		Recipient:       domain.RecipientType(req.RecipientType),
		ManualAmountEur: req.InvoiceAmountEur,
		AccountID:       req.AccountID,
		OwnerID:         userID,
	})
	if err != nil {
		c.writeSendError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, result)
}

// writeSendError maps the send error taxonomy to HTTP statuses. OAuth
// failures carry their own code so the UI can prompt a reconnect instead of
// showing a generic failure.
func (c *EmailController) writeSendError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrInvoiceNotFound):
		helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "invoice not found")
	case errors.Is(err, domain.ErrAccountNotFound):
		helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "email account not found")
	case errors.Is(err, domain.ErrClientNotFound),
		errors.Is(err, domain.ErrInvoiceHasNoClient),
		errors.Is(err, domain.ErrTemplateNotFound),
		errors.Is(err, domain.ErrWorkflowGate),
		errors.Is(err, domain.ErrNoRecipientEmail),
		errors.Is(err, domain.ErrNoInvoiceFiles):
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
	case errors.Is(err, domain.ErrOAuthRefresh):
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeOAuthReconnect, err.Error())
	default:
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
	}
}

// Verify godoc
// @Summary Verify a mail transport
// @Description Exercises the transport handshake and login for the named account (or the fallback chain) without sending a message.
// @Tags email
// @Produce json
// @Security BearerAuth
// @Param account_id query string false "Account to verify; empty uses the default account or environment fallback"
// @Success 200 {object} controllers.VerifyResponse
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Router /email/verify [get]
func (c *EmailController) Verify(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	accountID := r.URL.Query().Get("account_id")
	if err := c.Service.VerifyAccount(r.Context(), accountID, userID); err != nil {
		helpers.WriteJSONSuccess(w, http.StatusOK, VerifyResponse{Success: false, Error: err.Error()})
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, VerifyResponse{Success: true})
}

// OAuthCallback godoc
// @Summary OAuth connect callback
// @Description Receives the provider redirect, exchanges the authorization code for tokens, persists them on the account named in state, and redirects to the settings page.
// @Tags email
// @Param code query string true "Authorization code"
// @Param state query string true "JSON-encoded {account_id, owner_id}"
// @Success 302
// @Router /email/oauth/callback [get]
func (c *EmailController) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	var state oauthState
	if err := json.Unmarshal([]byte(r.URL.Query().Get("state")), &state); err != nil || code == "" || state.AccountID == "" {
		c.redirectSettings(w, r, "invalid oauth callback")
		return
	}
	if err := c.Accounts.ConnectOAuth(r.Context(), state.AccountID, code); err != nil {
		c.Logger.ErrorContext(r.Context(), "oauth connect failed", "account_id", state.AccountID, "err", err)
		c.redirectSettings(w, r, err.Error())
		return
	}
	c.redirectSettings(w, r, "")
}

func (c *EmailController) redirectSettings(w http.ResponseWriter, r *http.Request, errMsg string) {
	target := c.SettingsURL + "?connected=1"
	if errMsg != "" {
		target = c.SettingsURL + "?error=" + url.QueryEscape(errMsg)
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// History godoc
// @Summary List send attempts for an invoice
// @Description Returns the append-only audit records, newest first.
// @Tags email
// @Produce json
// @Security BearerAuth
// @Param invoice_id query string true "Invoice id"
// @Param page query int false "Page (default 1)"
// @Param page_size query int false "Page size (default 20, max 100)"
// @Success 200 {object} controllers.HistoryResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Router /email/history [get]
func (c *EmailController) History(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.UserIDFromContext(r.Context()); !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	invoiceID := r.URL.Query().Get("invoice_id")
	if invoiceID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "invoice_id is required")
		return
	}
	p := helpers.ParsePagination(r)
	records, total, err := c.Service.History(r.Context(), invoiceID, p)
	if err != nil {
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	if records == nil {
		records = []*domain.EmailHistoryRecord{}
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, HistoryResponse{
		Records: records,
		Meta:    helpers.NewPaginationMeta(p.Page, p.PageSize, total),
	})
}
