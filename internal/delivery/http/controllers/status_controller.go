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

// SetStatusRequest is the request body for PATCH /invoices/{invoiceID}/status
type SetStatusRequest struct {
	Field            string   `json:"field"`
	Value            bool     `json:"value"`
	InvoiceAmountEur *float64 `json:"invoice_amount_eur"`
}

// Validate implements Validator.
func (s SetStatusRequest) Validate() []string {
	var errs []string
	switch domain.StatusField(s.Field) {
	case domain.StatusSentToClient, domain.StatusSentToAccountant, domain.StatusPaymentReceived:
	default:
		errs = append(errs, "field must be one of \"sent_to_client\", \"sent_to_accountant\", \"payment_received\"")
	}
	if s.InvoiceAmountEur != nil && *s.InvoiceAmountEur <= 0 {
		errs = append(errs, "invoice_amount_eur must be positive")
	}
	return errs
}

// StatusController handles manual workflow-flag toggles.
type StatusController struct {
	Logger  *slog.Logger
	Service domain.InvoiceStatusService
}

// NewStatusController creates a StatusController.
func NewStatusController(logger *slog.Logger, svc domain.InvoiceStatusService) *StatusController {
	return &StatusController{Logger: logger, Service: svc}
}

// SetStatus godoc
// @Summary Toggle a workflow flag on an invoice
// @Description Applies the same rules as the send path: sent_to_accountant requires sent_to_client, and enabling sent_to_accountant on a GBP invoice computes the EUR amount.
// @Tags invoices
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param invoiceID path string true "Invoice id"
// @Param body body SetStatusRequest true "Flag and value"
// @Success 200 {object} helpers.APIResponse "data contains the updated invoice"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /invoices/{invoiceID}/status [patch]
func (c *StatusController) SetStatus(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.UserIDFromContext(r.Context()); !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	invoiceID := strings.TrimSpace(r.PathValue("invoiceID"))
	if invoiceID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "invoiceID is required")
		return
	}
	var req SetStatusRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}

	inv, err := c.Service.SetStatus(r.Context(), invoiceID, domain.StatusField(req.Field), req.Value, req.InvoiceAmountEur)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvoiceNotFound):
			helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "invoice not found")
		case errors.Is(err, domain.ErrWorkflowGate):
			helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
		default:
			c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
			helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		}
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, inv)
}
