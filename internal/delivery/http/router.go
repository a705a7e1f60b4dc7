package http

import (
	"log/slog"
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	"invoicedesk/internal/delivery/http/controllers"
	"invoicedesk/internal/delivery/http/middleware"
	"invoicedesk/internal/domain"
)

// NewRouter initializes the HTTP router with all application routes
func NewRouter(
	emailController *controllers.EmailController,
	statusController *controllers.StatusController,
	accountController *controllers.AccountController,
	verifier domain.TokenVerifier,
	logger *slog.Logger,
) *http.ServeMux {
	mux := http.NewServeMux()
	auth := middleware.RequireAuth(verifier, logger)

	// Email dispatch
	mux.HandleFunc("POST /email/send", auth(emailController.Send))
	mux.HandleFunc("GET /email/verify", auth(emailController.Verify))
	mux.HandleFunc("GET /email/history", auth(emailController.History))

	// OAuth connect callback is hit by the provider redirect, not the SPA,
	// so it carries no bearer token.
	mux.HandleFunc("GET /email/oauth/callback", emailController.OAuthCallback)

	// Email accounts
	mux.HandleFunc("PUT /email/accounts/{accountID}", auth(accountController.Update))
	mux.HandleFunc("DELETE /email/accounts/{accountID}", auth(accountController.Delete))

	// Invoice workflow flags
	mux.HandleFunc("PATCH /invoices/{invoiceID}/status", auth(statusController.SetStatus))

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return mux
}
