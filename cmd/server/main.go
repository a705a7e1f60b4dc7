package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"invoicedesk/config"
	"invoicedesk/internal/adapters/auth"
	"invoicedesk/internal/adapters/blob"
	"invoicedesk/internal/adapters/mail"
	httpdelivery "invoicedesk/internal/delivery/http"
	"invoicedesk/internal/delivery/http/controllers"
	"invoicedesk/internal/delivery/http/middleware"
	"invoicedesk/internal/repository/postgres"
	"invoicedesk/internal/services"
)

// @title InvoiceDesk API
// @version 1.0
// @description Invoice email dispatch, workflow tracking, and email account management.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger := config.NewLogger()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := postgres.Open(ctx, cfg.DBUrl)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()
	if err := postgres.RunMigrations(ctx, db); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	files, err := blob.NewStore(ctx, cfg.S3)
	if err != nil {
		log.Fatalf("failed to initialize file store: %v", err)
	}

	// Repositories
	invoices := postgres.NewInvoiceRepository(db)
	clients := postgres.NewClientRepository(db)
	templates := postgres.NewTemplateRepository(db)
	accounts := postgres.NewAccountRepository(db)
	history := postgres.NewHistoryRepository(db)
	settings := postgres.NewSettingsRepository(db)

	// Adapters
	refresher := mail.NewTokenRefresher(accounts, cfg.OAuth, logger)
	transports := mail.NewManager(accounts, refresher, cfg.SMTP, mail.NetDialer{}, logger)
	verifier := auth.NewJWTVerifier(cfg.JWTSecret)

	// Services
	workflow := services.NewInvoiceWorkflow(invoices, settings)
	assembler := services.NewAttachmentAssembler(files)
	emailSvc := services.NewEmailService(invoices, clients, templates, settings, history, workflow, transports, assembler, logger)
	accountSvc := services.NewAccountService(accounts, transports, refresher, logger)
	statusSvc := services.NewStatusService(invoices, clients, workflow)

	// Controllers
	emailCtrl := controllers.NewEmailController(logger, emailSvc, accountSvc, cfg.SettingsURL)
	statusCtrl := controllers.NewStatusController(logger, statusSvc)
	accountCtrl := controllers.NewAccountController(logger, accountSvc)

	router := httpdelivery.NewRouter(emailCtrl, statusCtrl, accountCtrl, verifier, logger)

	var handler http.Handler = router
	handler = middleware.CORS(cfg.AllowedOrigins, handler)
	handler = middleware.LoggingMiddleware(logger, handler)

	addr := ":" + cfg.Port
	logger.Info("server starting", "addr", addr, "env", cfg.Environment)
	if err := http.ListenAndServe(addr, handler); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
