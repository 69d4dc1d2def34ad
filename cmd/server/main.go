package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/obhonesty/server/internal/api"
	"github.com/obhonesty/server/internal/config"
	"github.com/obhonesty/server/internal/ledger"
	"github.com/obhonesty/server/internal/logging"
	"github.com/obhonesty/server/internal/orders"
	"github.com/obhonesty/server/internal/payment"
	"github.com/obhonesty/server/internal/service"
	"github.com/obhonesty/server/internal/snapshot"
	"github.com/obhonesty/server/internal/state"
)

func main() {
	// Load configuration
	cfg := config.LoadConfig()

	// Set up logging
	logging.Setup()

	ctx := context.Background()

	// Set up the ledger gateway. Without a spreadsheet id the server runs in
	// the degraded no-backend mode instead of refusing to start.
	var gw ledger.Gateway
	if cfg.Sheets.SpreadsheetID == "" {
		slog.Warn("SHEETS_SPREADSHEET_ID not set, running without a ledger backend")
		gw = ledger.Unavailable{}
	} else {
		sheetsGW, err := ledger.NewSheetsGateway(ctx, cfg.Sheets.CredentialsFile, cfg.Sheets.SpreadsheetID)
		if err != nil {
			slog.Error("failed to set up sheets gateway", "error", err)
			os.Exit(1)
		}
		gw = sheetsGW
	}

	// Wire up state, snapshot building and the payment reconciler
	st := state.NewContainer()
	builder := snapshot.NewBuilder(gw)
	orderSvc := orders.NewService(gw)
	stripeGW := payment.NewStripeGateway(cfg.Stripe.SecretKey, cfg.Stripe.SuccessURL, cfg.Stripe.CancelURL)
	reconciler := payment.NewReconciler(stripeGW, st, cfg.Session.PollInterval, cfg.Stripe.Currency)

	// Create service
	svc := service.NewDefaultService(st, builder, orderSvc, reconciler, cfg.Session.Secret, cfg.Session.IdleTimeout)

	// Build the initial snapshot before accepting requests
	snap, degraded := builder.Build(ctx)
	st.SetSnapshot(snap)
	if degraded {
		slog.Warn("initial snapshot is degraded, some sheets were unavailable")
	}

	// Create API handler
	handler := api.NewHandler(svc)

	// Set up Gin router
	router := gin.Default()

	// Add middleware for JWT secret
	router.Use(func(c *gin.Context) {
		c.Set("jwtSecret", []byte(cfg.Session.Secret))
		c.Next()
	})

	// Set up routes
	handler.SetupRoutes(router)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Start server
	serverAddr := fmt.Sprintf(":%d", cfg.Server.Port)
	slog.Info("starting server", "addr", serverAddr)
	if err := http.ListenAndServe(serverAddr, router); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
