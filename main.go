package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"

	"github.com/javascriptando/vips.lat-sub001/controllers/admin"
	"github.com/javascriptando/vips.lat-sub001/controllers/payout"
	"github.com/javascriptando/vips.lat-sub001/controllers/risk"
	"github.com/javascriptando/vips.lat-sub001/controllers/webhook"
	"github.com/javascriptando/vips.lat-sub001/database"
	"github.com/javascriptando/vips.lat-sub001/helpers"
	"github.com/javascriptando/vips.lat-sub001/jobs"
	"github.com/javascriptando/vips.lat-sub001/providers/pix"
	"github.com/javascriptando/vips.lat-sub001/routes"
	"github.com/javascriptando/vips.lat-sub001/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file loaded, using process environment")
	}

	zlog, err := helpers.NewLogger()
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zlog.Sync()
	logger := zlog.Sugar()

	db, err := database.Connect()
	if err != nil {
		logger.Fatalw("database connection failed", "error", err)
	}

	gateway := pix.ClientFromEnv()
	cfg := services.PayoutConfigFromEnv()

	flagSvc := services.NewFraudFlagService(db, logger)
	ledgerSvc := services.NewLedgerService(db, logger)
	velocitySvc := services.NewVelocityService(db)
	identitySvc := services.NewIdentityService(db, flagSvc, logger)
	payoutSvc := services.NewPayoutService(db, ledgerSvc, velocitySvc, flagSvc, gateway, cfg, logger)
	chargebackSvc := services.NewChargebackService(db, flagSvc, logger)

	app := fiber.New(fiber.Config{AppName: "settlement-core"})
	routes.Setup(app, routes.Controllers{
		Payout:  payout.NewController(payoutSvc, logger),
		Risk:    risk.NewController(identitySvc, velocitySvc, logger),
		Admin:   admin.NewController(flagSvc, chargebackSvc, identitySvc, logger),
		Webhook: webhook.NewController(payoutSvc, chargebackSvc, logger),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	jobs.StartSettlementScheduler(ctx, db, payoutSvc, chargebackSvc, logger)

	host := os.Getenv("HOST")
	port := os.Getenv("PORT")
	if host == "" {
		host = "127.0.0.1"
	}
	if port == "" {
		port = "3000"
	}
	addr := fmt.Sprintf("%s:%s", host, port)

	go func() {
		logger.Infow("server running", "addr", addr)
		if err := app.Listen(addr); err != nil {
			logger.Fatalw("server failed to start", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Infow("gracefully shutting down")
	if err := app.Shutdown(); err != nil {
		logger.Fatalw("server forced to shutdown", "error", err)
	}
	logger.Infow("server exited cleanly")
}
