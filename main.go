package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/rs/zerolog/log"

	"workshop-backend/aliyun"
	"workshop-backend/config"
	"workshop-backend/controllers"
	"workshop-backend/database"
	"workshop-backend/identity"
	"workshop-backend/logging"
	"workshop-backend/middlewares"
	"workshop-backend/receipt"
	"workshop-backend/routes"
	"workshop-backend/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	logging.Setup(cfg.Log)

	if err := run(cfg); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(cfg *config.Config) error {
	// ---- Database
	db, err := database.Connect(cfg.Database)
	if err != nil {
		return err
	}
	defer database.Close(db)
	if err := database.Migrate(db); err != nil {
		return err
	}

	// ---- Identity
	issuer, err := session.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return err
	}
	federator := identity.NewFederator(identity.NewAccounts(database.NewUserStore(db), issuer))
	wechat := identity.NewWeChatLogin(identity.NewWeChatClient(cfg.WeChat), federator, cfg.Identity.SyntheticDomain)

	// ---- Receipts
	verifier := receipt.NewAppleVerifier(cfg.AppStore)
	reconciler := receipt.NewReconciler(database.NewPurchaseStore(db), verifier)

	if cfg.Debug.Enabled {
		log.Warn().Msg("debug endpoints enabled: /api/debug-login is reachable and SMS codes are echoed")
	}

	// ---- Fiber app with global error handler + body limit
	app := fiber.New(fiber.Config{
		ErrorHandler:          middlewares.ErrorHandler,
		BodyLimit:             cfg.Server.BodyLimitBytes,
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middlewares.RequestLogger())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowCredentials: false, // using Bearer tokens, not cookies
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Idempotency-Key, X-Client-Info, Apikey",
	}))

	routes.Register(app, routes.Deps{
		Issuer:      issuer,
		ServiceKey:  cfg.Auth.ServiceKey,
		Idempotency: database.NewIdempotencyStore(db),
		Health: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
		SMS:            controllers.NewSMSController(aliyun.NewSMSClient(cfg.SMS), cfg.Debug.Enabled),
		STS:            controllers.NewSTSController(aliyun.NewSTSClient(cfg.OSS), cfg.OSS),
		Auth:           controllers.NewAuthController(wechat, identity.NewPhoneTestLogin(federator)),
		Receipt:        controllers.NewReceiptController(verifier, reconciler),
		DebugEndpoints: cfg.Debug.Enabled,
	})

	// ---- Start, then drain on SIGINT/SIGTERM
	errc := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		log.Info().Str("addr", addr).Msg("API server started")
		errc <- app.Listen(addr)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errc:
		return err
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	}
	return app.ShutdownWithTimeout(10 * time.Second)
}
