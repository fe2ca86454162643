package main // Entry point package

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"                      // .env loading for local runs
	"github.com/labstack/echo/v4"                   // Echo web framework
	echomw "github.com/labstack/echo/v4/middleware" // request logging and panic recovery

	"github.com/iliyamo/parking-lot-admin/internal/auth"
	"github.com/iliyamo/parking-lot-admin/internal/config"
	"github.com/iliyamo/parking-lot-admin/internal/database"
	"github.com/iliyamo/parking-lot-admin/internal/handler"
	"github.com/iliyamo/parking-lot-admin/internal/ledger"
	"github.com/iliyamo/parking-lot-admin/internal/logger"
	"github.com/iliyamo/parking-lot-admin/internal/middleware"
	"github.com/iliyamo/parking-lot-admin/internal/queue"
	"github.com/iliyamo/parking-lot-admin/internal/repository"
	"github.com/iliyamo/parking-lot-admin/internal/router"
	"github.com/iliyamo/parking-lot-admin/internal/service"
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()
	cfg := config.Load()

	closer, err := logger.Init(cfg.Env, cfg.LogLevel, cfg.LogFile)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer closer.Close()
	lg := logger.Log

	db, err := openStore(cfg)
	if err != nil {
		lg.Error("database connect failed", "driver", cfg.DBDriver, "err", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	applied, err := database.Migrate(ctx, db, cfg.DBDriver)
	if err != nil {
		lg.Error("migration failed", "err", err)
		os.Exit(1)
	}
	if len(applied) > 0 {
		lg.Info("migrations applied", "files", applied)
	}

	rdb := config.NewRedisClient(config.LoadRedisConfig())
	if rdb == nil {
		lg.Warn("redis unavailable; rate limiting and lot cache disabled")
	} else {
		defer rdb.Close()
	}

	qcfg := config.LoadQueueConfig()
	var events ledger.EventPublisher = service.NopPublisher{}
	if qcfg.Enabled {
		events = service.NewAMQPPublisher(qcfg, lg)
	}
	if qcfg.ConsumerEnabled {
		go func() {
			if err := queue.StartBookingConsumer(ctx, qcfg, lg); err != nil && !errors.Is(err, context.Canceled) {
				lg.Error("booking consumer stopped", "err", err)
			}
		}()
	}

	// ---- Stores and services ----
	admins := repository.NewAdminRepo(db)
	lots := repository.NewLotRepo(db)
	bookings := repository.NewBookingRepo(db)
	riders := repository.NewRiderRepo(db)

	verifier := auth.NewVerifier(admins, cfg.JWTSecret, cfg.SessionTTL(), cfg.BcryptCost)
	guard := auth.NewGuard(cfg.JWTSecret)
	l := ledger.New(lots, bookings, events, lg)

	base := handler.Base{Log: lg, Timeout: cfg.RequestTimeout}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			lg.LogAttrs(c.Request().Context(), slog.LevelInfo, "request",
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("lot_id", middleware.LotID(c)),
			)
			return nil
		},
	}))

	router.Register(e, router.Handlers{
		Auth:    handler.NewAuthHandler(base, verifier, admins),
		Lot:     handler.NewLotHandler(base, lots, l, verifier),
		Booking: handler.NewBookingHandler(base, l, bookings, riders),
		Report:  handler.NewReportHandler(base, lots, bookings, riders),
		Public:  handler.NewPublicHandler(base, lots),
		Health:  handler.Health(db),
	}, router.Middleware{
		Guard:     guard,
		RateLimit: middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, lg),
		Cache:     middleware.NewRedisCache(config.LoadCacheConfig(), rdb, lg),
	})

	addr := ":" + cfg.Port
	go func() {
		lg.Info("listening", "addr", addr, "env", cfg.Env, "driver", cfg.DBDriver)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Error("server failed", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	lg.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		lg.Error("shutdown", "err", err)
	}
}

func openStore(cfg config.Config) (*sql.DB, error) {
	if cfg.DBDriver == config.DriverSQLite {
		return database.OpenSQLite(cfg.SQLitePath)
	}
	return database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
}
