package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/Skotchmaster/jam/internal/config"
	"github.com/Skotchmaster/jam/internal/db"
	"github.com/Skotchmaster/jam/internal/events"
	"github.com/Skotchmaster/jam/internal/httpserver"
	"github.com/Skotchmaster/jam/internal/logging"
	authmw "github.com/Skotchmaster/jam/internal/middleware/auth"
	loggingmw "github.com/Skotchmaster/jam/internal/middleware/logging"
	"github.com/Skotchmaster/jam/internal/rate"
	"github.com/Skotchmaster/jam/internal/repo"
	"github.com/Skotchmaster/jam/internal/service"
	"github.com/Skotchmaster/jam/internal/tokens"
)

func main() {
	cfg := config.Load()
	config.MustNonEmpty(cfg.DatabaseURL, "DATABASE_URL")
	config.MustNonEmptyBytes(cfg.JWTAccessSecret, "JWT_SECRET")
	config.MustNonEmptyBytes(cfg.JWTRefreshSecret, "JWT_REFRESH_SECRET")

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(logger)
	for _, w := range cfg.SecretWarnings() {
		logger.Warn("weak_signing_config", "reason", w)
	}

	initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	gdb, err := db.Open(initCtx, cfg.DatabaseURL)
	if err == nil {
		err = db.Migrate(initCtx, gdb)
	}
	cancel()
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}

	signer, err := tokens.NewSigner(tokens.Config{
		AccessSecret:  cfg.JWTAccessSecret,
		RefreshSecret: cfg.JWTRefreshSecret,
		AccessTTL:     cfg.AccessTTL,
		RefreshTTL:    cfg.RefreshTTL,
		Issuer:        cfg.JWTIssuer,
	})
	if err != nil {
		log.Fatalf("signer: %v", err)
	}

	gateCfg, err := service.NewGateConfig(cfg.JWTOn, cfg.BlacklistEnabled, cfg.BlacklistChecks)
	if err != nil {
		log.Fatalf("gate config: %v", err)
	}

	rp := repo.New(gdb)
	gate := service.NewGate(signer, rp, gateCfg)
	svc := &service.AuthService{
		Users:  rp,
		Tokens: rp,
		Signer: signer,
		Gate:   gate,
	}

	var prod *events.Producer
	if len(cfg.KafkaBrokers) > 0 {
		prod, err = events.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			log.Fatalf("kafka producer: %v", err)
		}
		svc.Events = prod
	}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		limiter, err := rate.New(rdb, rate.Config{
			MaxLoginAttempts:      cfg.LoginMaxAttempts,
			LoginCooldownDuration: cfg.LoginCooldown,
		})
		if err != nil {
			log.Fatalf("login limiter: %v", err)
		}
		svc.Limiter = limiter
	}

	runCtx, stopRun := context.WithCancel(logging.IntoContext(context.Background(), logger))
	defer stopRun()
	go (&service.Pruner{Svc: svc, Interval: cfg.PruneInterval}).Run(runCtx)

	e := echo.New()
	e.HideBanner = true
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID(), loggingmw.RequestLogger(logger))

	httpserver.Register(e, &httpserver.Deps{
		DB:          gdb,
		AuthHandler: &httpserver.AuthHTTP{Svc: svc},
		GateAuth:    authmw.NewGateAuth(gate),
		APIPrefix:   cfg.APIPrefix,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           e,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		logger.Info("http_server_started", "addr", srv.Addr, "enforce", gateCfg.Enforce)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting_down")
	stopRun()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server_shutdown_error", "error", err)
	}
	if prod != nil {
		if err := prod.Close(); err != nil {
			logger.Error("kafka_close_error", "error", err)
		}
	}
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			logger.Error("redis_close_error", "error", err)
		}
	}
	if err := db.Close(gdb); err != nil {
		logger.Error("db_close_error", "error", err)
	}

	logger.Info("shutdown_complete")
}
