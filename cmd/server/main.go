package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/iliyamo/media-catalog/internal/authz"
	"github.com/iliyamo/media-catalog/internal/config"
	"github.com/iliyamo/media-catalog/internal/database"
	"github.com/iliyamo/media-catalog/internal/logging"
	"github.com/iliyamo/media-catalog/internal/queue"
	"github.com/iliyamo/media-catalog/internal/router"
	"github.com/iliyamo/media-catalog/internal/service"
)

func main() {
	_ = godotenv.Load() // .env is optional

	logging.Init(logging.Config{Level: os.Getenv("LOG_LEVEL"), Format: os.Getenv("LOG_FORMAT")})
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("load config")
	}

	db, err := database.Open(database.Options{
		Driver:     cfg.DBDriver,
		User:       cfg.DBUser,
		Pass:       cfg.DBPass,
		Host:       cfg.DBHost,
		Port:       cfg.DBPort,
		Name:       cfg.DBName,
		SQLitePath: cfg.SQLitePath,
	})
	if err != nil {
		logging.Fatal().Err(err).Str("driver", cfg.DBDriver).Msg("open database")
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := database.Migrate(ctx, db, cfg.DBDriver); err != nil {
		logging.Fatal().Err(err).Msg("migrate schema")
	}

	rdb := config.NewRedisClient()
	if rdb != nil {
		defer rdb.Close()
	}

	var sender service.CodeSender
	switch cfg.MailTransport {
	case "amqp":
		sender = service.NewAMQPSender(cfg.RabbitURL, cfg.MailFrom)
	default:
		sender = service.NewOutboxSender(cfg.MailOutboxPath, cfg.MailFrom)
	}
	if cfg.MailConsumerEnabled {
		go func() {
			if err := queue.StartMailConsumer(ctx, cfg.RabbitURL, cfg.MailOutboxPath); err != nil && !errors.Is(err, context.Canceled) {
				logging.Error().Err(err).Msg("mail consumer stopped")
			}
		}()
	}

	e := router.New(router.Deps{
		Config:    cfg,
		RateLimit: config.LoadAuthLimitConfig(),
		Cache:     config.LoadCacheConfig(),
		DB:        db,
		Redis:     rdb,
		Policy:    authz.MustNew(),
		Sender:    sender,
	})

	addr := ":" + cfg.Port
	go func() {
		logging.Info().Str("addr", addr).Str("env", cfg.Env).Str("db", cfg.DBDriver).
			Str("mail", cfg.MailTransport).Bool("redis", rdb != nil).Msg("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	logging.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("graceful shutdown")
	}
}
