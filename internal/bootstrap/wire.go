package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/baechuer/real-time-ressys/services/identity-service/internal/application/auth"
	"github.com/baechuer/real-time-ressys/services/identity-service/internal/audit"
	"github.com/baechuer/real-time-ressys/services/identity-service/internal/config"
	"github.com/baechuer/real-time-ressys/services/identity-service/internal/infrastructure/db/postgres"
	"github.com/baechuer/real-time-ressys/services/identity-service/internal/infrastructure/mail"
	"github.com/baechuer/real-time-ressys/services/identity-service/internal/infrastructure/memory"
	rabbitmq_notifier "github.com/baechuer/real-time-ressys/services/identity-service/internal/infrastructure/messaging/rabbitmq"
	"github.com/baechuer/real-time-ressys/services/identity-service/internal/infrastructure/redis"
	"github.com/baechuer/real-time-ressys/services/identity-service/internal/infrastructure/security"
	"github.com/baechuer/real-time-ressys/services/identity-service/internal/logger"
	http_handlers "github.com/baechuer/real-time-ressys/services/identity-service/internal/transport/http/handlers"
	"github.com/baechuer/real-time-ressys/services/identity-service/internal/transport/http/middleware"
	"github.com/baechuer/real-time-ressys/services/identity-service/internal/transport/http/response"
	"github.com/baechuer/real-time-ressys/services/identity-service/internal/transport/http/router"
)

/*
========================
 Public entry (prod)
========================
*/

func NewServer() (*http.Server, func(), error) {
	return newServer(defaultDeps())
}

// NewServerWithDeps allows injecting dependencies for testing
func NewServerWithDeps(deps Deps) (*http.Server, func(), error) {
	return newServer(deps)
}

/*
========================
 Dependency injection
========================
*/

type Deps struct {
	LoadConfig func() (*config.Config, error)

	NewDB   func(addr string, debug bool) (*sql.DB, error)
	Migrate func(ctx context.Context, db *sql.DB) error

	NewRedis func(addr, password string, db int) *redis.Client

	NewRabbitNotifier func(url, exchange string) (Notifier, error)
	NewSMTPNotifier   func(cfg mail.SMTPConfig, lg zerolog.Logger) (Notifier, error)

	NewRouter func(router.Deps) (http.Handler, error)
}

// UserStore is what the service and the readiness probe need from a backend.
type UserStore interface {
	auth.UserStore
	Ping(ctx context.Context) error
}

type Notifier interface {
	auth.Notifier
}

type closer interface {
	Close() error
}

/*
========================
 Core bootstrap logic
========================
*/

func newServer(deps Deps) (*http.Server, func(), error) {
	// 0) config
	cfg, err := deps.LoadConfig()
	if err != nil {
		return nil, nil, err
	}

	var cleanupFns []func()
	fail := func(err error) (*http.Server, func(), error) {
		runCleanup(cleanupFns)
		return nil, nil, err
	}

	// 1) user store
	store, storeCleanup, err := newUserStore(cfg, deps)
	if err != nil {
		return fail(err)
	}
	cleanupFns = append(cleanupFns, storeCleanup...)
	logger.Logger.Info().Str("user_store", cfg.UserStore).Msg("user store ready")

	// 2) notifier
	notifier, err := newNotifier(cfg, deps)
	if err != nil {
		return fail(err)
	}
	if c, ok := notifier.(closer); ok {
		cleanupFns = append(cleanupFns, func() { _ = c.Close() })
	}
	logger.Logger.Info().Str("notifier", cfg.Notifier).Msg("notifier ready")

	// 3) security
	logger.Logger.Info().Str("issuer", cfg.JWTIssuer).Msg("initializing jwt issuer")
	hasher := security.NewBcryptHasher(cfg.BcryptCost)
	tokens := security.NewJWTIssuer(cfg.JWTSecret, cfg.JWTIssuer, cfg.AccessTokenTTL)

	// seed (dev only)
	if cfg.SeedDemoUser {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.StoreTimeout)
		memory.SeedDemoUser(ctx, store, hasher, logger.Logger)
		cancel()
	}

	// 4) service
	auditLog := audit.New(logger.Logger)
	authSvc := auth.NewService(
		store,
		hasher,
		security.NewOTPGenerator(),
		tokens,
		notifier,
		auth.Config{
			OTPTTL:        cfg.OTPTTL,
			StoreTimeout:  cfg.StoreTimeout,
			NotifyTimeout: cfg.NotifyTimeout,
		},
	).WithAudit(auditLog.Record)

	// 5) handlers + middleware
	authH := http_handlers.NewAuthHandler(authSvc)
	healthH := http_handlers.NewHealthHandler(store)
	authMW := middleware.Auth(tokens, response.WriteError)

	// 6) router
	mux, err := deps.NewRouter(router.Deps{
		Health: healthH,
		Auth:   authH,
		AuthMW: authMW,
	})
	if err != nil {
		return fail(err)
	}

	// 7) server
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      mux,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	cleanup := func() {
		runCleanup(cleanupFns)
	}

	return srv, cleanup, nil
}

func newUserStore(cfg *config.Config, deps Deps) (UserStore, []func(), error) {
	switch cfg.UserStore {
	case config.StoreMemory:
		return memory.NewUserStore(), nil, nil

	case config.StorePostgres:
		db, err := deps.NewDB(cfg.DBAddr, cfg.DBDebug)
		if err != nil {
			return nil, nil, err
		}
		cleanup := []func(){func() { _ = db.Close() }}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := deps.Migrate(ctx, db); err != nil {
			runCleanup(cleanup)
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
		return postgres.NewUserStore(db), cleanup, nil

	case config.StoreRedis:
		c := deps.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := c.Ping(context.Background()); err != nil {
			_ = c.Close()
			return nil, nil, fmt.Errorf("redis unavailable: %w", err)
		}
		logger.Logger.Info().Msg("redis connected")
		return redis.NewUserStore(c), []func(){func() { _ = c.Close() }}, nil
	}

	return nil, nil, fmt.Errorf("unknown user store %q", cfg.UserStore)
}

func newNotifier(cfg *config.Config, deps Deps) (Notifier, error) {
	switch cfg.Notifier {
	case config.NotifierLog:
		return memory.NewLogNotifier(logger.Logger), nil

	case config.NotifierRabbitMQ:
		n, err := deps.NewRabbitNotifier(cfg.RabbitURL, cfg.RabbitExchange)
		if err != nil {
			if cfg.Env == "dev" {
				logger.Logger.Warn().Err(err).Msg("rabbitmq unavailable; codes go to the log")
				return memory.NewLogNotifier(logger.Logger), nil
			}
			return nil, err
		}
		return n, nil

	case config.NotifierSMTP:
		return deps.NewSMTPNotifier(mail.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
			Insecure: cfg.SMTPInsecure,
			Timeout:  cfg.NotifyTimeout,
			OTPTTL:   cfg.OTPTTL,
		}, logger.Logger)
	}

	return nil, fmt.Errorf("unknown notifier %q", cfg.Notifier)
}

/*
========================
 Default deps (prod)
========================
*/

func defaultDeps() Deps {
	return Deps{
		LoadConfig: config.Load,
		NewDB:      config.NewDB,
		Migrate:    postgres.Migrate,
		NewRedis:   redis.New,
		NewRabbitNotifier: func(url, exchange string) (Notifier, error) {
			return rabbitmq_notifier.NewNotifier(url, exchange)
		},
		NewSMTPNotifier: func(cfg mail.SMTPConfig, lg zerolog.Logger) (Notifier, error) {
			return mail.NewSMTPNotifier(cfg, lg)
		},
		NewRouter: router.New,
	}
}

/*
========================
 helpers
========================
*/

func runCleanup(fns []func()) {
	for i := len(fns) - 1; i >= 0; i-- {
		fns[i]()
	}
}
