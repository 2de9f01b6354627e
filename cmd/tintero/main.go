package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/dropDatabas3/tintero/internal/cache"
	"github.com/dropDatabas3/tintero/internal/config"
	"github.com/dropDatabas3/tintero/internal/email"
	httpserver "github.com/dropDatabas3/tintero/internal/http"
	"github.com/dropDatabas3/tintero/internal/newsletter"
	"github.com/dropDatabas3/tintero/internal/observability/logger"
	"github.com/dropDatabas3/tintero/internal/store/pg"
	"github.com/dropDatabas3/tintero/internal/subscription"
	migrations "github.com/dropDatabas3/tintero/migrations/postgres"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		flagConfigPath = flag.String("config", "", "ruta a config.yaml (fallback: $CONFIG_PATH)")
		flagEnvFile    = flag.String("env-file", ".env", "ruta a .env (si existe, se carga)")
	)
	flag.Parse()

	// .env primero: config.Load lee overrides del entorno.
	_ = godotenv.Load(*flagEnvFile)

	cfgPath := *flagConfigPath
	if cfgPath == "" {
		cfgPath = os.Getenv("CONFIG_PATH")
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log := logger.New(logger.Config{
		Env:         cfg.App.Env,
		Level:       cfg.Log.Level,
		ServiceName: "tintero",
	})
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ───── Storage ─────
	st, err := pg.New(ctx, cfg.Storage.DSN, pg.Config{
		MaxConns:        cfg.Storage.Postgres.MaxConns,
		MinConns:        cfg.Storage.Postgres.MinConns,
		ConnMaxLifetime: cfg.Storage.Postgres.ConnMaxLifetime,
	}, log.Named("pg"))
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	defer st.Close()

	if cfg.Flags.Migrate {
		if err := st.Migrate(ctx, migrations.FS); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	// ───── Cache ─────
	memTTL, _ := time.ParseDuration(cfg.Cache.Memory.DefaultTTL)
	cacheClient, err := cache.New(cache.Config{
		Kind:       cfg.Cache.Kind,
		Addr:       cfg.Cache.Redis.Addr,
		DB:         cfg.Cache.Redis.DB,
		Prefix:     cfg.Cache.Redis.Prefix,
		DefaultTTL: memTTL,
	})
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer cacheClient.Close()

	// ───── Email ─────
	var sender email.Sender
	switch cfg.Email.Provider {
	case "smtp":
		s := email.NewSMTPSender(
			cfg.Email.SMTP.Host, cfg.Email.SMTP.Port, cfg.Email.From,
			cfg.Email.SMTP.Username, cfg.Email.SMTP.Password,
			log.Named("smtp"))
		s.TLSMode = cfg.Email.SMTP.TLS
		s.InsecureSkipVerify = cfg.Email.SMTP.InsecureSkipVerify
		sender = s
	default:
		sender = email.NewAPISender(
			cfg.Email.API.BaseURL, cfg.Email.API.Token, cfg.Email.From,
			cfg.EmailAPITimeout(), log.Named("email_api"))
	}

	// ───── Services ─────
	subs := subscription.NewService(st, sender, cfg.Server.BaseURL)
	news := newsletter.NewService(st, sender, cacheClient, cfg.EditorCacheTTLDuration())

	// ───── HTTP ─────
	metricsHandler, err := httpserver.RegisterMetrics(httpserver.MetricsConfig{
		Pool: st.PoolStats,
	})
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	h := &httpserver.Handlers{
		Subscriptions: subs,
		Newsletters:   news,
		Ping:          st.Ping,
		Realm:         cfg.Newsletter.Realm,
	}
	router := httpserver.NewRouter(h, log, metricsHandler)

	log.Info("service_start",
		zap.String("env", cfg.App.Env),
		zap.String("addr", cfg.Server.Addr),
		zap.String("email_provider", cfg.Email.Provider),
		zap.String("cache_kind", cfg.Cache.Kind))

	return httpserver.Serve(ctx, cfg.Server.Addr, router, log)
}
