package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/JonMunkholm/sellerdash/internal/config"
	"github.com/JonMunkholm/sellerdash/internal/core"
	"github.com/JonMunkholm/sellerdash/internal/logging"
	"github.com/JonMunkholm/sellerdash/internal/store"
	"github.com/JonMunkholm/sellerdash/internal/web"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"database", cfg.Database.URL != "",
		"redis", cfg.Redis.Addr != "",
		"import_max_concurrent", cfg.Import.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, cleanup, err := openStorage(ctx, cfg)
	if err != nil {
		slog.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	service := core.NewService(deps, core.Options{
		DefaultPageSize: cfg.Catalog.DefaultPageSize,
		RowDelay:        cfg.Import.RowDelay,
		MaxFileSize:     cfg.Import.MaxFileSize,
		MaxConcurrent:   cfg.Import.MaxConcurrent,
		MaxWait:         cfg.Import.MaxWaitTime,
		SessionTTL:      cfg.Import.SessionTTL,
	})
	go service.RunJanitor(ctx)

	server := web.NewServer(service, cfg)

	go func() {
		<-ctx.Done()
		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if st := service.LimiterStatus(); st.Active > 0 {
			slog.Info("waiting for imports to complete", "active", st.Active)
		}
		if err := service.Shutdown(shutdownCtx); err != nil {
			slog.Warn("imports did not complete in time", "error", err)
		}
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

// openStorage picks the product store: PostgreSQL when a database URL is
// configured, the in-memory mock otherwise, optionally fronted by Redis.
func openStorage(ctx context.Context, cfg *config.Config) (core.Deps, func(), error) {
	var (
		deps    core.Deps
		closers []func()
		cleanup = func() {
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
		}
	)

	if cfg.Database.URL == "" {
		mem := store.NewMemory(cfg.Catalog.MockProducts, cfg.Catalog.MockSeed)
		deps = core.Deps{Source: mem, Status: mem, Writer: mem, Presets: mem}
		slog.Info("using in-memory product store", "products_per_vendor", cfg.Catalog.MockProducts)
	} else {
		poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
		if err != nil {
			return deps, cleanup, err
		}
		poolConfig.MaxConns = int32(cfg.Database.MaxConns)
		poolConfig.MinConns = int32(cfg.Database.MinConns)
		poolConfig.MaxConnLifetime = cfg.Database.MaxConnLifetime
		poolConfig.MaxConnIdleTime = cfg.Database.MaxConnIdleTime

		pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			return deps, cleanup, err
		}
		closers = append(closers, pool.Close)

		if err := pool.Ping(ctx); err != nil {
			return deps, cleanup, err
		}

		pg := store.NewPostgres(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			return deps, cleanup, err
		}
		deps = core.Deps{Source: pg, Status: pg, Writer: pg, Presets: pg}

		if u, err := url.Parse(cfg.Database.URL); err == nil {
			slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
		}
	}

	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		closers = append(closers, func() { rdb.Close() })

		if err := rdb.Ping(ctx).Err(); err != nil {
			// The cache falls through to the store on errors, so carry on.
			slog.Warn("redis unreachable, catalog cache will miss", "addr", cfg.Redis.Addr, "error", err)
		}
		cached := store.NewCachedSource(deps.Source, rdb, cfg.Redis.TTL, slog.Default())
		deps.Source = cached
		deps.Cache = cached
		slog.Info("catalog cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.TTL)
	}

	return deps, cleanup, nil
}
