package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/httplog/v2"
	"github.com/luire/url-shortener/internal/auth"
	"github.com/luire/url-shortener/internal/config"
	"github.com/luire/url-shortener/internal/database/postgres"
	"github.com/luire/url-shortener/internal/service"
	"golang.org/x/sync/errgroup"

	myhttp "github.com/luire/url-shortener/internal/api/http"
)

const resolveCacheEntries = 1 << 16

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		panic(err)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		return err
	}

	logger := httplog.NewLogger("url-shortener", httplog.Options{
		JSON:     cfg.Env == config.EnvProd,
		LogLevel: logLevel(cfg.Env),
		Concise:  cfg.Env != config.EnvProd,
	})

	g, ctx := errgroup.WithContext(ctx)

	db, err := postgres.New(ctx, cfg.Postgres.DSN(),
		postgres.WithConnMaxIdleTime(cfg.Postgres.ConnMaxIdleTime),
		postgres.WithConnMaxLifetime(cfg.Postgres.ConnMaxLifetime),
		postgres.WithMaxIdleConns(cfg.Postgres.MaxIdleConns),
		postgres.WithMaxOpenConns(cfg.Postgres.MaxOpenConns),
	)
	if err != nil {
		return err
	}
	g.Go(func() error {
		<-ctx.Done()
		return db.Close()
	})

	if err := postgres.RunMigrations(cfg.MigrationsPath, cfg.Postgres.DSN()); err != nil {
		return err
	}

	cache, err := service.NewResolveCache(resolveCacheEntries)
	if err != nil {
		return err
	}
	g.Go(func() error {
		<-ctx.Done()
		cache.Close()
		return nil
	})

	urlRepo := postgres.NewURLRepository(db)
	urlSvc := service.NewURLService(logger.Logger, urlRepo, cfg.ShortCodeLength, cache)

	sessions := auth.NewSessionStore(cfg.Auth.Password, cfg.Auth.SessionTTL)
	g.Go(func() error {
		sessions.StartSweeper(ctx, cfg.Auth.SweepInterval)
		return nil
	})

	r := myhttp.NewRouter(logger, urlSvc, sessions, myhttp.Config{
		BaseURL:         cfg.BaseURL,
		AdminHostPrefix: cfg.AdminHostPrefix,
		PublicDir:       cfg.PublicDir,
		RateLimitRPS:    cfg.RateLimit.RPS,
		RateLimitBurst:  cfg.RateLimit.Burst,
	})

	server := &http.Server{
		Addr:           cfg.HTTPServer.Addr(),
		Handler:        r,
		ReadTimeout:    cfg.HTTPServer.ReadTimeout,
		WriteTimeout:   cfg.HTTPServer.WriteTimeout,
		IdleTimeout:    cfg.HTTPServer.IdleTimeout,
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g.Go(func() error {
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		return server.Shutdown(context.Background())
	})

	return g.Wait()
}

func logLevel(env string) slog.Level {
	if env == config.EnvProd {
		return slog.LevelInfo
	}
	return slog.LevelDebug
}
