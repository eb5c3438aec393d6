package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"daily-app/internal/api"
	"daily-app/internal/config"
	"daily-app/internal/storage"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}
	logger := log.StandardLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store storage.Backend
	switch cfg.Backend {
	case config.BackendTables:
		table, err := storage.NewTableClient(cfg.StorageConnectionString, cfg.TasksTable)
		if err != nil {
			log.Fatalf("storage: %v", err)
		}
		if err := storage.EnsureTable(ctx, table); err != nil {
			log.Fatalf("create table %s: %v", cfg.TasksTable, err)
		}
		store = storage.NewTables(table)
	default:
		db, err := storage.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			log.Fatalf("sqlite: %v", err)
		}
		defer db.Close()
		store = db
	}

	if cfg.EventsQueue != "" {
		queue, err := storage.NewQueueFromConnectionString(cfg.StorageConnectionString, cfg.EventsQueue)
		if err != nil {
			log.Fatalf("events queue: %v", err)
		}
		if err := storage.EnsureQueue(ctx, queue); err != nil {
			log.Fatalf("create queue %s: %v", cfg.EventsQueue, err)
		}
		store = storage.NewEvents(store, queue, logger)
	}

	var deduper api.Deduper
	if cfg.Redis != nil {
		rc := redis.NewClient(cfg.Redis)
		defer rc.Close()
		store = storage.NewCache(store, rc, cfg.CacheTTL)
		deduper = api.NewRedisDeduper(rc, cfg.DeduperTTL)
	} else {
		log.Info("REDIS_CONNECTION_STRING not set; cache and idempotency disabled")
	}

	var auth *api.Auth
	if cfg.AuthTestMode {
		auth = api.NewTestAuth([]byte(cfg.TestJWTSecret))
	} else {
		jwks, err := keyfunc.Get(cfg.JWKSURL(), keyfunc.Options{})
		if err != nil {
			log.Fatalf("jwks: %v", err)
		}
		defer jwks.EndBackground()
		auth = api.NewAuth(jwks, cfg.Auth0Audience, cfg.Issuer(), cfg.JWKSCacheTTL)
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	api.Register(e, store, auth, deduper, logger)

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("shutdown")
	}
}
