// Command web starts the Tune-Rater-Go API server. It keeps Spotify tokens in
// server-side sessions, proxies the catalogue endpoints the frontend needs and
// stores per-track feedback used to seed recommendations.
//
// Configuration comes from the environment or a TOML file; see package config.

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"

	"Tune-Rater-Go/pkg/auth"
	"Tune-Rater-Go/pkg/config"
	"Tune-Rater-Go/pkg/db"
	"Tune-Rater-Go/pkg/handlers"
	"Tune-Rater-Go/pkg/recommend"
	"Tune-Rater-Go/pkg/session"
	"Tune-Rater-Go/pkg/spotify"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	cfg.SetupLogger()

	ctx := context.Background()
	database, err := db.New(ctx, cfg.Database.Driver, cfg.Database.URL)
	if err != nil {
		log.Fatalf("db init: %v", err)
	}
	defer database.Close()

	deps := newBackends(cfg)
	defer deps.close()

	sched := startJobs(deps.sweepers...)
	defer sched.Stop()

	app := newApplication(cfg, database, deps)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           app.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.WithFields(log.Fields{
			"port":        cfg.Port,
			"environment": cfg.Environment,
			"database":    cfg.Database.Driver,
			"sessions":    deps.kind,
		}).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server error: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("server forced to shutdown: %v", err)
	}
	log.Info("server stopped")
}

// backends holds the session store and login rate limiter, either both in
// memory or both backed by Redis.
type backends struct {
	kind     string
	store    session.Store
	limiter  handlers.Limiter
	sweepers []sweeper
	rdb      *redis.Client
}

func newBackends(cfg *config.Config) *backends {
	ttl := cfg.SessionTTL()
	if cfg.Redis.Addr != "" {
		rdb := session.NewRedisClient(cfg.Redis)
		return &backends{
			kind:    "redis",
			store:   session.NewRedisStore(rdb, ttl),
			limiter: handlers.NewRedisLimiter(rdb, cfg.LoginRateLimit, cfg.LoginRateLimit),
			rdb:     rdb,
		}
	}

	store := session.NewMemoryStore(ttl)
	limiter := handlers.NewMemoryLimiter(cfg.LoginRateLimit, cfg.LoginRateLimit)
	return &backends{
		kind:    "memory",
		store:   store,
		limiter: limiter,
		sweepers: []sweeper{
			{name: "sessions", fn: store.Sweep},
			{name: "rate-limits", fn: func() int { return limiter.Sweep(limiterIdle) }},
		},
	}
}

func (b *backends) close() {
	if b.rdb != nil {
		if err := b.rdb.Close(); err != nil {
			log.Warnf("failed to close redis client: %v", err)
		}
	}
}

func newApplication(cfg *config.Config, database *db.DB, deps *backends) *handlers.Application {
	oauthCfg := auth.NewConfig(cfg.Spotify.ClientID, cfg.Spotify.ClientSecret, cfg.Spotify.RedirectURL)
	return &handlers.Application{
		Sessions:       session.NewManager(deps.store, []byte(cfg.Session.Secret), cfg.SessionTTL(), cfg.SecureCookies()),
		Validator:      auth.NewValidator(oauthCfg, deps.store),
		OAuth:          oauthCfg,
		NewAPI:         spotify.NewClient,
		DB:             database,
		Recommender:    recommend.New(database),
		FrontendURL:    cfg.FrontendURL,
		AllowedOrigins: cfg.AllowedOrigins(),
		Limiter:        deps.limiter,
		TrustProxy:     cfg.TrustProxy,
	}
}
