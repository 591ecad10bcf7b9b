package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/spindle/internal/adapters/broadcast"
	"github.com/okian/spindle/internal/adapters/http/api"
	"github.com/okian/spindle/internal/adapters/repository"
	app "github.com/okian/spindle/internal/app"
	"github.com/okian/spindle/internal/config"
	"github.com/okian/spindle/internal/domain/catalog"
	"github.com/okian/spindle/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() { _ = logger.Sync() }()

	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	// Storage: Postgres when configured, in-memory otherwise.
	var (
		store  repository.Store
		reader catalog.Reader
	)
	if cfg.DatabaseURL != "" {
		pg, err := repository.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal(ctx, "failed to connect metric store", logger.Error(err))
		}
		defer pg.Close()
		if err := pg.Migrate(ctx); err != nil {
			log.Fatal(ctx, "failed to migrate metric store", logger.Error(err))
		}
		store = pg
		reader = repository.NewPostgresCatalog(pg)
		log.Info(ctx, "using postgres store")
	} else {
		store = repository.NewMemoryStore()
		reader = demoCatalog()
		log.Info(ctx, "using in-memory store with demo catalog")
	}

	// Broadcast: Redis when configured, log-only otherwise.
	var emitter broadcast.Emitter
	if cfg.RedisAddr != "" {
		re, err := broadcast.NewRedisEmitter(ctx, cfg.RedisAddr, broadcast.WithChannel(cfg.BroadcastChannel))
		if err != nil {
			log.Fatal(ctx, "failed to connect redis", logger.Error(err))
		}
		defer func() { _ = re.Close() }()
		emitter = re
		log.Info(ctx, "using redis broadcast", logger.String("channel", cfg.BroadcastChannel))
	} else {
		emitter = broadcast.NewLogEmitter()
	}

	svc := app.New(
		app.WithLogger(log),
		app.WithCatalog(reader),
		app.WithStore(store),
		app.WithEmitter(emitter),
		app.WithBufferCapacity(cfg.BufferCapacity),
		app.WithFlushInterval(time.Duration(cfg.FlushIntervalMS)*time.Millisecond),
		app.WithAnnounceTier(catalog.Tier(cfg.AnnounceTier)),
	)
	if err := svc.Start(ctx); err != nil {
		log.Fatal(ctx, "failed to start service", logger.Error(err))
	}
	defer svc.Stop()

	mux := http.NewServeMux()
	api.NewServer(svc).Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString("HTTP server failed: " + err.Error() + "\n")
		}
	}()

	<-ctx.Done()
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
}

// demoCatalog seeds one case so the in-memory mode is usable out of the box.
func demoCatalog() *repository.MemoryCatalog {
	c := repository.NewMemoryCatalog()
	c.AddCase(
		catalog.CaseDefinition{
			ID:    "starter",
			Name:  "Starter Case",
			Price: 250,
			Distribution: map[catalog.Tier]float64{
				catalog.TierCommon:    60,
				catalog.TierUncommon:  25,
				catalog.TierRare:      10,
				catalog.TierEpic:      4,
				catalog.TierLegendary: 1,
			},
		},
		[]catalog.WeightedItem{
			{ID: "rusty-blade", Name: "Rusty Blade", Rarity: catalog.TierCommon, BaseValue: 40, Category: "weapon", Weight: 60, ValueMultiplier: 1.0},
			{ID: "worn-gloves", Name: "Worn Gloves", Rarity: catalog.TierCommon, BaseValue: 55, Category: "gear", Weight: 40, ValueMultiplier: 1.0},
			{ID: "scout-knife", Name: "Scout Knife", Rarity: catalog.TierUncommon, BaseValue: 120, Category: "weapon", Weight: 70, ValueMultiplier: 1.1},
			{ID: "field-visor", Name: "Field Visor", Rarity: catalog.TierUncommon, BaseValue: 150, Category: "gear", Weight: 30, ValueMultiplier: 1.1},
			{ID: "storm-rifle", Name: "Storm Rifle", Rarity: catalog.TierRare, BaseValue: 400, Category: "weapon", Weight: 80, ValueMultiplier: 1.25},
			{ID: "night-cloak", Name: "Night Cloak", Rarity: catalog.TierRare, BaseValue: 520, Category: "gear", Weight: 20, ValueMultiplier: 1.25},
			{ID: "ember-cannon", Name: "Ember Cannon", Rarity: catalog.TierEpic, BaseValue: 1500, Category: "weapon", Weight: 100, ValueMultiplier: 1.5},
			{ID: "dragon-core", Name: "Dragon Core", Rarity: catalog.TierLegendary, BaseValue: 8000, Category: "relic", Weight: 100, ValueMultiplier: 2.0},
		},
	)
	return c
}
