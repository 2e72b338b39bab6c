package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/jengzang/hexmap-backend-go/internal/api"
	"github.com/jengzang/hexmap-backend-go/internal/cache"
	"github.com/jengzang/hexmap-backend-go/internal/config"
	"github.com/jengzang/hexmap-backend-go/internal/database"
	"github.com/jengzang/hexmap-backend-go/internal/loader"
	"github.com/jengzang/hexmap-backend-go/internal/logging"
	"github.com/jengzang/hexmap-backend-go/internal/metrics"
	"github.com/jengzang/hexmap-backend-go/internal/repository"
	"github.com/jengzang/hexmap-backend-go/internal/service"
)

func main() {
	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("invalid configuration")
	}
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// 初始化数据源
	var (
		source loader.Loader
		db     *sql.DB
	)
	switch cfg.DataSource {
	case config.SourceSQLite:
		db, err = database.Open(database.Config{Path: cfg.DBPath})
		if err != nil {
			logging.Fatal().Err(err).Msg("failed to initialize database")
		}
		source = repository.NewRecordRepository(db)
	default:
		source = loader.NewCSVLoader(cfg.DataPath)
	}

	responses, err := cache.New(cache.Config{MaxSize: cfg.CacheMaxSize, TTL: cfg.CacheTTL}, cache.WithMetrics(m))
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to create cache")
	}

	router := api.SetupRouter(cfg, api.Dependencies{
		Heatmap:  service.NewHeatmapService(source, responses, m),
		Gatherer: reg,
	})

	srv := &http.Server{
		Addr:              cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logging.Info().
			Str("addr", cfg.Port).
			Str("source", cfg.DataSource).
			Int("cache_max_size", cfg.CacheMaxSize).
			Dur("cache_ttl", cfg.CacheTTL).
			Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logging.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logging.Error().Err(err).Msg("forced shutdown")
	}

	responses.Clear()
	if db != nil {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("failed to close database")
		}
	}
}
