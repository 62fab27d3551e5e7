package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/sweetstack/inventory/internal/adapter/handler"
	"github.com/sweetstack/inventory/internal/adapter/storage"
	"github.com/sweetstack/inventory/internal/config"
	"github.com/sweetstack/inventory/internal/core/service"
	"github.com/sweetstack/inventory/internal/observability"
	"github.com/sweetstack/inventory/internal/port"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if cfg.OTLPEndpoint != "" {
		shutdownTracing, err := observability.SetupTracing(ctx, cfg.OTLPEndpoint)
		if err != nil {
			logger.Fatal("failed to set up tracing", zap.Error(err))
		}
		defer func() {
			flushCtx, flushCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer flushCancel()
			if err := shutdownTracing(flushCtx); err != nil {
				logger.Warn("tracer shutdown failed", zap.Error(err))
			}
		}()
		logger.Info("tracing enabled", zap.String("endpoint", cfg.OTLPEndpoint))
	}

	// Storage: MySQL when a DSN is configured, otherwise the embedded store.
	var (
		catalogRepo port.CatalogRepository
		ledgerRepo  port.LedgerRepository
	)
	if cfg.MySQLDSN != "" {
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			logger.Fatal("failed to open mysql", zap.Error(err))
		}
		db.SetMaxOpenConns(50)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)
		if err := db.PingContext(ctx); err != nil {
			logger.Fatal("failed to ping mysql", zap.Error(err))
		}
		defer db.Close()
		logger.Info("connected to mysql")

		adapter := storage.NewMySQLAdapter(db)
		catalogRepo, ledgerRepo = adapter, adapter
	} else {
		adapter := storage.NewMemoryAdapter()
		catalogRepo, ledgerRepo = adapter, adapter
		logger.Info("using embedded in-memory storage")
	}

	var cache port.CacheRepository
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			PoolSize: 100,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Fatal("failed to connect redis", zap.Error(err))
		}
		defer rdb.Close()
		cache = storage.NewRedisAdapter(rdb)
		logger.Info("connected to redis")
	}

	catalogService := service.NewCatalogService(catalogRepo, cache, logger)
	ledgerService := service.NewLedgerService(ledgerRepo, catalogRepo, cache, logger)

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	handler.NewHTTPHandler(catalogService, ledgerService, logger).Register(engine)

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: engine,
	}

	go func() {
		logger.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP server shutdown failed", zap.Error(err))
	}
	logger.Info("HTTP server stopped")
}
