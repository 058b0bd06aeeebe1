package main

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"clipforge/internal/archive"
	"clipforge/internal/engine"
	"clipforge/internal/httpapi"
	"clipforge/internal/ledger"
	"clipforge/internal/pkg/logger"
	"clipforge/internal/pkg/shutdown"
	"clipforge/internal/reaper"
	"clipforge/internal/render"
	"clipforge/internal/rendercache"
	"clipforge/internal/storage"
)

func main() {
	_ = godotenv.Load()

	log := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Format:      getEnv("LOG_FORMAT", "json"),
		ServiceName: "clipforge-api",
		AddSource:   getEnv("LOG_SOURCE", "false") == "true",
	})

	log.Info("starting clipforge API",
		"version", "0.1.0",
	)

	httpPort := getEnv("HTTP_PORT", "8080")
	engineBaseURL := mustEnv(log, "ENGINE_HTTP_BASEURL")
	engineLogLevel := getEnv("ENGINE_LOG_LEVEL", "error")
	tempDir := getEnv("TEMP_DIR", "temp")
	outputDir := getEnv("OUTPUT_DIR", "outputs")
	resolveRoots := envCSV("ENGINE_RESOLVE_ROOTS")
	maxSourceBytes := getEnvInt("MAX_SOURCE_BYTES", render.DefaultMaxSourceBytes)

	for _, dir := range []string{tempDir, outputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.LogFatal("failed to create storage dir", err, "dir", dir)
		}
	}

	ctx := context.Background()
	shutdownMgr := shutdown.NewManager(log, 30*time.Second)

	// Optional job ledger
	var pool *pgxpool.Pool
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		log.Info("connecting to PostgreSQL")
		var err error
		pool, err = pgxpool.New(ctx, dbURL)
		if err != nil {
			log.LogFatal("failed to connect to PostgreSQL", err)
		}
		if err := pool.Ping(ctx); err != nil {
			log.LogFatal("failed to ping PostgreSQL", err)
		}
		shutdownMgr.Register("postgres", func(ctx context.Context) error {
			pool.Close()
			return nil
		})
		log.Info("PostgreSQL connected")
	}

	jobLedger := ledger.New(pool, log)
	if err := jobLedger.Init(ctx); err != nil {
		log.LogFatal("failed to initialize job ledger", err)
	}

	// Optional render cache
	var rdb *redis.Client
	if redisAddr := os.Getenv("REDIS_ADDR"); redisAddr != "" {
		log.Info("connecting to Redis")
		rdb = redis.NewClient(&redis.Options{Addr: redisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.LogFatal("failed to ping Redis", err)
		}
		shutdownMgr.Register("redis", func(ctx context.Context) error {
			return rdb.Close()
		})
		log.Info("Redis connected")
	}

	// Optional archival provider
	sp, err := storage.NewProvider()
	if err != nil {
		log.LogFatal("failed to initialize archive provider", err)
	}
	if sp != nil {
		log.Info("archive provider initialized", "provider", sp.Provider())
	}

	orchestrator := render.New(render.Deps{
		Engine:         engine.NewHTTPEngine(engineBaseURL, engineLogLevel),
		TempDir:        tempDir,
		OutputDir:      outputDir,
		ResolveRoots:   resolveRoots,
		MaxSourceBytes: maxSourceBytes,
		Ledger:         jobLedger,
		Cache:          rendercache.New(rdb, reaper.DefaultRetention, log),
		Archiver:       archive.New(sp, log),
		Log:            log,
	})

	// Periodic sweep of the shared storage areas
	sweeper := reaper.New(
		[]string{absOrSelf(tempDir), absOrSelf(outputDir)},
		reaper.DefaultRetention,
		reaper.DefaultInterval,
		log,
	)
	reaperCtx, reaperCancel := context.WithCancel(ctx)
	go sweeper.Run(reaperCtx)
	shutdownMgr.Register("reaper", func(ctx context.Context) error {
		reaperCancel()
		return nil
	})

	router := httpapi.NewRouter(httpapi.Deps{
		Orchestrator: orchestrator,
		Pool:         pool,
		RDB:          rdb,
		Log:          log,
	})

	server := &http.Server{
		Addr:        "0.0.0.0:" + httpPort,
		Handler:     router,
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	shutdownMgr.Register("http-server", func(ctx context.Context) error {
		log.Info("shutting down HTTP server")
		return server.Shutdown(ctx)
	})

	go func() {
		log.Info("HTTP server listening",
			"addr", server.Addr,
			"port", httpPort,
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.LogFatal("HTTP server failed", err)
		}
	}()

	shutdownMgr.Wait()
}

func absOrSelf(dir string) string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return dir
	}
	return abs
}

// getEnv gets an environment variable with a default value.
func getEnv(key, defaultValue string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultValue
	}
	return v
}

func getEnvInt(key string, defaultValue int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return defaultValue
	}
	return n
}

func envCSV(key string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// mustEnv gets a required environment variable or exits.
func mustEnv(log *logger.Logger, key string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		log.Error("missing required environment variable", "key", key)
		os.Exit(1)
	}
	return v
}
