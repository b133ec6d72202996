// =============================================================================
// Dual-Worker Orchestrator 主入口
// =============================================================================
// 完整服务入口点，包含 HTTP 服务、健康检查、Prometheus 指标
//
// 使用方法:
//
//	orchestrator serve    # 启动服务
//	orchestrator version  # 显示版本信息
//	orchestrator health   # 健康检查
//	orchestrator migrate up/down/status  # 数据库迁移
// =============================================================================

// @title Dual-Worker Orchestrator API
// @version 1.0.0
// @description An OpenAI-compatible chat completions surface backed by a
// @description Speaker/Executive dual-worker orchestrator over a Postgres
// @description + pgvector knowledge graph.

// @contact.name Orchestrator Team
// @contact.url https://github.com/loglattice/orchestrator

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /
// @schemes http https

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
// @description API key for authentication

package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/loglattice/orchestrator/config"
	"github.com/loglattice/orchestrator/embedding"
	"github.com/loglattice/orchestrator/graphstore"
	"github.com/loglattice/orchestrator/internal/telemetry"
	"github.com/loglattice/orchestrator/knowledge"
	"github.com/loglattice/orchestrator/llm"
	"github.com/loglattice/orchestrator/llm/factory"
	"github.com/loglattice/orchestrator/orchestrator"
	"github.com/loglattice/orchestrator/worker/executive"
	"github.com/loglattice/orchestrator/worker/speaker"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		runServe(os.Args[2:])
	case "migrate":
		runMigrate(os.Args[2:])
	case "version":
		printVersion()
	case "health":
		runHealthCheck(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func runServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	fs.Parse(args)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg.Log)
	defer logger.Sync()

	logger.Info("starting orchestrator",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
	)

	otelProviders, err := telemetry.Init(cfg.Telemetry, logger)
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	}
	if otelProviders != nil {
		defer func() {
			if err := otelProviders.Shutdown(context.Background()); err != nil {
				logger.Warn("telemetry shutdown error", zap.Error(err))
			}
		}()
	}

	store, err := graphstore.NewStore(context.Background(), graphstore.Config{
		DSN: cfg.Postgres.DSN(), Dimension: cfg.Embedding.Dimension, Logger: logger,
	})
	if err != nil {
		logger.Fatal("failed to connect to graph store", zap.Error(err))
	}
	if err := store.SchemaInit(context.Background()); err != nil {
		logger.Fatal("failed to initialize graph store schema", zap.Error(err))
	}

	embedder := newEmbeddingProvider(cfg.Embedding, logger)
	tools := knowledge.New(store, embedder, logger)

	spkProvider := newLLMProvider(cfg.Speaker.Model, cfg.Speaker.Provider, cfg.Speaker.BaseURL, cfg.Speaker.APIKey, cfg.Embedding.DefaultAPIKey, logger)
	execProvider := newLLMProvider(cfg.Executive.Model, cfg.Executive.Provider, cfg.Executive.BaseURL, cfg.Executive.APIKey, cfg.Embedding.DefaultAPIKey, logger)

	spk := speaker.New(spkProvider, cfg.Speaker.Model)
	exec := executive.New(execProvider, cfg.Executive.Model, tools, logger)
	orch := orchestrator.New(spk, exec, tools, cfg.Orchestrator.ReevalStride, cfg.Orchestrator.Timeout(), logger)

	srv := NewServer(cfg, logger, orch, store, embedder)
	if err := srv.Start(); err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}

	srv.WaitForShutdown()
	logger.Info("orchestrator stopped")
}

// newLLMProvider builds a Speaker/Executive LLM adapter via llm/factory,
// picking a built-in provider from the model string (config.ProviderFromModel)
// unless an explicit *_PROVIDER override is set.
func newLLMProvider(model, providerOverride, baseURL, apiKey, fallbackAPIKey string, logger *zap.Logger) llm.Provider {
	name := providerOverride
	if name == "" {
		name = config.ProviderFromModel(model)
	}
	key := apiKey
	if key == "" {
		key = fallbackAPIKey
	}
	p, err := factory.NewProviderFromConfig(name, factory.ProviderConfig{
		APIKey: key, BaseURL: baseURL, Model: model, Timeout: 60 * time.Second,
	}, logger)
	if err != nil {
		logger.Fatal("failed to construct LLM provider", zap.String("provider", name), zap.Error(err))
	}
	return p
}

// newEmbeddingProvider builds C1's embedding adapter. Spec.md §6.2 names
// only EMBEDDING_MODEL/EMBEDDING_DIMENSION; EMBEDDING_PROVIDER/BASE_URL are
// the ambient fields needed to pick a concrete constructor.
func newEmbeddingProvider(cfg config.EmbeddingConfig, logger *zap.Logger) embedding.Provider {
	name := cfg.Provider
	if name == "" {
		name = config.ProviderFromModel(cfg.Model)
	}
	switch name {
	case "gemini":
		return embedding.NewGeminiProvider(embedding.GeminiConfig{
			BaseURL: cfg.BaseURL, APIKey: cfg.DefaultAPIKey, Model: cfg.Model,
			Dimensions: cfg.Dimension, Timeout: 30 * time.Second,
		})
	default:
		return embedding.NewOpenAICompatProvider(embedding.OpenAIConfig{
			BaseURL: cfg.BaseURL, APIKey: cfg.DefaultAPIKey, Model: cfg.Model,
			Dimensions: cfg.Dimension, Timeout: 30 * time.Second,
		})
	}
}

func runHealthCheck(args []string) {
	fs := flag.NewFlagSet("health", flag.ExitOnError)
	addr := fs.String("addr", "http://localhost:8080", "Server address")
	fs.Parse(args)

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(*addr + "/healthz")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Health check failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "Health check failed: status %d\n", resp.StatusCode)
		os.Exit(1)
	}

	fmt.Println("OK")
}

func printVersion() {
	fmt.Printf("orchestrator %s\n", Version)
	fmt.Printf("  Build Time: %s\n", BuildTime)
	fmt.Printf("  Git Commit: %s\n", GitCommit)
}

func printUsage() {
	fmt.Println(`Dual-Worker Orchestrator

Usage:
  orchestrator <command> [options]

Commands:
  serve     Start the orchestrator server
  migrate   Database migration commands
  version   Show version information
  health    Check server health
  help      Show this help message

Migration subcommands:
  migrate up        Apply all pending migrations
  migrate down      Rollback the last migration
  migrate status    Show migration status
  migrate version   Show current migration version
  migrate goto <v>  Migrate to a specific version
  migrate force <v> Force set migration version
  migrate reset     Rollback all migrations

Examples:
  orchestrator serve
  orchestrator migrate up
  orchestrator health --addr http://localhost:8080
  orchestrator version`)
}

func initLogger(cfg config.LogConfig) *zap.Logger {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var encoderConfig zapcore.EncoderConfig
	if cfg.Format == "console" {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	zapConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      cfg.Format == "console",
		Encoding:         cfg.Format,
		EncoderConfig:    encoderConfig,
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := zapConfig.Build(
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)
	if err != nil {
		logger, _ = zap.NewProduction()
	}

	return logger
}
