// gateway - multi-tenant AI chat gateway entry point.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alphamind/gateway/internal/api"
	"github.com/alphamind/gateway/internal/domain/chat"
	"github.com/alphamind/gateway/internal/domain/files"
	"github.com/alphamind/gateway/internal/infra/config"
	"github.com/alphamind/gateway/internal/infra/llm"
	"github.com/alphamind/gateway/internal/infra/logging"
	"github.com/alphamind/gateway/internal/infra/sqlite"
	"github.com/alphamind/gateway/internal/infra/stream"
	"github.com/alphamind/gateway/internal/server"
	"github.com/alphamind/gateway/internal/version"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, out io.Writer) int {
	fs := flag.NewFlagSet("gateway", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	showVersion := fs.Bool("version", false, "Show version information")
	showHelp := fs.Bool("help", false, "Show help")
	configPath := fs.String("config", "", "Path to YAML config file")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *showVersion {
		fmt.Fprintln(out, version.String()) //nolint:errcheck
		return 0
	}

	if *showHelp {
		printHelp(out)
		return 0
	}

	if err := serve(*configPath); err != nil {
		fmt.Fprintf(out, "gateway: %v\n", err) //nolint:errcheck
		return 1
	}
	return 0
}

func serve(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logging.New(cfg.LogLevel, cfg.LogFormat)
	log.Info().Str("version", version.Version).Msg("gateway starting")

	if cfg.JWTSecret == "" {
		log.Warn().Msg("JWT_SECRET not set — /api/v1 routes reject every token, chat requests are served anonymously")
	}

	db, err := sqlite.NewDB(cfg.DBPath)
	if err != nil {
		return err
	}
	if err := sqlite.MigrateUp(db); err != nil {
		db.Close() //nolint:errcheck
		return err
	}

	providers := []llm.Provider{
		llm.NewOpenRouterProvider(cfg.OpenRouterBaseURL, cfg.OpenRouterAPIKey, log),
		llm.NewVLLMProvider(cfg.VLLMBaseURL, log),
	}
	registry := llm.NewRegistry(providers, log)
	router := llm.NewRouter(registry, log)

	historyStore := chat.NewHistoryStore(db)
	usageStore := chat.NewUsageStore(db)
	service := chat.NewService(registry, router, usageStore, cfg.MaxContentLength, log)
	hub := stream.NewHub(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry.Refresh(ctx)
	go refreshLoop(ctx, registry, cfg.RefreshInterval)

	handler := api.NewRouter(api.Deps{
		Chat:      service,
		Catalog:   registry,
		History:   historyStore,
		Usage:     usageStore,
		Hub:       hub,
		Extractor: files.NewTextExtractor(),
		Log:       log,
	})

	srv := server.NewServer(cfg, handler, db, log)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// refreshLoop re-queries provider catalogs on a fixed interval so models
// that appear or vanish upstream are picked up without a restart.
func refreshLoop(ctx context.Context, registry *llm.Registry, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			registry.Refresh(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func printHelp(out io.Writer) {
	helpText := `gateway - multi-tenant AI chat gateway

Usage:
  gateway [options]

Options:
  --version          Show version information
  --help             Show this help message
  --config <path>    Load settings from a YAML file (env vars still win)

Environment:
  GATEWAY_HOST, GATEWAY_PORT      Listen address (default 0.0.0.0:4000)
  OPENROUTER_API_KEY              OpenRouter credential (unset = degraded)
  VLLM_BASE_URL                   Local vLLM server (unset = degraded)
  GATEWAY_DB_PATH                 SQLite path (default gateway.db)
  JWT_SECRET                      Bearer token secret for /api/v1 routes

Examples:
  gateway --version
  GATEWAY_PORT=8080 gateway
  gateway --config gateway.yaml`
	fmt.Fprintln(out, helpText) //nolint:errcheck
}
