// Trulybot is the customer-support chat daemon.
//
// It serves the chat widget API: retrieval-augmented answers over each
// workspace's knowledge base, lead capture, layered rate limiting, and
// subscription-gated widget customization.
//
// Configuration is loaded from an optional YAML file and environment
// variables. See internal/config for details.
//
// Usage:
//
//	# Start with defaults (embedded vector store, in-memory repositories)
//	trulybot
//
//	# Start against Postgres and Qdrant
//	DATABASE_DSN=postgres://... VECTORSTORE_PROVIDER=qdrant trulybot -config trulybot.yaml
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/akibhusain830-ctrl/trulybot.xyz-sub004/internal/completion"
	"github.com/akibhusain830-ctrl/trulybot.xyz-sub004/internal/config"
	"github.com/akibhusain830-ctrl/trulybot.xyz-sub004/internal/documents"
	"github.com/akibhusain830-ctrl/trulybot.xyz-sub004/internal/embeddings"
	"github.com/akibhusain830-ctrl/trulybot.xyz-sub004/internal/fallback"
	httpapi "github.com/akibhusain830-ctrl/trulybot.xyz-sub004/internal/http"
	"github.com/akibhusain830-ctrl/trulybot.xyz-sub004/internal/leads"
	"github.com/akibhusain830-ctrl/trulybot.xyz-sub004/internal/logging"
	"github.com/akibhusain830-ctrl/trulybot.xyz-sub004/internal/ratelimit"
	"github.com/akibhusain830-ctrl/trulybot.xyz-sub004/internal/retrieval"
	"github.com/akibhusain830-ctrl/trulybot.xyz-sub004/internal/subscription"
	"github.com/akibhusain830-ctrl/trulybot.xyz-sub004/internal/telemetry"
	"github.com/akibhusain830-ctrl/trulybot.xyz-sub004/internal/tenant"
	"github.com/akibhusain830-ctrl/trulybot.xyz-sub004/internal/usage"
	"github.com/akibhusain830-ctrl/trulybot.xyz-sub004/internal/vectorstore"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("trulybot %s (%s)\n", version, gitCommit)
		os.Exit(0)
	}

	// Local development convenience; missing .env is fine.
	_ = godotenv.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("received signal %v, shutting down", sig)
		cancel()
	}()

	if err := run(ctx, *configPath); err != nil {
		log.Fatalf("server error: %v", err)
	}
	log.Println("shutdown complete")
}

// run initializes all services and blocks until ctx is cancelled.
func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	zlog := logger.Zap()

	tel, err := telemetry.Setup(ctx, telemetry.Config{
		Enabled:     cfg.Observability.EnableTelemetry,
		ServiceName: cfg.Observability.ServiceName,
		Endpoint:    cfg.Observability.Endpoint,
		Insecure:    cfg.Observability.Insecure,
	}, zlog)
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tel.Shutdown(shutdownCtx)
	}()

	store, err := vectorstore.NewStore(cfg, zlog)
	if err != nil {
		return fmt.Errorf("initializing vector store: %w", err)
	}
	defer func() { _ = store.Close() }()

	embedder, err := embeddings.NewService(embeddings.Config{
		BaseURL: cfg.Embeddings.BaseURL,
		Model:   cfg.Embeddings.Model,
		APIKey:  cfg.Embeddings.APIKey.Value(),
		Timeout: cfg.Embeddings.Timeout,
	})
	if err != nil {
		return fmt.Errorf("initializing embeddings: %w", err)
	}

	completer, err := completion.NewHTTPClient(completion.Config{
		BaseURL:     cfg.Completion.BaseURL,
		Model:       cfg.Completion.Model,
		APIKey:      cfg.Completion.APIKey.Value(),
		Timeout:     cfg.Completion.Timeout,
		MaxTokens:   cfg.Completion.MaxTokens,
		Temperature: cfg.Completion.Temperature,
	})
	if err != nil {
		return fmt.Errorf("initializing completion client: %w", err)
	}

	generator, err := fallback.NewGenerator(completer, zlog)
	if err != nil {
		return fmt.Errorf("initializing fallback generator: %w", err)
	}

	orchestrator, err := retrieval.NewOrchestrator(embedder, store, completer, generator,
		retrieval.Config{
			MatchThreshold: cfg.Retrieval.MatchThreshold,
			TopK:           cfg.Retrieval.TopK,
		}, zlog)
	if err != nil {
		return fmt.Errorf("initializing orchestrator: %w", err)
	}

	repos, err := openRepositories(cfg, zlog)
	if err != nil {
		return err
	}

	leadStore, err := leads.NewStore(repos.leads, leads.StoreConfig{
		TranscriptMaxTurns: cfg.Leads.TranscriptMaxTurns,
		TranscriptMaxChars: cfg.Leads.TranscriptMaxChars,
	}, zlog)
	if err != nil {
		return fmt.Errorf("initializing lead store: %w", err)
	}
	dispatcher := leads.NewDispatcher(leadStore, cfg.Leads.QueueSize, zlog)
	defer dispatcher.Close()

	counterStore := ratelimit.NewMemoryStore(cfg.RateLimit.SweepInterval)
	defer counterStore.Close()
	limiter, err := ratelimit.NewLimiter(counterStore, ratelimit.Config{
		PerUser:    ratelimit.Limit{Name: "user", Window: cfg.RateLimit.UserWindow, Max: cfg.RateLimit.UserMax},
		PerUserBot: ratelimit.Limit{Name: "user_bot", Window: cfg.RateLimit.UserBotWindow, Max: cfg.RateLimit.UserBotMax},
		PerIP:      ratelimit.Limit{Name: "ip", Window: cfg.RateLimit.IPWindow, Max: cfg.RateLimit.IPMax},
		Burst:      ratelimit.Limit{Name: "burst", Window: cfg.RateLimit.BurstWindow, Max: cfg.RateLimit.BurstMax},
	}, zlog)
	if err != nil {
		return fmt.Errorf("initializing rate limiter: %w", err)
	}

	accessSvc, err := subscription.NewService(repos.profiles, zlog)
	if err != nil {
		return fmt.Errorf("initializing subscription service: %w", err)
	}

	docSvc, err := documents.NewService(repos.documents, store, embedder, nil, repos.usage, zlog)
	if err != nil {
		return fmt.Errorf("initializing document service: %w", err)
	}

	server, err := httpapi.NewServer(httpapi.Deps{
		Orchestrator: orchestrator,
		Dispatcher:   dispatcher,
		LeadRepo:     repos.leads,
		Bots:         repos.bots,
		Access:       accessSvc,
		Limiter:      limiter,
		Usage:        repos.usage,
		Documents:    docSvc,
	}, zlog, &httpapi.Config{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		SigningKey:      cfg.Widget.SigningKey.Value(),
		WidgetCacheSize: cfg.Widget.CacheSize,
		WidgetCacheTTL:  cfg.Widget.CacheTTL,
	})
	if err != nil {
		return fmt.Errorf("initializing http server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	zlog.Info("trulybot started",
		zap.String("version", version),
		zap.String("vectorstore", cfg.VectorStore.Provider),
	)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// repositories bundles the persistence layer. With no database
// configured the daemon runs fully in process, which is how tests and
// local demos exercise it.
type repositories struct {
	leads     leads.Repository
	profiles  subscription.Repository
	documents documents.Repository
	bots      tenant.Resolver
	usage     usage.Recorder
}

func openRepositories(cfg *config.Config, zlog *zap.Logger) (*repositories, error) {
	dsn := cfg.Database.DSN.Value()
	if dsn == "" {
		zlog.Warn("no database configured, using in-memory repositories")
		return &repositories{
			leads:     leads.NewMemoryRepository(),
			profiles:  subscription.NewMemoryRepository(),
			documents: documents.NewMemoryRepository(),
			bots:      tenant.NewMemoryResolver(),
			usage:     usage.NewMemoryRecorder(),
		}, nil
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err := db.AutoMigrate(
		&tenant.Bot{},
		&leads.Lead{},
		&subscription.Profile{},
		&documents.Document{},
		&usage.Counter{},
	); err != nil {
		return nil, fmt.Errorf("migrating schema: %w", err)
	}

	botResolver, err := tenant.NewGormResolver(db)
	if err != nil {
		return nil, fmt.Errorf("initializing bot resolver: %w", err)
	}
	return &repositories{
		leads:     leads.NewGormRepository(db),
		profiles:  subscription.NewGormRepository(db),
		documents: documents.NewGormRepository(db),
		bots:      botResolver,
		usage:     usage.NewGormRecorder(db, zlog),
	}, nil
}
