package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nuvex/api"
	"nuvex/config"
	"nuvex/core"
	"nuvex/llm"
	"nuvex/memory"
	"nuvex/notify"
	"nuvex/reputation"
	"nuvex/store"
	"nuvex/triage"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// App represents the triage service with all its components.
type App struct {
	Config *config.Config
	Logger *zap.Logger
	Sugar  *zap.SugaredLogger

	AuditLog   *store.FileAuditLog
	Reports    *store.ReportStore
	Memory     *memory.CaseMemory
	Reputation *reputation.MultiService
	Router     *llm.Router
	Pipeline   *triage.Pipeline
	Pool       *core.WorkerPool
	APIServer  *api.API

	apiErrCh chan error
}

// NewApp creates an application instance and initializes all components.
func NewApp(ctx context.Context) (*App, error) {
	app := &App{apiErrCh: make(chan error, 1)}

	logger, sugar, err := InitLogger()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	app.Logger = logger
	app.Sugar = sugar

	sugar.Info("NuVex triage service starting...")

	cfg, err := InitConfig(sugar)
	if err != nil {
		return nil, err
	}
	app.Config = cfg

	audit, err := store.NewFileAuditLog(cfg.DataPaths.AuditLogPath, sugar)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	app.AuditLog = audit

	reports, err := store.NewReportStore(cfg.DataPaths.ReportsDir, sugar)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize report store: %w", err)
	}
	app.Reports = reports

	caseMemory, err := initCaseMemory(ctx, cfg, sugar)
	if err != nil {
		return nil, err
	}
	app.Memory = caseMemory

	app.Reputation = initReputation(cfg, sugar)
	app.Router = initRouter(cfg, sugar)

	engine := triage.NewEngine(audit, app.Router, cfg.LLM.NarrativeEnabled, sugar)
	assembler := triage.NewAssembler(app.Router, nil, reports, sugar)

	var notifier notify.Notifier = notify.NoopNotifier{}
	if cfg.Notify.Enabled && cfg.Notify.WebhookURL != "" {
		notifier = notify.NewWebhookNotifier(cfg.Notify.WebhookURL, cfg.Notify.Headers, sugar)
		sugar.Infow("Webhook notifications enabled", "url", cfg.Notify.WebhookURL)
	}

	app.Pipeline = triage.NewPipeline(triage.PipelineConfig{
		Reputation: app.Reputation,
		Retriever:  caseMemory,
		Engine:     engine,
		Assembler:  assembler,
		Reports:    reports,
		Generator:  app.Router,
		Notifier:   notifier,
		TopK:       cfg.Memory.TopK,
	}, sugar)

	app.Pool = core.NewWorkerPool(ctx, cfg.Engine.Workers, cfg.Engine.QueueSize, "triage", sugar)
	app.APIServer = api.NewAPI(app.Pipeline, app.Pool, sugar)

	return app, nil
}

// initCaseMemory loads the historical case corpus and builds the retrieval
// index. A missing corpus file degrades to an empty memory.
func initCaseMemory(ctx context.Context, cfg *config.Config, sugar *zap.SugaredLogger) (*memory.CaseMemory, error) {
	cases, err := memory.LoadCorpus(cfg.DataPaths.CorpusPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			sugar.Warnw("Case corpus not found, similar-case retrieval starts empty",
				"path", cfg.DataPaths.CorpusPath)
			cases = nil
		} else {
			return nil, fmt.Errorf("failed to load case corpus: %w", err)
		}
	} else {
		sugar.Infow("Case corpus loaded", "path", cfg.DataPaths.CorpusPath, "cases", len(cases))
	}

	caseMemory, err := memory.NewCaseMemory(ctx, cases, memory.NewHashingEmbedder(0), sugar)
	if err != nil {
		return nil, fmt.Errorf("failed to build case memory: %w", err)
	}
	return caseMemory, nil
}

func initReputation(cfg *config.Config, sugar *zap.SugaredLogger) *reputation.MultiService {
	var providers []reputation.Provider
	if cfg.Reputation.AbuseIPDBKey != "" {
		providers = append(providers, reputation.NewAbuseIPDBProvider(cfg.Reputation.AbuseIPDBKey))
	}
	if cfg.Reputation.VirusTotalKey != "" {
		providers = append(providers, reputation.NewVirusTotalProvider(cfg.Reputation.VirusTotalKey))
	}
	if len(providers) == 0 {
		sugar.Warn("No reputation API keys configured, lookups will return nothing")
	}

	var rdb *redis.Client
	if cfg.Reputation.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Reputation.RedisAddr,
			Password: cfg.Reputation.RedisPassword,
			DB:       cfg.Reputation.RedisDB,
		})
		sugar.Infow("Redis reputation cache tier enabled", "addr", cfg.Reputation.RedisAddr)
	}
	cache := reputation.NewCache(cfg.Reputation.CacheSize, cfg.Reputation.CacheTTL, rdb, sugar)

	return reputation.NewMultiService(providers, cache, cfg.Reputation.Timeout, sugar)
}

func initRouter(cfg *config.Config, sugar *zap.SugaredLogger) *llm.Router {
	router := llm.NewRouter(llm.RouterConfig{
		Primary:         cfg.LLM.PrimaryProvider,
		Secondary:       cfg.SecondaryProvider(),
		FallbackEnabled: cfg.LLM.FallbackEnabled,
		RequestTimeout:  cfg.LLM.RequestTimeout,
	}, sugar)

	if cfg.LLM.OpenAI.APIKey != "" {
		router.Register(llm.NewOpenAIProvider(cfg.LLM.OpenAI.APIKey, cfg.LLM.OpenAI.Model), cfg.LLM.OpenAI.MinInterval)
	}
	if cfg.LLM.Gemini.APIKey != "" {
		router.Register(llm.NewGeminiProvider(cfg.LLM.Gemini.APIKey, cfg.LLM.Gemini.Model), cfg.LLM.Gemini.MinInterval)
	}
	return router
}

// Start launches the worker pool and the API server.
func (a *App) Start(_ context.Context) error {
	a.Pool.Start()

	go func() {
		err := a.APIServer.Start(a.Config.API.Host, a.Config.API.Port)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.apiErrCh <- err
		}
	}()

	a.Sugar.Info("Triage service started")
	return nil
}

// WaitForShutdown blocks until a shutdown signal is received or the API
// server fails.
func (a *App) WaitForShutdown() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	select {
	case <-c:
		a.Sugar.Info("Shutdown signal received")
	case err := <-a.apiErrCh:
		a.Sugar.Errorw("API server failed", "error", err)
	}
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() {
	a.Sugar.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := a.APIServer.Stop(ctx); err != nil {
		a.Sugar.Errorw("API server shutdown failed", "error", err)
	}

	a.Pool.Stop()

	a.Sugar.Info("Shutdown complete")
	_ = a.Logger.Sync()
}
