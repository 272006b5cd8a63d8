package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/kirillkom/docqa/internal/config"
	"github.com/kirillkom/docqa/internal/core/ports"
	"github.com/kirillkom/docqa/internal/core/usecase"
	"github.com/kirillkom/docqa/internal/infrastructure/chunking"
	"github.com/kirillkom/docqa/internal/infrastructure/embedding"
	"github.com/kirillkom/docqa/internal/infrastructure/extractor"
	"github.com/kirillkom/docqa/internal/infrastructure/llm/answer"
	"github.com/kirillkom/docqa/internal/infrastructure/llm/gateway"
	"github.com/kirillkom/docqa/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/docqa/internal/infrastructure/llm/openai"
	"github.com/kirillkom/docqa/internal/infrastructure/resilience"
	"github.com/kirillkom/docqa/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/docqa/internal/infrastructure/vector/memory"
	"github.com/kirillkom/docqa/internal/observability/metrics"
)

type App struct {
	Config config.Config

	Session  *usecase.Session
	Library  *localfs.Library
	Embedder *embedding.Service
	// Upstream serves the /api/generate proxy. It is nil for the gateway
	// backend, whose upstream is that same endpoint.
	Upstream ports.ChatCompleter

	Registry *prometheus.Registry
	Pipeline *metrics.PipelineMetrics

	closeFn func()
}

func New(_ context.Context, cfg config.Config, service string) (*App, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	pipeline := metrics.NewPipelineMetrics(service, registry)

	resilienceCfg := resilience.DefaultConfig()
	resilienceCfg.RetryMaxAttempts = cfg.UpstreamMaxAttempts
	resilienceCfg.BreakerOpenTimeout = cfg.BreakerOpenTimeout
	executor := resilience.NewExecutor(resilienceCfg, resilience.WithObserver(pipeline))

	library, err := localfs.NewLibrary(cfg.LibraryPath)
	if err != nil {
		return nil, fmt.Errorf("init document library: %w", err)
	}

	ollamaClient := ollama.New(cfg.OllamaURL, executor)

	var model ports.EmbeddingModel
	switch cfg.EmbeddingBackend {
	case config.EmbeddingBackendOllama:
		model = ollama.NewEmbeddingModel(ollamaClient, cfg.OllamaEmbedModel)
	default:
		model = embedding.NewHashingModel(cfg.EmbeddingDimensions)
	}
	embedder := embedding.NewService(model,
		embedding.WithBatchSize(cfg.EmbeddingBatchSize),
		embedding.WithBatchPause(cfg.EmbeddingBatchPause),
	)

	var (
		completer ports.ChatCompleter
		upstream  ports.ChatCompleter
	)
	switch cfg.GenerationBackend {
	case config.GenerationBackendOpenAI:
		completer = openai.NewCompleter(openai.Config{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.OpenAIModel,
			Timeout: cfg.GenerateTimeout,
		}, executor)
		upstream = completer
	case config.GenerationBackendGateway:
		completer = gateway.New(cfg.GenerateURL, cfg.GenerateTimeout, executor)
	default:
		completer = ollama.NewChatCompleter(ollamaClient, cfg.OllamaGenModel)
		upstream = completer
	}

	store := memory.NewStore()
	ingestUC := usecase.NewIngestDocumentUseCase(
		extractor.NewRouter(),
		chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap),
		embedder,
		store,
		pipeline,
	)
	queryUC := usecase.NewQueryUseCase(embedder, store, answer.NewGenerator(completer), pipeline)

	slog.Info("app_configured",
		"embedding_backend", cfg.EmbeddingBackend,
		"embedding_model", model.Name(),
		"generation_backend", cfg.GenerationBackend,
		"library_path", cfg.LibraryPath,
	)

	return &App{
		Config:   cfg,
		Session:  usecase.NewSession(ingestUC, queryUC, store, library),
		Library:  library,
		Embedder: embedder,
		Upstream: upstream,
		Registry: registry,
		Pipeline: pipeline,
		closeFn: func() {
			if err := embedder.Close(); err != nil {
				slog.Warn("embedding_model_close_failed", "error", err.Error())
			}
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
