package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/ollama"

	"github.com/lorekeep/lorekeep/internal/chunk"
	"github.com/lorekeep/lorekeep/internal/config"
	"github.com/lorekeep/lorekeep/internal/document"
	"github.com/lorekeep/lorekeep/internal/ingest"
	"github.com/lorekeep/lorekeep/internal/manifest"
	"github.com/lorekeep/lorekeep/internal/rag"
	"github.com/lorekeep/lorekeep/internal/vectorstore"
)

// Setup creates and initializes the application.
// Returns an App with all components wired; call Start to run the pipeline
// and Close to release.
func Setup(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	a := &App{Config: cfg, logger: logger}

	g, err := provideGenkit(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Genkit = g

	embedder := ollama.Embedder(g, cfg.OllamaHost)
	if embedder == nil {
		return nil, fmt.Errorf("embedder %q not registered", cfg.EmbedderModel)
	}
	a.Embedder = embedder

	store, err := vectorstore.New(cfg.VectorStorePath(), "chunks",
		vectorstore.EmbeddingFunc(embedder), logger)
	if err != nil {
		return nil, fmt.Errorf("opening vector store: %w", err)
	}
	a.Store = store

	a.Manifest = manifest.New(cfg.ManifestPath(), logger)
	a.Registry = document.NewRegistry()
	a.Chunker = chunk.New(cfg.ChunkSize, cfg.ChunkOverlap)
	a.Engine = provideEngine(a, g, cfg, logger)

	a.Queue = ingest.NewQueue()
	a.worker = ingest.NewWorker(a.Queue, store, a.Registry, a.Chunker, a.Manifest, logger)

	watcher, err := ingest.NewWatcher(cfg.DocumentRoot, a.Queue, a.Registry, logger)
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	a.Watcher = watcher

	return a, nil
}

// provideGenkit initializes Genkit with the Ollama plugin and registers
// both model tiers and the embedder. Ollama requires explicit model
// registration (no auto-discovery).
func provideGenkit(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*genkit.Genkit, error) {
	ollamaPlugin := &ollama.Ollama{ServerAddress: cfg.OllamaHost}
	g := genkit.Init(ctx, genkit.WithPlugins(ollamaPlugin))
	if g == nil {
		return nil, errors.New("initializing genkit with ollama provider")
	}

	ollamaPlugin.DefineModel(g, ollama.ModelDefinition{
		Name: cfg.ThinkingModel,
		Type: "chat",
	}, nil)
	ollamaPlugin.DefineModel(g, ollama.ModelDefinition{
		Name: cfg.FastModel,
		Type: "chat",
	}, nil)
	ollamaPlugin.DefineEmbedder(g, cfg.OllamaHost, cfg.EmbedderModel, nil)

	logger.Info("initialized genkit with ollama provider",
		"host", cfg.OllamaHost,
		"thinking_model", cfg.ThinkingModel,
		"fast_model", cfg.FastModel,
		"embedder", cfg.EmbedderModel,
	)
	return g, nil
}

func provideEngine(a *App, g *genkit.Genkit, cfg *config.Config, logger *slog.Logger) *rag.Engine {
	models := rag.NewGenkitModels(g, cfg.ThinkingModelRef(), cfg.FastModelRef(), float64(cfg.Temperature))
	return rag.New(a.Store, models, rag.Config{
		TopK:        cfg.RetrievalTopK,
		FetchK:      cfg.RetrievalFetchK,
		Lambda:      cfg.RetrievalLambda,
		MaxRewrites: cfg.MaxRewrites,
	}, logger)
}
