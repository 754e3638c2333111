package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/kmelnikov/course-assistant/internal/adapters/mcpserver"
	"github.com/kmelnikov/course-assistant/internal/config"
	"github.com/kmelnikov/course-assistant/internal/core/toolset"
	"github.com/kmelnikov/course-assistant/internal/core/usecase"
	"github.com/kmelnikov/course-assistant/internal/infrastructure/llm/ollama"
	"github.com/kmelnikov/course-assistant/internal/infrastructure/repository/postgres"
	"github.com/kmelnikov/course-assistant/internal/infrastructure/resilience"
	"github.com/kmelnikov/course-assistant/internal/infrastructure/vector/qdrant"
	"github.com/kmelnikov/course-assistant/internal/observability/logging"
)

const serverVersion = "0.1.0"

// Serves the retrieval tools over MCP stdio so external clients can
// search course content without going through the HTTP API.
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config error", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logging.NewJSONLogger(os.Stderr, "mcp", cfg.LogLevel))

	ctx := context.Background()

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		slog.Error("open postgres", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	courseRepo := postgres.NewCourseRepository(db)
	if err := courseRepo.EnsureSchema(ctx); err != nil {
		slog.Error("ensure courses schema", "error", err)
		os.Exit(1)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())
	ollamaClient := ollama.NewWithOptions(cfg.OllamaURL, cfg.OllamaChatModel, cfg.OllamaEmbedModel, ollama.Options{
		ResilienceExecutor: executor,
	})
	embedder := ollama.NewEmbedder(ollamaClient)
	vectorDB := qdrant.New(cfg.QdrantURL, cfg.QdrantChunksCollection, cfg.QdrantTitlesCollection)

	retriever := usecase.NewRetrieverService(embedder, vectorDB, courseRepo, cfg.SearchLimit)

	tools := toolset.NewRegistry()
	if err := tools.Register(toolset.NewSearchTool(retriever)); err != nil {
		slog.Error("register search tool", "error", err)
		os.Exit(1)
	}
	if err := tools.Register(toolset.NewOutlineTool(retriever)); err != nil {
		slog.Error("register outline tool", "error", err)
		os.Exit(1)
	}

	srv, err := mcpserver.New("course-assistant", serverVersion, tools)
	if err != nil {
		slog.Error("build mcp server", "error", err)
		os.Exit(1)
	}

	slog.Info("mcp server serving on stdio")
	if err := mcpserver.ServeStdio(srv); err != nil {
		slog.Error("mcp server error", "error", err)
		os.Exit(1)
	}
}
