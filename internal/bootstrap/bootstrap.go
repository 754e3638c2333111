package bootstrap

import (
	"context"
	"fmt"

	"github.com/kmelnikov/course-assistant/internal/config"
	"github.com/kmelnikov/course-assistant/internal/core/ports"
	"github.com/kmelnikov/course-assistant/internal/core/toolset"
	"github.com/kmelnikov/course-assistant/internal/core/usecase"
	"github.com/kmelnikov/course-assistant/internal/infrastructure/chunking"
	"github.com/kmelnikov/course-assistant/internal/infrastructure/coursedoc"
	"github.com/kmelnikov/course-assistant/internal/infrastructure/extractor"
	"github.com/kmelnikov/course-assistant/internal/infrastructure/extractor/pdf"
	"github.com/kmelnikov/course-assistant/internal/infrastructure/extractor/plaintext"
	"github.com/kmelnikov/course-assistant/internal/infrastructure/extractor/spreadsheet"
	"github.com/kmelnikov/course-assistant/internal/infrastructure/llm/ollama"
	"github.com/kmelnikov/course-assistant/internal/infrastructure/queue/nats"
	"github.com/kmelnikov/course-assistant/internal/infrastructure/repository/postgres"
	"github.com/kmelnikov/course-assistant/internal/infrastructure/resilience"
	"github.com/kmelnikov/course-assistant/internal/infrastructure/storage/localfs"
	"github.com/kmelnikov/course-assistant/internal/infrastructure/vector/qdrant"
)

type App struct {
	Config config.Config

	Queue       ports.MessageQueue
	Docs        ports.DocumentReader
	IngestUC    ports.DocumentIngestor
	ProcessUC   ports.DocumentProcessor
	AssistantUC ports.QueryAssistant
	AnalyticsUC ports.CourseAnalytics

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	docRepo := postgres.NewDocumentRepository(db)
	if err := docRepo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure documents schema: %w", err)
	}
	courseRepo := postgres.NewCourseRepository(db)
	if err := courseRepo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure courses schema: %w", err)
	}
	sessionRepo := postgres.NewConversationRepository(db)
	if err := sessionRepo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure sessions schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	queue, err := nats.New(cfg.NATSURL, cfg.NATSSubject, executor)
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	ollamaClient := ollama.NewWithOptions(cfg.OllamaURL, cfg.OllamaChatModel, cfg.OllamaEmbedModel, ollama.Options{
		ResilienceExecutor: executor,
	})
	embedder := ollama.NewEmbedder(ollamaClient)
	chat := ollama.NewChatClient(ollamaClient)

	vectorDB := qdrant.New(cfg.QdrantURL, cfg.QdrantChunksCollection, cfg.QdrantTitlesCollection)
	chunker := chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	textExtractor := extractor.NewRouter(
		plaintext.NewExtractor(storage),
		pdf.NewExtractor(storage),
		spreadsheet.NewExtractor(storage),
	)
	parser := coursedoc.NewParser()

	retriever := usecase.NewRetrieverService(embedder, vectorDB, courseRepo, cfg.SearchLimit)

	// Tool citation buffers are per-query state, so the assistant
	// builds a registry for every query around the shared retriever.
	newTools := func() usecase.ToolProvider {
		tools := toolset.NewRegistry()
		_ = tools.Register(toolset.NewSearchTool(retriever))
		_ = tools.Register(toolset.NewOutlineTool(retriever))
		return tools
	}

	return &App{
		Config: cfg,
		Queue:  queue,
		Docs:   usecase.NewDocumentReadUseCase(docRepo),

		IngestUC:    usecase.NewIngestDocumentUseCase(docRepo, storage, queue),
		ProcessUC:   usecase.NewProcessCourseUseCase(docRepo, textExtractor, parser, chunker, embedder, vectorDB, courseRepo),
		AssistantUC: usecase.NewAssistantUseCase(chat, newTools, sessionRepo, cfg.MaxHistory),
		AnalyticsUC: usecase.NewAnalyticsUseCase(courseRepo),

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
