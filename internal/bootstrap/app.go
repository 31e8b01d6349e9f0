package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"fortress-assistant/internal/ai"
	"fortress-assistant/internal/app"
	"fortress-assistant/internal/config"
	"fortress-assistant/internal/index"
	"fortress-assistant/internal/storage"
)

// App wires the process-wide singletons: one config, one model client, one
// vector index, and the services built on them. Everything downstream takes
// these by reference; there is no global lookup.
type App struct {
	Config       *config.Config
	Store        *storage.Store
	AIClient     *ai.Client
	Index        *index.Index
	RAGService   *app.RAGService
	QueryService *app.QueryService
	ChatService  *app.ChatService

	StartedAt time.Time
}

func New(_ context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	store, err := storage.New(cfg.Storage.DataDir)
	if err != nil {
		return nil, err
	}

	idx, err := index.Load(store.VectorDBDir())
	if err != nil {
		if !errors.Is(err, index.ErrIndexUnavailable) {
			return nil, err
		}
		// No persisted index yet, or an unreadable one: start empty.
		log.Printf("vector index not loaded, starting empty: %v", err)
		idx = index.New()
	} else {
		log.Printf("vector index loaded: %d entries, dim %d", idx.Len(), idx.Dim())
	}

	client := ai.NewClient()
	embedder := ai.NewTextEmbedder(client, ai.EmbeddingConfig{
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.EmbeddingModel,
	})
	completer := ai.NewChatCompleter(client, ai.ChatConfig{
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.Model,
	})

	ragService := app.NewRAGService(embedder, idx, store, app.RAGConfig{
		ChunkSize:    cfg.RAG.ChunkSize,
		ChunkOverlap: cfg.RAG.ChunkOverlap,
		TopK:         cfg.RAG.TopK,
	})
	queryService := app.NewQueryService(ragService, completer, app.QueryConfig{
		TopK:            cfg.RAG.TopK,
		MaxContextChars: cfg.RAG.MaxContextChars,
		RAGTimeout:      time.Duration(cfg.LLM.RAGTimeoutSeconds) * time.Second,
		ChatTimeout:     time.Duration(cfg.LLM.ChatTimeoutSeconds) * time.Second,
	})
	chatService := app.NewChatService(completer, store,
		time.Duration(cfg.LLM.ChatTimeoutSeconds)*time.Second)

	return &App{
		Config:       cfg,
		Store:        store,
		AIClient:     client,
		Index:        idx,
		RAGService:   ragService,
		QueryService: queryService,
		ChatService:  chatService,
		StartedAt:    time.Now(),
	}, nil
}

// Close flushes the current conversation to the log.
func (a *App) Close() error {
	if a.ChatService != nil {
		a.ChatService.Clear()
	}
	return nil
}
