package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"fortress-assistant/internal/ai"
	"fortress-assistant/internal/chunker"
	"fortress-assistant/internal/extract"
	"fortress-assistant/internal/index"
	"fortress-assistant/internal/model"
	"fortress-assistant/internal/storage"
)

// Embedding providers often cap batch sizes; chunks are sent in sub-batches.
const embeddingBatchSize = 10

// Embedder turns text into fixed-dimension vectors. Implemented by the
// process-wide ai.Client; tests substitute a deterministic fake.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// RAGConfig carries the chunking and retrieval settings.
type RAGConfig struct {
	ChunkSize    int
	ChunkOverlap int
	TopK         int
}

// RAGService owns document ingestion and retrieval against one vector index.
type RAGService struct {
	embedder Embedder
	idx      *index.Index
	store    *storage.Store
	cfg      RAGConfig

	// ingestMu serializes the read-modify-write of the persisted index.
	// Searches stay concurrent; the index has its own internal lock.
	ingestMu sync.Mutex
}

func NewRAGService(embedder Embedder, idx *index.Index, store *storage.Store, cfg RAGConfig) *RAGService {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 1000
	}
	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		cfg.ChunkOverlap = cfg.ChunkSize / 5
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 3
	}
	return &RAGService{
		embedder: embedder,
		idx:      idx,
		store:    store,
		cfg:      cfg,
	}
}

// IngestResult reports one document's ingestion outcome.
type IngestResult struct {
	Filename   string `json:"filename"`
	ChunkCount int    `json:"chunk_count"`
	Replaced   bool   `json:"replaced"`
	Message    string `json:"message"`
}

// Ingest extracts, chunks, embeds and indexes one uploaded document, then
// persists the index. Re-uploading a filename replaces its prior entries.
// All failures abort before the index is mutated.
func (s *RAGService) Ingest(ctx context.Context, filename string, data []byte) (*IngestResult, error) {
	filename = strings.TrimSpace(filename)
	if filename == "" || len(data) == 0 {
		return nil, ErrInvalidInput
	}

	text, err := extract.Extract(filename, data)
	if err != nil {
		return nil, err
	}

	s.ingestMu.Lock()
	defer s.ingestMu.Unlock()

	if text == "" {
		// Recorded but nothing retrievable; not a failure.
		if err := s.store.SaveEvidence(filename, data); err != nil {
			return nil, err
		}
		return &IngestResult{
			Filename:   filename,
			ChunkCount: 0,
			Message:    "document contains no extractable text",
		}, nil
	}

	chunks, err := chunker.Split(text, s.cfg.ChunkSize, s.cfg.ChunkOverlap)
	if err != nil {
		return nil, err
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := s.embedBatches(ctx, texts)
	if err != nil {
		return nil, err
	}

	metas := make([]index.Meta, len(chunks))
	for i, c := range chunks {
		metas[i] = index.Meta{Source: filename, Text: c.Text, Offset: c.Offset}
	}

	removed, err := s.idx.Replace(filename, vectors, metas)
	if err != nil {
		return nil, err
	}
	if err := s.store.SaveEvidence(filename, data); err != nil {
		return nil, err
	}
	if err := s.idx.Save(s.store.VectorDBDir()); err != nil {
		// Save failure risks data loss; surface it.
		return nil, fmt.Errorf("persist index: %w", err)
	}

	msg := fmt.Sprintf("indexed %d chunks", len(chunks))
	if removed > 0 {
		msg = fmt.Sprintf("replaced %d prior chunks, indexed %d", removed, len(chunks))
	}
	return &IngestResult{
		Filename:   filename,
		ChunkCount: len(chunks),
		Replaced:   removed > 0,
		Message:    msg,
	}, nil
}

func (s *RAGService) embedBatches(ctx context.Context, texts []string) ([][]float32, error) {
	var vectors [][]float32
	for i := 0; i < len(texts); i += embeddingBatchSize {
		end := i + embeddingBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := s.embedder.EmbedBatch(ctx, texts[i:end])
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)
	}
	if len(vectors) != len(texts) {
		return nil, errors.New("embedding count mismatch")
	}
	return vectors, nil
}

// Retrieve embeds the query and returns up to topK nearest chunks, nearest
// first. An unavailable embedder or an empty index yields an empty result,
// never an error: callers proceed without context.
func (s *RAGService) Retrieve(ctx context.Context, query string, topK int) ([]model.RetrievedChunk, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrMessageEmpty
	}
	if topK <= 0 {
		topK = s.cfg.TopK
	}
	if s.idx.Len() == 0 {
		return nil, nil
	}

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		if errors.Is(err, ai.ErrEmbeddingUnavailable) {
			log.Printf("retrieval degraded: %v", err)
			return nil, nil
		}
		return nil, err
	}

	results := s.idx.Search(vector, topK)
	retrieved := make([]model.RetrievedChunk, len(results))
	for i, r := range results {
		retrieved[i] = model.RetrievedChunk{
			Source:   r.Meta.Source,
			Text:     r.Meta.Text,
			Offset:   r.Meta.Offset,
			Distance: r.Distance,
		}
	}
	return retrieved, nil
}

// RemoveDocument drops a document from the index and the evidence store and
// persists the shrunken index. A document is known if it is indexed or held
// in evidence; zero-chunk uploads exist only in the latter.
func (s *RAGService) RemoveDocument(ctx context.Context, filename string) error {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return ErrInvalidInput
	}

	s.ingestMu.Lock()
	defer s.ingestMu.Unlock()

	hadEvidence := s.store.HasEvidence(filename)
	removed := s.idx.RemoveBySource(filename)
	if removed == 0 && !hadEvidence {
		return ErrDocumentNotFound
	}
	if err := s.store.RemoveEvidence(filename); err != nil {
		return err
	}
	if removed > 0 {
		if err := s.idx.Save(s.store.VectorDBDir()); err != nil {
			return fmt.Errorf("persist index: %w", err)
		}
	}
	return nil
}

// Sources returns the distinct indexed document filenames.
func (s *RAGService) Sources() []string {
	return s.idx.Sources()
}

// EntryCount returns the number of indexed chunks.
func (s *RAGService) EntryCount() int {
	return s.idx.Len()
}

// Dim returns the index vector dimension, 0 while empty.
func (s *RAGService) Dim() int {
	return s.idx.Dim()
}
