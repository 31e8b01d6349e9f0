package app

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fortress-assistant/internal/ai"
	"fortress-assistant/internal/index"
	"fortress-assistant/internal/storage"
)

// letterEmbedder maps text to a normalized letter-frequency vector. It is
// deterministic and keeps related texts near each other, which is all the
// pipeline tests need.
type letterEmbedder struct{}

func (letterEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, 26)
	for _, r := range strings.ToLower(text) {
		if r >= 'a' && r <= 'z' {
			vec[r-'a']++
		}
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		inv := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= inv
		}
	}
	return vec, nil
}

func (e letterEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// fixedEmbedder returns zero vectors of one fixed dimension, standing in
// for a particular embedding model.
type fixedEmbedder struct{ dim int }

func (e fixedEmbedder) Embed(context.Context, string) ([]float32, error) {
	return make([]float32, e.dim), nil
}

func (e fixedEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, e.dim)
	}
	return out, nil
}

// downEmbedder simulates a model server that cannot be reached.
type downEmbedder struct{}

func (downEmbedder) Embed(context.Context, string) ([]float32, error) {
	return nil, fmt.Errorf("%w: connection refused", ai.ErrEmbeddingUnavailable)
}

func (d downEmbedder) EmbedBatch(context.Context, []string) ([][]float32, error) {
	return nil, fmt.Errorf("%w: connection refused", ai.ErrEmbeddingUnavailable)
}

func newTestRAG(t *testing.T) (*RAGService, *index.Index, *storage.Store) {
	t.Helper()
	store, err := storage.New(t.TempDir())
	require.NoError(t, err)
	idx := index.New()
	svc := NewRAGService(letterEmbedder{}, idx, store, RAGConfig{ChunkSize: 1000, ChunkOverlap: 200, TopK: 3})
	return svc, idx, store
}

func TestIngest_EndToEnd(t *testing.T) {
	svc, _, store := newTestRAG(t)
	ctx := context.Background()

	content := strings.Repeat("Alpha Bravo Charlie ", 60) // 1200 chars
	result, err := svc.Ingest(ctx, "alpha.txt", []byte(content))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, result.ChunkCount, 1)
	assert.False(t, result.Replaced)

	// Raw upload lands in evidence/.
	_, err = os.Stat(filepath.Join(store.EvidenceDir(), "alpha.txt"))
	require.NoError(t, err)

	// Index persisted as the companion pair.
	_, err = os.Stat(filepath.Join(store.VectorDBDir(), "index.f32"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(store.VectorDBDir(), "index.jsonl"))
	require.NoError(t, err)

	retrieved, err := svc.Retrieve(ctx, "Alpha", 3)
	require.NoError(t, err)
	require.NotEmpty(t, retrieved)
	assert.Equal(t, "alpha.txt", retrieved[0].Source)
}

func TestIngest_ReplacesOnReupload(t *testing.T) {
	svc, idx, _ := newTestRAG(t)
	ctx := context.Background()

	_, err := svc.Ingest(ctx, "a.txt", []byte("foo"))
	require.NoError(t, err)
	require.Equal(t, 1, idx.Len())

	result, err := svc.Ingest(ctx, "a.txt", []byte("bar"))
	require.NoError(t, err)
	assert.True(t, result.Replaced)
	assert.Equal(t, 1, idx.Len())

	retrieved, err := svc.Retrieve(ctx, "bar", 3)
	require.NoError(t, err)
	require.NotEmpty(t, retrieved)
	assert.Equal(t, "a.txt", retrieved[0].Source)
	assert.Contains(t, retrieved[0].Text, "bar")
	for _, r := range retrieved {
		assert.NotContains(t, r.Text, "foo")
	}
}

func TestIngest_UnsupportedFormatLeavesIndexAlone(t *testing.T) {
	svc, idx, store := newTestRAG(t)

	_, err := svc.Ingest(context.Background(), "image.png", []byte{0x89, 0x50})
	require.Error(t, err)
	assert.Equal(t, 0, idx.Len())

	docs, err := store.ListEvidence()
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestIngest_EmptyTextIsWarningNotFailure(t *testing.T) {
	svc, idx, store := newTestRAG(t)

	result, err := svc.Ingest(context.Background(), "blank.txt", []byte("   \n\n   \t  \n"))
	require.NoError(t, err)
	assert.Equal(t, 0, result.ChunkCount)
	assert.NotEmpty(t, result.Message)
	assert.Equal(t, 0, idx.Len())

	// The document itself is still recorded.
	docs, err := store.ListEvidence()
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "blank.txt", docs[0].Filename)
}

func TestIngest_EmbedderDown(t *testing.T) {
	store, err := storage.New(t.TempDir())
	require.NoError(t, err)
	idx := index.New()
	svc := NewRAGService(downEmbedder{}, idx, store, RAGConfig{ChunkSize: 1000, ChunkOverlap: 200, TopK: 3})

	_, err = svc.Ingest(context.Background(), "doc.txt", []byte("some content"))
	assert.ErrorIs(t, err, ai.ErrEmbeddingUnavailable)
	assert.Equal(t, 0, idx.Len())
}

func TestIngest_DimensionMismatchKeepsPriorEntries(t *testing.T) {
	store, err := storage.New(t.TempDir())
	require.NoError(t, err)
	idx := index.New()
	cfg := RAGConfig{ChunkSize: 1000, ChunkOverlap: 200, TopK: 3}

	first := NewRAGService(fixedEmbedder{dim: 8}, idx, store, cfg)
	_, err = first.Ingest(context.Background(), "a.txt", []byte("original content"))
	require.NoError(t, err)
	require.Equal(t, 1, idx.Len())

	// Re-ingesting through a model with another dimension must be rejected
	// without touching the entries already indexed.
	second := NewRAGService(fixedEmbedder{dim: 4}, idx, store, cfg)
	_, err = second.Ingest(context.Background(), "a.txt", []byte("replacement content"))
	assert.ErrorIs(t, err, index.ErrDimensionMismatch)
	assert.Equal(t, 1, idx.Len())
	assert.Equal(t, []string{"a.txt"}, idx.Sources())
}

func TestRetrieve_EmptyIndex(t *testing.T) {
	svc, _, _ := newTestRAG(t)

	retrieved, err := svc.Retrieve(context.Background(), "anything", 3)
	require.NoError(t, err)
	assert.Empty(t, retrieved)
}

func TestRetrieve_EmbedderDownDegrades(t *testing.T) {
	store, err := storage.New(t.TempDir())
	require.NoError(t, err)
	idx := index.New()

	// Populate through a healthy service, then query through a degraded one
	// sharing the same index.
	healthy := NewRAGService(letterEmbedder{}, idx, store, RAGConfig{ChunkSize: 1000, ChunkOverlap: 200, TopK: 3})
	_, err = healthy.Ingest(context.Background(), "doc.txt", []byte("indexed content"))
	require.NoError(t, err)

	degraded := NewRAGService(downEmbedder{}, idx, store, RAGConfig{ChunkSize: 1000, ChunkOverlap: 200, TopK: 3})
	retrieved, err := degraded.Retrieve(context.Background(), "anything", 3)
	require.NoError(t, err)
	assert.Empty(t, retrieved)
}

func TestRemoveDocument(t *testing.T) {
	svc, idx, store := newTestRAG(t)
	ctx := context.Background()

	_, err := svc.Ingest(ctx, "keep.txt", []byte("keep this"))
	require.NoError(t, err)
	_, err = svc.Ingest(ctx, "drop.txt", []byte("drop this"))
	require.NoError(t, err)

	require.NoError(t, svc.RemoveDocument(ctx, "drop.txt"))
	assert.Equal(t, []string{"keep.txt"}, idx.Sources())

	_, err = os.Stat(filepath.Join(store.EvidenceDir(), "drop.txt"))
	assert.True(t, os.IsNotExist(err))

	err = svc.RemoveDocument(ctx, "drop.txt")
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}

func TestRemoveDocument_ZeroChunkUpload(t *testing.T) {
	svc, idx, store := newTestRAG(t)
	ctx := context.Background()

	// Whitespace-only uploads live in evidence but never reach the index;
	// they must still be deletable.
	_, err := svc.Ingest(ctx, "blank.txt", []byte("   \n\t  "))
	require.NoError(t, err)
	require.Equal(t, 0, idx.Len())

	require.NoError(t, svc.RemoveDocument(ctx, "blank.txt"))

	docs, err := store.ListEvidence()
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestRetrieve_EmptyQuery(t *testing.T) {
	svc, _, _ := newTestRAG(t)
	_, err := svc.Retrieve(context.Background(), "  ", 3)
	assert.ErrorIs(t, err, ErrMessageEmpty)
}
