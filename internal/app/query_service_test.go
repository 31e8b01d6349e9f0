package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fortress-assistant/internal/ai"
	"fortress-assistant/internal/index"
	"fortress-assistant/internal/model"
	"fortress-assistant/internal/storage"
)

// scriptedCompleter records the messages it was asked to complete and
// returns a canned answer.
type scriptedCompleter struct {
	answer   string
	err      error
	messages []ai.ChatMessage
}

func (c *scriptedCompleter) Complete(_ context.Context, messages []ai.ChatMessage) (string, error) {
	c.messages = messages
	if c.err != nil {
		return "", c.err
	}
	return c.answer, nil
}

func newTestQuery(t *testing.T, completer Completer) (*QueryService, *RAGService) {
	t.Helper()
	store, err := storage.New(t.TempDir())
	require.NoError(t, err)
	rag := NewRAGService(letterEmbedder{}, index.New(), store, RAGConfig{ChunkSize: 1000, ChunkOverlap: 200, TopK: 3})
	return NewQueryService(rag, completer, QueryConfig{TopK: 3, MaxContextChars: 3000}), rag
}

func TestAsk_WithContext(t *testing.T) {
	completer := &scriptedCompleter{answer: "  It is in Source 1 (notes.txt).  "}
	svc, rag := newTestQuery(t, completer)

	_, err := rag.Ingest(context.Background(), "notes.txt", []byte("The meeting is on Tuesday."))
	require.NoError(t, err)

	result, err := svc.Ask(context.Background(), "When is the meeting?")
	require.NoError(t, err)
	assert.Equal(t, "It is in Source 1 (notes.txt).", result.Answer)
	assert.Equal(t, []string{"notes.txt"}, result.Sources)

	// The prompt carries the system instruction and the retrieved text.
	require.Len(t, completer.messages, 2)
	assert.Equal(t, "system", completer.messages[0].Role)
	assert.Contains(t, completer.messages[1].Content, "Source 1 (notes.txt):")
	assert.Contains(t, completer.messages[1].Content, "The meeting is on Tuesday.")
	assert.Contains(t, completer.messages[1].Content, "Question: When is the meeting?")
}

func TestAsk_EmptyIndexFallsBackToPlainChat(t *testing.T) {
	completer := &scriptedCompleter{answer: "plain answer"}
	svc, _ := newTestQuery(t, completer)

	result, err := svc.Ask(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "plain answer", result.Answer)
	assert.Empty(t, result.Sources)

	require.Len(t, completer.messages, 1)
	assert.Equal(t, model.RoleUser, completer.messages[0].Role)
	assert.Equal(t, "hello", completer.messages[0].Content)
}

func TestAsk_EmptyQuestion(t *testing.T) {
	svc, _ := newTestQuery(t, &scriptedCompleter{})
	_, err := svc.Ask(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrMessageEmpty)
}

func TestAsk_CompletionFailure(t *testing.T) {
	completer := &scriptedCompleter{err: errors.New("connection refused")}
	svc, _ := newTestQuery(t, completer)

	_, err := svc.Ask(context.Background(), "anything")
	assert.ErrorIs(t, err, ErrCompletionFailed)
}

func TestAsk_UnavailableServerStaysInErrorChain(t *testing.T) {
	completer := &scriptedCompleter{err: fmt.Errorf("%w: connection refused", ai.ErrCompletionUnavailable)}
	svc, _ := newTestQuery(t, completer)

	_, err := svc.Ask(context.Background(), "anything")
	assert.ErrorIs(t, err, ErrCompletionFailed)
	assert.ErrorIs(t, err, ai.ErrCompletionUnavailable)
}

func TestBuildContext_Headers(t *testing.T) {
	chunks := []model.RetrievedChunk{
		{Source: "a.txt", Text: "first"},
		{Source: "b.txt", Text: "second"},
		{Source: "a.txt", Text: "third"},
	}

	block, sources := BuildContext(chunks, 3000)
	assert.Contains(t, block, "Source 1 (a.txt):\nfirst")
	assert.Contains(t, block, "Source 2 (b.txt):\nsecond")
	assert.Contains(t, block, "Source 3 (a.txt):\nthird")
	// Duplicated filenames appear once, rank order preserved.
	assert.Equal(t, []string{"a.txt", "b.txt"}, sources)
}

func TestBuildContext_TruncatesAtBudget(t *testing.T) {
	chunks := []model.RetrievedChunk{
		{Source: "a.txt", Text: strings.Repeat("x", 200)},
		{Source: "b.txt", Text: strings.Repeat("y", 200)},
	}

	block, sources := BuildContext(chunks, 100)
	assert.Len(t, block, 100)
	assert.Contains(t, block, "Source 1 (a.txt):")
	// The second chunk never fits, so it contributes no source.
	assert.Equal(t, []string{"a.txt"}, sources)
}

func TestBuildContext_TruncatesOnRuneBoundary(t *testing.T) {
	chunks := []model.RetrievedChunk{
		{Source: "a.txt", Text: strings.Repeat("é", 200)},
	}
	header := "Source 1 (a.txt):\n"
	budget := len(header) + 31 // lands inside a two-byte rune

	block, sources := BuildContext(chunks, budget)
	assert.True(t, utf8.ValidString(block))
	assert.LessOrEqual(t, len(block), budget)
	assert.Contains(t, block, header)
	assert.Equal(t, []string{"a.txt"}, sources)
}

func TestBuildContext_DropsEntryWhenOnlyHeaderFits(t *testing.T) {
	chunks := []model.RetrievedChunk{
		{Source: "somewhat-long-filename.txt", Text: "body"},
	}
	header := "Source 1 (somewhat-long-filename.txt):\n"

	block, sources := BuildContext(chunks, len(header))
	assert.Empty(t, block)
	assert.Empty(t, sources)
}

func TestBuildContext_Empty(t *testing.T) {
	block, sources := BuildContext(nil, 3000)
	assert.Empty(t, block)
	assert.Empty(t, sources)
}
