package app

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"fortress-assistant/internal/ai"
	"fortress-assistant/internal/model"
)

const ragSystemPrompt = "You are a helpful offline assistant. Answer the question using only the " +
	"following sources. Cite them as Source N (filename). If the sources do not " +
	"contain the answer, say so."

// Completer produces a completion for a prompt. Implemented by ai.Client;
// tests substitute a fake.
type Completer interface {
	Complete(ctx context.Context, messages []ai.ChatMessage) (string, error)
}

// QueryConfig carries the prompt-assembly and timeout settings.
type QueryConfig struct {
	TopK            int
	MaxContextChars int
	RAGTimeout      time.Duration
	ChatTimeout     time.Duration
}

// QueryService answers questions over the indexed documents: retrieve,
// assemble a bounded context block, complete, report citations.
type QueryService struct {
	rag       *RAGService
	completer Completer
	cfg       QueryConfig
}

func NewQueryService(rag *RAGService, completer Completer, cfg QueryConfig) *QueryService {
	if cfg.TopK <= 0 {
		cfg.TopK = 3
	}
	if cfg.MaxContextChars <= 0 {
		cfg.MaxContextChars = 3000
	}
	if cfg.RAGTimeout <= 0 {
		cfg.RAGTimeout = 90 * time.Second
	}
	if cfg.ChatTimeout <= 0 {
		cfg.ChatTimeout = 60 * time.Second
	}
	return &QueryService{rag: rag, completer: completer, cfg: cfg}
}

// AskResult is the answer plus the filenames actually used as context.
type AskResult struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources"`
}

// Ask retrieves context for the question and asks the model. With no
// retrievable context the question goes through on its own, with the
// shorter plain-chat timeout.
func (s *QueryService) Ask(ctx context.Context, question string) (*AskResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrMessageEmpty
	}

	retrieved, err := s.rag.Retrieve(ctx, question, s.cfg.TopK)
	if err != nil {
		return nil, err
	}

	contextBlock, sources := BuildContext(retrieved, s.cfg.MaxContextChars)

	timeout := s.cfg.ChatTimeout
	messages := []ai.ChatMessage{{Role: model.RoleUser, Content: question}}
	if contextBlock != "" {
		timeout = s.cfg.RAGTimeout
		messages = []ai.ChatMessage{
			{Role: "system", Content: ragSystemPrompt},
			{Role: model.RoleUser, Content: "Sources:\n" + contextBlock + "\nQuestion: " + question},
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	answer, err := s.completer.Complete(callCtx, messages)
	if err != nil {
		// Degraded service, not a crash; retrieval results are discarded.
		return nil, fmt.Errorf("%w: %w", ErrCompletionFailed, err)
	}

	return &AskResult{
		Answer:  strings.TrimSpace(answer),
		Sources: sources,
	}, nil
}

// BuildContext concatenates retrieved chunks, best-ranked first, into a
// block of at most maxChars. The chunk that crosses the budget is truncated
// and anything ranked below it is dropped. Returns the block and the
// filenames that contributed text, in rank order without duplicates.
func BuildContext(chunks []model.RetrievedChunk, maxChars int) (string, []string) {
	if len(chunks) == 0 || maxChars <= 0 {
		return "", nil
	}

	var sb strings.Builder
	var sources []string
	seen := make(map[string]bool)

	for i, c := range chunks {
		header := fmt.Sprintf("Source %d (%s):\n", i+1, c.Source)
		entry := header + c.Text + "\n\n"
		remaining := maxChars - sb.Len()
		if remaining <= len(header) {
			break
		}
		if len(entry) > remaining {
			// Never cut a multi-byte rune in half.
			cut := remaining
			for cut > 0 && !utf8.RuneStart(entry[cut]) {
				cut--
			}
			entry = entry[:cut]
		}
		sb.WriteString(entry)
		if !seen[c.Source] {
			seen[c.Source] = true
			sources = append(sources, c.Source)
		}
		if sb.Len() >= maxChars {
			break
		}
	}
	return sb.String(), sources
}
