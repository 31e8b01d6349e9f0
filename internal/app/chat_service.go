package app

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"fortress-assistant/internal/ai"
	"fortress-assistant/internal/model"
	"fortress-assistant/internal/storage"
)

// ChatService runs plain completions without retrieval and keeps the current
// conversation in memory, persisting it to the conversation log after each
// exchange and before a clear.
type ChatService struct {
	completer Completer
	store     *storage.Store
	timeout   time.Duration

	mu        sync.Mutex
	convID    string
	startedAt time.Time
	messages  []model.Message
}

func NewChatService(completer Completer, store *storage.Store, timeout time.Duration) *ChatService {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &ChatService{
		completer: completer,
		store:     store,
		timeout:   timeout,
		convID:    uuid.NewString(),
		startedAt: time.Now(),
	}
}

// Send asks the model without document context and records both turns.
func (s *ChatService) Send(ctx context.Context, content string) (*model.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrMessageEmpty
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	answer, err := s.completer.Complete(callCtx, []ai.ChatMessage{
		{Role: model.RoleUser, Content: content},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCompletionFailed, err)
	}

	reply := model.Message{
		Role:      model.RoleAssistant,
		Content:   strings.TrimSpace(answer),
		Timestamp: time.Now(),
	}

	s.mu.Lock()
	s.messages = append(s.messages,
		model.Message{Role: model.RoleUser, Content: content, Timestamp: time.Now()},
		reply,
	)
	s.persistLocked()
	s.mu.Unlock()

	return &reply, nil
}

// History returns a copy of the current conversation.
func (s *ChatService) History() []model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Clear saves the current conversation and starts a fresh one.
func (s *ChatService) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persistLocked()
	s.messages = nil
	s.convID = uuid.NewString()
	s.startedAt = time.Now()
}

// ExchangeCount returns completed user/assistant round trips.
func (s *ChatService) ExchangeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages) / 2
}

func (s *ChatService) persistLocked() {
	conv := model.Conversation{
		ID:        s.convID,
		Timestamp: s.startedAt,
		Messages:  s.messages,
	}
	if err := s.store.SaveConversation(conv); err != nil {
		// Conversation logging is best effort; the chat itself succeeded.
		log.Printf("save conversation failed: %v", err)
	}
}
