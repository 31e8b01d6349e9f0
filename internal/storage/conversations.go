package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"fortress-assistant/internal/model"
)

// SaveConversation writes the conversation as a timestamped JSON file, one
// file per conversation, overwritten on each save. Empty conversations are
// skipped.
func (s *Store) SaveConversation(conv model.Conversation) error {
	if len(conv.Messages) == 0 {
		return nil
	}
	if conv.Timestamp.IsZero() {
		conv.Timestamp = time.Now()
	}
	name := fmt.Sprintf("conversation-%s-%s.json", conv.Timestamp.Format("20060102-150405"), conv.ID)
	path := filepath.Join(s.ConversationsDir(), name)

	data, err := json.MarshalIndent(conv, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal conversation: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("save conversation: %w", err)
	}
	return nil
}
