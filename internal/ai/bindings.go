package ai

import "context"

// ChatCompleter binds a Client to one ChatConfig so services depend on a
// single-argument completion call.
type ChatCompleter struct {
	client *Client
	cfg    ChatConfig
}

func NewChatCompleter(client *Client, cfg ChatConfig) *ChatCompleter {
	return &ChatCompleter{client: client, cfg: cfg}
}

func (c *ChatCompleter) Complete(ctx context.Context, messages []ChatMessage) (string, error) {
	return c.client.Complete(ctx, c.cfg, messages)
}

// TextEmbedder binds a Client to one EmbeddingConfig.
type TextEmbedder struct {
	client *Client
	cfg    EmbeddingConfig
}

func NewTextEmbedder(client *Client, cfg EmbeddingConfig) *TextEmbedder {
	return &TextEmbedder{client: client, cfg: cfg}
}

func (e *TextEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return e.client.Embed(ctx, e.cfg, text)
}

func (e *TextEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return e.client.EmbedBatch(ctx, e.cfg, texts)
}
