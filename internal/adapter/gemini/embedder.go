package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

var ErrNotConfigured = errors.New("gemini api key not configured")

// Embedder maps text to fixed-dimension vectors via the Gemini embedding
// API. The client is created lazily on first use so a missing key only
// fails the feature that actually needs embeddings.
type Embedder struct {
	apiKey     string
	model      string
	clientOpts []option.ClientOption

	mu     sync.Mutex
	client *genai.Client
}

func NewEmbedder(apiKey string, opts ...option.ClientOption) *Embedder {
	return &Embedder{
		apiKey:     apiKey,
		model:      "gemini-embedding-001",
		clientOpts: opts,
	}
}

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch embeds all texts in one API call. The result has one vector
// per input, all of the same dimension.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	client, err := e.getClient(ctx)
	if err != nil {
		return nil, err
	}

	slog.DebugContext(ctx, "embedding batch", "model", e.model, "count", len(texts))

	em := client.EmbeddingModel(e.model)
	batch := em.NewBatch()
	for _, t := range texts {
		batch.AddContent(genai.Text(t))
	}

	res, err := em.BatchEmbedContents(ctx, batch)
	if err != nil {
		slog.ErrorContext(ctx, "embedding failed", "error", err)
		return nil, fmt.Errorf("embed batch: %w", err)
	}

	if len(res.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embed batch: got %d embeddings for %d inputs", len(res.Embeddings), len(texts))
	}

	vectors := make([][]float32, len(res.Embeddings))
	for i, emb := range res.Embeddings {
		if emb == nil || len(emb.Values) == 0 {
			return nil, fmt.Errorf("embed batch: empty embedding at index %d", i)
		}
		vectors[i] = emb.Values
	}
	return vectors, nil
}

func (e *Embedder) getClient(ctx context.Context) (*genai.Client, error) {
	if e.apiKey == "" {
		return nil, ErrNotConfigured
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.client != nil {
		return e.client, nil
	}

	opts := append(e.clientOpts, option.WithAPIKey(e.apiKey))
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}
	e.client = client
	return client, nil
}
