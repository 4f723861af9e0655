package retrieval

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"newswatch/internal/text"
	"newswatch/internal/vector"
)

var ErrEmptyDocument = errors.New("retrieval: document produced no segments")

type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Session holds the pipeline artifacts of one indexed document. Each active
// document gets its own Session; artifacts are rebuilt wholesale when a new
// document is indexed, never mutated incrementally. The invariant
// Segments[i] ↔ index id i is established at build time and holds for the
// Session's lifetime.
type Session struct {
	ID        string
	Segments  []text.Segment
	Index     *vector.Index
	CreatedAt time.Time
}

type Service struct {
	embedder  Embedder
	maxTokens int
	logger    *QueryLogger
}

func NewService(e Embedder, maxTokens int, l *QueryLogger) *Service {
	return &Service{embedder: e, maxTokens: maxTokens, logger: l}
}

// IndexDocument runs the full pipeline on raw document text: clean, chunk,
// embed, index. Returns the Session holding segments and index.
func (s *Service) IndexDocument(ctx context.Context, raw string) (*Session, error) {
	cleaned := text.Clean(raw)
	segments := text.Split(cleaned, s.maxTokens)
	if len(segments) == 0 {
		return nil, ErrEmptyDocument
	}

	texts := make([]string, len(segments))
	for i, seg := range segments {
		texts[i] = seg.Text
	}

	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(segments) {
		return nil, fmt.Errorf("retrieval: embedder returned %d vectors for %d segments", len(vectors), len(segments))
	}

	index, err := vector.New(len(vectors[0]))
	if err != nil {
		return nil, err
	}
	if err := index.Add(vectors); err != nil {
		return nil, err
	}

	return &Session{
		ID:        uuid.New().String(),
		Segments:  segments,
		Index:     index,
		CreatedAt: time.Now(),
	}, nil
}

// Query embeds the question with the same embedder the session was built
// with and returns the topK most relevant segment texts, nearest first. A
// question embedded into a different space surfaces as a dimension
// mismatch from the index rather than silently corrupted ranking.
func (s *Service) Query(ctx context.Context, sess *Session, question string, topK int) ([]string, error) {
	start := time.Now()

	vectors, err := s.embedder.EmbedBatch(ctx, []string{question})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("retrieval: embedder returned %d vectors for 1 question", len(vectors))
	}

	matches, err := sess.Index.Search(vectors[0], topK)
	if err != nil {
		return nil, err
	}

	results := make([]string, len(matches))
	for i, m := range matches {
		results[i] = sess.Segments[m.ID].Text
	}

	if s.logger != nil {
		s.logger.Log(QueryLogEntry{
			Query:      question,
			SessionID:  sess.ID,
			NumResults: len(results),
			Duration:   time.Since(start),
		})
	}

	return results, nil
}
