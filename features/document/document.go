package document

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"newswatch/internal/retrieval"
)

var (
	ErrNotFound     = errors.New("document not found")
	ErrEmptyInput   = errors.New("either url or text is required")
	ErrThemeMissing = errors.New("theme is required for thematic summaries")
)

// SummaryMode selects the summarization prompt variant.
type SummaryMode string

const (
	SummaryModeClassic  SummaryMode = "classic"
	SummaryModeThematic SummaryMode = "thematic"
)

type Document struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	URL         string    `json:"url,omitempty"`
	NumSegments int       `json:"num_segments"`
	CreatedAt   time.Time `json:"created_at"`
}

type Pipeline interface {
	IndexDocument(ctx context.Context, raw string) (*retrieval.Session, error)
	Query(ctx context.Context, sess *retrieval.Session, question string, topK int) ([]string, error)
}

type Extractor interface {
	Extract(ctx context.Context, url string) (string, error)
}

type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
	SummarizeTheme(ctx context.Context, text, theme string) (string, error)
}

// entry pairs the public document record with its in-memory search session
// and the full text kept around for summarization.
type entry struct {
	doc  Document
	sess *retrieval.Session
	text string
}

type Service struct {
	pipeline   Pipeline
	extractor  Extractor
	summarizer Summarizer

	mu   sync.RWMutex
	docs map[string]*entry
}

func NewService(pipeline Pipeline, extractor Extractor, summarizer Summarizer) *Service {
	return &Service{
		pipeline:   pipeline,
		extractor:  extractor,
		summarizer: summarizer,
		docs:       make(map[string]*entry),
	}
}

// Create ingests a document from a URL or raw text, segments and embeds it,
// and registers a search session for it. URL takes precedence when both are
// given.
func (s *Service) Create(ctx context.Context, url, text, title string) (*Document, error) {
	if url == "" && strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}

	if url != "" {
		extracted, err := s.extractor.Extract(ctx, url)
		if err != nil {
			return nil, fmt.Errorf("extract %s: %w", url, err)
		}
		text = extracted
	}

	sess, err := s.pipeline.IndexDocument(ctx, text)
	if err != nil {
		return nil, err
	}

	if title == "" {
		title = deriveTitle(url, sess)
	}

	doc := Document{
		ID:          sess.ID,
		Title:       title,
		URL:         url,
		NumSegments: len(sess.Segments),
		CreatedAt:   sess.CreatedAt,
	}

	s.mu.Lock()
	s.docs[doc.ID] = &entry{doc: doc, sess: sess, text: text}
	s.mu.Unlock()

	slog.Info("document indexed", "id", doc.ID, "segments", doc.NumSegments, "url", url)
	return &doc, nil
}

// Search returns the texts of the segments closest to the question.
func (s *Service) Search(ctx context.Context, id, question string, topK int) ([]string, error) {
	e, err := s.get(id)
	if err != nil {
		return nil, err
	}
	return s.pipeline.Query(ctx, e.sess, question, topK)
}

// Summarize produces a summary of the whole document. Thematic mode focuses
// the summary on the given theme.
func (s *Service) Summarize(ctx context.Context, id string, mode SummaryMode, theme string) (string, error) {
	e, err := s.get(id)
	if err != nil {
		return "", err
	}

	switch mode {
	case SummaryModeThematic:
		if strings.TrimSpace(theme) == "" {
			return "", ErrThemeMissing
		}
		return s.summarizer.SummarizeTheme(ctx, e.text, theme)
	case SummaryModeClassic, "":
		return s.summarizer.Summarize(ctx, e.text)
	default:
		return "", fmt.Errorf("unknown summary mode %q", mode)
	}
}

func (s *Service) List(ctx context.Context) []Document {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := make([]Document, 0, len(s.docs))
	for _, e := range s.docs {
		docs = append(docs, e.doc)
	}
	return docs
}

func (s *Service) Get(ctx context.Context, id string) (*Document, error) {
	e, err := s.get(id)
	if err != nil {
		return nil, err
	}
	doc := e.doc
	return &doc, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[id]; !ok {
		return ErrNotFound
	}
	delete(s.docs, id)
	return nil
}

func (s *Service) get(id string) (*entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return e, nil
}

// deriveTitle falls back to the source URL, then to the opening words of the
// first segment.
func deriveTitle(url string, sess *retrieval.Session) string {
	if url != "" {
		return url
	}
	if len(sess.Segments) == 0 {
		return "untitled"
	}
	words := strings.Fields(sess.Segments[0].Text)
	if len(words) > 8 {
		words = words[:8]
	}
	return strings.Join(words, " ")
}
