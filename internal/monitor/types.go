// Package monitor implements the scheduled news-watch loop: fetch candidate
// articles, drop already-seen ones, extract and summarize the rest, deliver
// notifications, and persist the dedup ledger.
package monitor

import (
	"context"
	"time"

	"newswatch/internal/seen"
)

// Article is one candidate item returned by the news search API. Read-only.
type Article struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Content     string `json:"content,omitempty"`
	PublishedAt string `json:"published_at"`
	SourceName  string `json:"source_name"`
}

// Identity derives the dedup key for this article.
func (a Article) Identity() string {
	return seen.Identity(a.URL, a.PublishedAt)
}

type Status string

const (
	StatusSent    Status = "sent"
	StatusPreview Status = "preview"
	StatusFailed  Status = "failed"
)

// DeliveryResult records the outcome of one processed item within a cycle.
type DeliveryResult struct {
	Title       string `json:"title"`
	Source      string `json:"source"`
	PublishedAt string `json:"published_at"`
	URL         string `json:"url"`
	Status      Status `json:"status"`
	Summary     string `json:"summary"`
}

type NewsSearcher interface {
	Search(ctx context.Context, query string, from, to time.Time, language string) ([]Article, error)
}

type ArticleExtractor interface {
	Extract(ctx context.Context, url string) (string, error)
}

type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

type Notifier interface {
	Send(ctx context.Context, title, message, url string) error
}

type SeenStore interface {
	Load() *seen.Set
	Save(s *seen.Set) error
}

type EventPublisher interface {
	Publish(topic string, body []byte) error
}

// Recorder persists per-item delivery results for later inspection.
type Recorder interface {
	Record(ctx context.Context, results []DeliveryResult) error
}
