package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"newswatch/internal/config"
	"newswatch/internal/settings"
	"newswatch/internal/text"
)

const (
	defaultLookback = 24 * time.Hour
	defaultSeenTTL  = 30 * 24 * time.Hour

	noSummaryPlaceholder = "(no summary available)"
)

// SettingsSource yields the effective monitor configuration for a cycle.
type SettingsSource interface {
	Get(ctx context.Context) (*settings.Settings, error)
}

// CycleParams bundles the dependencies of a Cycle. Publisher and Recorder
// are optional; everything else is required.
type CycleParams struct {
	Searcher   NewsSearcher
	Extractor  ArticleExtractor
	Summarizer Summarizer
	Notifier   Notifier
	Store      SeenStore
	Settings   SettingsSource
	Publisher  EventPublisher
	Recorder   Recorder
	Defaults   settings.Settings
	Lookback   time.Duration
	SeenTTL    time.Duration
	Logger     *slog.Logger
}

// Cycle runs one full poll iteration: search, dedup, summarize, notify,
// persist. A Cycle is stateless between runs; all dedup state lives in the
// seen store.
type Cycle struct {
	searcher   NewsSearcher
	extractor  ArticleExtractor
	summarizer Summarizer
	notifier   Notifier
	store      SeenStore
	settings   SettingsSource
	publisher  EventPublisher
	recorder   Recorder
	defaults   settings.Settings
	lookback   time.Duration
	seenTTL    time.Duration
	logger     *slog.Logger
}

func NewCycle(p CycleParams) *Cycle {
	if p.Lookback <= 0 {
		p.Lookback = defaultLookback
	}
	if p.SeenTTL <= 0 {
		p.SeenTTL = defaultSeenTTL
	}
	if p.Logger == nil {
		p.Logger = slog.Default()
	}
	return &Cycle{
		searcher:   p.Searcher,
		extractor:  p.Extractor,
		summarizer: p.Summarizer,
		notifier:   p.Notifier,
		store:      p.Store,
		settings:   p.Settings,
		publisher:  p.Publisher,
		recorder:   p.Recorder,
		defaults:   p.Defaults,
		lookback:   p.Lookback,
		seenTTL:    p.SeenTTL,
		logger:     p.Logger,
	}
}

// RunOnce executes a single poll cycle and returns the per-item outcomes.
// A search failure aborts the cycle before any state changes; every item
// that reaches processing is marked seen regardless of delivery outcome,
// and the seen set is saved exactly once at the end.
func (c *Cycle) RunOnce(ctx context.Context) ([]DeliveryResult, error) {
	cfg := c.effectiveSettings(ctx)
	now := time.Now().UTC()

	articles, err := c.searcher.Search(ctx, cfg.MonitorQuery, now.Add(-c.lookback), now, cfg.Language)
	if err != nil {
		return nil, fmt.Errorf("search news: %w", err)
	}

	set := c.store.Load()
	set.Prune(now, c.seenTTL)

	fresh := make([]Article, 0, len(articles))
	for _, a := range articles {
		if !set.Contains(a.Identity()) {
			fresh = append(fresh, a)
		}
	}

	if cfg.MaxItemsPerRun > 0 && len(fresh) > cfg.MaxItemsPerRun {
		fresh = fresh[:cfg.MaxItemsPerRun]
	}

	c.logger.Info("poll cycle fetched candidates",
		"total", len(articles),
		"fresh", len(fresh),
		"preview", cfg.PreviewOnly,
	)

	results := make([]DeliveryResult, 0, len(fresh))
	for _, a := range fresh {
		res := c.processItem(ctx, a, cfg.PreviewOnly)
		set.Add(a.Identity())
		results = append(results, res)
	}

	if err := c.store.Save(set); err != nil {
		c.logger.Warn("failed to save seen set", "error", err)
	}

	c.publishResults(results)

	if c.recorder != nil && len(results) > 0 {
		if err := c.recorder.Record(ctx, results); err != nil {
			c.logger.Warn("failed to record delivery results", "error", err)
		}
	}

	return results, nil
}

func (c *Cycle) processItem(ctx context.Context, a Article, preview bool) DeliveryResult {
	res := DeliveryResult{
		Title:       a.Title,
		Source:      a.SourceName,
		PublishedAt: a.PublishedAt,
		URL:         a.URL,
	}

	res.Summary = c.summarize(ctx, a)

	if preview {
		res.Status = StatusPreview
		c.logger.Info("preview mode, skipping delivery", "title", a.Title, "url", a.URL)
		return res
	}

	title := a.Title
	if a.SourceName != "" {
		title = fmt.Sprintf("%s — %s", a.Title, a.SourceName)
	}
	message := res.Summary
	if a.PublishedAt != "" {
		message += "\n\nPublished: " + a.PublishedAt
	}

	if err := c.notifier.Send(ctx, title, message, a.URL); err != nil {
		c.logger.Warn("notification delivery failed", "title", a.Title, "error", err)
		res.Status = StatusFailed
		return res
	}

	res.Status = StatusSent
	return res
}

// summarize produces the notification body for one article. The fetched page
// text is preferred; the API description and content snippet serve as
// fallbacks when extraction or summarization comes up empty.
func (c *Cycle) summarize(ctx context.Context, a Article) string {
	body, err := c.extractor.Extract(ctx, a.URL)
	if err != nil {
		c.logger.Warn("article extraction failed", "url", a.URL, "error", err)
	}
	body = text.Clean(body)

	if body != "" {
		summary, err := c.summarizer.Summarize(ctx, body)
		if err != nil {
			c.logger.Warn("summarization failed", "url", a.URL, "error", err)
		} else if summary != "" {
			return summary
		}
	}

	if desc := text.Clean(a.Description); desc != "" {
		return desc
	}
	if content := text.Clean(a.Content); content != "" {
		return content
	}
	return noSummaryPlaceholder
}

func (c *Cycle) publishResults(results []DeliveryResult) {
	if c.publisher == nil {
		return
	}
	for _, r := range results {
		body, err := json.Marshal(r)
		if err != nil {
			c.logger.Warn("failed to marshal delivery result", "error", err)
			continue
		}
		if err := c.publisher.Publish(config.TopicMonitorResult, body); err != nil {
			c.logger.Warn("failed to publish delivery result", "topic", config.TopicMonitorResult, "error", err)
		}
	}
}

func (c *Cycle) effectiveSettings(ctx context.Context) settings.Settings {
	if c.settings == nil {
		return c.defaults
	}
	s, err := c.settings.Get(ctx)
	if err != nil || s == nil {
		c.logger.Warn("falling back to default monitor settings", "error", err)
		return c.defaults
	}
	cfg := *s
	if cfg.MonitorQuery == "" {
		cfg.MonitorQuery = c.defaults.MonitorQuery
	}
	if cfg.Language == "" {
		cfg.Language = c.defaults.Language
	}
	if cfg.MaxItemsPerRun <= 0 {
		cfg.MaxItemsPerRun = c.defaults.MaxItemsPerRun
	}
	return cfg
}
