// Package monitor exposes the HTTP surface of the news watch: lifecycle
// control, manual triggers, delivery history, and a one-off notification
// test.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	poll "newswatch/internal/monitor"
)

// ErrNoMatch means the search window held no article to test with. Not a
// failure of the upstream API, just an empty result.
var ErrNoMatch = errors.New("no matching article in the search window")

// Delivery is one persisted delivery-history row.
type Delivery struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Source      string    `json:"source"`
	PublishedAt string    `json:"published_at"`
	URL         string    `json:"url"`
	Status      string    `json:"status"`
	Summary     string    `json:"summary"`
	CreatedAt   time.Time `json:"created_at"`
}

// Runner is the scheduler surface the feature drives.
type Runner interface {
	Enable()
	Disable()
	RunNow(ctx context.Context) ([]poll.DeliveryResult, error)
	Status() poll.SchedulerStatus
}

// Picker fetches one random matching article for notification tests.
type Picker interface {
	PickRandom(ctx context.Context, query string, from, to time.Time, language string) (*poll.Article, error)
}

type Notifier interface {
	Send(ctx context.Context, title, message, url string) error
}

type Repository interface {
	Record(ctx context.Context, results []poll.DeliveryResult) error
	ListRecent(ctx context.Context, limit int) ([]Delivery, error)
}

type Service struct {
	runner   Runner
	repo     Repository
	picker   Picker
	notifier Notifier
	settings poll.SettingsSource
	seen     poll.SeenStore
	query    string
	language string
	lookback time.Duration
}

func NewService(runner Runner, repo Repository, picker Picker, notifier Notifier, settings poll.SettingsSource, seen poll.SeenStore, query, language string, lookback time.Duration) *Service {
	if lookback <= 0 {
		lookback = 24 * time.Hour
	}
	return &Service{
		runner:   runner,
		repo:     repo,
		picker:   picker,
		notifier: notifier,
		settings: settings,
		seen:     seen,
		query:    query,
		language: language,
		lookback: lookback,
	}
}

func (s *Service) Start(ctx context.Context) {
	s.runner.Enable()
}

func (s *Service) Stop(ctx context.Context) {
	s.runner.Disable()
}

// StatusReport is the full monitor state: scheduler snapshot plus the
// effective preview flag and the current seen-ledger size.
type StatusReport struct {
	Enabled     bool
	LastRun     time.Time
	LastItems   int
	Interval    time.Duration
	PreviewOnly bool
	SeenCount   int
}

func (s *Service) Status(ctx context.Context) StatusReport {
	st := s.runner.Status()
	rep := StatusReport{
		Enabled:   st.Enabled,
		LastRun:   st.LastRun,
		LastItems: st.LastItems,
		Interval:  st.Interval,
	}
	if s.settings != nil {
		if cfg, err := s.settings.Get(ctx); err == nil && cfg != nil {
			rep.PreviewOnly = cfg.PreviewOnly
		}
	}
	if s.seen != nil {
		rep.SeenCount = s.seen.Load().Len()
	}
	return rep
}

func (s *Service) RunOnce(ctx context.Context) ([]poll.DeliveryResult, error) {
	return s.runner.RunNow(ctx)
}

func (s *Service) Results(ctx context.Context, limit int) ([]Delivery, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.repo.ListRecent(ctx, limit)
}

// Test picks one random matching article and pushes a real notification for
// it, bypassing the seen set. Used to verify delivery credentials.
func (s *Service) Test(ctx context.Context) (*poll.Article, error) {
	now := time.Now().UTC()
	article, err := s.picker.PickRandom(ctx, s.query, now.Add(-s.lookback), now, s.language)
	if err != nil {
		return nil, fmt.Errorf("pick test article: %w", err)
	}
	if article == nil {
		return nil, ErrNoMatch
	}

	title := article.Title
	if article.SourceName != "" {
		title = fmt.Sprintf("%s — %s", article.Title, article.SourceName)
	}
	message := article.Description
	if message == "" {
		message = article.Title
	}

	if err := s.notifier.Send(ctx, title, message, article.URL); err != nil {
		return nil, fmt.Errorf("send test notification: %w", err)
	}

	slog.Info("test notification delivered", "title", article.Title, "url", article.URL)
	return article, nil
}
