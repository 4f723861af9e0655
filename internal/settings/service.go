package settings

import (
	"context"
)

// Settings is the single runtime-editable configuration row. Monitor
// settings take effect at the start of the next cycle.
type Settings struct {
	ID             int    `json:"-"`
	MonitorQuery   string `json:"monitor_query"`
	Language       string `json:"language"`
	MaxItemsPerRun int    `json:"max_items_per_run"`
	IntervalSecs   int    `json:"interval_secs"`
	PreviewOnly    bool   `json:"preview_only"`
	NewsAPIKey     string `json:"newsapi_key"`
	PushoverToken  string `json:"pushover_token"`
	PushoverUser   string `json:"pushover_user"`
}

type Repository interface {
	Get(ctx context.Context) (*Settings, error)
	Update(ctx context.Context, s *Settings) error
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Get(ctx context.Context) (*Settings, error) {
	return s.repo.Get(ctx)
}

func (s *Service) Update(ctx context.Context, set *Settings) error {
	return s.repo.Update(ctx, set)
}
