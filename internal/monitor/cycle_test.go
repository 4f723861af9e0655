package monitor_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"newswatch/internal/monitor"
	"newswatch/internal/seen"
	"newswatch/internal/settings"
)

type MockSearcher struct {
	mock.Mock
}

func (m *MockSearcher) Search(ctx context.Context, query string, from, to time.Time, language string) ([]monitor.Article, error) {
	args := m.Called(ctx, query, from, to, language)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]monitor.Article), args.Error(1)
}

type MockExtractor struct {
	mock.Mock
}

func (m *MockExtractor) Extract(ctx context.Context, url string) (string, error) {
	args := m.Called(ctx, url)
	return args.String(0), args.Error(1)
}

type MockSummarizer struct {
	mock.Mock
}

func (m *MockSummarizer) Summarize(ctx context.Context, text string) (string, error) {
	args := m.Called(ctx, text)
	return args.String(0), args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Send(ctx context.Context, title, message, url string) error {
	args := m.Called(ctx, title, message, url)
	return args.Error(0)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(topic string, body []byte) error {
	args := m.Called(topic, body)
	return args.Error(0)
}

type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) Record(ctx context.Context, results []monitor.DeliveryResult) error {
	args := m.Called(ctx, results)
	return args.Error(0)
}

// memStore keeps the seen set in memory across Load/Save calls so that
// consecutive cycles observe each other's state.
type memStore struct {
	set   *seen.Set
	saves int
}

func newMemStore() *memStore {
	return &memStore{set: seen.NewSet()}
}

func (s *memStore) Load() *seen.Set {
	return seen.NewSet(s.set.Identities()...)
}

func (s *memStore) Save(set *seen.Set) error {
	s.set = set
	s.saves++
	return nil
}

type staticSettings struct {
	cfg settings.Settings
	err error
}

func (s *staticSettings) Get(ctx context.Context) (*settings.Settings, error) {
	if s.err != nil {
		return nil, s.err
	}
	cfg := s.cfg
	return &cfg, nil
}

func testArticle(n int) monitor.Article {
	return monitor.Article{
		URL:         fmt.Sprintf("https://news.example/a%d", n),
		Title:       fmt.Sprintf("Article %d", n),
		Description: fmt.Sprintf("Description %d", n),
		PublishedAt: time.Now().UTC().Format(time.RFC3339),
		SourceName:  "Le Monde",
	}
}

func defaultSettings() settings.Settings {
	return settings.Settings{
		MonitorQuery:   "loi duplomb",
		Language:       "fr",
		MaxItemsPerRun: 3,
		PreviewOnly:    false,
	}
}

func TestCycle_RunOnce(t *testing.T) {
	t.Run("DeliversFreshItemsAndMarksSeen", func(t *testing.T) {
		searcher := new(MockSearcher)
		extractor := new(MockExtractor)
		summarizer := new(MockSummarizer)
		notifier := new(MockNotifier)
		store := newMemStore()

		articles := []monitor.Article{testArticle(1), testArticle(2)}
		searcher.On("Search", mock.Anything, "loi duplomb", mock.Anything, mock.Anything, "fr").Return(articles, nil)
		extractor.On("Extract", mock.Anything, mock.Anything).Return("full article body", nil)
		summarizer.On("Summarize", mock.Anything, "full article body").Return("a short summary", nil)
		notifier.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

		cycle := monitor.NewCycle(monitor.CycleParams{
			Searcher:   searcher,
			Extractor:  extractor,
			Summarizer: summarizer,
			Notifier:   notifier,
			Store:      store,
			Settings:   &staticSettings{cfg: defaultSettings()},
		})

		results, err := cycle.RunOnce(context.Background())
		require.NoError(t, err)
		require.Len(t, results, 2)

		for _, r := range results {
			assert.Equal(t, monitor.StatusSent, r.Status)
			assert.Equal(t, "a short summary", r.Summary)
		}
		assert.Equal(t, 2, store.set.Len())
		assert.Equal(t, 1, store.saves)
		notifier.AssertNumberOfCalls(t, "Send", 2)
	})

	t.Run("NotificationFormat", func(t *testing.T) {
		searcher := new(MockSearcher)
		extractor := new(MockExtractor)
		summarizer := new(MockSummarizer)
		notifier := new(MockNotifier)
		store := newMemStore()

		a := testArticle(1)
		searcher.On("Search", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return([]monitor.Article{a}, nil)
		extractor.On("Extract", mock.Anything, a.URL).Return("body", nil)
		summarizer.On("Summarize", mock.Anything, "body").Return("a summary", nil)
		notifier.On("Send", mock.Anything, "Article 1 — Le Monde", "a summary\n\nPublished: "+a.PublishedAt, a.URL).Return(nil)

		cycle := monitor.NewCycle(monitor.CycleParams{
			Searcher:   searcher,
			Extractor:  extractor,
			Summarizer: summarizer,
			Notifier:   notifier,
			Store:      store,
			Settings:   &staticSettings{cfg: defaultSettings()},
		})

		_, err := cycle.RunOnce(context.Background())
		require.NoError(t, err)
		notifier.AssertExpectations(t)
	})

	t.Run("SecondRunDeliversNothing", func(t *testing.T) {
		searcher := new(MockSearcher)
		extractor := new(MockExtractor)
		summarizer := new(MockSummarizer)
		notifier := new(MockNotifier)
		store := newMemStore()

		articles := []monitor.Article{testArticle(1), testArticle(2)}
		searcher.On("Search", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(articles, nil)
		extractor.On("Extract", mock.Anything, mock.Anything).Return("body", nil)
		summarizer.On("Summarize", mock.Anything, "body").Return("summary", nil)
		notifier.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

		cycle := monitor.NewCycle(monitor.CycleParams{
			Searcher:   searcher,
			Extractor:  extractor,
			Summarizer: summarizer,
			Notifier:   notifier,
			Store:      store,
			Settings:   &staticSettings{cfg: defaultSettings()},
		})

		first, err := cycle.RunOnce(context.Background())
		require.NoError(t, err)
		require.Len(t, first, 2)

		second, err := cycle.RunOnce(context.Background())
		require.NoError(t, err)
		assert.Empty(t, second)
		notifier.AssertNumberOfCalls(t, "Send", 2)
	})

	t.Run("SkipsSeenAndHonorsMaxItems", func(t *testing.T) {
		searcher := new(MockSearcher)
		extractor := new(MockExtractor)
		summarizer := new(MockSummarizer)
		notifier := new(MockNotifier)
		store := newMemStore()
		store.set.Add(testArticle(1).Identity())
		store.set.Add(testArticle(3).Identity())

		var articles []monitor.Article
		for n := 1; n <= 5; n++ {
			articles = append(articles, testArticle(n))
		}
		searcher.On("Search", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(articles, nil)
		extractor.On("Extract", mock.Anything, mock.Anything).Return("body", nil)
		summarizer.On("Summarize", mock.Anything, "body").Return("summary", nil)
		notifier.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

		cfg := defaultSettings()
		cfg.MaxItemsPerRun = 2
		cycle := monitor.NewCycle(monitor.CycleParams{
			Searcher:   searcher,
			Extractor:  extractor,
			Summarizer: summarizer,
			Notifier:   notifier,
			Store:      store,
			Settings:   &staticSettings{cfg: cfg},
		})

		results, err := cycle.RunOnce(context.Background())
		require.NoError(t, err)
		require.Len(t, results, 2)

		// The first two unseen candidates in API order: articles 2 and 4.
		assert.Equal(t, "Article 2", results[0].Title)
		assert.Equal(t, "Article 4", results[1].Title)
		assert.Equal(t, 4, store.set.Len())
		notifier.AssertNumberOfCalls(t, "Send", 2)
	})

	t.Run("PreviewModeSkipsDeliveryButMarksSeen", func(t *testing.T) {
		searcher := new(MockSearcher)
		extractor := new(MockExtractor)
		summarizer := new(MockSummarizer)
		notifier := new(MockNotifier)
		store := newMemStore()

		searcher.On("Search", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return([]monitor.Article{testArticle(1)}, nil)
		extractor.On("Extract", mock.Anything, mock.Anything).Return("body", nil)
		summarizer.On("Summarize", mock.Anything, "body").Return("summary", nil)

		cfg := defaultSettings()
		cfg.PreviewOnly = true
		cycle := monitor.NewCycle(monitor.CycleParams{
			Searcher:   searcher,
			Extractor:  extractor,
			Summarizer: summarizer,
			Notifier:   notifier,
			Store:      store,
			Settings:   &staticSettings{cfg: cfg},
		})

		results, err := cycle.RunOnce(context.Background())
		require.NoError(t, err)
		require.Len(t, results, 1)

		assert.Equal(t, monitor.StatusPreview, results[0].Status)
		assert.Equal(t, "summary", results[0].Summary)
		assert.Equal(t, 1, store.set.Len())
		notifier.AssertNotCalled(t, "Send")
	})

	t.Run("FallsBackToDescriptionThenContent", func(t *testing.T) {
		searcher := new(MockSearcher)
		extractor := new(MockExtractor)
		summarizer := new(MockSummarizer)
		notifier := new(MockNotifier)
		store := newMemStore()

		a1 := testArticle(1) // extraction fails, description present
		a2 := testArticle(2) // extraction fails, only content present
		a2.Description = ""
		a2.Content = "content snippet [+200 chars]"
		a3 := testArticle(3) // nothing available
		a3.Description = ""
		a3.Content = ""

		searcher.On("Search", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return([]monitor.Article{a1, a2, a3}, nil)
		extractor.On("Extract", mock.Anything, mock.Anything).Return("", errors.New("fetch failed"))
		notifier.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

		cycle := monitor.NewCycle(monitor.CycleParams{
			Searcher:   searcher,
			Extractor:  extractor,
			Summarizer: summarizer,
			Notifier:   notifier,
			Store:      store,
			Settings:   &staticSettings{cfg: defaultSettings()},
		})

		results, err := cycle.RunOnce(context.Background())
		require.NoError(t, err)
		require.Len(t, results, 3)

		assert.Equal(t, "Description 1", results[0].Summary)
		assert.Equal(t, "content snippet [+200 chars]", results[1].Summary)
		assert.Equal(t, "(no summary available)", results[2].Summary)
		summarizer.AssertNotCalled(t, "Summarize")
	})

	t.Run("DeliveryFailureStillMarksSeen", func(t *testing.T) {
		searcher := new(MockSearcher)
		extractor := new(MockExtractor)
		summarizer := new(MockSummarizer)
		notifier := new(MockNotifier)
		store := newMemStore()

		searcher.On("Search", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return([]monitor.Article{testArticle(1)}, nil)
		extractor.On("Extract", mock.Anything, mock.Anything).Return("body", nil)
		summarizer.On("Summarize", mock.Anything, "body").Return("summary", nil)
		notifier.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("pushover: 429"))

		cycle := monitor.NewCycle(monitor.CycleParams{
			Searcher:   searcher,
			Extractor:  extractor,
			Summarizer: summarizer,
			Notifier:   notifier,
			Store:      store,
			Settings:   &staticSettings{cfg: defaultSettings()},
		})

		results, err := cycle.RunOnce(context.Background())
		require.NoError(t, err)
		require.Len(t, results, 1)

		assert.Equal(t, monitor.StatusFailed, results[0].Status)
		assert.Equal(t, 1, store.set.Len())
		assert.Equal(t, 1, store.saves)
	})

	t.Run("SearchErrorAbortsCycle", func(t *testing.T) {
		searcher := new(MockSearcher)
		store := newMemStore()

		searcher.On("Search", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("newsapi unavailable"))

		cycle := monitor.NewCycle(monitor.CycleParams{
			Searcher:   searcher,
			Extractor:  new(MockExtractor),
			Summarizer: new(MockSummarizer),
			Notifier:   new(MockNotifier),
			Store:      store,
			Settings:   &staticSettings{cfg: defaultSettings()},
		})

		results, err := cycle.RunOnce(context.Background())
		assert.Error(t, err)
		assert.Nil(t, results)
		assert.Equal(t, 0, store.saves)
	})

	t.Run("PublishesOneEventPerItemAndRecords", func(t *testing.T) {
		searcher := new(MockSearcher)
		extractor := new(MockExtractor)
		summarizer := new(MockSummarizer)
		notifier := new(MockNotifier)
		publisher := new(MockPublisher)
		recorder := new(MockRecorder)
		store := newMemStore()

		articles := []monitor.Article{testArticle(1), testArticle(2)}
		searcher.On("Search", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(articles, nil)
		extractor.On("Extract", mock.Anything, mock.Anything).Return("body", nil)
		summarizer.On("Summarize", mock.Anything, "body").Return("summary", nil)
		notifier.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
		publisher.On("Publish", "monitor.result", mock.Anything).Return(nil)
		recorder.On("Record", mock.Anything, mock.Anything).Return(nil)

		cycle := monitor.NewCycle(monitor.CycleParams{
			Searcher:   searcher,
			Extractor:  extractor,
			Summarizer: summarizer,
			Notifier:   notifier,
			Store:      store,
			Settings:   &staticSettings{cfg: defaultSettings()},
			Publisher:  publisher,
			Recorder:   recorder,
		})

		results, err := cycle.RunOnce(context.Background())
		require.NoError(t, err)
		require.Len(t, results, 2)

		publisher.AssertNumberOfCalls(t, "Publish", 2)
		recorder.AssertNumberOfCalls(t, "Record", 1)
	})

	t.Run("SettingsErrorFallsBackToDefaults", func(t *testing.T) {
		searcher := new(MockSearcher)
		store := newMemStore()

		searcher.On("Search", mock.Anything, "fallback query", mock.Anything, mock.Anything, "fr").Return([]monitor.Article{}, nil)

		cycle := monitor.NewCycle(monitor.CycleParams{
			Searcher:   searcher,
			Extractor:  new(MockExtractor),
			Summarizer: new(MockSummarizer),
			Notifier:   new(MockNotifier),
			Store:      store,
			Settings:   &staticSettings{err: errors.New("db down")},
			Defaults: settings.Settings{
				MonitorQuery:   "fallback query",
				Language:       "fr",
				MaxItemsPerRun: 3,
			},
		})

		results, err := cycle.RunOnce(context.Background())
		require.NoError(t, err)
		assert.Empty(t, results)
		searcher.AssertExpectations(t)
	})
}
