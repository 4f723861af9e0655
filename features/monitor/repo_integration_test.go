package monitor_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"newswatch/features/monitor"
	poll "newswatch/internal/monitor"
	"newswatch/internal/testutils"
)

func TestPostgresRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	suite := testutils.NewIntegrationSuite(t)
	suite.Setup()
	defer suite.Teardown()

	repo := monitor.NewPostgresRepo(suite.DB)
	ctx := context.Background()

	results := []poll.DeliveryResult{
		{Title: "Premier article", Source: "Le Monde", PublishedAt: "2026-08-30T10:00:00Z", URL: "https://a", Status: poll.StatusSent, Summary: "résumé 1"},
		{Title: "Deuxième article", Source: "AFP", PublishedAt: "2026-08-30T11:00:00Z", URL: "https://b", Status: poll.StatusPreview, Summary: "résumé 2"},
	}
	require.NoError(t, repo.Record(ctx, results))

	deliveries, err := repo.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, deliveries, 2)

	titles := []string{deliveries[0].Title, deliveries[1].Title}
	assert.Contains(t, titles, "Premier article")
	assert.Contains(t, titles, "Deuxième article")
	for _, d := range deliveries {
		assert.NotEmpty(t, d.ID)
		assert.False(t, d.CreatedAt.IsZero())
	}

	limited, err := repo.ListRecent(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}
