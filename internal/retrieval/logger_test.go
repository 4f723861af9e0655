package retrieval

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryLogger_Log(t *testing.T) {
	var buf bytes.Buffer
	l := NewQueryLogger(&buf)

	l.Log(QueryLogEntry{
		Query:      "what does the law change",
		SessionID:  "sess-1",
		NumResults: 3,
		Duration:   25 * time.Millisecond,
	})

	var entry QueryLogEntry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))

	assert.Equal(t, "what does the law change", entry.Query)
	assert.Equal(t, "sess-1", entry.SessionID)
	assert.Equal(t, 3, entry.NumResults)
	assert.Equal(t, int64(25), entry.LatencyMs)
	assert.False(t, entry.Timestamp.IsZero())
}
