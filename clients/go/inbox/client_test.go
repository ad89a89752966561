package inbox

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lyftr-ai/inbox/internal/api"
	"github.com/lyftr-ai/inbox/internal/metrics"
	"github.com/lyftr-ai/inbox/internal/store"
)

const testSecret = "testsecret"

func newTestClient(t *testing.T) *Client {
	t.Helper()

	st, err := store.NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "inbox.db"))
	require.NoError(t, err)
	t.Cleanup(st.Close)

	srv := httptest.NewServer(api.NewRouter(zerolog.Nop(), metrics.New(), st, testSecret))
	t.Cleanup(srv.Close)

	return NewClient(srv.URL, testSecret)
}

func TestClientRoundTrip(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	msg := Message{
		MessageID: "m1",
		From:      "+919876543210",
		To:        "+14155550100",
		TS:        "2025-01-15T10:00:00Z",
		Text:      "Hello",
	}
	require.NoError(t, c.SendMessage(ctx, msg))

	// Retries are idempotent.
	require.NoError(t, c.SendMessage(ctx, msg))

	list, err := c.ListMessages(ctx, ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, list.Total)
	require.Len(t, list.Data, 1)
	assert.Equal(t, msg, list.Data[0])

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalMessages)
	require.Len(t, stats.MessagesPerSender, 1)
	assert.Equal(t, msg.From, stats.MessagesPerSender[0].From)
}

func TestClientWrongSecret(t *testing.T) {
	c := newTestClient(t)
	c.Secret = "wrong"

	err := c.SendMessage(context.Background(), Message{
		MessageID: "m1",
		From:      "+111",
		To:        "+222",
		TS:        "2025-01-15T10:00:00Z",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestClientListOptions(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	for _, msg := range []Message{
		{MessageID: "a", From: "+111", To: "+999", TS: "2025-01-10T00:00:00Z", Text: "alpha"},
		{MessageID: "b", From: "+222", To: "+999", TS: "2025-01-11T00:00:00Z", Text: "beta"},
	} {
		require.NoError(t, c.SendMessage(ctx, msg))
	}

	list, err := c.ListMessages(ctx, ListOptions{From: "+222"})
	require.NoError(t, err)
	assert.Equal(t, 1, list.Total)
	require.Len(t, list.Data, 1)
	assert.Equal(t, "b", list.Data[0].MessageID)

	list, err = c.ListMessages(ctx, ListOptions{Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, list.Total)
	require.Len(t, list.Data, 1)
	assert.Equal(t, "b", list.Data[0].MessageID)
}
