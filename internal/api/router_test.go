package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lyftr-ai/inbox/internal/metrics"
	"github.com/lyftr-ai/inbox/internal/signature"
	"github.com/lyftr-ai/inbox/internal/store"
)

const testSecret = "testsecret"

type testServer struct {
	router  http.Handler
	metrics *metrics.Metrics
	store   store.MessageStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	st, err := store.NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "inbox.db"))
	require.NoError(t, err)
	t.Cleanup(st.Close)

	m := metrics.New()
	router := NewRouter(zerolog.Nop(), m, st, testSecret)
	return &testServer{router: router, metrics: m, store: st}
}

func (ts *testServer) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func signedWebhookRequest(body []byte) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Signature", signature.Compute(testSecret, body))
	return req
}

func webhookBody(id, from, ts, text string) []byte {
	body, _ := json.Marshal(map[string]string{
		"message_id": id,
		"from":       from,
		"to":         "+14155550100",
		"ts":         ts,
		"text":       text,
	})
	return body
}

func decodeJSON(t *testing.T, r io.Reader, out interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(r).Decode(out))
}

func TestWebhookCreatedThenDuplicate(t *testing.T) {
	ts := newTestServer(t)
	body := webhookBody("m1", "+919876543210", "2025-01-15T10:00:00Z", "Hello")

	rec := ts.do(t, signedWebhookRequest(body))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	// Byte-identical retry: same status, same body, still one stored row.
	rec = ts.do(t, signedWebhookRequest(body))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	assert.Equal(t, 1.0, testutil.ToFloat64(ts.metrics.WebhookRequestsTotal.WithLabelValues("created")))
	assert.Equal(t, 1.0, testutil.ToFloat64(ts.metrics.WebhookRequestsTotal.WithLabelValues("duplicate")))

	_, total, err := ts.store.List(context.Background(), store.ListFilter{}, 50, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestWebhookInvalidSignature(t *testing.T) {
	ts := newTestServer(t)
	body := webhookBody("m1", "+919876543210", "2025-01-15T10:00:00Z", "Hello")

	missing := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(body))
	rec := ts.do(t, missing)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	wrong := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(body))
	wrong.Header.Set("X-Signature", signature.Compute("wrongsecret", body))
	rec = ts.do(t, wrong)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	assert.Equal(t, 2.0, testutil.ToFloat64(ts.metrics.WebhookRequestsTotal.WithLabelValues("invalid_signature")))

	// Nothing persisted.
	_, total, err := ts.store.List(context.Background(), store.ListFilter{}, 50, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, total)
}

func TestWebhookValidationError(t *testing.T) {
	ts := newTestServer(t)
	body := webhookBody("m1", "12345", "2025-01-15T10:00:00Z", "Hello")

	rec := ts.do(t, signedWebhookRequest(body))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp struct {
		Detail []struct {
			Field  string `json:"field"`
			Reason string `json:"reason"`
		} `json:"detail"`
	}
	decodeJSON(t, rec.Body, &resp)
	require.Len(t, resp.Detail, 1)
	assert.Equal(t, "from", resp.Detail[0].Field)

	_, total, err := ts.store.List(context.Background(), store.ListFilter{}, 50, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, total, "invalid payloads are never persisted")
}

func TestWebhookMalformedJSON(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, signedWebhookRequest([]byte("{not json")))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestWebhookConcurrentDuplicates(t *testing.T) {
	ts := newTestServer(t)
	body := webhookBody("race", "+15550001111", "2025-01-15T10:00:00Z", "retry storm")

	const n = 10
	codes := make([]int, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec := httptest.NewRecorder()
			ts.router.ServeHTTP(rec, signedWebhookRequest(body))
			codes[i] = rec.Code
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		assert.Equal(t, http.StatusOK, codes[i])
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(ts.metrics.WebhookRequestsTotal.WithLabelValues("created")))
	assert.Equal(t, float64(n-1), testutil.ToFloat64(ts.metrics.WebhookRequestsTotal.WithLabelValues("duplicate")))

	_, total, err := ts.store.List(context.Background(), store.ListFilter{}, 50, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func seedMessages(t *testing.T, ts *testServer) {
	t.Helper()
	seeds := []struct{ id, from, tstamp, text string }{
		{"a", "+111", "2025-01-10T00:00:00Z", "Alpha Report"},
		{"b", "+222", "2025-01-12T00:00:00Z", "beta report"},
		{"c", "+111", "2025-01-12T00:00:00Z", "gamma notes"},
	}
	for _, s := range seeds {
		rec := ts.do(t, signedWebhookRequest(webhookBody(s.id, s.from, s.tstamp, s.text)))
		require.Equal(t, http.StatusOK, rec.Code)
	}
}

type listResponse struct {
	Data []struct {
		MessageID string `json:"message_id"`
		From      string `json:"from"`
		Text      string `json:"text"`
	} `json:"data"`
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

func TestListMessages(t *testing.T) {
	ts := newTestServer(t)
	seedMessages(t, ts)

	rec := ts.do(t, httptest.NewRequest(http.MethodGet, "/messages", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp listResponse
	decodeJSON(t, rec.Body, &resp)
	assert.Equal(t, 3, resp.Total)
	assert.Equal(t, 50, resp.Limit)
	assert.Equal(t, 0, resp.Offset)
	require.Len(t, resp.Data, 3)
	// ts ascending, message_id tiebreak for b and c at the same ts.
	assert.Equal(t, "a", resp.Data[0].MessageID)
	assert.Equal(t, "b", resp.Data[1].MessageID)
	assert.Equal(t, "c", resp.Data[2].MessageID)
}

func TestListMessagesPagination(t *testing.T) {
	ts := newTestServer(t)
	seedMessages(t, ts)

	rec := ts.do(t, httptest.NewRequest(http.MethodGet, "/messages?limit=1&offset=1", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp listResponse
	decodeJSON(t, rec.Body, &resp)
	assert.Equal(t, 3, resp.Total, "total ignores pagination")
	assert.Equal(t, 1, resp.Limit)
	assert.Equal(t, 1, resp.Offset)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "b", resp.Data[0].MessageID)
}

func TestListMessagesFilters(t *testing.T) {
	ts := newTestServer(t)
	seedMessages(t, ts)

	rec := ts.do(t, httptest.NewRequest(http.MethodGet, "/messages?from=%2B111", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var resp listResponse
	decodeJSON(t, rec.Body, &resp)
	assert.Equal(t, 2, resp.Total)
	for _, m := range resp.Data {
		assert.Equal(t, "+111", m.From)
	}

	rec = ts.do(t, httptest.NewRequest(http.MethodGet, "/messages?q=FOO", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	decodeJSON(t, rec.Body, &resp)
	assert.Equal(t, 0, resp.Total)

	rec = ts.do(t, httptest.NewRequest(http.MethodGet, "/messages?q=REPORT", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	decodeJSON(t, rec.Body, &resp)
	assert.Equal(t, 2, resp.Total)

	rec = ts.do(t, httptest.NewRequest(http.MethodGet, "/messages?since=2025-01-12T00:00:00Z", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	decodeJSON(t, rec.Body, &resp)
	assert.Equal(t, 2, resp.Total, "since is inclusive")
}

func TestListMessagesRejectsBadParams(t *testing.T) {
	ts := newTestServer(t)

	for _, query := range []string{
		"limit=abc",
		"limit=0",
		"limit=101",
		"offset=-1",
		"offset=abc",
		"since=not-a-time",
	} {
		rec := ts.do(t, httptest.NewRequest(http.MethodGet, "/messages?"+query, nil))
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, "query %q", query)
	}
}

func TestStatsEmpty(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, httptest.NewRequest(http.MethodGet, "/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"total_messages": 0,
		"senders_count": 0,
		"messages_per_sender": [],
		"first_message_ts": null,
		"last_message_ts": null
	}`, rec.Body.String())
}

func TestStats(t *testing.T) {
	ts := newTestServer(t)
	seedMessages(t, ts)

	rec := ts.do(t, httptest.NewRequest(http.MethodGet, "/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		TotalMessages     int64 `json:"total_messages"`
		SendersCount      int64 `json:"senders_count"`
		MessagesPerSender []struct {
			From  string `json:"from"`
			Count int64  `json:"count"`
		} `json:"messages_per_sender"`
		FirstMessageTS *string `json:"first_message_ts"`
		LastMessageTS  *string `json:"last_message_ts"`
	}
	decodeJSON(t, rec.Body, &resp)
	assert.Equal(t, int64(3), resp.TotalMessages)
	assert.Equal(t, int64(2), resp.SendersCount)
	require.Len(t, resp.MessagesPerSender, 2)
	assert.Equal(t, "+111", resp.MessagesPerSender[0].From)
	assert.Equal(t, int64(2), resp.MessagesPerSender[0].Count)
	require.NotNil(t, resp.FirstMessageTS)
	assert.Equal(t, "2025-01-10T00:00:00Z", *resp.FirstMessageTS)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = ts.do(t, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ready"}`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)

	// Generate some traffic first.
	ts.do(t, signedWebhookRequest(webhookBody("m1", "+111", "2025-01-15T10:00:00Z", "hi")))
	ts.do(t, httptest.NewRequest(http.MethodGet, "/messages", nil))

	rec := ts.do(t, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	exposition := rec.Body.String()
	assert.Contains(t, exposition, "http_requests_total")
	assert.Contains(t, exposition, "webhook_requests_total")
	assert.Contains(t, exposition, "request_latency_ms")
	assert.Contains(t, exposition, fmt.Sprintf(`result=%q`, "created"))
}

func TestRequestIDHeader(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	first := rec.Header().Get("X-Request-ID")
	assert.NotEmpty(t, first)

	rec = ts.do(t, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.NotEqual(t, first, rec.Header().Get("X-Request-ID"), "request ids are unique per request")
}
