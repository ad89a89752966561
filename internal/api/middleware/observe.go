package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lyftr-ai/inbox/internal/metrics"
)

type contextKey string

const recordContextKey contextKey = "request_record"

// Record carries per-request fields that handlers fill in for the final
// request log line. The webhook handler sets the message fields; Err is set
// on unexpected failures so the detail lands in the server log only.
type Record struct {
	MessageID string
	Dup       bool
	Result    string
	Err       error
}

// GetRecord retrieves the request record from the context. It returns a
// throwaway record when called outside the observer so handlers never need
// a nil check.
func GetRecord(ctx context.Context) *Record {
	rec, ok := ctx.Value(recordContextKey).(*Record)
	if !ok {
		return &Record{}
	}
	return rec
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	if w.status == 0 {
		w.status = status
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

// Observer wraps every request: it assigns a request id, times the request,
// and on completion increments the request counters, records latency and
// emits exactly one structured log record. Panics in handlers are recovered
// into a generic 500 so the metrics and the log line are emitted regardless.
type Observer struct {
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

// NewObserver creates the observability middleware.
func NewObserver(logger zerolog.Logger, m *metrics.Metrics) *Observer {
	return &Observer{logger: logger, metrics: m}
}

// Middleware returns the http.Handler wrapper.
func (o *Observer) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.New().String()

		rec := &Record{}
		ctx := context.WithValue(r.Context(), recordContextKey, rec)

		ww := &statusWriter{ResponseWriter: w}
		ww.Header().Set("X-Request-ID", requestID)

		defer func() {
			panicked := recover()
			if panicked != nil && ww.status == 0 {
				ww.Header().Set("Content-Type", "application/json")
				ww.WriteHeader(http.StatusInternalServerError)
				ww.Write([]byte(`{"detail":"internal server error"}`))
			}

			status := ww.status
			if status == 0 {
				status = http.StatusOK
			}
			latencyMs := float64(time.Since(start).Microseconds()) / 1000.0

			o.metrics.HTTPRequestsTotal.WithLabelValues(
				r.Method, r.URL.Path, strconv.Itoa(status),
			).Inc()
			o.metrics.RequestLatency.WithLabelValues(
				r.Method, r.URL.Path,
			).Observe(latencyMs)

			evt := o.logger.Info()
			if status >= http.StatusInternalServerError {
				evt = o.logger.Error()
			}
			evt = evt.
				Str("request_id", requestID).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Float64("latency_ms", latencyMs)
			if rec.Result != "" {
				evt = evt.Str("result", rec.Result).Bool("dup", rec.Dup)
				if rec.MessageID != "" {
					evt = evt.Str("message_id", rec.MessageID)
				}
			}
			if rec.Err != nil {
				evt = evt.Err(rec.Err)
			}
			if panicked != nil {
				evt = evt.Interface("panic", panicked)
			}
			evt.Msg("request completed")
		}()

		next.ServeHTTP(ww, r.WithContext(ctx))
	})
}
