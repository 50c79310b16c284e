package server

import (
	"net/http"
	"strconv"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/savaki/nutricoach-relay/pkg/handler"
	"github.com/savaki/nutricoach-relay/pkg/metrics"
)

// Logger writes one line per request. Webhook deliveries log at info with body
// sizes and whether a signature was presented; health and metrics scrapes log
// at debug. Server errors always log at error.
func Logger(logger zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			route := routePath(r.URL.Path)
			status := statusOf(ww)

			var ev *zerolog.Event
			switch {
			case status >= http.StatusInternalServerError:
				ev = logger.Error()
			case route == WebhookPath:
				ev = logger.Info()
			default:
				ev = logger.Debug()
			}

			ev.Str("route", route).
				Str("method", r.Method).
				Int("status", status).
				Int64("bytes_in", r.ContentLength).
				Int("bytes_out", ww.BytesWritten()).
				Bool("signed", r.Header.Get(handler.SignatureHeader) != "").
				Str("remote_ip", r.RemoteAddr).
				Int64("duration_ms", time.Since(start).Milliseconds()).
				Str("request_id", chimw.GetReqID(r.Context())).
				Msg("http request")
		})
	}
}

// Metrics records request counts and latency per route
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		path := routePath(r.URL.Path)
		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(statusOf(ww))).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// statusOf reports 200 for handlers that never wrote a header
func statusOf(ww chimw.WrapResponseWriter) int {
	if s := ww.Status(); s != 0 {
		return s
	}
	return http.StatusOK
}

// routePath folds unknown paths into one label to bound metric cardinality
func routePath(path string) string {
	switch path {
	case WebhookPath, HealthPath, MetricsPath:
		return path
	default:
		return "other"
	}
}
