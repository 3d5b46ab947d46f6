package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RequestMetrics counts requests by method and status and observes their duration.
func RequestMetrics(instr *Instrumentation, next http.Handler) http.Handler {
	if instr == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		instr.GaugeRequests.Inc()
		defer func(begin time.Time) {
			instr.GaugeRequests.Dec()
			instr.HistRequestDuration.Observe(time.Since(begin).Seconds())
		}(time.Now())

		resp := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(resp, r)

		instr.CounterRequests.With(prometheus.Labels{
			"method": r.Method,
			"status": strconv.Itoa(resp.statusCode),
		}).Inc()
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (r *responseWriter) WriteHeader(statusCode int) {
	r.statusCode = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}
