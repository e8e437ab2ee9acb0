package server

import (
	"net/http"
	"time"

	"github.com/matst80/slask-fordon/pkg/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "slaskfordon_requests_total",
		Help: "The total number of processed api requests",
	}, []string{"handler"})
	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "slaskfordon_request_duration_seconds",
		Help:    "Time spent answering api requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"handler"})
	resultStates = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "slaskfordon_result_state_total",
		Help: "Result states returned, failed means the repository did not answer",
	}, []string{"handler", "state"})
)

func instrument(name string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next(w, r)
		requests.WithLabelValues(name).Inc()
		requestDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	}
}

func countState(handler string, state types.ResultState) {
	resultStates.WithLabelValues(handler, string(state)).Inc()
}
