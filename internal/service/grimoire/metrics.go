package grimoire

import (
	"errors"
	"time"

	"github.com/Kenkkila/grimoire-site/internal/service/cypher"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	queryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grimoire_query_total",
			Help: "Graph queries by shape and outcome",
		},
		[]string{"shape", "result"},
	)

	queryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "grimoire_query_duration_seconds",
			Help:    "Store round trip time per query shape",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"shape"},
	)

	timelineCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grimoire_timeline_cache_total",
			Help: "Timeline cache lookups by result",
		},
		[]string{"result"},
	)
)

const (
	resultOK      = "ok"
	resultEmpty   = "empty"
	resultInvalid = "invalid"
	resultError   = "error"

	cacheHit  = "hit"
	cacheMiss = "miss"
)

func observeQuery(shape string, start time.Time, empty bool, err error) {
	result := resultOK
	switch {
	case errors.Is(err, cypher.ErrInvalidQueryShape):
		result = resultInvalid
	case err != nil:
		result = resultError
	case empty:
		result = resultEmpty
	}
	queryTotal.WithLabelValues(shape, result).Inc()
	if !start.IsZero() {
		queryDuration.WithLabelValues(shape).Observe(time.Since(start).Seconds())
	}
}
