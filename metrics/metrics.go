package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// FramesTotal stream frames received
	FramesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "vpa_frames_total", Help: "Stream frames received from the venue"},
	)
	// TradesTotal trades ingested per market
	TradesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "vpa_trades_total", Help: "Trades ingested"},
		[]string{"market"},
	)
	// ReconnectsTotal reconnects triggered by silence
	ReconnectsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "vpa_reconnects_total", Help: "Stream reconnects after silence"},
	)
	// MalformedFramesTotal frames dropped for a missing field
	MalformedFramesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "vpa_malformed_frames_total", Help: "Stream frames dropped as malformed"},
	)
	// BucketsTotal minute buckets written, op is insert or update
	BucketsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "vpa_buckets_total", Help: "Minute buckets written"},
		[]string{"op"},
	)
	// StoreErrorsTotal store operations failed
	StoreErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "vpa_store_errors_total", Help: "Store operations failed"},
		[]string{"op"},
	)
	// DecisionsTotal strategy decisions emitted
	DecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "vpa_decisions_total", Help: "Strategy decisions emitted"},
		[]string{"strategy", "action"},
	)
	// RequestsTotal read api requests, route is the matched pattern
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "vpa_requests_total", Help: "Read api requests served"},
		[]string{"route", "status"},
	)
)

func init() {
	prometheus.MustRegister(
		FramesTotal,
		TradesTotal,
		ReconnectsTotal,
		MalformedFramesTotal,
		BucketsTotal,
		StoreErrorsTotal,
		DecisionsTotal,
		RequestsTotal,
	)
}

// Handler metrics exposition handler
func Handler() http.Handler {
	return promhttp.Handler()
}
