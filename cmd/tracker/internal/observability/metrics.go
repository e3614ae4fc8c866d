package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	WaypointsGenerated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "seamap_waypoints_generated_total",
		Help: "Waypoints derived and appended to the track",
	})
	FeedErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "seamap_feed_errors_total",
		Help: "Feed advances that failed (empty or unreadable track)",
	})
	SinkErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "seamap_sink_errors_total",
		Help: "Failed deliveries of a new waypoint, by sink",
	}, []string{"sink"})
	TrackLength = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "seamap_track_length",
		Help: "Waypoints currently held by the track store",
	})
	WSClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "seamap_ws_clients",
		Help: "Connected websocket viewers",
	})
	FeedLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "seamap_feed_latency_seconds",
		Help:    "Time to derive, store and fan out one waypoint",
		Buckets: prometheus.DefBuckets,
	})
)

func ObserveFeedLatency(start time.Time) {
	FeedLatency.Observe(time.Since(start).Seconds())
}

// NewMetricsServer serves /metrics on its own port, away from the public map.
func NewMetricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
