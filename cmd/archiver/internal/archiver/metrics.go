package archiver

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsArchived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "seamap_archiver_events_total",
		Help: "Waypoint events written to the archive",
	})
	eventsSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "seamap_archiver_skipped_total",
		Help: "Waypoint events not archived, by reason",
	}, []string{"reason"})
)
