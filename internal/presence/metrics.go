package presence

import "github.com/prometheus/client_golang/prometheus"

var (
	presenceConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "visitor_tracker_presence_connections",
			Help: "Current number of live presence websocket connections.",
		},
	)
	presenceActors = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "visitor_tracker_presence_actors",
			Help: "Current number of resident tenant actors.",
		},
	)
	presenceDelivered = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "visitor_tracker_presence_messages_delivered_total",
			Help: "Total presence messages delivered to clients.",
		},
	)
	presenceDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "visitor_tracker_presence_messages_dropped_total",
			Help: "Total presence messages skipped because a client could not accept them.",
		},
	)
	presenceUnicastFallback = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "visitor_tracker_presence_unicast_fallback_total",
			Help: "Total invite unicasts that missed the direct registry map and fell back to the metadata scan.",
		},
	)
	presenceEvictions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "visitor_tracker_presence_evictions_total",
			Help: "Total visitor records evicted by the cleanup pass.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		presenceConnections,
		presenceActors,
		presenceDelivered,
		presenceDropped,
		presenceUnicastFallback,
		presenceEvictions,
	)
}

func incConnections() {
	presenceConnections.Inc()
}

func decConnections() {
	presenceConnections.Dec()
}

func incActors() {
	presenceActors.Inc()
}

func addDelivered(count int) {
	presenceDelivered.Add(float64(count))
}

func incDropped() {
	presenceDropped.Inc()
}

func incUnicastFallback() {
	presenceUnicastFallback.Inc()
}

func addEvictions(count int) {
	presenceEvictions.Add(float64(count))
}
