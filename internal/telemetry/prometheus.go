package telemetry

import "github.com/prometheus/client_golang/prometheus"

const classmeetNamespace string = "classmeet"

var (
	promRoomTotal           prometheus.Gauge
	promParticipantTotal    prometheus.Gauge
	ServiceOperationCounter *prometheus.CounterVec
)

func init() {
	promRoomTotal = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: classmeetNamespace,
		Subsystem: "room",
		Name:      "total",
	})

	promParticipantTotal = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: classmeetNamespace,
		Subsystem: "participant",
		Name:      "total",
	})

	ServiceOperationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   classmeetNamespace,
			Subsystem:   "node",
			Name:        "service_operation",
			ConstLabels: prometheus.Labels{"node_id": "1"},
		},
		[]string{"type", "status", "error_type"},
	)

	prometheus.MustRegister(promRoomTotal)
	prometheus.MustRegister(promParticipantTotal)
	prometheus.MustRegister(ServiceOperationCounter)
}

func RoomStarted() {
	promRoomTotal.Inc()
}

func RoomFinished() {
	promRoomTotal.Dec()
}

func ParticipantJoined() {
	promParticipantTotal.Inc()
}

func ParticipantLeft() {
	promParticipantTotal.Dec()
}
