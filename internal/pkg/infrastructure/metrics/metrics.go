package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace string = "gasmonitor"

var (
	MessagesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "messages_received_total",
		Help:      "Messages delivered by the broker to the ingestion pipeline.",
	})

	MessagesMalformed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "messages_malformed_total",
		Help:      "Messages dropped because the payload could not be decoded.",
	})

	ReadingsByLevel = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "readings_total",
		Help:      "Classified readings by severity level.",
	}, []string{"level"})

	FramesBroadcast = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "frames_broadcast_total",
		Help:      "Live frames handed to the subscriber registry.",
	})

	PersistSucceeded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "persist_succeeded_total",
		Help:      "Records written to the store.",
	}, []string{"record"})

	PersistFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "persist_failed_total",
		Help:      "Records that could not be written after all retries.",
	}, []string{"record"})

	PersistDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "persist_dropped_total",
		Help:      "Persistence jobs dropped because the write queue was full.",
	})

	Subscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "subscribers",
		Help:      "Currently connected live-update subscribers.",
	})

	SubscribersEvicted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "subscribers_evicted_total",
		Help:      "Subscribers disconnected because they could not keep up.",
	})

	BrokerConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "broker_connected",
		Help:      "1 while the broker connection is up.",
	})

	SensorSilent = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "sensor_silent",
		Help:      "1 while no reading has arrived within the silence timeout.",
	})
)
