package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "parley_active_sessions",
		Help: "Number of live websocket sessions",
	})

	MessagesIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parley_messages_ingested_total",
		Help: "Messages accepted by the ingestion pipeline",
	}, []string{"target"})

	IngestFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parley_ingest_failures_total",
		Help: "Messages rejected by the ingestion pipeline",
	}, []string{"reason"})

	Deliveries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "parley_deliveries_total",
		Help: "Individual message pushes to live sessions",
	})

	DeliveryDrops = promauto.NewCounter(prometheus.CounterOpts{
		Name: "parley_delivery_drops_total",
		Help: "Pushes skipped because a session's send buffer was full",
	})
)
