package stream

import "github.com/prometheus/client_golang/prometheus"

// Counters exported by all iterators, labelled by Opts.Kind. Register them
// with Collectors.
var (
	StreamsOpened = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "genomics",
		Subsystem: "stream",
		Name:      "calls_opened_total",
		Help:      "Streaming calls successfully opened, including reopens after a failure.",
	}, []string{"kind"})

	Retries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "genomics",
		Subsystem: "stream",
		Name:      "retries_total",
		Help:      "Failed open or receive attempts that were retried.",
	}, []string{"kind"})

	RecordsDelivered = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "genomics",
		Subsystem: "stream",
		Name:      "records_delivered_total",
		Help:      "Records handed to the caller.",
	}, []string{"kind"})

	RecordsDeduplicated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "genomics",
		Subsystem: "stream",
		Name:      "records_deduplicated_total",
		Help:      "Replayed records dropped after a resume because the caller already had them.",
	}, []string{"kind"})

	RecordsOutOfShard = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "genomics",
		Subsystem: "stream",
		Name:      "records_out_of_shard_total",
		Help:      "Records dropped by the shard boundary.",
	}, []string{"kind"})

	Exhausted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "genomics",
		Subsystem: "stream",
		Name:      "retry_budget_exhausted_total",
		Help:      "Streams abandoned because the retry budget ran out.",
	}, []string{"kind"})
)

// Collectors returns every metric of this package, for registration with a
// prometheus.Registerer.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		StreamsOpened,
		Retries,
		RecordsDelivered,
		RecordsDeduplicated,
		RecordsOutOfShard,
		Exhausted,
	}
}
