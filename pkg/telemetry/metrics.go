package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MessagesSent counts messages durably appended to a conversation log.
	MessagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sealchat_messages_sent_total",
		Help: "Messages appended to conversation logs.",
	})

	// MessagesSeen counts seen-status transitions applied to the log.
	MessagesSeen = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sealchat_messages_seen_total",
		Help: "Messages transitioned to seen.",
	})

	// ReactionToggles counts reaction toggle mutations.
	ReactionToggles = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sealchat_reaction_toggles_total",
		Help: "Reaction toggles applied to messages.",
	})

	// MutationMisses counts log mutations that could not locate their
	// target message.
	MutationMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sealchat_mutation_misses_total",
		Help: "Log mutations whose target message was not found.",
	})

	// EventsPublished counts fan-out publishes by wire event name.
	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sealchat_events_published_total",
		Help: "Real-time events published, by event name.",
	}, []string{"event"})

	// DecryptFailures counts authentication failures on decrypt.
	DecryptFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sealchat_decrypt_failures_total",
		Help: "Messages whose authentication tag failed to verify.",
	})

	// MutationDuration observes the latency of the read-locate-remove-
	// reinsert protocol.
	MutationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sealchat_mutation_duration_seconds",
		Help:    "Latency of log mutations.",
		Buckets: prometheus.DefBuckets,
	})
)
