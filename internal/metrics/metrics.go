package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Core counters exposed on /metrics.
var (
	SessionsOpened = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sessions_opened_total",
		Help: "Number of chat sessions opened.",
	})

	SessionsClosed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sessions_closed_total",
		Help: "Number of chat sessions closed.",
	})

	MatchesConfirmed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "matches_confirmed_total",
		Help: "Number of mutual likes confirmed into sessions.",
	})

	MessagesRelayed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "messages_relayed_total",
		Help: "Number of payloads relayed between session members.",
	})

	GrantsApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "entitlement_grants_total",
		Help: "Number of entitlement grants applied, by kind.",
	}, []string{"kind"})
)
