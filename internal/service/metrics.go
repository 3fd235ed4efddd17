package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Session event labels.
const (
	sessionIssued   = "issued"
	sessionRenewed  = "renewed"
	sessionRejected = "rejected"
	sessionRevoked  = "revoked"
)

var sessionEvents = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "social_session_events_total",
	Help: "Session lifecycle events by outcome.",
}, []string{"event"})
