package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	deliveryModeDirect = "direct"
	deliveryModeGroup  = "group"
)

var (
	deliveryCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mailroute",
		Name:      "deliveries_total",
		Help:      "Delivery attempts by mode and result.",
	}, []string{"mode", "result"})

	fanoutFailureCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "mailroute",
		Name:      "fanout_member_failures_total",
		Help:      "Group members whose mailbox could not be written during fan-out.",
	})

	ledgerFailureCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "mailroute",
		Name:      "ledger_failures_total",
		Help:      "Route records which could not be written.",
	})

	clipWarningCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mailroute",
		Name:      "clip_validation_warnings_total",
		Help:      "Clips adapted with missing required fields.",
	}, []string{"platform"})
)
