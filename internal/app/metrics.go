package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	depositsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rpay_deposits_created_total",
		Help: "Number of QRIS deposits created",
	})

	depositSettlements = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rpay_deposit_settlements_total",
			Help: "Number of deposits credited, by the path that settled them",
		},
		[]string{"source"},
	)

	creditedAmount = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rpay_credited_amount_total",
		Help: "Sum of net amounts credited to user balances",
	})

	upstreamFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rpay_upstream_failures_total",
			Help: "Number of failed calls to the payment processor",
		},
		[]string{"op"},
	)

	webhooksReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rpay_webhooks_received_total",
			Help: "Number of inbound webhook calls by outcome",
		},
		[]string{"outcome"},
	)

	depositsExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rpay_deposits_expired_total",
		Help: "Number of pending deposits moved to expired",
	})

	withdrawalsRequested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rpay_withdrawals_requested_total",
		Help: "Number of withdrawal requests accepted",
	})
)
