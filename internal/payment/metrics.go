package payment

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	invoicesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paybot_invoices_total",
		Help: "Invoice attempts by result.",
	}, []string{"result"})
	catalogTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paybot_currency_catalog_total",
		Help: "Currency catalog lookups by result.",
	}, []string{"result"})
	amountsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paybot_amount_submissions_total",
		Help: "Amount submissions by outcome.",
	}, []string{"outcome"})
)
