package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type metrics struct {
	reg         *prometheus.Registry
	writes      *prometheus.CounterVec
	bulkNumbers prometheus.Counter
}

func newMetrics(reg *prometheus.Registry) *metrics {
	m := &metrics{
		reg: reg,
		writes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "numtrack",
			Name:      "writes_total",
			Help:      "Record writes by kind (put, bulk) and result (ok, error).",
		}, []string{"kind", "result"}),
		bulkNumbers: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "numtrack",
			Name:      "bulk_numbers_total",
			Help:      "Numbers touched by successful bulk updates.",
		}),
	}
	reg.MustRegister(m.writes, m.bulkNumbers)
	return m
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
