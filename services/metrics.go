package services

import "github.com/prometheus/client_golang/prometheus"

var (
	papersIngested = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scholarlens_papers_ingested_total",
		Help: "Papers created by the ingestion job.",
	})
	citationsRecorded = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scholarlens_citations_recorded_total",
		Help: "Citation edges stored.",
	})
	storeRejections = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scholarlens_store_rejections_total",
		Help: "Rejected store writes by error kind.",
	}, []string{"kind"})
)

func init() {
	prometheus.MustRegister(papersIngested, citationsRecorded, storeRejections)
}
