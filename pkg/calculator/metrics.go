package calculator

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	transactionsAggregated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rfm_transactions_aggregated_total",
		Help: "Transactions folded into customer metrics",
	})
	transactionsDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rfm_transactions_dropped_total",
		Help: "Anonymous transactions dropped before aggregation",
	})
	customersSegmented = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rfm_customers_segmented_total",
		Help: "Customers assigned to each segment",
	}, []string{"segment"})
	binningFallbacks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rfm_binning_fallbacks_total",
		Help: "Score axes that fell back from quantile to rank binning",
	}, []string{"axis"})
	pipelineDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name: "rfm_pipeline_duration_seconds",
		Help: "Segmentation pipeline latency distribution",
	})
)

func init() {
	prometheus.MustRegister(transactionsAggregated, transactionsDropped, customersSegmented, binningFallbacks, pipelineDuration)
}
