// Package metrics defines all Prometheus metrics for the product media
// service and a periodic collector for record store gauges.
//
// Metrics are registered via promauto at package init and served from a
// dedicated metrics port (see METRICS_PORT).
package metrics
