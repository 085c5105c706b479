// Package metrics collects per-run Prometheus counters and can export them in
// the node_exporter textfile format.
package metrics
