// Package metrics defines the Prometheus collectors for media reconciliation
// runs and exposes an HTTP handler for scraping.
//
// Metrics implements reconcile.Observer, so passing it as the run's Observer is
// enough to record per-round item outcomes and per-run stop reasons. Each
// instance owns its registry; nothing is registered on the global default.
package metrics
