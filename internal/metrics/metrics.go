package metrics

import (
	"fmt"
	"net/http"

	"github.com/VictoriaMetrics/metrics"
)

var (
	// Interface metrics
	InterfacesActive  = metrics.NewGauge(`wgmesh_interfaces_active`, nil)
	InterfaceRevisions = metrics.NewCounter(`wgmesh_interface_revisions_total`)

	// Peer metrics
	PeersActive = metrics.NewGauge(`wgmesh_peers_active`, nil)

	// Apply/reconcile metrics
	ApplyTotal      = metrics.NewCounter(`wgmesh_apply_total`)
	ApplyFailures   = metrics.NewCounter(`wgmesh_apply_failures_total`)
	RollbacksTotal  = metrics.NewCounter(`wgmesh_rollbacks_total`)
	ReconcileDrifts = metrics.NewCounter(`wgmesh_reconcile_drifts_total`)

	// Lock contention
	LockWaitSeconds = metrics.NewHistogram(`wgmesh_lock_wait_seconds`)
	LockTimeouts    = metrics.NewCounter(`wgmesh_lock_timeouts_total`)

	// HTTP metrics
	HTTPRequestsTotal   = metrics.NewCounter(`wgmesh_http_requests_total`)
	HTTPRequestDuration = metrics.NewHistogram(`wgmesh_http_request_duration_seconds`)
	HTTPPanicsTotal     = metrics.NewCounter(`wgmesh_http_panics_total`)

	// Key/PSK generation
	KeypairsGenerated = metrics.NewCounter(`wgmesh_keypairs_generated_total`)
	PSKsGenerated     = metrics.NewCounter(`wgmesh_psks_generated_total`)
)

// Handler returns the metrics handler for Prometheus scraping.
func Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metrics.WritePrometheus(w, true)
	}
}

// RecordHTTPRequest records HTTP request metrics.
func RecordHTTPRequest(method, path string, statusCode int, duration float64) {
	HTTPRequestsTotal.Inc()
	HTTPRequestDuration.Update(duration)

	counter := metrics.GetOrCreateCounter(
		fmt.Sprintf(`wgmesh_http_requests_total{method=%q,path=%q,status="%d"}`,
			method, path, statusCode))
	counter.Inc()
}
