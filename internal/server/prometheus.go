// prometheus.go - Prometheus text exposition of the in-process counters
package server

import (
	"fmt"
	"io"
	"net/http"
)

type promMetric struct {
	name  string
	help  string
	kind  string
	value int64
}

// writePrometheus renders snap in the Prometheus text format.
func writePrometheus(w io.Writer, snap MetricsSnapshot, build BuildInfo) {
	fmt.Fprintf(w, "# HELP xrpals_info Application version info\n")
	fmt.Fprintf(w, "# TYPE xrpals_info gauge\n")
	fmt.Fprintf(w, "xrpals_info{version=%q,commit=%q} 1\n\n", build.Version, build.Commit)

	metrics := []promMetric{
		{"xrpals_requests_total", "Total number of HTTP requests", "counter", snap.RequestsTotal},
		{"xrpals_uploads_total", "Raw uploads written to disk", "counter", snap.UploadsTotal},
		{"xrpals_upload_bytes_total", "Bytes written as raw uploads", "counter", snap.UploadBytesTotal},
		{"xrpals_upload_errors_total", "Upload requests rejected", "counter", snap.UploadErrorsTotal},
		{"xrpals_conversions_total", "Successful conversions to the inline form", "counter", snap.ConversionsTotal},
		{"xrpals_conversion_failures_total", "Failed conversions", "counter", snap.ConversionFailures},
		{"xrpals_converted_points_total", "Point records written by conversions", "counter", snap.ConvertedPointsTotal},
		{"xrpals_mirror_failures_total", "Failed artifact mirror writes", "counter", snap.MirrorFailuresTotal},
		{"xrpals_ledger_failures_total", "Failed ledger writes", "counter", snap.LedgerFailuresTotal},
		{"xrpals_retention_removed_total", "Upload files removed by retention", "counter", snap.RetentionRemovedTotal},
	}
	for _, m := range metrics {
		fmt.Fprintf(w, "# HELP %s %s\n", m.name, m.help)
		fmt.Fprintf(w, "# TYPE %s %s\n", m.name, m.kind)
		fmt.Fprintf(w, "%s %d\n\n", m.name, m.value)
	}

	fmt.Fprintf(w, "# HELP xrpals_request_errors_total HTTP error responses by class\n")
	fmt.Fprintf(w, "# TYPE xrpals_request_errors_total counter\n")
	fmt.Fprintf(w, "xrpals_request_errors_total{class=\"4xx\"} %d\n", snap.RequestErrors4xx)
	fmt.Fprintf(w, "xrpals_request_errors_total{class=\"5xx\"} %d\n", snap.RequestErrors5xx)
}

// handleMetrics serves GET /metrics on the admin listener.
func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	writePrometheus(w, s.metrics.Snapshot(), s.cfg.Build)
}
