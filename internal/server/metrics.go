package server

import (
	"sync"
)

// Metrics holds application counters
type Metrics struct {
	mu sync.RWMutex

	// Upload metrics
	uploadsTotal      int64
	uploadBytesTotal  int64
	uploadErrorsTotal int64

	// Conversion metrics
	conversionsTotal      int64
	conversionFailures    int64
	convertedPointsTotal  int64
	mirrorFailuresTotal   int64
	ledgerFailuresTotal   int64
	retentionRemovedTotal int64

	// System metrics
	requestsTotal    int64
	requestErrors5xx int64
	requestErrors4xx int64
}

// NewMetrics returns zeroed counters.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordUpload records one stored raw upload
func (m *Metrics) RecordUpload(bytes int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploadsTotal++
	m.uploadBytesTotal += bytes
}

// RecordUploadError records a rejected upload request
func (m *Metrics) RecordUploadError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploadErrorsTotal++
}

// RecordConversion records the outcome of one conversion
func (m *Metrics) RecordConversion(points int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.conversionFailures++
		return
	}
	m.conversionsTotal++
	m.convertedPointsTotal += int64(points)
}

// RecordMirrorFailure records a failed artifact mirror write
func (m *Metrics) RecordMirrorFailure() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mirrorFailuresTotal++
}

// RecordLedgerFailure records a failed ledger write
func (m *Metrics) RecordLedgerFailure() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ledgerFailuresTotal++
}

// RecordRetention records files removed by the retention sweeper
func (m *Metrics) RecordRetention(removed int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retentionRemovedTotal += int64(removed)
}

// RecordRequest records an HTTP request
func (m *Metrics) RecordRequest(statusCode int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestsTotal++

	if statusCode >= 500 {
		m.requestErrors5xx++
	} else if statusCode >= 400 {
		m.requestErrors4xx++
	}
}

// Snapshot returns a snapshot of current metrics
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return MetricsSnapshot{
		UploadsTotal:          m.uploadsTotal,
		UploadBytesTotal:      m.uploadBytesTotal,
		UploadErrorsTotal:     m.uploadErrorsTotal,
		ConversionsTotal:      m.conversionsTotal,
		ConversionFailures:    m.conversionFailures,
		ConvertedPointsTotal:  m.convertedPointsTotal,
		MirrorFailuresTotal:   m.mirrorFailuresTotal,
		LedgerFailuresTotal:   m.ledgerFailuresTotal,
		RetentionRemovedTotal: m.retentionRemovedTotal,
		RequestsTotal:         m.requestsTotal,
		RequestErrors5xx:      m.requestErrors5xx,
		RequestErrors4xx:      m.requestErrors4xx,
	}
}

// MetricsSnapshot represents a point-in-time snapshot of metrics
type MetricsSnapshot struct {
	UploadsTotal      int64 `json:"uploads_total"`
	UploadBytesTotal  int64 `json:"upload_bytes_total"`
	UploadErrorsTotal int64 `json:"upload_errors_total"`

	ConversionsTotal      int64 `json:"conversions_total"`
	ConversionFailures    int64 `json:"conversion_failures_total"`
	ConvertedPointsTotal  int64 `json:"converted_points_total"`
	MirrorFailuresTotal   int64 `json:"mirror_failures_total"`
	LedgerFailuresTotal   int64 `json:"ledger_failures_total"`
	RetentionRemovedTotal int64 `json:"retention_removed_total"`

	RequestsTotal    int64 `json:"requests_total"`
	RequestErrors5xx int64 `json:"request_errors_5xx"`
	RequestErrors4xx int64 `json:"request_errors_4xx"`
}
