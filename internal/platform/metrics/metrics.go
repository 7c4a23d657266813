// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package metrics exposes Prometheus counters for the keychain lifecycle and
// the HTTP surface.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Verification results.
const (
	ResultOK          = "ok"
	ResultNotFound    = "not_found"
	ResultExpired     = "expired"
	ResultIntegrity   = "integrity_violation"
	ResultForbidden   = "forbidden"
	ResultUnavailable = "error"
)

// Expiry reasons.
const (
	ReasonClosed     = "closed"
	ReasonLazy       = "lazy"
	ReasonSuperseded = "superseded"
)

// KeychainRecorder is the slice of [Collector] used by the keychain manager.
type KeychainRecorder interface {
	RecordIssued()
	RecordVerification(result string)
	RecordExpired(reason string, count int)
}

// Collector holds every registered collector.
type Collector struct {
	issued        prometheus.Counter
	verifications *prometheus.CounterVec
	expired       *prometheus.CounterVec
	httpRequests  *prometheus.CounterVec
}

// NewCollector creates a Collector and registers it with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	collector := &Collector{
		issued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kreativeid_keychains_issued_total",
			Help: "Keychains minted and persisted.",
		}),
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kreativeid_keychain_verifications_total",
			Help: "Keychain verifications by outcome.",
		}, []string{"result"}),
		expired: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kreativeid_keychains_expired_total",
			Help: "Keychains flipped to expired, by reason.",
		}, []string{"reason"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kreativeid_http_requests_total",
			Help: "HTTP responses by status code.",
		}, []string{"status"}),
	}

	reg.MustRegister(
		collector.issued,
		collector.verifications,
		collector.expired,
		collector.httpRequests,
	)

	return collector
}

// RecordIssued counts one minted keychain.
func (c *Collector) RecordIssued() {
	c.issued.Inc()
}

// RecordVerification counts one verification outcome.
func (c *Collector) RecordVerification(result string) {
	c.verifications.WithLabelValues(result).Inc()
}

// RecordExpired counts keychains flipped to expired.
func (c *Collector) RecordExpired(reason string, count int) {
	if count <= 0 {
		return
	}
	c.expired.WithLabelValues(reason).Add(float64(count))
}

// RecordHTTPStatus counts one HTTP response.
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpRequests.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler returns the scrape endpoint for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Discard is a [KeychainRecorder] that records nothing.
type Discard struct{}

func (Discard) RecordIssued()             {}
func (Discard) RecordVerification(string) {}
func (Discard) RecordExpired(string, int) {}
