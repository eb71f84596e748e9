// Package metrics defines the Prometheus collectors exported on /metrics.
// All methods are nil-receiver safe so packages can run uninstrumented in
// tests without guarding every call site.
package metrics
