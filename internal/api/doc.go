// Package api serves the JSON API and the CSV export download. It reads
// channel statistics from the panel and forwards subscription changes to the
// feed adapter.
package api
