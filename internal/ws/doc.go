// Package ws broadcasts the current channel-summary snapshot to connected UI
// clients over WebSocket at a fixed interval.
package ws
