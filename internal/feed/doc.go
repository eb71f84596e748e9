// Package feed connects to the visualization host's WebSocket endpoint,
// manages the channel subscription set, and delivers (channel, receive
// timestamp) pairs to the panel.
//
// The adapter deliberately never decodes message payloads: frame fields are
// extracted with gjson path lookups, so schema content flows through
// untouched. Malformed frames are counted and dropped, never fatal.
package feed
