// Package window provides the bounded, deduplicating set of arrival
// timestamps tracked per channel. The set is kept sorted by time so that
// retention-cap eviction (drop the oldest) and fingerprinting (max element,
// cardinality) are cheap.
package window
