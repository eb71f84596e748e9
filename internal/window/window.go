package window

import "slices"

// DefaultCap is the retention cap applied when New is given a non-positive one.
const DefaultCap = 1000

// Set is a sorted set of distinct arrival timestamps (seconds) with a
// retention cap. Once the cap is exceeded the oldest timestamps are evicted
// so only the cap most recent remain.
//
// Set is not safe for concurrent use — the owning panel serializes access.
type Set struct {
	cap int
	ts  []float64 // sorted ascending, no duplicates
}

// New returns an empty Set with the given retention cap.
func New(cap int) *Set {
	if cap <= 0 {
		cap = DefaultCap
	}
	return &Set{cap: cap}
}

// Insert adds t to the set. Inserting a value already present is a no-op and
// reports changed=false. When the insert pushes the cardinality past the cap,
// the oldest entries are discarded and truncated=true so the caller can
// invalidate any summary derived from the previous contents.
func (s *Set) Insert(t float64) (changed, truncated bool) {
	i, found := slices.BinarySearch(s.ts, t)
	if found {
		return false, false
	}
	s.ts = slices.Insert(s.ts, i, t)
	if len(s.ts) > s.cap {
		s.ts = slices.Delete(s.ts, 0, len(s.ts)-s.cap)
		return true, true
	}
	return true, false
}

// Len returns the number of timestamps currently retained.
func (s *Set) Len() int { return len(s.ts) }

// Max returns the most recent timestamp, or 0 for an empty set.
func (s *Set) Max() float64 {
	if len(s.ts) == 0 {
		return 0
	}
	return s.ts[len(s.ts)-1]
}

// Fingerprint returns the cheap recomputation key (max timestamp,
// cardinality). Identical fingerprints are treated as identical contents.
// This is a heuristic, not an exhaustive digest: it relies on arrival
// timestamps being monotonic in practice, which is why cap-boundary
// truncation additionally triggers an explicit cache invalidation upstream.
func (s *Set) Fingerprint() (max float64, n int) {
	return s.Max(), len(s.ts)
}

// Sorted returns the retained timestamps in ascending order. The slice is a
// view into the set's storage; callers must not modify it.
func (s *Set) Sorted() []float64 { return s.ts }
