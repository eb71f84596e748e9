package panel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ratewatch/ratewatch/internal/stats"
)

func newPanel(cap int) *Panel {
	return New(Options{Cap: cap})
}

func TestObserve_ChangedSignal(t *testing.T) {
	p := newPanel(10)

	assert.True(t, p.Observe("/imu", 1.0))
	assert.True(t, p.Observe("/imu", 1.5))

	// A duplicate timestamp does not change the set.
	assert.False(t, p.Observe("/imu", 1.5))

	sum, ok := p.Summary("/imu")
	require.True(t, ok)
	assert.Equal(t, 2, sum.SampleCount)
}

func TestSummary_UntrackedChannel(t *testing.T) {
	p := newPanel(10)
	_, ok := p.Summary("/nope")
	assert.False(t, ok)
}

func TestSummary_Memoized(t *testing.T) {
	p := newPanel(10)
	p.Observe("/imu", 1.0)
	p.Observe("/imu", 1.5)
	p.Observe("/imu", 2.5)

	s1, ok := p.Summary("/imu")
	require.True(t, ok)
	require.NotEmpty(t, s1.Raw)

	// Second call with no intervening writes returns the cached result: the
	// rate slices share backing storage with the first call's.
	s2, ok := p.Summary("/imu")
	require.True(t, ok)
	assert.Same(t, &s1.Raw[0], &s2.Raw[0])
	assert.Same(t, &s1.Filtered[0], &s2.Filtered[0])
}

func TestSummary_DuplicateInsertKeepsCache(t *testing.T) {
	p := newPanel(10)
	p.Observe("/imu", 1.0)
	p.Observe("/imu", 2.0)

	s1, _ := p.Summary("/imu")
	p.Observe("/imu", 2.0) // no-op, fingerprint unchanged
	s2, _ := p.Summary("/imu")

	assert.Same(t, &s1.Raw[0], &s2.Raw[0])
}

func TestSummary_RecomputedAfterNewArrival(t *testing.T) {
	p := newPanel(10)
	p.Observe("/imu", 1.0)
	p.Observe("/imu", 2.0)

	s1, _ := p.Summary("/imu")
	assert.Equal(t, 2, s1.SampleCount)

	p.Observe("/imu", 3.0)
	s2, _ := p.Summary("/imu")
	assert.Equal(t, 3, s2.SampleCount)
	assert.Len(t, s2.Raw, 2)
}

func TestSummary_Statistics(t *testing.T) {
	p := newPanel(10)
	// Deltas of 0.5s → a steady 2 Hz channel.
	for _, ts := range []float64{1, 1.5, 2, 2.5} {
		p.Observe("/scan", ts)
	}

	sum, ok := p.Summary("/scan")
	require.True(t, ok)
	assert.Equal(t, 4, sum.SampleCount)
	require.Len(t, sum.Raw, 3)
	assert.InDelta(t, 2.0, sum.Mean, 1e-9)
	assert.InDelta(t, 2.0, sum.Median, 1e-9)
	assert.InDelta(t, 2.0, sum.Min, 1e-9)
	assert.InDelta(t, 2.0, sum.Max, 1e-9)
	assert.Zero(t, sum.Outliers)
}

func TestRetentionCap_InvalidatesCache(t *testing.T) {
	p := newPanel(1000)
	for i := 0; i < 1000; i++ {
		p.Observe("/cam", float64(i))
	}

	s1, _ := p.Summary("/cam")
	assert.Equal(t, 1000, s1.SampleCount)

	// The 1001st distinct timestamp truncates to the 1000 most recent and
	// invalidates the cached summary.
	assert.True(t, p.Observe("/cam", 1000))
	s2, _ := p.Summary("/cam")
	assert.Equal(t, 1000, s2.SampleCount)
	if len(s1.Raw) > 0 && len(s2.Raw) > 0 {
		assert.NotSame(t, &s1.Raw[0], &s2.Raw[0])
	}
}

func TestTruncation_StaleFingerprintCollision(t *testing.T) {
	// Craft a truncation that leaves (max, cardinality) unchanged: without the
	// explicit invalidation the stale summary would be served.
	p := newPanel(3)
	p.Observe("/gps", 10)
	p.Observe("/gps", 20)
	p.Observe("/gps", 30)

	s1, _ := p.Summary("/gps")
	assert.InDelta(t, 0.1, s1.Mean, 1e-9) // deltas of 10s

	// Out-of-order arrival: set becomes {20, 25, 30} — same max, same size.
	p.Observe("/gps", 25)
	s2, _ := p.Summary("/gps")
	assert.InDelta(t, 0.2, s2.Mean, 1e-9) // deltas of 5s
}

func TestSummaries_SortedByName(t *testing.T) {
	p := newPanel(10)
	p.Observe("/b", 1)
	p.Observe("/a", 1)
	p.Observe("/c", 1)

	rows := p.Summaries()
	require.Len(t, rows, 3)
	assert.Equal(t, "/a", rows[0].Channel)
	assert.Equal(t, "/b", rows[1].Channel)
	assert.Equal(t, "/c", rows[2].Channel)
	assert.Equal(t, 1, rows[0].Summary.SampleCount)
}

func TestForget(t *testing.T) {
	p := newPanel(10)
	p.Observe("/imu", 1)
	p.Forget("/imu")

	_, ok := p.Summary("/imu")
	assert.False(t, ok)
	assert.Zero(t, p.ChannelCount())

	// Forgetting an unknown channel is a no-op.
	p.Forget("/nope")
}

func TestSetSigma_DropsCache(t *testing.T) {
	p := New(Options{Cap: 100, Sigma: 2.0})
	ts := 0.0
	for i := 0; i < 20; i++ {
		ts += 0.5
		p.Observe("/imu", ts)
	}
	p.Observe("/imu", ts+30) // one slow gap → outlier-ish rate

	s1, _ := p.Summary("/imu")

	p.SetSigma(5.0)
	s2, _ := p.Summary("/imu")
	if len(s1.Raw) > 0 && len(s2.Raw) > 0 {
		assert.NotSame(t, &s1.Raw[0], &s2.Raw[0])
	}
	assert.Equal(t, 5.0, p.Sigma())

	// Setting an identical sigma keeps the cache.
	s3, _ := p.Summary("/imu")
	p.SetSigma(5.0)
	s4, _ := p.Summary("/imu")
	assert.Same(t, &s3.Raw[0], &s4.Raw[0])
}

func TestSetSigma_Clamped(t *testing.T) {
	p := newPanel(10)
	p.SetSigma(99)
	assert.Equal(t, stats.MaxSigma, p.Sigma())
}

func TestCounts(t *testing.T) {
	p := newPanel(10)
	p.Observe("/a", 1)
	p.Observe("/a", 2)
	p.Observe("/b", 1)

	assert.Equal(t, 2, p.ChannelCount())
	assert.Equal(t, 3, p.MessageCount())
}
