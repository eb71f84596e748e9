package panel

import (
	"sort"
	"sync"

	"github.com/ratewatch/ratewatch/internal/metrics"
	"github.com/ratewatch/ratewatch/internal/stats"
	"github.com/ratewatch/ratewatch/internal/window"
)

// ChannelSummary pairs a channel name with its current statistics.
type ChannelSummary struct {
	Channel string
	Summary stats.Summary
}

// Options configures a Panel. Zero values select the defaults.
type Options struct {
	// Cap is the per-channel timestamp retention cap (default window.DefaultCap).
	Cap int

	// Sigma is the outlier threshold multiplier (default stats.DefaultSigma,
	// clamped to [stats.MinSigma, stats.MaxSigma]).
	Sigma float64

	// Metrics receives instrumentation events; nil disables instrumentation.
	Metrics *metrics.Metrics
}

// Panel tracks arrival timestamps per channel and serves memoized frequency
// summaries. All exported methods are safe for concurrent use: the feed
// goroutine writes while the API, hub and exporter read.
type Panel struct {
	mu      sync.Mutex
	cap     int
	sigma   float64
	windows map[string]*window.Set
	cache   map[string]cacheEntry
	metrics *metrics.Metrics
}

// cacheEntry is one memoized summary together with the window fingerprint it
// was computed under.
type cacheEntry struct {
	max     float64
	n       int
	summary stats.Summary
}

// New creates an empty Panel.
func New(opts Options) *Panel {
	if opts.Cap <= 0 {
		opts.Cap = window.DefaultCap
	}
	return &Panel{
		cap:     opts.Cap,
		sigma:   stats.ClampSigma(opts.Sigma),
		windows: make(map[string]*window.Set),
		cache:   make(map[string]cacheEntry),
		metrics: opts.Metrics,
	}
}

// Observe records one arrival timestamp for channel, creating the channel's
// window on first sight. It reports whether the window actually changed —
// inserting a timestamp that is already present is a no-op and callers use
// the false return to skip downstream recomputation and re-renders.
//
// When the insert exceeds the retention cap the oldest timestamps are
// discarded and the channel's cached summary is explicitly invalidated: the
// fingerprint alone is not trusted here because the surviving max timestamp
// can coincide with the pre-truncation one at cap boundaries.
func (p *Panel) Observe(channel string, ts float64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	w, ok := p.windows[channel]
	if !ok {
		w = window.New(p.cap)
		p.windows[channel] = w
		p.metrics.SetChannels(len(p.windows))
	}

	changed, truncated := w.Insert(ts)
	if truncated {
		delete(p.cache, channel)
		p.metrics.Truncation()
	}
	if changed {
		p.metrics.MessageObserved(channel)
	}
	return changed
}

// Summary returns the memoized statistics for channel. The second return is
// false when the channel is not tracked. When the channel's window
// fingerprint matches the cached one, the cached Summary is returned as-is;
// otherwise the engine pipeline (rates, outlier filter, summarize) runs and
// its result is stored under the new fingerprint.
func (p *Panel) Summary(channel string) (stats.Summary, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	w, ok := p.windows[channel]
	if !ok {
		return stats.Summary{}, false
	}
	return p.summaryLocked(channel, w), true
}

// Summaries returns a name-sorted snapshot of every tracked channel, using
// the same memoized path as Summary.
func (p *Panel) Summaries() []ChannelSummary {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]ChannelSummary, 0, len(p.windows))
	for name, w := range p.windows {
		out = append(out, ChannelSummary{Channel: name, Summary: p.summaryLocked(name, w)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Channel < out[j].Channel })
	return out
}

func (p *Panel) summaryLocked(channel string, w *window.Set) stats.Summary {
	max, n := w.Fingerprint()
	if e, ok := p.cache[channel]; ok && e.max == max && e.n == n {
		p.metrics.CacheHit()
		return e.summary
	}

	raw := stats.ComputeRates(w.Sorted())
	filtered, _ := stats.FilterOutliers(raw, p.sigma)
	sum := stats.Summarize(raw, filtered)
	sum.SampleCount = w.Len()

	p.cache[channel] = cacheEntry{max: max, n: n, summary: sum}
	p.metrics.CacheMiss()
	return sum
}

// Forget drops a channel's window and cached summary, typically after the
// channel is unsubscribed.
func (p *Panel) Forget(channel string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.windows[channel]; !ok {
		return
	}
	delete(p.windows, channel)
	delete(p.cache, channel)
	p.metrics.SetChannels(len(p.windows))
}

// SetSigma applies a new outlier threshold (clamped to the valid range) and
// drops all cached summaries, since they were computed under the old one.
func (p *Panel) SetSigma(sigma float64) {
	sigma = stats.ClampSigma(sigma)
	p.mu.Lock()
	defer p.mu.Unlock()
	if sigma == p.sigma {
		return
	}
	p.sigma = sigma
	clear(p.cache)
}

// Sigma returns the active outlier threshold multiplier.
func (p *Panel) Sigma() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sigma
}

// ChannelCount returns the number of tracked channels.
func (p *Panel) ChannelCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.windows)
}

// MessageCount returns the total number of retained timestamps across all
// channels.
func (p *Panel) MessageCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	var total int
	for _, w := range p.windows {
		total += w.Len()
	}
	return total
}
