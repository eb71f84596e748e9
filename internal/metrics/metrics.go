package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ratewatch"

// Metrics bundles every collector the service exports. Create one per process
// with New and share the pointer; a nil *Metrics is a valid no-op recorder.
type Metrics struct {
	messagesObserved *prometheus.CounterVec
	framesDropped    prometheus.Counter
	cacheHits        prometheus.Counter
	cacheMisses      prometheus.Counter
	truncations      prometheus.Counter
	channelsTracked  prometheus.Gauge
	feedReconnects   prometheus.Counter
	feedConnected    prometheus.Gauge
	wsClients        prometheus.Gauge
}

// New registers all collectors with reg and returns the bundle.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		messagesObserved: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "panel",
			Name:      "messages_observed_total",
			Help:      "Arrival timestamps accepted into a channel's window.",
		}, []string{"channel"}),
		framesDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "frames_dropped_total",
			Help:      "Feed frames discarded for a missing op, channel or timestamp.",
		}),
		cacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "panel",
			Name:      "summary_cache_hits_total",
			Help:      "Summary requests answered from the fingerprint cache.",
		}),
		cacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "panel",
			Name:      "summary_cache_misses_total",
			Help:      "Summary requests that required recomputation.",
		}),
		truncations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "panel",
			Name:      "window_truncations_total",
			Help:      "Channel windows truncated by the retention cap.",
		}),
		channelsTracked: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "panel",
			Name:      "channels_tracked",
			Help:      "Channels currently holding at least one timestamp.",
		}),
		feedReconnects: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "reconnects_total",
			Help:      "Reconnection attempts to the host feed.",
		}),
		feedConnected: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "connected",
			Help:      "1 while the host feed connection is established.",
		}),
		wsClients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ws",
			Name:      "clients",
			Help:      "Connected WebSocket UI clients.",
		}),
	}
}

// MessageObserved counts one accepted arrival for channel.
func (m *Metrics) MessageObserved(channel string) {
	if m == nil {
		return
	}
	m.messagesObserved.WithLabelValues(channel).Inc()
}

// FrameDropped counts one discarded feed frame.
func (m *Metrics) FrameDropped() {
	if m == nil {
		return
	}
	m.framesDropped.Inc()
}

// CacheHit counts one memoized summary lookup.
func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.cacheHits.Inc()
}

// CacheMiss counts one summary recomputation.
func (m *Metrics) CacheMiss() {
	if m == nil {
		return
	}
	m.cacheMisses.Inc()
}

// Truncation counts one retention-cap eviction.
func (m *Metrics) Truncation() {
	if m == nil {
		return
	}
	m.truncations.Inc()
}

// SetChannels records the current tracked-channel count.
func (m *Metrics) SetChannels(n int) {
	if m == nil {
		return
	}
	m.channelsTracked.Set(float64(n))
}

// FeedReconnect counts one feed dial attempt after a disconnect.
func (m *Metrics) FeedReconnect() {
	if m == nil {
		return
	}
	m.feedReconnects.Inc()
}

// SetFeedConnected records the feed connection state.
func (m *Metrics) SetFeedConnected(up bool) {
	if m == nil {
		return
	}
	if up {
		m.feedConnected.Set(1)
	} else {
		m.feedConnected.Set(0)
	}
}

// SetWSClients records the connected UI client count.
func (m *Metrics) SetWSClients(n int) {
	if m == nil {
		return
	}
	m.wsClients.Set(float64(n))
}
