package feed

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"

	"github.com/ratewatch/ratewatch/internal/metrics"
)

// Reconnect backoff bounds.
const (
	initialBackoff = time.Second
	maxBackoff     = 30 * time.Second
)

// Frame ops exchanged with the host.
const (
	opAdvertise   = "advertise"
	opMessage     = "message"
	opSubscribe   = "subscribe"
	opUnsubscribe = "unsubscribe"
)

// Sink receives accepted arrivals. *panel.Panel satisfies it.
type Sink interface {
	Observe(channel string, ts float64) bool
}

// controlFrame is the client → host subscription envelope.
type controlFrame struct {
	Op       string   `json:"op"`
	Session  string   `json:"session"`
	Channels []string `json:"channels"`
}

// Feed is the host data feed adapter. Run drives the connection; Subscribe,
// Unsubscribe and SetChannels may be called from any goroutine.
type Feed struct {
	url     string
	sink    Sink
	metrics *metrics.Metrics
	session string

	mu         sync.Mutex
	conn       *websocket.Conn
	desired    map[string]struct{} // empty means "everything advertised"
	advertised map[string]struct{}
}

// New creates a Feed for the host at url delivering arrivals to sink.
// channels is the initial subscription set; empty subscribes to every channel
// the host advertises. m may be nil.
func New(url string, channels []string, sink Sink, m *metrics.Metrics) *Feed {
	f := &Feed{
		url:        url,
		sink:       sink,
		metrics:    m,
		session:    uuid.NewString(),
		desired:    make(map[string]struct{}),
		advertised: make(map[string]struct{}),
	}
	for _, c := range channels {
		f.desired[c] = struct{}{}
	}
	return f
}

// Run connects to the host and processes frames until ctx is cancelled,
// reconnecting with capped exponential backoff after any failure.
func (f *Feed) Run(ctx context.Context) {
	backoff := initialBackoff
	for {
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, f.url, nil)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Warn("feed: dial failed", "url", f.url, "retry_in", backoff, "err", err)
			f.metrics.FeedReconnect()
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, maxBackoff)
			continue
		}
		backoff = initialBackoff

		slog.Info("feed: connected", "url", f.url, "session", f.session)
		f.setConn(conn)
		f.metrics.SetFeedConnected(true)
		f.resubscribe()

		// Close the connection when ctx ends so the read loop unblocks.
		done := make(chan struct{})
		go func() {
			select {
			case <-ctx.Done():
				conn.Close()
			case <-done:
			}
		}()

		f.readLoop(conn)
		close(done)

		f.setConn(nil)
		f.metrics.SetFeedConnected(false)
		conn.Close()

		if ctx.Err() != nil {
			return
		}
		slog.Warn("feed: disconnected, reconnecting", "url", f.url)
		f.metrics.FeedReconnect()
	}
}

// readLoop consumes frames until the connection errors.
func (f *Feed) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		f.handleFrame(data)
	}
}

// handleFrame dispatches one host frame. Frames with an unknown op, a missing
// channel name, or a non-positive receive time are dropped.
func (f *Feed) handleFrame(data []byte) {
	switch gjson.GetBytes(data, "op").String() {
	case opMessage:
		channel := gjson.GetBytes(data, "channel").String()
		ts := gjson.GetBytes(data, "receiveTime").Float()
		if channel == "" || ts <= 0 {
			f.metrics.FrameDropped()
			return
		}
		f.sink.Observe(channel, ts)

	case opAdvertise:
		f.handleAdvertise(data)

	default:
		f.metrics.FrameDropped()
	}
}

// handleAdvertise replaces the advertised channel set and, when the desired
// set is empty ("subscribe to everything"), refreshes the subscription so
// newly advertised channels start flowing.
func (f *Feed) handleAdvertise(data []byte) {
	names := make(map[string]struct{})
	for _, ch := range gjson.GetBytes(data, "channels").Array() {
		if name := ch.Get("name").String(); name != "" {
			names[name] = struct{}{}
		}
	}

	f.mu.Lock()
	f.advertised = names
	subscribeAll := len(f.desired) == 0
	f.mu.Unlock()

	slog.Debug("feed: advertise", "channels", len(names))
	if subscribeAll {
		f.resubscribe()
	}
}

// Subscribe adds names to the subscription set and requests delivery.
func (f *Feed) Subscribe(names ...string) {
	f.mu.Lock()
	for _, n := range names {
		f.desired[n] = struct{}{}
	}
	f.mu.Unlock()
	f.send(opSubscribe, names)
}

// Unsubscribe removes names from the subscription set. When the set was
// empty (implicit subscribe-all), it is first materialized from the
// advertised channels so the removal has something to subtract from.
func (f *Feed) Unsubscribe(names ...string) {
	f.mu.Lock()
	if len(f.desired) == 0 {
		for n := range f.advertised {
			f.desired[n] = struct{}{}
		}
	}
	for _, n := range names {
		delete(f.desired, n)
	}
	f.mu.Unlock()
	f.send(opUnsubscribe, names)
}

// SetChannels replaces the subscription set (config hot reload) and sends the
// delta to the host.
func (f *Feed) SetChannels(channels []string) {
	next := make(map[string]struct{}, len(channels))
	for _, c := range channels {
		next[c] = struct{}{}
	}

	f.mu.Lock()
	prev := f.desired
	f.desired = next
	f.mu.Unlock()

	var added, removed []string
	for c := range next {
		if _, ok := prev[c]; !ok {
			added = append(added, c)
		}
	}
	for c := range prev {
		if _, ok := next[c]; !ok {
			removed = append(removed, c)
		}
	}
	if len(removed) > 0 {
		f.send(opUnsubscribe, removed)
	}
	if len(added) > 0 || len(next) == 0 {
		f.resubscribe()
	}
}

// Subscribed returns the effective subscription set, sorted: the desired
// channels, or every advertised channel when the desired set is empty.
func (f *Feed) Subscribed() []string {
	f.mu.Lock()
	src := f.desired
	if len(src) == 0 {
		src = f.advertised
	}
	out := make([]string, 0, len(src))
	for n := range src {
		out = append(out, n)
	}
	f.mu.Unlock()
	sort.Strings(out)
	return out
}

// Connected reports whether a host connection is currently established.
func (f *Feed) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.conn != nil
}

// resubscribe sends a subscribe frame for the effective subscription set.
func (f *Feed) resubscribe() {
	f.send(opSubscribe, f.Subscribed())
}

// send writes one control frame if connected; a send failure is logged and
// left for the read loop to surface as a disconnect.
func (f *Feed) send(op string, channels []string) {
	if len(channels) == 0 {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conn == nil {
		return
	}
	data, err := json.Marshal(controlFrame{Op: op, Session: f.session, Channels: channels})
	if err != nil {
		return
	}
	if err := f.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Warn("feed: control frame write failed", "op", op, "err", err)
	}
}

func (f *Feed) setConn(conn *websocket.Conn) {
	f.mu.Lock()
	f.conn = conn
	f.mu.Unlock()
}
