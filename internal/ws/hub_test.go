package ws_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ratewatch/ratewatch/internal/panel"
	"github.com/ratewatch/ratewatch/internal/ws"
)

func startHub(t *testing.T, p *panel.Panel, interval time.Duration) (*ws.Hub, *httptest.Server) {
	t.Helper()
	h := ws.New(p, interval, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	srv := httptest.NewServer(h)
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return h, srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) ws.Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg ws.Message
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestSnapshotOnConnect(t *testing.T) {
	p := panel.New(panel.Options{})
	for i := 0; i < 5; i++ {
		p.Observe("imu", float64(i))
	}
	// Long interval so only the connect-time snapshot arrives.
	_, srv := startHub(t, p, time.Hour)

	conn := dial(t, srv)
	msg := readMessage(t, conn)
	assert.Equal(t, "summaries", msg.Event)
	require.Len(t, msg.Data.Channels, 1)
	assert.Equal(t, "imu", msg.Data.Channels[0].Channel)
	assert.InDelta(t, 1.0, msg.Data.Channels[0].MeanHz, 1e-9)
}

func TestPeriodicBroadcast(t *testing.T) {
	p := panel.New(panel.Options{})
	p.Observe("scan", 0)
	p.Observe("scan", 0.5)
	_, srv := startHub(t, p, 20*time.Millisecond)

	conn := dial(t, srv)
	readMessage(t, conn) // connect-time snapshot

	// Feed more data and expect a later tick to reflect it.
	p.Observe("scan", 1.0)
	deadline := time.Now().Add(2 * time.Second)
	for {
		msg := readMessage(t, conn)
		require.Len(t, msg.Data.Channels, 1)
		if msg.Data.Channels[0].Messages == 3 {
			assert.InDelta(t, 2.0, msg.Data.Channels[0].MeanHz, 1e-9)
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("broadcast never reflected the new message")
		}
	}
}

func TestClientCount(t *testing.T) {
	h, srv := startHub(t, panel.New(panel.Options{}), time.Hour)

	assert.Equal(t, 0, h.Count())

	c1 := dial(t, srv)
	c2 := dial(t, srv)
	waitFor(t, func() bool { return h.Count() == 2 })

	c1.Close()
	waitFor(t, func() bool { return h.Count() == 1 })

	c2.Close()
	waitFor(t, func() bool { return h.Count() == 0 })
}

func TestShutdownClosesClients(t *testing.T) {
	p := panel.New(panel.Options{})
	h := ws.New(p, time.Hour, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	srv := httptest.NewServer(h)
	defer srv.Close()

	conn := dial(t, srv)
	readMessage(t, conn) // connect-time snapshot
	waitFor(t, func() bool { return h.Count() == 1 })

	cancel()
	waitFor(t, func() bool { return h.Count() == 0 })

	// The client sees a close frame rather than hanging.
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}

func TestBroadcastDuringClientChurn(t *testing.T) {
	// Clients connecting and dropping while the hub broadcasts continuously
	// must never race a send against a closing client channel.
	p := panel.New(panel.Options{})
	p.Observe("imu", 1)
	p.Observe("imu", 2)
	_, srv := startHub(t, p, time.Millisecond)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
				if err != nil {
					continue
				}
				if resp != nil {
					resp.Body.Close()
				}
				conn.Close()
			}
		}()
	}
	wg.Wait()
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition never met")
}
