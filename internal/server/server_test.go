package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/barflysocial/bar-match-relay/internal/client"
	"github.com/barflysocial/bar-match-relay/internal/config"
	"github.com/barflysocial/bar-match-relay/internal/metrics"
	"github.com/barflysocial/bar-match-relay/internal/relay"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T) (*httptest.Server, *relay.Hub) {
	t.Helper()
	cfg := config.Default()
	m := metrics.New(prometheus.NewRegistry())
	hub := relay.NewHub(relay.NewRegistry(4), relay.Options{}, discardLogger(), m)
	srv := httptest.NewServer(NewRouter(cfg, hub, m, discardLogger()))
	t.Cleanup(srv.Close)
	return srv, hub
}

func wsURL(server *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(server.URL, "http") + path
}

// eventually polls cond until it holds or the deadline passes.
func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func connect(t *testing.T, url string) (*client.Client, *client.Handler) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	c := client.NewClient(url)
	if err := c.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	h := client.NewHandler(c)
	go h.Start()
	return c, h
}

func waitCtx(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func nextStats(t *testing.T, h *client.Handler) client.RoomStats {
	t.Helper()
	select {
	case s := <-h.Stats:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("no room_stats received")
	}
	return client.RoomStats{}
}

func TestRelay_EndToEnd(t *testing.T) {
	srv, hub := newTestServer(t)

	hostConn, host := connect(t, wsURL(srv, "/ws"))
	defer hostConn.Close()

	if err := hostConn.Join(relay.RoleHost, "b1", "s1"); err != nil {
		t.Fatalf("host join: %v", err)
	}
	key, err := host.WaitJoined(waitCtx(t))
	if err != nil {
		t.Fatalf("host WaitJoined: %v", err)
	}
	if key != "b1::s1" {
		t.Errorf("key = %q, want b1::s1", key)
	}
	if s := nextStats(t, host); s != (client.RoomStats{BarID: "b1", Session: "s1", Hosts: 1, Guests: 0}) {
		t.Errorf("first stats = %+v", s)
	}

	// Guests may also connect on the root path.
	guestConn, guest := connect(t, wsURL(srv, "/"))
	defer guestConn.Close()

	if err := guestConn.Join(relay.RoleGuest, "b1", "s1"); err != nil {
		t.Fatalf("guest join: %v", err)
	}
	if key, err := guest.WaitJoined(waitCtx(t)); err != nil || key != "b1::s1" {
		t.Fatalf("guest WaitJoined = %q, %v", key, err)
	}
	if s := nextStats(t, host); s.Hosts != 1 || s.Guests != 1 {
		t.Errorf("second stats = %+v, want 1 host 1 guest", s)
	}

	if err := guestConn.Submit(json.RawMessage(`{"x":1}`)); err != nil {
		t.Fatalf("submit: %v", err)
	}
	select {
	case p := <-host.Payloads:
		if string(p) != `{"x":1}` {
			t.Errorf("payload = %s, want {\"x\":1}", p)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("host received no payload")
	}
	if err := guest.WaitAck(waitCtx(t)); err != nil {
		t.Fatalf("WaitAck: %v", err)
	}

	hostConn.Close()
	eventually(t, "host removal", func() bool {
		c, ok := hub.Registry().Stats("b1::s1")
		return ok && c == (relay.Counts{Hosts: 0, Guests: 1})
	})

	guestConn.Close()
	eventually(t, "room removal", func() bool {
		_, ok := hub.Registry().Stats("b1::s1")
		return !ok
	})
}

func TestRelay_MalformedFrameKeepsConnection(t *testing.T) {
	srv, _ := newTestServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/ws"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	for _, frame := range []string{`not json`, `{"type":"dance"}`, `{"type":"submit_payload","payload":1}`} {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
			t.Fatalf("write %q: %v", frame, err)
		}
	}
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"join","role":"guest","barId":"b","session":"s"}`)); err != nil {
		t.Fatalf("write join: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	// The first response must be the joined ack: nothing was sent for the
	// dropped frames.
	if string(data) != `{"type":"joined","key":"b::s"}` {
		t.Errorf("first frame = %s", data)
	}
}

func TestRouter_HTTPEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		path     string
		wantCode int
		wantBody string
	}{
		{"/", http.StatusOK, livenessBody},
		{"/health", http.StatusOK, "Relay server is healthy."},
		{"/metrics", http.StatusOK, "relay_connections_active"},
		{"/missing", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := http.Get(srv.URL + tt.path)
			if err != nil {
				t.Fatalf("GET %s: %v", tt.path, err)
			}
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)

			if resp.StatusCode != tt.wantCode {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantCode)
			}
			if !strings.Contains(string(body), tt.wantBody) {
				t.Errorf("body = %q, want it to contain %q", body, tt.wantBody)
			}
		})
	}
}

func TestRouter_MetricsDisabled(t *testing.T) {
	cfg := config.Default()
	cfg.Metrics.Enabled = false
	hub := relay.NewHub(relay.NewRegistry(1), relay.Options{}, discardLogger(), nil)
	srv := httptest.NewServer(NewRouter(cfg, hub, nil, discardLogger()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestCheckOrigin(t *testing.T) {
	allowAll := checkOrigin(nil)
	restricted := checkOrigin([]string{"https://bar.example.com/"})

	tests := []struct {
		origin     string
		wantAll    bool
		wantStrict bool
	}{
		{"", true, true},
		{"https://bar.example.com", true, true},
		{"HTTPS://BAR.EXAMPLE.COM", true, true},
		{"https://evil.example.com", true, false},
		{"http://bar.example.com", true, false},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/ws", nil)
		if tt.origin != "" {
			r.Header.Set("Origin", tt.origin)
		}
		if got := allowAll(r); got != tt.wantAll {
			t.Errorf("allowAll(%q) = %v, want %v", tt.origin, got, tt.wantAll)
		}
		if got := restricted(r); got != tt.wantStrict {
			t.Errorf("restricted(%q) = %v, want %v", tt.origin, got, tt.wantStrict)
		}
	}
}

func TestServer_ServeStopsOnCancel(t *testing.T) {
	cfg := config.Default()
	cfg.Server.ShutdownTimeout = time.Second
	hub := relay.NewHub(relay.NewRegistry(1), relay.Options{}, discardLogger(), nil)
	s := New(cfg, hub, nil, discardLogger())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Serve(ctx, ln) }()

	eventually(t, "server to answer", func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	})

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Serve returned %v, want nil", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
