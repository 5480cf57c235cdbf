package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.RoomCreated()
	m.RoomRemoved()
	m.ConnectionOpened()
	m.ConnectionClosed()
	m.MessageReceived("join")
	m.MessageDropped("malformed")
	m.SendFailed("room_stats")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 404 {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestRoomLifecycle(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RoomCreated()
	m.RoomCreated()
	m.RoomRemoved()

	if got := testutil.ToFloat64(m.RoomsActive); got != 1 {
		t.Errorf("RoomsActive = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.RoomsCreated); got != 2 {
		t.Errorf("RoomsCreated = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.RoomsRemoved); got != 1 {
		t.Errorf("RoomsRemoved = %v, want 1", got)
	}
}

func TestLabelledCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.MessageReceived("join")
	m.MessageReceived("join")
	m.MessageDropped("unknown_role")
	m.SendFailed("payload_received")

	if got := testutil.ToFloat64(m.MessagesReceived.WithLabelValues("join")); got != 2 {
		t.Errorf("MessagesReceived{join} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.MessagesDropped.WithLabelValues("unknown_role")); got != 1 {
		t.Errorf("MessagesDropped{unknown_role} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.SendFailures.WithLabelValues("payload_received")); got != 1 {
		t.Errorf("SendFailures{payload_received} = %v, want 1", got)
	}
}

func TestHandlerExposition(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ConnectionOpened()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "relay_connections_active 1") {
		t.Errorf("exposition missing relay_connections_active:\n%s", rec.Body.String())
	}
}
