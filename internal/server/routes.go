package server

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/barflysocial/bar-match-relay/internal/config"
	"github.com/barflysocial/bar-match-relay/internal/metrics"
	"github.com/barflysocial/bar-match-relay/internal/relay"
)

const livenessBody = "WS relay running"

// newUpgrader configures the websocket upgrader.
func newUpgrader(cfg config.ServerConfig) *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  cfg.ReadBufferSize,
		WriteBufferSize: cfg.WriteBufferSize,
		CheckOrigin:     checkOrigin(cfg.AllowedOrigins),
	}
}

// checkOrigin allows every origin when the list is empty. Otherwise the
// Origin header must match an entry exactly (scheme and host).
func checkOrigin(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[strings.TrimSuffix(strings.ToLower(o), "/")] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			// Non-browser clients do not send an Origin.
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		_, ok := set[strings.ToLower(u.Scheme+"://"+u.Host)]
		return ok
	}
}

// ServeWs returns an http.HandlerFunc that handles websocket requests.
// It takes the hub as a dependency.
func ServeWs(hub *relay.Hub, upgrader *websocket.Upgrader, cfg relay.ClientConfig, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Upgrade the HTTP connection to a WebSocket
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
			return
		}

		client := relay.NewClient(hub, conn, cfg)
		logger.Debug("connection opened", "conn", client.ID(), "remote", r.RemoteAddr)

		// The pumps own the connection from here on.
		go client.WritePump()
		go client.ReadPump()
	}
}

// healthCheckHandler answers the plaintext health probe.
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Relay server is healthy."))
}

// NewRouter wires the relay endpoints.
func NewRouter(cfg *config.Config, hub *relay.Hub, m *metrics.Metrics, logger *slog.Logger) http.Handler {
	ws := ServeWs(hub, newUpgrader(cfg.Server), relay.ClientConfig{
		SendBuffer:     cfg.Relay.SendBuffer,
		MaxMessageSize: cfg.Relay.MaxMessageSize,
	}, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", ws)
	mux.HandleFunc("/health", healthCheckHandler)
	if cfg.Metrics.Enabled {
		mux.Handle(cfg.Metrics.Path, m.Handler())
	}

	// The root path accepts relay connections as well, and otherwise answers
	// the liveness check.
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if websocket.IsWebSocketUpgrade(r) {
			ws(w, r)
			return
		}
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte(livenessBody))
	})
	return mux
}
