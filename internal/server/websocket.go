package server

import (
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"

	"github.com/gorilla/websocket"
)

// WebSocketConn is the interface for WebSocket connection operations.
type WebSocketConn interface {
	io.Closer
	WriteJSON(v interface{}) error
	ReadJSON(v interface{}) error
}

var upgrader = websocket.Upgrader{
	CheckOrigin: originAllowed,
}

// originAllowed is the upgrade policy: the panel runs on the local machine
// or a trusted LAN, so same-origin, loopback and private-range origins are
// accepted and everything else is refused.
func originAllowed(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		// Non-browser clients and same-origin requests omit the header.
		return true
	}

	u, err := url.Parse(origin)
	if err != nil {
		slog.Warn("rejecting WebSocket origin", "origin", origin, "error", err)
		return false
	}

	host := u.Hostname()
	if host == requestHost(r) || isLocalNetworkHost(host) {
		return true
	}

	slog.Warn("rejecting WebSocket origin", "origin", origin, "host", host)
	return false
}

// requestHost returns the host the request was addressed to, without a port.
func requestHost(r *http.Request) string {
	if h, _, err := net.SplitHostPort(r.Host); err == nil {
		return h
	}
	return r.Host
}

// isLocalNetworkHost reports whether host names the local machine or a
// private network address.
func isLocalNetworkHost(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && (ip.IsLoopback() || ip.IsPrivate())
}

// Upgrade upgrades an HTTP connection to WebSocket.
func Upgrade(w http.ResponseWriter, r *http.Request) (*websocket.Conn, error) {
	return upgrader.Upgrade(w, r, nil)
}
