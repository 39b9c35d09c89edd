package live

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
)

// Conn is the subset of *websocket.Conn the channel needs.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Dialer opens stream connections.
type Dialer interface {
	Dial(ctx context.Context, url string, header http.Header) (Conn, error)
}

// DialerFunc adapts a function to Dialer.
type DialerFunc func(ctx context.Context, url string, header http.Header) (Conn, error)

// Dial calls f.
func (f DialerFunc) Dial(ctx context.Context, url string, header http.Header) (Conn, error) {
	return f(ctx, url, header)
}

// WebSocketDialer dials with gorilla/websocket.
type WebSocketDialer struct {
	Dialer *websocket.Dialer
}

// Dial opens a websocket connection.
func (d WebSocketDialer) Dial(ctx context.Context, url string, header http.Header) (Conn, error) {
	dialer := d.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	conn, resp, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("live: dial %s: status %d: %w", url, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("live: dial %s: %w", url, err)
	}
	return conn, nil
}
