package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const broadcastBuffer = 8

// BroadcastHook fans out view events to in-process subscribers. Slow
// subscribers miss events rather than block publishers.
type BroadcastHook struct {
	mu     sync.RWMutex
	subs   map[int]subscription
	next   int
	logger *zap.Logger
}

type subscription struct {
	domain string
	ch     chan ViewEvent
}

var _ RefreshHook = (*BroadcastHook)(nil)

// NewBroadcastHook creates a broadcast hook.
func NewBroadcastHook() *BroadcastHook {
	return &BroadcastHook{
		subs:   make(map[int]subscription),
		logger: zap.NewNop(),
	}
}

// WithLogger sets the logger used for dropped events and socket errors.
func (h *BroadcastHook) WithLogger(logger *zap.Logger) *BroadcastHook {
	if logger != nil {
		h.logger = logger
	}
	return h
}

// ViewUpdated satisfies the RefreshHook interface and broadcasts events.
func (h *BroadcastHook) ViewUpdated(_ context.Context, event ViewEvent) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.subs {
		if sub.domain != "" && sub.domain != event.Domain {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			h.logger.Debug("dropped view event",
				zap.String("domain", event.Domain),
				zap.String("session", event.SessionID),
			)
		}
	}
	return nil
}

// Subscribe returns a channel of view events for domain, or every domain when
// domain is empty, and a cancel func.
func (h *BroadcastHook) Subscribe(domain string) (<-chan ViewEvent, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.next
	h.next++
	ch := make(chan ViewEvent, broadcastBuffer)
	h.subs[id] = subscription{domain: domain, ch: ch}
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if sub, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(sub.ch)
			}
		})
	}
	return ch, cancel
}

// Subscribers reports the number of active subscriptions.
func (h *BroadcastHook) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWebSocket upgrades the request and streams view events as JSON. The
// optional "domain" query parameter narrows the stream.
func (h *BroadcastHook) ServeWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	events, cancel := h.Subscribe(r.URL.Query().Get("domain"))
	defer cancel()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-closed:
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		}
	}
}

// ServeSSE provides a Server-Sent Events endpoint for view events.
func (h *BroadcastHook) ServeSSE(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	events, cancel := h.Subscribe(r.URL.Query().Get("domain"))
	defer cancel()

	encoder := json.NewEncoder(w)
	flusher, _ := w.(http.Flusher)
	if flusher != nil {
		flusher.Flush()
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			w.Write([]byte("event: " + event.Reason + "\ndata: "))
			if err := encoder.Encode(event); err != nil {
				return
			}
			w.Write([]byte("\n"))
			if flusher != nil {
				flusher.Flush()
			}
		}
	}
}
