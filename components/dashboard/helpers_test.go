package dashboard

import (
	"context"
	"io"
	"net"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/goliatone/go-insights/pkg/analytics"
	"github.com/goliatone/go-insights/pkg/live"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

func demoClient() *analytics.MockClient {
	return analytics.NewMockClient(analytics.MockData{
		Responses: DemoEndpointPayloads(DefaultDomainDefinitions()),
	})
}

func domainDefinition(t *testing.T, code string) DomainDefinition {
	t.Helper()
	for _, def := range DefaultDomainDefinitions() {
		if def.Code == code {
			return def
		}
	}
	t.Fatalf("domain %s not found", code)
	return DomainDefinition{}
}

func newTestController(t *testing.T, code string, client analytics.Client, configure ...func(*ControllerOptions)) *Controller {
	t.Helper()
	opts := ControllerOptions{
		Definition:        domainDefinition(t, code),
		Client:            client,
		HeartbeatInterval: -1,
	}
	for _, fn := range configure {
		fn(&opts)
	}
	ctrl, err := NewController(opts)
	if err != nil {
		t.Fatalf("NewController returned error: %v", err)
	}
	t.Cleanup(func() { _ = ctrl.Close() })
	return ctrl
}

func loadedController(t *testing.T, code string, configure ...func(*ControllerOptions)) (*Controller, *analytics.MockClient) {
	t.Helper()
	client := demoClient()
	ctrl := newTestController(t, code, client, configure...)
	if err := ctrl.Load(context.Background()); err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	return ctrl, client
}

func postCalls(client *analytics.MockClient) []analytics.Call {
	var out []analytics.Call
	for _, call := range client.Calls() {
		if call.Method == http.MethodPost {
			out = append(out, call)
		}
	}
	return out
}

type fakeConn struct {
	frames chan []byte
	closed chan struct{}
	once   sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{frames: make(chan []byte, 16), closed: make(chan struct{})}
}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case data, ok := <-f.frames:
		if !ok {
			return 0, nil, io.EOF
		}
		return websocket.TextMessage, data, nil
	case <-f.closed:
		return 0, nil, net.ErrClosed
	}
}

func (f *fakeConn) WriteMessage(int, []byte) error { return nil }

func (f *fakeConn) Close() error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeConn) push(frame string) {
	f.frames <- []byte(frame)
}

type fakeDialer struct {
	mu   sync.Mutex
	conn *fakeConn
	urls []string
}

func (d *fakeDialer) Dial(_ context.Context, url string, _ http.Header) (live.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.urls = append(d.urls, url)
	return d.conn, nil
}

func (d *fakeDialer) dialed() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.urls...)
}
