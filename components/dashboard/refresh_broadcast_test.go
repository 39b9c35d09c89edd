package dashboard

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func TestBroadcastHookSubscribe(t *testing.T) {
	hook := NewBroadcastHook()
	ch, cancel := hook.Subscribe("")
	defer cancel()
	event := ViewEvent{SessionID: "s-1", Domain: DomainLogPatterns, Reason: "live", Version: 3}
	if err := hook.ViewUpdated(context.Background(), event); err != nil {
		t.Fatalf("ViewUpdated returned error: %v", err)
	}
	select {
	case e := <-ch:
		if e.SessionID != event.SessionID || e.Version != 3 {
			t.Fatalf("unexpected event %+v", e)
		}
	default:
		t.Fatalf("expected event to be delivered")
	}
}

func TestBroadcastHookFiltersByDomain(t *testing.T) {
	hook := NewBroadcastHook()
	ch, cancel := hook.Subscribe(DomainPerformance)
	defer cancel()

	_ = hook.ViewUpdated(context.Background(), ViewEvent{Domain: DomainLogPatterns})
	_ = hook.ViewUpdated(context.Background(), ViewEvent{Domain: DomainPerformance, Reason: "refresh"})

	select {
	case e := <-ch:
		require.Equal(t, DomainPerformance, e.Domain)
	default:
		t.Fatalf("expected performance event")
	}
	select {
	case e := <-ch:
		t.Fatalf("unexpected extra event %+v", e)
	default:
	}
}

func TestBroadcastHookCancelIsIdempotent(t *testing.T) {
	hook := NewBroadcastHook()
	ch, cancel := hook.Subscribe("")
	require.Equal(t, 1, hook.Subscribers())
	cancel()
	cancel()
	require.Equal(t, 0, hook.Subscribers())
	_, ok := <-ch
	require.False(t, ok)
}

func TestBroadcastHookDropsWhenSubscriberIsSlow(t *testing.T) {
	hook := NewBroadcastHook()
	_, cancel := hook.Subscribe("")
	defer cancel()
	for i := 0; i < broadcastBuffer*2; i++ {
		require.NoError(t, hook.ViewUpdated(context.Background(), ViewEvent{Version: uint64(i)}))
	}
}

func TestBroadcastHookServeWebSocket(t *testing.T) {
	hook := NewBroadcastHook()
	srv := httptest.NewServer(http.HandlerFunc(hook.ServeWebSocket))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?domain=" + DomainCodeQuality
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hook.Subscribers() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, hook.ViewUpdated(context.Background(), ViewEvent{SessionID: "s-9", Domain: DomainCodeQuality, Reason: "refresh"}))

	var got ViewEvent
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	require.NoError(t, conn.ReadJSON(&got))
	require.Equal(t, "s-9", got.SessionID)
	require.Equal(t, "refresh", got.Reason)
}
