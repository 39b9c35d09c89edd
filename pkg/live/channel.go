package live

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// Status is the connection state of a channel.
type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusLive         Status = "live"
	StatusReconnecting Status = "reconnecting"
)

const (
	DefaultReconnectDelay    = 5 * time.Second
	DefaultHeartbeatInterval = 30 * time.Second
	DefaultDedupSize         = 512
)

var (
	ErrMissingURL       = errors.New("live: stream url required")
	ErrMissingHandler   = errors.New("live: message handler required")
	ErrAlreadyConnected = errors.New("live: channel already connected")
	ErrClosed           = errors.New("live: channel closed")
)

var pingFrame = []byte(`{"type":"ping"}`)

// Handler applies stream messages. Calls are sequential in arrival order.
type Handler interface {
	HandleMessage(ctx context.Context, msg Message) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, msg Message) error

// HandleMessage calls f.
func (f HandlerFunc) HandleMessage(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}

// Options configures a Channel.
type Options struct {
	URL     string
	Header  http.Header
	Dialer  Dialer
	Handler Handler
	Clock   clock.Clock
	Logger  *zap.Logger
	// ReconnectDelay is the constant wait between attempts when BackOff is nil.
	ReconnectDelay time.Duration
	// BackOff overrides the reconnect policy. It is reset after every
	// successful connection.
	BackOff backoff.BackOff
	// HeartbeatInterval paces ping frames; a negative value disables them.
	HeartbeatInterval time.Duration
	DedupSize         int
	OnStatus          func(Status)
}

// Channel keeps a streaming connection alive and feeds its messages to a
// Handler. One goroutine owns the socket and the reconnect timer.
type Channel struct {
	url       string
	header    http.Header
	dialer    Dialer
	handler   Handler
	clock     clock.Clock
	logger    *zap.Logger
	backoff   backoff.BackOff
	heartbeat time.Duration
	onStatus  func(Status)
	applied   *lru.Cache[string, struct{}]

	mu      sync.Mutex
	status  Status
	started bool
	closed  bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewChannel validates options and applies defaults.
func NewChannel(opts Options) (*Channel, error) {
	if strings.TrimSpace(opts.URL) == "" {
		return nil, ErrMissingURL
	}
	if opts.Handler == nil {
		return nil, ErrMissingHandler
	}
	if opts.Dialer == nil {
		opts.Dialer = WebSocketDialer{}
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = DefaultReconnectDelay
	}
	if opts.BackOff == nil {
		opts.BackOff = backoff.NewConstantBackOff(opts.ReconnectDelay)
	}
	if opts.HeartbeatInterval == 0 {
		opts.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if opts.DedupSize <= 0 {
		opts.DedupSize = DefaultDedupSize
	}
	applied, err := lru.New[string, struct{}](opts.DedupSize)
	if err != nil {
		return nil, err
	}
	return &Channel{
		url:       opts.URL,
		header:    opts.Header,
		dialer:    opts.Dialer,
		handler:   opts.Handler,
		clock:     opts.Clock,
		logger:    opts.Logger.With(zap.String("stream", opts.URL)),
		backoff:   opts.BackOff,
		heartbeat: opts.HeartbeatInterval,
		onStatus:  opts.OnStatus,
		applied:   applied,
		status:    StatusDisconnected,
	}, nil
}

// Status returns the current connection state.
func (c *Channel) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Connect starts the connection lifecycle in the background. Cancelling ctx
// has the same effect as Close.
func (c *Channel) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.started {
		c.mu.Unlock()
		return ErrAlreadyConnected
	}
	runCtx, cancel := context.WithCancel(ctx)
	c.started = true
	c.cancel = cancel
	c.done = make(chan struct{})
	done := c.done
	c.mu.Unlock()

	go c.run(runCtx, done)
	return nil
}

// Close stops the channel: the pending reconnect timer is cancelled, the
// socket closed and background goroutines joined. It is idempotent.
func (c *Channel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	cancel, done := c.cancel, c.done
	c.mu.Unlock()

	if cancel == nil {
		c.setStatus(StatusDisconnected)
		return nil
	}
	cancel()
	<-done
	return nil
}

func (c *Channel) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer c.setStatus(StatusDisconnected)
	for {
		if ctx.Err() != nil {
			return
		}
		c.setStatus(StatusConnecting)
		conn, err := c.dialer.Dial(ctx, c.url, c.header)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Warn("live: dial failed", zap.Error(err))
		} else {
			c.backoff.Reset()
			c.serve(ctx, conn)
			if ctx.Err() != nil {
				return
			}
		}

		delay := c.backoff.NextBackOff()
		if delay == backoff.Stop {
			c.logger.Warn("live: reconnect policy exhausted")
			return
		}
		timer := c.clock.Timer(delay)
		c.setStatus(StatusReconnecting)
		c.logger.Debug("live: reconnect scheduled", zap.Duration("delay", delay))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// serve reads frames until the connection fails or ctx is cancelled.
func (c *Channel) serve(ctx context.Context, conn Conn) {
	var ticker *clock.Ticker
	if c.heartbeat > 0 {
		ticker = c.clock.Ticker(c.heartbeat)
	}
	connCtx, stop := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.keepAlive(connCtx, conn, ticker)
	}()
	c.setStatus(StatusLive)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				c.logger.Info("live: connection lost", zap.Error(err))
			}
			break
		}
		c.dispatch(ctx, data)
	}
	stop()
	wg.Wait()
}

// keepAlive is the only writer on conn. It closes conn when ctx ends, which
// unblocks the reader.
func (c *Channel) keepAlive(ctx context.Context, conn Conn, ticker *clock.Ticker) {
	defer conn.Close()
	var tick <-chan time.Time
	if ticker != nil {
		defer ticker.Stop()
		tick = ticker.C
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
			if err := conn.WriteMessage(websocket.TextMessage, pingFrame); err != nil {
				c.logger.Info("live: heartbeat failed", zap.Error(err))
				return
			}
		}
	}
}

func (c *Channel) dispatch(ctx context.Context, data []byte) {
	msg, err := ParseMessage(data)
	if err != nil {
		c.logger.Warn("live: discarding frame", zap.Error(err), zap.Int("bytes", len(data)))
		return
	}
	if msg.Kind() == KindHeartbeat {
		return
	}
	key := msg.DedupKey()
	if key != "" {
		if c.applied.Contains(key) {
			c.logger.Debug("live: skipping replayed message", zap.String("key", key))
			return
		}
		c.applied.Add(key, struct{}{})
	}
	if err := c.handler.HandleMessage(ctx, msg); err != nil {
		c.logger.Warn("live: message not applied",
			zap.String("type", msg.Type),
			zap.String("id", msg.ID),
			zap.Error(err),
		)
	}
}

func (c *Channel) setStatus(status Status) {
	c.mu.Lock()
	if c.status == status {
		c.mu.Unlock()
		return
	}
	c.status = status
	notify := c.onStatus
	c.mu.Unlock()
	if notify != nil {
		notify(status)
	}
}
