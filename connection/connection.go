package connection

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/michaelhil/open-neon-go/config"
	"github.com/michaelhil/open-neon-go/device"
	"github.com/michaelhil/open-neon-go/errors"
	"github.com/michaelhil/open-neon-go/metric"
	"github.com/michaelhil/open-neon-go/pkg/netutil"
	"github.com/michaelhil/open-neon-go/pkg/retry"
	"github.com/michaelhil/open-neon-go/transport"
)

// Connection owns one device's network lifecycle: the HTTP handshake,
// the persistent status channel, the reconnect protocol, request/
// response calls, and the gaze stream multiplexer.
//
// A Connection exclusively owns its descriptor, its channels, and its
// stream handles; none are shared across Connection instances.
type Connection struct {
	cfg     config.Config
	tr      transport.Transport
	logger  *slog.Logger
	metrics *Metrics

	baseURL string
	wsURL   string

	// emitMu serializes transitions with their event emission so
	// listeners observe them in order. Lock order: emitMu before mu.
	emitMu sync.Mutex
	mu     sync.Mutex

	state         State
	desc          *device.Descriptor
	statusChannel transport.Channel
	attempts      int
	// generation invalidates in-flight work: Disconnect bumps it, and
	// every async path re-checks before committing.
	generation       uint64
	reconnectCancel  context.CancelFunc
	reconnectRunning bool

	listeners *listenerSet
	streams   *multiplexer

	metricsRegistry *metric.Registry
}

// Option configures a Connection.
type Option func(*Connection)

// WithTransport injects the network capability. Defaults to the
// net/http + websocket implementation.
func WithTransport(tr transport.Transport) Option {
	return func(c *Connection) { c.tr = tr }
}

// WithLogger sets the connection logger; nil means slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Connection) { c.logger = logger }
}

// WithMetrics enables Prometheus instrumentation on the registry.
func WithMetrics(registry *metric.Registry) Option {
	return func(c *Connection) { c.metricsRegistry = registry }
}

// New creates a Connection to a direct "host[:port]" address with a
// synthetic descriptor. The device is not contacted until Connect.
func New(address string, cfg config.Config, opts ...Option) (*Connection, error) {
	host, port, err := netutil.ParseAddress(address, netutil.DefaultPort)
	if err != nil {
		return nil, err
	}
	return NewFromDescriptor(device.Synthetic(host, port), cfg, opts...)
}

// NewFromDescriptor creates a Connection from a discovered descriptor.
// The Connection takes exclusive ownership of desc.
func NewFromDescriptor(desc *device.Descriptor, cfg config.Config, opts ...Option) (*Connection, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if desc == nil || desc.IP == "" || desc.Port == 0 {
		return nil, errors.InvalidParameter("descriptor must carry a device address")
	}

	c := &Connection{
		cfg:       cfg,
		desc:      desc,
		baseURL:   fmt.Sprintf("http://%s:%d", desc.IP, desc.Port),
		wsURL:     fmt.Sprintf("ws://%s:%d", desc.IP, desc.Port),
		listeners: newListenerSet(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.tr == nil {
		c.tr = transport.NewHTTP()
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	c.logger = c.logger.With("device", desc.Address())
	c.metrics = newMetrics(c.metricsRegistry, desc.Address())
	c.streams = newMultiplexer(c)
	return c, nil
}

// State returns the current lifecycle state.
func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Descriptor returns a defensive snapshot of the device descriptor.
func (c *Connection) Descriptor() device.Descriptor {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.desc.Snapshot()
}

// OnEvent registers a lifecycle listener and returns its removal
// function. Events arrive synchronously in transition order; the
// callback must not call back into the Connection directly.
func (c *Connection) OnEvent(fn func(Event)) func() {
	return c.listeners.add(fn)
}

// Connect performs the handshake and opens the status channel. A
// Connect while already Connected is a no-op. On failure the
// Connection enters Error state, the failure is emitted to listeners
// and returned, and — with auto-reconnect enabled — the reconnect
// protocol starts in the background regardless of the returned error.
func (c *Connection) Connect(ctx context.Context) error {
	c.emitMu.Lock()
	c.mu.Lock()
	switch c.state {
	case StateConnected:
		c.mu.Unlock()
		c.emitMu.Unlock()
		return nil
	case StateConnecting, StateReconnecting:
		c.mu.Unlock()
		c.emitMu.Unlock()
		return errors.New(errors.KindConnection, errors.CodeConnectionFailed,
			"connection attempt already in progress")
	}
	gen := c.generation
	c.state = StateConnecting
	c.mu.Unlock()
	c.metrics.recordState(StateConnecting)
	c.listeners.emit(Connecting{})
	c.emitMu.Unlock()

	err := c.establish(ctx, gen)
	if err == nil {
		return nil
	}
	if errors.IsCode(err, errors.CodeCancelled) {
		// Disconnect pre-empted the attempt; it owns the state now.
		return err
	}

	c.fail(gen, err)
	c.beginReconnect(gen)
	return err
}

// establish runs one handshake attempt and commits the Connected
// transition unless the generation moved underneath it.
func (c *Connection) establish(ctx context.Context, gen uint64) error {
	statusURL := c.baseURL + apiStatusPath
	body, err := retry.WithTimeout(ctx, "connect", c.cfg.ConnectTimeout.Std(),
		func(ctx context.Context) ([]byte, error) {
			return c.tr.Get(ctx, statusURL)
		})
	if err != nil {
		return errors.Connection(errors.CodeConnectionFailed,
			"status handshake failed", err)
	}

	ch, err := retry.WithTimeout(ctx, "open status channel", c.cfg.ConnectTimeout.Std(),
		func(ctx context.Context) (transport.Channel, error) {
			return c.tr.OpenChannel(ctx, c.wsURL+apiStatusPath)
		})
	if err != nil {
		return errors.Connection(errors.CodeConnectionFailed,
			"open status channel", err)
	}

	c.emitMu.Lock()
	c.mu.Lock()
	if c.generation != gen || c.state == StateDisconnected {
		c.mu.Unlock()
		c.emitMu.Unlock()
		_ = ch.Close()
		return errors.Cancelled("connect")
	}
	if err := c.desc.Merge(body); err != nil {
		c.mu.Unlock()
		c.emitMu.Unlock()
		_ = ch.Close()
		return errors.Connection(errors.CodeConnectionFailed,
			"merge handshake status", err)
	}
	c.statusChannel = ch
	c.attempts = 0
	c.state = StateConnected
	snapshot := c.desc.Snapshot()
	c.mu.Unlock()
	c.metrics.recordState(StateConnected)
	c.metrics.recordChannelOpen()
	c.listeners.emit(Connected{Descriptor: snapshot})
	c.emitMu.Unlock()

	c.logger.Info("connected", "model", snapshot.Model, "battery", snapshot.BatteryLevel)
	go c.statusLoop(ch, gen)
	return nil
}

// fail commits the Error transition for a failed attempt, unless
// Disconnect got there first.
func (c *Connection) fail(gen uint64, cause error) {
	c.emitMu.Lock()
	c.mu.Lock()
	if c.generation != gen || c.state == StateDisconnected {
		c.mu.Unlock()
		c.emitMu.Unlock()
		return
	}
	c.state = StateError
	c.mu.Unlock()
	c.metrics.recordState(StateError)

	e, ok := errors.As(cause)
	if !ok {
		e = errors.Connection(errors.CodeConnectionFailed, "connect failed", cause)
	}
	c.metrics.recordError(e.Kind.String())
	c.listeners.emit(ErrorEvent{Err: e})
	c.emitMu.Unlock()
}

// Disconnect transitions to Disconnected unconditionally: it cancels a
// pending reconnect wait, closes the control and every stream channel,
// and completes all stream handles. Safe to call from any state and
// concurrently with an in-flight Connect.
func (c *Connection) Disconnect() error {
	c.emitMu.Lock()
	c.mu.Lock()
	c.generation++
	if c.reconnectCancel != nil {
		c.reconnectCancel()
		c.reconnectCancel = nil
	}
	changed := c.state != StateDisconnected
	c.state = StateDisconnected
	ch := c.statusChannel
	c.statusChannel = nil
	c.attempts = 0
	c.mu.Unlock()

	if ch != nil {
		_ = ch.Close()
	}
	c.streams.completeAll()

	if changed {
		c.metrics.recordState(StateDisconnected)
		c.listeners.emit(Disconnected{})
		c.logger.Info("disconnected")
	}
	c.emitMu.Unlock()
	return nil
}

// statusLoop consumes the status channel until it closes, then decides
// whether the close triggers the reconnect protocol.
func (c *Connection) statusLoop(ch transport.Channel, gen uint64) {
	for msg := range ch.Messages() {
		c.handleStatusMessage(msg, gen)
	}

	c.mu.Lock()
	if c.generation != gen || c.state != StateConnected {
		// Explicit disconnect or a superseded attempt; nothing to do.
		c.mu.Unlock()
		return
	}
	c.statusChannel = nil
	autoReconnect := !c.cfg.DisableAutoReconnect
	c.mu.Unlock()

	if !autoReconnect {
		// Close handler contract: without auto-reconnect a control
		// channel loss is a no-op at the state machine level.
		c.logger.Warn("status channel closed; auto-reconnect disabled",
			"cause", ch.Err())
		return
	}

	c.logger.Warn("status channel closed; reconnecting", "cause", ch.Err())
	c.beginReconnect(gen)
}

// handleStatusMessage merges one status push into the descriptor. A
// parse failure is surfaced as a non-fatal error event and the channel
// stays open.
func (c *Connection) handleStatusMessage(msg []byte, gen uint64) {
	c.emitMu.Lock()
	c.mu.Lock()
	if c.generation != gen {
		c.mu.Unlock()
		c.emitMu.Unlock()
		return
	}
	if err := c.desc.Merge(msg); err != nil {
		c.mu.Unlock()
		e := errors.Stream(errors.CodeStreamDecodeError,
			"status message decode failed", err).
			WithDetails(map[string]any{"channel": "status"})
		c.metrics.recordError(e.Kind.String())
		c.listeners.emit(ErrorEvent{Err: e})
		c.emitMu.Unlock()
		return
	}
	snapshot := c.desc.Snapshot()
	c.mu.Unlock()
	c.metrics.recordStatusUpdate()
	c.listeners.emit(StatusUpdate{Descriptor: snapshot})
	c.emitMu.Unlock()
}

// beginReconnect starts the reconnect protocol once per loss.
func (c *Connection) beginReconnect(gen uint64) {
	c.mu.Lock()
	if c.cfg.DisableAutoReconnect || c.reconnectRunning || c.generation != gen {
		c.mu.Unlock()
		return
	}
	rctx, cancel := context.WithCancel(context.Background())
	c.reconnectCancel = cancel
	c.reconnectRunning = true
	c.mu.Unlock()

	go c.reconnectLoop(rctx, gen)
}

// reconnectLoop is the reconnect protocol: bump the attempt counter,
// emit Reconnecting, wait the fixed interval, retry the handshake.
// Individual attempt failures are swallowed; the ceiling is terminal.
func (c *Connection) reconnectLoop(ctx context.Context, gen uint64) {
	defer func() {
		c.mu.Lock()
		c.reconnectRunning = false
		c.mu.Unlock()
	}()

	for {
		c.emitMu.Lock()
		c.mu.Lock()
		if c.generation != gen || c.state == StateDisconnected {
			c.mu.Unlock()
			c.emitMu.Unlock()
			return
		}
		c.attempts++
		attempt := c.attempts
		if attempt > c.cfg.MaxReconnectAttempts {
			c.state = StateError
			c.mu.Unlock()
			c.metrics.recordState(StateError)
			e := errors.Connection(errors.CodeReconnectExhausted,
				"maximum reconnection attempts exceeded", nil).
				WithDetails(map[string]any{"attempts": attempt - 1})
			c.metrics.recordError(e.Kind.String())
			c.listeners.emit(ErrorEvent{Err: e})
			c.emitMu.Unlock()
			c.logger.Error("reconnect attempts exhausted", "attempts", attempt-1)
			return
		}
		c.state = StateReconnecting
		c.mu.Unlock()
		c.metrics.recordState(StateReconnecting)
		c.metrics.recordReconnect()
		c.listeners.emit(Reconnecting{Attempt: attempt})
		c.emitMu.Unlock()

		if err := retry.Sleep(ctx, c.cfg.ReconnectInterval.Std()); err != nil {
			// Disconnect cancelled the wait.
			return
		}

		err := c.establish(ctx, gen)
		if err == nil {
			return
		}
		if errors.IsCode(err, errors.CodeCancelled) {
			return
		}
		c.logger.Debug("reconnect attempt failed", "attempt", attempt, "error", err)
	}
}
