package connection

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michaelhil/open-neon-go/config"
	"github.com/michaelhil/open-neon-go/device"
	"github.com/michaelhil/open-neon-go/devicetest"
	"github.com/michaelhil/open-neon-go/errors"
)

// eventRecorder collects lifecycle events; callbacks only append, never
// call back into the Connection.
type eventRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *eventRecorder) record(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *eventRecorder) snapshot() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func (r *eventRecorder) count(match func(Event) bool) int {
	n := 0
	for _, ev := range r.snapshot() {
		if match(ev) {
			n++
		}
	}
	return n
}

func isReconnecting(ev Event) bool { _, ok := ev.(Reconnecting); return ok }

func isErrorCode(code string) func(Event) bool {
	return func(ev Event) bool {
		e, ok := ev.(ErrorEvent)
		return ok && e.Err.Code == code
	}
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.ConnectTimeout = config.Duration(2 * time.Second)
	cfg.RequestTimeout = config.Duration(2 * time.Second)
	cfg.ReconnectInterval = config.Duration(20 * time.Millisecond)
	return cfg
}

func newTestConnection(t *testing.T, srv *devicetest.Server, cfg config.Config) (*Connection, *eventRecorder) {
	t.Helper()
	conn, err := New(srv.Addr(), cfg)
	require.NoError(t, err)
	rec := &eventRecorder{}
	conn.OnEvent(rec.record)
	t.Cleanup(func() { _ = conn.Disconnect() })
	return conn, rec
}

func TestConnect_HandshakeMergesDescriptor(t *testing.T) {
	srv := devicetest.NewServer()
	defer srv.Close()
	srv.SetStatus(map[string]any{"batteryLevel": 85})

	conn, rec := newTestConnection(t, srv, testConfig())
	require.NoError(t, conn.Connect(context.Background()))

	assert.Equal(t, StateConnected, conn.State())
	desc := conn.Descriptor()
	assert.Equal(t, device.ModelNeon, desc.Model)
	assert.Equal(t, 85, desc.BatteryLevel)
	assert.Equal(t, "N-0001", desc.Serial)

	events := rec.snapshot()
	require.Len(t, events, 2)
	assert.IsType(t, Connecting{}, events[0])
	connected, ok := events[1].(Connected)
	require.True(t, ok)
	assert.Equal(t, 85, connected.Descriptor.BatteryLevel)
}

func TestConnect_WhileConnectedIsNoOp(t *testing.T) {
	srv := devicetest.NewServer()
	defer srv.Close()

	conn, rec := newTestConnection(t, srv, testConfig())
	require.NoError(t, conn.Connect(context.Background()))
	require.NoError(t, conn.Connect(context.Background()))

	assert.Equal(t, 1, srv.StatusOpens(), "second Connect must not reopen the channel")
	assert.Len(t, rec.snapshot(), 2)
}

func TestConnect_FailureEntersErrorState(t *testing.T) {
	srv := devicetest.NewServer()
	defer srv.Close()
	srv.FailStatusWith(500)

	cfg := testConfig()
	cfg.DisableAutoReconnect = true
	conn, rec := newTestConnection(t, srv, cfg)

	err := conn.Connect(context.Background())
	require.Error(t, err)
	assert.Equal(t, errors.CodeConnectionFailed, errors.CodeOf(err))
	assert.Equal(t, StateError, conn.State())
	assert.Equal(t, 1, rec.count(isErrorCode(errors.CodeConnectionFailed)))
}

func TestStatusPush_UpdatesArriveInOrder(t *testing.T) {
	srv := devicetest.NewServer()
	defer srv.Close()
	srv.SetStatus(map[string]any{"batteryLevel": 85})

	conn, rec := newTestConnection(t, srv, testConfig())
	require.NoError(t, conn.Connect(context.Background()))

	srv.PushStatus(`{"batteryLevel":84}`)
	srv.PushStatus(`{"batteryLevel":83,"isWorn":false}`)

	require.Eventually(t, func() bool {
		return rec.count(func(ev Event) bool { _, ok := ev.(StatusUpdate); return ok }) == 2
	}, time.Second, 10*time.Millisecond)

	desc := conn.Descriptor()
	assert.Equal(t, 83, desc.BatteryLevel)
	assert.False(t, desc.Worn)

	// Absent fields keep their handshake values.
	assert.Equal(t, device.ModelNeon, desc.Model)

	var levels []int
	for _, ev := range rec.snapshot() {
		if up, ok := ev.(StatusUpdate); ok {
			levels = append(levels, up.Descriptor.BatteryLevel)
		}
	}
	assert.Equal(t, []int{84, 83}, levels)
}

func TestStatusPush_DecodeErrorIsNonFatal(t *testing.T) {
	srv := devicetest.NewServer()
	defer srv.Close()

	conn, rec := newTestConnection(t, srv, testConfig())
	require.NoError(t, conn.Connect(context.Background()))

	srv.PushStatus(`not json`)
	srv.PushStatus(`{"batteryLevel":60}`)

	require.Eventually(t, func() bool {
		return conn.Descriptor().BatteryLevel == 60
	}, time.Second, 10*time.Millisecond)

	assert.Equal(t, StateConnected, conn.State(), "a bad push must not drop the connection")
	assert.Equal(t, 1, rec.count(isErrorCode(errors.CodeStreamDecodeError)))
}

func TestChannelLoss_ReconnectsAndRecovers(t *testing.T) {
	srv := devicetest.NewServer()
	defer srv.Close()

	conn, rec := newTestConnection(t, srv, testConfig())
	require.NoError(t, conn.Connect(context.Background()))

	srv.CloseStatusChannels()

	require.Eventually(t, func() bool {
		return conn.State() == StateConnected && srv.StatusOpens() == 2
	}, 2*time.Second, 10*time.Millisecond)

	assert.GreaterOrEqual(t, rec.count(isReconnecting), 1)
	// Recovery proves itself end to end: pushes on the new channel land.
	srv.PushStatus(`{"batteryLevel":42}`)
	require.Eventually(t, func() bool {
		return conn.Descriptor().BatteryLevel == 42
	}, time.Second, 10*time.Millisecond)
}

func TestChannelLoss_ZeroValueConfigReconnects(t *testing.T) {
	srv := devicetest.NewServer()
	defer srv.Close()

	// A literal Config{} must keep the reconnect protocol enabled; the
	// interval is shortened only to keep the test quick.
	cfg := config.Config{ReconnectInterval: config.Duration(20 * time.Millisecond)}
	conn, rec := newTestConnection(t, srv, cfg)
	require.NoError(t, conn.Connect(context.Background()))

	srv.CloseStatusChannels()

	require.Eventually(t, func() bool {
		return conn.State() == StateConnected && srv.StatusOpens() == 2
	}, 2*time.Second, 10*time.Millisecond)
	assert.GreaterOrEqual(t, rec.count(isReconnecting), 1)
}

func TestChannelLoss_AutoReconnectDisabledIsNoOp(t *testing.T) {
	srv := devicetest.NewServer()
	defer srv.Close()

	cfg := testConfig()
	cfg.DisableAutoReconnect = true
	conn, rec := newTestConnection(t, srv, cfg)
	require.NoError(t, conn.Connect(context.Background()))

	srv.CloseStatusChannels()
	time.Sleep(150 * time.Millisecond)

	assert.Equal(t, StateConnected, conn.State())
	assert.Equal(t, 1, srv.StatusOpens())
	assert.Zero(t, rec.count(isReconnecting))
}

func TestReconnect_ExhaustionIsTerminal(t *testing.T) {
	srv := devicetest.NewServer()
	defer srv.Close()

	cfg := testConfig()
	cfg.MaxReconnectAttempts = 2
	conn, rec := newTestConnection(t, srv, cfg)
	require.NoError(t, conn.Connect(context.Background()))

	srv.FailStatusWith(500)
	srv.CloseStatusChannels()

	require.Eventually(t, func() bool {
		return conn.State() == StateError
	}, 2*time.Second, 10*time.Millisecond)

	// Ceiling semantics: one attempt per slot, then exactly one
	// terminal error.
	assert.Equal(t, 2, rec.count(isReconnecting))
	assert.Equal(t, 1, rec.count(isErrorCode(errors.CodeReconnectExhausted)))

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, rec.count(isErrorCode(errors.CodeReconnectExhausted)),
		"exhaustion must emit exactly once")
}

func TestDisconnect_CancelsReconnectWait(t *testing.T) {
	srv := devicetest.NewServer()
	defer srv.Close()

	cfg := testConfig()
	cfg.ReconnectInterval = config.Duration(500 * time.Millisecond)
	conn, rec := newTestConnection(t, srv, cfg)
	require.NoError(t, conn.Connect(context.Background()))

	srv.CloseStatusChannels()
	require.Eventually(t, func() bool {
		return rec.count(isReconnecting) == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Disconnect())
	assert.Equal(t, StateDisconnected, conn.State())

	// The pending attempt must not fire after Disconnect.
	time.Sleep(700 * time.Millisecond)
	assert.Equal(t, StateDisconnected, conn.State())
	assert.Equal(t, 1, srv.StatusOpens())
}

func TestDisconnect_Idempotent(t *testing.T) {
	srv := devicetest.NewServer()
	defer srv.Close()

	conn, rec := newTestConnection(t, srv, testConfig())
	require.NoError(t, conn.Connect(context.Background()))

	require.NoError(t, conn.Disconnect())
	require.NoError(t, conn.Disconnect())

	assert.Equal(t, 1, rec.count(func(ev Event) bool {
		_, ok := ev.(Disconnected)
		return ok
	}))
}

func TestOnEvent_RemovalStopsDelivery(t *testing.T) {
	srv := devicetest.NewServer()
	defer srv.Close()

	conn, _ := newTestConnection(t, srv, testConfig())
	removed := &eventRecorder{}
	remove := conn.OnEvent(removed.record)
	remove()
	remove() // removal is idempotent

	require.NoError(t, conn.Connect(context.Background()))
	assert.Empty(t, removed.snapshot())
}

func TestNew_RejectsBadAddress(t *testing.T) {
	_, err := New("host:notaport", config.Default())
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidParameter, errors.CodeOf(err))
}
