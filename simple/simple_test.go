package simple

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michaelhil/open-neon-go/config"
	"github.com/michaelhil/open-neon-go/device"
	"github.com/michaelhil/open-neon-go/devicetest"
	"github.com/michaelhil/open-neon-go/errors"
)

func connectTestDevice(t *testing.T, srv *devicetest.Server) *Device {
	t.Helper()
	d, err := Connect(context.Background(), srv.Addr(), config.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestConnect_FailsFast(t *testing.T) {
	srv := devicetest.NewServer()
	defer srv.Close()
	srv.FailStatusWith(500)

	cfg := config.Default()
	cfg.DisableAutoReconnect = true
	_, err := Connect(context.Background(), srv.Addr(), cfg)
	require.Error(t, err)
	assert.Equal(t, errors.CodeConnectionFailed, errors.CodeOf(err))
}

func TestStatus_ReflectsDevice(t *testing.T) {
	srv := devicetest.NewServer()
	defer srv.Close()
	srv.SetStatus(map[string]any{"batteryLevel": 77})

	d := connectTestDevice(t, srv)
	status := d.Status()
	assert.Equal(t, device.ModelNeon, status.Model)
	assert.Equal(t, 77, status.BatteryLevel)
}

func TestReceiveGaze_BlocksUntilSample(t *testing.T) {
	srv := devicetest.NewServer()
	defer srv.Close()

	d := connectTestDevice(t, srv)

	// The stream starts lazily; push once the channel is up.
	go func() {
		for srv.GazeOpens() == 0 {
			time.Sleep(5 * time.Millisecond)
		}
		srv.PushGaze(`{"x":120.5,"y":80.25,"worn":true,"timestamp":1700000000000000000}`)
	}()

	sample, err := d.ReceiveGaze(2 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, 120.5, sample.X)
	assert.Equal(t, 80.25, sample.Y)
	assert.True(t, sample.Worn)
}

func TestReceiveGaze_TimeoutElapses(t *testing.T) {
	srv := devicetest.NewServer()
	defer srv.Close()

	d := connectTestDevice(t, srv)

	start := time.Now()
	_, err := d.ReceiveGaze(80 * time.Millisecond)
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.Equal(t, errors.CodeTimeout, errors.CodeOf(err))
	assert.GreaterOrEqual(t, elapsed, 80*time.Millisecond)
	assert.Less(t, elapsed, time.Second, "timeout must not overshoot wildly")
}

func TestReceiveGaze_OldestFirst(t *testing.T) {
	srv := devicetest.NewServer()
	defer srv.Close()

	d := connectTestDevice(t, srv)

	// Prime the stream, then push a burst before reading again.
	go func() {
		for srv.GazeOpens() == 0 {
			time.Sleep(5 * time.Millisecond)
		}
		srv.PushGaze(`{"x":1,"timestamp":1}`)
	}()
	_, err := d.ReceiveGaze(2 * time.Second)
	require.NoError(t, err)

	srv.PushGaze(`{"x":2,"timestamp":2}`)
	srv.PushGaze(`{"x":3,"timestamp":3}`)

	first, err := d.ReceiveGaze(2 * time.Second)
	require.NoError(t, err)
	second, err := d.ReceiveGaze(2 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, float64(2), first.X)
	assert.Equal(t, float64(3), second.X)
}

func TestReceiveGaze_StreamLossSurfaces(t *testing.T) {
	srv := devicetest.NewServer()
	defer srv.Close()

	d := connectTestDevice(t, srv)

	go func() {
		for srv.GazeOpens() == 0 {
			time.Sleep(5 * time.Millisecond)
		}
		srv.CloseGazeChannels()
	}()

	_, err := d.ReceiveGaze(2 * time.Second)
	require.Error(t, err)
	assert.Equal(t, errors.CodeStreamClosed, errors.CodeOf(err))
}

func TestRecording_RoundTrip(t *testing.T) {
	srv := devicetest.NewServer()
	defer srv.Close()

	d := connectTestDevice(t, srv)

	id, err := d.StartRecording("")
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	recording, gotID := srv.Recording()
	assert.True(t, recording)
	assert.Equal(t, id, gotID)

	require.NoError(t, d.StopRecording())
	recording, _ = srv.Recording()
	assert.False(t, recording)
}

func TestClose_Idempotent(t *testing.T) {
	srv := devicetest.NewServer()
	defer srv.Close()

	d := connectTestDevice(t, srv)
	require.NoError(t, d.Close())
	require.NoError(t, d.Close())

	_, err := d.ReceiveGaze(50 * time.Millisecond)
	require.Error(t, err)
	assert.Equal(t, errors.CodeNotConnected, errors.CodeOf(err))
}
