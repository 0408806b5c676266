// Package simple is the blocking façade: connect, pull gaze samples
// with a timeout, start and stop recordings, close. It hides the event
// and subscription machinery behind synchronous calls for scripts and
// experiment harnesses.
package simple

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/michaelhil/open-neon-go/config"
	"github.com/michaelhil/open-neon-go/connection"
	"github.com/michaelhil/open-neon-go/device"
	"github.com/michaelhil/open-neon-go/errors"
	"github.com/michaelhil/open-neon-go/gaze"
	"github.com/michaelhil/open-neon-go/pkg/buffer"
)

// pollInterval is how often ReceiveGaze checks the buffer while
// blocking.
const pollInterval = 10 * time.Millisecond

// Device is a blocking handle on one connected eye tracker. Incoming
// gaze samples land in a fixed drop-oldest buffer; slow callers lose
// the oldest samples, never the newest.
type Device struct {
	conn   *connection.Connection
	logger *slog.Logger

	mu        sync.Mutex
	ring      *buffer.Ring[gaze.Sample]
	sub       *connection.Subscription
	streamErr *errors.Error
	streaming bool
	completed bool
	closed    bool
}

// Connect dials a device at "host[:port]" and blocks until the
// handshake finishes. Additional options pass through to the
// underlying connection.
func Connect(ctx context.Context, address string, cfg config.Config, opts ...connection.Option) (*Device, error) {
	cfg.ApplyDefaults()
	conn, err := connection.New(address, cfg, opts...)
	if err != nil {
		return nil, err
	}
	if err := conn.Connect(ctx); err != nil {
		_ = conn.Disconnect()
		return nil, err
	}

	ring, err := buffer.NewRing[gaze.Sample](cfg.StreamBufferSize)
	if err != nil {
		_ = conn.Disconnect()
		return nil, err
	}

	return &Device{
		conn:   conn,
		logger: slog.Default().With("device", address),
		ring:   ring,
	}, nil
}

// Status returns the latest descriptor snapshot, refreshed by status
// pushes in the background.
func (d *Device) Status() device.Descriptor {
	return d.conn.Descriptor()
}

// ensureStreaming starts the gaze subscription on first use.
func (d *Device) ensureStreaming() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return errors.NotConnected("receive gaze")
	}
	if d.streaming {
		return nil
	}

	d.sub = d.conn.GazeStream(gaze.Config{}).Subscribe(connection.GazeObserver{
		OnSample: d.ring.Write,
		OnError: func(e *errors.Error) {
			d.mu.Lock()
			d.streamErr = e
			d.mu.Unlock()
		},
		OnComplete: func() {
			d.mu.Lock()
			d.completed = true
			d.mu.Unlock()
		},
	})
	d.streaming = true
	d.logger.Debug("gaze stream started")
	return nil
}

// ReceiveGaze blocks until the next gaze sample arrives or the timeout
// elapses. The stream starts lazily on the first call. Samples are
// delivered oldest first; when the buffer overflowed, the oldest
// unread samples are gone.
func (d *Device) ReceiveGaze(timeout time.Duration) (gaze.Sample, error) {
	if err := d.ensureStreaming(); err != nil {
		return gaze.Sample{}, err
	}

	deadline := time.Now().Add(timeout)
	for {
		if sample, ok := d.ring.Read(); ok {
			return sample, nil
		}

		d.mu.Lock()
		streamErr, completed, closed := d.streamErr, d.completed, d.closed
		d.mu.Unlock()
		if streamErr != nil {
			return gaze.Sample{}, streamErr
		}
		if completed || closed {
			return gaze.Sample{}, errors.Stream(errors.CodeStreamClosed,
				"gaze stream ended", nil)
		}
		if !time.Now().Before(deadline) {
			return gaze.Sample{}, errors.Timeout("receive gaze", timeout)
		}
		time.Sleep(pollInterval)
	}
}

// StartRecording starts a recording and returns its ID; empty id means
// generate one.
func (d *Device) StartRecording(id string) (string, error) {
	return d.conn.StartRecording(context.Background(), id)
}

// StopRecording stops the active recording.
func (d *Device) StopRecording() error {
	return d.conn.StopRecording(context.Background())
}

// Close tears the device down: stops the gaze stream, discards
// buffered samples, and disconnects. Idempotent.
func (d *Device) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	sub := d.sub
	d.sub = nil
	d.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
	d.ring.Clear()
	return d.conn.Disconnect()
}
