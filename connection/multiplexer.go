package connection

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/michaelhil/open-neon-go/errors"
	"github.com/michaelhil/open-neon-go/gaze"
	"github.com/michaelhil/open-neon-go/pkg/retry"
	"github.com/michaelhil/open-neon-go/transport"
)

// multiplexer shares gaze channels between subscriptions: streams with
// equal config keys use one device channel, opened on the first
// subscriber and closed when the last one detaches.
type multiplexer struct {
	conn *Connection

	mu      sync.Mutex
	entries map[string]*streamEntry
}

// streamEntry is one live stream variant. done flips exactly once —
// on terminal error, clean completion, or last detach — and nothing
// fires afterwards.
type streamEntry struct {
	key     string
	cfg     gaze.Config
	channel transport.Channel

	order []uuid.UUID
	subs  map[uuid.UUID]GazeObserver
	done  bool
}

func newMultiplexer(conn *Connection) *multiplexer {
	return &multiplexer{
		conn:    conn,
		entries: make(map[string]*streamEntry),
	}
}

// subscribe attaches an observer, opening the shared channel if this
// is the variant's first subscriber.
func (m *multiplexer) subscribe(cfg gaze.Config, observer GazeObserver) *Subscription {
	if m.conn.State() != StateConnected {
		if observer.OnError != nil {
			observer.OnError(errors.Stream(errors.CodeDeviceNotConnected,
				"cannot start stream: device not connected", nil))
		}
		return &Subscription{cancel: func() {}}
	}

	key := cfg.Key()
	id := uuid.New()

	m.mu.Lock()
	entry := m.entries[key]
	fresh := entry == nil
	if fresh {
		entry = &streamEntry{
			key:  key,
			cfg:  cfg,
			subs: make(map[uuid.UUID]GazeObserver),
		}
		m.entries[key] = entry
	}
	entry.order = append(entry.order, id)
	entry.subs[id] = observer
	m.mu.Unlock()

	if fresh {
		go m.run(entry)
	}

	return &Subscription{cancel: func() { m.detach(entry, id) }}
}

// detach removes one observer; the last detach tears the channel down
// without terminal callbacks.
func (m *multiplexer) detach(entry *streamEntry, id uuid.UUID) {
	m.mu.Lock()
	if entry.done {
		m.mu.Unlock()
		return
	}
	if _, ok := entry.subs[id]; !ok {
		m.mu.Unlock()
		return
	}
	delete(entry.subs, id)
	for i, other := range entry.order {
		if other == id {
			entry.order = append(entry.order[:i], entry.order[i+1:]...)
			break
		}
	}
	if len(entry.subs) > 0 {
		m.mu.Unlock()
		return
	}
	entry.done = true
	delete(m.entries, entry.key)
	ch := entry.channel
	m.mu.Unlock()

	if ch != nil {
		_ = ch.Close()
		m.conn.metrics.recordStreamClose()
	}
	m.conn.logger.Debug("gaze stream closed", "stream", entry.key)
}

// run opens the shared channel and fans frames out in order. One
// goroutine per entry keeps delivery ordered across subscribers.
func (m *multiplexer) run(entry *streamEntry) {
	url := m.conn.wsURL + apiGazePath + entry.cfg.Query()
	ch, err := retry.WithTimeout(context.Background(), "open gaze channel",
		m.conn.cfg.ConnectTimeout.Std(),
		func(ctx context.Context) (transport.Channel, error) {
			return m.conn.tr.OpenChannel(ctx, url)
		})
	if err != nil {
		m.terminate(entry, errors.Stream(errors.CodeStreamStartFailed,
			"open gaze channel", err))
		return
	}

	if m.conn.State() != StateConnected {
		// Disconnect raced the open; the channel is an orphan.
		_ = ch.Close()
		m.terminate(entry, errors.Stream(errors.CodeDeviceNotConnected,
			"device disconnected during stream start", nil))
		return
	}

	m.mu.Lock()
	if entry.done {
		m.mu.Unlock()
		_ = ch.Close()
		return
	}
	entry.channel = ch
	m.mu.Unlock()
	m.conn.metrics.recordStreamOpen()
	m.conn.logger.Debug("gaze stream opened", "stream", entry.key)

	for msg := range ch.Messages() {
		sample, err := gaze.Decode(msg)
		if err != nil {
			// A bad frame kills this stream variant only; other
			// variants and the control channel are unaffected.
			m.terminate(entry, err)
			return
		}
		m.mu.Lock()
		if entry.done {
			m.mu.Unlock()
			return
		}
		observers := make([]GazeObserver, 0, len(entry.order))
		for _, id := range entry.order {
			observers = append(observers, entry.subs[id])
		}
		m.mu.Unlock()

		m.conn.metrics.recordSample()
		for _, obs := range observers {
			if obs.OnSample != nil {
				obs.OnSample(sample)
			}
		}
	}

	if err := ch.Err(); err != nil {
		m.terminate(entry, errors.Stream(errors.CodeStreamClosed,
			"gaze channel lost", err))
		return
	}
	m.complete(entry)
}

// terminate delivers a terminal error to every subscriber, once.
func (m *multiplexer) terminate(entry *streamEntry, err error) {
	observers, ch := m.finish(entry)
	if observers == nil {
		return
	}
	if ch != nil {
		_ = ch.Close()
	}
	e, ok := errors.As(err)
	if !ok {
		e = errors.Stream(errors.CodeStreamClosed, "gaze stream failed", err)
	}
	e = e.WithDetails(map[string]any{"stream": entry.key})
	m.conn.metrics.recordError(e.Kind.String())
	m.conn.logger.Warn("gaze stream failed", "stream", entry.key, "error", e)
	for _, obs := range observers {
		if obs.OnError != nil {
			obs.OnError(e)
		}
	}
}

// complete delivers clean completion to every subscriber, once.
func (m *multiplexer) complete(entry *streamEntry) {
	observers, ch := m.finish(entry)
	if observers == nil {
		return
	}
	if ch != nil {
		_ = ch.Close()
	}
	for _, obs := range observers {
		if obs.OnComplete != nil {
			obs.OnComplete()
		}
	}
}

// finish flips the entry's done flag and returns the subscriber
// snapshot, or nil if another path finished it first.
func (m *multiplexer) finish(entry *streamEntry) ([]GazeObserver, transport.Channel) {
	m.mu.Lock()
	if entry.done {
		m.mu.Unlock()
		return nil, nil
	}
	entry.done = true
	delete(m.entries, entry.key)
	observers := make([]GazeObserver, 0, len(entry.order))
	for _, id := range entry.order {
		observers = append(observers, entry.subs[id])
	}
	ch := entry.channel
	m.mu.Unlock()

	if ch != nil {
		m.conn.metrics.recordStreamClose()
	}
	return observers, ch
}

// completeAll finishes every live entry; Disconnect calls this so
// stream handles complete rather than error.
func (m *multiplexer) completeAll() {
	m.mu.Lock()
	entries := make([]*streamEntry, 0, len(m.entries))
	for _, entry := range m.entries {
		entries = append(entries, entry)
	}
	m.mu.Unlock()

	for _, entry := range entries {
		m.complete(entry)
	}
}
