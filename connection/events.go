package connection

import (
	"sync"

	"github.com/google/uuid"

	"github.com/michaelhil/open-neon-go/device"
	"github.com/michaelhil/open-neon-go/errors"
)

// Event is the lifecycle event union. Each variant carries exactly the
// payload its transition produces; switch on the concrete type.
//
// Events are dispatched synchronously in transition order. Listeners
// must not call back into the Connection from the callback; spawn a
// goroutine for that.
type Event interface {
	event()
}

// Connecting is emitted when a handshake begins.
type Connecting struct{}

// Connected is emitted after a successful handshake, with a snapshot
// of the merged descriptor.
type Connected struct {
	Descriptor device.Descriptor
}

// Disconnected is emitted after an explicit Disconnect.
type Disconnected struct{}

// Reconnecting is emitted per reconnect attempt, 1-based.
type Reconnecting struct {
	Attempt int
}

// StatusUpdate is emitted for every status push message merged into
// the descriptor.
type StatusUpdate struct {
	Descriptor device.Descriptor
}

// ErrorEvent delivers lifecycle problems no caller is waiting on:
// handshake failures, channel drops, reconnect exhaustion, and
// non-fatal status decode errors.
type ErrorEvent struct {
	Err *errors.Error
}

func (Connecting) event()   {}
func (Connected) event()    {}
func (Disconnected) event() {}
func (Reconnecting) event() {}
func (StatusUpdate) event() {}
func (ErrorEvent) event()   {}

// listenerSet is the typed observer list behind OnEvent. Registration
// order is preserved for dispatch.
type listenerSet struct {
	mu    sync.Mutex
	order []uuid.UUID
	fns   map[uuid.UUID]func(Event)
}

func newListenerSet() *listenerSet {
	return &listenerSet{fns: make(map[uuid.UUID]func(Event))}
}

// add registers a listener and returns its removal function.
func (ls *listenerSet) add(fn func(Event)) func() {
	id := uuid.New()

	ls.mu.Lock()
	ls.order = append(ls.order, id)
	ls.fns[id] = fn
	ls.mu.Unlock()

	return func() {
		ls.mu.Lock()
		defer ls.mu.Unlock()
		if _, ok := ls.fns[id]; !ok {
			return
		}
		delete(ls.fns, id)
		for i, other := range ls.order {
			if other == id {
				ls.order = append(ls.order[:i], ls.order[i+1:]...)
				break
			}
		}
	}
}

// emit dispatches the event to every registered listener in
// registration order.
func (ls *listenerSet) emit(ev Event) {
	ls.mu.Lock()
	fns := make([]func(Event), 0, len(ls.order))
	for _, id := range ls.order {
		if fn, ok := ls.fns[id]; ok {
			fns = append(fns, fn)
		}
	}
	ls.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}
