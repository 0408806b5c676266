package connection

import (
	"github.com/michaelhil/open-neon-go/errors"
	"github.com/michaelhil/open-neon-go/gaze"
)

// GazeObserver receives gaze stream callbacks. Callbacks fire from the
// stream's fan-out goroutine in frame order; OnError and OnComplete are
// terminal and mutually exclusive, and nothing fires after either.
type GazeObserver struct {
	OnSample   func(gaze.Sample)
	OnError    func(*errors.Error)
	OnComplete func()
}

// Subscription is one observer's attachment to a gaze stream.
type Subscription struct {
	cancel func()
}

// Unsubscribe detaches the observer. Idempotent. When the last
// subscriber of a stream variant detaches, the underlying channel
// closes; detaching does not fire OnComplete.
func (s *Subscription) Unsubscribe() {
	s.cancel()
}

// GazeStream is a cold handle on one gaze stream variant. Creating it
// touches no network; the channel opens on the first Subscribe and
// handles with equal configs share one channel.
type GazeStream struct {
	conn *Connection
	cfg  gaze.Config
}

// GazeStream returns a cold handle for the given stream variant.
func (c *Connection) GazeStream(cfg gaze.Config) *GazeStream {
	return &GazeStream{conn: c, cfg: cfg}
}

// Subscribe attaches an observer. While not Connected the observer
// receives an immediate terminal device-not-connected error and the
// returned Subscription is inert.
func (s *GazeStream) Subscribe(observer GazeObserver) *Subscription {
	return s.conn.streams.subscribe(s.cfg, observer)
}
