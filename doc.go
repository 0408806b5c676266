// Package openneon is a client library for Pupil Labs Neon and Pupil
// Invisible eye trackers: discovery over mDNS, device control over
// HTTP, and real-time gaze and status streaming over WebSocket push
// channels.
//
// # Two API Levels
//
// The connection package is the full event-driven surface: an explicit
// lifecycle state machine, typed lifecycle events, multiplexed gaze
// streams with observer callbacks, and automatic reconnection of the
// control channel.
//
//	conn, _ := connection.New("192.168.1.50:8080", config.Default())
//	conn.OnEvent(func(ev connection.Event) { ... })
//	conn.Connect(ctx)
//	sub := conn.GazeStream(gaze.Config{}).Subscribe(connection.GazeObserver{
//	    OnSample: func(s gaze.Sample) { ... },
//	})
//	defer sub.Unsubscribe()
//
// The simple package is the blocking façade for scripts and experiment
// harnesses: connect, pull samples with a timeout, record, close.
//
//	dev, _ := simple.Connect(ctx, "192.168.1.50", config.Default())
//	defer dev.Close()
//	sample, _ := dev.ReceiveGaze(time.Second)
//
// # Lifecycle
//
// A connection moves through Disconnected, Connecting, Connected,
// Reconnecting and Error. The control channel (a WebSocket on
// /api/status) drives the state: an unexpected close while Connected
// starts the reconnect protocol when auto-reconnect is enabled, with a
// fixed interval and a hard attempt ceiling. Gaze channels are
// independent: losing one fails that stream's subscribers without
// touching the connection.
//
// # Packages
//
//   - discovery: mDNS browse for devices on the local network
//   - connection: lifecycle state machine, device API, gaze streams
//   - simple: blocking façade over one connection
//   - device: descriptor and model capabilities
//   - gaze: sample type, stream configs, frame decoding
//   - transport: HTTP + WebSocket network layer
//   - config: client configuration with YAML loading
//   - errors: classified errors with kinds, codes and details
//   - metric: Prometheus registry plumbing
//   - devicetest: in-process fake device for tests
package openneon
