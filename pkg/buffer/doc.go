// Package buffer provides the bounded ring buffer backing the blocking
// façade and stream fan-out paths.
//
// The ring has fixed capacity and drop-oldest overflow semantics: a
// writer never blocks, and a reader consuming slower than the
// production rate loses the oldest unread items, not the newest.
// Length never exceeds capacity; after N writes without reads the ring
// holds exactly the most recent N items in insertion order.
//
// Statistics are always collected; Prometheus metrics are opt-in via
// WithMetrics.
package buffer
