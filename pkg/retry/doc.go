// Package retry provides the transport primitives used by every network
// operation in the library: a cancellable timeout wrapper and a
// retry-with-backoff helper.
//
// The reconnect protocol uses a fixed interval by default (Multiplier
// 1.0); callers that want growth set a multiplier above 1. All waits
// honour context cancellation, which is what lets Disconnect pre-empt a
// pending reconnect timer.
package retry
