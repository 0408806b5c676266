// Package transport defines the network capability the connection core
// is parameterized over, plus the default implementation backed by
// net/http and gorilla/websocket.
//
// One connection core serves every host environment; swapping the
// Transport swaps the environment. Tests inject counting fakes, the
// library ships the HTTP implementation, and embedded hosts can supply
// their own.
package transport

import (
	"context"
)

// Transport is the capability bundle consumed by the connection core:
// one-shot request/response calls and long-lived push channels.
type Transport interface {
	// Get performs a bounded request and returns the response body.
	// Non-2xx responses surface as API-kind errors carrying the HTTP
	// status and URL.
	Get(ctx context.Context, url string) ([]byte, error)

	// Post sends a JSON body and returns the response body, with the
	// same error contract as Get.
	Post(ctx context.Context, url string, body []byte) ([]byte, error)

	// OpenChannel opens a persistent push channel. The returned
	// channel delivers raw frames in receipt order.
	OpenChannel(ctx context.Context, url string) (Channel, error)
}

// Channel is one long-lived, server-initiated message channel.
type Channel interface {
	// Messages returns the frame stream. The channel is closed on
	// teardown, after which Err reports the terminal cause.
	Messages() <-chan []byte

	// Err returns the terminal cause after Messages closes: nil for a
	// locally requested or clean remote close, the transport error
	// otherwise.
	Err() error

	// Close tears the channel down. Idempotent.
	Close() error
}
