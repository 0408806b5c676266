package openneon

import (
	"context"

	"github.com/michaelhil/open-neon-go/config"
	"github.com/michaelhil/open-neon-go/connection"
	"github.com/michaelhil/open-neon-go/device"
	"github.com/michaelhil/open-neon-go/discovery"
)

// Connect dials a device at "host[:port]" and blocks until connected.
func Connect(ctx context.Context, address string, cfg config.Config, opts ...connection.Option) (*connection.Connection, error) {
	conn, err := connection.New(address, cfg, opts...)
	if err != nil {
		return nil, err
	}
	if err := conn.Connect(ctx); err != nil {
		_ = conn.Disconnect()
		return nil, err
	}
	return conn, nil
}

// Discover browses the local network for the configured discovery
// timeout and returns every device found.
func Discover(ctx context.Context, cfg config.Config) ([]device.Descriptor, error) {
	return discovery.New(cfg).Discover(ctx)
}

// DiscoverAndConnect connects to the first device that answers
// discovery.
func DiscoverAndConnect(ctx context.Context, cfg config.Config, opts ...connection.Option) (*connection.Connection, error) {
	desc, err := discovery.New(cfg).DiscoverFirst(ctx)
	if err != nil {
		return nil, err
	}
	conn, err := connection.NewFromDescriptor(&desc, cfg, opts...)
	if err != nil {
		return nil, err
	}
	if err := conn.Connect(ctx); err != nil {
		_ = conn.Disconnect()
		return nil, err
	}
	return conn, nil
}
