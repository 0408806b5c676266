// Package discovery locates eye trackers on the local network with
// multicast DNS. Devices advertise the "_http._tcp" service type and
// identify their family through the instance name prefix ("Neon …" or
// "PI …"); everything else on the network is filtered out.
//
// Discovery needs multicast support on the interface and mDNS
// (UDP 5353) open on the local segment.
package discovery

import (
	"context"
	"log/slog"
	"time"

	"github.com/grandcat/zeroconf"
	"golang.org/x/sync/errgroup"

	"github.com/michaelhil/open-neon-go/config"
	"github.com/michaelhil/open-neon-go/device"
	"github.com/michaelhil/open-neon-go/errors"
)

// Default mDNS browse parameters.
const (
	ServiceType = "_http._tcp"
	Domain      = "local."

	// defaultTTL is the presence lifetime assumed for advertisements
	// that carry no TTL.
	defaultTTL = 75 * time.Second
)

// Event is the discovery event union for Watch sessions.
type Event interface {
	discoveryEvent()
}

// DeviceFound announces a device seen for the first time in this
// session, or seen again after a DeviceLost.
type DeviceFound struct {
	Descriptor device.Descriptor
}

// DeviceLost announces that a device stopped re-announcing within its
// advertisement lifetime.
type DeviceLost struct {
	ID string
}

func (DeviceFound) discoveryEvent() {}
func (DeviceLost) discoveryEvent()  {}

// Resolver is the mDNS browse capability. Implementations must close
// the entries channel once the context ends.
type Resolver interface {
	Browse(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error
}

// mdnsResolver browses with a fresh zeroconf resolver per call; the
// underlying resolver is single-browse.
type mdnsResolver struct{}

func (mdnsResolver) Browse(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error {
	r, err := zeroconf.NewResolver(nil)
	if err != nil {
		return errors.Wrap(err, errors.KindConnection, errors.CodeConnectionFailed,
			"create mdns resolver")
	}
	return r.Browse(ctx, service, domain, entries)
}

// Browser runs mDNS discovery sessions. Safe for concurrent use; each
// session browses independently.
type Browser struct {
	resolver Resolver
	logger   *slog.Logger
	service  string
	domain   string
	timeout  time.Duration
	ttl      time.Duration // overrides advertised TTLs when set
}

// Option configures a Browser.
type Option func(*Browser)

// WithResolver injects the browse capability.
func WithResolver(r Resolver) Option {
	return func(b *Browser) { b.resolver = r }
}

// WithLogger sets the discovery logger; nil means slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(b *Browser) { b.logger = logger }
}

// WithService overrides the advertised service type and domain.
func WithService(service, domain string) Option {
	return func(b *Browser) {
		b.service = service
		b.domain = domain
	}
}

// WithTTL overrides advertised presence lifetimes; Watch reports a
// device lost once it stays silent for this long.
func WithTTL(ttl time.Duration) Option {
	return func(b *Browser) { b.ttl = ttl }
}

// New creates a Browser with the configuration's discovery timeout.
func New(cfg config.Config, opts ...Option) *Browser {
	cfg.ApplyDefaults()
	b := &Browser{
		resolver: mdnsResolver{},
		service:  ServiceType,
		domain:   Domain,
		timeout:  cfg.DiscoveryTimeout.Std(),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	return b
}

// descriptorFromEntry converts a browse entry, rejecting services that
// are not eye trackers.
func descriptorFromEntry(entry *zeroconf.ServiceEntry) (device.Descriptor, bool) {
	model := device.ModelFromName(entry.Instance)
	if model == device.ModelUnknown {
		return device.Descriptor{}, false
	}
	if len(entry.AddrIPv4) == 0 {
		return device.Descriptor{}, false
	}
	return device.Descriptor{
		ID:    entry.Instance,
		Name:  entry.Instance,
		Model: model,
		IP:    entry.AddrIPv4[0].String(),
		Port:  entry.Port,
	}, true
}

// Discover browses for the full timeout and returns every device seen,
// deduplicated by instance name. An empty result is not an error.
func (b *Browser) Discover(ctx context.Context) ([]device.Descriptor, error) {
	var found []device.Descriptor
	err := b.browse(ctx, func(desc device.Descriptor) bool {
		found = append(found, desc)
		return true
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// DiscoverFirst returns as soon as one device answers. A silent
// network is a device-not-found error.
func (b *Browser) DiscoverFirst(ctx context.Context) (device.Descriptor, error) {
	var found *device.Descriptor
	err := b.browse(ctx, func(desc device.Descriptor) bool {
		found = &desc
		return false
	})
	if err != nil {
		return device.Descriptor{}, err
	}
	if found == nil {
		return device.Descriptor{}, errors.Device(errors.CodeDeviceNotFound,
			"no device answered discovery").
			WithDetails(map[string]any{"timeout": b.timeout.String()})
	}
	return *found, nil
}

// Watch emits DeviceFound and DeviceLost events until the context
// ends. Unlike Discover it ignores the configured timeout; the
// caller's context is the only bound. A device is lost when it stops
// re-announcing within its advertisement lifetime.
func (b *Browser) Watch(ctx context.Context, fn func(Event)) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry, 16)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return b.resolver.Browse(gctx, b.service, b.domain, entries)
	})
	g.Go(func() error {
		sweep := time.Second
		if b.ttl > 0 && b.ttl/2 < sweep {
			sweep = b.ttl / 2
		}
		ticker := time.NewTicker(sweep)
		defer ticker.Stop()

		expiry := make(map[string]time.Time)
		for {
			select {
			case entry, ok := <-entries:
				if !ok {
					return nil
				}
				desc, valid := descriptorFromEntry(entry)
				if !valid {
					continue
				}
				if _, present := expiry[desc.ID]; !present {
					b.logger.Debug("device found",
						"name", desc.Name, "model", desc.Model, "addr", desc.Address())
					fn(DeviceFound{Descriptor: desc})
				}
				expiry[desc.ID] = time.Now().Add(b.entryTTL(entry))
			case now := <-ticker.C:
				for id, deadline := range expiry {
					if now.After(deadline) {
						delete(expiry, id)
						b.logger.Debug("device lost", "id", id)
						fn(DeviceLost{ID: id})
					}
				}
			case <-gctx.Done():
				return nil
			}
		}
	})

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// entryTTL resolves the presence lifetime for one advertisement.
func (b *Browser) entryTTL(entry *zeroconf.ServiceEntry) time.Duration {
	if b.ttl > 0 {
		return b.ttl
	}
	if entry.TTL > 0 {
		return time.Duration(entry.TTL) * time.Second
	}
	return defaultTTL
}

// browse runs one bounded session; fn returning false stops it early.
func (b *Browser) browse(ctx context.Context, fn func(device.Descriptor) bool) error {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	return b.browseContext(ctx, fn)
}

func (b *Browser) browseContext(ctx context.Context, fn func(device.Descriptor) bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry, 16)
	seen := make(map[string]bool)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return b.resolver.Browse(gctx, b.service, b.domain, entries)
	})
	g.Go(func() error {
		for entry := range entries {
			desc, ok := descriptorFromEntry(entry)
			if !ok || seen[desc.ID] {
				continue
			}
			seen[desc.ID] = true
			b.logger.Debug("device discovered",
				"name", desc.Name, "model", desc.Model, "addr", desc.Address())
			if !fn(desc) {
				cancel()
				return nil
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
