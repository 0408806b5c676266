package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/michaelhil/open-neon-go/errors"
)

// Defaults for all tunables.
const (
	DefaultConnectTimeout       = 5000 * time.Millisecond
	DefaultRequestTimeout       = 3000 * time.Millisecond
	DefaultReconnectInterval    = 1000 * time.Millisecond
	DefaultMaxReconnectAttempts = 10
	DefaultStreamBufferSize     = 1000
	DefaultDiscoveryTimeout     = 10 * time.Second
)

// Config is the complete client configuration.
//
// Reconnection is on by default: the zero value of
// DisableAutoReconnect keeps the reconnect protocol enabled, so a
// literal Config{} and an absent YAML key both get the default
// behaviour.
type Config struct {
	// ConnectTimeout bounds the HTTP handshake and channel open.
	ConnectTimeout Duration `json:"connect_timeout" yaml:"connect_timeout"`

	// RequestTimeout bounds each request/response API call.
	RequestTimeout Duration `json:"request_timeout" yaml:"request_timeout"`

	// DisableAutoReconnect turns off the reconnect protocol after an
	// unexpected control-channel close.
	DisableAutoReconnect bool `json:"disable_auto_reconnect" yaml:"disable_auto_reconnect"`

	// ReconnectInterval is the fixed wait between reconnect attempts.
	ReconnectInterval Duration `json:"reconnect_interval" yaml:"reconnect_interval"`

	// MaxReconnectAttempts is the reconnect ceiling; reaching it is
	// terminal.
	MaxReconnectAttempts int `json:"max_reconnect_attempts" yaml:"max_reconnect_attempts"`

	// StreamBufferSize is the façade ring buffer capacity.
	StreamBufferSize int `json:"stream_buffer_size" yaml:"stream_buffer_size"`

	// DiscoveryTimeout bounds an mDNS browse.
	DiscoveryTimeout Duration `json:"discovery_timeout" yaml:"discovery_timeout"`
}

// Default returns the configuration with all defaults applied.
func Default() Config {
	return Config{
		ConnectTimeout:       Duration(DefaultConnectTimeout),
		RequestTimeout:       Duration(DefaultRequestTimeout),
		ReconnectInterval:    Duration(DefaultReconnectInterval),
		MaxReconnectAttempts: DefaultMaxReconnectAttempts,
		StreamBufferSize:     DefaultStreamBufferSize,
		DiscoveryTimeout:     Duration(DefaultDiscoveryTimeout),
	}
}

// ApplyDefaults fills zero-valued fields from Default.
func (c *Config) ApplyDefaults() {
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = Duration(DefaultConnectTimeout)
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = Duration(DefaultRequestTimeout)
	}
	if c.ReconnectInterval <= 0 {
		c.ReconnectInterval = Duration(DefaultReconnectInterval)
	}
	if c.MaxReconnectAttempts <= 0 {
		c.MaxReconnectAttempts = DefaultMaxReconnectAttempts
	}
	if c.StreamBufferSize <= 0 {
		c.StreamBufferSize = DefaultStreamBufferSize
	}
	if c.DiscoveryTimeout <= 0 {
		c.DiscoveryTimeout = Duration(DefaultDiscoveryTimeout)
	}
}

// Validate rejects configurations that could hang or spin.
func (c Config) Validate() error {
	if c.ConnectTimeout <= 0 {
		return errors.InvalidParameter("connect_timeout must be positive")
	}
	if c.RequestTimeout <= 0 {
		return errors.InvalidParameter("request_timeout must be positive")
	}
	if c.ReconnectInterval < Duration(10*time.Millisecond) {
		return errors.InvalidParameter("reconnect_interval must be at least 10ms")
	}
	if c.MaxReconnectAttempts < 1 || c.MaxReconnectAttempts > 1000 {
		return errors.InvalidParameter(
			fmt.Sprintf("max_reconnect_attempts %d out of range [1,1000]", c.MaxReconnectAttempts))
	}
	if c.StreamBufferSize < 1 {
		return errors.InvalidParameter("stream_buffer_size must be at least 1")
	}
	return nil
}

// LoadFile reads a YAML configuration file over the defaults.
func LoadFile(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, errors.KindGeneral, errors.CodeInvalidParameter,
			fmt.Sprintf("read config file %s", path))
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrap(err, errors.KindData, errors.CodeInvalidFormat,
			fmt.Sprintf("parse config file %s", path))
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
