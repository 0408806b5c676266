package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michaelhil/open-neon-go/errors"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 5*time.Second, cfg.ConnectTimeout.Std())
	assert.False(t, cfg.DisableAutoReconnect, "reconnection must default to on")
	assert.Equal(t, time.Second, cfg.ReconnectInterval.Std())
	assert.Equal(t, 10, cfg.MaxReconnectAttempts)
	assert.Equal(t, 1000, cfg.StreamBufferSize)
	require.NoError(t, cfg.Validate())
}

func TestApplyDefaults_FillsZeroValues(t *testing.T) {
	cfg := Config{MaxReconnectAttempts: 3}
	cfg.ApplyDefaults()

	assert.Equal(t, 3, cfg.MaxReconnectAttempts)
	assert.Equal(t, 5*time.Second, cfg.ConnectTimeout.Std())
	assert.Equal(t, 1000, cfg.StreamBufferSize)
	// The zero value keeps the reconnect protocol enabled.
	assert.False(t, cfg.DisableAutoReconnect)
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero connect timeout", func(c *Config) { c.ConnectTimeout = 0 }},
		{"tiny reconnect interval", func(c *Config) { c.ReconnectInterval = Duration(time.Millisecond) }},
		{"zero reconnect attempts", func(c *Config) { c.MaxReconnectAttempts = 0 }},
		{"huge reconnect attempts", func(c *Config) { c.MaxReconnectAttempts = 5000 }},
		{"zero buffer", func(c *Config) { c.StreamBufferSize = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Equal(t, errors.CodeInvalidParameter, errors.CodeOf(err))
		})
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "client.yaml")
	content := `
connect_timeout: 2s
disable_auto_reconnect: true
reconnect_interval: 500
max_reconnect_attempts: 4
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, 2*time.Second, cfg.ConnectTimeout.Std())
	assert.True(t, cfg.DisableAutoReconnect)
	assert.Equal(t, 500*time.Millisecond, cfg.ReconnectInterval.Std())
	assert.Equal(t, 4, cfg.MaxReconnectAttempts)
	// Unset keys keep defaults.
	assert.Equal(t, 1000, cfg.StreamBufferSize)
}

func TestLoadFile_MissingFile(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadFile_Malformed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("connect_timeout: [oops"), 0o600))

	_, err := LoadFile(path)
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidFormat, errors.CodeOf(err))
}

func TestDuration_Forms(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dur.yaml")
	require.NoError(t, os.WriteFile(path,
		[]byte("connect_timeout: 1500\nrequest_timeout: 750ms\n"), 0o600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1500*time.Millisecond, cfg.ConnectTimeout.Std())
	assert.Equal(t, 750*time.Millisecond, cfg.RequestTimeout.Std())
}
