package netutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michaelhil/open-neon-go/errors"
)

func TestParseAddress_HostOnly(t *testing.T) {
	host, port, err := ParseAddress("192.168.1.50", DefaultPort)
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.50", host)
	assert.Equal(t, DefaultPort, port)
}

func TestParseAddress_HostAndPort(t *testing.T) {
	host, port, err := ParseAddress("127.0.0.1:8081", DefaultPort)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", host)
	assert.Equal(t, 8081, port)
}

func TestParseAddress_Hostname(t *testing.T) {
	host, port, err := ParseAddress("neon.local:9000", DefaultPort)
	require.NoError(t, err)
	assert.Equal(t, "neon.local", host)
	assert.Equal(t, 9000, port)
}

func TestParseAddress_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		address string
	}{
		{"empty", ""},
		{"whitespace", "   "},
		{"non-numeric port", "host:abc"},
		{"empty host", ":8080"},
		{"port zero", "host:0"},
		{"port negative", "host:-1"},
		{"port too large", "host:70000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ParseAddress(tt.address, DefaultPort)
			require.Error(t, err)
			assert.Equal(t, errors.CodeInvalidParameter, errors.CodeOf(err))
		})
	}
}

func TestClampPercent(t *testing.T) {
	assert.Equal(t, 0, ClampPercent(-5))
	assert.Equal(t, 100, ClampPercent(150))
	assert.Equal(t, 42, ClampPercent(42))
}
