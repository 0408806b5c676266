// Package netutil provides small address-parsing helpers shared by the
// connection core and discovery.
package netutil

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/michaelhil/open-neon-go/errors"
)

// DefaultPort is the HTTP/WebSocket port the device API listens on.
const DefaultPort = 8080

// ParseAddress splits a "host" or "host:port" string. A missing port
// yields defaultPort. A non-numeric or out-of-range port segment fails
// with an invalid-parameter error naming the offending segment.
func ParseAddress(address string, defaultPort int) (host string, port int, err error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return "", 0, errors.InvalidParameter("address must not be empty")
	}

	host = address
	port = defaultPort

	if idx := strings.LastIndex(address, ":"); idx >= 0 {
		host = address[:idx]
		portStr := address[idx+1:]
		if host == "" {
			return "", 0, errors.InvalidParameter(
				fmt.Sprintf("address %q has empty host", address))
		}
		p, convErr := strconv.Atoi(portStr)
		if convErr != nil {
			return "", 0, errors.InvalidParameter(
				fmt.Sprintf("address %q has non-numeric port %q", address, portStr))
		}
		if p < 1 || p > 65535 {
			return "", 0, errors.InvalidParameter(
				fmt.Sprintf("address %q has out-of-range port %d", address, p))
		}
		port = p
	}

	return host, port, nil
}

// ClampPercent bounds a battery-style percentage to [0, 100].
func ClampPercent(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
