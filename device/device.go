// Package device defines the device descriptor and model capabilities
// shared by discovery and the connection core.
package device

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/michaelhil/open-neon-go/errors"
	"github.com/michaelhil/open-neon-go/pkg/netutil"
)

// Model identifies the device family. The two supported families have
// distinct capability sets.
type Model string

const (
	// ModelNeon is the current-generation tracker with on-device
	// calibration support.
	ModelNeon Model = "neon"
	// ModelInvisible is the previous-generation tracker; calibration
	// is factory-fixed and cannot be started remotely.
	ModelInvisible Model = "invisible"
	// ModelUnknown is used for synthetic descriptors before the first
	// status merge.
	ModelUnknown Model = ""
)

// SupportsCalibration reports whether the model accepts remote
// calibration commands.
func (m Model) SupportsCalibration() bool {
	return m == ModelNeon
}

// ModelFromName derives the model from an advertised service instance
// name. Neon devices announce as "Neon …", Invisible devices as "PI …".
func ModelFromName(name string) Model {
	switch {
	case strings.HasPrefix(name, "Neon"):
		return ModelNeon
	case strings.HasPrefix(name, "PI"):
		return ModelInvisible
	default:
		return ModelUnknown
	}
}

// Descriptor is the identity and network location of one device.
// A Connection owns its descriptor exclusively: only the status
// handler mutates it, and callers read defensive snapshots.
//
// JSON tags match the device status payload, so a status body merges
// directly: absent fields keep their current values.
type Descriptor struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Model        Model  `json:"model"`
	Serial       string `json:"serial"`
	Firmware     string `json:"firmware"`
	BatteryLevel int    `json:"batteryLevel"`
	Charging     bool   `json:"isCharging"`
	Worn         bool   `json:"isWorn"`
	IP           string `json:"ip"`
	Port         int    `json:"port"`
}

// Synthetic builds a placeholder descriptor for a direct-address
// connection. Identity fields are filled in by the first status merge.
func Synthetic(host string, port int) *Descriptor {
	return &Descriptor{
		ID:   fmt.Sprintf("direct:%s:%d", host, port),
		Name: host,
		IP:   host,
		Port: port,
	}
}

// Merge applies a JSON status object over the descriptor in place.
// Fields absent from the payload keep their current values; battery is
// bounds-checked after merging.
func (d *Descriptor) Merge(data []byte) error {
	if err := json.Unmarshal(data, d); err != nil {
		return errors.Wrap(err, errors.KindData, errors.CodeInvalidFormat,
			"merge status payload into descriptor")
	}
	d.BatteryLevel = netutil.ClampPercent(d.BatteryLevel)
	return nil
}

// Snapshot returns a defensive copy for callers.
func (d *Descriptor) Snapshot() Descriptor {
	return *d
}

// Address returns the "host:port" form of the device location.
func (d *Descriptor) Address() string {
	return fmt.Sprintf("%s:%d", d.IP, d.Port)
}
