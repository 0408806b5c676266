// Package gaze defines the gaze sample type, the per-stream
// configuration, and the frame decoder used by the stream multiplexer.
package gaze

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/michaelhil/open-neon-go/errors"
)

// Sample is one decoded gaze datum. Coordinates are scene-camera
// pixels; Timestamp is device time in nanoseconds since the Unix epoch.
type Sample struct {
	X             float64 `json:"x"`
	Y             float64 `json:"y"`
	Worn          bool    `json:"worn"`
	Timestamp     int64   `json:"timestamp"`
	PupilDiameter float64 `json:"pupilDiameter,omitempty"`
}

// Time converts the device timestamp to wall-clock time.
func (s Sample) Time() time.Time {
	return time.Unix(0, s.Timestamp)
}

// Decode parses one raw frame. Failure is a Stream-kind decode error;
// the multiplexer delivers it as a terminal error to the affected
// stream's subscribers only.
func Decode(data []byte) (Sample, error) {
	var s Sample
	if err := json.Unmarshal(data, &s); err != nil {
		return Sample{}, errors.Stream(errors.CodeStreamDecodeError,
			"decode gaze frame", err)
	}
	return s, nil
}

// Config selects the gaze stream variant. Streams with equal configs
// share one underlying channel.
type Config struct {
	// SampleRate in Hz; zero means the device default (200 on Neon,
	// 66 on Invisible — the device decides).
	SampleRate int `json:"sampleRate" yaml:"sample_rate"`

	// IncludeEyeStates requests pupillometry fields where the model
	// supports them.
	IncludeEyeStates bool `json:"includeEyeStates" yaml:"include_eye_states"`
}

// Key returns the canonical serialization used for stream
// multiplexing. Two configs with equal keys share a channel.
func (c Config) Key() string {
	return fmt.Sprintf("gaze?rate=%d&eyeStates=%t", c.SampleRate, c.IncludeEyeStates)
}

// Query returns the query string appended to the gaze channel path.
// Empty when everything is at device defaults.
func (c Config) Query() string {
	if c.SampleRate == 0 && !c.IncludeEyeStates {
		return ""
	}
	return fmt.Sprintf("?rate=%d&eyeStates=%t", c.SampleRate, c.IncludeEyeStates)
}
