package gaze

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michaelhil/open-neon-go/errors"
)

func TestDecode(t *testing.T) {
	frame := []byte(`{"x": 512.5, "y": 384.25, "worn": true, "timestamp": 1700000000000000000}`)

	s, err := Decode(frame)
	require.NoError(t, err)
	assert.Equal(t, 512.5, s.X)
	assert.Equal(t, 384.25, s.Y)
	assert.True(t, s.Worn)
	assert.Equal(t, time.Unix(0, 1700000000000000000), s.Time())
}

func TestDecode_BadFrame(t *testing.T) {
	_, err := Decode([]byte(`{"x": not-json`))

	require.Error(t, err)
	assert.Equal(t, errors.KindStream, errors.KindOf(err))
	assert.Equal(t, errors.CodeStreamDecodeError, errors.CodeOf(err))
}

func TestConfig_Key(t *testing.T) {
	a := Config{SampleRate: 200}
	b := Config{SampleRate: 200}
	c := Config{SampleRate: 100}

	assert.Equal(t, a.Key(), b.Key())
	assert.NotEqual(t, a.Key(), c.Key())
	assert.NotEqual(t, a.Key(), Config{SampleRate: 200, IncludeEyeStates: true}.Key())
}

func TestConfig_Query(t *testing.T) {
	assert.Empty(t, Config{}.Query())
	assert.Equal(t, "?rate=100&eyeStates=true",
		Config{SampleRate: 100, IncludeEyeStates: true}.Query())
}
