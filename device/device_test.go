package device

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michaelhil/open-neon-go/errors"
)

func TestSynthetic(t *testing.T) {
	d := Synthetic("192.168.1.42", 8080)

	assert.Equal(t, "direct:192.168.1.42:8080", d.ID)
	assert.Equal(t, "192.168.1.42:8080", d.Address())
	assert.Equal(t, ModelUnknown, d.Model)
}

func TestMerge_PartialPayloadKeepsOtherFields(t *testing.T) {
	d := Synthetic("127.0.0.1", 8081)
	require.NoError(t, d.Merge([]byte(`{"batteryLevel": 85, "isWorn": true}`)))

	assert.Equal(t, 85, d.BatteryLevel)
	assert.True(t, d.Worn)
	assert.Equal(t, "127.0.0.1", d.IP, "absent fields must survive a merge")

	before := d.Snapshot()
	require.NoError(t, d.Merge([]byte(`{"isWorn": false}`)))

	want := before
	want.Worn = false
	if diff := cmp.Diff(want, d.Snapshot()); diff != "" {
		t.Errorf("descriptor mismatch after merge (-want +got):\n%s", diff)
	}
}

func TestMerge_SequenceOrder(t *testing.T) {
	d := Synthetic("127.0.0.1", 8080)
	for _, payload := range []string{
		`{"batteryLevel": 84}`,
		`{"isWorn": false}`,
		`{"batteryLevel": 83}`,
	} {
		require.NoError(t, d.Merge([]byte(payload)))
	}

	assert.Equal(t, 83, d.BatteryLevel)
	assert.False(t, d.Worn)
}

func TestMerge_ClampsBattery(t *testing.T) {
	d := Synthetic("127.0.0.1", 8080)
	require.NoError(t, d.Merge([]byte(`{"batteryLevel": 140}`)))
	assert.Equal(t, 100, d.BatteryLevel)
}

func TestMerge_InvalidJSON(t *testing.T) {
	d := Synthetic("127.0.0.1", 8080)
	err := d.Merge([]byte(`{battery`))

	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidFormat, errors.CodeOf(err))
	assert.Equal(t, errors.KindData, errors.KindOf(err))
}

func TestSnapshot_IsACopy(t *testing.T) {
	d := Synthetic("127.0.0.1", 8080)
	snap := d.Snapshot()
	snap.BatteryLevel = 1

	assert.Equal(t, 0, d.BatteryLevel)
}

func TestModelFromName(t *testing.T) {
	assert.Equal(t, ModelNeon, ModelFromName("Neon Companion"))
	assert.Equal(t, ModelInvisible, ModelFromName("PI monitor 42"))
	assert.Equal(t, ModelUnknown, ModelFromName("printer"))
}

func TestSupportsCalibration(t *testing.T) {
	assert.True(t, ModelNeon.SupportsCalibration())
	assert.False(t, ModelInvisible.SupportsCalibration())
	assert.False(t, ModelUnknown.SupportsCalibration())
}
