package data

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mindrc-gateway/internal/band"
)

func TestParseRangeUpdatePartial(t *testing.T) {
	u, err := ParseRangeUpdate([]byte(`{"medium": 40}`))
	require.NoError(t, err)
	assert.Nil(t, u.High)
	assert.Nil(t, u.Low)
	require.NotNil(t, u.Medium)
	assert.Equal(t, 40, *u.Medium)

	got := u.Apply(band.DefaultThresholds())
	assert.Equal(t, band.Thresholds{High: 75, Medium: 40, Low: 25}, got)
}

func TestParseRangeUpdateLenientFields(t *testing.T) {
	u, err := ParseRangeUpdate([]byte(`{"high": "80", "medium": "lots", "low": 12.9, "extra": true}`))
	require.NoError(t, err)
	require.NotNil(t, u.High)
	assert.Equal(t, 80, *u.High)
	assert.Nil(t, u.Medium)
	require.NotNil(t, u.Low)
	assert.Equal(t, 12, *u.Low) // 12.9 floored
}

func TestParseRangeUpdateFractionsClassifyLikeGiven(t *testing.T) {
	u, err := ParseRangeUpdate([]byte(`{"high": -0.5, "medium": -7.2, "low": -20.9}`))
	require.NoError(t, err)
	th := u.Apply(band.DefaultThresholds())
	assert.Equal(t, band.Thresholds{High: -1, Medium: -8, Low: -21}, th)

	// 0 > -0.5 holds, so attention 0 is band A.
	assert.Equal(t, band.A, band.Classify(0, th))
	assert.Equal(t, band.B, band.Classify(-1, th))
	assert.Equal(t, band.C, band.Classify(-8, th))
	assert.Equal(t, band.D, band.Classify(-21, th))
}

func TestParseRangeUpdateInverted(t *testing.T) {
	u, err := ParseRangeUpdate([]byte(`{"high": 10, "medium": 50, "low": 90}`))
	require.NoError(t, err)
	assert.Equal(t, band.Thresholds{High: 10, Medium: 50, Low: 90}, u.Apply(band.DefaultThresholds()))
}

func TestParseRangeUpdateBadBody(t *testing.T) {
	for _, body := range []string{``, `not json`, `[1,2,3]`} {
		u, err := ParseRangeUpdate([]byte(body))
		assert.Error(t, err, body)
		assert.True(t, u.Empty(), body)
	}

	u, err := ParseRangeUpdate([]byte(`null`))
	require.NoError(t, err)
	assert.True(t, u.Empty())
}
