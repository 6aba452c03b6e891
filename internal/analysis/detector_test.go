package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"openclaw-bot/internal/market"
)

func buildWindow(bars [][4]float64) market.Window {
	base := time.Date(2026, 2, 15, 12, 0, 0, 0, time.UTC)
	w := make(market.Window, len(bars))
	for i, b := range bars {
		w[i] = market.Candle{
			OpenTime: base.Add(time.Duration(i) * 5 * time.Minute),
			Open:     b[0],
			High:     b[1],
			Low:      b[2],
			Close:    b[3],
			Volume:   100,
		}
	}
	return w
}

// bullishSetupWindow has a swing high of 110 at index 7 (the maximum over the
// full centered 11-candle window), a bullish FVG on the final candle
// (low 110.9 clears high[13]=108, with bullish momentum at index 14), and a
// displacement-grade final candle closing above the swing high.
func bullishSetupWindow() market.Window {
	return buildWindow([][4]float64{
		{100, 102, 99, 101},
		{101, 103, 100, 102},
		{102, 104, 101, 103},
		{103, 105, 102, 104},
		{104, 106, 103, 105},
		{105, 107, 104, 106},
		{106, 108, 105, 107},
		{108, 110, 107, 109}, // swing high
		{108, 109, 106, 107},
		{107, 108, 105, 106},
		{106, 107, 104, 105},
		{105, 106, 103, 104},
		{104, 105, 102, 103},
		{103, 108, 102, 107},
		{107, 109.5, 106.5, 109}, // momentum confirmation
		{111, 121, 110.9, 120},   // displacement close through the swing high
	})
}

func bearishSetupWindow() market.Window {
	return buildWindow([][4]float64{
		{100, 101, 98, 99},
		{99, 100, 97, 98},
		{98, 99, 96, 97},
		{97, 98, 95, 96},
		{96, 97, 94, 95},
		{95, 96, 93, 94},
		{94, 95, 92, 93},
		{92, 93, 90, 91}, // swing low
		{92, 94, 91, 93},
		{93, 95, 92, 94},
		{94, 96, 93, 95},
		{95, 97, 94, 96},
		{96, 98, 95, 97},
		{97, 98, 92, 93},
		{93, 93.5, 90.5, 91}, // momentum confirmation
		{89, 89.1, 79, 80},   // displacement close through the swing low
	})
}

func TestDetectBullishSetup(t *testing.T) {
	d := NewDetector("BTCUSDT", "5m")
	snap := d.Detect(bullishSetupWindow())

	require.True(t, snap.ValidPOIFound)
	assert.Equal(t, SetupBullishDisplacement, snap.SetupType)

	require.False(t, snap.BullishFVG.Empty())
	assert.Equal(t, 110.9, *snap.BullishFVG.Top)
	assert.Equal(t, 108.0, *snap.BullishFVG.Bottom)

	// Stop reference is the far (bottom) boundary of the bullish gap.
	require.NotNil(t, snap.StopReference)
	assert.Equal(t, 108.0, *snap.StopReference)

	require.NotNil(t, snap.LastSwingHigh)
	assert.Equal(t, 110.0, *snap.LastSwingHigh)
	assert.Nil(t, snap.LastSwingLow)
}

func TestDetectBearishSetup(t *testing.T) {
	d := NewDetector("BTCUSDT", "5m")
	snap := d.Detect(bearishSetupWindow())

	require.True(t, snap.ValidPOIFound)
	assert.Equal(t, SetupBearishDisplacement, snap.SetupType)

	require.False(t, snap.BearishFVG.Empty())
	assert.Equal(t, 92.0, *snap.BearishFVG.Top)
	assert.InDelta(t, 89.1, *snap.BearishFVG.Bottom, 1e-9)

	// Stop reference is the far (top) boundary of the bearish gap.
	require.NotNil(t, snap.StopReference)
	assert.Equal(t, 92.0, *snap.StopReference)

	require.NotNil(t, snap.LastSwingLow)
	assert.Equal(t, 90.0, *snap.LastSwingLow)
}

func TestDetectFlatWindowHasNoPOI(t *testing.T) {
	bars := make([][4]float64, 20)
	for i := range bars {
		bars[i] = [4]float64{100, 101, 99, 100.2}
	}
	d := NewDetector("BTCUSDT", "5m")
	snap := d.Detect(buildWindow(bars))

	assert.False(t, snap.ValidPOIFound)
	assert.Equal(t, SetupNone, snap.SetupType)
	assert.Nil(t, snap.StopReference)
	assert.True(t, snap.BullishFVG.Empty())
	assert.True(t, snap.BearishFVG.Empty())
}

func TestDetectShortWindowHasNoPOI(t *testing.T) {
	d := NewDetector("BTCUSDT", "5m")
	snap := d.Detect(bullishSetupWindow()[:4])

	assert.False(t, snap.ValidPOIFound)
	assert.Nil(t, snap.StopReference)
	assert.Nil(t, snap.LastSwingHigh)
	assert.Nil(t, snap.LastSwingLow)
}

func TestDetectIsDeterministic(t *testing.T) {
	d := NewDetector("BTCUSDT", "5m")
	w := bullishSetupWindow()

	first := d.Detect(w)
	second := d.Detect(w)

	assert.Equal(t, first, second)
}

func TestDisplacementRequiresDominantBody(t *testing.T) {
	// Same structure as the bullish setup but the final candle is a long
	// wick: body/range well under the displacement threshold.
	w := bullishSetupWindow()
	w[len(w)-1] = market.Candle{
		OpenTime: w[len(w)-1].OpenTime,
		Open:     111, High: 121, Low: 110.9, Close: 113,
		Volume: 100,
	}

	d := NewDetector("BTCUSDT", "5m")
	snap := d.Detect(w)

	assert.False(t, snap.ValidPOIFound)
}
