package analysis

import (
	"openclaw-bot/internal/market"
)

const (
	// minWindowLen is the smallest window the detector will evaluate.
	minWindowLen = 5
	// defaultSwingLookback is the half-width of the centered swing window.
	defaultSwingLookback = 5
	// displacementRatio is the minimum body/range share for a
	// displacement-grade candle.
	displacementRatio = 0.70
)

// Detector computes fair-value-gap and market-structure-shift signals over a
// locked window. It is pure: no I/O, no retained state, identical windows
// always produce identical snapshots.
type Detector struct {
	symbol        string
	timeframe     string
	swingLookback int
}

func NewDetector(symbol, timeframe string) *Detector {
	return &Detector{
		symbol:        symbol,
		timeframe:     timeframe,
		swingLookback: defaultSwingLookback,
	}
}

// Detect evaluates the final candle of the window for a tradeable point of
// interest. Windows shorter than five candles yield an empty snapshot.
func (d *Detector) Detect(w market.Window) Snapshot {
	snap := Snapshot{
		Symbol:    d.symbol,
		Timeframe: d.timeframe,
	}
	if len(w) > 0 {
		snap.Timestamp = w.Last().OpenTime
	}
	if len(w) < minWindowLen {
		return snap
	}

	i := len(w) - 1

	bullFVG, bullZone := bullishFVGAt(w, i)
	bearFVG, bearZone := bearishFVGAt(w, i)
	snap.BullishFVG = bullZone
	snap.BearishFVG = bearZone

	lastSwingHigh, lastSwingLow := d.lastSwings(w)
	snap.LastSwingHigh = lastSwingHigh
	snap.LastSwingLow = lastSwingLow

	last := w.Last()
	displaced := isDisplacement(last)

	bullMSS := lastSwingHigh != nil && last.Close > *lastSwingHigh && displaced && last.Bullish()
	bearMSS := lastSwingLow != nil && last.Close < *lastSwingLow && displaced && last.Bearish()

	switch {
	case bullMSS && bullFVG:
		snap.ValidPOIFound = true
		snap.SetupType = SetupBullishDisplacement
		// Stop sits beyond the far side of the gap.
		snap.StopReference = bullZone.Bottom
	case bearMSS && bearFVG:
		snap.ValidPOIFound = true
		snap.SetupType = SetupBearishDisplacement
		snap.StopReference = bearZone.Top
	}

	return snap
}

// bullishFVGAt reports a bullish three-candle imbalance ending at index i:
// the candle's low clears the high from two candles back, with bullish
// momentum confirmation on the middle candle. The zone spans from that prior
// high up to the current low.
func bullishFVGAt(w market.Window, i int) (bool, FVGZone) {
	if i < 2 {
		return false, FVGZone{}
	}
	if w[i].Low > w[i-2].High && w[i-1].Bullish() {
		top := w[i].Low
		bottom := w[i-2].High
		return true, FVGZone{Top: &top, Bottom: &bottom}
	}
	return false, FVGZone{}
}

// bearishFVGAt is the mirror: the candle's high stays below the low from two
// candles back, with bearish momentum confirmation on the middle candle.
func bearishFVGAt(w market.Window, i int) (bool, FVGZone) {
	if i < 2 {
		return false, FVGZone{}
	}
	if w[i].High < w[i-2].Low && w[i-1].Bearish() {
		top := w[i-2].Low
		bottom := w[i].High
		return true, FVGZone{Top: &top, Bottom: &bottom}
	}
	return false, FVGZone{}
}

// lastSwings returns the most recent swing-high and swing-low values carried
// forward to the end of the window. A candle is a swing point only when the
// full centered window of 2*lookback+1 candles exists around it, so the final
// lookback candles can never themselves be swing points yet.
func (d *Detector) lastSwings(w market.Window) (*float64, *float64) {
	l := d.swingLookback
	var swingHigh, swingLow *float64

	for j := l; j <= len(w)-1-l; j++ {
		maxHigh := w[j-l].High
		minLow := w[j-l].Low
		for k := j - l + 1; k <= j+l; k++ {
			if w[k].High > maxHigh {
				maxHigh = w[k].High
			}
			if w[k].Low < minLow {
				minLow = w[k].Low
			}
		}
		if w[j].High == maxHigh {
			v := w[j].High
			swingHigh = &v
		}
		if w[j].Low == minLow {
			v := w[j].Low
			swingLow = &v
		}
	}

	return swingHigh, swingLow
}

// isDisplacement reports whether the candle body dominates its total range.
func isDisplacement(c market.Candle) bool {
	r := c.Range()
	if r == 0 {
		return false
	}
	return c.Body()/r > displacementRatio
}
