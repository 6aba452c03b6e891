package market

import "time"

// Candle is a single OHLCV aggregate over a fixed time bucket.
// OpenTime is always UTC.
type Candle struct {
	OpenTime time.Time `json:"open_time"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	Volume   float64   `json:"volume"`
}

// Body returns the absolute size of the candle body.
func (c Candle) Body() float64 {
	if c.Close > c.Open {
		return c.Close - c.Open
	}
	return c.Open - c.Close
}

// Range returns the full high-low range of the candle.
func (c Candle) Range() float64 {
	return c.High - c.Low
}

// Bullish reports whether the candle closed above its open.
func (c Candle) Bullish() bool {
	return c.Close > c.Open
}

// Bearish reports whether the candle closed below its open.
func (c Candle) Bearish() bool {
	return c.Close < c.Open
}

// Window is a sequence of candles ordered by OpenTime, strictly increasing.
// A window handed downstream as "locked" contains only candles whose close
// time has irrevocably passed; it is re-derived per cycle, never mutated.
type Window []Candle

// Last returns the final candle of the window. Callers must check Len first.
func (w Window) Last() Candle {
	return w[len(w)-1]
}

// Copy returns an independent copy of the window.
func (w Window) Copy() Window {
	out := make(Window, len(w))
	copy(out, w)
	return out
}
