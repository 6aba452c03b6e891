package analysis

import "time"

// SetupType classifies the structural setup found on a closed candle.
type SetupType string

const (
	SetupNone                SetupType = ""
	SetupBullishDisplacement SetupType = "BULLISH_DISPLACEMENT"
	SetupBearishDisplacement SetupType = "BEARISH_DISPLACEMENT"
)

// FVGZone is a fair-value-gap price zone. Both bounds are nil when no gap is
// present on the evaluated candle.
type FVGZone struct {
	Top    *float64 `json:"top"`
	Bottom *float64 `json:"bottom"`
}

// Empty reports whether the zone carries no gap.
func (z FVGZone) Empty() bool {
	return z.Top == nil && z.Bottom == nil
}

// Snapshot is the deterministic market-structure state derived from one
// locked window. It is constructed once and never mutated.
type Snapshot struct {
	Timestamp     time.Time `json:"timestamp"`
	Symbol        string    `json:"symbol"`
	Timeframe     string    `json:"timeframe"`
	ValidPOIFound bool      `json:"valid_poi_found"`
	SetupType     SetupType `json:"setup_type,omitempty"`
	StopReference *float64  `json:"stop_reference"`
	BullishFVG    FVGZone   `json:"closest_bullish_fvg"`
	BearishFVG    FVGZone   `json:"closest_bearish_fvg"`
	LastSwingHigh *float64  `json:"last_swing_high"`
	LastSwingLow  *float64  `json:"last_swing_low"`
}
