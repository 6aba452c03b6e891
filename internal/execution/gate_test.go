package execution

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"openclaw-bot/internal/ai"
	"openclaw-bot/internal/database"
)

type fakeOrderPlacer struct {
	entryErr   error
	stopErr    error
	targetErr  error
	marketCall struct {
		side string
		qty  float64
	}
	stopPrice   float64
	targetPrice float64
	exitSides   []string
}

func (f *fakeOrderPlacer) PlaceMarketOrder(_ context.Context, _, side string, qty float64) (string, error) {
	if f.entryErr != nil {
		return "", f.entryErr
	}
	f.marketCall.side = side
	f.marketCall.qty = qty
	return "live-123", nil
}

func (f *fakeOrderPlacer) PlaceStopMarketClose(_ context.Context, _, side string, stopPrice float64) (string, error) {
	if f.stopErr != nil {
		return "", f.stopErr
	}
	f.stopPrice = stopPrice
	f.exitSides = append(f.exitSides, side)
	return "live-124", nil
}

func (f *fakeOrderPlacer) PlaceTakeProfitMarketClose(_ context.Context, _, side string, stopPrice float64) (string, error) {
	if f.targetErr != nil {
		return "", f.targetErr
	}
	f.targetPrice = stopPrice
	f.exitSides = append(f.exitSides, side)
	return "live-125", nil
}

type fakeTradeStore struct {
	inserted []*database.Trade
	err      error
}

func (f *fakeTradeStore) InsertTrade(_ context.Context, trade *database.Trade) error {
	if f.err != nil {
		return f.err
	}
	trade.ID = int64(len(f.inserted) + 1)
	f.inserted = append(f.inserted, trade)
	return nil
}

func ptr(v float64) *float64 { return &v }

func testConfig(execute bool) Config {
	return Config{
		Symbol:              "BTCUSDT",
		RiskPerTradePercent: 0.01,
		MinRRRatio:          3.0,
		AccountBalance:      10000,
		ExecuteOrders:       execute,
	}
}

func longDecision(entry, target, stopRef float64) ai.Decision {
	return ai.Decision{
		Action:          ai.ActionLong,
		Confidence:      85,
		Reasoning:       "bullish displacement into discount",
		EntryPOI:        ptr(entry),
		TargetLiquidity: ptr(target),
		StopReference:   ptr(stopRef),
	}
}

func TestWaitDecisionIsIgnored(t *testing.T) {
	store := &fakeTradeStore{}
	gate, err := NewGate(&fakeOrderPlacer{}, store, testConfig(false), zerolog.Nop())
	require.NoError(t, err)

	res := gate.ValidateAndExecute(context.Background(), ai.Decision{Action: ai.ActionWait}, 100)
	assert.Equal(t, StatusIgnored, res.Status)
	assert.Empty(t, store.inserted)
}

func TestMissingLevelsRejected(t *testing.T) {
	gate, err := NewGate(&fakeOrderPlacer{}, &fakeTradeStore{}, testConfig(false), zerolog.Nop())
	require.NoError(t, err)

	res := gate.ValidateAndExecute(context.Background(), ai.Decision{
		Action:        ai.ActionLong,
		StopReference: ptr(99),
	}, 100)
	assert.Equal(t, StatusRejected, res.Status)
	assert.Equal(t, "missing levels", res.Reason)
}

func TestLowRRRejectedWithRatioInReason(t *testing.T) {
	gate, err := NewGate(&fakeOrderPlacer{}, &fakeTradeStore{}, testConfig(false), zerolog.Nop())
	require.NoError(t, err)

	// entry 100, stop_ref 99 -> stop 98.901, risk 1.099; target 101 -> RR ~0.91
	res := gate.ValidateAndExecute(context.Background(), longDecision(100, 101, 99), 100)
	assert.Equal(t, StatusRejected, res.Status)
	assert.Contains(t, res.Reason, "0.91")
}

func TestLongAcceptedSizedAndSimulated(t *testing.T) {
	store := &fakeTradeStore{}
	gate, err := NewGate(&fakeOrderPlacer{}, store, testConfig(false), zerolog.Nop())
	require.NoError(t, err)

	// entry 100, stop_ref 99 -> risk 1.099; target 104 -> RR ~3.64
	res := gate.ValidateAndExecute(context.Background(), longDecision(100, 104, 99), 100)
	require.Equal(t, StatusExecuted, res.Status)
	assert.InDelta(t, 98.901, res.StopLoss, 1e-9)
	assert.InDelta(t, 91.0, res.PositionSize, 0.05)
	assert.True(t, strings.HasPrefix(res.OrderID, "sim-"))

	require.Len(t, store.inserted, 1)
	trade := store.inserted[0]
	assert.Equal(t, database.StatusOpen, trade.Status)
	assert.Equal(t, "LONG", trade.Action)
	require.NotNil(t, trade.ExchangeOrderID)
	assert.Equal(t, res.OrderID, *trade.ExchangeOrderID)
}

func TestShortGeometryMirrored(t *testing.T) {
	placer := &fakeOrderPlacer{}
	gate, err := NewGate(placer, &fakeTradeStore{}, testConfig(true), zerolog.Nop())
	require.NoError(t, err)

	res := gate.ValidateAndExecute(context.Background(), ai.Decision{
		Action:          ai.ActionShort,
		Confidence:      80,
		EntryPOI:        ptr(100),
		TargetLiquidity: ptr(96),
		StopReference:   ptr(101),
	}, 100)
	require.Equal(t, StatusExecuted, res.Status)
	assert.InDelta(t, 101.101, res.StopLoss, 1e-9)
	assert.Equal(t, "SELL", placer.marketCall.side)
	assert.Equal(t, []string{"BUY", "BUY"}, placer.exitSides)
	assert.InDelta(t, 101.101, placer.stopPrice, 1e-9)
	assert.InDelta(t, 96, placer.targetPrice, 1e-9)
}

func TestStopOnWrongSideRejected(t *testing.T) {
	gate, err := NewGate(&fakeOrderPlacer{}, &fakeTradeStore{}, testConfig(false), zerolog.Nop())
	require.NoError(t, err)

	// LONG with stop reference above entry: risk distance negative.
	res := gate.ValidateAndExecute(context.Background(), longDecision(100, 110, 105), 100)
	assert.Equal(t, StatusRejected, res.Status)
	assert.Contains(t, res.Reason, "wrong side")
}

func TestTargetOnWrongSideRejected(t *testing.T) {
	gate, err := NewGate(&fakeOrderPlacer{}, &fakeTradeStore{}, testConfig(false), zerolog.Nop())
	require.NoError(t, err)

	res := gate.ValidateAndExecute(context.Background(), longDecision(100, 98, 99), 100)
	assert.Equal(t, StatusRejected, res.Status)
}

func TestEntryFallsBackToCandleClose(t *testing.T) {
	gate, err := NewGate(&fakeOrderPlacer{}, &fakeTradeStore{}, testConfig(false), zerolog.Nop())
	require.NoError(t, err)

	dec := longDecision(0, 104, 99)
	dec.EntryPOI = nil
	res := gate.ValidateAndExecute(context.Background(), dec, 100)
	require.Equal(t, StatusExecuted, res.Status)
	assert.InDelta(t, 100, res.EntryPrice, 1e-9)
}

func TestNonPositiveSizeRejected(t *testing.T) {
	cfg := testConfig(true)
	cfg.AccountBalance = -10000
	store := &fakeTradeStore{}
	gate, err := NewGate(&fakeOrderPlacer{}, store, cfg, zerolog.Nop())
	require.NoError(t, err)

	res := gate.ValidateAndExecute(context.Background(), longDecision(100, 104, 99), 100)
	assert.Equal(t, StatusRejected, res.Status)
	assert.Contains(t, res.Reason, "position size")
	assert.Empty(t, store.inserted)
}

func TestOrderFailureRecordsFailedTrade(t *testing.T) {
	placer := &fakeOrderPlacer{entryErr: errors.New("insufficient margin")}
	store := &fakeTradeStore{}
	gate, err := NewGate(placer, store, testConfig(true), zerolog.Nop())
	require.NoError(t, err)

	res := gate.ValidateAndExecute(context.Background(), longDecision(100, 104, 99), 100)
	assert.Equal(t, StatusFailed, res.Status)
	assert.Contains(t, res.Reason, "insufficient margin")

	require.Len(t, store.inserted, 1)
	assert.Equal(t, database.StatusFailed, store.inserted[0].Status)
	assert.Nil(t, store.inserted[0].ExchangeOrderID)
}

func TestInvalidConfigRejected(t *testing.T) {
	cfg := testConfig(false)
	cfg.MinRRRatio = 0
	_, err := NewGate(&fakeOrderPlacer{}, &fakeTradeStore{}, cfg, zerolog.Nop())
	assert.Error(t, err)
}
