package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"openclaw-bot/internal/analysis"
)

type stubCompleter struct {
	response string
	err      error
}

func (s *stubCompleter) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return s.response, s.err
}

func snapshotWithStop(stop float64) analysis.Snapshot {
	return analysis.Snapshot{
		Timestamp:     time.Date(2026, 2, 15, 12, 0, 0, 0, time.UTC),
		Symbol:        "BTCUSDT",
		Timeframe:     "5m",
		ValidPOIFound: true,
		SetupType:     analysis.SetupBullishDisplacement,
		StopReference: &stop,
	}
}

func newTestEngine(t *testing.T, c Completer) *Engine {
	t.Helper()
	engine, err := NewEngine(c, "", zerolog.Nop())
	require.NoError(t, err)
	return engine
}

func TestEvaluateTransportFailureFallsBackToWait(t *testing.T) {
	engine := newTestEngine(t, &stubCompleter{err: errors.New("connection refused")})

	decision := engine.Evaluate(context.Background(), snapshotWithStop(108))

	assert.Equal(t, ActionWait, decision.Action)
	assert.Equal(t, 0, decision.Confidence)
	require.NotNil(t, decision.StopReference, "snapshot stop reference must be preserved")
	assert.Equal(t, 108.0, *decision.StopReference)
}

func TestEvaluateGarbledResponseFallsBackToWait(t *testing.T) {
	engine := newTestEngine(t, &stubCompleter{response: "```json\n{not json at all\n```"})

	decision := engine.Evaluate(context.Background(), snapshotWithStop(108))

	assert.Equal(t, ActionWait, decision.Action)
	assert.Equal(t, 0, decision.Confidence)
	require.NotNil(t, decision.StopReference)
	assert.Equal(t, 108.0, *decision.StopReference)
}

func TestEvaluateBackfillsStopReference(t *testing.T) {
	engine := newTestEngine(t, &stubCompleter{response: `{
	  "action": "LONG",
	  "confidence": 70,
	  "reasoning": "Setup confirmed.",
	  "entry_poi": 108.5,
	  "target_liquidity": 121.0,
	  "stop_reference": null
	}`})

	decision := engine.Evaluate(context.Background(), snapshotWithStop(108))

	assert.Equal(t, ActionLong, decision.Action)
	require.NotNil(t, decision.StopReference)
	assert.Equal(t, 108.0, *decision.StopReference)
}

func TestEvaluatePassesThroughValidDecision(t *testing.T) {
	engine := newTestEngine(t, &stubCompleter{response: validResponse})

	decision := engine.Evaluate(context.Background(), snapshotWithStop(200))

	assert.Equal(t, ActionLong, decision.Action)
	assert.Equal(t, 85, decision.Confidence)
	require.NotNil(t, decision.StopReference)
	assert.Equal(t, 108.0, *decision.StopReference, "authority-provided stop wins over backfill")
}
