package bot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"openclaw-bot/internal/ai"
	"openclaw-bot/internal/analysis"
	"openclaw-bot/internal/events"
	"openclaw-bot/internal/execution"
	"openclaw-bot/internal/market"
)

type stubDetector struct {
	snapshot analysis.Snapshot
	calls    int
}

func (s *stubDetector) Detect(market.Window) analysis.Snapshot {
	s.calls++
	return s.snapshot
}

type stubEvaluator struct {
	decision ai.Decision
	calls    int
}

func (s *stubEvaluator) Evaluate(context.Context, analysis.Snapshot) ai.Decision {
	s.calls++
	return s.decision
}

type stubExecutor struct {
	result  execution.Result
	calls   int
	lastCtx context.Context
	price   float64
}

func (s *stubExecutor) ValidateAndExecute(ctx context.Context, _ ai.Decision, currentPrice float64) execution.Result {
	s.calls++
	s.lastCtx = ctx
	s.price = currentPrice
	return s.result
}

type stubRisk struct {
	allowed bool
	err     error
}

func (s *stubRisk) CheckDailyKillswitch(context.Context) (bool, error) {
	return s.allowed, s.err
}

func collectEvents(bus *events.Bus) chan events.PipelineEvent {
	ch := make(chan events.PipelineEvent, 8)
	bus.Subscribe(func(e events.PipelineEvent) { ch <- e })
	return ch
}

func waitEvent(t *testing.T, ch chan events.PipelineEvent) events.PipelineEvent {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(time.Second):
		t.Fatal("no pipeline event published")
		return events.PipelineEvent{}
	}
}

// killzoneWindow ends on a candle inside the London/NY overlap so session
// gating passes.
func killzoneWindow() market.Window {
	base := time.Date(2026, 2, 16, 13, 30, 0, 0, time.UTC)
	w := make(market.Window, 6)
	for i := range w {
		w[i] = market.Candle{
			OpenTime: base.Add(time.Duration(i) * 5 * time.Minute),
			Open:     100, High: 101, Low: 99, Close: 100.5, Volume: 10,
		}
	}
	return w
}

func poiSnapshot() analysis.Snapshot {
	stop := 108.0
	return analysis.Snapshot{
		Symbol:        "BTCUSDT",
		ValidPOIFound: true,
		SetupType:     analysis.SetupBullishDisplacement,
		StopReference: &stop,
	}
}

func newTestPipeline(det Detector, eval Evaluator, exec Executor, risk RiskGate, killzoneOnly bool) (*Pipeline, chan events.PipelineEvent) {
	bus := events.NewBus()
	ch := collectEvents(bus)
	p := NewPipeline(det, eval, exec, risk, analysis.NewSessionManager(), bus,
		Config{Symbol: "BTCUSDT", KillzoneOnly: killzoneOnly}, zerolog.Nop())
	return p, ch
}

func TestKillswitchShortCircuitsCycle(t *testing.T) {
	det := &stubDetector{}
	eval := &stubEvaluator{}
	exec := &stubExecutor{}
	p, ch := newTestPipeline(det, eval, exec, &stubRisk{allowed: false}, false)

	p.OnLockedWindow(context.Background(), killzoneWindow())

	e := waitEvent(t, ch)
	assert.Equal(t, events.StatusKillswitch, e.Status)
	assert.Equal(t, "WAIT", e.Action)
	assert.Zero(t, det.calls)
	assert.Zero(t, eval.calls)
	assert.Zero(t, exec.calls)
}

func TestRiskErrorEmitsKillswitchEvent(t *testing.T) {
	p, ch := newTestPipeline(&stubDetector{}, &stubEvaluator{}, &stubExecutor{}, &stubRisk{err: errors.New("db down")}, false)

	p.OnLockedWindow(context.Background(), killzoneWindow())

	e := waitEvent(t, ch)
	assert.Equal(t, events.StatusKillswitch, e.Status)
}

func TestNoPOIEmitsWaitWithoutConsultingAuthority(t *testing.T) {
	det := &stubDetector{snapshot: analysis.Snapshot{Symbol: "BTCUSDT"}}
	eval := &stubEvaluator{}
	p, ch := newTestPipeline(det, eval, &stubExecutor{}, &stubRisk{allowed: true}, false)

	p.OnLockedWindow(context.Background(), killzoneWindow())

	e := waitEvent(t, ch)
	assert.Equal(t, events.StatusWait, e.Status)
	assert.Contains(t, e.Reasoning, "No valid quantitative POI")
	assert.Zero(t, eval.calls)
}

func TestOutsideKillzoneSkipsEvaluation(t *testing.T) {
	det := &stubDetector{snapshot: poiSnapshot()}
	eval := &stubEvaluator{}
	p, ch := newTestPipeline(det, eval, &stubExecutor{}, &stubRisk{allowed: true}, true)

	// 20:00 UTC is outside every killzone overlap.
	w := killzoneWindow()
	for i := range w {
		w[i].OpenTime = time.Date(2026, 2, 16, 19, 30, 0, 0, time.UTC).Add(time.Duration(i) * 5 * time.Minute)
	}
	p.OnLockedWindow(context.Background(), w)

	e := waitEvent(t, ch)
	assert.Equal(t, events.StatusWait, e.Status)
	assert.Contains(t, e.Reasoning, "killzone")
	assert.Zero(t, eval.calls)
}

func TestExecutedCycleCarriesResultFields(t *testing.T) {
	det := &stubDetector{snapshot: poiSnapshot()}
	stop := 108.0
	target := 121.0
	eval := &stubEvaluator{decision: ai.Decision{
		Action:          ai.ActionLong,
		Confidence:      85,
		Reasoning:       "displacement into discount",
		TargetLiquidity: &target,
		StopReference:   &stop,
	}}
	exec := &stubExecutor{result: execution.Result{
		Status:       execution.StatusExecuted,
		EntryPrice:   110,
		PositionSize: 91.0,
	}}
	p, ch := newTestPipeline(det, eval, exec, &stubRisk{allowed: true}, false)

	p.OnLockedWindow(context.Background(), killzoneWindow())

	e := waitEvent(t, ch)
	assert.Equal(t, events.StatusExecuted, e.Status)
	assert.Equal(t, "LONG", e.Action)
	assert.Equal(t, 85, e.Confidence)
	assert.Equal(t, "displacement into discount", e.Reasoning)
	require.NotNil(t, e.Price)
	assert.InDelta(t, 110, *e.Price, 1e-9)
	require.NotNil(t, e.Size)
	assert.InDelta(t, 91.0, *e.Size, 1e-9)
}

func TestRejectedCycleUsesGateReason(t *testing.T) {
	det := &stubDetector{snapshot: poiSnapshot()}
	eval := &stubEvaluator{decision: ai.Decision{Action: ai.ActionLong, Confidence: 70, Reasoning: "looks fine"}}
	exec := &stubExecutor{result: execution.Result{
		Status: execution.StatusRejected,
		Reason: "RR ratio 0.91 below minimum 3.00",
	}}
	p, ch := newTestPipeline(det, eval, exec, &stubRisk{allowed: true}, false)

	p.OnLockedWindow(context.Background(), killzoneWindow())

	e := waitEvent(t, ch)
	assert.Equal(t, events.StatusRejected, e.Status)
	assert.Contains(t, e.Reasoning, "RR ratio 0.91")
}

func TestExecutionOutlivesShutdownCancel(t *testing.T) {
	det := &stubDetector{snapshot: poiSnapshot()}
	stop := 108.0
	target := 121.0
	eval := &stubEvaluator{decision: ai.Decision{
		Action:          ai.ActionLong,
		Confidence:      85,
		TargetLiquidity: &target,
		StopReference:   &stop,
	}}
	exec := &stubExecutor{result: execution.Result{Status: execution.StatusExecuted, EntryPrice: 110}}
	p, ch := newTestPipeline(det, eval, exec, &stubRisk{allowed: true}, false)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p.OnLockedWindow(ctx, killzoneWindow())
	waitEvent(t, ch)

	require.Equal(t, 1, exec.calls)
	require.NotNil(t, exec.lastCtx)
	assert.NoError(t, exec.lastCtx.Err())
	assert.InDelta(t, 100.5, exec.price, 1e-9)
}

type panickingDetector struct{}

func (panickingDetector) Detect(market.Window) analysis.Snapshot {
	panic("detector blew up")
}

func TestPanickedCycleStillEmitsFailedEvent(t *testing.T) {
	p, ch := newTestPipeline(panickingDetector{}, &stubEvaluator{}, &stubExecutor{}, &stubRisk{allowed: true}, false)

	require.NotPanics(t, func() {
		p.OnLockedWindow(context.Background(), killzoneWindow())
	})

	e := waitEvent(t, ch)
	assert.Equal(t, events.StatusFailed, e.Status)
	assert.Equal(t, "WAIT", e.Action)
	require.NotNil(t, e.Price)
	assert.InDelta(t, 100.5, *e.Price, 1e-9)

	select {
	case extra := <-ch:
		t.Fatalf("unexpected second event: %+v", extra)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestLatestSnapshotUpdatedPerCycle(t *testing.T) {
	det := &stubDetector{snapshot: poiSnapshot()}
	eval := &stubEvaluator{decision: ai.FallbackWait("test", nil)}
	exec := &stubExecutor{result: execution.Result{Status: execution.StatusIgnored, Reason: "decision is WAIT"}}
	p, ch := newTestPipeline(det, eval, exec, &stubRisk{allowed: true}, false)

	snap, err := p.LatestSnapshot(context.Background())
	require.NoError(t, err)
	assert.Nil(t, snap)

	p.OnLockedWindow(context.Background(), killzoneWindow())
	waitEvent(t, ch)

	snap, err = p.LatestSnapshot(context.Background())
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.True(t, snap.ValidPOIFound)
}
