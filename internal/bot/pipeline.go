// Package bot wires one pipeline cycle: locked window in, exactly one
// pipeline event out.
package bot

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"openclaw-bot/internal/ai"
	"openclaw-bot/internal/analysis"
	"openclaw-bot/internal/events"
	"openclaw-bot/internal/execution"
	"openclaw-bot/internal/market"
)

// Detector produces a deterministic market snapshot from a locked window.
type Detector interface {
	Detect(w market.Window) analysis.Snapshot
}

// Evaluator consults the decision authority.
type Evaluator interface {
	Evaluate(ctx context.Context, snapshot analysis.Snapshot) ai.Decision
}

// Executor validates and places the trade.
type Executor interface {
	ValidateAndExecute(ctx context.Context, decision ai.Decision, currentPrice float64) execution.Result
}

// RiskGate checks the daily kill-switch before any evaluation.
type RiskGate interface {
	CheckDailyKillswitch(ctx context.Context) (bool, error)
}

// Config holds pipeline behavior flags.
type Config struct {
	Symbol       string
	KillzoneOnly bool
}

// Pipeline runs the per-candle decision cycle. Each locked window produces
// exactly one PipelineEvent regardless of outcome.
type Pipeline struct {
	detector Detector
	engine   Evaluator
	gate     Executor
	risk     RiskGate
	sessions *analysis.SessionManager
	bus      *events.Bus
	cfg      Config
	log      zerolog.Logger

	mu       sync.RWMutex
	lastSnap *analysis.Snapshot
}

func NewPipeline(detector Detector, engine Evaluator, gate Executor, risk RiskGate, sessions *analysis.SessionManager, bus *events.Bus, cfg Config, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		detector: detector,
		engine:   engine,
		gate:     gate,
		risk:     risk,
		sessions: sessions,
		bus:      bus,
		cfg:      cfg,
		log:      log,
	}
}

// LatestSnapshot returns the most recent detector output, for the daily
// briefing.
func (p *Pipeline) LatestSnapshot(_ context.Context) (*analysis.Snapshot, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastSnap, nil
}

// OnLockedWindow is the stream callback. It never panics outward; a cycle
// failure is logged, surfaces as a FAILED event when nothing else was
// published, and the next candle starts clean.
func (p *Pipeline) OnLockedWindow(ctx context.Context, w market.Window) {
	if len(w) == 0 {
		return
	}
	last := w.Last()
	currentPrice := last.Close

	published := false
	publish := func(e events.PipelineEvent) {
		published = true
		p.bus.Publish(e)
	}

	defer func() {
		if r := recover(); r != nil {
			p.log.Error().Interface("panic", r).Msg("pipeline cycle panicked")
			if !published {
				publish(events.PipelineEvent{
					Symbol:    p.cfg.Symbol,
					Action:    string(ai.ActionWait),
					Reasoning: "Pipeline cycle failed unexpectedly.",
					Status:    events.StatusFailed,
					Price:     &currentPrice,
				})
			}
		}
	}()

	allowed, err := p.risk.CheckDailyKillswitch(ctx)
	if err != nil {
		p.log.Error().Err(err).Msg("kill-switch check failed, skipping cycle")
		publish(events.PipelineEvent{
			Symbol:    p.cfg.Symbol,
			Action:    string(ai.ActionWait),
			Reasoning: "Risk state unavailable. Trading halted for this cycle.",
			Status:    events.StatusKillswitch,
			Price:     &currentPrice,
		})
		return
	}
	if !allowed {
		publish(events.PipelineEvent{
			Symbol:    p.cfg.Symbol,
			Action:    string(ai.ActionWait),
			Reasoning: "Daily kill-switch active. Trading halted.",
			Status:    events.StatusKillswitch,
			Price:     &currentPrice,
		})
		return
	}

	snapshot := p.detector.Detect(w)
	p.mu.Lock()
	p.lastSnap = &snapshot
	p.mu.Unlock()

	if p.cfg.KillzoneOnly && !p.sessions.InKillzone(last.OpenTime) {
		publish(events.PipelineEvent{
			Symbol:    p.cfg.Symbol,
			Action:    string(ai.ActionWait),
			Reasoning: "Outside killzone session hours.",
			Status:    events.StatusWait,
			Price:     &currentPrice,
		})
		return
	}

	if !snapshot.ValidPOIFound {
		publish(events.PipelineEvent{
			Symbol:    p.cfg.Symbol,
			Action:    string(ai.ActionWait),
			Reasoning: "No valid quantitative POI found on closed candle.",
			Status:    events.StatusWait,
			Price:     &currentPrice,
		})
		return
	}

	decision := p.engine.Evaluate(ctx, snapshot)

	// Once the decision commits to an order, placement and its audit row
	// must not be torn down by shutdown cancellation mid-flight.
	execCtx := context.WithoutCancel(ctx)
	result := p.gate.ValidateAndExecute(execCtx, decision, currentPrice)

	event := events.PipelineEvent{
		Symbol:     p.cfg.Symbol,
		Action:     string(decision.Action),
		Confidence: decision.Confidence,
		Reasoning:  decision.Reasoning,
		Status:     statusFor(result.Status),
		Price:      &currentPrice,
	}
	if result.Status != execution.StatusExecuted && result.Reason != "" {
		event.Reasoning = result.Reason
	}
	if result.EntryPrice > 0 {
		entry := result.EntryPrice
		event.Price = &entry
	}
	if result.PositionSize > 0 {
		size := result.PositionSize
		event.Size = &size
	}
	publish(event)
}

func statusFor(s execution.Status) events.Status {
	switch s {
	case execution.StatusIgnored:
		return events.StatusIgnored
	case execution.StatusRejected:
		return events.StatusRejected
	case execution.StatusExecuted:
		return events.StatusExecuted
	default:
		return events.StatusFailed
	}
}
