package execution

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"openclaw-bot/internal/ai"
	"openclaw-bot/internal/database"
)

const (
	// Stop-loss buffer beyond the structural stop reference: 0.1% further
	// away from entry so a wick tagging the exact level does not knock the
	// position out.
	longStopFactor  = 0.999
	shortStopFactor = 1.001
)

// OrderPlacer submits entry and exit orders to the exchange.
// Satisfied by binance.Client.
type OrderPlacer interface {
	PlaceMarketOrder(ctx context.Context, symbol, side string, quantity float64) (string, error)
	PlaceStopMarketClose(ctx context.Context, symbol, side string, stopPrice float64) (string, error)
	PlaceTakeProfitMarketClose(ctx context.Context, symbol, side string, stopPrice float64) (string, error)
}

// TradeStore persists trade records, both executed and failed audit rows.
type TradeStore interface {
	InsertTrade(ctx context.Context, trade *database.Trade) error
}

// Status is the outcome class of a gate evaluation.
type Status string

const (
	StatusIgnored  Status = "IGNORED"  // WAIT decision, no side effects
	StatusRejected Status = "REJECTED" // failed geometry or RR validation
	StatusExecuted Status = "EXECUTED"
	StatusFailed   Status = "FAILED" // order placement error, audited
)

// Result is what the gate reports back to the pipeline for event emission.
type Result struct {
	Status       Status
	Reason       string
	EntryPrice   float64
	StopLoss     float64
	TakeProfit   float64
	PositionSize float64
	TradeID      int64
	OrderID      string
}

// Config holds trade gating parameters.
type Config struct {
	Symbol              string
	RiskPerTradePercent float64 // fraction of balance risked per trade, e.g. 0.01
	MinRRRatio          float64
	AccountBalance      float64
	ExecuteOrders       bool // false routes through simulated fills
}

// Gate validates a decision's trade geometry and, when it passes, sizes and
// places the orders. A decision is never executed without a satisfied
// risk-to-reward ratio regardless of how confident the model claims to be.
type Gate struct {
	orders OrderPlacer
	trades TradeStore
	cfg    Config
	log    zerolog.Logger
}

func NewGate(orders OrderPlacer, trades TradeStore, cfg Config, log zerolog.Logger) (*Gate, error) {
	if cfg.RiskPerTradePercent <= 0 {
		return nil, fmt.Errorf("risk per trade must be positive, got %.4f", cfg.RiskPerTradePercent)
	}
	if cfg.MinRRRatio <= 0 {
		return nil, fmt.Errorf("minimum RR ratio must be positive, got %.4f", cfg.MinRRRatio)
	}
	return &Gate{orders: orders, trades: trades, cfg: cfg, log: log}, nil
}

// ValidateAndExecute runs the full gate: level presence, stop and target
// geometry, RR validation, position sizing, then order placement with an
// audit trade row. Every order failure still produces a FAILED trade record.
// currentPrice is the locked candle's close, used as the entry when the
// decision carries no entry POI.
func (g *Gate) ValidateAndExecute(ctx context.Context, decision ai.Decision, currentPrice float64) Result {
	if decision.Action == ai.ActionWait {
		return Result{Status: StatusIgnored, Reason: "decision is WAIT"}
	}
	if decision.TargetLiquidity == nil || decision.StopReference == nil {
		return Result{Status: StatusRejected, Reason: "missing levels"}
	}

	entryPrice := currentPrice
	if decision.EntryPOI != nil {
		entryPrice = *decision.EntryPOI
	}

	stopRef := *decision.StopReference
	target := *decision.TargetLiquidity

	var stopLoss, riskDist, rewardDist float64
	switch decision.Action {
	case ai.ActionLong:
		stopLoss = stopRef * longStopFactor
		riskDist = entryPrice - stopLoss
		rewardDist = target - entryPrice
	case ai.ActionShort:
		stopLoss = stopRef * shortStopFactor
		riskDist = stopLoss - entryPrice
		rewardDist = entryPrice - target
	default:
		return Result{Status: StatusRejected, Reason: fmt.Sprintf("unknown action %q", decision.Action)}
	}

	if riskDist <= 0 {
		return Result{
			Status: StatusRejected,
			Reason: fmt.Sprintf("stop %.4f on wrong side of entry %.4f", stopLoss, entryPrice),
		}
	}
	if rewardDist <= 0 {
		return Result{
			Status: StatusRejected,
			Reason: fmt.Sprintf("target %.4f on wrong side of entry %.4f", target, entryPrice),
		}
	}

	rr := rewardDist / riskDist
	if rr < g.cfg.MinRRRatio {
		return Result{
			Status: StatusRejected,
			Reason: fmt.Sprintf("RR ratio %.2f below minimum %.2f", rr, g.cfg.MinRRRatio),
		}
	}

	size := g.cfg.AccountBalance * g.cfg.RiskPerTradePercent / riskDist
	if size <= 0 {
		return Result{
			Status: StatusRejected,
			Reason: fmt.Sprintf("non-positive position size %.6f", size),
		}
	}

	result := Result{
		EntryPrice:   entryPrice,
		StopLoss:     stopLoss,
		TakeProfit:   target,
		PositionSize: size,
	}

	orderID, err := g.placeOrders(ctx, decision.Action, size, stopLoss, target)
	trade := &database.Trade{
		Symbol:       g.cfg.Symbol,
		Action:       string(decision.Action),
		EntryPrice:   entryPrice,
		StopLoss:     stopLoss,
		TakeProfit:   target,
		PositionSize: size,
		CreatedAt:    time.Now().UTC(),
	}
	if err != nil {
		trade.Status = database.StatusFailed
		if insertErr := g.trades.InsertTrade(ctx, trade); insertErr != nil {
			g.log.Error().Err(insertErr).Msg("failed to persist failed trade audit row")
		}
		result.Status = StatusFailed
		result.Reason = fmt.Sprintf("order placement failed: %v", err)
		result.TradeID = trade.ID
		return result
	}

	trade.Status = database.StatusOpen
	trade.ExchangeOrderID = &orderID
	if err := g.trades.InsertTrade(ctx, trade); err != nil {
		g.log.Error().Err(err).Str("order_id", orderID).Msg("order placed but trade persistence failed")
	}

	g.log.Info().
		Str("action", string(decision.Action)).
		Float64("entry", entryPrice).
		Float64("stop_loss", stopLoss).
		Float64("take_profit", target).
		Float64("size", size).
		Float64("rr", rr).
		Str("order_id", orderID).
		Msg("trade executed")

	result.Status = StatusExecuted
	result.Reason = fmt.Sprintf("RR %.2f", rr)
	result.TradeID = trade.ID
	result.OrderID = orderID
	return result
}

// placeOrders submits the entry plus both close-position exit legs, or
// fabricates a simulated fill when live execution is disabled.
func (g *Gate) placeOrders(ctx context.Context, action ai.Action, size, stopLoss, takeProfit float64) (string, error) {
	if !g.cfg.ExecuteOrders {
		id := "sim-" + uuid.NewString()
		g.log.Info().Str("order_id", id).Msg("simulated fill, live execution disabled")
		return id, nil
	}

	entrySide, exitSide := "BUY", "SELL"
	if action == ai.ActionShort {
		entrySide, exitSide = "SELL", "BUY"
	}

	orderID, err := g.orders.PlaceMarketOrder(ctx, g.cfg.Symbol, entrySide, size)
	if err != nil {
		return "", fmt.Errorf("entry order: %w", err)
	}
	if _, err := g.orders.PlaceStopMarketClose(ctx, g.cfg.Symbol, exitSide, stopLoss); err != nil {
		return "", fmt.Errorf("stop-loss order: %w", err)
	}
	if _, err := g.orders.PlaceTakeProfitMarketClose(ctx, g.cfg.Symbol, exitSide, takeProfit); err != nil {
		return "", fmt.Errorf("take-profit order: %w", err)
	}
	return orderID, nil
}
