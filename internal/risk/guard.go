package risk

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"openclaw-bot/internal/database"
	"openclaw-bot/internal/metrics"
)

// StateStore is the persisted daily risk counter access the guard needs.
// Every check re-reads from the store; no in-memory state is cached across
// cycles, so external settlement updates are always visible.
type StateStore interface {
	GetOrCreateDailyState(ctx context.Context, dateID string) (database.DailyState, error)
	SetKillswitch(ctx context.Context, dateID string, active bool) error
	UpdateDailyPnL(ctx context.Context, dateID string, deltaR float64, killswitch func(pnlR float64, active bool) bool) (database.DailyState, error)
}

// TradeStore lists open trades for time-stop scanning.
type TradeStore interface {
	OpenTrades(ctx context.Context) ([]database.Trade, error)
}

// Config holds risk guard configuration.
type Config struct {
	MaxDailyDrawdownR float64 // daily loss limit in risk multiples
	MaxTradeDuration  time.Duration
	// AllowRecovery permits the kill-switch to un-trip within the same day
	// if later settlements bring PnL back above the limit. When false a
	// tripped switch stays latched until the next UTC day.
	AllowRecovery bool
}

// Guard is the central risk controller: daily PnL kill-switch and per-trade
// time-stop detection, backed by persisted per-day counters.
type Guard struct {
	states StateStore
	trades TradeStore
	cfg    Config
	log    zerolog.Logger
	now    func() time.Time
}

func NewGuard(states StateStore, trades TradeStore, cfg Config, log zerolog.Logger) *Guard {
	return &Guard{
		states: states,
		trades: trades,
		cfg:    cfg,
		log:    log,
		now:    time.Now,
	}
}

func (g *Guard) todayID() string {
	return g.now().UTC().Format("2006-01-02")
}

// CheckDailyKillswitch returns true when trading is allowed, false when the
// kill-switch is active. The persisted flag is updated whenever the computed
// state differs from the stored one.
func (g *Guard) CheckDailyKillswitch(ctx context.Context) (bool, error) {
	dateID := g.todayID()
	state, err := g.states.GetOrCreateDailyState(ctx, dateID)
	if err != nil {
		return false, err
	}

	shouldHalt := state.CurrentPnLR <= -g.cfg.MaxDailyDrawdownR
	if !g.cfg.AllowRecovery && state.KillswitchActive {
		shouldHalt = true
	}

	if state.KillswitchActive != shouldHalt {
		if err := g.states.SetKillswitch(ctx, dateID, shouldHalt); err != nil {
			return false, err
		}
	}
	metrics.SetKillswitch(shouldHalt)
	metrics.SetDailyPnLR(state.CurrentPnLR)

	if shouldHalt {
		g.log.Warn().
			Float64("current_pnl_r", state.CurrentPnLR).
			Float64("limit_r", g.cfg.MaxDailyDrawdownR).
			Msg("daily kill-switch active, trading halted")
	}
	return !shouldHalt, nil
}

// UpdateDailyPnL adds a signed risk-multiple delta to today's accumulator
// and recomputes the kill-switch. It is the only mutator of the daily PnL
// counter and is called by external settlement when a trade resolves.
func (g *Guard) UpdateDailyPnL(ctx context.Context, deltaR float64) (database.DailyState, error) {
	state, err := g.states.UpdateDailyPnL(ctx, g.todayID(), deltaR, func(pnlR float64, active bool) bool {
		tripped := pnlR <= -g.cfg.MaxDailyDrawdownR
		if !g.cfg.AllowRecovery && active {
			return true
		}
		return tripped
	})
	if err != nil {
		return database.DailyState{}, err
	}
	metrics.SetKillswitch(state.KillswitchActive)
	metrics.SetDailyPnLR(state.CurrentPnLR)

	g.log.Info().
		Float64("delta_r", deltaR).
		Float64("current_pnl_r", state.CurrentPnLR).
		Bool("killswitch", state.KillswitchActive).
		Msg("daily PnL updated")
	return state, nil
}

// EnforceTimeStops returns the ids of open trades whose elapsed time has
// reached the maximum duration. It only reports candidates; force-closing
// the position and settling PnL is the caller's responsibility.
func (g *Guard) EnforceTimeStops(ctx context.Context, now time.Time) ([]int64, error) {
	open, err := g.trades.OpenTrades(ctx)
	if err != nil {
		return nil, err
	}

	var candidates []int64
	for _, trade := range open {
		elapsed := now.Sub(trade.CreatedAt)
		if elapsed >= g.cfg.MaxTradeDuration {
			g.log.Warn().
				Int64("trade_id", trade.ID).
				Dur("elapsed", elapsed).
				Msg("time stop reached")
			candidates = append(candidates, trade.ID)
		}
	}
	return candidates, nil
}
