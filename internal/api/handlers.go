package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"openclaw-bot/internal/events"
)

type activeTrade struct {
	ID         int64     `json:"id"`
	Symbol     string    `json:"symbol"`
	Action     string    `json:"action"`
	EntryPrice float64   `json:"entry_price"`
	StopLoss   float64   `json:"stop_loss"`
	TakeProfit float64   `json:"take_profit"`
	CreatedAt  time.Time `json:"created_at"`
}

type riskStateResponse struct {
	DailyPnLR        float64       `json:"daily_pnl_r"`
	MaxDrawdownLimit float64       `json:"max_drawdown_limit"`
	KillswitchActive bool          `json:"killswitch_active"`
	ActiveTrades     []activeTrade `json:"active_trades"`
}

func (s *Server) handleRiskState(c *gin.Context) {
	ctx := c.Request.Context()
	dateID := time.Now().UTC().Format("2006-01-02")

	state, err := s.risk.GetOrCreateDailyState(ctx, dateID)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to read daily state")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read risk state"})
		return
	}

	open, err := s.risk.OpenTrades(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to read open trades")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read open trades"})
		return
	}

	trades := make([]activeTrade, 0, len(open))
	for _, t := range open {
		trades = append(trades, activeTrade{
			ID:         t.ID,
			Symbol:     t.Symbol,
			Action:     t.Action,
			EntryPrice: t.EntryPrice,
			StopLoss:   t.StopLoss,
			TakeProfit: t.TakeProfit,
			CreatedAt:  t.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, riskStateResponse{
		DailyPnLR:        state.CurrentPnLR,
		MaxDrawdownLimit: -s.cfg.MaxDailyDrawdownR,
		KillswitchActive: state.KillswitchActive,
		ActiveTrades:     trades,
	})
}

// handleInternalEvent lets a sibling process inject a pipeline event into
// the websocket feed. Guarded by a shared internal token.
func (s *Server) handleInternalEvent(c *gin.Context) {
	if c.GetHeader("X-Internal-Token") != s.cfg.InternalToken || s.cfg.InternalToken == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized internal event"})
		return
	}

	var event events.PipelineEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event payload"})
		return
	}

	s.hub.BroadcastEvent(event)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleHealthLive(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleHealthReady(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	checks := make(map[string]bool, len(s.readiness))
	ready := true
	for name, checker := range s.readiness {
		err := checker.Ping(ctx)
		checks[name] = err == nil
		if err != nil {
			ready = false
			s.log.Error().Err(err).Str("dependency", name).Msg("readiness check failed")
		}
	}

	if !ready {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "checks": checks})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready", "checks": checks})
}
