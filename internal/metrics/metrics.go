// Package metrics exposes the bot's Prometheus instrumentation:
//   - bot_pipeline_cycles_total{status} – cycles by outcome (WAIT, EXECUTED, ...)
//   - bot_decisions_total{action}       – authority decisions by action
//   - bot_trades_total{status}          – trade records by status
//   - bot_killswitch_active             – 1 while the daily halt is engaged
//   - bot_daily_pnl_r                   – running daily PnL in risk multiples
//   - bot_locked_candles_total          – candles locked by the stream
//
// Registered in init() and served at /metrics by the API server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"openclaw-bot/internal/events"
)

var (
	pipelineCycles = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_pipeline_cycles_total",
			Help: "Pipeline cycles by outcome status",
		},
		[]string{"status"},
	)

	decisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_decisions_total",
			Help: "Decision authority verdicts by action",
		},
		[]string{"action"},
	)

	trades = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_trades_total",
			Help: "Trade records created by status",
		},
		[]string{"status"},
	)

	killswitchActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bot_killswitch_active",
			Help: "1 while the daily drawdown kill-switch is engaged",
		},
	)

	dailyPnLR = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bot_daily_pnl_r",
			Help: "Running daily PnL in risk multiples",
		},
	)

	lockedCandles = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bot_locked_candles_total",
			Help: "Closed candles locked by the stream",
		},
	)
)

func init() {
	prometheus.MustRegister(
		pipelineCycles,
		decisions,
		trades,
		killswitchActive,
		dailyPnLR,
		lockedCandles,
	)
}

// ObserveEvent records the metrics derivable from one pipeline event. Wired
// as an event bus subscriber.
func ObserveEvent(e events.PipelineEvent) {
	pipelineCycles.WithLabelValues(string(e.Status)).Inc()
	if e.Action != "" {
		decisions.WithLabelValues(e.Action).Inc()
	}
	switch e.Status {
	case events.StatusExecuted:
		trades.WithLabelValues("OPEN").Inc()
	case events.StatusFailed:
		trades.WithLabelValues("FAILED").Inc()
	}
}

// SetKillswitch flips the halt gauge.
func SetKillswitch(active bool) {
	if active {
		killswitchActive.Set(1)
	} else {
		killswitchActive.Set(0)
	}
}

// SetDailyPnLR updates the running daily PnL gauge.
func SetDailyPnLR(pnlR float64) {
	dailyPnLR.Set(pnlR)
}

// CandleLocked counts one closed candle accepted by the stream.
func CandleLocked() {
	lockedCandles.Inc()
}
