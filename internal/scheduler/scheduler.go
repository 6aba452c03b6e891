// Package scheduler runs the bot's cron jobs: the morning briefing and the
// periodic time-stop sweep.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"openclaw-bot/internal/analysis"
	"openclaw-bot/internal/notification"
)

// RiskSweeper reports open trades that exceeded their maximum duration.
type RiskSweeper interface {
	EnforceTimeStops(ctx context.Context, now time.Time) ([]int64, error)
}

// SnapshotSource supplies the latest market read for the briefing.
type SnapshotSource interface {
	LatestSnapshot(ctx context.Context) (*analysis.Snapshot, error)
}

// Scheduler manages all cron tasks.
type Scheduler struct {
	cron      *cron.Cron
	sweeper   RiskSweeper
	snapshots SnapshotSource
	notify    *notification.Manager
	ctx       context.Context
	log       zerolog.Logger
}

func New(ctx context.Context, sweeper RiskSweeper, snapshots SnapshotSource, notify *notification.Manager, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:      cron.New(cron.WithSeconds()),
		sweeper:   sweeper,
		snapshots: snapshots,
		notify:    notify,
		ctx:       ctx,
		log:       log,
	}
}

// RegisterAll registers the daily briefing and the time-stop sweep.
func (s *Scheduler) RegisterAll(briefingCron, timeStopCron string) error {
	if _, err := s.cron.AddFunc(briefingCron, s.dailyBriefing); err != nil {
		return fmt.Errorf("register daily briefing: %w", err)
	}
	if _, err := s.cron.AddFunc(timeStopCron, s.timeStopSweep); err != nil {
		return fmt.Errorf("register time-stop sweep: %w", err)
	}
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Msg("scheduler started")
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.log.Info().Msg("scheduler stopped")
}

func (s *Scheduler) dailyBriefing() {
	s.log.Info().Msg("running daily briefing")

	var lines []notification.BriefingLine
	if s.snapshots != nil {
		snap, err := s.snapshots.LatestSnapshot(s.ctx)
		if err != nil {
			s.log.Error().Err(err).Msg("briefing snapshot read failed")
		} else if snap != nil {
			lines = append(lines, briefingLine(snap))
		}
	}

	s.notify.Send(notification.FormatDailyBriefing(time.Now().UTC(), lines))
}

func briefingLine(snap *analysis.Snapshot) notification.BriefingLine {
	line := notification.BriefingLine{
		Symbol:    snap.Symbol,
		Bias:      "Neutral",
		POI:       "N/A",
		Reasoning: "Awaiting setup",
	}
	switch snap.SetupType {
	case analysis.SetupBullishDisplacement:
		line.Bias = "Bullish"
	case analysis.SetupBearishDisplacement:
		line.Bias = "Bearish"
	}
	if snap.ValidPOIFound && snap.StopReference != nil {
		line.POI = fmt.Sprintf("%.2f", *snap.StopReference)
		line.Reasoning = "Displacement setup active"
	}
	return line
}

// timeStopSweep reports trades past their maximum duration. Closing the
// position and settling PnL stays with the execution side; the sweep only
// surfaces the candidates.
func (s *Scheduler) timeStopSweep() {
	ids, err := s.sweeper.EnforceTimeStops(s.ctx, time.Now().UTC())
	if err != nil {
		s.log.Error().Err(err).Msg("time-stop sweep failed")
		return
	}
	if len(ids) == 0 {
		return
	}

	s.log.Warn().Ints64("trade_ids", ids).Msg("trades exceeded max duration")
	s.notify.Send(fmt.Sprintf("OpenClaw Time Stop\n%d open trade(s) exceeded max duration: %v", len(ids), ids))
}
