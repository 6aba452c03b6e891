package stream

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"openclaw-bot/internal/market"
)

// CandleSource fetches the latest bounded window of candles for a symbol.
type CandleSource interface {
	Candles(ctx context.Context, symbol, interval string, limit int) ([]market.Candle, error)
}

// LockedWindowFunc receives a locked window whose candles can no longer
// change. It is dispatched on its own goroutine, one call per closed candle.
type LockedWindowFunc func(ctx context.Context, window market.Window)

// Stream polls a candle source, reconciles observations into a bounded
// window, and hands a locked window downstream exactly once per newly closed
// candle. The last candle of any fetch is always potentially still forming
// and is never part of a locked window.
type Stream struct {
	source       CandleSource
	symbol       string
	interval     string
	maxCandles   int
	pollInterval time.Duration
	retryBackoff time.Duration
	log          zerolog.Logger

	window     market.Window
	lastLocked time.Time // open time of the most recently locked closed candle
	inflight   sync.WaitGroup
}

type Config struct {
	Symbol       string
	Interval     string
	MaxCandles   int
	PollInterval time.Duration
	RetryBackoff time.Duration
}

func New(source CandleSource, cfg Config, log zerolog.Logger) *Stream {
	return &Stream{
		source:       source,
		symbol:       cfg.Symbol,
		interval:     cfg.Interval,
		maxCandles:   cfg.MaxCandles,
		pollInterval: cfg.PollInterval,
		retryBackoff: cfg.RetryBackoff,
		log:          log,
	}
}

// Run polls until the context is cancelled. Fetch failures are logged and
// retried after the backoff interval; the lock marker is left untouched so no
// closed candle is ever skipped.
func (s *Stream) Run(ctx context.Context, onLocked LockedWindowFunc) error {
	s.log.Info().
		Str("symbol", s.symbol).
		Str("interval", s.interval).
		Msg("candle stream started")

	for {
		wait := s.pollInterval
		if err := s.poll(ctx, onLocked); err != nil {
			s.log.Error().Err(err).Msg("candle fetch failed, retrying after backoff")
			wait = s.retryBackoff
		}

		select {
		case <-ctx.Done():
			s.log.Info().Msg("candle stream stopped")
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

func (s *Stream) poll(ctx context.Context, onLocked LockedWindowFunc) error {
	fetched, err := s.source.Candles(ctx, s.symbol, s.interval, s.maxCandles)
	if err != nil {
		return err
	}
	if len(fetched) == 0 {
		return nil
	}

	s.window = reconcile(s.window, fetched, s.maxCandles)
	if len(s.window) < 2 {
		return nil
	}

	// The final candle is still forming; the second-to-last is closed.
	closed := s.window[len(s.window)-2]

	if s.lastLocked.IsZero() {
		// Bootstrap: record the marker, nothing is "new" yet.
		s.lastLocked = closed.OpenTime
		return nil
	}

	if !closed.OpenTime.After(s.lastLocked) {
		return nil
	}

	locked := lockThrough(s.window, closed.OpenTime)
	s.lastLocked = closed.OpenTime

	s.log.Info().
		Time("closed_at", closed.OpenTime).
		Int("window_len", len(locked)).
		Msg("candle closed, dispatching locked window")

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		onLocked(ctx, locked)
	}()
	return nil
}

// Wait blocks until every dispatched cycle has returned. Call after
// cancelling Run so in-flight order placement is not abandoned mid-cycle.
func (s *Stream) Wait() {
	s.inflight.Wait()
}

// reconcile merges a fresh fetch into the held window: dedupe by open time
// keeping the most recent observation, sort ascending, truncate to the
// maximum length from the tail.
func reconcile(held market.Window, fetched []market.Candle, maxLen int) market.Window {
	byTime := make(map[int64]market.Candle, len(held)+len(fetched))
	for _, c := range held {
		byTime[c.OpenTime.UnixMilli()] = c
	}
	for _, c := range fetched {
		byTime[c.OpenTime.UnixMilli()] = c
	}

	merged := make(market.Window, 0, len(byTime))
	for _, c := range byTime {
		merged = append(merged, c)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].OpenTime.Before(merged[j].OpenTime)
	})

	if len(merged) > maxLen {
		merged = merged[len(merged)-maxLen:]
	}
	return merged
}

// lockThrough copies the window up to and including the candle opened at the
// given time. The copy guarantees downstream immutability.
func lockThrough(w market.Window, through time.Time) market.Window {
	end := 0
	for i, c := range w {
		if c.OpenTime.After(through) {
			break
		}
		end = i + 1
	}
	locked := make(market.Window, end)
	copy(locked, w[:end])
	return locked
}
