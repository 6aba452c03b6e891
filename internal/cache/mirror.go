// Package cache mirrors the latest pipeline state into Redis so dashboards
// and other processes can read it without touching Postgres or the bot.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"openclaw-bot/config"
	"openclaw-bot/internal/database"
	"openclaw-bot/internal/events"
)

const (
	keyLatestEvent = "openclaw:%s:latest_event" // per symbol
	keyEventFeed   = "openclaw:%s:event_feed"   // capped list, newest first
	keyRiskState   = "openclaw:risk_state:%s"   // per UTC date

	eventTTL     = 24 * time.Hour
	riskStateTTL = 48 * time.Hour
	feedMaxLen   = 200
)

// Mirror writes pipeline events and risk state snapshots to Redis. All
// operations degrade to no-ops when Redis is disabled, and failures are
// logged rather than surfaced to the pipeline.
type Mirror struct {
	client  *redis.Client
	enabled bool
	log     zerolog.Logger
}

func NewMirror(cfg config.RedisConfig, log zerolog.Logger) *Mirror {
	if !cfg.Enabled {
		return &Mirror{log: log}
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Str("address", cfg.Address).Msg("redis unreachable, mirror starts degraded")
	} else {
		log.Info().Str("address", cfg.Address).Msg("redis mirror connected")
	}

	return &Mirror{client: client, enabled: true, log: log}
}

func (m *Mirror) Enabled() bool {
	return m.enabled
}

func (m *Mirror) Close() error {
	if m.client == nil {
		return nil
	}
	return m.client.Close()
}

// StoreEvent records the event both as the per-symbol latest snapshot and at
// the head of a capped feed list.
func (m *Mirror) StoreEvent(ctx context.Context, e events.PipelineEvent) {
	if !m.enabled {
		return
	}

	data, err := json.Marshal(e)
	if err != nil {
		m.log.Error().Err(err).Msg("failed to marshal pipeline event for redis")
		return
	}

	latestKey := fmt.Sprintf(keyLatestEvent, e.Symbol)
	feedKey := fmt.Sprintf(keyEventFeed, e.Symbol)

	pipe := m.client.TxPipeline()
	pipe.Set(ctx, latestKey, data, eventTTL)
	pipe.LPush(ctx, feedKey, data)
	pipe.LTrim(ctx, feedKey, 0, feedMaxLen-1)
	pipe.Expire(ctx, feedKey, eventTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		m.log.Error().Err(err).Str("symbol", e.Symbol).Msg("failed to mirror pipeline event")
	}
}

// StoreRiskState mirrors the daily risk row keyed by its UTC date.
func (m *Mirror) StoreRiskState(ctx context.Context, state database.DailyState) {
	if !m.enabled {
		return
	}

	data, err := json.Marshal(state)
	if err != nil {
		m.log.Error().Err(err).Msg("failed to marshal risk state for redis")
		return
	}

	key := fmt.Sprintf(keyRiskState, state.DateID)
	if err := m.client.Set(ctx, key, data, riskStateTTL).Err(); err != nil {
		m.log.Error().Err(err).Str("date_id", state.DateID).Msg("failed to mirror risk state")
	}
}

// LatestEvent reads back the most recent mirrored event for a symbol.
// Returns nil when none is stored or Redis is disabled.
func (m *Mirror) LatestEvent(ctx context.Context, symbol string) (*events.PipelineEvent, error) {
	if !m.enabled {
		return nil, nil
	}

	data, err := m.client.Get(ctx, fmt.Sprintf(keyLatestEvent, symbol)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis read: %w", err)
	}

	var e events.PipelineEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("decode mirrored event: %w", err)
	}
	return &e, nil
}
