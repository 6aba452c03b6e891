package database

import (
	"context"
	"fmt"
)

// GetOrCreateDailyState loads the risk counter row for the given UTC date,
// creating it with zeroed counters on first access.
func (r *Repository) GetOrCreateDailyState(ctx context.Context, dateID string) (DailyState, error) {
	query := `
		INSERT INTO daily_state (date_id)
		VALUES ($1)
		ON CONFLICT (date_id) DO UPDATE SET date_id = EXCLUDED.date_id
		RETURNING date_id, current_pnl_r, killswitch_active, updated_at`

	var state DailyState
	err := r.db.Pool.QueryRow(ctx, query, dateID).Scan(
		&state.DateID, &state.CurrentPnLR, &state.KillswitchActive, &state.UpdatedAt,
	)
	if err != nil {
		return DailyState{}, fmt.Errorf("failed to load daily state %s: %w", dateID, err)
	}
	return state, nil
}

// SetKillswitch persists the kill-switch flag for the given day.
func (r *Repository) SetKillswitch(ctx context.Context, dateID string, active bool) error {
	query := `
		UPDATE daily_state
		SET killswitch_active = $2, updated_at = NOW()
		WHERE date_id = $1`

	if _, err := r.db.Pool.Exec(ctx, query, dateID, active); err != nil {
		return fmt.Errorf("failed to set killswitch for %s: %w", dateID, err)
	}
	return nil
}

// UpdateDailyPnL atomically adds a signed risk-multiple delta to the day's
// accumulator and recomputes the kill-switch via the supplied policy. The
// read-modify-write runs under a row lock so overlapping cycles cannot lose
// an update.
func (r *Repository) UpdateDailyPnL(ctx context.Context, dateID string, deltaR float64, killswitch func(pnlR float64, active bool) bool) (DailyState, error) {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return DailyState{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO daily_state (date_id) VALUES ($1) ON CONFLICT (date_id) DO NOTHING`,
		dateID,
	); err != nil {
		return DailyState{}, fmt.Errorf("failed to ensure daily state %s: %w", dateID, err)
	}

	var state DailyState
	err = tx.QueryRow(ctx,
		`SELECT date_id, current_pnl_r, killswitch_active FROM daily_state WHERE date_id = $1 FOR UPDATE`,
		dateID,
	).Scan(&state.DateID, &state.CurrentPnLR, &state.KillswitchActive)
	if err != nil {
		return DailyState{}, fmt.Errorf("failed to lock daily state %s: %w", dateID, err)
	}

	state.CurrentPnLR += deltaR
	state.KillswitchActive = killswitch(state.CurrentPnLR, state.KillswitchActive)

	err = tx.QueryRow(ctx,
		`UPDATE daily_state
		 SET current_pnl_r = $2, killswitch_active = $3, updated_at = NOW()
		 WHERE date_id = $1
		 RETURNING updated_at`,
		dateID, state.CurrentPnLR, state.KillswitchActive,
	).Scan(&state.UpdatedAt)
	if err != nil {
		return DailyState{}, fmt.Errorf("failed to update daily state %s: %w", dateID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return DailyState{}, fmt.Errorf("failed to commit daily state %s: %w", dateID, err)
	}
	return state, nil
}
