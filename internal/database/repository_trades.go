package database

import (
	"context"
	"fmt"
)

// InsertTrade persists a new trade record and fills in its generated id and
// timestamps.
func (r *Repository) InsertTrade(ctx context.Context, trade *Trade) error {
	query := `
		INSERT INTO trades (symbol, action, entry_price, stop_loss, take_profit, position_size, status, exchange_order_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`

	err := r.db.Pool.QueryRow(ctx, query,
		trade.Symbol,
		trade.Action,
		trade.EntryPrice,
		trade.StopLoss,
		trade.TakeProfit,
		trade.PositionSize,
		trade.Status,
		trade.ExchangeOrderID,
	).Scan(&trade.ID, &trade.CreatedAt, &trade.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert trade: %w", err)
	}
	return nil
}

// OpenTrades returns all trades currently in OPEN status, oldest first.
func (r *Repository) OpenTrades(ctx context.Context) ([]Trade, error) {
	query := `
		SELECT id, symbol, action, entry_price, stop_loss, take_profit, position_size, status, pnl_r, exchange_order_id, created_at, updated_at
		FROM trades
		WHERE status = $1
		ORDER BY created_at ASC`

	rows, err := r.db.Pool.Query(ctx, query, StatusOpen)
	if err != nil {
		return nil, fmt.Errorf("failed to query open trades: %w", err)
	}
	defer rows.Close()

	var trades []Trade
	for rows.Next() {
		var t Trade
		if err := rows.Scan(
			&t.ID, &t.Symbol, &t.Action, &t.EntryPrice, &t.StopLoss, &t.TakeProfit,
			&t.PositionSize, &t.Status, &t.PnLR, &t.ExchangeOrderID, &t.CreatedAt, &t.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// UpdateTradeStatus transitions a trade to a new status and records its
// realized PnL in risk multiples.
func (r *Repository) UpdateTradeStatus(ctx context.Context, id int64, status string, pnlR float64) error {
	query := `
		UPDATE trades
		SET status = $2, pnl_r = $3, updated_at = NOW()
		WHERE id = $1`

	tag, err := r.db.Pool.Exec(ctx, query, id, status, pnlR)
	if err != nil {
		return fmt.Errorf("failed to update trade %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("trade %d not found", id)
	}
	return nil
}
