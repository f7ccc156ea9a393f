package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// CreateOrder inserts an order row.
func (d *Database) CreateOrder(ctx context.Context, o Order) error {
	_, err := d.DB.ExecContext(ctx, `
		INSERT INTO orders (id, signal_id, symbol, side, type, price, qty, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, o.ID, o.SignalID, o.Symbol, o.Side, o.Type, o.Price, o.Qty, o.Status, o.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

// UpdateOrderStatus sets the terminal status of an order.
func (d *Database) UpdateOrderStatus(ctx context.Context, id, status string) error {
	_, err := d.DB.ExecContext(ctx, `UPDATE orders SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	return nil
}

// CreateTrade inserts a realized fill row.
func (d *Database) CreateTrade(ctx context.Context, t Trade) error {
	_, err := d.DB.ExecContext(ctx, `
		INSERT INTO trades (id, order_id, symbol, side, price, qty, pnl, fee, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.OrderID, t.Symbol, t.Side, t.Price, t.Qty, t.PnL, t.Fee, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert trade: %w", err)
	}
	return nil
}

// CreateSignal inserts a dispatched signal row.
func (d *Database) CreateSignal(ctx context.Context, s SignalRecord) error {
	_, err := d.DB.ExecContext(ctx, `
		INSERT INTO signals (id, symbol, timeframe, direction, strength, confidence,
			entry_price, stop_loss, take_profit, risk_level, strategy, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, s.ID, s.Symbol, s.Timeframe, s.Direction, s.Strength, s.Confidence,
		s.EntryPrice, s.StopLoss, s.TakeProfit, s.RiskLevel, s.Strategy, s.Reason, s.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert signal: %w", err)
	}
	return nil
}

// RecordDailyTrade folds one realized trade into the day's aggregate row.
func (d *Database) RecordDailyTrade(ctx context.Context, pnl float64) error {
	today := time.Now().Format("2006-01-02")
	wins := 0
	losses := 0.0
	if pnl > 0 {
		wins = 1
	} else if pnl < 0 {
		losses = -pnl
	}

	_, err := d.DB.ExecContext(ctx, `
		INSERT INTO daily_metrics (date, pnl, trades, wins, losses)
		VALUES (?, ?, 1, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			pnl = pnl + ?,
			trades = trades + 1,
			wins = wins + ?,
			losses = losses + ?
	`, today, pnl, wins, losses, pnl, wins, losses)
	if err != nil {
		return fmt.Errorf("record daily trade: %w", err)
	}
	return nil
}

// RecentTrades returns the latest n trades, newest first.
func (d *Database) RecentTrades(ctx context.Context, n int) ([]Trade, error) {
	rows, err := d.DB.QueryContext(ctx, `
		SELECT id, order_id, symbol, side, price, qty, pnl, fee, created_at
		FROM trades ORDER BY created_at DESC LIMIT ?
	`, n)
	if err != nil {
		return nil, fmt.Errorf("query trades: %w", err)
	}
	defer rows.Close()

	var out []Trade
	for rows.Next() {
		var t Trade
		if err := rows.Scan(&t.ID, &t.OrderID, &t.Symbol, &t.Side, &t.Price, &t.Qty, &t.PnL, &t.Fee, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// RecentSignals returns the latest n signal rows, newest first.
func (d *Database) RecentSignals(ctx context.Context, n int) ([]SignalRecord, error) {
	rows, err := d.DB.QueryContext(ctx, `
		SELECT id, symbol, timeframe, direction, strength, confidence,
		       entry_price, stop_loss, take_profit, risk_level, strategy, reason, created_at
		FROM signals ORDER BY created_at DESC LIMIT ?
	`, n)
	if err != nil {
		return nil, fmt.Errorf("query signals: %w", err)
	}
	defer rows.Close()

	var out []SignalRecord
	for rows.Next() {
		var s SignalRecord
		if err := rows.Scan(&s.ID, &s.Symbol, &s.Timeframe, &s.Direction, &s.Strength, &s.Confidence,
			&s.EntryPrice, &s.StopLoss, &s.TakeProfit, &s.RiskLevel, &s.Strategy, &s.Reason, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan signal: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// DailyMetrics returns the aggregate row for the given date, zero row when
// absent.
func (d *Database) DailyMetrics(ctx context.Context, date string) (DailyMetric, error) {
	var m DailyMetric
	err := d.DB.QueryRowContext(ctx, `
		SELECT date, pnl, trades, wins, losses FROM daily_metrics WHERE date = ?
	`, date).Scan(&m.Date, &m.PnL, &m.Trades, &m.Wins, &m.Losses)
	if err == sql.ErrNoRows {
		return DailyMetric{Date: date}, nil
	}
	if err != nil {
		return DailyMetric{}, fmt.Errorf("query daily metrics: %w", err)
	}
	return m, nil
}
