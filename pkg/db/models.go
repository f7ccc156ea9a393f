package db

import "time"

// Order is an order row in the audit journal. Rows are append-only once the
// status is terminal.
type Order struct {
	ID        string
	SignalID  string
	Symbol    string
	Side      string
	Type      string
	Price     float64
	Qty       float64
	Status    string
	CreatedAt time.Time
}

// Trade is a realized fill row.
type Trade struct {
	ID        string
	OrderID   string
	Symbol    string
	Side      string
	Price     float64
	Qty       float64
	PnL       float64
	Fee       float64
	CreatedAt time.Time
}

// SignalRecord is a dispatched signal row.
type SignalRecord struct {
	ID         string
	Symbol     string
	Timeframe  string
	Direction  string
	Strength   float64
	Confidence float64
	EntryPrice float64
	StopLoss   float64
	TakeProfit float64
	RiskLevel  string
	Strategy   string
	Reason     string
	CreatedAt  time.Time
}

// DailyMetric is the per-day aggregate row.
type DailyMetric struct {
	Date   string
	PnL    float64
	Trades int
	Wins   int
	Losses float64
}
