package exchange

import "time"

// Side denotes order side.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Opposite returns SELL for BUY and BUY for SELL.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// OrderType denotes basic order types.
type OrderType string

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
)

// OrderStatus normalizes exchange status into a small set.
type OrderStatus string

const (
	StatusNew      OrderStatus = "NEW"
	StatusPartial  OrderStatus = "PARTIALLY_FILLED"
	StatusFilled   OrderStatus = "FILLED"
	StatusCanceled OrderStatus = "CANCELED"
	StatusRejected OrderStatus = "REJECTED"
	StatusExpired  OrderStatus = "EXPIRED"
	StatusUnknown  OrderStatus = "UNKNOWN"
)

// Terminal reports whether the status can no longer change.
func (s OrderStatus) Terminal() bool {
	switch s {
	case StatusFilled, StatusCanceled, StatusRejected, StatusExpired:
		return true
	}
	return false
}

// OrderRequest captures an order intent to be sent to an exchange.
type OrderRequest struct {
	Symbol   string
	Side     Side
	Type     OrderType
	Qty      float64
	Price    float64 // required for LIMIT
	ClientID string  // optional client order id
}

// OrderResult returns the exchange ack.
type OrderResult struct {
	OrderID  string
	Status   OrderStatus
	ClientID string
}

// OrderInfo is the polled view of a previously submitted order.
type OrderInfo struct {
	OrderID     string
	Symbol      string
	Side        Side
	Type        OrderType
	Price       float64
	OrigQty     float64
	ExecutedQty float64
	AvgPrice    float64
	Status      OrderStatus
}

// Ticker is a lightweight last-price snapshot.
type Ticker struct {
	Symbol    string
	LastPrice float64
	Time      time.Time
}

// Kline is a single OHLCV candlestick.
type Kline struct {
	Symbol   string
	Interval string
	OpenTime int64 // ms
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   float64
}

// Balance represents an asset balance.
type Balance struct {
	Asset  string
	Free   float64
	Locked float64
}

// Total returns free + locked.
func (b Balance) Total() float64 {
	return b.Free + b.Locked
}

// AccountInfo holds balances and trading permission flags.
type AccountInfo struct {
	AccountType string
	CanTrade    bool
	Balances    []Balance
}

// Stats aggregates client-side call statistics.
type Stats struct {
	Requests    uint64  `json:"requests"`
	Errors      uint64  `json:"errors"`
	Retries     uint64  `json:"retries"`
	WeightUsed  int     `json:"weight_used"`
	WeightLimit int     `json:"weight_limit"`
	WeightPct   float64 `json:"weight_pct"`
}
