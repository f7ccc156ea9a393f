package exchange

import "context"

// Client abstracts a trading venue. All calls are synchronous; transient
// failures are retried internally so callers only see exhausted errors.
type Client interface {
	GetTicker(ctx context.Context, symbol string) (Ticker, error)
	GetKlines(ctx context.Context, symbol, interval string, limit int) ([]Kline, error)
	PlaceOrder(ctx context.Context, req OrderRequest) (OrderResult, error)
	CancelOrder(ctx context.Context, symbol, orderID string) error
	GetOrderStatus(ctx context.Context, symbol, orderID string) (OrderInfo, error)
	GetOpenOrders(ctx context.Context, symbol string) ([]OrderInfo, error)
	GetAccountInfo(ctx context.Context) (AccountInfo, error)
	GetBalance(ctx context.Context, asset string) (Balance, error)
	TestConnectivity(ctx context.Context) bool
	Statistics() Stats
}
