package exchange

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// PaperConfig tunes the simulated venue.
type PaperConfig struct {
	InitialBalance float64 // quote asset balance (e.g. USDT)
	QuoteAsset     string
	FeeRate        float64       // decimal, e.g. 0.001
	SlippageBps    float64       // basis points applied against the taker
	FillDelay      time.Duration // time before a market order reports FILLED
	NeverFill      bool          // orders stay NEW forever (fill-timeout tests)
	RejectOrders   bool          // every order is acked REJECTED
}

// PaperClient is an in-memory venue simulator used for dry-run mode and tests.
// Prices are driven externally via SetPrice or PushKlines.
type PaperClient struct {
	cfg PaperConfig

	mu       sync.RWMutex
	prices   map[string]float64
	klines   map[string][]Kline // key: symbol|interval
	orders   map[string]*paperOrder
	balances map[string]float64
	nextID   int64
	rng      *rand.Rand

	requests uint64
	errors   uint64
}

type paperOrder struct {
	info     OrderInfo
	placedAt time.Time
}

// NewPaperClient creates a simulator with the given config.
func NewPaperClient(cfg PaperConfig) *PaperClient {
	if cfg.QuoteAsset == "" {
		cfg.QuoteAsset = "USDT"
	}
	if cfg.InitialBalance == 0 {
		cfg.InitialBalance = 10000
	}
	return &PaperClient{
		cfg:      cfg,
		prices:   make(map[string]float64),
		klines:   make(map[string][]Kline),
		orders:   make(map[string]*paperOrder),
		balances: map[string]float64{cfg.QuoteAsset: cfg.InitialBalance},
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SetPrice sets the current mark price for a symbol.
func (p *PaperClient) SetPrice(symbol string, price float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prices[symbol] = price
}

// PushKlines seeds candlesticks returned by GetKlines and updates the mark price.
func (p *PaperClient) PushKlines(symbol, interval string, klines ...Kline) {
	p.mu.Lock()
	defer p.mu.Unlock()
	key := symbol + "|" + interval
	p.klines[key] = append(p.klines[key], klines...)
	if len(klines) > 0 {
		p.prices[symbol] = klines[len(klines)-1].Close
	}
}

func (p *PaperClient) GetTicker(ctx context.Context, symbol string) (Ticker, error) {
	atomic.AddUint64(&p.requests, 1)
	p.mu.RLock()
	defer p.mu.RUnlock()
	price, ok := p.prices[symbol]
	if !ok {
		atomic.AddUint64(&p.errors, 1)
		return Ticker{}, fmt.Errorf("paper: no price for %s", symbol)
	}
	return Ticker{Symbol: symbol, LastPrice: price, Time: time.Now()}, nil
}

func (p *PaperClient) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]Kline, error) {
	atomic.AddUint64(&p.requests, 1)
	p.mu.RLock()
	defer p.mu.RUnlock()
	all := p.klines[symbol+"|"+interval]
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	out := make([]Kline, len(all))
	copy(out, all)
	return out, nil
}

func (p *PaperClient) PlaceOrder(ctx context.Context, req OrderRequest) (OrderResult, error) {
	atomic.AddUint64(&p.requests, 1)
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cfg.RejectOrders {
		return OrderResult{OrderID: p.newID(), Status: StatusRejected, ClientID: req.ClientID}, nil
	}

	price := req.Price
	if req.Type == OrderTypeMarket || price == 0 {
		mark, ok := p.prices[req.Symbol]
		if !ok {
			atomic.AddUint64(&p.errors, 1)
			return OrderResult{}, fmt.Errorf("paper: no price for %s", req.Symbol)
		}
		price = mark
	}
	if frac := p.cfg.SlippageBps / 10000.0; frac > 0 {
		noise := p.rng.Float64() * frac
		if req.Side == SideBuy {
			price *= 1 + noise
		} else {
			price *= 1 - noise
		}
	}

	id := p.newID()
	o := &paperOrder{
		info: OrderInfo{
			OrderID: id,
			Symbol:  req.Symbol,
			Side:    req.Side,
			Type:    req.Type,
			Price:   price,
			OrigQty: req.Qty,
			Status:  StatusNew,
		},
		placedAt: time.Now(),
	}
	p.orders[id] = o
	return OrderResult{OrderID: id, Status: StatusNew, ClientID: req.ClientID}, nil
}

func (p *PaperClient) newID() string {
	p.nextID++
	return strconv.FormatInt(p.nextID, 10)
}

func (p *PaperClient) CancelOrder(ctx context.Context, symbol, orderID string) error {
	atomic.AddUint64(&p.requests, 1)
	p.mu.Lock()
	defer p.mu.Unlock()
	o, ok := p.orders[orderID]
	if !ok {
		atomic.AddUint64(&p.errors, 1)
		return fmt.Errorf("paper: unknown order %s", orderID)
	}
	if !o.info.Status.Terminal() {
		o.info.Status = StatusCanceled
	}
	return nil
}

func (p *PaperClient) GetOrderStatus(ctx context.Context, symbol, orderID string) (OrderInfo, error) {
	atomic.AddUint64(&p.requests, 1)
	p.mu.Lock()
	defer p.mu.Unlock()
	o, ok := p.orders[orderID]
	if !ok {
		atomic.AddUint64(&p.errors, 1)
		return OrderInfo{}, fmt.Errorf("paper: unknown order %s", orderID)
	}
	p.maybeFill(o)
	return o.info, nil
}

// maybeFill settles a NEW order once its fill delay elapsed. Caller holds the lock.
func (p *PaperClient) maybeFill(o *paperOrder) {
	if o.info.Status != StatusNew || p.cfg.NeverFill {
		return
	}
	if time.Since(o.placedAt) < p.cfg.FillDelay {
		return
	}

	notional := o.info.Price * o.info.OrigQty
	fee := notional * p.cfg.FeeRate
	quote := p.cfg.QuoteAsset
	if o.info.Side == SideBuy {
		p.balances[quote] -= notional + fee
	} else {
		p.balances[quote] += notional - fee
	}

	o.info.ExecutedQty = o.info.OrigQty
	o.info.AvgPrice = o.info.Price
	o.info.Status = StatusFilled
}

func (p *PaperClient) GetOpenOrders(ctx context.Context, symbol string) ([]OrderInfo, error) {
	atomic.AddUint64(&p.requests, 1)
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []OrderInfo
	for _, o := range p.orders {
		p.maybeFill(o)
		if o.info.Status.Terminal() {
			continue
		}
		if symbol != "" && o.info.Symbol != symbol {
			continue
		}
		out = append(out, o.info)
	}
	return out, nil
}

func (p *PaperClient) GetAccountInfo(ctx context.Context) (AccountInfo, error) {
	atomic.AddUint64(&p.requests, 1)
	p.mu.RLock()
	defer p.mu.RUnlock()
	info := AccountInfo{AccountType: "PAPER", CanTrade: true}
	for asset, free := range p.balances {
		info.Balances = append(info.Balances, Balance{Asset: asset, Free: free})
	}
	return info, nil
}

func (p *PaperClient) GetBalance(ctx context.Context, asset string) (Balance, error) {
	atomic.AddUint64(&p.requests, 1)
	p.mu.RLock()
	defer p.mu.RUnlock()
	return Balance{Asset: asset, Free: p.balances[asset]}, nil
}

func (p *PaperClient) TestConnectivity(ctx context.Context) bool {
	return true
}

func (p *PaperClient) Statistics() Stats {
	return Stats{
		Requests: atomic.LoadUint64(&p.requests),
		Errors:   atomic.LoadUint64(&p.errors),
	}
}
