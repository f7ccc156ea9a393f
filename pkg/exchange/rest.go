package exchange

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/jpillora/backoff"
	"golang.org/x/time/rate"
)

// Config holds REST client credentials and tuning.
type Config struct {
	APIKey      string
	APISecret   string
	BaseURL     string // defaults to Binance spot
	Testnet     bool
	RecvWindow  int64 // ms
	MaxRetries  int   // attempts after the first failure
	HTTPTimeout time.Duration
}

// RESTClient is a signed REST wrapper with bounded retry and rate awareness.
type RESTClient struct {
	cfg         Config
	baseURL     string
	httpClient  *http.Client
	rateLimiter *RateLimiter
	pacer       *rate.Limiter

	requests uint64
	errors   uint64
	retries  uint64
}

// NewRESTClient builds a client against the configured venue.
func NewRESTClient(cfg Config) *RESTClient {
	base := cfg.BaseURL
	if base == "" {
		base = "https://api.binance.com"
		if cfg.Testnet {
			base = "https://testnet.binance.vision"
		}
	}
	if cfg.RecvWindow == 0 {
		cfg.RecvWindow = 5000
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.HTTPTimeout == 0 {
		cfg.HTTPTimeout = 10 * time.Second
	}
	return &RESTClient{
		cfg:        cfg,
		baseURL:    base,
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout},
		// Weight window per spot API: 1200/min.
		rateLimiter: NewRateLimiter(1200, time.Minute),
		// Client-side pacing so bursts never trip the server limiter.
		pacer: rate.NewLimiter(rate.Limit(10), 20),
	}
}

// retryable reports whether a request should be re-sent.
func retryable(status int, err error) bool {
	if err != nil {
		return true // network-level failure
	}
	return status == http.StatusTooManyRequests || status >= 500
}

// do performs the request with bounded backoff on 429/5xx/network errors.
func (c *RESTClient) do(ctx context.Context, method, endpoint string, params url.Values, signed bool) ([]byte, error) {
	bo := &backoff.Backoff{
		Min:    500 * time.Millisecond,
		Max:    10 * time.Second,
		Factor: 2,
		Jitter: true,
	}

	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			atomic.AddUint64(&c.retries, 1)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(bo.Duration()):
			}
		}

		body, status, err := c.doOnce(ctx, method, endpoint, params, signed)
		if err == nil && status < 300 {
			return body, nil
		}
		if err != nil {
			lastErr = err
		} else {
			lastErr = fmt.Errorf("exchange %s %s status %d: %s", method, endpoint, status, string(body))
		}
		if !retryable(status, err) {
			break
		}
		log.Printf("exchange: request %s %s failed (attempt %d/%d): %v", method, endpoint, attempt+1, c.cfg.MaxRetries+1, lastErr)
	}
	atomic.AddUint64(&c.errors, 1)
	return nil, lastErr
}

// doOnce signs (when requested) and performs a single HTTP request.
func (c *RESTClient) doOnce(ctx context.Context, method, endpoint string, params url.Values, signed bool) ([]byte, int, error) {
	if err := c.pacer.Wait(ctx); err != nil {
		return nil, 0, err
	}
	if c.rateLimiter.ShouldDelay() {
		select {
		case <-ctx.Done():
			return nil, 0, ctx.Err()
		case <-time.After(time.Second):
		}
	}

	if params == nil {
		params = url.Values{}
	}
	if signed {
		params.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
		params.Set("recvWindow", strconv.FormatInt(c.cfg.RecvWindow, 10))
		params.Set("signature", sign(params.Encode(), c.cfg.APISecret))
	}

	var (
		req *http.Request
		err error
	)
	encoded := params.Encode()
	full := c.baseURL + endpoint
	switch method {
	case http.MethodPost:
		req, err = http.NewRequestWithContext(ctx, method, full, strings.NewReader(encoded))
		if req != nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	default:
		// GET/DELETE carry signed params in the query string.
		if encoded != "" {
			full += "?" + encoded
		}
		req, err = http.NewRequestWithContext(ctx, method, full, nil)
	}
	if err != nil {
		return nil, 0, err
	}
	if c.cfg.APIKey != "" {
		req.Header.Set("X-MBX-APIKEY", c.cfg.APIKey)
	}

	atomic.AddUint64(&c.requests, 1)
	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer res.Body.Close()

	c.rateLimiter.UpdateFromHeader(res.Header.Get("X-MBX-USED-WEIGHT-1M"))

	body, _ := io.ReadAll(res.Body)
	return body, res.StatusCode, nil
}

func sign(payload, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

func mapStatus(s string) OrderStatus {
	switch strings.ToUpper(s) {
	case "NEW":
		return StatusNew
	case "PARTIALLY_FILLED":
		return StatusPartial
	case "FILLED":
		return StatusFilled
	case "CANCELED", "PENDING_CANCEL":
		return StatusCanceled
	case "REJECTED":
		return StatusRejected
	case "EXPIRED", "EXPIRED_IN_MATCH":
		return StatusExpired
	default:
		return StatusUnknown
	}
}

// GetTicker fetches the last traded price for a symbol.
func (c *RESTClient) GetTicker(ctx context.Context, symbol string) (Ticker, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	body, err := c.do(ctx, http.MethodGet, "/api/v3/ticker/price", params, false)
	if err != nil {
		return Ticker{}, err
	}
	var resp struct {
		Symbol string `json:"symbol"`
		Price  string `json:"price"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return Ticker{}, fmt.Errorf("decode ticker: %w", err)
	}
	return Ticker{Symbol: resp.Symbol, LastPrice: parseFloat(resp.Price), Time: time.Now()}, nil
}

// GetKlines fetches up to limit most recent candlesticks.
func (c *RESTClient) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]Kline, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("interval", interval)
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	body, err := c.do(ctx, http.MethodGet, "/api/v3/klines", params, false)
	if err != nil {
		return nil, err
	}
	var raw [][]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode klines: %w", err)
	}
	klines := make([]Kline, 0, len(raw))
	for _, row := range raw {
		if len(row) < 6 {
			continue
		}
		k := Kline{Symbol: symbol, Interval: interval}
		if v, ok := row[0].(float64); ok {
			k.OpenTime = int64(v)
		}
		if v, ok := row[1].(string); ok {
			k.Open = parseFloat(v)
		}
		if v, ok := row[2].(string); ok {
			k.High = parseFloat(v)
		}
		if v, ok := row[3].(string); ok {
			k.Low = parseFloat(v)
		}
		if v, ok := row[4].(string); ok {
			k.Close = parseFloat(v)
		}
		if v, ok := row[5].(string); ok {
			k.Volume = parseFloat(v)
		}
		klines = append(klines, k)
	}
	return klines, nil
}

type orderResponse struct {
	OrderID       int64  `json:"orderId"`
	ClientOrderID string `json:"clientOrderId"`
	Status        string `json:"status"`
	ExecutedQty   string `json:"executedQty"`
	Price         string `json:"price"`
}

// PlaceOrder submits an order and returns the exchange ack.
func (c *RESTClient) PlaceOrder(ctx context.Context, req OrderRequest) (OrderResult, error) {
	if c.cfg.APIKey == "" || c.cfg.APISecret == "" {
		return OrderResult{}, errors.New("exchange: API key/secret required")
	}

	params := url.Values{}
	params.Set("symbol", req.Symbol)
	params.Set("side", string(req.Side))
	ordType := req.Type
	if ordType == "" {
		ordType = OrderTypeMarket
	}
	params.Set("type", string(ordType))
	params.Set("quantity", formatFloat(req.Qty))
	if ordType == OrderTypeLimit {
		params.Set("price", formatFloat(req.Price))
		params.Set("timeInForce", "GTC")
	}
	if req.ClientID != "" {
		params.Set("newClientOrderId", req.ClientID)
	}

	body, err := c.do(ctx, http.MethodPost, "/api/v3/order", params, true)
	if err != nil {
		return OrderResult{}, err
	}
	var resp orderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return OrderResult{}, fmt.Errorf("decode order response: %w", err)
	}
	return OrderResult{
		OrderID:  strconv.FormatInt(resp.OrderID, 10),
		Status:   mapStatus(resp.Status),
		ClientID: resp.ClientOrderID,
	}, nil
}

// CancelOrder cancels a single order.
func (c *RESTClient) CancelOrder(ctx context.Context, symbol, orderID string) error {
	if c.cfg.APIKey == "" || c.cfg.APISecret == "" {
		return errors.New("exchange: API key/secret required")
	}
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("orderId", orderID)
	_, err := c.do(ctx, http.MethodDelete, "/api/v3/order", params, true)
	return err
}

type restOrder struct {
	Symbol        string `json:"symbol"`
	OrderID       int64  `json:"orderId"`
	Side          string `json:"side"`
	Type          string `json:"type"`
	Price         string `json:"price"`
	OrigQty       string `json:"origQty"`
	ExecutedQty   string `json:"executedQty"`
	CumQuoteQty   string `json:"cummulativeQuoteQty"`
	Status        string `json:"status"`
	ClientOrderID string `json:"clientOrderId"`
}

func (o restOrder) toInfo() OrderInfo {
	info := OrderInfo{
		OrderID:     strconv.FormatInt(o.OrderID, 10),
		Symbol:      o.Symbol,
		Side:        Side(o.Side),
		Type:        OrderType(o.Type),
		Price:       parseFloat(o.Price),
		OrigQty:     parseFloat(o.OrigQty),
		ExecutedQty: parseFloat(o.ExecutedQty),
		Status:      mapStatus(o.Status),
	}
	// Market fills report price 0; derive the average from the quote total.
	if info.ExecutedQty > 0 {
		if quote := parseFloat(o.CumQuoteQty); quote > 0 {
			info.AvgPrice = quote / info.ExecutedQty
		} else {
			info.AvgPrice = info.Price
		}
	}
	return info
}

// GetOrderStatus polls a single order by id.
func (c *RESTClient) GetOrderStatus(ctx context.Context, symbol, orderID string) (OrderInfo, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("orderId", orderID)
	body, err := c.do(ctx, http.MethodGet, "/api/v3/order", params, true)
	if err != nil {
		return OrderInfo{}, err
	}
	var o restOrder
	if err := json.Unmarshal(body, &o); err != nil {
		return OrderInfo{}, fmt.Errorf("decode order: %w", err)
	}
	return o.toInfo(), nil
}

// GetOpenOrders returns current open orders; empty symbol means all symbols.
func (c *RESTClient) GetOpenOrders(ctx context.Context, symbol string) ([]OrderInfo, error) {
	params := url.Values{}
	if symbol != "" {
		params.Set("symbol", symbol)
	}
	body, err := c.do(ctx, http.MethodGet, "/api/v3/openOrders", params, true)
	if err != nil {
		return nil, err
	}
	var raw []restOrder
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode open orders: %w", err)
	}
	out := make([]OrderInfo, 0, len(raw))
	for _, o := range raw {
		out = append(out, o.toInfo())
	}
	return out, nil
}

// GetAccountInfo returns account balances and permissions.
func (c *RESTClient) GetAccountInfo(ctx context.Context) (AccountInfo, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/v3/account", url.Values{}, true)
	if err != nil {
		return AccountInfo{}, err
	}
	var resp struct {
		AccountType string `json:"accountType"`
		CanTrade    bool   `json:"canTrade"`
		Balances    []struct {
			Asset  string `json:"asset"`
			Free   string `json:"free"`
			Locked string `json:"locked"`
		} `json:"balances"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return AccountInfo{}, fmt.Errorf("decode account info: %w", err)
	}
	info := AccountInfo{AccountType: resp.AccountType, CanTrade: resp.CanTrade}
	for _, b := range resp.Balances {
		info.Balances = append(info.Balances, Balance{
			Asset:  b.Asset,
			Free:   parseFloat(b.Free),
			Locked: parseFloat(b.Locked),
		})
	}
	return info, nil
}

// GetBalance returns the balance for one asset.
func (c *RESTClient) GetBalance(ctx context.Context, asset string) (Balance, error) {
	info, err := c.GetAccountInfo(ctx)
	if err != nil {
		return Balance{}, err
	}
	for _, b := range info.Balances {
		if b.Asset == asset {
			return b, nil
		}
	}
	return Balance{Asset: asset}, nil
}

// TestConnectivity pings the venue; false on any failure.
func (c *RESTClient) TestConnectivity(ctx context.Context) bool {
	_, err := c.do(ctx, http.MethodGet, "/api/v3/ping", nil, false)
	return err == nil
}

// Statistics returns client-side call statistics.
func (c *RESTClient) Statistics() Stats {
	used, limit, pct := c.rateLimiter.Usage()
	return Stats{
		Requests:    atomic.LoadUint64(&c.requests),
		Errors:      atomic.LoadUint64(&c.errors),
		Retries:     atomic.LoadUint64(&c.retries),
		WeightUsed:  used,
		WeightLimit: limit,
		WeightPct:   pct,
	}
}
