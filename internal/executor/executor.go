package executor

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"tradefan-core/internal/events"
	"tradefan-core/internal/monitor"
	"tradefan-core/internal/risk"
	"tradefan-core/internal/signal"
	"tradefan-core/pkg/db"
	"tradefan-core/pkg/exchange"
)

// Config tunes the executor loop.
type Config struct {
	Symbols          []string
	QuoteAsset       string
	Capital          float64 // reference capital for the daily loss limit
	LoopInterval     time.Duration
	FillTimeout      time.Duration
	FillPollInterval time.Duration
	PauseCooldown    time.Duration
	ReentryCooldown  time.Duration // minimum wait before re-entering a symbol after an exit
	SignalTTL        time.Duration
	PendingQueueSize int
}

func DefaultConfig() Config {
	return Config{
		QuoteAsset:       "USDT",
		LoopInterval:     10 * time.Second,
		FillTimeout:      30 * time.Second,
		FillPollInterval: time.Second,
		PauseCooldown:    5 * time.Minute,
		ReentryCooldown:  60 * time.Second,
		SignalTTL:        300 * time.Second,
		PendingQueueSize: 64,
	}
}

// ExecStats are the executor's aggregate trade counters.
type ExecStats struct {
	TradesOpened int     `json:"trades_opened"`
	TradesClosed int     `json:"trades_closed"`
	WinRate      float64 `json:"win_rate"`
	RealizedPnL  float64 `json:"realized_pnl"`
}

// Status is a consistent snapshot for status endpoints.
type Status struct {
	State     string         `json:"state"`
	Positions []Position     `json:"positions"`
	Stats     ExecStats      `json:"stats"`
	Risk      risk.Metrics   `json:"risk"`
	API       exchange.Stats `json:"api"`
	StartedAt time.Time      `json:"started_at"`
}

// Executor owns the open positions and the order lifecycle. It consumes
// validated signals, sizes entries against the account balance, and enforces
// stop-loss, take-profit, and portfolio limits.
type Executor struct {
	cfg     Config
	client  exchange.Client
	checker *risk.Checker
	bus     *events.Bus
	journal *db.Database // optional

	// Metrics optionally receives order fill latencies. Set before Start.
	Metrics *monitor.SystemMetrics

	machine *Machine
	pending chan *signal.Signal

	mu        sync.RWMutex
	positions map[string]*Position
	lastExit  map[string]time.Time
	startedAt time.Time
	opened    int
	closed    int

	pauseMu     sync.Mutex
	pausedUntil time.Time
	autoPaused  bool

	cancel context.CancelFunc
	done   chan struct{}
}

func New(cfg Config, client exchange.Client, checker *risk.Checker, bus *events.Bus, journal *db.Database) *Executor {
	if cfg.LoopInterval <= 0 {
		cfg.LoopInterval = 10 * time.Second
	}
	if cfg.FillTimeout <= 0 {
		cfg.FillTimeout = 30 * time.Second
	}
	if cfg.FillPollInterval <= 0 {
		cfg.FillPollInterval = time.Second
	}
	if cfg.PauseCooldown <= 0 {
		cfg.PauseCooldown = 5 * time.Minute
	}
	if cfg.SignalTTL <= 0 {
		cfg.SignalTTL = 300 * time.Second
	}
	if cfg.PendingQueueSize <= 0 {
		cfg.PendingQueueSize = 64
	}
	if cfg.QuoteAsset == "" {
		cfg.QuoteAsset = "USDT"
	}

	e := &Executor{
		cfg:       cfg,
		client:    client,
		checker:   checker,
		bus:       bus,
		journal:   journal,
		pending:   make(chan *signal.Signal, cfg.PendingQueueSize),
		positions: make(map[string]*Position),
		lastExit:  make(map[string]time.Time),
	}
	e.machine = NewMachine(func(from, to State) {
		log.Printf("executor: state %s -> %s", from, to)
		bus.Publish(events.EventStateChanged, map[string]string{"from": from.String(), "to": to.String()})
	})
	return e
}

// State returns the current lifecycle state.
func (e *Executor) State() State {
	return e.machine.State()
}

// Start runs initialization and launches the main loop. Connectivity or
// balance failures are fatal and drive the Errored state.
func (e *Executor) Start(ctx context.Context) error {
	if !e.machine.Transition(Starting) {
		return fmt.Errorf("executor: cannot start from %s", e.machine.State())
	}

	if !e.client.TestConnectivity(ctx) {
		e.machine.Transition(Errored)
		return fmt.Errorf("executor: exchange connectivity test failed")
	}
	bal, err := e.client.GetBalance(ctx, e.cfg.QuoteAsset)
	if err != nil {
		e.machine.Transition(Errored)
		return fmt.Errorf("executor: fetch %s balance: %w", e.cfg.QuoteAsset, err)
	}
	log.Printf("executor: starting with %.2f %s available", bal.Free, e.cfg.QuoteAsset)

	if !e.machine.Transition(Running) {
		return fmt.Errorf("executor: cannot run from %s", e.machine.State())
	}

	e.mu.Lock()
	e.startedAt = time.Now()
	e.mu.Unlock()

	loopCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.done = make(chan struct{})
	go e.run(loopCtx)
	return nil
}

// Pause suspends entries and risk-driven closes. Mark-price refresh stops
// too; positions stay open.
func (e *Executor) Pause() bool {
	if !e.machine.Transition(Pausing) {
		return false
	}
	e.machine.Transition(Paused)
	return true
}

// Resume returns from Paused to Running.
func (e *Executor) Resume() bool {
	e.pauseMu.Lock()
	e.autoPaused = false
	e.pausedUntil = time.Time{}
	e.pauseMu.Unlock()
	return e.machine.Transition(Running)
}

// Stop runs the shutdown sequence: cancel open orders, close all positions,
// log final statistics.
func (e *Executor) Stop(ctx context.Context) error {
	if !e.machine.Transition(Stopping) {
		return fmt.Errorf("executor: cannot stop from %s", e.machine.State())
	}

	if e.cancel != nil {
		e.cancel()
		<-e.done
	}

	e.shutdown(ctx)
	e.machine.Transition(Stopped)
	return nil
}

// Reset clears the Errored state so the engine can be started again.
func (e *Executor) Reset() bool {
	return e.machine.Reset()
}

// HandleSignal is the pipeline callback. It never blocks; when the pending
// queue is full the signal is dropped and logged.
func (e *Executor) HandleSignal(sig *signal.Signal) {
	select {
	case e.pending <- sig:
	default:
		log.Printf("executor: pending queue full, dropping %s %s signal", sig.Symbol, sig.Direction)
	}
}

// Status returns a consistent snapshot of the executor.
func (e *Executor) Status() Status {
	e.mu.RLock()
	positions := make([]Position, 0, len(e.positions))
	for _, p := range e.positions {
		positions = append(positions, *p)
	}
	opened, closed := e.opened, e.closed
	startedAt := e.startedAt
	e.mu.RUnlock()

	m := e.checker.Metrics()
	return Status{
		State:     e.machine.State().String(),
		Positions: positions,
		Stats: ExecStats{
			TradesOpened: opened,
			TradesClosed: closed,
			WinRate:      m.WinRate(),
			RealizedPnL:  m.TotalRealizedPnL,
		},
		Risk:      m,
		API:       e.client.Statistics(),
		StartedAt: startedAt,
	}
}

// Positions returns a snapshot copy of the open positions.
func (e *Executor) Positions() []Position {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Position, 0, len(e.positions))
	for _, p := range e.positions {
		out = append(out, *p)
	}
	return out
}

func (e *Executor) run(ctx context.Context) {
	defer close(e.done)

	for {
		if ctx.Err() != nil {
			return
		}

		start := time.Now()
		switch e.machine.State() {
		case Running:
			e.iterate(ctx)
		case Paused:
			e.maybeAutoResume()
		case Stopping, Stopped, Errored:
			return
		}

		remaining := e.cfg.LoopInterval - time.Since(start)
		if remaining < 0 {
			remaining = 0
		}
		if !sleepCtx(ctx, remaining) {
			return
		}
	}
}

// iterate is one pass of the main loop. Errors on one symbol never abort the
// others.
func (e *Executor) iterate(ctx context.Context) {
	e.markPositions(ctx)
	e.checkExits(ctx)

	if dec := e.checker.CheckPortfolio(e.cfg.Capital); !dec.Allowed {
		log.Printf("executor: portfolio risk breach: %s", dec.Reason)
		e.bus.Publish(events.EventRiskAlert, dec.Reason)
		e.pauseForCooldown()
		return
	}

	e.drainSignals(ctx)
}

func (e *Executor) markPositions(ctx context.Context) {
	for _, p := range e.Positions() {
		tk, err := e.client.GetTicker(ctx, p.Symbol)
		if err != nil {
			log.Printf("executor: ticker %s: %v", p.Symbol, err)
			continue
		}
		e.mu.Lock()
		if live, ok := e.positions[p.Symbol]; ok {
			live.Mark(tk.LastPrice)
		}
		e.mu.Unlock()
	}
}

func (e *Executor) checkExits(ctx context.Context) {
	for _, p := range e.Positions() {
		switch {
		case p.StopBreached():
			log.Printf("executor: %s stop-loss hit at %.4f (stop %.4f)", p.Symbol, p.CurrentPrice, p.StopLoss)
			e.closePosition(ctx, p.Symbol, "stop_loss")
		case p.TargetReached():
			log.Printf("executor: %s take-profit hit at %.4f (target %.4f)", p.Symbol, p.CurrentPrice, p.TakeProfit)
			e.closePosition(ctx, p.Symbol, "take_profit")
		}
	}
}

// pauseForCooldown transitions to Paused and schedules an automatic resume
// attempt after the cooldown.
func (e *Executor) pauseForCooldown() {
	if !e.machine.Transition(Pausing) {
		return
	}
	e.machine.Transition(Paused)

	e.pauseMu.Lock()
	e.autoPaused = true
	e.pausedUntil = time.Now().Add(e.cfg.PauseCooldown)
	e.pauseMu.Unlock()
	log.Printf("executor: paused for %s cooldown", e.cfg.PauseCooldown)
}

func (e *Executor) maybeAutoResume() {
	e.pauseMu.Lock()
	auto := e.autoPaused
	until := e.pausedUntil
	e.pauseMu.Unlock()

	if !auto || time.Now().Before(until) {
		return
	}
	if dec := e.checker.CheckPortfolio(e.cfg.Capital); !dec.Allowed {
		// still breached, push the cooldown forward
		e.pauseMu.Lock()
		e.pausedUntil = time.Now().Add(e.cfg.PauseCooldown)
		e.pauseMu.Unlock()
		return
	}
	log.Printf("executor: cooldown elapsed, resuming")
	e.Resume()
}

func (e *Executor) drainSignals(ctx context.Context) {
	for {
		select {
		case sig := <-e.pending:
			e.processSignal(ctx, sig)
		default:
			return
		}
	}
}

func (e *Executor) processSignal(ctx context.Context, sig *signal.Signal) {
	if sig.Expired(e.cfg.SignalTTL) {
		log.Printf("executor: signal %s expired, skipping", sig.ID)
		return
	}

	e.mu.RLock()
	_, hasPosition := e.positions[sig.Symbol]
	open := len(e.positions)
	exitedAt := e.lastExit[sig.Symbol]
	e.mu.RUnlock()

	// Re-entry cooldown runs on its own clock, separate from the
	// validator's signal spacing.
	if e.cfg.ReentryCooldown > 0 && !exitedAt.IsZero() {
		if wait := e.cfg.ReentryCooldown - time.Since(exitedAt); wait > 0 {
			log.Printf("executor: re-entry cooldown for %s, %.0fs remaining", sig.Symbol, wait.Seconds())
			return
		}
	}

	if dec := e.checker.CheckEntry(open, hasPosition); !dec.Allowed {
		log.Printf("executor: entry rejected for %s: %s", sig.Symbol, dec.Reason)
		return
	}

	bal, err := e.client.GetBalance(ctx, e.cfg.QuoteAsset)
	if err != nil {
		log.Printf("executor: balance: %v", err)
		return
	}
	notional := e.checker.PositionNotional(bal.Free)
	if notional <= 0 || sig.EntryPrice <= 0 {
		log.Printf("executor: no capital available for %s entry", sig.Symbol)
		return
	}
	qty := notional / sig.EntryPrice

	e.openPosition(ctx, sig, qty)
}

func (e *Executor) openPosition(ctx context.Context, sig *signal.Signal, qty float64) {
	side := sideFor(sig.Direction)
	req := exchange.OrderRequest{
		Symbol:   sig.Symbol,
		Side:     side.EntrySide(),
		Type:     exchange.OrderTypeMarket,
		Qty:      qty,
		ClientID: uuid.NewString(),
	}

	submitted := time.Now()
	res, err := e.client.PlaceOrder(ctx, req)
	if err != nil {
		log.Printf("executor: place order %s %s: %v", sig.Symbol, req.Side, err)
		return
	}
	e.bus.Publish(events.EventOrderSubmitted, res)
	e.recordOrder(ctx, res, req, sig.ID)

	info, err := e.awaitFill(ctx, sig.Symbol, res.OrderID)
	if err != nil {
		log.Printf("executor: order %s on %s not filled: %v", res.OrderID, sig.Symbol, err)
		if cerr := e.client.CancelOrder(ctx, sig.Symbol, res.OrderID); cerr != nil {
			log.Printf("executor: cancel order %s: %v", res.OrderID, cerr)
		}
		e.updateOrder(ctx, req.ClientID, "CANCELED")
		e.bus.Publish(events.EventOrderFailed, res)
		return
	}

	fillPrice := info.AvgPrice
	if fillPrice <= 0 {
		fillPrice = sig.EntryPrice
	}

	pos := &Position{
		Symbol:     sig.Symbol,
		Side:       side,
		Size:       info.ExecutedQty,
		EntryPrice: fillPrice,
		EntryTime:  time.Now(),
		StopLoss:   sig.StopLoss,
		TakeProfit: sig.TakeProfit,
		Strategy:   sig.Strategy,
		SignalID:   sig.ID,
	}
	pos.Mark(fillPrice)

	e.mu.Lock()
	e.positions[sig.Symbol] = pos
	e.opened++
	e.mu.Unlock()

	if e.Metrics != nil {
		e.Metrics.OrderLatency.RecordDuration(time.Since(submitted))
	}
	e.updateOrder(ctx, req.ClientID, "FILLED")
	e.bus.Publish(events.EventOrderFilled, info)
	e.bus.Publish(events.EventPositionOpened, *pos)
	log.Printf("executor: opened %s %s %.6f @ %.4f (stop %.4f target %.4f)",
		pos.Side, pos.Symbol, pos.Size, pos.EntryPrice, pos.StopLoss, pos.TakeProfit)
}

// awaitFill polls order status until it fills or the fill timeout elapses.
// The timeout is independent of the loop's context so a shutdown in progress
// does not hang on a stuck order.
func (e *Executor) awaitFill(ctx context.Context, symbol, orderID string) (exchange.OrderInfo, error) {
	deadline := time.Now().Add(e.cfg.FillTimeout)
	for {
		info, err := e.client.GetOrderStatus(ctx, symbol, orderID)
		if err == nil {
			switch info.Status {
			case exchange.StatusFilled:
				return info, nil
			case exchange.StatusRejected, exchange.StatusCanceled, exchange.StatusExpired:
				return info, fmt.Errorf("order %s terminal with status %s", orderID, info.Status)
			}
		} else {
			log.Printf("executor: order status %s: %v", orderID, err)
		}

		if time.Now().After(deadline) {
			return exchange.OrderInfo{}, fmt.Errorf("fill timeout after %s", e.cfg.FillTimeout)
		}
		if !sleepCtx(ctx, e.cfg.FillPollInterval) {
			return exchange.OrderInfo{}, ctx.Err()
		}
	}
}

func (e *Executor) closePosition(ctx context.Context, symbol, reason string) {
	e.mu.RLock()
	pos, ok := e.positions[symbol]
	var snapshot Position
	if ok {
		snapshot = *pos
	}
	e.mu.RUnlock()
	if !ok {
		return
	}

	req := exchange.OrderRequest{
		Symbol:   symbol,
		Side:     snapshot.Side.ExitSide(),
		Type:     exchange.OrderTypeMarket,
		Qty:      snapshot.Size,
		ClientID: uuid.NewString(),
	}
	res, err := e.client.PlaceOrder(ctx, req)
	if err != nil {
		log.Printf("executor: close %s: %v", symbol, err)
		return
	}
	e.recordOrder(ctx, res, req, snapshot.SignalID)

	info, err := e.awaitFill(ctx, symbol, res.OrderID)
	if err != nil {
		log.Printf("executor: close %s not filled: %v", symbol, err)
		if cerr := e.client.CancelOrder(ctx, symbol, res.OrderID); cerr != nil {
			log.Printf("executor: cancel close order %s: %v", res.OrderID, cerr)
		}
		return
	}

	exitPrice := info.AvgPrice
	if exitPrice <= 0 {
		exitPrice = snapshot.CurrentPrice
	}
	pnl := snapshot.RealizedAt(exitPrice)

	e.mu.Lock()
	delete(e.positions, symbol)
	e.lastExit[symbol] = time.Now()
	e.closed++
	e.mu.Unlock()

	e.checker.RecordTrade(pnl)
	e.updateOrder(ctx, req.ClientID, "FILLED")
	e.recordTrade(ctx, res, req, exitPrice, pnl)
	e.bus.Publish(events.EventPositionClosed, map[string]any{
		"position": snapshot, "exit_price": exitPrice, "pnl": pnl, "reason": reason,
	})
	log.Printf("executor: closed %s %s %.6f @ %.4f pnl=%.4f (%s)",
		snapshot.Side, symbol, snapshot.Size, exitPrice, pnl, reason)
}

// shutdown cancels open orders and closes every position at market.
func (e *Executor) shutdown(ctx context.Context) {
	for _, sym := range e.cfg.Symbols {
		orders, err := e.client.GetOpenOrders(ctx, sym)
		if err != nil {
			log.Printf("executor: list open orders %s: %v", sym, err)
			continue
		}
		for _, o := range orders {
			if err := e.client.CancelOrder(ctx, sym, o.OrderID); err != nil {
				log.Printf("executor: cancel %s on %s: %v", o.OrderID, sym, err)
			}
		}
	}

	for _, p := range e.Positions() {
		e.closePosition(ctx, p.Symbol, "shutdown")
	}

	m := e.checker.Metrics()
	e.mu.RLock()
	opened, closed := e.opened, e.closed
	e.mu.RUnlock()
	log.Printf("executor: final stats: opened=%d closed=%d win_rate=%.1f%% realized_pnl=%.4f",
		opened, closed, m.WinRate()*100, m.TotalRealizedPnL)
}

func (e *Executor) recordOrder(ctx context.Context, res exchange.OrderResult, req exchange.OrderRequest, signalID string) {
	if e.journal == nil {
		return
	}
	err := e.journal.CreateOrder(ctx, db.Order{
		ID:        req.ClientID,
		SignalID:  signalID,
		Symbol:    req.Symbol,
		Side:      string(req.Side),
		Type:      string(req.Type),
		Price:     req.Price,
		Qty:       req.Qty,
		Status:    string(res.Status),
		CreatedAt: time.Now(),
	})
	if err != nil {
		log.Printf("executor: journal order: %v", err)
	}
}

func (e *Executor) updateOrder(ctx context.Context, id, status string) {
	if e.journal == nil {
		return
	}
	if err := e.journal.UpdateOrderStatus(ctx, id, status); err != nil {
		log.Printf("executor: journal order status: %v", err)
	}
}

func (e *Executor) recordTrade(ctx context.Context, res exchange.OrderResult, req exchange.OrderRequest, price, pnl float64) {
	if e.journal == nil {
		return
	}
	err := e.journal.CreateTrade(ctx, db.Trade{
		ID:        uuid.NewString(),
		OrderID:   req.ClientID,
		Symbol:    req.Symbol,
		Side:      string(req.Side),
		Price:     price,
		Qty:       req.Qty,
		PnL:       pnl,
		CreatedAt: time.Now(),
	})
	if err != nil {
		log.Printf("executor: journal trade: %v", err)
	}
	if err := e.journal.RecordDailyTrade(ctx, pnl); err != nil {
		log.Printf("executor: journal daily metrics: %v", err)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
