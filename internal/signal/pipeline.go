package signal

import (
	"context"
	"log"
	"sync"
	"time"

	"tradefan-core/internal/analysis"
	"tradefan-core/internal/events"
	"tradefan-core/internal/market"
	"tradefan-core/internal/monitor"
	"tradefan-core/internal/strategy"
)

// Handler receives validated signals from the consumer loop.
type Handler func(*Signal)

// PipelineConfig tunes the signal pipeline.
type PipelineConfig struct {
	QueueSize           int
	HistorySize         int
	MinBars             int
	SnapshotBars        int
	SignalTTL           time.Duration
	RequireConfirmation bool
}

func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		QueueSize:    100,
		HistorySize:  1000,
		MinBars:      50,
		SnapshotBars: 200,
		SignalTTL:    300 * time.Second,
	}
}

// Stats are the pipeline's performance counters.
type Stats struct {
	Generated     int64
	Accepted      int64
	Rejected      int64
	Dropped       int64
	Processed     int64
	AvgProcessing time.Duration
}

// Pipeline owns one monitor goroutine per (symbol, timeframe) and a single
// consumer that dispatches validated signals to registered handlers.
type Pipeline struct {
	cfg        PipelineConfig
	buffer     *market.Buffer
	validator  *Validator
	analyzer   *analysis.Analyzer
	bus        *events.Bus
	evaluators []strategy.Evaluator

	// Metrics optionally receives evaluation latencies. Set before Start.
	Metrics *monitor.SystemMetrics

	queue chan *Signal

	mu       sync.Mutex
	handlers []Handler
	history  []*Signal
	stats    Stats
	procSum  time.Duration

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewPipeline(cfg PipelineConfig, buffer *market.Buffer, validator *Validator, analyzer *analysis.Analyzer, bus *events.Bus, evaluators []strategy.Evaluator) *Pipeline {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 100
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = 1000
	}
	if cfg.MinBars <= 0 {
		cfg.MinBars = 50
	}
	if cfg.SnapshotBars <= 0 {
		cfg.SnapshotBars = 200
	}
	if cfg.SignalTTL <= 0 {
		cfg.SignalTTL = 300 * time.Second
	}
	return &Pipeline{
		cfg:        cfg,
		buffer:     buffer,
		validator:  validator,
		analyzer:   analyzer,
		bus:        bus,
		evaluators: evaluators,
		queue:      make(chan *Signal, cfg.QueueSize),
	}
}

// OnSignal registers a handler invoked by the consumer for every dispatched
// signal. Register before Start.
func (p *Pipeline) OnSignal(h Handler) {
	p.mu.Lock()
	p.handlers = append(p.handlers, h)
	p.mu.Unlock()
}

// Start launches the monitors and the consumer. It returns immediately.
func (p *Pipeline) Start(ctx context.Context, symbols, timeframes []string) {
	ctx, p.cancel = context.WithCancel(ctx)

	for _, sym := range symbols {
		for _, tf := range timeframes {
			p.wg.Add(1)
			go p.monitor(ctx, sym, tf, timeframes)
		}
	}

	p.wg.Add(1)
	go p.consume(ctx)

	log.Printf("pipeline: monitoring %d symbols across %d timeframes", len(symbols), len(timeframes))
}

// Stop shuts the monitors and consumer down and waits for them.
func (p *Pipeline) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	log.Printf("pipeline: stopped")
}

func (p *Pipeline) monitor(ctx context.Context, symbol, timeframe string, allTimeframes []string) {
	defer p.wg.Done()

	interval := market.PollInterval(timeframe)
	for {
		if ctx.Err() != nil {
			return
		}

		bars := p.buffer.Snapshot(symbol, timeframe, p.cfg.SnapshotBars)
		if len(bars) < p.cfg.MinBars {
			if !sleep(ctx, time.Second) {
				return
			}
			continue
		}

		start := time.Now()
		p.evaluate(symbol, timeframe, allTimeframes, bars)
		elapsed := time.Since(start)
		p.recordProcessing(elapsed)
		if p.Metrics != nil {
			p.Metrics.AnalysisLatency.RecordDuration(elapsed)
		}

		if !sleep(ctx, interval) {
			return
		}
	}
}

func (p *Pipeline) evaluate(symbol, timeframe string, allTimeframes []string, bars []market.Bar) {
	for _, ev := range p.evaluators {
		ind := ev.CalculateIndicators(bars)
		dir, strength, reason := ev.GenerateSignal(ind)
		if dir == strategy.Hold {
			continue
		}

		sig := Build(symbol, timeframe, ev.Name(), dir, strength, reason, ind)
		p.bumpGenerated()

		if p.cfg.RequireConfirmation && p.analyzer != nil {
			if !p.confirmed(symbol, timeframe, allTimeframes, sig) {
				p.reject(sig, "entry confirmation failed")
				continue
			}
		}

		dec := p.validator.Validate(sig)
		if !dec.Accepted {
			p.reject(sig, dec.Reason)
			continue
		}

		select {
		case p.queue <- sig:
			p.bump(&p.stats.Accepted)
			p.bus.Publish(events.EventSignalAccepted, sig)
		default:
			// full queue is backpressure, drop rather than block the monitor
			p.bump(&p.stats.Dropped)
			p.bus.Publish(events.EventSignalDropped, sig)
			log.Printf("pipeline: queue full, dropping %s %s %s signal", sig.Symbol, sig.Timeframe, sig.Direction)
		}
	}
}

// confirmed runs the cross-timeframe entry gate for a raw signal.
func (p *Pipeline) confirmed(symbol, timeframe string, allTimeframes []string, sig *Signal) bool {
	snapshots := make(map[string][]market.Bar, len(allTimeframes))
	for _, tf := range allTimeframes {
		if bars := p.buffer.Snapshot(symbol, tf, p.cfg.SnapshotBars); len(bars) > 0 {
			snapshots[tf] = bars
		}
	}
	analyses := p.analyzer.AnalyzeAll(snapshots)
	conf := p.analyzer.EntryConfirmation(analyses, timeframe, sig.EntryPrice)
	if conf.Confirmed {
		sig.Metadata["higher_tf_support"] = conf.HigherSupport
	}
	return conf.Confirmed
}

func (p *Pipeline) reject(sig *Signal, reason string) {
	p.bump(&p.stats.Rejected)
	p.bus.Publish(events.EventSignalRejected, sig)
	log.Printf("pipeline: rejected %s %s %s: %s", sig.Symbol, sig.Timeframe, sig.Direction, reason)
}

func (p *Pipeline) consume(ctx context.Context) {
	defer p.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-p.queue:
			p.dispatch(sig)
		}
	}
}

func (p *Pipeline) dispatch(sig *Signal) {
	p.mu.Lock()
	handlers := make([]Handler, len(p.handlers))
	copy(handlers, p.handlers)

	p.history = append(p.history, sig)
	if len(p.history) > p.cfg.HistorySize {
		p.history = p.history[len(p.history)-p.cfg.HistorySize:]
	}
	p.stats.Processed++
	p.mu.Unlock()

	for _, h := range handlers {
		h(sig)
	}
}

// ActiveSignals returns dispatched signals younger than the TTL, optionally
// filtered by symbol and timeframe (empty string matches all).
func (p *Pipeline) ActiveSignals(symbol, timeframe string) []*Signal {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []*Signal
	for _, s := range p.history {
		if s.Expired(p.cfg.SignalTTL) {
			continue
		}
		if symbol != "" && s.Symbol != symbol {
			continue
		}
		if timeframe != "" && s.Timeframe != timeframe {
			continue
		}
		out = append(out, s)
	}
	return out
}

// History returns a copy of the most recent n dispatched signals.
func (p *Pipeline) History(n int) []*Signal {
	p.mu.Lock()
	defer p.mu.Unlock()
	if n <= 0 || n > len(p.history) {
		n = len(p.history)
	}
	out := make([]*Signal, n)
	copy(out, p.history[len(p.history)-n:])
	return out
}

// Statistics returns a snapshot of the performance counters.
func (p *Pipeline) Statistics() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.stats
	if s.Generated > 0 {
		s.AvgProcessing = p.procSum / time.Duration(s.Generated)
	}
	return s
}

func (p *Pipeline) bumpGenerated() {
	p.mu.Lock()
	p.stats.Generated++
	p.mu.Unlock()
}

func (p *Pipeline) bump(field *int64) {
	p.mu.Lock()
	*field++
	p.mu.Unlock()
}

func (p *Pipeline) recordProcessing(d time.Duration) {
	p.mu.Lock()
	p.procSum += d
	p.mu.Unlock()
}

// sleep waits for d or until ctx is done, reporting whether it slept fully.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
