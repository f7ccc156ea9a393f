package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tradefan-core/internal/analysis"
	"tradefan-core/internal/api"
	"tradefan-core/internal/events"
	"tradefan-core/internal/executor"
	"tradefan-core/internal/market"
	"tradefan-core/internal/monitor"
	"tradefan-core/internal/risk"
	sig "tradefan-core/internal/signal"
	"tradefan-core/internal/strategy"
	"tradefan-core/pkg/config"
	"tradefan-core/pkg/db"
	"tradefan-core/pkg/exchange"
)

const version = "0.3.0"

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	trading, err := config.LoadTrading(cfg.TradingConfigPath)
	if err != nil {
		log.Fatalf("trading config load failed: %v", err)
	}

	symbols := cfg.Symbols
	if len(trading.Symbols) > 0 {
		symbols = trading.Symbols
	}
	timeframes := cfg.Timeframes
	if len(trading.Timeframes) > 0 {
		timeframes = trading.Timeframes
	}

	log.Printf("starting tradefan-core %s: %d symbols, %d timeframes, paper=%v",
		version, len(symbols), len(timeframes), cfg.PaperTrading)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Core services
	bus := events.NewBus()

	database, err := db.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("db init failed: %v", err)
	}
	defer database.Close()

	// Exchange client
	var client exchange.Client
	var paper *exchange.PaperClient
	if cfg.PaperTrading {
		paper = exchange.NewPaperClient(exchange.PaperConfig{
			InitialBalance: cfg.InitialBalance,
			QuoteAsset:     cfg.QuoteAsset,
		})
		client = paper
		log.Printf("paper trading with %.2f %s", cfg.InitialBalance, cfg.QuoteAsset)
	} else {
		client = exchange.NewRESTClient(exchange.Config{
			APIKey:    cfg.BinanceAPIKey,
			APISecret: cfg.BinanceAPISecret,
			Testnet:   cfg.BinanceTestnet,
		})
	}

	// Market data
	buffer := market.NewBuffer(market.DefaultCapacity)
	switch {
	case cfg.UseMockFeed:
		mock := &market.MockFeed{
			Buffer:     buffer,
			Bus:        bus,
			Symbols:    symbols,
			Timeframes: timeframes,
		}
		if paper != nil {
			mock.OnPrice = paper.SetPrice
		}
		mock.Start(ctx)
		log.Printf("mock feed started")
	case cfg.UseStream:
		stream := &market.StreamFeed{
			Stream:     market.NewStreamClient(cfg.BinanceTestnet),
			Buffer:     buffer,
			Bus:        bus,
			Symbols:    symbols,
			Timeframes: timeframes,
		}
		stream.Start(ctx)
	default:
		feed := &market.Feed{
			Client:     client,
			Buffer:     buffer,
			Bus:        bus,
			Symbols:    symbols,
			Timeframes: timeframes,
		}
		feed.Start(ctx)
	}

	// Analysis and strategies
	var weights map[string]float64
	if len(trading.Weights) > 0 {
		weights = trading.Weights
	}
	analyzer := analysis.NewAnalyzer(weights)

	var evaluators []strategy.Evaluator
	stratConfigs := trading.Strategies
	if len(stratConfigs) == 0 {
		for _, name := range cfg.Strategies {
			stratConfigs = append(stratConfigs, config.StrategyConfig{Name: name})
		}
	}
	for _, sc := range stratConfigs {
		ev, err := strategy.New(sc.Name, sc.Params)
		if err != nil {
			log.Fatalf("strategy %q: %v", sc.Name, err)
		}
		evaluators = append(evaluators, ev)
		log.Printf("strategy loaded: %s", ev.Name())
	}

	// Signal pipeline
	validator := sig.NewValidator(sig.ValidatorConfig{
		MinInterval:   cfg.MinSignalInterval,
		MaxPerHour:    cfg.MaxSignalsPerHour,
		MinConfidence: cfg.MinConfidence,
		MinStrength:   cfg.MinStrength,
	})
	pipeCfg := sig.DefaultPipelineConfig()
	pipeCfg.RequireConfirmation = cfg.RequireConfirmation
	pipeline := sig.NewPipeline(pipeCfg, buffer, validator, analyzer, bus, evaluators)

	// Risk and execution
	limits := risk.Limits{
		MaxDailyLoss:         trading.Risk.MaxDailyLoss,
		MaxPositionRisk:      trading.Risk.MaxPositionRisk,
		PositionRatio:        trading.Risk.PositionRatio,
		MaxConsecutiveLosses: trading.Risk.MaxConsecutiveLosses,
		MaxPositions:         trading.Risk.MaxPositions,
	}
	checker := risk.NewChecker(limits)

	execCfg := executor.DefaultConfig()
	execCfg.Symbols = symbols
	execCfg.QuoteAsset = cfg.QuoteAsset
	execCfg.Capital = cfg.Capital
	execCfg.LoopInterval = cfg.LoopInterval
	execCfg.ReentryCooldown = cfg.ReentryCooldown
	exec := executor.New(execCfg, client, checker, bus, database)
	pipeline.OnSignal(exec.HandleSignal)

	// Journal dispatched signals
	persistSignals(ctx, bus, database)

	// Monitoring
	metrics := monitor.NewSystemMetrics()
	mon := &monitor.Monitor{Bus: bus, Metrics: metrics, AlertFn: func(msg string) {
		log.Printf("ALERT %s", msg)
	}}
	mon.Start(ctx)
	pipeline.Metrics = metrics
	exec.Metrics = metrics

	// Engine start
	if err := exec.Start(ctx); err != nil {
		log.Fatalf("executor start failed: %v", err)
	}
	pipeline.Start(ctx, symbols, timeframes)

	// HTTP API
	passHash, err := api.HashPassword(getEnv("API_PASSWORD", "admin"))
	if err != nil {
		log.Fatalf("credential setup failed: %v", err)
	}
	server := api.NewServer(bus, database, exec, pipeline, checker, metrics, api.SystemMeta{
		Paper:      cfg.PaperTrading,
		Venue:      "binance-spot",
		Symbols:    symbols,
		Timeframes: timeframes,
		Version:    version,
	}, cfg.JWTSecret, api.Credentials{
		Username:     getEnv("API_USERNAME", "admin"),
		PasswordHash: passHash,
	})
	go func() {
		if err := server.Start(":" + cfg.Port); err != nil {
			log.Fatalf("api server failed: %v", err)
		}
	}()
	log.Printf("api listening on :%s", cfg.Port)

	// Shutdown on SIGINT/SIGTERM
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("shutdown requested")

	pipeline.Stop()
	stopCtx, stopCancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer stopCancel()
	if err := exec.Stop(stopCtx); err != nil {
		log.Printf("executor stop: %v", err)
	}
	cancel()
	log.Printf("bye")
}

// persistSignals journals every dispatched signal for audit.
func persistSignals(ctx context.Context, bus *events.Bus, database *db.Database) {
	stream, unsub := bus.Subscribe(events.EventSignalAccepted, 100)
	go func() {
		defer unsub()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-stream:
				if !ok {
					return
				}
				s, ok := msg.(*sig.Signal)
				if !ok {
					continue
				}
				err := database.CreateSignal(ctx, db.SignalRecord{
					ID:         s.ID,
					Symbol:     s.Symbol,
					Timeframe:  s.Timeframe,
					Direction:  s.Direction.String(),
					Strength:   s.Strength,
					Confidence: s.Confidence,
					EntryPrice: s.EntryPrice,
					StopLoss:   s.StopLoss,
					TakeProfit: s.TakeProfit,
					RiskLevel:  string(s.RiskLevel),
					Strategy:   s.Strategy,
					Reason:     s.Reason,
					CreatedAt:  s.CreatedAt,
				})
				if err != nil {
					log.Printf("journal signal: %v", err)
				}
			}
		}
	}()
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
