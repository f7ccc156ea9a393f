package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds environment-driven settings for the engine.
type Config struct {
	Port string

	// Binance
	BinanceTestnet   bool
	BinanceAPIKey    string
	BinanceAPISecret string
	Symbols          []string
	Timeframes       []string
	UseMockFeed      bool
	UseStream        bool

	// Execution
	PaperTrading    bool
	InitialBalance  float64
	QuoteAsset      string
	Capital         float64
	LoopInterval    time.Duration
	ReentryCooldown time.Duration

	// Signals
	MinSignalInterval   time.Duration
	MaxSignalsPerHour   int
	MinConfidence       float64
	MinStrength         float64
	RequireConfirmation bool
	Strategies          []string

	// Database
	DBPath string

	// Auth
	JWTSecret string

	// Trading parameter file (yaml)
	TradingConfigPath string
}

// Load reads environment variables (optionally via .env) into Config.
func Load() (*Config, error) {
	// Ignore error so the app still starts when .env is missing.
	_ = godotenv.Load()

	return &Config{
		Port:                getEnv("PORT", "8080"),
		BinanceTestnet:      getEnv("BINANCE_TESTNET", "false") == "true",
		BinanceAPIKey:       os.Getenv("BINANCE_API_KEY"),
		BinanceAPISecret:    os.Getenv("BINANCE_API_SECRET"),
		Symbols:             splitAndTrim(getEnv("SYMBOLS", "BTCUSDT,ETHUSDT")),
		Timeframes:          splitAndTrim(getEnv("TIMEFRAMES", "5m,15m,1h")),
		UseMockFeed:         getEnv("USE_MOCK_FEED", "true") == "true",
		UseStream:           getEnv("USE_STREAM", "false") == "true",
		PaperTrading:        getEnv("PAPER_TRADING", "true") == "true",
		InitialBalance:      getEnvFloat("INITIAL_BALANCE", 10000.0),
		QuoteAsset:          getEnv("QUOTE_ASSET", "USDT"),
		Capital:             getEnvFloat("CAPITAL", 10000.0),
		LoopInterval:        getEnvDuration("LOOP_INTERVAL", 10*time.Second),
		ReentryCooldown:     getEnvDuration("REENTRY_COOLDOWN", 60*time.Second),
		MinSignalInterval:   getEnvDuration("SIGNAL_MIN_INTERVAL", 60*time.Second),
		MaxSignalsPerHour:   getEnvInt("MAX_SIGNALS_PER_HOUR", 10),
		MinConfidence:       getEnvFloat("MIN_CONFIDENCE", 0.3),
		MinStrength:         getEnvFloat("MIN_STRENGTH", 0.5),
		RequireConfirmation: getEnv("REQUIRE_CONFIRMATION", "true") == "true",
		Strategies:          splitAndTrim(getEnv("STRATEGIES", "trend_follow,momentum")),
		DBPath:              getEnv("DB_PATH", "./data/tradefan.db"),
		JWTSecret:           getEnv("JWT_SECRET", "dev-secret"),
		TradingConfigPath:   getEnv("TRADING_CONFIG", "./trading.yaml"),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitAndTrim(val string) []string {
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
