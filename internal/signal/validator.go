package signal

import (
	"fmt"
	"sync"
	"time"
)

// ValidatorConfig bounds how often signals may pass validation.
type ValidatorConfig struct {
	MinInterval   time.Duration // per (symbol, timeframe) cooldown
	MaxPerHour    int           // per symbol, trailing hour
	MinConfidence float64
	MinStrength   float64
}

func DefaultValidatorConfig() ValidatorConfig {
	return ValidatorConfig{
		MinInterval:   60 * time.Second,
		MaxPerHour:    10,
		MinConfidence: 0.3,
		MinStrength:   0.5,
	}
}

// Decision reports whether a signal passed validation and, if not, why.
type Decision struct {
	Accepted bool
	Reason   string
}

// Validator applies cooldown, rate limit, and quality thresholds. Checks run
// in that order and the first failure wins. Safe for concurrent use.
type Validator struct {
	cfg ValidatorConfig

	mu       sync.Mutex
	lastSeen map[string]time.Time // key: symbol_timeframe
	accepted map[string][]time.Time
	now      func() time.Time
}

func NewValidator(cfg ValidatorConfig) *Validator {
	return &Validator{
		cfg:      cfg,
		lastSeen: make(map[string]time.Time),
		accepted: make(map[string][]time.Time),
		now:      time.Now,
	}
}

// Validate checks a signal and records it when accepted.
func (v *Validator) Validate(s *Signal) Decision {
	v.mu.Lock()
	defer v.mu.Unlock()

	now := v.now()
	key := s.Key()

	if last, ok := v.lastSeen[key]; ok {
		if since := now.Sub(last); since < v.cfg.MinInterval {
			return Decision{Reason: fmt.Sprintf("cooldown: %.0fs since last signal, need %.0fs", since.Seconds(), v.cfg.MinInterval.Seconds())}
		}
	}

	recent := v.pruneLocked(s.Symbol, now)
	if len(recent) >= v.cfg.MaxPerHour {
		return Decision{Reason: fmt.Sprintf("rate limit: %d signals in the last hour", len(recent))}
	}

	if s.Confidence < v.cfg.MinConfidence {
		return Decision{Reason: fmt.Sprintf("confidence %.2f below %.2f", s.Confidence, v.cfg.MinConfidence)}
	}

	if s.Strength < v.cfg.MinStrength {
		return Decision{Reason: fmt.Sprintf("strength %.2f below %.2f", s.Strength, v.cfg.MinStrength)}
	}

	v.lastSeen[key] = now
	v.accepted[s.Symbol] = append(recent, now)
	return Decision{Accepted: true}
}

// pruneLocked drops accepted entries older than one hour. Caller holds mu.
func (v *Validator) pruneLocked(symbol string, now time.Time) []time.Time {
	cutoff := now.Add(-time.Hour)
	old := v.accepted[symbol]
	keep := old[:0]
	for _, t := range old {
		if t.After(cutoff) {
			keep = append(keep, t)
		}
	}
	v.accepted[symbol] = keep
	return keep
}

// AcceptedLastHour reports how many signals for the symbol passed in the
// trailing hour.
func (v *Validator) AcceptedLastHour(symbol string) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.pruneLocked(symbol, v.now()))
}
