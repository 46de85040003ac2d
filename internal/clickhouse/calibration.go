package clickhouse

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/Billy-Davies-2/draft-engine/internal/logger"
	"github.com/Billy-Davies-2/draft-engine/internal/models"
)

// DefaultUtilityTTL is how long fetched utilities are reused before refetching
const DefaultUtilityTTL = 5 * time.Minute

// FetchFunc loads fitted utilities for a scoring mode
type FetchFunc func(ctx context.Context, mode models.ScoringMode) (map[string]float64, error)

type utilityEntry struct {
	utilities map[string]float64
	fetchedAt time.Time
}

// CachedCalibration serves fitted utilities from a slow source. Fetches go
// through a circuit breaker; while it is open, or a fetch fails, the last
// good fit is served if there is one.
type CachedCalibration struct {
	fetch   FetchFunc
	breaker *gobreaker.CircuitBreaker
	ttl     time.Duration
	now     func() time.Time

	mu      sync.Mutex
	entries map[models.ScoringMode]utilityEntry
}

// BreakerSettings configures the breaker around utility fetches
type BreakerSettings struct {
	Name string
	// consecutive failures before the breaker opens
	MaxFailures uint32
	// how long the breaker stays open before a trial request
	OpenTimeout time.Duration
}

// DefaultBreakerSettings returns the settings used in production
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{Name: "clickhouse-calibration", MaxFailures: 3, OpenTimeout: 30 * time.Second}
}

// NewCachedCalibration wraps fetch with a TTL cache and a circuit breaker
func NewCachedCalibration(fetch FetchFunc, ttl time.Duration, bs BreakerSettings) *CachedCalibration {
	if ttl <= 0 {
		ttl = DefaultUtilityTTL
	}
	if bs.MaxFailures == 0 {
		bs.MaxFailures = DefaultBreakerSettings().MaxFailures
	}
	maxFailures := bs.MaxFailures
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        bs.Name,
		MaxRequests: 1,
		Timeout:     bs.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Calibration circuit breaker state changed", "breaker", name,
				"from_state", from.String(), "to_state", to.String())
		},
	})
	return &CachedCalibration{
		fetch:   fetch,
		breaker: cb,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[models.ScoringMode]utilityEntry),
	}
}

// Utilities returns the fitted utilities for mode
func (c *CachedCalibration) Utilities(ctx context.Context, mode models.ScoringMode) (map[string]float64, error) {
	c.mu.Lock()
	entry, cached := c.entries[mode]
	c.mu.Unlock()
	if cached && c.now().Sub(entry.fetchedAt) < c.ttl {
		return entry.utilities, nil
	}

	res, err := c.breaker.Execute(func() (interface{}, error) {
		return c.fetch(ctx, mode)
	})
	if err != nil {
		if cached {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				logger.Debug("Calibration breaker open, serving stale utilities", "scoring", mode)
			} else {
				logger.Warn("Calibration fetch failed, serving stale utilities", "scoring", mode, "error", err)
			}
			return entry.utilities, nil
		}
		return nil, fmt.Errorf("fetch utilities for %s: %w", mode, err)
	}

	utils, _ := res.(map[string]float64)
	if utils == nil {
		utils = map[string]float64{}
	}
	c.mu.Lock()
	c.entries[mode] = utilityEntry{utilities: utils, fetchedAt: c.now()}
	c.mu.Unlock()
	return utils, nil
}

// State reports the breaker state, for health checks
func (c *CachedCalibration) State() gobreaker.State {
	return c.breaker.State()
}
