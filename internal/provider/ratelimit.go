package provider

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultMinDelays returns the minimum gap between two calls to each
// provider, following each provider's published rate limit.
func DefaultMinDelays() map[ProviderName]time.Duration {
	return map[ProviderName]time.Duration{
		NameMusicBrainz: 1100 * time.Millisecond,
		NameCoverArt:    250 * time.Millisecond,
		NameLastFM:      250 * time.Millisecond,
		NameAudioDB:     500 * time.Millisecond,
		NameDeezer:      200 * time.Millisecond,
		NameSpotify:     200 * time.Millisecond,
		NameReccoBeats:  500 * time.Millisecond,
	}
}

// RateLimiterMap holds one rate.Limiter per provider, created once at
// startup and shared by every worker in the process.
type RateLimiterMap struct {
	mu       sync.RWMutex
	limiters map[ProviderName]*rate.Limiter
	delays   map[ProviderName]time.Duration
}

// NewRateLimiterMap creates all provider rate limiters. overrides replaces
// the default minimum delay for the named providers; a delay of zero or
// less disables limiting for that provider.
func NewRateLimiterMap(overrides map[ProviderName]time.Duration) *RateLimiterMap {
	delays := DefaultMinDelays()
	for name, d := range overrides {
		delays[name] = d
	}

	m := &RateLimiterMap{
		limiters: make(map[ProviderName]*rate.Limiter, len(delays)),
		delays:   delays,
	}
	for name, d := range delays {
		m.limiters[name] = newLimiter(d)
	}
	return m
}

func newLimiter(d time.Duration) *rate.Limiter {
	if d <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(d), 1)
}

// Wait blocks until the rate limiter for the given provider allows a request,
// or the context is canceled.
func (m *RateLimiterMap) Wait(ctx context.Context, name ProviderName) error {
	m.mu.RLock()
	limiter, ok := m.limiters[name]
	m.mu.RUnlock()
	if !ok {
		return nil
	}
	return limiter.Wait(ctx)
}

// SetMinDelay changes the minimum delay for a provider at runtime.
func (m *RateLimiterMap) SetMinDelay(name ProviderName, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delays[name] = d
	if l, ok := m.limiters[name]; ok {
		if d <= 0 {
			l.SetLimit(rate.Inf)
		} else {
			l.SetLimit(rate.Every(d))
		}
		return
	}
	m.limiters[name] = newLimiter(d)
}

// MinDelay returns the configured minimum delay for a provider.
func (m *RateLimiterMap) MinDelay(name ProviderName) time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.delays[name]
}
