package auth

import (
	"sync"

	"golang.org/x/time/rate"
)

// Unconfigured deployments still get a per-caller ceiling.
const (
	defaultRPS   = 25
	defaultBurst = 50
)

// limiterPool hands out one token bucket per caller key (API key, or client
// IP when unauthenticated access is allowed). Buckets are created lazily and
// live for the rest of the process.
type limiterPool struct {
	mu  sync.Mutex
	m   map[string]*rate.Limiter
	cfg SecConfig
}

func (p *limiterPool) get(key string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.m == nil {
		p.m = make(map[string]*rate.Limiter)
	}
	if l, ok := p.m[key]; ok {
		return l
	}
	rps := p.cfg.RPS
	if rps <= 0 {
		rps = defaultRPS
	}
	burst := p.cfg.Burst
	if burst <= 0 {
		burst = defaultBurst
	}
	l := rate.NewLimiter(rate.Limit(rps), burst)
	p.m[key] = l
	return l
}

// Allow consumes one token from the caller's bucket and reports whether the
// request may proceed.
func (p *limiterPool) Allow(key string) bool {
	return p.get(key).Allow()
}
