package auth

import (
	"sync"

	"golang.org/x/time/rate"
)

// limiterPool keeps one token bucket per API key (or per remote IP for
// unauthenticated callers).
type limiterPool struct {
	cfg SecConfig
	mu  sync.Mutex
	m   map[string]*rate.Limiter
}

func (p *limiterPool) allow(key string) bool {
	if p.cfg.RPS <= 0 {
		return true
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.m == nil {
		p.m = make(map[string]*rate.Limiter)
	}
	l, ok := p.m[key]
	if !ok {
		burst := p.cfg.Burst
		if burst <= 0 {
			burst = int(p.cfg.RPS)
			if burst < 1 {
				burst = 1
			}
		}
		l = rate.NewLimiter(rate.Limit(p.cfg.RPS), burst)
		p.m[key] = l
	}
	return l.Allow()
}
