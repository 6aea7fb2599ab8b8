package ratelimit

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Config holds rate limiter configuration
type Config struct {
	// Enabled determines if rate limiting is active
	Enabled bool `json:"enabled" env:"RATE_LIMIT_ENABLED" default:"false"`

	// RequestsPerSecond is the sustained rate allowed per client
	RequestsPerSecond float64 `json:"requests_per_second" env:"RATE_LIMIT_RPS" default:"5"`

	// BurstSize is the maximum number of requests allowed in a burst
	BurstSize int `json:"burst_size" env:"RATE_LIMIT_BURST" default:"10"`

	// IdleTTL is how long an unused client entry is kept
	IdleTTL time.Duration `json:"idle_ttl" env:"RATE_LIMIT_IDLE_TTL" default:"10m"`

	// WhitelistedIPs are IPs or CIDR ranges that bypass rate limiting
	WhitelistedIPs []string `json:"whitelisted_ips" env:"RATE_LIMIT_WHITELIST_IPS"`

	// WhitelistedPaths are URL paths that bypass rate limiting. A trailing
	// "*" matches by prefix.
	WhitelistedPaths []string `json:"whitelisted_paths"`
}

// DefaultConfig returns the defaults for rate limiting
func DefaultConfig() *Config {
	return &Config{
		Enabled:           false,
		RequestsPerSecond: 5,
		BurstSize:         10,
		IdleTTL:           10 * time.Minute,
		WhitelistedPaths:  []string{"/health*", "/status", "/metrics", "/ws/*"},
	}
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter keeps one token bucket per client key
type Limiter struct {
	mu        sync.Mutex
	clients   map[string]*clientLimiter
	limit     rate.Limit
	burst     int
	idleTTL   time.Duration
	lastSweep time.Time
	logger    *logrus.Logger
}

// NewLimiter creates a new per-client rate limiter
func NewLimiter(rps float64, burst int, idleTTL time.Duration, logger *logrus.Logger) *Limiter {
	if burst < 1 {
		burst = 1
	}
	if idleTTL <= 0 {
		idleTTL = 10 * time.Minute
	}

	return &Limiter{
		clients:   make(map[string]*clientLimiter),
		limit:     rate.Limit(rps),
		burst:     burst,
		idleTTL:   idleTTL,
		lastSweep: time.Now(),
		logger:    logger,
	}
}

// Allow reports whether the client may make a request now
func (l *Limiter) Allow(key string) bool {
	allowed, _ := l.Check(key)
	return allowed
}

// Check consumes a token for the client if one is available. When none is,
// it returns how long the client should wait before retrying.
func (l *Limiter) Check(key string) (bool, time.Duration) {
	return l.checkAt(key, time.Now())
}

func (l *Limiter) checkAt(key string, now time.Time) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.sweep(now)

	client, ok := l.clients[key]
	if !ok {
		client = &clientLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[key] = client
	}
	client.lastSeen = now

	reservation := client.limiter.ReserveN(now, 1)
	if !reservation.OK() {
		return false, l.idleTTL
	}

	delay := reservation.DelayFrom(now)
	if delay > 0 {
		reservation.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// Remaining returns the tokens currently available to the client
func (l *Limiter) Remaining(key string) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	client, ok := l.clients[key]
	if !ok {
		return float64(l.burst)
	}
	return client.limiter.TokensAt(time.Now())
}

// Clients returns the number of tracked clients
func (l *Limiter) Clients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// sweep drops idle clients. Callers hold l.mu.
func (l *Limiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.idleTTL {
		return
	}
	l.lastSweep = now

	removed := 0
	for key, client := range l.clients {
		if now.Sub(client.lastSeen) >= l.idleTTL {
			delete(l.clients, key)
			removed++
		}
	}

	if removed > 0 && l.logger != nil {
		l.logger.WithFields(logrus.Fields{
			"removed":   removed,
			"remaining": len(l.clients),
		}).Debug("Removed idle rate limit entries")
	}
}
