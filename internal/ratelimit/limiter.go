// Package ratelimit enforces layered fixed-window limits on chat
// traffic. Independent counters cover the authenticated user, the user
// within a bot, anonymous IPs, and a short burst guard; a request must
// pass every applicable counter.
package ratelimit

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Limit is one counter rule: a window and a request ceiling.
type Limit struct {
	Name   string
	Window time.Duration
	Max    int
}

// Request carries the identities a chat request presents.
type Request struct {
	// UserID is the stable authenticated identity, empty for anonymous
	// traffic. Never derived from free text.
	UserID string
	// BotID scopes the per-bot counter.
	BotID string
	// IP is the client address resolved by the transport layer.
	IP string
}

// Decision is the outcome of a limit check.
type Decision struct {
	Allowed bool
	// Reason names the failing counter when Allowed is false.
	Reason string
	// RetryAfter is how long until the failing window resets.
	RetryAfter time.Duration
	// Limit and Remaining describe the most restrictive passing counter
	// when allowed, or the failing counter when rejected.
	Limit     int
	Remaining int
	// Reset is when that counter's window ends.
	Reset time.Time
}

// CounterStore increments fixed-window counters. Implementations must
// be safe for concurrent use.
type CounterStore interface {
	// Incr increments the counter for key within the window containing
	// now, creating it if needed, and returns the new count and the
	// window's end.
	Incr(key string, window time.Duration, now time.Time) (count int, reset time.Time)
}

// Config holds the four layered limits.
type Config struct {
	PerUser    Limit
	PerUserBot Limit
	PerIP      Limit
	Burst      Limit
}

// DefaultConfig returns the production limits.
func DefaultConfig() Config {
	return Config{
		PerUser:    Limit{Name: "user", Window: time.Minute, Max: 30},
		PerUserBot: Limit{Name: "user_bot", Window: time.Minute, Max: 20},
		PerIP:      Limit{Name: "ip", Window: time.Minute, Max: 10},
		Burst:      Limit{Name: "burst", Window: 10 * time.Second, Max: 5},
	}
}

// Limiter evaluates all applicable counters for a request.
type Limiter struct {
	store  CounterStore
	config Config
	logger *zap.Logger
	now    func() time.Time
}

func NewLimiter(store CounterStore, config Config, logger *zap.Logger) (*Limiter, error) {
	if store == nil {
		return nil, fmt.Errorf("counter store is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Limiter{store: store, config: config, logger: logger, now: time.Now}, nil
}

type check struct {
	limit Limit
	key   string
}

// applicable selects the counters for this request. Authenticated
// traffic is limited per user and per user-bot pair; anonymous traffic
// per IP. The burst guard always applies, keyed by the strongest
// identity available.
func (l *Limiter) applicable(r Request) []check {
	var checks []check
	identity := r.IP
	if r.UserID != "" {
		identity = r.UserID
		checks = append(checks, check{l.config.PerUser, "user:" + r.UserID})
		if r.BotID != "" {
			checks = append(checks, check{l.config.PerUserBot, "user:" + r.UserID + ":bot:" + r.BotID})
		}
	} else if r.IP != "" {
		checks = append(checks, check{l.config.PerIP, "ip:" + r.IP})
	}
	if identity != "" {
		checks = append(checks, check{l.config.Burst, "burst:" + identity})
	}
	return checks
}

type outcome struct {
	check    check
	count    int
	reset    time.Time
	rejected bool
}

// Check runs every applicable counter concurrently. The request is
// rejected on the first failing counter in rule order; when all pass,
// the decision reports the lowest-remaining counter so response headers
// reflect the tightest budget.
func (l *Limiter) Check(ctx context.Context, r Request) (Decision, error) {
	if err := ctx.Err(); err != nil {
		return Decision{}, err
	}
	checks := l.applicable(r)
	if len(checks) == 0 {
		return Decision{Allowed: true}, nil
	}

	now := l.now()
	outcomes := make([]outcome, len(checks))
	var wg sync.WaitGroup
	for i, c := range checks {
		wg.Add(1)
		go func(i int, c check) {
			defer wg.Done()
			count, reset := l.store.Incr(c.key, c.limit.Window, now)
			outcomes[i] = outcome{
				check:    c,
				count:    count,
				reset:    reset,
				rejected: count > c.limit.Max,
			}
		}(i, c)
	}
	wg.Wait()

	for _, o := range outcomes {
		if !o.rejected {
			continue
		}
		retry := o.reset.Sub(now)
		if retry < 0 {
			retry = 0
		}
		rejectionsTotal.WithLabelValues(o.check.limit.Name).Inc()
		l.logger.Debug("rate limit exceeded",
			zap.String("counter", o.check.limit.Name),
			zap.Int("count", o.count),
			zap.Int("max", o.check.limit.Max),
		)
		return Decision{
			Allowed:    false,
			Reason:     o.check.limit.Name,
			RetryAfter: retry,
			Limit:      o.check.limit.Max,
			Remaining:  0,
			Reset:      o.reset,
		}, nil
	}

	// All passed: report the tightest remaining budget.
	best := Decision{Allowed: true, Remaining: math.MaxInt}
	for _, o := range outcomes {
		remaining := o.check.limit.Max - o.count
		if remaining < 0 {
			remaining = 0
		}
		if remaining < best.Remaining {
			best.Remaining = remaining
			best.Limit = o.check.limit.Max
			best.Reset = o.reset
		}
	}
	return best, nil
}
