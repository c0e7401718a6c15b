package middleware

import (
    "context"
    "sync"
    "time"
)

// InvalidAuthRateLimiter throttles clients that keep presenting bad tokens.
// Valid requests never touch it.
type InvalidAuthRateLimiter struct {
    mu       sync.Mutex
    attempts map[string]*attemptInfo
    limit    int
    window   time.Duration
    now      func() time.Time
}

type attemptInfo struct {
    count   int
    firstAt time.Time
}

// NewInvalidAuthRateLimiter allows limit failed attempts per window per IP.
// The cleanup loop stops when ctx is done.
func NewInvalidAuthRateLimiter(ctx context.Context, limit int, window time.Duration) *InvalidAuthRateLimiter {
    if limit <= 0 {
        limit = 5
    }
    if window <= 0 {
        window = time.Minute
    }
    rl := &InvalidAuthRateLimiter{
        attempts: make(map[string]*attemptInfo),
        limit:    limit,
        window:   window,
        now:      time.Now,
    }
    go rl.cleanup(ctx)
    return rl
}

// Allow checks if IP can make another attempt
func (r *InvalidAuthRateLimiter) Allow(ip string) bool {
    r.mu.Lock()
    defer r.mu.Unlock()

    now := r.now()
    info, exists := r.attempts[ip]
    if !exists || now.Sub(info.firstAt) > r.window {
        r.attempts[ip] = &attemptInfo{count: 1, firstAt: now}
        return true
    }

    if info.count >= r.limit {
        return false
    }
    info.count++
    return true
}

func (r *InvalidAuthRateLimiter) cleanup(ctx context.Context) {
    ticker := time.NewTicker(5 * r.window)
    defer ticker.Stop()
    for {
        select {
        case <-ctx.Done():
            return
        case <-ticker.C:
            r.mu.Lock()
            now := r.now()
            for ip, info := range r.attempts {
                if now.Sub(info.firstAt) > r.window {
                    delete(r.attempts, ip)
                }
            }
            r.mu.Unlock()
        }
    }
}
