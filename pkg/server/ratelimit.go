package server

import (
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// RateLimiter counts requests per client and clock hour
type RateLimiter struct {
	mu     sync.Mutex
	limit  int
	counts *lru.Cache[string, int]
	hour   int64
	now    func() time.Time
}

// NewRateLimiter allows limit requests per client per hour, tracking at most
// maxClients clients. A limit of zero or less disables limiting.
func NewRateLimiter(limit, maxClients int) *RateLimiter {
	if maxClients <= 0 {
		maxClients = 4096
	}
	counts, err := lru.New[string, int](maxClients)
	if err != nil {
		panic(fmt.Sprintf("rate limiter cache: %v", err))
	}
	return &RateLimiter{limit: limit, counts: counts, now: time.Now}
}

// Allow records one request from client and reports whether it is within
// the hourly limit.
func (l *RateLimiter) Allow(client string) bool {
	if l.limit <= 0 {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	hour := l.now().Unix() / 3600
	if hour != l.hour {
		l.counts.Purge()
		l.hour = hour
	}

	n, _ := l.counts.Get(client)
	n++
	l.counts.Add(client, n)
	return n <= l.limit
}

// Clients returns the number of clients counted in the current hour
func (l *RateLimiter) Clients() int {
	return l.counts.Len()
}
