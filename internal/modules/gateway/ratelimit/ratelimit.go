// Package ratelimit caps how many connections one origin address may hold open.
package ratelimit

import (
	"hash/maphash"
	"sync"
)

// DefaultMaxPerAddress is used when the configured ceiling is not positive.
const DefaultMaxPerAddress = 5

const shardCount = 32

type shard struct {
	mu     sync.Mutex
	counts map[string]int
}

// Limiter counts concurrently admitted connections per address.
// A rejected attempt is never credited, so only successful TryAdmit calls
// are paired with a Release.
type Limiter struct {
	max    int
	seed   maphash.Seed
	shards [shardCount]shard
}

// New creates a limiter with the given per-address ceiling.
func New(max int) *Limiter {
	if max <= 0 {
		max = DefaultMaxPerAddress
	}
	l := &Limiter{max: max, seed: maphash.MakeSeed()}
	for i := range l.shards {
		l.shards[i].counts = make(map[string]int)
	}
	return l
}

func (l *Limiter) shardFor(addr string) *shard {
	return &l.shards[maphash.String(l.seed, addr)%shardCount]
}

// Max returns the per-address ceiling.
func (l *Limiter) Max() int { return l.max }

// TryAdmit credits one connection to addr unless that would exceed the ceiling.
func (l *Limiter) TryAdmit(addr string) bool {
	s := l.shardFor(addr)
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.counts[addr]+1 > l.max {
		return false
	}
	s.counts[addr]++
	return true
}

// Release gives back one credited connection for addr. Floors at zero.
func (l *Limiter) Release(addr string) {
	s := l.shardFor(addr)
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.counts[addr]
	if !ok {
		return
	}
	if n <= 1 {
		delete(s.counts, addr)
		return
	}
	s.counts[addr] = n - 1
}

// Count returns the current count for addr.
func (l *Limiter) Count(addr string) int {
	s := l.shardFor(addr)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[addr]
}

// Addresses returns how many addresses currently hold at least one connection.
func (l *Limiter) Addresses() int {
	total := 0
	for i := range l.shards {
		s := &l.shards[i]
		s.mu.Lock()
		total += len(s.counts)
		s.mu.Unlock()
	}
	return total
}
