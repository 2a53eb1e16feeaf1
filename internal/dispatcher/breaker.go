package dispatcher

import (
	"sync"
	"time"
)

// Breaker sheds provider calls after a run of consecutive failures. While
// open it refuses acquisition until the cooldown passes; the first send
// after that is the trial that decides whether it stays closed.
type Breaker struct {
	mu        sync.Mutex
	fails     int
	threshold int
	cooldown  time.Duration
	openUntil time.Time
}

func NewBreaker(threshold int, cooldown time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &Breaker{threshold: threshold, cooldown: cooldown}
}

func (b *Breaker) TryAcquire() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	return time.Now().After(b.openUntil)
}

func (b *Breaker) OnSuccess() {
	b.mu.Lock()
	b.fails = 0
	b.mu.Unlock()
}

func (b *Breaker) OnFailure() {
	b.mu.Lock()
	b.fails++
	if b.fails >= b.threshold {
		b.fails = 0
		b.openUntil = time.Now().Add(b.cooldown)
	}
	b.mu.Unlock()
}
