package ledger

import (
	"context"
	"log"
	"sync"
	"time"
)

// Sweeper runs SweepExpired on a fixed schedule in a single background
// goroutine. Ticks that fail or are missed are harmless; the next tick
// removes whatever is due.
type Sweeper struct {
	store    *RedisStore
	interval time.Duration
	done     chan struct{}
	wg       sync.WaitGroup
	once     sync.Once
	now      func() time.Time
}

// NewSweeper starts a sweeper on the given interval (daily when zero).
func NewSweeper(store *RedisStore, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = 24 * time.Hour
	}

	s := &Sweeper{
		store:    store,
		interval: interval,
		done:     make(chan struct{}),
		now:      time.Now,
	}

	s.wg.Add(1)
	go s.run()

	return s
}

func (s *Sweeper) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.done:
			return
		}
	}
}

func (s *Sweeper) sweep() {
	removed, err := s.store.SweepExpired(context.Background(), s.now())
	if err != nil {
		log.Print("authcore: revocation sweep failed")
		return
	}
	if removed > 0 {
		log.Printf("authcore: revocation sweep removed %d expired entries", removed)
	}
}

// Close stops the sweeper and waits for an in-flight sweep to finish.
func (s *Sweeper) Close() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		close(s.done)
	})
	s.wg.Wait()
}
