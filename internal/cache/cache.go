// Package cache holds small in-process caches: the API's summary cache and
// the alert worker's redelivery set.
package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Cache is a keyed store with bounded lifetime entries.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	// DeletePrefix drops every key starting with prefix and reports how many.
	DeletePrefix(prefix string) int
	Size() int
}

// Cleaner is implemented by caches whose expired entries can be swept.
type Cleaner interface {
	CleanExpired() int
}

// Janitor periodically sweeps registered caches.
type Janitor struct {
	mu     sync.Mutex
	caches []Cleaner
	stop   chan struct{}
	done   chan struct{}
}

func NewJanitor() *Janitor {
	return &Janitor{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

func (j *Janitor) Register(c Cleaner) {
	j.mu.Lock()
	j.caches = append(j.caches, c)
	j.mu.Unlock()
}

// Sweep cleans every registered cache once and returns the entries removed.
func (j *Janitor) Sweep() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	total := 0
	for _, c := range j.caches {
		total += c.CleanExpired()
	}
	return total
}

// Start runs Sweep every interval until Stop is called.
func (j *Janitor) Start(ctx context.Context, interval time.Duration) {
	go func() {
		defer close(j.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := j.Sweep(); n > 0 {
					slog.DebugContext(ctx, "Swept expired cache entries", "removed", n)
				}
			case <-j.stop:
				return
			}
		}
	}()
}

// Stop ends the sweep loop started by Start and waits for it to exit.
func (j *Janitor) Stop() {
	close(j.stop)
	<-j.done
}
