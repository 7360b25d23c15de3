// Package cache holds small in-process caches and their cleanup loop.
package cache

import (
	"context"
	"log/slog"
	"time"
)

// Cleaner is implemented by caches that can drop expired entries.
type Cleaner interface {
	CleanExpired() int
}

// Manager periodically cleans every registered cache until its context ends.
type Manager struct {
	caches []Cleaner
}

func NewManager(caches ...Cleaner) *Manager {
	return &Manager{caches: caches}
}

// Run blocks, cleaning on every tick, and returns nil when ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := m.CleanOnce(); n > 0 {
				slog.DebugContext(ctx, "Cache cleanup completed", "entries_removed", n)
			}
		case <-ctx.Done():
			return nil
		}
	}
}

// CleanOnce cleans all caches and returns the number of removed entries.
func (m *Manager) CleanOnce() int {
	total := 0
	for _, c := range m.caches {
		total += c.CleanExpired()
	}
	return total
}
