package workers

import (
	"context"
	"log"
	"sync"
	"time"
)

// Task is one unit of repeated work. The returned summary is logged.
type Task func(ctx context.Context) (string, error)

// Loop runs a task immediately and then on a fixed interval until its
// context is canceled
type Loop struct {
	name     string
	interval time.Duration
	task     Task

	mu    sync.Mutex
	stats LoopStats
}

// LoopStats holds counters for a loop
type LoopStats struct {
	Name        string        `json:"name"`
	Interval    time.Duration `json:"interval"`
	Runs        int           `json:"runs"`
	Failures    int           `json:"failures"`
	LastRun     time.Time     `json:"last_run"`
	LastSummary string        `json:"last_summary"`
	LastError   string        `json:"last_error,omitempty"`
}

// NewLoop creates a loop. Non-positive intervals fall back to one hour.
func NewLoop(name string, interval time.Duration, task Task) *Loop {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Loop{
		name:     name,
		interval: interval,
		task:     task,
		stats:    LoopStats{Name: name, Interval: interval},
	}
}

// Run blocks until ctx is done. Task errors are logged and the loop keeps going.
func (l *Loop) Run(ctx context.Context) {
	log.Printf("🔄 Starting %s loop (every %v)", l.name, l.interval)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	l.runOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Printf("🛑 %s loop stopping", l.name)
			return
		case <-ticker.C:
			l.runOnce(ctx)
		}
	}
}

func (l *Loop) runOnce(ctx context.Context) {
	summary, err := l.task(ctx)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.stats.Runs++
	l.stats.LastRun = time.Now().UTC()
	l.stats.LastSummary = summary
	l.stats.LastError = ""
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		l.stats.Failures++
		l.stats.LastError = err.Error()
		log.Printf("❌ %s failed: %v", l.name, err)
		return
	}
	log.Printf("✅ %s %s", l.name, summary)
}

// Stats returns a snapshot of the loop counters
func (l *Loop) Stats() LoopStats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stats
}
