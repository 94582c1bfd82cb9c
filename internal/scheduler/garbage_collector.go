package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/MrSnakeDoc/smartmarks/internal/logger"
)

const (
	// DefaultIdleThreshold is how long a view may stay without a stream before it is closed
	DefaultIdleThreshold = 2 * time.Minute
)

// Sweeper is the view index as seen by the collector.
type Sweeper interface {
	Sweep(now time.Time, idle time.Duration) []string
	Count() int
}

// GarbageCollector closes views whose browser tab went away, which releases
// their realtime subscription
type GarbageCollector struct {
	views     Sweeper
	logger    logger.Logger
	interval  time.Duration
	threshold time.Duration
	now       func() time.Time
	stopCh    chan struct{}
	stopOnce  sync.Once
}

// NewGarbageCollector creates a new garbage collector
func NewGarbageCollector(
	views Sweeper,
	log logger.Logger,
	interval time.Duration,
	threshold time.Duration,
) *GarbageCollector {
	if threshold == 0 {
		threshold = DefaultIdleThreshold
	}

	return &GarbageCollector{
		views:     views,
		logger:    log,
		interval:  interval,
		threshold: threshold,
		now:       time.Now,
		stopCh:    make(chan struct{}),
	}
}

// Start begins the periodic collection
func (gc *GarbageCollector) Start(ctx context.Context) {
	ticker := time.NewTicker(gc.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				gc.Collect()
			case <-gc.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the garbage collector. Safe to call more than once.
func (gc *GarbageCollector) Stop() {
	gc.stopOnce.Do(func() { close(gc.stopCh) })
}

// Collect closes views detached for longer than the threshold and returns how many
func (gc *GarbageCollector) Collect() int {
	removed := gc.views.Sweep(gc.now(), gc.threshold)

	if len(removed) > 0 {
		for _, id := range removed {
			gc.logger.Debug("garbage collected idle view", logger.String("view_id", id))
		}
		gc.logger.Info("garbage collection completed",
			logger.Int("views_closed", len(removed)),
			logger.Int("views_open", gc.views.Count()))
	} else {
		gc.logger.Debug("no views to garbage collect")
	}

	return len(removed)
}
