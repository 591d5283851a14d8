package metrics

import (
	"context"
	"runtime"
	"sync"
	"time"
)

// SizeFunc reports the current storage size in bytes
type SizeFunc func() int64

// Collector periodically refreshes the system gauges
type Collector struct {
	metrics   *Metrics
	size      SizeFunc
	interval  time.Duration
	startTime time.Time

	stopCh chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

// NewCollector creates a collector; size may be nil
func NewCollector(m *Metrics, size SizeFunc, interval time.Duration) *Collector {
	if interval == 0 {
		interval = 10 * time.Second
	}
	return &Collector{
		metrics:   m,
		size:      size,
		interval:  interval,
		startTime: time.Now(),
		stopCh:    make(chan struct{}),
	}
}

// Start runs the refresh loop until ctx is done or Stop is called
func (c *Collector) Start(ctx context.Context) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		c.Refresh()
		for {
			select {
			case <-ctx.Done():
				return
			case <-c.stopCh:
				return
			case <-ticker.C:
				c.Refresh()
			}
		}
	}()
}

// Refresh updates uptime, goroutine and storage gauges once
func (c *Collector) Refresh() {
	c.metrics.UptimeSeconds.Set(time.Since(c.startTime).Seconds())
	c.metrics.Goroutines.Set(float64(runtime.NumGoroutine()))
	if c.size != nil {
		c.metrics.StorageUsedBytes.Set(float64(c.size()))
	}
}

// Stop stops the refresh loop and waits for it to exit
func (c *Collector) Stop() {
	c.once.Do(func() { close(c.stopCh) })
	c.wg.Wait()
}
