package autosave

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/foxzi/emailchamp/internal/metrics"
)

// DefaultDelay is the quiet period before an automatic save
const DefaultDelay = 2 * time.Second

// ErrStopped is returned by Flush after Stop
var ErrStopped = errors.New("autosave stopped")

// SaveFunc persists the current editor state
type SaveFunc func(ctx context.Context) error

// Debouncer calls a save function once edits have been quiet for Delay.
// Each Touch re-arms the timer; only the last touch in a burst saves.
type Debouncer struct {
	mu        sync.Mutex
	delay     time.Duration
	save      SaveFunc
	scheduler Scheduler
	logger    *slog.Logger

	timer     Timer
	gen       uint64
	lastSaved time.Time
	stopped   bool
	inflight  sync.WaitGroup
}

// Option configures a Debouncer
type Option func(*Debouncer)

// WithDelay overrides DefaultDelay
func WithDelay(d time.Duration) Option {
	return func(db *Debouncer) {
		if d > 0 {
			db.delay = d
		}
	}
}

// WithScheduler replaces the real timer source
func WithScheduler(s Scheduler) Option {
	return func(db *Debouncer) {
		db.scheduler = s
	}
}

// New creates a debouncer around save
func New(save SaveFunc, logger *slog.Logger, opts ...Option) *Debouncer {
	d := &Debouncer{
		delay:     DefaultDelay,
		save:      save,
		scheduler: RealScheduler{},
		logger:    logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Touch records an edit and (re)arms the save timer
func (d *Debouncer) Touch() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}

	d.gen++
	gen := d.gen
	d.timer = d.scheduler.AfterFunc(d.delay, func() {
		d.fire(gen)
	})
}

// fire runs the debounced save unless a later touch superseded it
func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if d.stopped || d.gen != gen {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	d.inflight.Add(1)
	d.mu.Unlock()

	defer d.inflight.Done()
	d.run(context.Background(), "debounce")
}

// Flush saves immediately. A pending timer is left armed.
func (d *Debouncer) Flush(ctx context.Context) error {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return ErrStopped
	}
	d.inflight.Add(1)
	d.mu.Unlock()

	defer d.inflight.Done()
	return d.run(ctx, "flush")
}

func (d *Debouncer) run(ctx context.Context, trigger string) error {
	err := d.save(ctx)
	metrics.IncAutosaveWrites(trigger, err)
	if err != nil {
		d.logger.Error("autosave failed", "trigger", trigger, "error", err)
		return err
	}

	d.mu.Lock()
	d.lastSaved = d.scheduler.Now()
	d.mu.Unlock()

	d.logger.Debug("autosave completed", "trigger", trigger)
	return nil
}

// Pending reports whether a debounced save is scheduled
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

// LastSaved returns the completion time of the most recent save.
// The zero time means nothing has been saved yet.
func (d *Debouncer) LastSaved() time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastSaved
}

// Stop cancels any pending save and waits for a running one to finish.
// Later touches are ignored and later flushes fail with ErrStopped.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.mu.Unlock()

	d.inflight.Wait()
}
