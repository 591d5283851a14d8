// Package quota caps how many LLM generations may run per hour and per day.
// Counters survive restarts in the bbolt "quota" bucket.
package quota

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/foxzi/emailchamp/internal/metrics"
)

var bucketQuota = []byte("quota")

// ErrExceeded is matched by every *ExceededError
var ErrExceeded = errors.New("generation quota exceeded")

// Scope is the counter a limit applies to
type Scope string

const (
	ScopeGlobal Scope = "global"
	ScopeKind   Scope = "kind"
	ScopeClient Scope = "client"
)

// Limit holds the allowed generations per window. Zero disables a window.
type Limit struct {
	PerHour int `yaml:"per_hour" json:"per_hour"`
	PerDay  int `yaml:"per_day" json:"per_day"`
}

func (l *Limit) enabled() bool {
	return l != nil && (l.PerHour > 0 || l.PerDay > 0)
}

// Config selects which scopes are limited
type Config struct {
	Global        *Limit        `yaml:"global,omitempty"`
	PerKind       *Limit        `yaml:"per_kind,omitempty"`
	PerClient     *Limit        `yaml:"per_client,omitempty"`
	FlushInterval time.Duration `yaml:"flush_interval,omitempty"`
}

// Request identifies one generation call
type Request struct {
	// Kind is the generation kind, e.g. "email" or "sequence"
	Kind string
	// Client is the API key or remote address of the caller
	Client string
}

// ExceededError reports which scope and window rejected a request
type ExceededError struct {
	Scope      Scope
	Key        string
	Window     string
	RetryAfter time.Duration
}

func (e *ExceededError) Error() string {
	return fmt.Sprintf("generation quota exceeded for %s %s (%s window), retry after %s",
		e.Scope, e.Key, e.Window, e.RetryAfter.Round(time.Second))
}

func (e *ExceededError) Is(target error) bool {
	return target == ErrExceeded
}

// Counter tracks usage inside the current windows
type Counter struct {
	Hourly    int       `json:"hourly"`
	Daily     int       `json:"daily"`
	HourStart time.Time `json:"hour_start"`
	DayStart  time.Time `json:"day_start"`
}

// Usage is a read-only view of one counter
type Usage struct {
	Scope  Scope  `json:"scope"`
	Key    string `json:"key"`
	Hourly int    `json:"hourly"`
	Daily  int    `json:"daily"`
	Limit  Limit  `json:"limit"`
}

// Limiter enforces Config. Counters live in memory and are flushed to
// bbolt periodically and on Stop.
type Limiter struct {
	db       *bolt.DB
	config   Config
	logger   *slog.Logger
	now      func() time.Time
	counters map[string]*Counter
	mu       sync.Mutex
	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
}

// NewLimiter loads persisted counters and starts the flush loop
func NewLimiter(db *bolt.DB, cfg Config, logger *slog.Logger) (*Limiter, error) {
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 10 * time.Second
	}

	err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketQuota)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create quota bucket: %w", err)
	}

	l := &Limiter{
		db:       db,
		config:   cfg,
		logger:   logger,
		now:      time.Now,
		counters: make(map[string]*Counter),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}

	if err := l.load(); err != nil {
		return nil, fmt.Errorf("failed to load quota counters: %w", err)
	}

	go l.flushLoop()
	return l, nil
}

// Allow consumes one generation from every applicable scope, or returns an
// *ExceededError without consuming anything.
func (l *Limiter) Allow(ctx context.Context, req Request) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	checks := l.checks(req)

	for _, check := range checks {
		counter := l.counter(check.key, now)
		roll(counter, now)

		if check.limit.PerHour > 0 && counter.Hourly >= check.limit.PerHour {
			metrics.IncQuotaExceeded("hour")
			return &ExceededError{
				Scope:      check.scope,
				Key:        check.name,
				Window:     "hour",
				RetryAfter: counter.HourStart.Add(time.Hour).Sub(now),
			}
		}
		if check.limit.PerDay > 0 && counter.Daily >= check.limit.PerDay {
			metrics.IncQuotaExceeded("day")
			return &ExceededError{
				Scope:      check.scope,
				Key:        check.name,
				Window:     "day",
				RetryAfter: counter.DayStart.Add(24 * time.Hour).Sub(now),
			}
		}
	}

	for _, check := range checks {
		counter := l.counters[check.key]
		counter.Hourly++
		counter.Daily++
	}
	return nil
}

// Usage returns the live counters that apply to req
func (l *Limiter) Usage(ctx context.Context, req Request) []Usage {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	var usage []Usage
	for _, check := range l.checks(req) {
		u := Usage{Scope: check.scope, Key: check.name, Limit: *check.limit}
		if counter, ok := l.counters[check.key]; ok {
			if now.Sub(counter.HourStart) < time.Hour {
				u.Hourly = counter.Hourly
			}
			if now.Sub(counter.DayStart) < 24*time.Hour {
				u.Daily = counter.Daily
			}
		}
		usage = append(usage, u)
	}
	return usage
}

// Stop ends the flush loop and persists counters
func (l *Limiter) Stop() error {
	l.stopOnce.Do(func() {
		close(l.stopCh)
		<-l.doneCh
	})
	return l.flush()
}

type check struct {
	scope Scope
	name  string
	key   string
	limit *Limit
}

func (l *Limiter) checks(req Request) []check {
	var checks []check

	if l.config.Global.enabled() {
		checks = append(checks, check{ScopeGlobal, "all", makeKey(ScopeGlobal, "all"), l.config.Global})
	}
	if req.Kind != "" && l.config.PerKind.enabled() {
		checks = append(checks, check{ScopeKind, req.Kind, makeKey(ScopeKind, req.Kind), l.config.PerKind})
	}
	if req.Client != "" && l.config.PerClient.enabled() {
		checks = append(checks, check{ScopeClient, req.Client, makeKey(ScopeClient, req.Client), l.config.PerClient})
	}
	return checks
}

func (l *Limiter) counter(key string, now time.Time) *Counter {
	counter, ok := l.counters[key]
	if !ok {
		counter = &Counter{HourStart: now, DayStart: now}
		l.counters[key] = counter
	}
	return counter
}

// roll starts a new window once the current one has elapsed
func roll(counter *Counter, now time.Time) {
	if now.Sub(counter.HourStart) >= time.Hour {
		counter.Hourly = 0
		counter.HourStart = now
	}
	if now.Sub(counter.DayStart) >= 24*time.Hour {
		counter.Daily = 0
		counter.DayStart = now
	}
}

func (l *Limiter) load() error {
	return l.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketQuota).ForEach(func(k, v []byte) error {
			var counter Counter
			if err := json.Unmarshal(v, &counter); err != nil {
				l.logger.Warn("skipping unreadable quota counter", "key", string(k), "error", err)
				return nil
			}
			l.counters[string(k)] = &counter
			return nil
		})
	})
}

func (l *Limiter) flush() error {
	l.mu.Lock()
	snapshot := make(map[string][]byte, len(l.counters))
	for key, counter := range l.counters {
		data, err := json.Marshal(counter)
		if err != nil {
			continue
		}
		snapshot[key] = data
	}
	l.mu.Unlock()

	return l.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketQuota)
		for key, data := range snapshot {
			if err := bucket.Put([]byte(key), data); err != nil {
				return err
			}
		}
		return nil
	})
}

func (l *Limiter) flushLoop() {
	defer close(l.doneCh)

	ticker := time.NewTicker(l.config.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopCh:
			return
		case <-ticker.C:
			if err := l.flush(); err != nil {
				l.logger.Error("failed to persist quota counters", "error", err)
			}
		}
	}
}

func makeKey(scope Scope, name string) string {
	return string(scope) + ":" + name
}

type clientKey struct{}

// WithClient tags ctx with the caller identity used for per-client limits
func WithClient(ctx context.Context, client string) context.Context {
	return context.WithValue(ctx, clientKey{}, client)
}

// ClientFrom returns the caller identity stored by WithClient
func ClientFrom(ctx context.Context) string {
	client, _ := ctx.Value(clientKey{}).(string)
	return client
}
