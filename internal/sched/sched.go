package sched

import (
	"context"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/zgpcy/status-exporter/internal/logger"
)

// Group owns the mutex and clock shared by every refresh domain and notifier
// derived from it. Schedule timestamps and in-flight flags are only touched
// under the group lock; fetches and notification sends run outside it.
type Group struct {
	mu    sync.Mutex
	clock quartz.Clock
	log   *logger.Logger
}

// NewGroup creates a scheduling group on the given clock.
func NewGroup(clock quartz.Clock, log *logger.Logger) *Group {
	return &Group{clock: clock, log: log}
}

// DomainConfig describes one refresh domain.
type DomainConfig struct {
	// Name identifies the domain in logs and metrics.
	Name string

	// Interval is the minimum time between two fetches.
	Interval time.Duration

	// Fetch pulls the domain's model from upstream and stores it.
	Fetch func(ctx context.Context) error

	// AfterSuccess, if set, runs outside the group lock after every
	// successful fetch. Used to synchronize the domain's gauges with the
	// records the fetch just stored.
	AfterSuccess func()

	// Transient, if set, classifies fetch errors. Transient errors are
	// swallowed after rolling the schedule back, so the next caller retries
	// immediately; all other errors keep the schedule advanced and
	// propagate.
	Transient func(error) bool

	// Errors counts failed fetches. Optional.
	Errors prometheus.Counter

	// Duration observes fetch durations in seconds. Optional.
	Duration prometheus.Observer

	// LastSuccess tracks the Unix timestamp of the last successful fetch.
	// Optional.
	LastSuccess prometheus.Gauge
}

// Domain is one independently scheduled refresh unit.
type Domain struct {
	group *Group
	cfg   DomainConfig

	// Guarded by group.mu.
	last      time.Time
	busy      bool
	succeeded bool
	lastOK    time.Time
}

// NewDomain creates a refresh domain on the group.
func (g *Group) NewDomain(cfg DomainConfig) *Domain {
	return &Domain{group: g, cfg: cfg}
}

// Name returns the domain name.
func (d *Domain) Name() string { return d.cfg.Name }

// Interval returns the configured refresh interval.
func (d *Domain) Interval() time.Duration { return d.cfg.Interval }

// Ready reports whether at least one fetch has succeeded.
func (d *Domain) Ready() bool {
	d.group.mu.Lock()
	defer d.group.mu.Unlock()
	return d.succeeded
}

// LastSuccess returns the time of the last successful fetch, zero before the
// first one.
func (d *Domain) LastSuccess() time.Time {
	d.group.mu.Lock()
	defer d.group.mu.Unlock()
	return d.lastOK
}

// MaybeRefresh fetches the domain's model if the interval has elapsed and no
// fetch is already in flight; every other caller returns nil immediately.
// The schedule timestamp advances before the fetch, and rolls back after a
// transient failure so the next caller retries without waiting out the
// interval.
func (d *Domain) MaybeRefresh(ctx context.Context) error {
	g := d.group

	g.mu.Lock()
	now := g.clock.Now()
	if d.busy || now.Sub(d.last) <= d.cfg.Interval {
		g.mu.Unlock()
		return nil
	}
	previous := d.last
	d.last = now
	d.busy = true
	g.mu.Unlock()

	g.log.Debug("Refreshing domain", "domain", d.cfg.Name)
	err := d.cfg.Fetch(ctx)
	if d.cfg.Duration != nil {
		d.cfg.Duration.Observe(g.clock.Since(now).Seconds())
	}

	g.mu.Lock()
	d.busy = false
	if err == nil {
		d.succeeded = true
		d.lastOK = now
		g.mu.Unlock()

		if d.cfg.LastSuccess != nil {
			d.cfg.LastSuccess.Set(float64(now.Unix()))
		}
		if d.cfg.AfterSuccess != nil {
			d.cfg.AfterSuccess()
		}
		return nil
	}

	transient := d.cfg.Transient != nil && d.cfg.Transient(err)
	if transient && d.last.Equal(now) {
		// Nobody advanced the schedule since we did, so roll it back and let
		// the next caller retry right away.
		d.last = previous
	}
	g.mu.Unlock()

	if d.cfg.Errors != nil {
		d.cfg.Errors.Inc()
	}
	if transient {
		g.log.Warn("Domain refresh failed, retrying on next call", "domain", d.cfg.Name, "error", err)
		return nil
	}
	g.log.Error("Domain refresh failed", "domain", d.cfg.Name, "error", err)
	return err
}
