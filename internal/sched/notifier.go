package sched

import (
	"context"
	"time"
)

// DefaultCooldown spaces sends far enough apart that one eligibility window
// can never fire twice.
const DefaultCooldown = 12 * time.Hour

// NotifierConfig describes a scheduled notification.
type NotifierConfig struct {
	// Day is the UTC weekday on which the notification may fire, using
	// time.Weekday numbering (0 = Sunday). A negative day disables the
	// notifier.
	Day int

	// Hour is the earliest UTC hour on Day at which the notification may
	// fire.
	Hour int

	// Cooldown is the minimum time between two sends. Zero means
	// DefaultCooldown.
	Cooldown time.Duration

	// Send performs the notification. Errors are logged and never
	// propagated; the window stays consumed either way.
	Send func(ctx context.Context) error
}

// Notifier fires a callback once per weekly eligibility window. It shares
// its group's lock and clock with the refresh domains that drive it.
type Notifier struct {
	group *Group
	cfg   NotifierConfig

	// Guarded by group.mu.
	lastSent time.Time
}

// NewNotifier creates a scheduled notifier on the group.
func (g *Group) NewNotifier(cfg NotifierConfig) *Notifier {
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultCooldown
	}
	return &Notifier{group: g, cfg: cfg}
}

// MaybeNotify fires the notification if the current UTC time falls on the
// configured weekday at or past the configured hour and the cooldown has
// elapsed. The send timestamp advances at decision time, before the send
// runs, so concurrent callers and failed sends both consume the window.
func (n *Notifier) MaybeNotify(ctx context.Context) {
	if n.cfg.Day < 0 {
		return
	}
	g := n.group

	g.mu.Lock()
	now := g.clock.Now().UTC()
	if int(now.Weekday()) != n.cfg.Day || now.Hour() < n.cfg.Hour || now.Sub(n.lastSent) <= n.cfg.Cooldown {
		g.mu.Unlock()
		return
	}
	n.lastSent = now
	g.mu.Unlock()

	g.log.Info("Notification window open, sending", "weekday", now.Weekday().String(), "hour", now.Hour())
	if err := n.cfg.Send(ctx); err != nil {
		g.log.Error("Notification send failed", "error", err)
	}
}
