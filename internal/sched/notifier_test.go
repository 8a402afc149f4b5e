package sched

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/coder/quartz"
)

// wednesdayAfternoon is 2026-03-04 15:00 UTC, a Wednesday.
var wednesdayAfternoon = time.Date(2026, 3, 4, 15, 0, 0, 0, time.UTC)

func testNotifier(t *testing.T, day, hour int, send func(context.Context) error) (*Notifier, *quartz.Mock) {
	g, clock := testGroup(t)
	n := g.NewNotifier(NotifierConfig{Day: day, Hour: hour, Send: send})
	return n, clock
}

// TestNotifierFiresOncePerWindow tests the happy path and the cooldown
// within one window
func TestNotifierFiresOncePerWindow(t *testing.T) {
	sends := 0
	n, clock := testNotifier(t, int(time.Wednesday), 14, func(context.Context) error { sends++; return nil })
	clock.Set(wednesdayAfternoon)
	ctx := context.Background()

	n.MaybeNotify(ctx)
	if sends != 1 {
		t.Fatalf("sends = %d, want 1", sends)
	}

	// Still inside the same window: the cooldown must hold it back.
	n.MaybeNotify(ctx)
	clock.Advance(3 * time.Hour)
	n.MaybeNotify(ctx)
	if sends != 1 {
		t.Errorf("sends within one window = %d, want 1", sends)
	}

	// Next week's window fires again.
	clock.Advance(7*24*time.Hour - 3*time.Hour)
	n.MaybeNotify(ctx)
	if sends != 2 {
		t.Errorf("sends after a week = %d, want 2", sends)
	}
}

// TestNotifierGates tests the weekday, hour and disabled gates
func TestNotifierGates(t *testing.T) {
	tests := []struct {
		name string
		day  int
		hour int
		now  time.Time
		want int
	}{
		{name: "wrong day", day: int(time.Monday), hour: 14, now: wednesdayAfternoon, want: 0},
		{name: "too early", day: int(time.Wednesday), hour: 16, now: wednesdayAfternoon, want: 0},
		{name: "at the hour", day: int(time.Wednesday), hour: 15, now: wednesdayAfternoon, want: 1},
		{name: "past the hour", day: int(time.Wednesday), hour: 9, now: wednesdayAfternoon, want: 1},
		{name: "disabled", day: -1, hour: 0, now: wednesdayAfternoon, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sends := 0
			n, clock := testNotifier(t, tt.day, tt.hour, func(context.Context) error { sends++; return nil })
			clock.Set(tt.now)

			n.MaybeNotify(context.Background())

			if sends != tt.want {
				t.Errorf("sends = %d, want %d", sends, tt.want)
			}
		})
	}
}

// TestNotifierFailureConsumesWindow tests that a failed send is not retried
// inside the same window but fires again the next week
func TestNotifierFailureConsumesWindow(t *testing.T) {
	sends := 0
	n, clock := testNotifier(t, int(time.Wednesday), 14, func(context.Context) error {
		sends++
		if sends == 1 {
			return errors.New("smtp unreachable")
		}
		return nil
	})
	clock.Set(wednesdayAfternoon)
	ctx := context.Background()

	n.MaybeNotify(ctx)
	if sends != 1 {
		t.Fatalf("sends = %d, want 1", sends)
	}

	// The failure consumed the window.
	n.MaybeNotify(ctx)
	if sends != 1 {
		t.Errorf("sends after failed attempt = %d, want 1 (window consumed)", sends)
	}

	clock.Advance(7 * 24 * time.Hour)
	n.MaybeNotify(ctx)
	if sends != 2 {
		t.Errorf("sends the following week = %d, want 2", sends)
	}
}

// TestNotifierDefaultCooldown tests that a zero cooldown falls back to the
// default
func TestNotifierDefaultCooldown(t *testing.T) {
	g, _ := testGroup(t)
	n := g.NewNotifier(NotifierConfig{Day: 0, Hour: 0, Send: func(context.Context) error { return nil }})
	if n.cfg.Cooldown != DefaultCooldown {
		t.Errorf("Cooldown = %v, want %v", n.cfg.Cooldown, DefaultCooldown)
	}
}
