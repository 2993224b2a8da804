package scheduler

import (
	"context"
	"testing"
	"time"
)

func TestParseDailySpec(t *testing.T) {
	t.Parallel()

	hour, minute, err := parseDailySpec("30 6 * * *")
	if err != nil {
		t.Fatalf("parseDailySpec error: %v", err)
	}
	if hour != 6 || minute != 30 {
		t.Fatalf("expected 06:30, got %02d:%02d", hour, minute)
	}

	for _, spec := range []string{"", "* * * * *", "61 6 * * *", "0 24 * * *", "0 6 * * 1"} {
		if _, _, err := parseDailySpec(spec); err == nil {
			t.Fatalf("expected error for spec %q", spec)
		}
	}
}

func TestUntilNext(t *testing.T) {
	t.Parallel()

	c := NewCronScheduler("0 6 * * *", time.UTC)

	before := time.Date(2026, time.March, 1, 5, 0, 0, 0, time.UTC)
	if got := c.untilNext(before); got != time.Hour {
		t.Fatalf("expected 1h until run, got %v", got)
	}

	after := time.Date(2026, time.March, 1, 7, 0, 0, 0, time.UTC)
	if got := c.untilNext(after); got != 23*time.Hour {
		t.Fatalf("expected 23h until next-day run, got %v", got)
	}
}

func TestSchedulerStartStop(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := NewCronScheduler("0 6 * * *", time.UTC)

	ran := make(chan time.Time, 1)
	job := func(tm time.Time) {
		select {
		case ran <- tm:
		default:
		}
	}

	if err := c.Start(ctx, job); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected immediate first run")
	}

	if err := c.Stop(ctx); err != nil {
		t.Fatalf("Stop error: %v", err)
	}
	if err := c.Stop(ctx); err != nil {
		t.Fatalf("second Stop must be a no-op, got %v", err)
	}

	// A stopped scheduler can be started again.
	if err := c.Start(ctx, job); err != nil {
		t.Fatalf("restart error: %v", err)
	}
	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected immediate run after restart")
	}
	if err := c.Stop(ctx); err != nil {
		t.Fatalf("Stop after restart error: %v", err)
	}
}

func TestUntilNextFallsBackOnBadSpec(t *testing.T) {
	t.Parallel()

	c := NewCronScheduler("not a cron line", time.UTC)
	if got := c.untilNext(time.Now()); got != 24*time.Hour {
		t.Fatalf("expected 24h fallback, got %v", got)
	}
}
