package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"NewsDigest/internal/ports"
)

// CronScheduler runs a job on a daily "M H * * *" schedule. Expressions it
// cannot parse fall back to a 24 hour interval from startup.
type CronScheduler struct {
	spec     string
	location *time.Location
	stop     chan struct{}
}

var _ ports.Scheduler = (*CronScheduler)(nil)

// NewCronScheduler builds a scheduler configured via cron expression string.
func NewCronScheduler(spec string, location *time.Location) *CronScheduler {
	if location == nil {
		location = time.UTC
	}
	return &CronScheduler{spec: spec, location: location}
}

// Start launches the scheduling goroutine. The job also fires once
// immediately so a fresh deployment does not wait a full day.
func (c *CronScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}

	if c.stop != nil {
		return nil
	}

	// The goroutine reads its own copy of the channel; Stop may set c.stop
	// to nil concurrently.
	stop := make(chan struct{})
	c.stop = stop
	go func() {
		job(time.Now().In(c.location))
		for {
			timer := time.NewTimer(c.untilNext(time.Now().In(c.location)))
			select {
			case t := <-timer.C:
				job(t.In(c.location))
			case <-ctx.Done():
				timer.Stop()
				return
			case <-stop:
				timer.Stop()
				return
			}
		}
	}()

	return nil
}

// Stop halts the scheduling goroutine.
func (c *CronScheduler) Stop(ctx context.Context) error {
	if c.stop == nil {
		return nil
	}
	close(c.stop)
	c.stop = nil
	return nil
}

func (c *CronScheduler) untilNext(now time.Time) time.Duration {
	hour, minute, err := parseDailySpec(c.spec)
	if err != nil {
		return 24 * time.Hour
	}

	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, c.location)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next.Sub(now)
}

func parseDailySpec(spec string) (hour, minute int, err error) {
	fields := strings.Fields(spec)
	if len(fields) != 5 || fields[2] != "*" || fields[3] != "*" || fields[4] != "*" {
		return 0, 0, fmt.Errorf("unsupported cron expression %q", spec)
	}

	minute, err = strconv.Atoi(fields[0])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("bad minute in %q", spec)
	}
	hour, err = strconv.Atoi(fields[1])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("bad hour in %q", spec)
	}
	return hour, minute, nil
}
