// Package timesource provides the clock's notion of time: a ticker aligned
// to the wall clock, timezone-aware reads, and a probe for whether chronyd
// thinks the system time can be trusted.
package timesource

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	missedTicksCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "missed_ticks",
		Help: "count of ticks that were generated but never received by anything",
	})

	tickDelayMetric = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tick_delay",
		Help:    "amount of time between the wall-clock instant and when the tick is sent to the channel, in nanoseconds",
		Buckets: prometheus.ExponentialBuckets(1000, 10, 20),
	})

	badZonesCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "unknown_timezones",
		Help: "count of timezone lookups that fell back to UTC",
	})
)

// Tick sends the current time to the provided channel at the exact instants
// that are whole multiples of interval.  An absent listener will not receive
// an outdated time; the tick will be skipped and the missedTicksCounter
// incremented.  Cancelling the context causes this to return immediately.
func Tick(ctx context.Context, ch chan time.Time, interval time.Duration) error {
	for {
		next := time.Now().Add(interval).Truncate(interval)

		// Wait until the next instant arrives.
		select {
		case <-time.After(time.Until(next)):
		case <-ctx.Done():
			return fmt.Errorf("waiting for next tick: %w", ctx.Err())
		}

		// Send the time to the channel.
		select {
		case <-time.After(interval / 2):
			missedTicksCounter.Inc()
		case <-ctx.Done():
			return fmt.Errorf("waiting to send tick: %w", ctx.Err())
		case ch <- next:
			tickDelayMetric.Observe(float64(time.Since(next).Nanoseconds()))
		}
	}
}

// Clock resolves zone names against the system clock, caching the zone
// database lookups.  The zero value is ready to use.
type Clock struct {
	mu    sync.Mutex
	zones map[string]*time.Location
}

// Now returns the current time in the named zone.  An unloadable zone
// falls back to UTC.
func (c *Clock) Now(zone string) time.Time {
	return c.In(time.Now(), zone)
}

// In converts t to the named zone, with the same UTC fallback as Now.
func (c *Clock) In(t time.Time, zone string) time.Time {
	return t.In(c.location(zone))
}

func (c *Clock) location(zone string) *time.Location {
	c.mu.Lock()
	defer c.mu.Unlock()
	if loc, ok := c.zones[zone]; ok {
		return loc
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		badZonesCounter.Inc()
		log.Printf("unknown timezone %q; using UTC: %v", zone, err)
		loc = time.UTC
	}
	if c.zones == nil {
		c.zones = make(map[string]*time.Location)
	}
	c.zones[zone] = loc
	return loc
}
