package timesource

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/facebookincubator/ntp/protocol/chrony"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/net/trace"
)

var clockSynchronized = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "clock_synchronized",
	Help: "1 when chronyd reports the system clock synchronized, 0 otherwise",
})

// chronyd reports leap status 3 when it has no authority over the time.
const leapUnsynchronised = 3

// Synchronized asks the chronyd at addr whether the system clock is
// synchronized to a real time source.
func Synchronized(ctx context.Context, addr string) (bool, error) {
	conn, err := net.DialTimeout("udp", addr, time.Second)
	if err != nil {
		return false, fmt.Errorf("dial chronyd: %w", err)
	}
	defer conn.Close()
	deadline := time.Now().Add(5 * time.Second)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetReadDeadline(deadline); err != nil {
		return false, fmt.Errorf("set read deadline: %w", err)
	}

	c := chrony.Client{Sequence: 1, Connection: conn}
	res, err := c.Communicate(chrony.NewTrackingPacket())
	if err != nil {
		return false, fmt.Errorf("get tracking info: communicate: %w", err)
	}
	tracking, ok := res.(*chrony.ReplyTracking)
	if !ok {
		return false, fmt.Errorf("tracking reply was of unexpected type: %#v", res)
	}
	return tracking.LeapStatus != leapUnsynchronised, nil
}

// WatchSync polls chronyd once a minute and exports the answer as the
// clock_synchronized gauge.  It runs until the context is cancelled.
func WatchSync(ctx context.Context, addr string) {
	l := trace.NewEventLog("timesource", "chrony "+addr)
	defer l.Finish()
	for {
		synced, err := Synchronized(ctx, addr)
		switch {
		case err != nil:
			clockSynchronized.Set(0)
			l.Errorf("tracking probe: %v", err)
		case synced:
			clockSynchronized.Set(1)
			l.Printf("clock synchronized")
		default:
			clockSynchronized.Set(0)
			l.Printf("clock not synchronized")
		}
		select {
		case <-time.After(time.Minute):
		case <-ctx.Done():
			return
		}
	}
}
