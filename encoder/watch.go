package encoder

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/net/trace"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
)

// Pins names the GPIO lines wired to the front panel.
type Pins struct {
	A, B                          string
	Center, Up, Down, Left, Right string
}

// DefaultPins is the production board's wiring.
func DefaultPins() Pins {
	return Pins{
		A:      "GPIO17",
		B:      "GPIO18",
		Center: "GPIO4",
		Up:     "GPIO27",
		Down:   "GPIO23",
		Left:   "GPIO22",
		Right:  "GPIO24",
	}
}

// Watch configures every pin for pull-up edge capture and feeds each
// transition through the decoder until ctx is cancelled.
func Watch(ctx context.Context, d *Decoder, pins Pins) error {
	lines := []struct {
		name string
		line Line
	}{
		{pins.A, LineA},
		{pins.B, LineB},
		{pins.Center, LineCenter},
		{pins.Up, LineUp},
		{pins.Down, LineDown},
		{pins.Left, LineLeft},
		{pins.Right, LineRight},
	}

	edges := make(chan RawEdge, 64)
	for _, l := range lines {
		p := gpioreg.ByName(l.name)
		if p == nil {
			return fmt.Errorf("no gpio pin named %q", l.name)
		}
		if err := p.In(gpio.PullUp, gpio.BothEdges); err != nil {
			return fmt.Errorf("configure %s for edge capture: %w", l.name, err)
		}
		go watchPin(ctx, p, l.line, edges)
	}

	el := trace.NewEventLog("encoder", "front panel")
	defer el.Finish()
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("watching pins: %w", ctx.Err())
		case e := <-edges:
			el.Printf("line %d -> %v", int(e.Line), e.Level)
			d.Feed(e)
		}
	}
}

func watchPin(ctx context.Context, p gpio.PinIn, line Line, edges chan<- RawEdge) {
	for {
		if ctx.Err() != nil {
			return
		}
		// The timeout is only so we notice cancellation; edges wake us
		// immediately.
		if !p.WaitForEdge(time.Second) {
			continue
		}
		e := RawEdge{Line: line, Level: bool(p.Read()), At: time.Now()}
		select {
		case edges <- e:
		case <-ctx.Done():
			return
		}
	}
}
