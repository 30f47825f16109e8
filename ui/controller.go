package ui

import (
	"context"
	"fmt"
	"time"

	"github.com/jrockway/bedside-clock/display"
	"github.com/jrockway/bedside-clock/encoder"
	"github.com/jrockway/bedside-clock/glyph"
	"github.com/jrockway/bedside-clock/settings"
	"github.com/jrockway/bedside-clock/timesource"
	"golang.org/x/net/trace"
)

// bootMessage is on the display from power-up until the first tick.
const bootMessage = "HI"

// How long a collaborator gets before its result is abandoned.  The state
// machine discards anything that arrives after these anyway; the deadline
// just reclaims the goroutine.
const (
	scanTimeout    = 30 * time.Second
	connectTimeout = 60 * time.Second
	addrTimeout    = 10 * time.Second
)

// Network is the part of netmgr the menu system calls.
type Network interface {
	ScanNetworks(ctx context.Context) ([]string, error)
	Connect(ctx context.Context, ssid, password string) error
	CurrentIP(ctx context.Context) (string, error)
}

// WallClock is the part of timesource.Clock the menu system calls.
type WallClock interface {
	Now(zone string) time.Time
	In(t time.Time, zone string) time.Time
}

// Store persists settings.
type Store interface {
	Save(settings.Settings) error
}

// Params carries everything a Controller needs.
type Params struct {
	Config   Config
	Display  *display.Display
	Events   <-chan encoder.Event
	Network  Network
	Clock    WallClock
	Store    Store
	Settings settings.Settings
}

// Controller owns the display.  It runs the state machine over front-panel
// events, ticks, and async completions, and renders the result after each
// one.
type Controller struct {
	cfg      Config
	d        *display.Display
	events   <-chan encoder.Event
	net      Network
	clock    WallClock
	store    Store
	settings settings.Settings

	state   State
	results chan Input
	scroll  marquee
	log     trace.EventLog
}

func New(p Params) *Controller {
	return &Controller{
		cfg:      p.Config,
		d:        p.Display,
		events:   p.Events,
		net:      p.Network,
		clock:    p.Clock,
		store:    p.Store,
		settings: p.Settings,
		state: State{
			Screen:     ScreenClock,
			Brightness: p.Settings.Brightness,
			LastInput:  p.Clock.Now(p.Settings.Timezone),
		},
		results: make(chan Input, 8),
	}
}

// Run drives the controller until ctx is cancelled or the ticker dies.
func (c *Controller) Run(ctx context.Context) error {
	c.log = trace.NewEventLog("ui", "controller")
	defer c.log.Finish()

	// Put something on the display before the first tick lands, so a
	// broken input stack is distinguishable from a dead display.
	c.d.SetDigits(glyph.Text(bootMessage))
	c.d.SetColon(false)
	c.d.SetBrightness(c.state.Brightness)
	if err := c.d.Commit(); err != nil {
		c.log.Errorf("boot frame: %v", err)
	}

	tickCh := make(chan time.Time)
	tickErrCh := make(chan error, 1)
	go func() {
		tickErrCh <- timesource.Tick(ctx, tickCh, c.cfg.TickInterval)
	}()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for input: %w", ctx.Err())
		case err := <-tickErrCh:
			return fmt.Errorf("ticker: %w", err)
		case e := <-c.events:
			c.handle(ctx, Input{Event: &e})
		case t := <-tickCh:
			c.handle(ctx, Input{Tick: &t})
		case in := <-c.results:
			c.handle(ctx, in)
		}
	}
}

func (c *Controller) handle(ctx context.Context, in Input) {
	// A tick's own timestamp is the time it describes; the second-parity
	// colon and the autodim minute boundary key off it exactly.
	var now time.Time
	if in.Tick != nil {
		now = c.clock.In(*in.Tick, c.settings.Timezone)
	} else {
		now = c.clock.Now(c.settings.Timezone)
	}

	before := c.state.Screen
	var act Actions
	c.state, c.settings, act = c.cfg.Step(c.state, c.settings, in, now)
	if c.state.Screen != before {
		transitionsCounter.WithLabelValues(before.String(), c.state.Screen.String()).Inc()
		c.log.Printf("%v -> %v", before, c.state.Screen)
		c.scroll.reset()
	}

	if act.Save {
		if err := c.store.Save(c.settings); err != nil {
			// Logged and dropped; the next commit writes the same
			// keys again.
			saveErrors.Inc()
			c.log.Errorf("saving settings: %v", err)
		}
	}
	if act.StartScan {
		c.dispatchScan(ctx, c.state.Pending)
	}
	if act.Connect != nil {
		c.dispatchConnect(ctx, c.state.Pending, *act.Connect)
	}
	if act.QueryIP {
		c.dispatchAddr(ctx, c.state.Pending)
	}

	c.render(in, now)
}

func (c *Controller) render(in Input, now time.Time) {
	v := c.cfg.View(c.state, c.settings, now)
	if v.Hint != 0 {
		c.d.SetDigits(glyph.Hinted(v.Hint))
	} else {
		c.d.SetDigits(c.scroll.window(v.Text, in.Tick != nil))
	}
	c.d.SetColon(v.Colon)
	c.d.SetBrightness(v.Brightness)
	c.d.SetBlinkRate(v.Blink)
	if err := c.d.Commit(); err != nil {
		// One retry; a frame that fails twice is dropped and the next
		// render starts from the same pending state.
		if err := c.d.Commit(); err != nil {
			c.log.Errorf("display: %v", err)
		}
	}
}

func (c *Controller) dispatchScan(ctx context.Context, token uint64) {
	go func() {
		sctx, cancel := context.WithTimeout(ctx, scanTimeout)
		ssids, err := c.net.ScanNetworks(sctx)
		cancel()
		c.deliver(ctx, Input{Scan: &ScanResult{Token: token, SSIDs: ssids, Err: err}})
	}()
}

func (c *Controller) dispatchConnect(ctx context.Context, token uint64, req ConnectRequest) {
	go func() {
		cctx, cancel := context.WithTimeout(ctx, connectTimeout)
		err := c.net.Connect(cctx, req.SSID, req.Password)
		cancel()
		c.deliver(ctx, Input{Assoc: &AssocResult{Token: token, Err: err}})
	}()
}

func (c *Controller) dispatchAddr(ctx context.Context, token uint64) {
	go func() {
		actx, cancel := context.WithTimeout(ctx, addrTimeout)
		ip, err := c.net.CurrentIP(actx)
		cancel()
		c.deliver(ctx, Input{Addr: &AddrResult{Token: token, IP: ip, Err: err}})
	}()
}

func (c *Controller) deliver(ctx context.Context, in Input) {
	select {
	case c.results <- in:
	case <-ctx.Done():
	}
}

// marquee scrolls text wider than the display one cell per tick, then
// holds the tail.
type marquee struct {
	text string
	off  int
}

func (m *marquee) reset() {
	m.text = ""
	m.off = 0
}

// window returns the four cells currently visible.  The offset advances on
// ticks only; other renders repaint in place.
func (m *marquee) window(text string, tick bool) [glyph.Width]glyph.Mask {
	if text != m.text {
		m.text = text
		m.off = 0
	} else if tick {
		if max := len([]rune(text)) - glyph.Width; m.off < max {
			m.off++
		}
	}
	return glyph.Text(string([]rune(text)[m.off:]))
}
