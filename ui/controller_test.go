package ui

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jrockway/bedside-clock/display"
	"github.com/jrockway/bedside-clock/encoder"
	"github.com/jrockway/bedside-clock/glyph"
	"github.com/jrockway/bedside-clock/settings"
)

// pinnedClock keeps the controller at one instant so the clock face is
// predictable.
type pinnedClock struct{ at time.Time }

func (p pinnedClock) Now(zone string) time.Time             { return p.at }
func (p pinnedClock) In(t time.Time, zone string) time.Time { return p.at }

type fakeNetwork struct {
	mu    sync.Mutex
	ssids []string
	scans int
}

func (f *fakeNetwork) ScanNetworks(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scans++
	return f.ssids, nil
}

func (f *fakeNetwork) Connect(ctx context.Context, ssid, password string) error { return nil }

func (f *fakeNetwork) CurrentIP(ctx context.Context) (string, error) { return "10.0.0.7", nil }

func (f *fakeNetwork) scanCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.scans
}

type fakeStore struct {
	mu    sync.Mutex
	saved []settings.Settings
}

func (f *fakeStore) Save(cfg settings.Settings) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, cfg)
	return nil
}

func (f *fakeStore) last() (settings.Settings, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.saved) == 0 {
		return settings.Settings{}, 0
	}
	return f.saved[len(f.saved)-1], len(f.saved)
}

func testParams(d *display.Display, events chan encoder.Event, net *fakeNetwork, store *fakeStore) Params {
	cfg := DefaultConfig()
	cfg.TickInterval = 10 * time.Millisecond
	stored := settings.Defaults()
	stored.Brightness = 3
	return Params{
		Config:   cfg,
		Display:  d,
		Events:   events,
		Network:  net,
		Clock:    pinnedClock{at: time.Date(2026, 6, 15, 14, 5, 10, 0, time.UTC)},
		Store:    store,
		Settings: stored,
	}
}

func TestBootFrame(t *testing.T) {
	d, err := display.New(nil, display.DefaultAddr, 3)
	if err != nil {
		t.Fatalf("new display: %v", err)
	}
	c := New(testParams(d, make(chan encoder.Event), &fakeNetwork{}, &fakeStore{}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("run on a cancelled context:\n  got: %v\n want: %v", err, context.Canceled)
	}
	f := d.Shown()
	if got, want := f.Digits, glyph.Text(bootMessage); got != want {
		t.Errorf("boot frame:\n  got: %v\n want: %v", got, want)
	}
	if got, want := f.Brightness, 3; got != want {
		t.Errorf("boot brightness:\n  got: %v\n want: %v", got, want)
	}
}

func TestController(t *testing.T) {
	d, err := display.New(nil, display.DefaultAddr, 3)
	if err != nil {
		t.Fatalf("new display: %v", err)
	}
	events := make(chan encoder.Event)
	net := &fakeNetwork{ssids: []string{"den"}}
	store := &fakeStore{}
	c := New(testParams(d, events, net, store))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- c.Run(ctx) }()

	// The first tick paints the clock: 14:05 with the colon lit on an
	// even second.
	waitForText(t, d, "1405")
	if got, want := d.Shown().Colon, true; got != want {
		t.Errorf("clock colon:\n  got: %v\n want: %v", got, want)
	}

	// One click up, then commit the new brightness.
	events <- encoder.Event{Type: encoder.RotateCW}
	waitForBrightness(t, d, 4)
	events <- encoder.Event{Type: encoder.ButtonDown, Button: encoder.Center}
	deadline := time.Now().Add(2 * time.Second)
	for {
		if cfg, n := store.last(); n == 1 {
			if got, want := cfg.Brightness, 4; got != want {
				t.Errorf("saved brightness:\n  got: %v\n want: %v", got, want)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("brightness commit never saved")
		}
		time.Sleep(time.Millisecond)
	}

	// Into the menu and through a scan.
	events <- encoder.Event{Type: encoder.ButtonDown, Button: encoder.Right}
	waitForText(t, d, "WIFI")
	events <- encoder.Event{Type: encoder.ButtonDown, Button: encoder.Center}
	waitForText(t, d, "den")
	if got, want := net.scanCount(), 1; got != want {
		t.Errorf("scans:\n  got: %v\n want: %v", got, want)
	}

	// Picking the network starts the password prompt, which marquees
	// out to its tail.
	events <- encoder.Event{Type: encoder.ButtonDown, Button: encoder.Center}
	waitForText(t, d, "WORD")

	cancel()
	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Errorf("run error after cancel:\n  got: %v\n want: %v", err, context.Canceled)
	}
}

func waitForText(t *testing.T, d *display.Display, text string) {
	t.Helper()
	want := glyph.Text(text)
	deadline := time.Now().Add(2 * time.Second)
	for {
		if d.Shown().Digits == want {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("display never showed %q; showing %v", text, d.Shown().Digits)
		}
		time.Sleep(time.Millisecond)
	}
}

func waitForBrightness(t *testing.T, d *display.Display, level int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		if d.Shown().Brightness == level {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("display never reached brightness %d; at %d", level, d.Shown().Brightness)
		}
		time.Sleep(time.Millisecond)
	}
}
