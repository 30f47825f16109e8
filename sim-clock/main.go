// Command sim-clock runs the clock without any hardware: a readline prompt
// stands in for the front panel, and the display is served as a PNG from the
// debug server.  The input still goes through the real quadrature decoder,
// so the simulated knob produces the same electrical timeline as the device.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/jrockway/bedside-clock/display"
	"github.com/jrockway/bedside-clock/encoder"
	"github.com/jrockway/bedside-clock/glyph"
	"github.com/jrockway/bedside-clock/settings"
	"github.com/jrockway/bedside-clock/timesource"
	"github.com/jrockway/bedside-clock/ui"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	bind   = flag.String("bind", "localhost:8080", "address to bind for the debug/metrics server")
	dbPath = flag.String("db", ":memory:", "path to the settings database")
)

// simNetwork stands in for NetworkManager: a fixed neighborhood, and any
// password of eight or more characters is correct.
type simNetwork struct{}

func (simNetwork) ScanNetworks(ctx context.Context) ([]string, error) {
	select {
	case <-time.After(time.Second):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return []string{"CoffeeShop", "homelab", "attic24"}, nil
}

func (simNetwork) Connect(ctx context.Context, ssid, password string) error {
	select {
	case <-time.After(2 * time.Second):
	case <-ctx.Done():
		return ctx.Err()
	}
	if len(password) < 8 {
		return fmt.Errorf("association with %q rejected", ssid)
	}
	return nil
}

func (simNetwork) CurrentIP(ctx context.Context) (string, error) {
	return "192.168.1.50", nil
}

func main() {
	flag.Parse()

	store, err := settings.Open(*dbPath)
	if err != nil {
		log.Fatalf("open settings database %q: %v", *dbPath, err)
	}
	stored, err := store.Load()
	if err != nil {
		log.Printf("load settings: %v (continuing with defaults)", err)
	}

	d, err := display.New(nil, display.DefaultAddr, stored.Brightness)
	if err != nil {
		log.Fatalf("init display: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dec := encoder.NewDecoder(encoder.Options{})
	ctrl := ui.New(ui.Params{
		Config:   ui.DefaultConfig(),
		Display:  d,
		Events:   dec.C,
		Network:  simNetwork{},
		Clock:    &timesource.Clock{},
		Store:    store,
		Settings: stored,
	})
	go func() {
		if err := ctrl.Run(ctx); err != nil && ctx.Err() == nil {
			log.Fatalf("ui loop died: %v", err)
		}
	}()

	http.HandleFunc("/", func(w http.ResponseWriter, req *http.Request) {
		http.Redirect(w, req, "/display.png", http.StatusFound)
	})
	http.Handle("/display.png", d)
	http.Handle("/metrics", promhttp.Handler())
	go func() {
		log.Printf("http server listening on %s", *bind)
		if err := http.ListenAndServe(*bind, nil); err != nil {
			log.Printf("http server died: %v", err)
		}
	}()

	if err := repl(d, dec); err != nil {
		log.Fatalf("repl: %v", err)
	}
	cancel()
	store.Close()
}

func repl(d *display.Display, dec *encoder.Decoder) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "clock> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("create readline: %w", err)
	}
	defer rl.Close()

	fmt.Fprintln(rl.Stdout(), "This is the front panel.  Type 'help' for the controls.")
	f := &feeder{dec: dec, at: time.Now()}
	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err != nil {
			return nil
		}
		parts := strings.Fields(strings.ToLower(line))
		if len(parts) == 0 {
			show(rl, d)
			continue
		}
		n := 1
		if len(parts) > 1 {
			if v, err := strconv.Atoi(parts[1]); err == nil && v > 0 {
				n = v
			}
		}
		switch parts[0] {
		case "cw":
			for i := 0; i < n; i++ {
				f.turn(1)
			}
		case "ccw":
			for i := 0; i < n; i++ {
				f.turn(-1)
			}
		case "up", "u":
			f.push(encoder.LineUp)
		case "down", "d":
			f.push(encoder.LineDown)
		case "left", "l":
			f.push(encoder.LineLeft)
		case "right", "r":
			f.push(encoder.LineRight)
		case "center", "c":
			f.push(encoder.LineCenter)
		case "show", "s":
		case "help", "?":
			printHelp(rl)
			continue
		case "quit", "exit", "q":
			return nil
		default:
			fmt.Fprintf(rl.Stdout(), "unknown command %q (try 'help')\n", parts[0])
			continue
		}
		// Give the controller a moment to drain the event queue before
		// reading the frame back.  Scans and connects finish later;
		// an empty line repaints.
		time.Sleep(50 * time.Millisecond)
		show(rl, d)
	}
}

func printHelp(rl *readline.Instance) {
	fmt.Fprintln(rl.Stdout(), `Controls:
  cw [n], ccw [n]   turn the knob n detents (default 1)
  up, down          press the rocker (aliases: u, d)
  left, right       press the side buttons (aliases: l, r)
  center            press the knob in (alias: c)
  show              repaint the display (alias: s, or an empty line)
  quit              exit (alias: q)
The rendered frame is also at http://`+*bind+`/display.png.`)
}

// feeder synthesizes the electrical timeline a human at the panel would
// produce.  Edges are spaced wider than the decoder's debounce window, on a
// virtual clock so the pace of typing doesn't matter.
type feeder struct {
	dec *encoder.Decoder
	at  time.Time
}

func (f *feeder) edge(line encoder.Line, level bool) {
	f.at = f.at.Add(20 * time.Millisecond)
	f.dec.Feed(encoder.RawEdge{Line: line, Level: level, At: f.at})
}

// turn walks the quadrature lines through one full detent.  The lines are
// pulled up, so driving low is engaging a contact.
func (f *feeder) turn(dir int) {
	if dir > 0 {
		f.edge(encoder.LineA, false)
		f.edge(encoder.LineB, false)
		f.edge(encoder.LineA, true)
		f.edge(encoder.LineB, true)
	} else {
		f.edge(encoder.LineB, false)
		f.edge(encoder.LineA, false)
		f.edge(encoder.LineB, true)
		f.edge(encoder.LineA, true)
	}
}

// push presses and releases a button.
func (f *feeder) push(line encoder.Line) {
	f.edge(line, false)
	f.edge(line, true)
}

// segmentChars maps digit patterns back to characters for the terminal
// rendering.  Where two characters share a pattern the earlier one in
// password order wins, so for example GOOD comes back as G00D.
var segmentChars = func() map[glyph.Mask]rune {
	m := map[glyph.Mask]rune{}
	for _, r := range glyph.PasswordChars {
		if _, ok := m[glyph.Encode(r)]; !ok {
			m[glyph.Encode(r)] = r
		}
	}
	return m
}()

func show(rl *readline.Instance, d *display.Display) {
	f := d.Shown()
	var b strings.Builder
	for _, mask := range f.Digits {
		if r, ok := segmentChars[mask]; ok {
			b.WriteRune(r)
		} else {
			b.WriteRune('?')
		}
	}
	text := b.String()
	colon := " "
	if f.Colon {
		colon = ":"
	}
	fmt.Fprintf(rl.Stdout(), "[%s%s%s] brightness %d, blink %v\n", text[:2], colon, text[2:], f.Brightness, f.Blink)
}
