// Package ui is the clock's menu system: a pure transition function over
// front-panel input, and a controller that runs it against the hardware.
package ui

import (
	"fmt"
	"time"

	"github.com/jrockway/bedside-clock/display"
	"github.com/jrockway/bedside-clock/encoder"
	"github.com/jrockway/bedside-clock/glyph"
	"github.com/jrockway/bedside-clock/settings"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	transitionsCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ui_transitions_total",
		Help: "count of menu screen changes, by edge",
	}, []string{"from", "to"})

	staleResults = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ui_stale_results_total",
		Help: "count of async completions that arrived after their request was abandoned",
	})

	saveErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "settings_save_errors_total",
		Help: "count of failed settings writes",
	})
)

// Screen identifies what the display is showing.
type Screen int

const (
	ScreenClock Screen = iota
	ScreenMenuRoot
	ScreenSsidList
	ScreenPasswordEntry
	ScreenHourMode
	ScreenTimezone
	ScreenColonFlash
	ScreenIPDisplay
	ScreenHold
)

func (s Screen) String() string {
	switch s {
	case ScreenClock:
		return "clock"
	case ScreenMenuRoot:
		return "menu"
	case ScreenSsidList:
		return "ssids"
	case ScreenPasswordEntry:
		return "password"
	case ScreenHourMode:
		return "hour-mode"
	case ScreenTimezone:
		return "timezone"
	case ScreenColonFlash:
		return "colon-flash"
	case ScreenIPDisplay:
		return "ip"
	case ScreenHold:
		return "hold"
	}
	return fmt.Sprintf("Screen(%d)", int(s))
}

// menuItems is the MenuRoot carousel, in display order.
var menuItems = []struct {
	label  string
	screen Screen
}{
	{"WIFI", ScreenSsidList},
	{"24H", ScreenHourMode},
	{"ZONE", ScreenTimezone},
	{"FLASH", ScreenColonFlash},
	{"IP", ScreenIPDisplay},
}

// Zone is one entry in the curated timezone list.
type Zone struct {
	Name string // what the display shows
	ID   string // IANA zone name
}

// Zones is the timezone carousel, in display order.
var Zones = []Zone{
	{Name: "Eastern", ID: "America/New_York"},
	{Name: "Central", ID: "America/Chicago"},
	{Name: "Mountain", ID: "America/Denver"},
	{Name: "Pacific", ID: "America/Los_Angeles"},
	{Name: "Alaska", ID: "America/Anchorage"},
	{Name: "Hawaii", ID: "America/Honolulu"},
	{Name: "UTC", ID: "UTC"},
}

// Hold is a transient message screen: text shown until a deadline, then
// the machine moves on.
type Hold struct {
	Text  string
	Blink bool
	Next  Screen
	Until time.Time
}

// State is everything the menu system remembers between inputs.  It is a
// value; Step returns a new one.
type State struct {
	Screen Screen

	MenuIdx int // MenuRoot selection

	// SsidList
	Scanning bool
	SSIDs    []string
	SSIDIdx  int

	// PasswordEntry; the buffer holds indices into glyph.PasswordChars.
	Password   []int
	Cursor     int
	Connecting bool

	// Menu edits staged here until a center press commits them.
	Hour24 bool
	TzIdx  int
	Flash  bool

	// IPDisplay; nil Octets means the lookup hasn't come back yet.
	Octets   []string
	OctetIdx int

	Hold Hold

	// Brightness is the runtime dimming level; Settings holds the
	// committed one.
	Brightness int

	Seq     uint64 // async request tokens issued so far
	Pending uint64 // token the machine is waiting on; 0 is none

	LastInput time.Time
}

// Input is one thing happening to the state machine: a front-panel event,
// a tick, or the completion of an asynchronous request.  Exactly one
// field is set.
type Input struct {
	Event *encoder.Event
	Tick  *time.Time
	Scan  *ScanResult
	Assoc *AssocResult
	Addr  *AddrResult
}

// ScanResult is the completion of a wifi scan.
type ScanResult struct {
	Token uint64
	SSIDs []string
	Err   error
}

// AssocResult is the completion of a connection attempt.
type AssocResult struct {
	Token uint64
	Err   error
}

// AddrResult is the completion of an address lookup.
type AddrResult struct {
	Token uint64
	IP    string
	Err   error
}

// ConnectRequest asks the controller to join a network.
type ConnectRequest struct {
	SSID     string
	Password string
}

// Actions is the work a step leaves for the controller: persisting
// settings and dispatching async collaborator calls.  The request token
// for a dispatched call is the new state's Pending field.
type Actions struct {
	Save      bool
	StartScan bool
	Connect   *ConnectRequest
	QueryIP   bool
}

// AutoDim gives the clock a place on earth so it can dim after sunset.
type AutoDim struct {
	Latitude  float64
	Longitude float64
}

// Config adjusts the state machine's timing and limits.
type Config struct {
	IdleTimeout  time.Duration // menus fall back to the clock after this
	HoldDuration time.Duration // GOOD/FAIL/NONE linger at least this long
	TickInterval time.Duration // display refresh and marquee step
	MaxPassword  int           // longest password the cursor can reach
	AutoDim      *AutoDim      // nil disables nighttime dimming
}

// DefaultConfig returns the timings the hardware clock runs with.
func DefaultConfig() Config {
	return Config{
		IdleTimeout:  15 * time.Second,
		HoldDuration: 2 * time.Second,
		TickInterval: 500 * time.Millisecond,
		MaxPassword:  63, // WPA passphrases top out here
	}
}

// View is what a State looks like on the display: a text, marqueed by the
// controller when wider than four digits, or a single password character
// rendered with its disambiguation hint.
type View struct {
	Text       string
	Hint       rune // when non-zero, show glyph.Hinted(Hint) instead of Text
	Colon      bool
	Blink      display.BlinkRate
	Brightness int
}

// View renders a state.  now must already be in the display's timezone.
func (c Config) View(s State, cfg settings.Settings, now time.Time) View {
	v := View{Brightness: s.Brightness}
	switch s.Screen {
	case ScreenClock:
		hour, minute := now.Hour(), now.Minute()
		if !cfg.Hour24 {
			hour = hour % 12
			if hour == 0 {
				hour = 12
			}
		}
		v.Text = fmt.Sprintf("%2d%02d", hour, minute)
		v.Colon = !cfg.FlashColon || now.Second()%2 == 0
	case ScreenMenuRoot:
		v.Text = menuItems[s.MenuIdx].label
	case ScreenSsidList:
		if s.Scanning {
			v.Text = "SCAN"
		} else {
			v.Text = s.SSIDs[s.SSIDIdx]
		}
	case ScreenPasswordEntry:
		if s.Connecting {
			v.Text = "CONN"
		} else {
			v.Hint = glyph.PasswordChars[s.Password[s.Cursor]]
		}
	case ScreenHourMode:
		if s.Hour24 {
			v.Text = "24"
		} else {
			v.Text = "12"
		}
	case ScreenTimezone:
		v.Text = Zones[s.TzIdx].Name
	case ScreenColonFlash:
		if s.Flash {
			v.Text = "FLASH  On"
		} else {
			v.Text = "FLASH  Off"
		}
	case ScreenIPDisplay:
		if s.Octets == nil {
			v.Text = "IP"
		} else {
			v.Text = s.Octets[s.OctetIdx]
		}
	case ScreenHold:
		v.Text = s.Hold.Text
		if s.Hold.Blink {
			v.Blink = display.Blink2Hz
		}
	}
	return v
}
