package ui

import (
	"slices"
	"strings"
	"time"

	"github.com/jrockway/bedside-clock/encoder"
	"github.com/jrockway/bedside-clock/glyph"
	"github.com/jrockway/bedside-clock/settings"
	"github.com/jrockway/bedside-clock/sun"
)

// Step advances the state machine by one input.  It is pure: the new
// state, the possibly-edited settings, and the work left for the
// controller are all in the return value.  now must already be in the
// display's timezone.
func (c Config) Step(s State, cfg settings.Settings, in Input, now time.Time) (State, settings.Settings, Actions) {
	var act Actions
	switch {
	case in.Event != nil:
		s = c.stepEvent(s, &cfg, *in.Event, now, &act)
	case in.Tick != nil:
		s = c.stepTick(s, now)
	case in.Scan != nil:
		s = c.stepScan(s, *in.Scan, now)
	case in.Assoc != nil:
		s = c.stepAssoc(s, &cfg, *in.Assoc, now, &act)
	case in.Addr != nil:
		s = c.stepAddr(s, *in.Addr, now)
	}
	return s, cfg, act
}

// The rotor and the up/down buttons are interchangeable everywhere; turning
// the knob is just a faster way of pressing the rocker.
func isUp(e encoder.Event) bool {
	return e.Type == encoder.RotateCW || (e.Type == encoder.ButtonDown && e.Button == encoder.Up)
}

func isDown(e encoder.Event) bool {
	return e.Type == encoder.RotateCCW || (e.Type == encoder.ButtonDown && e.Button == encoder.Down)
}

func isButton(e encoder.Event, b encoder.Button) bool {
	return e.Type == encoder.ButtonDown && e.Button == b
}

func (c Config) stepEvent(s State, cfg *settings.Settings, e encoder.Event, now time.Time, act *Actions) State {
	if e.Type == encoder.ButtonUp {
		return s // act on presses, not releases
	}
	s.LastInput = now
	switch s.Screen {
	case ScreenClock:
		return stepClock(s, cfg, e, act)
	case ScreenMenuRoot:
		return stepMenuRoot(s, *cfg, e, act)
	case ScreenSsidList:
		return c.stepSsidList(s, e, now)
	case ScreenPasswordEntry:
		return c.stepPasswordEntry(s, e, act)
	case ScreenHourMode:
		return stepHourMode(s, cfg, e, act)
	case ScreenColonFlash:
		return stepColonFlash(s, cfg, e, act)
	case ScreenTimezone:
		return stepTimezone(s, cfg, e, act)
	case ScreenIPDisplay:
		return stepIPDisplay(s, e)
	case ScreenHold:
		return s // the hold expires on its own
	}
	return s
}

func stepClock(s State, cfg *settings.Settings, e encoder.Event, act *Actions) State {
	switch {
	case isUp(e):
		s.Brightness = clampBrightness(s.Brightness + 1)
	case isDown(e):
		s.Brightness = clampBrightness(s.Brightness - 1)
	case isButton(e, encoder.Center):
		cfg.Brightness = s.Brightness
		act.Save = true
	case isButton(e, encoder.Left), isButton(e, encoder.Right):
		s = enter(s, ScreenMenuRoot)
		s.MenuIdx = 0
	}
	return s
}

func stepMenuRoot(s State, cfg settings.Settings, e encoder.Event, act *Actions) State {
	n := len(menuItems)
	switch {
	case isUp(e), isButton(e, encoder.Right):
		s.MenuIdx = (s.MenuIdx + 1) % n
	case isDown(e), isButton(e, encoder.Left):
		s.MenuIdx = (s.MenuIdx + n - 1) % n
	case isButton(e, encoder.Center):
		switch menuItems[s.MenuIdx].screen {
		case ScreenSsidList:
			s = enter(s, ScreenSsidList)
			s.Scanning = true
			s.SSIDs = nil
			s.SSIDIdx = 0
			s.Seq++
			s.Pending = s.Seq
			act.StartScan = true
		case ScreenHourMode:
			s = enter(s, ScreenHourMode)
			s.Hour24 = cfg.Hour24
		case ScreenTimezone:
			s = enter(s, ScreenTimezone)
			s.TzIdx = zoneIndex(cfg.Timezone)
		case ScreenColonFlash:
			s = enter(s, ScreenColonFlash)
			s.Flash = cfg.FlashColon
		case ScreenIPDisplay:
			s = enter(s, ScreenIPDisplay)
			s.Octets = nil
			s.OctetIdx = 0
			s.Seq++
			s.Pending = s.Seq
			act.QueryIP = true
		}
	}
	return s
}

func (c Config) stepSsidList(s State, e encoder.Event, now time.Time) State {
	if s.Scanning {
		return s // nothing to choose from until the scan lands
	}
	n := len(s.SSIDs)
	switch {
	case isUp(e), isButton(e, encoder.Right):
		s.SSIDIdx = (s.SSIDIdx + 1) % n
	case isDown(e), isButton(e, encoder.Left):
		s.SSIDIdx = (s.SSIDIdx + n - 1) % n
	case isButton(e, encoder.Center):
		s.Password = []int{0} // glyph.PasswordChars starts at 'a'
		s.Cursor = 0
		s.Connecting = false
		s = c.hold(s, now, "ENTER PASSWORD", false, ScreenPasswordEntry)
	}
	return s
}

func (c Config) stepPasswordEntry(s State, e encoder.Event, act *Actions) State {
	if s.Connecting {
		return s // committed; wait for the result
	}
	n := len(glyph.PasswordChars)
	switch {
	case isUp(e):
		s.Password = slices.Clone(s.Password)
		s.Password[s.Cursor] = (s.Password[s.Cursor] + 1) % n
	case isDown(e):
		s.Password = slices.Clone(s.Password)
		s.Password[s.Cursor] = (s.Password[s.Cursor] + n - 1) % n
	case isButton(e, encoder.Right):
		if s.Cursor < c.MaxPassword-1 {
			s.Cursor++
			if s.Cursor == len(s.Password) {
				s.Password = append(slices.Clone(s.Password), 0)
			}
		}
	case isButton(e, encoder.Left):
		if s.Cursor > 0 {
			s.Cursor--
		}
	case isButton(e, encoder.Center):
		s.Connecting = true
		s.Seq++
		s.Pending = s.Seq
		act.Connect = &ConnectRequest{
			SSID:     s.SSIDs[s.SSIDIdx],
			Password: passwordString(s.Password),
		}
	}
	return s
}

// The two boolean menus work the same way: any direction flips the
// staged value, center commits it and returns to the menu.

func stepHourMode(s State, cfg *settings.Settings, e encoder.Event, act *Actions) State {
	switch {
	case isUp(e), isDown(e), isButton(e, encoder.Left), isButton(e, encoder.Right):
		s.Hour24 = !s.Hour24
	case isButton(e, encoder.Center):
		cfg.Hour24 = s.Hour24
		act.Save = true
		s = enter(s, ScreenMenuRoot)
	}
	return s
}

func stepColonFlash(s State, cfg *settings.Settings, e encoder.Event, act *Actions) State {
	switch {
	case isUp(e), isDown(e), isButton(e, encoder.Left), isButton(e, encoder.Right):
		s.Flash = !s.Flash
	case isButton(e, encoder.Center):
		cfg.FlashColon = s.Flash
		act.Save = true
		s = enter(s, ScreenMenuRoot)
	}
	return s
}

func stepTimezone(s State, cfg *settings.Settings, e encoder.Event, act *Actions) State {
	n := len(Zones)
	switch {
	case isUp(e), isButton(e, encoder.Right):
		s.TzIdx = (s.TzIdx + 1) % n
	case isDown(e), isButton(e, encoder.Left):
		s.TzIdx = (s.TzIdx + n - 1) % n
	case isButton(e, encoder.Center):
		cfg.Timezone = Zones[s.TzIdx].ID
		act.Save = true
		s = enter(s, ScreenMenuRoot)
	}
	return s
}

// stepIPDisplay walks the address octet by octet.  The ends clamp; the
// address is a finite reading, not a ring.
func stepIPDisplay(s State, e encoder.Event) State {
	switch {
	case isUp(e), isButton(e, encoder.Right):
		if s.Octets != nil && s.OctetIdx < len(s.Octets)-1 {
			s.OctetIdx++
		}
	case isDown(e), isButton(e, encoder.Left):
		if s.OctetIdx > 0 {
			s.OctetIdx--
		}
	case isButton(e, encoder.Center):
		s = enter(s, ScreenMenuRoot)
	}
	return s
}

func (c Config) stepTick(s State, now time.Time) State {
	if s.Screen == ScreenHold && !now.Before(s.Hold.Until) {
		next := s.Hold.Next
		s = enter(s, next)
		s.Hold = Hold{}
		s.LastInput = now
		return s
	}

	// Menus fall back to the clock when nobody is touching the panel;
	// staged edits are discarded.  Password entry is exempt, people stop
	// to think, and holds expire on their own deadline above.
	if c.IdleTimeout > 0 && s.Screen != ScreenClock && s.Screen != ScreenPasswordEntry && s.Screen != ScreenHold {
		if now.Sub(s.LastInput) >= c.IdleTimeout {
			s = enter(s, ScreenClock)
			s.Scanning = false
			s.SSIDs = nil
			s.Octets = nil
			return s
		}
	}

	// Once a minute, on the minute, flip an extreme brightness to match
	// the daylight.  In-between levels were set by hand and stay put.
	if c.AutoDim != nil && s.Screen == ScreenClock && now.Second() == 0 && now.Nanosecond() == 0 {
		dark := sun.Dark(now, c.AutoDim.Latitude, c.AutoDim.Longitude)
		switch {
		case s.Brightness == 0 && !dark:
			s.Brightness = 15
		case s.Brightness == 15 && dark:
			s.Brightness = 0
		}
	}
	return s
}

func (c Config) stepScan(s State, r ScanResult, now time.Time) State {
	if s.Screen != ScreenSsidList || !s.Scanning || r.Token != s.Pending {
		staleResults.Inc()
		return s
	}
	s.Pending = 0
	s.Scanning = false
	switch {
	case r.Err != nil:
		s = c.hold(s, now, "FAIL", true, ScreenMenuRoot)
	case len(r.SSIDs) == 0:
		s = c.hold(s, now, "NONE", false, ScreenMenuRoot)
	default:
		s.SSIDs = r.SSIDs
		s.SSIDIdx = 0
	}
	return s
}

func (c Config) stepAssoc(s State, cfg *settings.Settings, r AssocResult, now time.Time, act *Actions) State {
	if s.Screen != ScreenPasswordEntry || !s.Connecting || r.Token != s.Pending {
		staleResults.Inc()
		return s
	}
	s.Pending = 0
	s.Connecting = false
	if r.Err != nil {
		// Back to the list; the settings stay as they were.
		return c.hold(s, now, "FAIL", true, ScreenSsidList)
	}
	cfg.WifiSSID = s.SSIDs[s.SSIDIdx]
	act.Save = true
	s.Password = nil
	s.Cursor = 0
	return c.hold(s, now, "GOOD", false, ScreenClock)
}

func (c Config) stepAddr(s State, r AddrResult, now time.Time) State {
	if s.Screen != ScreenIPDisplay || s.Octets != nil || r.Token != s.Pending {
		staleResults.Inc()
		return s
	}
	s.Pending = 0
	if r.Err != nil {
		return c.hold(s, now, "FAIL", true, ScreenMenuRoot)
	}
	ip := r.IP
	if ip == "" {
		ip = "127.0.0.1" // the interface has no address yet
	}
	s.Octets = strings.Split(ip, ".")
	s.OctetIdx = 0
	return s
}

// enter moves to a new screen.  An in-flight request is orphaned; its
// completion token no longer matches and will be discarded.
func enter(s State, next Screen) State {
	s.Screen = next
	s.Pending = 0
	return s
}

// hold shows text until a deadline, then moves on to next.  The deadline
// leaves the marquee time to finish its scroll.
func (c Config) hold(s State, now time.Time, text string, blink bool, next Screen) State {
	s = enter(s, ScreenHold)
	s.Hold = Hold{
		Text:  text,
		Blink: blink,
		Next:  next,
		Until: now.Add(c.HoldDuration + c.scrollTime(text)),
	}
	return s
}

// scrollTime is how long the marquee needs to walk text across the
// display.
func (c Config) scrollTime(text string) time.Duration {
	if extra := len([]rune(text)) - glyph.Width; extra > 0 {
		return time.Duration(extra) * c.TickInterval
	}
	return 0
}

func zoneIndex(id string) int {
	for i, z := range Zones {
		if z.ID == id {
			return i
		}
	}
	return 0
}

// passwordString spells out a buffer of character indices.
func passwordString(p []int) string {
	var b strings.Builder
	for _, idx := range p {
		b.WriteRune(glyph.PasswordChars[idx])
	}
	return b.String()
}

func clampBrightness(level int) int {
	if level < 0 {
		return 0
	}
	if level > 15 {
		return 15
	}
	return level
}
