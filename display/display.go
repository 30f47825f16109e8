// Package display drives the HT16K33 quad 14-segment backpack, and retains
// the last committed frame so the rest of the program can be debugged
// without the display attached.
package display

import (
	"fmt"
	"sync"

	"github.com/jrockway/bedside-clock/glyph"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"periph.io/x/conn/v3/i2c"
)

var (
	commitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "display_commits_total",
		Help: "count of frame commits requested",
	})

	commitErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "display_commit_errors_total",
		Help: "count of frame commits that failed on the bus",
	})
)

// DefaultAddr is the HT16K33's address with no solder jumpers bridged.
const DefaultAddr = 0x70

// HT16K33 command bytes.  Commands are the register address; the low bits
// carry the argument.
const (
	cmdSystemSetup  = 0x20 // low bit: oscillator on
	cmdDisplaySetup = 0x80 // bit 0: display on, bits 1-2: blink rate
	cmdDimming      = 0xe0 // low nibble: brightness
	ramBase         = 0x00
)

// The board routes the colon LEDs to the decimal-point row of digit 1.
const (
	colonDigit            = 1
	colonMask  glyph.Mask = 0x4000
)

// BlinkRate selects the device's hardware blink divider.
type BlinkRate int

const (
	BlinkOff BlinkRate = iota
	BlinkHalfHz
	Blink1Hz
	Blink2Hz
)

func (r BlinkRate) String() string {
	switch r {
	case BlinkOff:
		return "off"
	case BlinkHalfHz:
		return "0.5Hz"
	case Blink1Hz:
		return "1Hz"
	case Blink2Hz:
		return "2Hz"
	}
	return fmt.Sprintf("BlinkRate(%d)", int(r))
}

// setupBits returns the blink field of the display-setup command.  The
// device counts dividers downward, so faster rates have smaller values.
func (r BlinkRate) setupBits() byte {
	switch r {
	case Blink2Hz:
		return 1 << 1
	case Blink1Hz:
		return 2 << 1
	case BlinkHalfHz:
		return 3 << 1
	}
	return 0
}

// Frame is one complete display state: the four digit patterns, the colon,
// and the device-level brightness and blink settings.
type Frame struct {
	Digits     [glyph.Width]glyph.Mask
	Colon      bool
	Brightness int
	Blink      BlinkRate
}

// Display buffers a frame in memory and writes it to the device on Commit,
// so a partially-composed frame is never visible.
type Display struct {
	dev *i2c.Dev // nil when running without hardware

	mu      sync.Mutex
	pending Frame
	shown   Frame // what the device (or the retained preview) displays
}

// New initializes the device behind bus at addr: oscillator on, display
// on, blink off, RAM cleared.  A nil bus runs the display in memory only,
// for the simulator and tests; frames are still retained and served over
// HTTP.
func New(bus i2c.Bus, addr uint16, brightness int) (*Display, error) {
	f := Frame{Brightness: clampBrightness(brightness)}
	d := &Display{pending: f, shown: f}
	if bus == nil {
		return d, nil
	}
	d.dev = &i2c.Dev{Bus: bus, Addr: addr}
	if err := d.tx([]byte{cmdSystemSetup | 0x01}); err != nil {
		return nil, fmt.Errorf("enable oscillator: %w", err)
	}
	if err := d.tx([]byte{cmdDisplaySetup | 0x01}); err != nil {
		return nil, fmt.Errorf("turn display on: %w", err)
	}
	if err := d.tx([]byte{cmdDimming | byte(f.Brightness)}); err != nil {
		return nil, fmt.Errorf("set brightness: %w", err)
	}
	if err := d.tx(ramBytes(Frame{})); err != nil {
		return nil, fmt.Errorf("clear display ram: %w", err)
	}
	return d, nil
}

func (d *Display) tx(w []byte) error {
	return d.dev.Tx(w, nil)
}

// SetDigit stages glyph mask m at position pos, 0 being leftmost.  Bits
// outside the device's segment rows are dropped.  A position off the
// display is a programming error and panics.
func (d *Display) SetDigit(pos int, m glyph.Mask) {
	if pos < 0 || pos >= glyph.Width {
		panic(fmt.Sprintf("display: no digit at position %d", pos))
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending.Digits[pos] = m & glyph.Segments
}

// SetDigits stages all four digits at once.
func (d *Display) SetDigits(ms [glyph.Width]glyph.Mask) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, m := range ms {
		d.pending.Digits[i] = m & glyph.Segments
	}
}

// SetColon stages the colon segment.
func (d *Display) SetColon(on bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending.Colon = on
}

// SetBrightness stages the dimming level, clamped to 0 through 15.
func (d *Display) SetBrightness(level int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending.Brightness = clampBrightness(level)
}

// SetBlinkRate stages the hardware blink rate.
func (d *Display) SetBlinkRate(r BlinkRate) {
	if r < BlinkOff || r > Blink2Hz {
		r = BlinkOff
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending.Blink = r
}

// Clear stages a blank display.  Brightness and blink are left alone.
func (d *Display) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending.Digits = [glyph.Width]glyph.Mask{}
	d.pending.Colon = false
}

// Commit writes the staged frame to the device.  Digit memory, brightness
// and blink each go out only when they changed since the last successful
// commit; the whole digit RAM is one bus transaction, so a frame is never
// half-visible.  On error the staged frame is kept, and a retry rewrites
// whatever is still outstanding.
func (d *Display) Commit() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	commitsTotal.Inc()
	if d.dev == nil {
		d.shown = d.pending
		return nil
	}
	if d.pending.Digits != d.shown.Digits || d.pending.Colon != d.shown.Colon {
		if err := d.tx(ramBytes(d.pending)); err != nil {
			commitErrorsTotal.Inc()
			return fmt.Errorf("write digit ram: %w", err)
		}
		d.shown.Digits = d.pending.Digits
		d.shown.Colon = d.pending.Colon
	}
	if d.pending.Brightness != d.shown.Brightness {
		if err := d.tx([]byte{cmdDimming | byte(d.pending.Brightness)}); err != nil {
			commitErrorsTotal.Inc()
			return fmt.Errorf("set brightness: %w", err)
		}
		d.shown.Brightness = d.pending.Brightness
	}
	if d.pending.Blink != d.shown.Blink {
		if err := d.tx([]byte{cmdDisplaySetup | 0x01 | d.pending.Blink.setupBits()}); err != nil {
			commitErrorsTotal.Inc()
			return fmt.Errorf("set blink rate: %w", err)
		}
		d.shown.Blink = d.pending.Blink
	}
	return nil
}

// Blank blanks the display.
func (d *Display) Blank() error {
	d.Clear()
	if err := d.Commit(); err != nil {
		return fmt.Errorf("blank display: %w", err)
	}
	return nil
}

// Shown returns the last committed frame.
func (d *Display) Shown() Frame {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shown
}

// ramBytes builds the 17-byte RAM write for a frame: the register address,
// then each digit's pattern low byte first, with the colon row folded into
// digit 1.  The device has 16 RAM bytes; the upper 8 are unconnected.
func ramBytes(f Frame) []byte {
	buf := make([]byte, 17)
	buf[0] = ramBase
	for i, m := range f.Digits {
		if i == colonDigit && f.Colon {
			m |= colonMask
		}
		buf[1+2*i] = byte(m)
		buf[2+2*i] = byte(m >> 8)
	}
	return buf
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
