// Package encoder turns the raw GPIO transitions of a rotary encoder and
// five pushbuttons into clean rotation and button events.
package encoder

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	rotationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "input_rotations_total",
		Help: "count of decoded rotation events, by direction",
	}, []string{"direction"})

	buttonEdgesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "input_button_edges_total",
		Help: "count of accepted button edges",
	})

	glitchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "input_quadrature_glitches_total",
		Help: "count of quadrature transitions dropped for skipping a phase",
	})

	bouncesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "input_button_bounces_total",
		Help: "count of button edges dropped by the debounce window",
	})
)

// Line identifies one input line of the front panel.
type Line int

const (
	LineA Line = iota // quadrature phase A
	LineB             // quadrature phase B
	LineCenter
	LineUp
	LineDown
	LineLeft
	LineRight
)

// RawEdge is a single level transition on an input line.  Level is the
// electrical level after the transition; the wiring is pull-up, so low
// means pressed.
type RawEdge struct {
	Line  Line
	Level bool
	At    time.Time
}

// EventType distinguishes the decoded event kinds.
type EventType int

const (
	RotateCW EventType = iota
	RotateCCW
	ButtonDown
	ButtonUp
)

func (t EventType) String() string {
	switch t {
	case RotateCW:
		return "cw"
	case RotateCCW:
		return "ccw"
	case ButtonDown:
		return "down"
	case ButtonUp:
		return "up"
	}
	return fmt.Sprintf("EventType(%d)", int(t))
}

// Button identifies one of the five pushbuttons.
type Button int

const (
	Center Button = 1 + iota
	Up
	Down
	Left
	Right
)

func (b Button) String() string {
	switch b {
	case Center:
		return "center"
	case Up:
		return "up"
	case Down:
		return "down"
	case Left:
		return "left"
	case Right:
		return "right"
	}
	return fmt.Sprintf("Button(%d)", int(b))
}

// Event is one decoded input: a rotation, or an edge on a button.  Button
// is zero for rotations.
type Event struct {
	Type   EventType
	Button Button
}

// Options adjusts the decoder to the mechanics of the attached encoder.
type Options struct {
	// StepsPerDetent is how many valid quadrature transitions make up
	// one Rotate event.  The production knob completes a full
	// 00→01→11→10→00 cycle per detent, so the default is 4; encoders
	// that rest on half cycles want 2.
	StepsPerDetent int

	// DebounceWindow is how long after an accepted button edge further
	// edges on that button are ignored.
	DebounceWindow time.Duration
}

const (
	defaultStepsPerDetent = 4
	defaultDebounce       = 15 * time.Millisecond
)

// glitch marks quadSteps entries for transitions that skip a phase.  Those
// are contact noise, never rotation.
const glitch = 2

// quadSteps maps oldPhase<<2|newPhase to movement.  Phase is B<<1|A of the
// active (pulled-low) levels, and the Gray sequence 00→01→11→10→00 is one
// clockwise cycle.
var quadSteps = [16]int8{
	0, +1, -1, glitch,
	-1, 0, glitch, +1,
	+1, glitch, 0, -1,
	glitch, -1, +1, 0,
}

// quadState is one encoder's phase register and partial movement.  It is a
// value: apply returns the successor state rather than mutating.
type quadState struct {
	phase uint8
	steps int
}

// apply advances the state to a newly observed phase.  It returns the new
// state and the completed movement: +1 for a clockwise detent, -1 for
// counter-clockwise, 0 while movement is still accumulating.  A transition
// that skips a phase resynchronizes the register and discards any partial
// movement.
func (q quadState) apply(phase uint8, perDetent int) (quadState, int) {
	step := quadSteps[q.phase<<2|phase&3]
	q.phase = phase & 3
	switch step {
	case glitch:
		glitchesTotal.Inc()
		q.steps = 0
	case 0:
	default:
		q.steps += int(step)
		if q.steps >= perDetent {
			q.steps = 0
			return q, +1
		}
		if q.steps <= -perDetent {
			q.steps = 0
			return q, -1
		}
	}
	return q, 0
}

type buttonState struct {
	active       bool // true while pressed (line low)
	lastAccepted time.Time
}

// Decoder consumes RawEdges and produces Events on C, in arrival order.
// It is not safe for concurrent use; feed it from one goroutine.
type Decoder struct {
	C chan Event

	opts    Options
	quad    quadState
	buttons [5]buttonState
}

// NewDecoder returns a decoder with both phase lines assumed idle.  Zero
// fields of opts take the defaults.
func NewDecoder(opts Options) *Decoder {
	if opts.StepsPerDetent == 0 {
		opts.StepsPerDetent = defaultStepsPerDetent
	}
	if opts.DebounceWindow == 0 {
		opts.DebounceWindow = defaultDebounce
	}
	return &Decoder{
		C:    make(chan Event, 16),
		opts: opts,
	}
}

// Feed processes one raw edge, emitting any completed events to C.  An
// edge for a line that does not exist is a wiring table bug, not an input
// condition, and panics.
func (d *Decoder) Feed(e RawEdge) {
	active := !e.Level // pull-up wiring
	switch e.Line {
	case LineA, LineB:
		d.feedQuad(e.Line, active)
	case LineCenter, LineUp, LineDown, LineLeft, LineRight:
		d.feedButton(e.Line, active, e.At)
	default:
		panic(fmt.Sprintf("encoder: unknown input line %d", int(e.Line)))
	}
}

func (d *Decoder) feedQuad(line Line, active bool) {
	bit := uint8(0)
	if active {
		bit = 1
	}
	var phase uint8
	if line == LineA {
		phase = d.quad.phase&^1 | bit
	} else {
		phase = d.quad.phase&^2 | bit<<1
	}
	if phase == d.quad.phase {
		// The pulse was too short to observe; nothing moved.
		return
	}
	var detent int
	d.quad, detent = d.quad.apply(phase, d.opts.StepsPerDetent)
	switch detent {
	case +1:
		rotationsTotal.WithLabelValues("cw").Inc()
		d.C <- Event{Type: RotateCW}
	case -1:
		rotationsTotal.WithLabelValues("ccw").Inc()
		d.C <- Event{Type: RotateCCW}
	}
}

func (d *Decoder) feedButton(line Line, active bool, at time.Time) {
	bs := &d.buttons[line-LineCenter]
	if active == bs.active {
		return
	}
	if at.Sub(bs.lastAccepted) < d.opts.DebounceWindow {
		bouncesTotal.Inc()
		return
	}
	bs.active = active
	bs.lastAccepted = at
	ev := Event{Type: ButtonUp, Button: buttonFor(line)}
	if active {
		ev.Type = ButtonDown
	}
	buttonEdgesTotal.Inc()
	d.C <- ev
}

func buttonFor(line Line) Button {
	switch line {
	case LineCenter:
		return Center
	case LineUp:
		return Up
	case LineDown:
		return Down
	case LineLeft:
		return Left
	case LineRight:
		return Right
	}
	return 0
}
