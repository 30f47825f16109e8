package encoder

import (
	"reflect"
	"testing"
	"time"
)

// drain collects every event the decoder has emitted so far.
func drain(d *Decoder) []Event {
	var out []Event
	for {
		select {
		case e := <-d.C:
			out = append(out, e)
		default:
			return out
		}
	}
}

// cw and ccw are the level transitions of one full detent in each
// direction, starting and ending at rest (both lines high).
var (
	cw = []RawEdge{
		{Line: LineA, Level: false},
		{Line: LineB, Level: false},
		{Line: LineA, Level: true},
		{Line: LineB, Level: true},
	}
	ccw = []RawEdge{
		{Line: LineB, Level: false},
		{Line: LineA, Level: false},
		{Line: LineB, Level: true},
		{Line: LineA, Level: true},
	}
)

func TestDetent(t *testing.T) {
	testData := []struct {
		name  string
		edges []RawEdge
		want  []Event
	}{
		{
			name:  "one clockwise detent",
			edges: cw,
			want:  []Event{{Type: RotateCW}},
		},
		{
			name:  "one counter-clockwise detent",
			edges: ccw,
			want:  []Event{{Type: RotateCCW}},
		},
		{
			name:  "half a detent moves nothing",
			edges: cw[:2],
			want:  nil,
		},
		{
			name:  "three detents",
			edges: append(append(append([]RawEdge{}, cw...), cw...), cw...),
			want:  []Event{{Type: RotateCW}, {Type: RotateCW}, {Type: RotateCW}},
		},
		{
			name:  "direction reversal mid-cycle",
			edges: []RawEdge{{Line: LineA, Level: false}, {Line: LineA, Level: true}},
			want:  nil,
		},
	}

	for _, test := range testData {
		d := NewDecoder(Options{})
		for _, e := range test.edges {
			d.Feed(e)
		}
		if got, want := drain(d), test.want; !reflect.DeepEqual(got, want) {
			t.Errorf("%s:\n  got: %v\n want: %v", test.name, got, want)
		}
	}
}

func TestHalfStepRate(t *testing.T) {
	// With two steps per detent, N valid same-direction transitions
	// complete floor(N/2) detents.
	for n := 1; n <= 8; n++ {
		d := NewDecoder(Options{StepsPerDetent: 2})
		for i := 0; i < n; i++ {
			d.Feed(cw[i%len(cw)])
		}
		events := drain(d)
		for _, e := range events {
			if e.Type != RotateCW {
				t.Errorf("n=%d: unexpected event %v", n, e)
			}
		}
		if got, want := len(events), n/2; got != want {
			t.Errorf("n=%d events:\n  got: %v\n want: %v", n, got, want)
		}
	}
}

func TestGlitch(t *testing.T) {
	testData := []struct {
		name      string
		from, to  uint8
		steps     int
		wantSteps int
	}{
		{name: "00 to 11 skips", from: 0, to: 3, steps: 1, wantSteps: 0},
		{name: "01 to 10 skips", from: 1, to: 2, steps: -1, wantSteps: 0},
		{name: "11 to 00 skips", from: 3, to: 0, steps: 3, wantSteps: 0},
		{name: "adjacent keeps movement", from: 0, to: 1, steps: 1, wantSteps: 2},
	}

	for _, test := range testData {
		q := quadState{phase: test.from, steps: test.steps}
		q, detent := q.apply(test.to, 4)
		if detent != 0 {
			t.Errorf("%s: emitted movement %d", test.name, detent)
		}
		if got, want := q.phase, test.to; got != want {
			t.Errorf("%s: phase did not resync:\n  got: %02b\n want: %02b", test.name, got, want)
		}
		if got, want := q.steps, test.wantSteps; got != want {
			t.Errorf("%s: accumulator:\n  got: %v\n want: %v", test.name, got, want)
		}
	}
}

func TestDebounce(t *testing.T) {
	base := time.Unix(1000, 0)
	at := func(d time.Duration) time.Time { return base.Add(d) }

	testData := []struct {
		name  string
		edges []RawEdge
		want  []Event
	}{
		{
			name: "burst is one press",
			edges: []RawEdge{
				{Line: LineCenter, Level: false, At: at(0)},
				{Line: LineCenter, Level: true, At: at(2 * time.Millisecond)},
				{Line: LineCenter, Level: false, At: at(4 * time.Millisecond)},
				{Line: LineCenter, Level: true, At: at(6 * time.Millisecond)},
				{Line: LineCenter, Level: false, At: at(8 * time.Millisecond)},
			},
			want: []Event{{Type: ButtonDown, Button: Center}},
		},
		{
			name: "press and release past the window",
			edges: []RawEdge{
				{Line: LineUp, Level: false, At: at(0)},
				{Line: LineUp, Level: true, At: at(100 * time.Millisecond)},
			},
			want: []Event{
				{Type: ButtonDown, Button: Up},
				{Type: ButtonUp, Button: Up},
			},
		},
		{
			name: "repeated level is not an edge",
			edges: []RawEdge{
				{Line: LineLeft, Level: false, At: at(0)},
				{Line: LineLeft, Level: false, At: at(100 * time.Millisecond)},
			},
			want: []Event{{Type: ButtonDown, Button: Left}},
		},
		{
			name: "buttons debounce independently",
			edges: []RawEdge{
				{Line: LineCenter, Level: false, At: at(0)},
				{Line: LineRight, Level: false, At: at(time.Millisecond)},
			},
			want: []Event{
				{Type: ButtonDown, Button: Center},
				{Type: ButtonDown, Button: Right},
			},
		},
	}

	for _, test := range testData {
		d := NewDecoder(Options{DebounceWindow: 15 * time.Millisecond})
		for _, e := range test.edges {
			d.Feed(e)
		}
		if got, want := drain(d), test.want; !reflect.DeepEqual(got, want) {
			t.Errorf("%s:\n  got: %v\n want: %v", test.name, got, want)
		}
	}
}

func TestUnknownLine(t *testing.T) {
	d := NewDecoder(Options{})
	defer func() {
		if recover() == nil {
			t.Error("feeding a nonexistent line should panic")
		}
	}()
	d.Feed(RawEdge{Line: Line(42)})
}
