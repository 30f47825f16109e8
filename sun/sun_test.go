package sun

import (
	"testing"
	"time"
)

func TestDark(t *testing.T) {
	austin, err := time.LoadLocation("America/Chicago")
	if err != nil {
		t.Fatalf("load zone: %v", err)
	}
	tromso, err := time.LoadLocation("Europe/Oslo")
	if err != nil {
		t.Fatalf("load zone: %v", err)
	}

	testData := []struct {
		name     string
		at       time.Time
		lat, lon float64
		want     bool
	}{
		// Austin: summer sunrise is near 6:30, sunset near 20:30.
		{
			name: "austin summer noon",
			at:   time.Date(2025, 6, 21, 12, 0, 0, 0, austin),
			lat:  30.0, lon: -97.8,
			want: false,
		},
		{
			name: "austin summer early morning",
			at:   time.Date(2025, 6, 21, 5, 0, 0, 0, austin),
			lat:  30.0, lon: -97.8,
			want: true,
		},
		{
			name: "austin summer after sunrise",
			at:   time.Date(2025, 6, 21, 7, 0, 0, 0, austin),
			lat:  30.0, lon: -97.8,
			want: false,
		},
		{
			name: "austin summer late evening",
			at:   time.Date(2025, 6, 21, 21, 30, 0, 0, austin),
			lat:  30.0, lon: -97.8,
			want: true,
		},
		// Winter sunrise is near 7:25, sunset near 17:35.
		{
			name: "austin winter morning commute",
			at:   time.Date(2025, 12, 21, 7, 0, 0, 0, austin),
			lat:  30.0, lon: -97.8,
			want: true,
		},
		{
			name: "austin winter noon",
			at:   time.Date(2025, 12, 21, 12, 0, 0, 0, austin),
			lat:  30.0, lon: -97.8,
			want: false,
		},
		{
			name: "austin winter dinnertime",
			at:   time.Date(2025, 12, 21, 18, 0, 0, 0, austin),
			lat:  30.0, lon: -97.8,
			want: true,
		},
		// North of the arctic circle the sun can stay up, or down, all day.
		{
			name: "tromso polar night",
			at:   time.Date(2025, 12, 21, 12, 0, 0, 0, tromso),
			lat:  69.6, lon: 18.9,
			want: true,
		},
		{
			name: "tromso midnight sun",
			at:   time.Date(2025, 6, 21, 23, 50, 0, 0, tromso),
			lat:  69.6, lon: 18.9,
			want: false,
		},
	}
	for _, test := range testData {
		if got := Dark(test.at, test.lat, test.lon); got != test.want {
			t.Errorf("%s:\n  got: %v\n want: %v", test.name, got, test.want)
		}
	}
}

func TestHourAngle(t *testing.T) {
	// At the equinox the day is twelve hours long everywhere.
	for _, lat := range []float64{-60, -30, 0, 30, 60} {
		ha := hourAngle(lat, solarDeclination(81))
		if ha < 89 || ha > 91 {
			t.Errorf("equinox hour angle at latitude %v:\n  got: %v\n want: about 90", lat, ha)
		}
	}
}
