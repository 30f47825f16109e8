// Package sun estimates whether it is dark outside, for dimming the
// display at night.
package sun

import (
	"math"
	"time"
)

// Dark reports whether the sun is down at the given place and time.  The
// estimate is the NOAA approximation with a flat horizon and no
// equation-of-time correction, which lands within a few minutes of the
// published sunrise and sunset times.  t must carry the location's own
// zone; its UTC offset places solar noon on the civil clock.
func Dark(t time.Time, latitude, longitude float64) bool {
	decl := solarDeclination(t.YearDay())
	ha := hourAngle(latitude, decl)
	daylight := 2 * ha / 15 // 15 degrees of rotation per hour
	switch {
	case daylight <= 0:
		return true
	case daylight >= 24:
		return false
	}

	_, offset := t.Zone()
	noon := 12 - longitude/15 + float64(offset)/3600
	sunrise := noon - daylight/2
	sunset := noon + daylight/2

	local := float64(t.Hour()) + float64(t.Minute())/60
	return !(sunrise <= local && local <= sunset)
}

// solarDeclination returns the sun's declination in radians on the given
// day of the year.
func solarDeclination(yearDay int) float64 {
	return radians(23.44) * math.Sin(radians(360.0/365.0*(float64(yearDay)-81)))
}

// hourAngle returns the angle in degrees between solar noon and sunset at
// the given latitude.  Polar day and night clamp to 180 and 0.
func hourAngle(latitude, decl float64) float64 {
	x := -math.Tan(radians(latitude)) * math.Tan(decl)
	if x <= -1 {
		return 180 // the sun never sets
	}
	if x >= 1 {
		return 0 // the sun never rises
	}
	return degrees(math.Acos(x))
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

func degrees(rad float64) float64 { return rad * 180 / math.Pi }
