package astro

import "math"

// Conversion helpers between degrees and radians. Right ascension and
// declination are carried in radians everywhere inside the engine;
// catalogue files supply degrees.

func DegToRad(deg float64) float64 { return deg * math.Pi / 180 }

func RadToDeg(rad float64) float64 { return rad * 180 / math.Pi }

// UnitVector converts equatorial coordinates to a cartesian unit vector.
func UnitVector(ra, dec float64) [3]float64 {
	cosDec := math.Cos(dec)
	return [3]float64{
		cosDec * math.Cos(ra),
		cosDec * math.Sin(ra),
		math.Sin(dec),
	}
}

// Equatorial converts a cartesian unit vector back to (ra, dec) with
// ra in [0, 2π).
func Equatorial(v [3]float64) (ra, dec float64) {
	dec = math.Asin(clamp(v[2], -1, 1))
	ra = math.Atan2(v[1], v[0])
	if ra < 0 {
		ra += 2 * math.Pi
	}
	return ra, dec
}

// AngularDistance returns the great-circle separation in radians between
// two directions.
func AngularDistance(ra1, dec1, ra2, dec2 float64) float64 {
	cosDist := math.Sin(dec1)*math.Sin(dec2) +
		math.Cos(dec1)*math.Cos(dec2)*math.Cos(ra1-ra2)
	return math.Acos(clamp(cosDist, -1, 1))
}

// BandSolidAngle returns the solid angle in steradians of the declination
// band sinDecLow <= sin(dec) <= sinDecHigh.
func BandSolidAngle(sinDecLow, sinDecHigh float64) float64 {
	if sinDecHigh < sinDecLow {
		sinDecLow, sinDecHigh = sinDecHigh, sinDecLow
	}
	return 2 * math.Pi * (sinDecHigh - sinDecLow)
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
