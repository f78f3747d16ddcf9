package astro

import "math"

// RotateToSource carries a reconstructed direction along with the
// rotation that maps a true direction onto a target source position.
// This is how simulated events are relocated onto a catalogue source:
// the offset between reconstruction and truth is preserved exactly.
func RotateToSource(raReco, decReco, raTrue, decTrue, raSrc, decSrc float64) (ra, dec float64) {
	from := UnitVector(raTrue, decTrue)
	to := UnitVector(raSrc, decSrc)
	reco := UnitVector(raReco, decReco)

	axis, angle := rotationBetween(from, to)
	rotated := rotateAbout(reco, axis, angle)
	return Equatorial(rotated)
}

// rotationBetween returns the axis and angle rotating unit vector a onto b.
func rotationBetween(a, b [3]float64) (axis [3]float64, angle float64) {
	axis = cross(a, b)
	norm := math.Sqrt(dot(axis, axis))
	angle = math.Atan2(norm, dot(a, b))
	if norm < 1e-12 {
		if dot(a, b) > 0 {
			// Vectors already aligned.
			return [3]float64{0, 0, 1}, 0
		}
		// Antipodal: rotate by π about any axis perpendicular to a.
		perp := cross(a, [3]float64{1, 0, 0})
		if n := math.Sqrt(dot(perp, perp)); n > 1e-12 {
			return scale(perp, 1/n), math.Pi
		}
		return [3]float64{0, 1, 0}, math.Pi
	}
	return scale(axis, 1/norm), angle
}

// rotateAbout applies the Rodrigues rotation formula.
func rotateAbout(v, axis [3]float64, angle float64) [3]float64 {
	sinA, cosA := math.Sincos(angle)
	kxv := cross(axis, v)
	kdv := dot(axis, v)
	var out [3]float64
	for i := 0; i < 3; i++ {
		out[i] = v[i]*cosA + kxv[i]*sinA + axis[i]*kdv*(1-cosA)
	}
	return out
}

func cross(a, b [3]float64) [3]float64 {
	return [3]float64{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func dot(a, b [3]float64) float64 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

func scale(v [3]float64, s float64) [3]float64 {
	return [3]float64{v[0] * s, v[1] * s, v[2] * s}
}
