// Package spectral defines the energy probability models for signal
// hypotheses, plus the fluence integrals used to convert a flux
// normalization into an expected signal count.
package spectral

import "math"

// Default integration range for fluence integrals, GeV.
const (
	DefaultEMinGeV = 100
	DefaultEMaxGeV = 1e7
)

// EnergyPDF is a flux-shaped energy density. Weight returns the
// unnormalized differential flux dN/dE at an energy in GeV (the per-event
// spectral re-weighting factor); the integrals run over [eMin, eMax].
type EnergyPDF interface {
	Name() string

	// Weight returns dN/dE at energy (GeV) for unit flux normalization.
	Weight(energy float64) float64

	// Integral returns ∫ dN/dE dE over [eMin, eMax]: the expected event
	// rate per unit normalization.
	Integral(eMin, eMax float64) float64

	// FluenceIntegral returns ∫ E·dN/dE dE over [eMin, eMax]: the energy
	// fluence per unit normalization.
	FluenceIntegral(eMin, eMax float64) float64
}

// PowerLaw is dN/dE = (E/1 GeV)^-γ.
type PowerLaw struct {
	Gamma float64
}

func (p PowerLaw) Name() string { return NamePowerLaw }

func (p PowerLaw) Weight(energy float64) float64 {
	return math.Pow(energy, -p.Gamma)
}

func (p PowerLaw) Integral(eMin, eMax float64) float64 {
	return powerIntegral(1-p.Gamma, eMin, eMax)
}

func (p PowerLaw) FluenceIntegral(eMin, eMax float64) float64 {
	return powerIntegral(2-p.Gamma, eMin, eMax)
}

// powerIntegral is ∫ E^(k-1) dE = [E^k / k], with the log special case.
func powerIntegral(k, eMin, eMax float64) float64 {
	if eMax <= eMin {
		return 0
	}
	if math.Abs(k) < 1e-9 {
		return math.Log(eMax / eMin)
	}
	return (math.Pow(eMax, k) - math.Pow(eMin, k)) / k
}

// PowerLawCutoff is dN/dE = E^-γ · exp(-E/E_cut).
type PowerLawCutoff struct {
	Gamma     float64
	CutoffGeV float64
}

func (p PowerLawCutoff) Name() string { return NamePowerLawCutoff }

func (p PowerLawCutoff) Weight(energy float64) float64 {
	return math.Pow(energy, -p.Gamma) * math.Exp(-energy/p.CutoffGeV)
}

func (p PowerLawCutoff) Integral(eMin, eMax float64) float64 {
	return logSimpson(p.Weight, eMin, eMax)
}

func (p PowerLawCutoff) FluenceIntegral(eMin, eMax float64) float64 {
	return logSimpson(func(e float64) float64 { return e * p.Weight(e) }, eMin, eMax)
}

// BrokenPowerLaw is a two-index spectrum continuous at the break energy.
type BrokenPowerLaw struct {
	Gamma1   float64 // index below the break
	Gamma2   float64 // index above the break
	BreakGeV float64
}

func (p BrokenPowerLaw) Name() string { return NameBrokenPowerLaw }

func (p BrokenPowerLaw) Weight(energy float64) float64 {
	if energy <= p.BreakGeV {
		return math.Pow(energy, -p.Gamma1)
	}
	// Continuity factor at the break.
	return math.Pow(p.BreakGeV, p.Gamma2-p.Gamma1) * math.Pow(energy, -p.Gamma2)
}

func (p BrokenPowerLaw) Integral(eMin, eMax float64) float64 {
	return p.splitIntegral(eMin, eMax, 1)
}

func (p BrokenPowerLaw) FluenceIntegral(eMin, eMax float64) float64 {
	return p.splitIntegral(eMin, eMax, 2)
}

func (p BrokenPowerLaw) splitIntegral(eMin, eMax float64, moment float64) float64 {
	total := 0.0
	if eMin < p.BreakGeV {
		hi := math.Min(eMax, p.BreakGeV)
		total += powerIntegral(moment-p.Gamma1, eMin, hi)
	}
	if eMax > p.BreakGeV {
		lo := math.Max(eMin, p.BreakGeV)
		total += math.Pow(p.BreakGeV, p.Gamma2-p.Gamma1) * powerIntegral(moment-p.Gamma2, lo, eMax)
	}
	return total
}

// logSimpson integrates f over [a, b] with Simpson's rule in log-energy,
// which keeps power-law-like integrands well sampled.
func logSimpson(f func(float64) float64, a, b float64) float64 {
	if b <= a {
		return 0
	}
	const n = 2048 // even
	la, lb := math.Log(a), math.Log(b)
	h := (lb - la) / n
	// Substitution E = e^u adds a factor E to the integrand.
	g := func(u float64) float64 {
		e := math.Exp(u)
		return e * f(e)
	}
	sum := g(la) + g(lb)
	for i := 1; i < n; i++ {
		u := la + float64(i)*h
		if i%2 == 1 {
			sum += 4 * g(u)
		} else {
			sum += 2 * g(u)
		}
	}
	return sum * h / 3
}
