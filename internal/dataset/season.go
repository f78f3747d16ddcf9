package dataset

import (
	"sync"

	"stacksearch/domain/events"
	"stacksearch/domain/temporal"
	"stacksearch/internal/errors"
)

// Season is one time-bounded data-taking period: the experimental event
// table, optional simulation, optional effective-area parametrization,
// livetime bounds and sky coverage. The background density model is
// fitted lazily on first use and cached; scrambling never refits it.
type Season struct {
	Name   string
	Bounds temporal.Bounds

	// Exp is the experimental event table. Immutable after construction.
	Exp events.Sample

	// MC is the simulated event table, nil when no full simulation
	// exists for this season.
	MC []events.SimEvent

	// EffArea is the effective-area parametrization used for injection
	// when MC is absent.
	EffArea *EffectiveArea

	// Sky coverage in sin(declination). Sources outside this band get
	// zero injected contribution.
	SinDecMin float64
	SinDecMax float64

	bkgOnce sync.Once
	bkg     *BackgroundModel
	bkgErr  error
}

// NewSeason builds and validates a season from in-memory tables. Either
// mc or effArea (or both) may be nil; injector construction checks what
// is available.
func NewSeason(name string, tStart, tEnd float64, exp events.Sample, mc []events.SimEvent, effArea *EffectiveArea) (*Season, error) {
	s := &Season{
		Name:      name,
		Bounds:    temporal.Bounds{Start: tStart, End: tEnd},
		Exp:       exp,
		MC:        mc,
		EffArea:   effArea,
		SinDecMin: -1,
		SinDecMax: 1,
	}
	if effArea != nil {
		s.SinDecMin, s.SinDecMax = effArea.Coverage()
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Season) validate() error {
	if s.Name == "" {
		return errors.ConfigInvalid("season name is empty")
	}
	if s.Bounds.End <= s.Bounds.Start {
		return errors.ConfigInvalidf("season %s: livetime end %g <= start %g", s.Name, s.Bounds.End, s.Bounds.Start)
	}
	for i, ev := range s.Exp {
		if !s.Bounds.Contains(ev.Time) {
			return errors.ConfigInvalidf("season %s: event %d arrival time %g outside livetime [%g, %g]", s.Name, i, ev.Time, s.Bounds.Start, s.Bounds.End)
		}
	}
	return nil
}

// HasMC reports whether a full simulated event table is available.
func (s *Season) HasMC() bool {
	return len(s.MC) > 0
}

// Livetime returns the season length in days.
func (s *Season) Livetime() float64 {
	return s.Bounds.Livetime()
}

// Covers reports whether a declination (radians) lies inside the season's
// sky coverage.
func (s *Season) Covers(sinDec float64) bool {
	return sinDec >= s.SinDecMin && sinDec <= s.SinDecMax
}

// Background returns the cached background density model, fitting it on
// first access. Concurrent first access is serialized: the fit runs
// exactly once and every trial shares the result read-only.
func (s *Season) Background() (*BackgroundModel, error) {
	s.bkgOnce.Do(func() {
		s.bkg, s.bkgErr = fitBackgroundModel(s.Exp, s.Bounds)
	})
	return s.bkg, s.bkgErr
}
