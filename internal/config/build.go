package config

import (
	"stacksearch/domain/catalogue"
	"stacksearch/domain/events"
	"stacksearch/domain/spectral"
	"stacksearch/domain/temporal"
	"stacksearch/internal/dataset"
	"stacksearch/internal/errors"
	"stacksearch/internal/injection"
	"stacksearch/internal/likelihood"
	"stacksearch/internal/minimize"
)

// Build loads every table the analysis names and assembles the season
// units the minimization handler runs over. Any missing file or
// inconsistent model fails here, before the first trial.
func (a *Analysis) Build() ([]minimize.SeasonUnit, error) {
	cat, err := catalogue.Load(a.Catalogue)
	if err != nil {
		return nil, err
	}

	ds := dataset.NewDataset(a.Name)
	for _, sf := range a.Seasons {
		season, err := loadSeason(sf)
		if err != nil {
			return nil, err
		}
		ds.Add(season)
	}
	seasons, err := ds.GetSeasons(a.UseSeasons...)
	if err != nil {
		return nil, err
	}

	injEnergy, err := spectral.New(a.Injection.EnergyPDF)
	if err != nil {
		return nil, errors.Wrap(err, "inj_energy_pdf")
	}
	energyRange := [2]float64{}
	energyRange[0], energyRange[1] = a.Injection.EnergyPDF.EnergyRange()

	units := make([]minimize.SeasonUnit, 0, len(seasons))
	for _, season := range seasons {
		ctx, err := likelihood.NewSeasonContext(a.Likelihood, season, cat)
		if err != nil {
			return nil, errors.Wrapf(err, "season %s", season.Name)
		}
		injTime, err := temporal.New(a.Injection.SigTimePDF, season.Bounds)
		if err != nil {
			return nil, errors.Wrapf(err, "season %s: inj_sig_time_pdf", season.Name)
		}
		inj, err := injection.New(season, cat, injEnergy, injTime, energyRange)
		if err != nil {
			return nil, err
		}
		var bkgSim temporal.TimePDF
		if a.Injection.BkgTimePDF != nil {
			bkgSim, err = temporal.NewBackgroundSim(*a.Injection.BkgTimePDF, season.Bounds)
			if err != nil {
				return nil, errors.Wrapf(err, "season %s: inj_bkg_time_pdf", season.Name)
			}
			if bkgSim.EffectiveInjectionTime(nil) <= 0 {
				return nil, errors.ConfigInvalidf("season %s: inj_bkg_time_pdf window does not overlap the season", season.Name)
			}
		}
		units = append(units, minimize.SeasonUnit{Context: ctx, Injector: inj, BkgSim: bkgSim})
	}
	return units, nil
}

// NewHandler builds the configured minimization handler over the
// assembled units.
func (a *Analysis) NewHandler() (minimize.Handler, error) {
	units, err := a.Build()
	if err != nil {
		return nil, err
	}
	return minimize.New(a.Minimizer, units)
}

func loadSeason(sf SeasonFiles) (*dataset.Season, error) {
	exp, err := dataset.LoadExp(sf.Exp)
	if err != nil {
		return nil, errors.Wrapf(err, "season %s", sf.Name)
	}

	var mc []events.SimEvent
	if sf.MC != "" {
		mc, err = dataset.LoadMC(sf.MC)
		if err != nil {
			return nil, errors.Wrapf(err, "season %s", sf.Name)
		}
	}

	var effArea *dataset.EffectiveArea
	if sf.EffArea != "" {
		effArea, err = dataset.LoadEffectiveArea(sf.EffArea, sf.LogESmear)
		if err != nil {
			return nil, errors.Wrapf(err, "season %s", sf.Name)
		}
	}

	return dataset.NewSeason(sf.Name, sf.StartMJD, sf.EndMJD, exp, mc, effArea)
}
