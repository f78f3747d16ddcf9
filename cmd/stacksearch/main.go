// Command stacksearch runs stacked point-source trial campaigns,
// aggregates their results, and performs the final unblinding.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"stacksearch/adapters/filestore"
	"stacksearch/adapters/postgres"
	"stacksearch/domain/spectral"
	"stacksearch/domain/trials"
	"stacksearch/internal/config"
	"stacksearch/internal/logging"
	"stacksearch/internal/minimize"
	"stacksearch/internal/results"
	"stacksearch/internal/unblind"
	"stacksearch/ports"
)

var log = logging.DefaultLogger

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Error("%v", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "stacksearch",
		Short:         "Unbinned likelihood trials for stacked point-source searches",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "analysis.yaml", "analysis configuration file")

	root.AddCommand(newTrialsCmd(&configPath))
	root.AddCommand(newResultsCmd(&configPath))
	root.AddCommand(newUnblindCmd(&configPath))
	return root
}

func newTrialsCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "trials",
		Short: "Run the configured trial campaign and persist the records",
		RunE: func(cmd *cobra.Command, args []string) error {
			analysis, env, err := load(*configPath)
			if err != nil {
				return err
			}
			units, err := analysis.Build()
			if err != nil {
				return err
			}
			handler, err := minimize.New(analysis.Minimizer, units)
			if err != nil {
				return err
			}
			store, closeStore, err := openStore(env)
			if err != nil {
				return err
			}
			defer closeStore()

			spec := analysis.Run
			if spec.Workers == 0 {
				spec.Workers = env.Workers
			}
			runner := minimize.NewRunner(handler, store, log)
			records, err := runner.Run(cmd.Context(), spec)
			if err != nil {
				return err
			}
			return summarize(analysis, units, records)
		},
	}
}

func newResultsCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "results",
		Short: "Aggregate persisted trial records into sensitivity and discovery curves",
		RunE: func(cmd *cobra.Command, args []string) error {
			analysis, env, err := load(*configPath)
			if err != nil {
				return err
			}
			units, err := analysis.Build()
			if err != nil {
				return err
			}
			store, closeStore, err := openStore(env)
			if err != nil {
				return err
			}
			defer closeStore()

			records, err := store.Load(cmd.Context())
			if err != nil {
				return err
			}
			return summarize(analysis, units, records)
		},
	}
}

func newUnblindCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "unblind",
		Short: "Fit the real (or a mock) dataset and report the p-value",
		RunE: func(cmd *cobra.Command, args []string) error {
			analysis, _, err := load(*configPath)
			if err != nil {
				return err
			}
			units, err := analysis.Build()
			if err != nil {
				return err
			}
			handler, err := minimize.New(analysis.Minimizer, units)
			if err != nil {
				return err
			}

			ucfg := analysis.Unblind
			if ucfg.BackgroundTSPath == "" {
				ucfg.BackgroundTSPath = analysis.Output.BackgroundTSPath
			}
			ub, err := unblind.New(handler, ucfg, log)
			if err != nil {
				return err
			}
			report, err := ub.Run()
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
}

func load(configPath string) (*config.Analysis, *config.Environment, error) {
	env, err := config.LoadEnvironment()
	if err != nil {
		return nil, nil, err
	}
	analysis, err := config.LoadAnalysis(configPath)
	if err != nil {
		return nil, nil, err
	}
	return analysis, env, nil
}

func openStore(env *config.Environment) (ports.TrialStore, func(), error) {
	if env.DatabaseURL != "" {
		repo, err := postgres.Connect(env.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return repo, func() { repo.Close() }, nil
	}
	store, err := filestore.New(env.TrialsDir)
	if err != nil {
		return nil, nil, err
	}
	return store, func() {}, nil
}

// summarize derives the calibrated statistics from the records and
// writes the configured artifacts. Curves that the scanned scales cannot
// support yet are logged, not fatal, so partial campaigns still persist
// their background distribution.
func summarize(analysis *config.Analysis, units []minimize.SeasonUnit, records []trials.Result) error {
	if len(records) == 0 {
		log.Warn("no trial records to summarize")
		return nil
	}
	h := results.NewHandler(records)

	bkg, err := h.BackgroundDistribution()
	if err != nil {
		log.Warn("skipping summary: %v", err)
		return nil
	}
	log.Info("background distribution: %d trials, median TS %.4f", bkg.N(), bkg.Median())
	if path := analysis.Output.BackgroundTSPath; path != "" {
		if err := bkg.Save(path); err != nil {
			return err
		}
		log.Info("background TS distribution saved to %s", path)
	}

	flux := fluxConverter(units)
	fluence := fluenceConverter(analysis, flux)
	curves := make(map[string]*results.Curve)
	if sens, err := h.Sensitivity(); err == nil {
		curves["sensitivity"] = sens
		logCurve("sensitivity", sens, flux, fluence)
	} else {
		log.Warn("sensitivity not available: %v", err)
	}
	if disc, err := h.DiscoveryPotential(); err == nil {
		curves["discovery"] = disc
		logCurve("discovery potential", disc, flux, fluence)
	} else {
		log.Warn("discovery potential not available: %v", err)
	}

	if path := analysis.Output.WorkbookPath; path != "" && len(curves) > 0 {
		if err := results.ExportXLSX(path, h, curves, flux, fluence); err != nil {
			return err
		}
		log.Info("results workbook saved to %s", path)
	}
	return nil
}

func logCurve(name string, curve *results.Curve, flux, fluence results.FluxConverter) {
	if flux == nil {
		log.Info("%s: scale %.4f at TS threshold %.4f", name, curve.Scale, curve.Threshold)
		return
	}
	if fluence != nil {
		log.Info("%s: scale %.4f (flux %.4g, fluence %.4g GeV cm⁻²) at TS threshold %.4f",
			name, curve.Scale, flux(curve.Scale), fluence(curve.Scale), curve.Threshold)
		return
	}
	log.Info("%s: scale %.4f (flux %.4g) at TS threshold %.4f", name, curve.Scale, flux(curve.Scale), curve.Threshold)
}

// fluxConverter maps a total injected mean count back to the flux
// normalization producing it across all seasons.
func fluxConverter(units []minimize.SeasonUnit) results.FluxConverter {
	total := 0.0
	for _, u := range units {
		total += u.Injector.Acceptance()
	}
	if total <= 0 {
		return nil
	}
	return func(scale float64) float64 { return scale / total }
}

// fluenceConverter composes the flux normalization with the injection
// spectrum's energy-fluence integral, reporting ∫ E·dN/dE dE over the
// configured range for the interpolated scale.
func fluenceConverter(analysis *config.Analysis, flux results.FluxConverter) results.FluxConverter {
	if flux == nil {
		return nil
	}
	pdf, err := spectral.New(analysis.Injection.EnergyPDF)
	if err != nil {
		return nil
	}
	eMin, eMax := analysis.Injection.EnergyPDF.EnergyRange()
	integral := pdf.FluenceIntegral(eMin, eMax)
	if integral <= 0 {
		return nil
	}
	return func(scale float64) float64 { return flux(scale) * integral }
}
