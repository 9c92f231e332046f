package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"gokinet/adapters/export"
	"gokinet/adapters/loader"
	"gokinet/adapters/postgres"
	"gokinet/adapters/rng"
	"gokinet/app"
	"gokinet/inference"
	"gokinet/internal/testkit"
	"gokinet/ports"
	"gokinet/ui"
)

func main() {
	// a missing .env is fine, the environment may be set directly
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "gokinet",
		Short: "Bayesian estimation of denitrification rate-law kinetics",
	}

	rootCmd.AddCommand(
		newSimulateCmd(),
		newFitCmd(),
		newServeCmd(),
		newMigrateCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(verbose bool) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	}
	return log
}

func openStore(log *logrus.Logger) (*postgres.Store, error) {
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		return nil, nil
	}
	store, err := postgres.Open(url)
	if err != nil {
		return nil, err
	}
	log.Info("connected to postgres run store")
	return store, nil
}

func newSimulateCmd() *cobra.Command {
	var steps int
	var noise float64
	var seed int64
	var scenario string
	var out string

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Generate a synthetic observed series at known true constants",
		RunE: func(cmd *cobra.Command, args []string) error {
			var sc *testkit.Scenario
			var err error
			switch scenario {
			case "ramp":
				sc, err = testkit.LinearRamp(steps, noise, seed)
			case "benchtop":
				sc, err = testkit.Benchtop(seed)
			default:
				return fmt.Errorf("unknown scenario %q (want ramp or benchtop)", scenario)
			}
			if err != nil {
				return err
			}
			if err := writeSeriesCSV(out, sc); err != nil {
				return err
			}
			fmt.Printf("wrote %d timesteps to %s (scenario %s, seed %d)\n",
				sc.Series.Len(), out, sc.Name, seed)
			return nil
		},
	}

	cmd.Flags().IntVar(&steps, "steps", 50, "number of timesteps (ramp scenario)")
	cmd.Flags().Float64Var(&noise, "noise", 0.0005, "observation noise scale (ramp scenario)")
	cmd.Flags().Int64Var(&seed, "seed", 42, "generator seed")
	cmd.Flags().StringVar(&scenario, "scenario", "ramp", "scenario: ramp or benchtop")
	cmd.Flags().StringVar(&out, "out", "observed.csv", "output CSV path")
	return cmd
}

func writeSeriesCSV(path string, sc *testkit.Scenario) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"t", "o2", "n2o", "ch2o", "r3"}); err != nil {
		return err
	}
	s := sc.Series
	for i := 0; i < s.Len(); i++ {
		row := []string{
			formatFloat(s.T[i]), formatFloat(s.O2[i]), formatFloat(s.N2O[i]),
			formatFloat(s.CH2O[i]), formatFloat(s.Rate[i]),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func newFitCmd() *cobra.Command {
	var label string
	var chains, tune, draws int
	var targetAccept, biomass float64
	var seed int64
	var fixedDrivers bool
	var outDir string
	var verbose bool

	cmd := &cobra.Command{
		Use:   "fit [series-file]",
		Short: "Estimate the kinetic constants from an observed series",
		Long: `Estimate the five kinetic constants and the noise scale from a CSV or
xlsx file with columns t, o2, n2o, ch2o, r3. Results are persisted when
DATABASE_URL is set and exported to --out-dir as a workbook and a report.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger(verbose)

			cfg := inference.DefaultConfig()
			cfg.Chains = chains
			cfg.TuningSteps = tune
			cfg.DrawSteps = draws
			cfg.TargetAccept = targetAccept
			cfg.Seed = seed
			cfg.Biomass = biomass
			if fixedDrivers {
				cfg.Latency = inference.DriverLatency{}
			}

			store, err := openStore(log)
			if err != nil {
				return err
			}
			var runStore ports.RunStore
			if store != nil {
				defer store.Close()
				if err := store.Migrate(cmd.Context()); err != nil {
					return err
				}
				runStore = store
			}

			svc := app.NewEstimationService(
				loader.NewFileLoader(),
				rng.NewSeedAdapter(),
				runStore,
				[]ports.Exporter{export.NewExcelExporter(), export.NewReportExporter()},
				log,
			)

			rec, err := svc.RunEstimation(cmd.Context(), app.EstimationRequest{
				Label:      label,
				SeriesPath: args[0],
				Config:     cfg,
				ExportDir:  outDir,
			})
			if err != nil {
				return err
			}

			fmt.Printf("run %s finished (converged=%t diverged=%t, %d ms)\n",
				rec.ID, rec.Converged, rec.Diverged, rec.ElapsedMs)
			for _, p := range rec.Params {
				fmt.Printf("  %-22s mean=%.4g sd=%.4g  %d%% HDI [%.4g, %.4g]\n",
					p.Name, p.Mean, p.StdDev, int(p.HDIMass*100), p.HDILow, p.HDIHigh)
			}
			for _, w := range rec.Warnings {
				fmt.Printf("  warning: %s\n", w)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&label, "label", "", "label stored with the run record")
	cmd.Flags().IntVar(&chains, "chains", 2, "number of sampling chains")
	cmd.Flags().IntVar(&tune, "tune", inference.DefaultTuningSteps, "warm-up iterations per chain")
	cmd.Flags().IntVar(&draws, "draws", inference.DefaultDrawSteps, "retained draws per chain")
	cmd.Flags().Float64Var(&targetAccept, "target-accept", inference.DefaultTargetAccept, "dual-averaging acceptance target")
	cmd.Flags().Int64Var(&seed, "seed", 42, "sampler seed")
	cmd.Flags().Float64Var(&biomass, "biomass", inference.DefaultBiomass, "known biomass concentration X3")
	cmd.Flags().BoolVar(&fixedDrivers, "fixed-drivers", false, "treat driver measurements as exact inputs")
	cmd.Flags().StringVar(&outDir, "out-dir", "results", "directory for exported artifacts")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "debug logging")
	return cmd
}

func newServeCmd() *cobra.Command {
	var addr string
	var verbose bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the estimation API over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger(verbose)

			store, err := openStore(log)
			if err != nil {
				return err
			}
			var runStore ports.RunStore
			if store != nil {
				defer store.Close()
				if err := store.Migrate(cmd.Context()); err != nil {
					return err
				}
				runStore = store
			} else {
				log.Warn("DATABASE_URL not set, runs will not be persisted")
			}

			svc := app.NewEstimationService(loader.NewFileLoader(), rng.NewSeedAdapter(), runStore, nil, log)
			return ui.NewServer(svc, log).Run(addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "debug logging")
	return cmd
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the run store schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger(false)
			store, err := openStore(log)
			if err != nil {
				return err
			}
			if store == nil {
				return fmt.Errorf("DATABASE_URL is not set")
			}
			defer store.Close()
			if err := store.Migrate(cmd.Context()); err != nil {
				return err
			}
			log.Info("schema up to date")
			return nil
		},
	}
}
