package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/san-kum/fewbody/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile    string
	configPath string
	logger     = logging.New(os.Stderr, "info", true)
	// report column width
	width int
	// kepler
	semi, ecc, mass1, mass2 float64
	// merge
	window float64
	// sweep
	sweepPoints int
	sweepMin    float64
	sweepMax    float64
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "fewbody",
		Short: "regularized few-body group diagnostics",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger = logging.New(os.Stderr, viper.GetString("log-level"), viper.GetBool("pretty"))
			if f := viper.ConfigFileUsed(); f != "" {
				logger.Debug().Str("file", f).Msg("using settings file")
			}
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "settings", "", "settings file (default ./.fewbody.yaml)")
	pf.StringVar(&configPath, "config", "", "group config file (yaml), overrides the preset")
	pf.String("data", ".fewbody", "data directory")
	pf.String("log-level", "info", "log level")
	pf.Bool("pretty", true, "human readable logs")
	pf.Int("workers", 0, "executor workers (0 uses GOMAXPROCS)")
	pf.IntVar(&width, "width", 14, "report column width")
	for _, name := range []string{"data", "log-level", "pretty", "workers"} {
		_ = viper.BindPFlag(name, pf.Lookup(name))
	}

	keplerCmd := &cobra.Command{
		Use:   "kepler",
		Short: "integrate a binary for one period",
		Args:  cobra.NoArgs,
		RunE:  runKepler,
	}
	keplerCmd.Flags().Float64Var(&semi, "semi", 1, "semi-major axis")
	keplerCmd.Flags().Float64Var(&ecc, "ecc", 0.5, "eccentricity")
	keplerCmd.Flags().Float64Var(&mass1, "m1", 1, "primary mass")
	keplerCmd.Flags().Float64Var(&mass2, "m2", 1, "secondary mass")

	mergeCmd := &cobra.Command{
		Use:   "merge [preset]",
		Short: "integrate a group and run the merger check every window",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runMerge,
	}
	mergeCmd.Flags().Float64Var(&window, "window", 0.1, "time between merger checks")

	sweepCmd := &cobra.Command{
		Use:   "sweep [preset]",
		Short: "slowdown factor against the distance of the first perturber",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSweep,
	}
	sweepCmd.Flags().IntVar(&sweepPoints, "points", 64, "number of distances")
	sweepCmd.Flags().Float64Var(&sweepMin, "min", 10, "smallest distance")
	sweepCmd.Flags().Float64Var(&sweepMax, "max", 1000, "largest distance")

	snapshotCmd := &cobra.Command{
		Use:   "snapshot",
		Short: "save and restore group records",
	}
	snapshotCmd.AddCommand(
		&cobra.Command{
			Use:   "write [preset]",
			Short: "evaluate a group and save its records",
			Args:  cobra.MaximumNArgs(1),
			RunE:  writeSnapshot,
		},
		&cobra.Command{
			Use:   "read [run_id]",
			Short: "restore saved records and print them",
			Args:  cobra.ExactArgs(1),
			RunE:  readSnapshot,
		},
		&cobra.Command{
			Use:   "list",
			Short: "list saved runs",
			Args:  cobra.NoArgs,
			RunE:  listSnapshots,
		},
	)

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "tree [preset]",
			Short: "build the binary tree and print the node report",
			Args:  cobra.MaximumNArgs(1),
			RunE:  runTree,
		},
		keplerCmd,
		&cobra.Command{
			Use:   "slowdown [preset]",
			Short: "evaluate perturbation and slowdown factors",
			Args:  cobra.MaximumNArgs(1),
			RunE:  runSlowDown,
		},
		mergeCmd,
		sweepCmd,
		snapshotCmd,
		&cobra.Command{
			Use:   "batch [preset...]",
			Short: "evaluate several presets concurrently",
			RunE:  runBatch,
		},
		&cobra.Command{
			Use:   "presets",
			Short: "list presets",
			Args:  cobra.NoArgs,
			RunE:  listPresets,
		},
	)

	cobra.OnInitialize(initConfig)

	if err := rootCmd.Execute(); err != nil {
		logger.Fatal().Err(err).Msg("fewbody failed")
	}
}

func initConfig() {
	if err := readConfig(viper.GetViper(), cfgFile, "."); err != nil {
		logger.Fatal().Err(err).Msg("fewbody failed")
	}
}

// readConfig loads the config file into v. Without an explicit file a
// missing .fewbody.yaml in dir is fine; any other read or parse error is
// returned.
func readConfig(v *viper.Viper, file, dir string) error {
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.AddConfigPath(dir)
		v.SetConfigName(".fewbody")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("FEWBODY")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}
	return nil
}
