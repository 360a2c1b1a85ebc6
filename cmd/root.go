package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/RyanBlaney/sonido-veraz/detector/common"
	"github.com/RyanBlaney/sonido-veraz/detector/config"
	"github.com/RyanBlaney/sonido-veraz/logging"
)

var (
	configFile string
	verbose    bool
	logLevel   string

	// appConfig is the effective configuration, loaded before any
	// subcommand runs
	appConfig *config.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "veraz",
	Short: "Detect AI-generated voice recordings",
	Long: `veraz classifies a voice recording as AI_GENERATED or HUMAN.

The recording is decoded, resampled to mono and trimmed, then analyzed for
spectral, cepstral, temporal, pitch/formant and synthesis-artifact features.
A configurable heuristic fuses the features into a label and a confidence
relative to that label.

Configuration is read from built-in defaults, then the --config file, then
VERAZ_* environment variables (e.g. VERAZ_FUSION_THRESHOLD=0.6).`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initializeConfig(cmd)
	},
}

// Execute runs the root command and exits with a status that reflects the
// kind of failure: 2 decode, 3 empty signal, 4 feature extraction, 1 other
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(ExitCode(err))
	}
}

// ExitCode maps an error to the process exit status
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	kind, ok := common.KindOf(err)
	switch {
	case ok && kind == common.KindDecode:
		return 2
	case ok && kind == common.KindEmptySignal:
		return 3
	case ok && kind == common.KindFeatureExtraction:
		return 4
	case errors.Is(err, errUsage):
		return 64
	default:
		return 1
	}
}

// errUsage marks invalid command-line input
var errUsage = errors.New("usage")

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"config file (YAML) merged over the built-in defaults")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"verbose output (same as --log-level debug)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"log level (debug, info, warn, error)")

	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
}

// initializeConfig loads the analysis configuration and sets up logging
// after flags are parsed
func initializeConfig(cmd *cobra.Command) error {
	if err := bindFlags(cmd, viper.GetViper()); err != nil {
		return err
	}

	v, err := config.NewViper()
	if err != nil {
		return err
	}

	if path := viper.GetString("config"); path != "" {
		if err := config.MergeFile(v, path); err != nil {
			return err
		}
	}

	// an explicit --log-level wins over the file and environment
	if flag := cmd.Flags().Lookup("log-level"); flag != nil && flag.Changed {
		v.Set("log_level", flag.Value.String())
	}

	cfg, err := config.FromViper(v)
	if err != nil {
		return err
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if viper.GetBool("verbose") {
		level = logging.DebugLevel
	}

	// keep stdout clean for results
	logger := logging.NewDefaultLoggerWithWriters(os.Stderr, os.Stderr)
	logger.SetLevel(level)
	logging.SetGlobalLogger(logger)

	logging.Debug("Configuration loaded", logging.Fields{
		"config_file": viper.GetString("config"),
		"log_level":   level.String(),
	})

	appConfig = cfg
	return nil
}

// bindFlags lets VERAZ_<FLAG> environment variables supply flags the user
// did not set, e.g. VERAZ_LANGUAGE=english
func bindFlags(cmd *cobra.Command, v *viper.Viper) error {
	var lastErr error

	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		envVarSuffix := strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))
		if err := v.BindEnv(f.Name, config.EnvPrefix+"_"+envVarSuffix); err != nil {
			lastErr = err
			return
		}

		if !f.Changed && v.IsSet(f.Name) {
			if err := cmd.Flags().Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name))); err != nil {
				lastErr = err
			}
		}
	})

	return lastErr
}
