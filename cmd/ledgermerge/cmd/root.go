package cmd

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"ledgermerge/cmd/ledgermerge/config"
	"ledgermerge/internal/metrics"
	"ledgermerge/internal/reconciler"
	"ledgermerge/internal/reporter"
	"ledgermerge/pkg/errors"
	"ledgermerge/pkg/logger"
)

var (
	cfgFile   string
	envFile   string
	verbose   bool
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ledgermerge",
	Short: "Ledger reconciliation and synthesis tool",
	Long: `Ledgermerge keeps a personal account ledger up to date from the bank's
spreadsheet exports. Each merge folds a new export snapshot into the current
ledger without duplicating transactions already recorded, and keeps the
categories assigned by hand. Reports derive balance, gain, loss and
per-category series over the whole ledger and per accounting term.

Examples:
  ledgermerge merge --import export.xlsx --current ledger.csv
  ledgermerge merge --import export.csv --current ledger.csv --dry-run --format json
  ledgermerge report --current ledger.csv --terms
  ledgermerge report --current ledger.csv --from 2023-01-01 --to 2023-03-31 --smooth 7 --format csv
  ledgermerge version`,
	Version:       getVersionString(),
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (optional)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded when present")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().String("metrics-file", "", "write merge metrics to this .prom file")

	// Bind flags to viper
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("metrics_file", rootCmd.PersistentFlags().Lookup("metrics-file"))
}

// initConfig reads in the dotenv file, config file and ENV variables.
func initConfig() {
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				fmt.Fprintf(os.Stderr, "Error reading env file: %s\n", err)
				os.Exit(1)
			}
		}
	}

	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)

		// If a config file is specified, read it in.
		if err := viper.ReadInConfig(); err != nil {
			fmt.Fprintf(os.Stderr, "Error reading config file: %s\n", err)
			os.Exit(1)
		}

		if viper.GetBool("verbose") {
			fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
		}
	}

	// Defaults and environment variables that match
	config.Configure(viper.GetViper())
}

// session bundles what every command needs once settings are loaded
type session struct {
	settings *config.Settings
	runID    string
	logger   logger.Logger
	recorder *metrics.PrometheusRecorder
}

// newSession loads settings from viper, sets up the global logger with a
// run_id field and creates the metrics recorder.
func newSession(v *viper.Viper) (*session, error) {
	settings, err := config.Load(v)
	if err != nil {
		return nil, err
	}

	log, err := logger.NewLogger(settings.LoggerConfig(v.GetBool("verbose")))
	if err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "log", settings.Log, err)
	}

	runID := uuid.New().String()
	log = log.WithField("run_id", runID)
	logger.SetGlobalLogger(log)

	return &session{
		settings: settings,
		runID:    runID,
		logger:   log,
		recorder: metrics.NewPrometheusRecorder(),
	}, nil
}

func (s *session) service() (*reconciler.Service, error) {
	serviceConfig, err := s.settings.ReconcilerConfig()
	if err != nil {
		return nil, err
	}
	return reconciler.NewService(serviceConfig,
		reconciler.WithLogger(s.logger),
		reconciler.WithRecorder(s.recorder),
	)
}

// reportGenerator builds the report generator. format overrides the
// configured output format when not empty.
func (s *session) reportGenerator(format string) (*reporter.SafeReportGenerator, error) {
	reportConfig, err := s.settings.ReportConfig()
	if err != nil {
		return nil, err
	}
	if format != "" {
		f, err := reporter.ParseFormat(format)
		if err != nil {
			return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "format", format, err)
		}
		reportConfig.Format = f
	}
	return reporter.NewSafeReportGenerator(reportConfig, s.logger)
}

// writeMetrics writes the recorder to the configured metrics file, if any
func (s *session) writeMetrics() error {
	if s.settings.MetricsFile == "" {
		return nil
	}
	if err := s.recorder.WriteToTextfile(s.settings.MetricsFile); err != nil {
		return err
	}
	s.logger.WithField("metrics_file", s.settings.MetricsFile).Debug("Metrics written")
	return nil
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	buildDate = d
	rootCmd.Version = getVersionString()
}

func getVersionString() string {
	if version == "dev" {
		return fmt.Sprintf("%s (commit %s, built %s)", version, commit, buildDate)
	}
	return version
}
