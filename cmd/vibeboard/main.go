package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/vibeboard/vibeboard/internal/config"
	"github.com/vibeboard/vibeboard/internal/service"
)

var (
	// Version information (set by build flags)
	Version   = "dev"
	BuildTime = "unknown"

	cfgFile string
	verbose bool
	jsonLog bool
	logger  *logrus.Logger
	cfg     *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "vibeboard",
	Short: "Vibeboard - git intelligence for AI-assisted development",
	Long: `Vibeboard ingests local git repositories, classifies their history,
and correlates commits with recorded development sessions.`,
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger = logrus.New()
		if verbose {
			logger.SetLevel(logrus.DebugLevel)
		} else {
			logger.SetLevel(logrus.InfoLevel)
		}

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			logger.WithError(err).Warn("Failed to load config, using defaults")
			cfg = config.Default()
		}

		if jsonLog || cfg.Log.Format == "json" {
			logger.SetFormatter(&logrus.JSONFormatter{})
		}
		if !verbose {
			if level, err := logrus.ParseLevel(cfg.Log.Level); err == nil {
				logger.SetLevel(level)
			}
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: .vibeboard/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonLog, "json-log", false, "log in JSON format")

	rootCmd.SetVersionTemplate(`Vibeboard {{.Version}}
Build time: ` + BuildTime + `
`)

	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(branchesCmd)
	rootCmd.AddCommand(correlateCmd)
	rootCmd.AddCommand(hotspotsCmd)
	rootCmd.AddCommand(recentCmd)
	rootCmd.AddCommand(statsCmd)
}

// newService builds the service facade for a command run. The caller
// owns the returned service and must Close it.
func newService() (*service.Service, error) {
	svc, err := service.New(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to start: %w", err)
	}
	return svc, nil
}
