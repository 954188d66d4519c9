// Package cmdline implements castforge's command-line surface: run,
// resume, and report, wired on spf13/cobra the way
// papapumpkin-quasar/cmd/root.go wires its own persistent --config flag
// and cobra.OnInitialize hook.
package cmdline

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/castforge/castforge/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "castforge",
	Short: "Drives the content-production pipeline from fetch to publish",
	Long: "castforge orchestrates a content-production workflow — scrape, categorize, " +
		"generate media, render, and publish — as a graph of retryable, " +
		"circuit-breaker-guarded phases.",
}

var (
	cfgFile string
	verbose bool
	v       = config.New()
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./castforge.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
}

// Execute runs the root command and returns the process exit code to use:
// 0 success, 1 generic failure, 2 Critical phase failure, 3 configuration
// error.
func Execute() int {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	return ExitCode(err)
}

// loadConfig resolves cfgFile/verbose flag overrides and loads Config.
func loadConfig() (config.Config, *logrus.Logger, error) {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	}
	cfg, err := config.Load(v)
	if err != nil {
		return config.Config{}, nil, exitWith(3, err)
	}
	if verbose {
		cfg.Verbose = true
	}

	logger := logrus.New()
	if cfg.Verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	return cfg, logger, nil
}
