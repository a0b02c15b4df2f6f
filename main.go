package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/MarkkuSeppala/asuntoanalyysi-2-sub000/config"
	"github.com/MarkkuSeppala/asuntoanalyysi-2-sub000/utils"
)

var (
	cfg    *config.Config
	logger *utils.Logger

	noHeadless bool
	retries    int
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:           "asuntoanalyysi",
	Short:         "Finnish property listing extraction and analysis",
	Long:          "Turns Oikotie and Etuovi listing URLs into markdown documents, downloads their brochures and produces buyer analyses.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.Load()
		if noHeadless {
			cfg.Headless = false
		}
		if cmd.Flags().Changed("retries") {
			cfg.MaxRetries = retries
		}
		level := cfg.LogLevel
		if verbose {
			level = "debug"
		}
		// stdout carries command output; logs go to stderr.
		logger = utils.NewLoggerWithLevel(level, os.Stderr)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noHeadless, "no-headless", false, "show the browser window")
	rootCmd.PersistentFlags().IntVar(&retries, "retries", 3, "PDF acquisition attempts")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if logger != nil {
			logger.Error("%v", err)
			_ = logger.Sync()
		} else {
			os.Stderr.WriteString(err.Error() + "\n")
		}
		os.Exit(1)
	}
}
