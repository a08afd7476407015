package main

import (
	"fmt"
	"os"

	"github.com/goodtune/focustime/internal/config"
	"github.com/spf13/cobra"
)

var (
	version    = "dev"
	configPath string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "focustime",
	Short: "focustime - records how long each application window has focus",
	Long: `focustime samples the focused desktop window once per interval and
accumulates per-application, per-title focus intervals bucketed by calendar
day. Totals can be broken down over the last day, week, month or year.`,
	Version: version,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Default to tracking when no subcommand is provided
		return runTrack(cmd, args)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultConfigPath(), "Path to configuration file")
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
