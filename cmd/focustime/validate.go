package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/goodtune/focustime/internal/config"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long:  `Validate the focustime configuration file for syntax and semantic errors.`,
	RunE:  runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Configuration validation failed: %v\n", err)
		return err
	}

	if _, err := os.Stat(configPath); err != nil {
		yellow := color.New(color.FgYellow, color.Bold)
		yellow.Fprintf(os.Stdout, "⚠️  No configuration file at %s, using defaults\n", configPath)
	} else {
		_, _ = fmt.Fprintf(os.Stdout, "✅ Configuration is valid: %s\n", configPath)
	}

	cyan := color.New(color.FgCyan)
	cyan.Fprintf(os.Stdout, "   tracking: every %s, absent samples %s\n", cfg.Tracking.SampleInterval, cfg.Tracking.AbsentSample)
	cyan.Fprintf(os.Stdout, "   probe:    %s\n", cfg.Probe.Backend)
	switch cfg.Storage.Type {
	case "redis":
		cyan.Fprintf(os.Stdout, "   storage:  redis %s:%d (prefix %s)\n", cfg.Storage.Redis.Host, cfg.Storage.Redis.Port, cfg.Storage.Redis.KeyPrefix)
	default:
		cyan.Fprintf(os.Stdout, "   storage:  %s %s\n", cfg.Storage.Type, cfg.Storage.Path)
	}
	if cfg.Publish.RedisChannel != "" {
		cyan.Fprintf(os.Stdout, "   publish:  redis channel %s\n", cfg.Publish.RedisChannel)
	}

	return nil
}
