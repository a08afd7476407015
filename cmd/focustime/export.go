package main

import (
	"context"
	"fmt"
	"os"

	"github.com/goodtune/focustime/internal/codec"
	"github.com/goodtune/focustime/internal/config"
	"github.com/spf13/cobra"
)

var exportOffline bool

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Print the timeline as JSON",
	Long:  `Write the full timeline to stdout in the persisted JSON format.`,
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().BoolVar(&exportOffline, "offline", false, "Read storage directly instead of the running tracker")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := newLogger(cfg.Logging, os.Stderr)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	tl, store, err := loadTimeline(ctx, cfg, exportOffline, logger)
	if err != nil {
		return err
	}
	if store != nil {
		defer func() { _ = store.Close() }()
	}

	payload, err := codec.Encode(tl)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(os.Stdout, string(payload))
	return err
}
