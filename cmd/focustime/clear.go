package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/goodtune/focustime/internal/config"
	"github.com/spf13/cobra"
)

var clearOffline bool

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all recorded focus time",
	Long: `Ask the running tracker to empty its timeline and storage. With
--offline the configured storage is cleared directly; only do this while the
tracker is stopped, or it will write its timeline back.`,
	RunE: runClear,
}

func init() {
	clearCmd.Flags().BoolVar(&clearOffline, "offline", false, "Clear storage directly instead of asking the running tracker")
	rootCmd.AddCommand(clearCmd)
}

func runClear(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if clearOffline {
		store, err := openStorage(cfg.Storage)
		if err != nil {
			return fmt.Errorf("failed to open storage: %w", err)
		}
		defer func() { _ = store.Close() }()

		if err := store.Timings().Clear(ctx); err != nil {
			return fmt.Errorf("failed to clear storage: %w", err)
		}
		fmt.Fprintln(os.Stdout, "✅ Storage cleared")
		return nil
	}

	if cfg.Server.APIPort == 0 {
		return fmt.Errorf("API is disabled; use --offline with the tracker stopped")
	}

	ctx, cancel := context.WithTimeout(ctx, daemonTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, daemonURL(cfg)+"/api/clear", nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("tracker not reachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("clear failed: %s", resp.Status)
	}
	fmt.Fprintln(os.Stdout, "✅ Timeline cleared")
	return nil
}
