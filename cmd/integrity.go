package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"media-reconciler/feature/integrity"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var fixFlag bool

// integrityCmd represents the integrity command
var integrityCmd = &cobra.Command{
	Use:   "integrity",
	Short: "Check the archive store, known-media database and search API",
	Long:  `Runs every health check. Components that are not configured are skipped.`,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) > 0 {
			cmd.Help()
			return
		}
		runIntegrityChecks(cmd.Context(), true, true, true)
	},
}

// integrityStorageCmd represents the integrity storage command
var integrityStorageCmd = &cobra.Command{
	Use:   "storage",
	Short: "Check and fix the fixture archive bucket",
	Run: func(cmd *cobra.Command, args []string) {
		runIntegrityChecks(cmd.Context(), true, false, false)
	},
}

// integrityDatabaseCmd represents the integrity database command
var integrityDatabaseCmd = &cobra.Command{
	Use:   "database",
	Short: "Check the known-media table schema",
	Run: func(cmd *cobra.Command, args []string) {
		runIntegrityChecks(cmd.Context(), false, true, false)
	},
}

// integrityUpstreamCmd represents the integrity upstream command
var integrityUpstreamCmd = &cobra.Command{
	Use:   "upstream",
	Short: "Ping the search API",
	Run: func(cmd *cobra.Command, args []string) {
		runIntegrityChecks(cmd.Context(), false, false, true)
	},
}

func init() {
	RootCmd.AddCommand(integrityCmd)
	integrityCmd.AddCommand(integrityStorageCmd, integrityDatabaseCmd, integrityUpstreamCmd)

	integrityStorageCmd.Flags().BoolVar(&fixFlag, "fix", false, "Create the bucket if missing")
}

func runIntegrityChecks(ctx context.Context, runStorage, runDatabase, runUpstream bool) {
	d, err := loadDeps()
	if err != nil {
		fmt.Printf("Failed to start: %v\n", err)
		os.Exit(1)
	}
	logg := d.log
	defer logg.Sync()

	svc := d.integrity()
	failed := false

	if runStorage {
		logg.Info("Checking fixture archive bucket...", zap.String("bucket", d.cfg.Storage.Bucket))
		report, err := svc.CheckStorage(ctx)
		switch {
		case errors.Is(err, integrity.ErrDisabled):
			logg.Info("Storage disabled, skipping.")
		case err != nil:
			logg.Error("Storage check failed", zap.Error(err))
			failed = true
		case report.Exists:
			logg.Info("Bucket is present.", zap.Int("archives", report.Archives))
		case fixFlag:
			logg.Info("Creating missing bucket...")
			if err := svc.FixStorage(ctx); err != nil {
				logg.Error("Failed to create bucket", zap.Error(err))
				failed = true
			}
		default:
			logg.Warn("Bucket is missing. Run with --fix to create it.")
			failed = true
		}
	}

	if runDatabase {
		logg.Info("Checking known-media table...")
		report, err := svc.CheckDatabase()
		switch {
		case errors.Is(err, integrity.ErrDisabled):
			logg.Info("No database connection, skipping.")
		case err != nil:
			logg.Error("Database check failed", zap.Error(err))
			failed = true
		case report.Matches:
			logg.Info("Known-media table matches.", zap.String("driver", report.Driver))
		default:
			logg.Warn("Known-media table is missing columns", zap.String("table", report.Table), zap.Strings("missing", report.Missing))
			failed = true
		}
	}

	if runUpstream {
		logg.Info("Probing search API...")
		report, err := svc.CheckUpstream(ctx)
		if err != nil {
			logg.Error("Upstream check failed", zap.Error(err))
			failed = true
		} else if !report.Reachable {
			logg.Error("Search API unreachable", zap.String("endpoint", report.Endpoint), zap.String("error", report.Error))
			failed = true
		} else {
			logg.Info("Search API reachable", zap.String("endpoint", report.Endpoint), zap.Int64("latency_ms", report.LatencyMS))
		}
	}

	if failed {
		logg.Sync()
		os.Exit(1)
	}
}
