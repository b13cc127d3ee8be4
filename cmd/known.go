package cmd

import (
	"context"
	"fmt"

	"media-reconciler/feature/media"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// knownCmd manages the known-media table: files a page already shows.
var knownCmd = &cobra.Command{
	Use:   "known",
	Short: "Manage files already shown on pages",
	Long: `Files recorded for a page are excluded from every search that names
the page (--page on the command line, ?page= over HTTP).

Examples:
  known add London "Big_Ben.jpg" "File:Tower Bridge.jpg"
  known list London`,
}

var knownAddCmd = &cobra.Command{
	Use:   "add [page] [file...]",
	Short: "Record files as shown on a page",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRepository(func(repo *media.Repository, l *zap.Logger) error {
			if err := repo.Add(context.Background(), args[0], args[1:]...); err != nil {
				return fmt.Errorf("failed to record files: %w", err)
			}
			l.Info("Files recorded", zap.String("page", args[0]), zap.Int("count", len(args)-1))
			return nil
		})
	},
}

var knownListCmd = &cobra.Command{
	Use:   "list [page]",
	Short: "List files recorded for a page",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRepository(func(repo *media.Repository, l *zap.Logger) error {
			files, err := repo.KnownFor(context.Background(), args[0])
			if err != nil {
				return err
			}
			l.Info("Known files", zap.String("page", args[0]), zap.Strings("files", files))
			return nil
		})
	},
}

func init() {
	knownCmd.AddCommand(knownAddCmd, knownListCmd)
	RootCmd.AddCommand(knownCmd)
}

// withRepository runs fn against the known-media store, which this command
// cannot do without.
func withRepository(fn func(repo *media.Repository, l *zap.Logger) error) error {
	d, err := loadDeps()
	if err != nil {
		return err
	}
	defer d.log.Sync()

	repo := d.repository()
	if !repo.Available() {
		return media.ErrNoDatabase
	}
	return fn(repo, d.log)
}
