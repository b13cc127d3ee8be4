package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"media-reconciler/feature/media"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	searchLang    string
	searchLimit   int
	searchExclude []string
	searchPage    string
	searchJSON    bool
)

// searchCmd runs a single media search from the command line.
var searchCmd = &cobra.Command{
	Use:   "search [entity-or-page]",
	Short: "Search images of an entity that are used on other wikis",
	Long: `Search files depicting an entity and keep those already used on other wikis.

The argument is an entity id (Q84) or a page title of the illustrated wiki,
which is resolved to its entity first.

Examples:
  # Five images of London
  search Q84 --limit 5

  # Resolve the page, skip the files it already shows
  search London --page London

  # Skip known files and print JSON
  search Q84 --exclude "Big_Ben.jpg" --exclude "Tower Bridge.jpg" --json`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVar(&searchLang, "lang", "", "Label language (defaults to MEDIA_LANGUAGE)")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 0, "Number of images (defaults to MEDIA_DEFAULT_LIMIT)")
	searchCmd.Flags().StringArrayVar(&searchExclude, "exclude", nil, "File title to skip (repeatable)")
	searchCmd.Flags().StringVar(&searchPage, "page", "", "Skip the files recorded for this page")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "Print the result as JSON")

	RootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	d, err := loadDeps()
	if err != nil {
		return err
	}
	defer d.log.Sync()

	svc := d.service(nil)
	entity, err := resolveArg(ctx, svc, args[0], d.log)
	if err != nil {
		return err
	}

	result, err := svc.SearchImages(ctx, media.SearchParams{
		EntityID: entity,
		Language: searchLang,
		Limit:    searchLimit,
		Exclude:  searchExclude,
		Page:     searchPage,
	})
	if err != nil {
		if result == nil {
			return fmt.Errorf("search failed: %w", err)
		}
		d.log.Warn("Search interrupted, showing partial result", zap.Error(err))
	}

	if searchJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(result); encErr != nil {
			return encErr
		}
	} else {
		printSearchReport(d.log, result)
	}
	if err != nil {
		return fmt.Errorf("search incomplete: %w", err)
	}
	return nil
}

// resolveArg turns a page title into its entity id; ids pass through.
func resolveArg(ctx context.Context, svc *media.Service, arg string, l *zap.Logger) (string, error) {
	if media.ValidateEntityID(arg) == nil {
		return arg, nil
	}
	id, err := svc.ResolveEntity(ctx, arg)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %q: %w", arg, err)
	}
	l.Info("Resolved page", zap.String("title", arg), zap.String("entity_id", id))
	return id, nil
}

// printSearchReport prints the images and run summary using the logger.
func printSearchReport(l *zap.Logger, result *media.ImageResult) {
	s := result.Summary
	l.Info("Search report",
		zap.String("entity_id", result.EntityID),
		zap.Int("images", len(result.Images)),
		zap.Int("rounds", s.Rounds),
		zap.Int("offset", s.Offset),
		zap.Int("excluded", s.Excluded),
		zap.Int("disqualified", s.Disqualified),
		zap.Int("deferred", s.Deferred),
		zap.String("stop", string(s.Stop)),
	)
	for i, img := range result.Images {
		l.Info("Image",
			zap.Int("rank", i+1),
			zap.String("title", img.Title),
			zap.String("label", img.Label),
			zap.String("used_on", strings.Join(img.ExternalSources, ", ")),
			zap.String("src", img.Src),
		)
	}
}
