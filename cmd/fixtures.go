package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"media-reconciler/core/storage"
	"media-reconciler/feature/media"

	"github.com/minio/minio-go/v7"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	fixtureFile    string
	fixtureName    string
	fixtureLang    string
	fixtureLimit   int
	fixtureExclude []string
	yesConfirm     bool
)

// fixturesCmd is the parent command for recorded API archives.
var fixturesCmd = &cobra.Command{
	Use:   "fixtures",
	Short: "Record, list, replay and delete API archives",
	Long: `API archives hold the raw responses of every round trip of one search,
keyed by request. Replaying an archive reruns the search offline, which makes
archives usable as regression fixtures.

Archives are kept in the configured object store, or in a local file with --file.

Examples:
  # Record a search into the object store as Q84.json
  fixtures record Q84 --limit 2 --exclude Big_Ben.jpg

  # Record into a local file
  fixtures record Q84 --file feature/media/testdata/q84_hits.json

  # Rerun a stored search offline
  fixtures replay Q84.json --limit 2 --exclude Big_Ben.jpg

  # Delete an archive without prompting
  fixtures delete Q84.json --yes`,
}

var fixturesRecordCmd = &cobra.Command{
	Use:   "record [entity]",
	Short: "Run a search and record its API round trips",
	Args:  cobra.ExactArgs(1),
	RunE:  runFixturesRecord,
}

var fixturesReplayCmd = &cobra.Command{
	Use:   "replay [name]",
	Short: "Rerun a search against a recorded archive",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runFixturesReplay,
}

var fixturesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archives in the object store",
	Args:  cobra.NoArgs,
	RunE:  runFixturesList,
}

var fixturesDeleteCmd = &cobra.Command{
	Use:   "delete [name]",
	Short: "Delete an archive from the object store",
	Args:  cobra.ExactArgs(1),
	RunE:  runFixturesDelete,
}

func init() {
	for _, c := range []*cobra.Command{fixturesRecordCmd, fixturesReplayCmd} {
		c.Flags().StringVar(&fixtureFile, "file", "", "Use a local archive file instead of the object store")
		c.Flags().StringVar(&fixtureLang, "lang", "", "Label language (defaults to MEDIA_LANGUAGE)")
		c.Flags().IntVar(&fixtureLimit, "limit", 0, "Number of images (defaults to MEDIA_DEFAULT_LIMIT)")
		c.Flags().StringArrayVar(&fixtureExclude, "exclude", nil, "File title to skip (repeatable)")
	}
	fixturesRecordCmd.Flags().StringVar(&fixtureName, "name", "", "Archive name (defaults to <entity>.json)")
	fixturesDeleteCmd.Flags().BoolVar(&yesConfirm, "yes", false, "Auto-confirm deletion (non-interactive)")

	fixturesCmd.AddCommand(fixturesRecordCmd, fixturesReplayCmd, fixturesListCmd, fixturesDeleteCmd)
	RootCmd.AddCommand(fixturesCmd)
}

func fixtureParams(entity string) media.SearchParams {
	return media.SearchParams{
		EntityID: entity,
		Language: fixtureLang,
		Limit:    fixtureLimit,
		Exclude:  fixtureExclude,
	}
}

func runFixturesRecord(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	d, err := loadDeps()
	if err != nil {
		return err
	}
	defer d.log.Sync()

	entity := args[0]
	if err := media.ValidateEntityID(entity); err != nil {
		return err
	}

	archive := media.NewArchive()
	next := media.NewHTTPClient(time.Duration(d.cfg.Media.TimeoutSeconds) * time.Second)
	svc := d.service(&media.RecordingDoer{Next: next, Archive: archive})

	result, err := svc.SearchImages(ctx, fixtureParams(entity))
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	printSearchReport(d.log, result)

	if fixtureFile != "" {
		data, err := json.MarshalIndent(archive, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(fixtureFile, append(data, '\n'), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", fixtureFile, err)
		}
		d.log.Info("Archive written", zap.String("file", fixtureFile), zap.Int("round_trips", len(archive.Hits())))
		return nil
	}

	client, err := d.store()
	if err != nil {
		return err
	}
	name := fixtureName
	if name == "" {
		name = entity + ".json"
	}
	object := d.cfg.Storage.ObjectName(name)
	if err := archive.Save(ctx, client, d.cfg.Storage.Bucket, object); err != nil {
		return err
	}
	d.log.Info("Archive uploaded",
		zap.String("bucket", d.cfg.Storage.Bucket),
		zap.String("object", object),
		zap.Int("round_trips", len(archive.Hits())),
	)
	return nil
}

func runFixturesReplay(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	d, err := loadDeps()
	if err != nil {
		return err
	}
	defer d.log.Sync()

	var archive *media.Archive
	switch {
	case fixtureFile != "":
		data, err := os.ReadFile(fixtureFile)
		if err != nil {
			return err
		}
		archive = media.NewArchive()
		if err := json.Unmarshal(data, archive); err != nil {
			return fmt.Errorf("failed to decode %s: %w", fixtureFile, err)
		}
	case len(args) == 1:
		client, err := d.store()
		if err != nil {
			return err
		}
		archive, err = media.LoadArchive(ctx, client, d.cfg.Storage.Bucket, d.cfg.Storage.ObjectName(args[0]))
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("an archive name or --file is required")
	}

	entity, err := archiveEntity(archive)
	if err != nil {
		return err
	}

	svc := d.service(&media.ReplayDoer{Archive: archive})
	result, err := svc.SearchImages(ctx, fixtureParams(entity))
	if err != nil {
		return fmt.Errorf("replay failed: %w", err)
	}
	printSearchReport(d.log, result)
	return nil
}

// archiveEntity reads the entity id back from the first recorded search.
func archiveEntity(archive *media.Archive) (string, error) {
	const marker = "custommatch:linked_from="
	for _, hit := range archive.Hits() {
		i := strings.Index(hit.Request, marker)
		if i < 0 {
			continue
		}
		rest := hit.Request[i+len(marker):]
		if end := strings.IndexAny(rest, " &"); end >= 0 {
			rest = rest[:end]
		}
		if media.ValidateEntityID(rest) == nil {
			return rest, nil
		}
	}
	return "", fmt.Errorf("archive holds no search request")
}

func runFixturesList(cmd *cobra.Command, args []string) error {
	d, err := loadDeps()
	if err != nil {
		return err
	}
	defer d.log.Sync()

	client, err := d.store()
	if err != nil {
		return err
	}
	names, err := storage.ObjectNames(context.Background(), client, d.cfg.Storage.Bucket, d.cfg.Storage.Prefix)
	if err != nil {
		return err
	}
	d.log.Info("Archives", zap.String("bucket", d.cfg.Storage.Bucket), zap.Int("count", len(names)))
	for _, name := range names {
		d.log.Info("Archive", zap.String("name", strings.TrimPrefix(name, d.cfg.Storage.Prefix)))
	}
	return nil
}

func runFixturesDelete(cmd *cobra.Command, args []string) error {
	d, err := loadDeps()
	if err != nil {
		return err
	}
	defer d.log.Sync()

	client, err := d.store()
	if err != nil {
		return err
	}
	object := d.cfg.Storage.ObjectName(args[0])
	if !confirmDestructiveAction(fmt.Sprintf("delete %s/%s", d.cfg.Storage.Bucket, object)) {
		d.log.Warn("Operation cancelled by user. No changes were made.")
		return nil
	}
	if err := client.RemoveObject(context.Background(), d.cfg.Storage.Bucket, object, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete %s: %w", object, err)
	}
	d.log.Info("Archive deleted", zap.String("object", object))
	return nil
}

// confirmDestructiveAction prompts the user for confirmation or uses --yes flag.
func confirmDestructiveAction(action string) bool {
	if yesConfirm {
		fmt.Println("Auto-confirmed via --yes flag")
		return true
	}

	fmt.Printf("Type 'yes' to %s: ", action)
	reader := bufio.NewReader(os.Stdin)
	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	return strings.TrimSpace(response) == "yes"
}
