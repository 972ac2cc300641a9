package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/graphcat/graphcat/internal/bulkload"
	"github.com/graphcat/graphcat/internal/cli/config"
	"github.com/graphcat/graphcat/internal/cli/ui"
	"github.com/graphcat/graphcat/internal/gremlin"
	"github.com/graphcat/graphcat/internal/reconcile"
)

var (
	loadConfigPath string
	loadVerbose    bool
	loadNoFetch    bool
)

func init() {
	loadCmd.Flags().StringVar(&loadConfigPath, "config", "", "Path to graphcat.yml")
	loadCmd.Flags().BoolVarP(&loadVerbose, "verbose", "v", false, "Verbose logging")
	loadCmd.Flags().BoolVar(&loadNoFetch, "no-fetch", false, "Reconcile without fetching the current graph state")
}

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Extract metadata and bulk load it into the graph",
	Long: `Extract table metadata from the source database, reconcile it against the
current graph, stage the result as CSV batches in S3, and submit them to the
bulk loader.`,
	RunE: runLoad,
}

func runLoad(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load(loadConfigPath)
	if err != nil {
		return err
	}
	if cfg.BulkLoad.LoaderEndpoint == "" {
		return fmt.Errorf("bulk_load.loader_endpoint is required")
	}

	logger, err := newLogger(loadVerbose)
	if err != nil {
		return err
	}
	defer logger.Sync()

	schema, err := newSchema(cfg)
	if err != nil {
		return err
	}

	var fetcher reconcile.Fetcher
	if !loadNoFetch {
		if cfg.Graph.Endpoint == "" {
			return fmt.Errorf("graph.endpoint is required unless --no-fetch is set")
		}
		tr, err := translatorFor(cfg.Graph.Dialect)
		if err != nil {
			return err
		}
		client, err := gremlin.Dial(ctx, cfg.Graph.Endpoint, logger)
		if err != nil {
			return fmt.Errorf("failed to connect to graph: %w", err)
		}
		defer client.Close()
		fetcher = gremlin.NewFetcher(client, tr, logger)
	}

	entities, err := buildEntities(ctx, cfg, schema, fetcher, logger)
	if err != nil {
		return err
	}

	uploader, err := bulkload.NewS3Uploader(ctx, bulkload.S3Config{
		Bucket:          cfg.BulkLoad.Bucket,
		Region:          cfg.BulkLoad.Region,
		Endpoint:        cfg.BulkLoad.S3Endpoint,
		AccessKeyID:     cfg.BulkLoad.AccessKeyID,
		SecretAccessKey: cfg.BulkLoad.SecretAccessKey,
	})
	if err != nil {
		return err
	}
	api, err := bulkload.NewLoaderClient(bulkload.LoaderConfig{
		Endpoint:   cfg.BulkLoad.LoaderEndpoint,
		Bucket:     cfg.BulkLoad.Bucket,
		Region:     cfg.BulkLoad.Region,
		IAMRoleARN: cfg.BulkLoad.IAMRoleARN,
	}, nil)
	if err != nil {
		return err
	}

	runner := bulkload.NewRunner(uploader, api, logger)
	var statuses map[string]bulkload.LoadStatus
	runErr := ui.WithSpinner(os.Stdout, "bulk loading", color.NoColor, func(s *ui.Spinner) error {
		statuses, err = runner.Run(ctx, schema, entities, bulkload.Options{
			ObjectPrefix: cfg.BulkLoad.ObjectPrefix,
			PollInterval: cfg.BulkLoad.PollInterval,
			Timeout:      cfg.BulkLoad.Timeout,
			Strict:       cfg.BulkLoad.Strict,
			Progress:     s.UpdateMessage,
		})
		return err
	})

	if len(statuses) > 0 {
		printStatuses(statuses)
	}
	return runErr
}

func printStatuses(statuses map[string]bulkload.LoadStatus) {
	ids := make([]string, 0, len(statuses))
	for id := range statuses {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	rows := make([][]string, 0, len(ids))
	for _, id := range ids {
		overall := statuses[id].OverallStatus
		rows = append(rows, []string{
			id,
			overall.Status,
			strconv.FormatInt(overall.TotalRecords, 10),
			strconv.FormatInt(overall.ParsingErrors+overall.InsertErrors, 10),
		})
	}
	ui.RenderTable(os.Stdout, []string{"Load ID", "Status", "Records", "Errors"}, rows, color.NoColor)
}
