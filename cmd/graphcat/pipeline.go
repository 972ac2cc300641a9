package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/graphcat/graphcat/internal/cli/config"
	"github.com/graphcat/graphcat/internal/extract"
	"github.com/graphcat/graphcat/internal/graph"
	"github.com/graphcat/graphcat/internal/gremlin"
	"github.com/graphcat/graphcat/internal/reconcile"
)

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func translatorFor(dialect string) (*gremlin.Translator, error) {
	switch dialect {
	case "neptune":
		return gremlin.NeptuneTranslator(), nil
	case "janusgraph":
		return gremlin.JanusgraphTranslator(), nil
	default:
		return nil, fmt.Errorf("unknown graph dialect: %s", dialect)
	}
}

func newSchema(cfg *config.Config) (*graph.Schema, error) {
	shard := cfg.Graph.Shard
	if shard == "" {
		shard = graph.DefaultShard()
	}
	return graph.NewSchema(graph.NewShardGuard(shard))
}

// buildEntities runs extraction and reconciliation: table records from the
// source database become graph entities, merged against the current graph
// state when a fetcher is available.
func buildEntities(ctx context.Context, cfg *config.Config, schema *graph.Schema, fetcher reconcile.Fetcher, logger *zap.Logger) (reconcile.Entities, error) {
	if cfg.Source.DSN == "" {
		return nil, fmt.Errorf("source.dsn is required")
	}

	pg, err := extract.OpenPostgres(cfg.Source.DSN, cfg.Source.Database, cfg.Source.Cluster, logger)
	if err != nil {
		return nil, err
	}
	defer pg.Close()

	tables, err := pg.Tables(ctx)
	if err != nil {
		return nil, err
	}

	builder := reconcile.NewBuilder(schema, fetcher, logger, time.Now().UTC())
	if err := builder.AddTableEntities(ctx, tables); err != nil {
		return nil, err
	}
	return builder.Complete()
}
