package bulkload

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/graphcat/graphcat/internal/graph"
	"github.com/graphcat/graphcat/internal/reconcile"
	"github.com/graphcat/graphcat/internal/serialize"
)

// Options tune one bulk-load run.
type Options struct {
	// ObjectPrefix overrides the staging path; defaults to the run
	// timestamp, plus the shard when one is active.
	ObjectPrefix string
	// PollInterval is the status poll period; defaults to 10s.
	PollInterval time.Duration
	// Timeout bounds the whole polling phase; defaults to 30m. Jobs still
	// unfinished then fail the run.
	Timeout time.Duration
	// Strict makes any failed job an error instead of a logged warning.
	Strict bool
	// Progress, when set, receives a short phase message as the run moves
	// through upload, submission and each poll round.
	Progress func(message string)
}

// Runner uploads a run's entities and drives its load jobs to completion.
type Runner struct {
	uploader Uploader
	api      LoaderAPI
	log      *zap.Logger
}

// NewRunner wires an uploader and a loader API together.
func NewRunner(uploader Uploader, api LoaderAPI, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{uploader: uploader, api: api, log: log}
}

// Run partitions the entity set by kind and property compatibility, renders
// one object per partition, uploads and submits them, then polls every job
// until terminal. It returns the final status of every job keyed by load id.
func (r *Runner) Run(ctx context.Context, schema *graph.Schema, entities reconcile.Entities, opts Options) (map[string]LoadStatus, error) {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 10 * time.Second
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Minute
	}
	prefix := opts.ObjectPrefix
	if prefix == "" {
		prefix = ObjectPrefix(time.Now().UTC(), schema.Shard())
	}
	if strings.ContainsRune(prefix, ':') {
		return nil, fmt.Errorf("object prefix %q would break the staging path", prefix)
	}

	progress := opts.Progress
	if progress == nil {
		progress = func(string) {}
	}

	objects, err := RenderObjects(schema, entities, prefix)
	if err != nil {
		return nil, err
	}

	pending := make([]string, 0, len(objects))
	for i, obj := range objects {
		progress(fmt.Sprintf("uploading batch %d of %d", i+1, len(objects)))
		if err := r.uploader.Upload(ctx, obj.Key, obj.Body); err != nil {
			return nil, err
		}
		loadID, err := r.api.Load(ctx, obj.Key)
		if err != nil {
			return nil, err
		}
		r.log.Info("submitted load job",
			zap.String("object", obj.Key),
			zap.String("loadId", loadID),
			zap.Int("bytes", len(obj.Body)))
		pending = append(pending, loadID)
	}

	statuses, err := r.poll(ctx, pending, opts.PollInterval, opts.Timeout, progress)
	if err != nil {
		return statuses, err
	}

	var failed []string
	for loadID, status := range statuses {
		if status.OverallStatus.Status != StatusCompleted {
			failed = append(failed, loadID)
			r.log.Warn("load job failed",
				zap.String("loadId", loadID),
				zap.String("status", status.OverallStatus.Status),
				zap.Int64("parsingErrors", status.OverallStatus.ParsingErrors),
				zap.Int64("insertErrors", status.OverallStatus.InsertErrors))
		}
	}
	if len(failed) > 0 && opts.Strict {
		return statuses, fmt.Errorf("%d of %d load jobs failed: %s", len(failed), len(statuses), strings.Join(failed, ", "))
	}
	return statuses, nil
}

func (r *Runner) poll(ctx context.Context, pending []string, interval, timeout time.Duration, progress func(string)) (map[string]LoadStatus, error) {
	statuses := make(map[string]LoadStatus, len(pending))
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for len(pending) > 0 {
		progress(fmt.Sprintf("waiting on %d load jobs", len(pending)))
		var still []string
		for _, loadID := range pending {
			status, err := r.api.LoadStatus(ctx, loadID)
			if err != nil {
				return statuses, err
			}
			statuses[loadID] = status
			if !status.Terminal() {
				still = append(still, loadID)
			}
		}
		pending = still
		if len(pending) == 0 {
			break
		}
		if time.Now().After(deadline) {
			return statuses, fmt.Errorf("load jobs still running after %s: %s", timeout, strings.Join(pending, ", "))
		}
		select {
		case <-ctx.Done():
			return statuses, ctx.Err()
		case <-ticker.C:
		}
	}
	return statuses, nil
}

// Object is one rendered csv staging file.
type Object struct {
	Key  string
	Body []byte
}

// RenderObjects partitions the populated types of each kind and renders one
// csv object per non-empty partition. Vertex and edge files are always
// separate.
func RenderObjects(schema *graph.Schema, entities reconcile.Entities, prefix string) ([]Object, error) {
	byKind := map[graph.Kind][]*graph.EntityType{}
	populated := make(map[string][]graph.Entity, len(entities))
	for label, byID := range entities {
		typ, ok := schema.ByLabel(label)
		if !ok {
			return nil, fmt.Errorf("entities carry unknown label %s", label)
		}
		if len(byID) == 0 {
			continue
		}
		byKind[typ.Kind] = append(byKind[typ.Kind], typ)
		rows := make([]graph.Entity, 0, len(byID))
		for _, entity := range byID {
			rows = append(rows, entity)
		}
		populated[label] = rows
	}

	var objects []Object
	for _, kind := range []struct {
		kind graph.Kind
		stem string
	}{{graph.KindVertex, "vertex"}, {graph.KindEdge, "edge"}} {
		stem := kind.stem
		types := byKind[kind.kind]
		if len(types) == 0 {
			continue
		}
		sort.Slice(types, func(i, j int) bool { return types[i].Label < types[j].Label })
		groups, err := serialize.Partition(types)
		if err != nil {
			return nil, err
		}
		n := 0
		for _, group := range groups {
			var buf bytes.Buffer
			if err := serialize.Render(&buf, group, populated); err != nil {
				return nil, err
			}
			if buf.Len() == 0 {
				continue
			}
			objects = append(objects, Object{
				Key:  fmt.Sprintf("%s/%s%d.csv", prefix, stem, n),
				Body: buf.Bytes(),
			})
			n++
		}
	}
	return objects, nil
}

// ObjectPrefix derives the staging path for one run: the timestamp with the
// characters S3 dislikes replaced, plus the shard when one is active.
func ObjectPrefix(now time.Time, shard string) string {
	ts := fmt.Sprintf("%s-%03d", now.Format("2006-01-02T15-04-05"), now.Nanosecond()/1e6)
	if shard == "" {
		return ts
	}
	return ts + "/" + shard
}
