package gremlin

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/graphcat/graphcat/internal/reconcile"
)

// Submitter evaluates one script against the server. *Client implements it.
type Submitter interface {
	Submit(ctx context.Context, script string) ([]any, error)
}

// Fetcher reads the persisted graph through traversal scripts. It implements
// the snapshot-fetch contract the reconciliation engine consumes.
type Fetcher struct {
	sub Submitter
	tr  *Translator
	log *zap.Logger
}

// NewFetcher wraps a script submitter and a dialect translator.
func NewFetcher(sub Submitter, tr *Translator, log *zap.Logger) *Fetcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Fetcher{sub: sub, tr: tr, log: log}
}

func (f *Fetcher) submit(ctx context.Context, t *Traversal) ([]any, error) {
	script, err := f.tr.Translate(t)
	if err != nil {
		return nil, err
	}
	return f.sub.Submit(ctx, script)
}

// Vertices returns the stored vertices among ids.
func (f *Fetcher) Vertices(ctx context.Context, ids []string) ([]reconcile.VertexRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := f.submit(ctx, G("g").V(ids...).ElementMap())
	if err != nil {
		return nil, err
	}
	records := make([]reconcile.VertexRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := vertexRecord(row)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// OutEdges returns the stored out-edges of ids restricted to labels.
func (f *Fetcher) OutEdges(ctx context.Context, ids []string, labels []string) ([]reconcile.EdgeRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return f.edgeRows(ctx, G("g").V(ids...).OutE(labels...).ElementMap())
}

// ConnectedVertexKeys returns the key of every stored vertex of the label
// that has at least one incident edge.
func (f *Fetcher) ConnectedVertexKeys(ctx context.Context, label string) ([]string, error) {
	rows, err := f.submit(ctx, G("g").V().HasLabel(label).Where(Anon().BothE()).Values("key"))
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(rows))
	for _, row := range rows {
		key, ok := row.(string)
		if !ok {
			return nil, fmt.Errorf("expected string key, not %T %v", row, row)
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// IncidentEdges returns every stored edge touching ids on either end.
func (f *Fetcher) IncidentEdges(ctx context.Context, ids []string) ([]reconcile.EdgeRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return f.edgeRows(ctx, G("g").V(ids...).BothE().ElementMap())
}

func (f *Fetcher) edgeRows(ctx context.Context, t *Traversal) ([]reconcile.EdgeRecord, error) {
	rows, err := f.submit(ctx, t)
	if err != nil {
		return nil, err
	}
	records := make([]reconcile.EdgeRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := edgeRecord(row)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func vertexRecord(row any) (reconcile.VertexRecord, error) {
	m, ok := row.(map[string]any)
	if !ok {
		return reconcile.VertexRecord{}, fmt.Errorf("expected element map, not %T %v", row, row)
	}
	id, label, err := elementIdentity(m)
	if err != nil {
		return reconcile.VertexRecord{}, err
	}
	return reconcile.VertexRecord{ID: id, Label: label, Properties: elementProperties(m)}, nil
}

func edgeRecord(row any) (reconcile.EdgeRecord, error) {
	m, ok := row.(map[string]any)
	if !ok {
		return reconcile.EdgeRecord{}, fmt.Errorf("expected element map, not %T %v", row, row)
	}
	id, label, err := elementIdentity(m)
	if err != nil {
		return reconcile.EdgeRecord{}, err
	}
	from, err := endpointID(m, "OUT")
	if err != nil {
		return reconcile.EdgeRecord{}, err
	}
	to, err := endpointID(m, "IN")
	if err != nil {
		return reconcile.EdgeRecord{}, err
	}
	return reconcile.EdgeRecord{ID: id, Label: label, From: from, To: to, Properties: elementProperties(m)}, nil
}

func elementIdentity(m map[string]any) (string, string, error) {
	id, ok := m["id"].(string)
	if !ok {
		return "", "", fmt.Errorf("element map has no string id: %v", m)
	}
	label, ok := m["label"].(string)
	if !ok {
		return "", "", fmt.Errorf("element map has no string label: %v", m)
	}
	return id, label, nil
}

func endpointID(m map[string]any, direction string) (string, error) {
	endpoint, ok := m[direction].(map[string]any)
	if !ok {
		return "", fmt.Errorf("edge map has no %s endpoint: %v", direction, m)
	}
	id, ok := endpoint["id"].(string)
	if !ok {
		return "", fmt.Errorf("edge %s endpoint has no string id: %v", direction, m)
	}
	return id, nil
}

// elementProperties collects everything but the structural keys, wrapping
// scalars so multi-valued results and single values read the same.
func elementProperties(m map[string]any) map[string][]any {
	props := make(map[string][]any, len(m))
	for name, value := range m {
		switch name {
		case "id", "label", "IN", "OUT":
			continue
		}
		if list, ok := value.([]any); ok {
			props[name] = list
			continue
		}
		props[name] = []any{value}
	}
	return props
}
