package reconcile

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"go.uber.org/zap"

	"github.com/graphcat/graphcat/internal/graph"
)

// Builder accumulates domain records of several kinds into one target entity
// set. Records are folded sequentially because later records may need to
// resolve identities created by earlier ones in the same run. Complete runs
// the expiration passes registered by each kind and returns the result.
type Builder struct {
	schema    *graph.Schema
	fetcher   Fetcher
	log       *zap.Logger
	createdAt time.Time

	entities Entities
	existing Existing
	expirers []func() error
	done     bool
}

// NewBuilder creates a builder for one run. fetcher may be nil when there is
// no reachable store (the snapshot stays empty and every entity is treated
// as new). createdAt stamps every edge created this run.
func NewBuilder(schema *graph.Schema, fetcher Fetcher, log *zap.Logger, createdAt time.Time) *Builder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Builder{
		schema:    schema,
		fetcher:   fetcher,
		log:       log,
		createdAt: createdAt,
		entities:  NewEntities(),
		existing:  NewExisting(),
	}
}

// Existing exposes the snapshot, for tests that seed it directly.
func (b *Builder) Existing() Existing { return b.existing }

// create is the single choke point through which every vertex and edge is
// realized. It matches raw against the snapshot by existing-key, overlaying
// the identity-defining values of a match so the synthesized id equals the
// previously persisted one; a fresh entity is registered back into the
// snapshot so later records this run resolve it without a store round-trip.
// The first entity stored for an id wins: a later conflicting creation is
// logged as an inconsistency, never overwritten.
func (b *Builder) create(t *graph.EntityType, raw graph.Entity) (graph.Entity, error) {
	key, err := KeyFor(t, raw)
	if err != nil {
		return nil, err
	}

	byKey := b.existing.ForType(t)
	var entity graph.Entity
	if prior, ok := byKey[key]; ok {
		merged := make(graph.Entity, len(raw))
		for k, v := range raw {
			merged[k] = v
		}
		// prefer the new properties except the identity-defining ones
		for _, p := range t.KeyProperties() {
			if v, ok := prior[p.Name]; ok {
				merged[p.Name] = v
			}
		}
		entity, err = t.Create(merged)
		if err != nil {
			return nil, err
		}
	} else {
		entity, err = t.Create(raw)
		if err != nil {
			return nil, err
		}
		byKey[key] = entity
	}

	id, ok := entity[graph.IDName].(string)
	if !ok {
		return nil, fmt.Errorf("%s type %s: entity has no id", t.Kind, t.Label)
	}
	byID := b.entities.ForType(t)
	if stored, ok := byID[id]; ok {
		// benign duplication happens for shared nodes (Database, Cluster,
		// Schema and their links); only flag content drift
		if !reflect.DeepEqual(stored, entity) {
			b.log.Info("duplicate entity with different content",
				zap.String("label", t.Label),
				zap.String("id", id))
		}
		return stored, nil
	}
	byID[id] = entity
	return entity, nil
}

// TableMetric estimates the number of graph entities one table record will
// contribute, for callers sizing batches upstream.
func TableMetric(table TableRecord) int {
	n := 2 // table vertex and its link
	if table.Description != "" {
		n++
	}
	n += 2 * len(table.ProgrammaticDescriptions)
	n += len(table.Tags)
	for _, c := range table.Columns {
		n += columnMetric(c)
	}
	return n
}

func columnMetric(column ColumnRecord) int {
	n := 1
	if column.Description != "" {
		n++
	}
	n += len(column.Stats)
	return n
}

// AddTableEntities fetches the snapshot covering the given tables and folds
// their database/cluster/schema/table chains, columns, descriptions, tags,
// stats, timestamps and ownership into the target set. Table-owned edge
// kinds (COLUMN, GENERATES, OWNER) are registered for expiration at
// Complete.
func (b *Builder) AddTableEntities(ctx context.Context, tables []TableRecord) error {
	if b.done {
		return fmt.Errorf("builder already completed")
	}
	if b.fetcher != nil {
		if err := FetchTableEntities(ctx, b.fetcher, b.schema, tables, b.existing, b.log); err != nil {
			return fmt.Errorf("fetching existing table entities: %w", err)
		}
	}
	for _, table := range tables {
		if err := b.tableEntities(table); err != nil {
			return err
		}
	}
	b.expirers = append(b.expirers, func() error {
		return ExpirePreviouslyExisting(
			[]*graph.EntityType{b.schema.Edges.Column, b.schema.Edges.Generates, b.schema.Edges.Owner},
			b.entities, b.existing)
	})
	return nil
}

func (b *Builder) tableEntities(table TableRecord) error {
	v := b.schema.Vertices
	e := b.schema.Edges
	uris := URIsForTable(table.Database, table.Cluster, table.Schema, table.Name)

	database, err := b.create(v.Database, graph.Entity{"name": table.Database, "key": uris.Database})
	if err != nil {
		return err
	}
	cluster, err := b.create(v.Cluster, graph.Entity{"name": table.Cluster, "key": uris.Cluster})
	if err != nil {
		return err
	}
	if err := b.link(e.Cluster, database, cluster); err != nil {
		return err
	}

	schema, err := b.create(v.Schema, graph.Entity{"name": table.Schema, "key": uris.Schema})
	if err != nil {
		return err
	}
	if err := b.link(e.Schema, cluster, schema); err != nil {
		return err
	}

	tableVertex, err := b.create(v.Table, graph.Entity{
		"name": table.Name, "key": uris.Table, "is_view": table.IsView})
	if err != nil {
		return err
	}
	if err := b.link(e.Table, schema, tableVertex); err != nil {
		return err
	}

	if table.TableWriter != "" {
		if err := b.applicationEntities(table.TableWriter, tableVertex); err != nil {
			return err
		}
	}

	if table.Description != "" {
		if err := b.descriptionEntities(tableVertex, "user", table.Description); err != nil {
			return err
		}
	}
	for _, d := range table.ProgrammaticDescriptions {
		if err := b.descriptionEntities(tableVertex, d.Source, d.Text); err != nil {
			return err
		}
	}

	for _, tag := range table.Tags {
		raw := graph.Entity{"key": tag.TagName, "tag_name": tag.TagName}
		if tag.TagType != "" {
			raw["tag_type"] = tag.TagType
		}
		tagVertex, err := b.create(v.Tag, raw)
		if err != nil {
			return err
		}
		// users tag these too, so tag edges are never expired here
		if err := b.link(e.Tag, tagVertex, tableVertex); err != nil {
			return err
		}
	}

	// global and per-table updated timestamps
	if _, err := b.create(v.Updatedtimestamp, graph.Entity{
		"key": "catalog_updated_timestamp", "latest_timestamp": b.createdAt.UTC()}); err != nil {
		return err
	}
	stamp, err := b.create(v.Updatedtimestamp, graph.Entity{
		"key": tableVertex["key"], "latest_timestamp": b.createdAt.UTC()})
	if err != nil {
		return err
	}
	if err := b.link(e.LastUpdatedAt, tableVertex, stamp); err != nil {
		return err
	}

	return b.columnEntities(tableVertex, table.Columns)
}

func (b *Builder) columnEntities(tableVertex graph.Entity, columns []ColumnRecord) error {
	v := b.schema.Vertices
	e := b.schema.Edges
	tableURI := tableVertex["key"].(string)

	for _, column := range columns {
		columnVertex, err := b.create(v.Column, graph.Entity{
			"name":       column.Name,
			"key":        MakeColumnURI(tableURI, column.Name),
			"col_type":   column.ColType,
			"sort_order": column.SortOrder,
		})
		if err != nil {
			return err
		}
		if err := b.link(e.Column, tableVertex, columnVertex); err != nil {
			return err
		}

		if column.Description != "" {
			if err := b.descriptionEntities(columnVertex, "user", column.Description); err != nil {
				return err
			}
		}

		columnURI := columnVertex["key"].(string)
		for _, stat := range column.Stats {
			raw := graph.Entity{
				"key":         MakeColumnStatisticURI(columnURI, stat.StatType),
				"stat_type":   stat.StatType,
				"start_epoch": stat.StartEpoch,
				"end_epoch":   stat.EndEpoch,
			}
			if stat.StatVal != "" {
				raw["stat_val"] = stat.StatVal
			}
			statVertex, err := b.create(v.Stat, raw)
			if err != nil {
				return err
			}
			if err := b.link(e.Stat, columnVertex, statVertex); err != nil {
				return err
			}
		}
	}
	return nil
}

// applicationEntities resolves a table's declared writer. The key is first
// tried against every historically-equivalent application key; failing
// that, it is retried as a user id (some producers put owners there); if
// both fail the table keeps no owner edge and the event is logged.
func (b *Builder) applicationEntities(appKey string, tableVertex graph.Entity) error {
	appType := b.schema.Vertices.Application
	byKey := b.existing.ForType(appType)
	for _, candidate := range PossibleApplicationNames(appKey) {
		key, err := KeyFor(appType, graph.Entity{"key": candidate})
		if err != nil {
			return err
		}
		app, ok := byKey[key]
		if !ok {
			continue
		}
		return b.link(b.schema.Edges.Generates, app, tableVertex)
	}

	userType := b.schema.Vertices.User
	userKey, err := KeyFor(userType, graph.Entity{"key": appKey})
	if err != nil {
		return err
	}
	if user, ok := b.existing.ForType(userType)[userKey]; ok {
		b.log.Debug("table writer resolved as user, not application",
			zap.String("writer", appKey),
			zap.Any("table", tableVertex["key"]))
		return b.link(b.schema.Edges.Owner, tableVertex, user)
	}

	b.log.Info("table writer matches no application or user",
		zap.String("writer", appKey),
		zap.Any("table", tableVertex["key"]))
	return nil
}

func (b *Builder) descriptionEntities(subject graph.Entity, source, text string) error {
	vertex, err := b.create(b.schema.Vertices.Description, graph.Entity{
		"key":                MakeDescriptionURI(subject["key"].(string), source),
		"description":        text,
		"description_source": source,
	})
	if err != nil {
		return err
	}
	return b.link(b.schema.Edges.Description, subject, vertex)
}

// link creates an edge of the given type between two already-created
// vertices, stamped with the run's created time.
func (b *Builder) link(t *graph.EntityType, from, to graph.Entity) error {
	_, err := b.create(t, graph.Entity{
		graph.FromName: from[graph.IDName],
		graph.ToName:   to[graph.IDName],
		"created":      b.createdAt.UTC(),
	})
	return err
}

// AddUserEntities folds user records into the target set.
func (b *Builder) AddUserEntities(ctx context.Context, users []UserRecord) error {
	if b.done {
		return fmt.Errorf("builder already completed")
	}
	if b.fetcher != nil {
		if err := FetchUserEntities(ctx, b.fetcher, b.schema, users, b.existing, b.log); err != nil {
			return fmt.Errorf("fetching existing users: %w", err)
		}
	}
	for _, user := range users {
		raw := graph.Entity{
			"key":     user.UserID,
			"user_id": user.UserID,
		}
		setIf(raw, "email", user.Email)
		setIf(raw, "full_name", user.FullName)
		setIf(raw, "first_name", user.FirstName)
		setIf(raw, "last_name", user.LastName)
		setIf(raw, "display_name", user.DisplayName)
		setIf(raw, "team_name", user.TeamName)
		setIf(raw, "employee_type", user.EmployeeType)
		setIf(raw, "profile_url", user.ProfileURL)
		setIf(raw, "role_name", user.RoleName)
		setIf(raw, "slack_id", user.SlackID)
		setIf(raw, "github_username", user.GithubUsername)
		setIf(raw, "manager_fullname", user.ManagerFullname)
		setIf(raw, "manager_email", user.ManagerEmail)
		setIf(raw, "manager_id", user.ManagerID)
		raw["is_active"] = user.IsActive
		raw["is_robot"] = user.IsRobot
		if _, err := b.create(b.schema.Vertices.User, raw); err != nil {
			return err
		}
	}
	return nil
}

// AddAppEntities folds application records into the target set.
func (b *Builder) AddAppEntities(ctx context.Context, apps []ApplicationRecord) error {
	if b.done {
		return fmt.Errorf("builder already completed")
	}
	if b.fetcher != nil {
		if err := FetchAppEntities(ctx, b.fetcher, b.schema, apps, b.existing, b.log); err != nil {
			return fmt.Errorf("fetching existing applications: %w", err)
		}
	}
	for _, app := range apps {
		raw := graph.Entity{
			"key": app.ID,
			"id":  app.ID,
		}
		setIf(raw, "name", app.Name)
		setIf(raw, "description", app.Description)
		setIf(raw, "application_url", app.ApplicationURL)
		if _, err := b.create(b.schema.Vertices.Application, raw); err != nil {
			return err
		}
	}
	return nil
}

// Complete runs the registered expiration passes and returns the target set.
// The builder is spent afterward.
func (b *Builder) Complete() (Entities, error) {
	if b.done {
		return nil, fmt.Errorf("builder already completed")
	}
	b.done = true
	for _, expire := range b.expirers {
		if err := expire(); err != nil {
			return nil, err
		}
	}
	entities := b.entities
	b.entities = nil
	b.existing = nil
	return entities, nil
}

func setIf(e graph.Entity, name, value string) {
	if value != "" {
		e[name] = value
	}
}
