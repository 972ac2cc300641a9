// Package extract reads table metadata out of a Postgres catalog and shapes
// it into the domain records the reconciliation engine consumes.
package extract

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/graphcat/graphcat/internal/reconcile"
)

const tablesQuery = `
SELECT t.table_schema, t.table_name, t.table_type,
       COALESCE(obj_description(c.oid), '') AS description
FROM information_schema.tables t
LEFT JOIN pg_catalog.pg_class c
  ON c.relname = t.table_name
 AND c.relnamespace = (SELECT oid FROM pg_catalog.pg_namespace WHERE nspname = t.table_schema)
WHERE t.table_schema NOT IN ('pg_catalog', 'information_schema')
ORDER BY t.table_schema, t.table_name`

const columnsQuery = `
SELECT c.table_schema, c.table_name, c.column_name, c.data_type, c.ordinal_position,
       COALESCE(col_description(pc.oid, c.ordinal_position), '') AS description
FROM information_schema.columns c
LEFT JOIN pg_catalog.pg_class pc
  ON pc.relname = c.table_name
 AND pc.relnamespace = (SELECT oid FROM pg_catalog.pg_namespace WHERE nspname = c.table_schema)
WHERE c.table_schema NOT IN ('pg_catalog', 'information_schema')
ORDER BY c.table_schema, c.table_name, c.ordinal_position`

// Postgres extracts table records from one database. Database and Cluster
// name the source in the produced keys; they are deployment labels, not
// connection details.
type Postgres struct {
	db       *sql.DB
	log      *zap.Logger
	database string
	cluster  string
}

// OpenPostgres connects with the pgx stdlib driver.
func OpenPostgres(dsn, database, cluster string, log *zap.Logger) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}
	return NewPostgres(db, database, cluster, log), nil
}

// NewPostgres wraps an existing connection pool.
func NewPostgres(db *sql.DB, database, cluster string, log *zap.Logger) *Postgres {
	if log == nil {
		log = zap.NewNop()
	}
	return &Postgres{db: db, log: log, database: database, cluster: cluster}
}

// Close releases the connection pool.
func (p *Postgres) Close() error { return p.db.Close() }

// Tables reads every user table and its columns.
func (p *Postgres) Tables(ctx context.Context) ([]reconcile.TableRecord, error) {
	tables, order, err := p.tableRecords(ctx)
	if err != nil {
		return nil, err
	}
	if err := p.attachColumns(ctx, tables); err != nil {
		return nil, err
	}

	records := make([]reconcile.TableRecord, 0, len(order))
	for _, key := range order {
		records = append(records, *tables[key])
	}
	p.log.Info("extracted tables",
		zap.String("database", p.database),
		zap.String("cluster", p.cluster),
		zap.Int("tables", len(records)))
	return records, nil
}

func (p *Postgres) tableRecords(ctx context.Context) (map[string]*reconcile.TableRecord, []string, error) {
	rows, err := p.db.QueryContext(ctx, tablesQuery)
	if err != nil {
		return nil, nil, fmt.Errorf("querying tables: %w", err)
	}
	defer rows.Close()

	tables := make(map[string]*reconcile.TableRecord)
	var order []string
	for rows.Next() {
		var schema, name, tableType, description string
		if err := rows.Scan(&schema, &name, &tableType, &description); err != nil {
			return nil, nil, fmt.Errorf("scanning table row: %w", err)
		}
		record := &reconcile.TableRecord{
			Database:    p.database,
			Cluster:     p.cluster,
			Schema:      schema,
			Name:        name,
			IsView:      tableType == "VIEW",
			Description: description,
		}
		key := schema + "." + name
		tables[key] = record
		order = append(order, key)
	}
	return tables, order, rows.Err()
}

func (p *Postgres) attachColumns(ctx context.Context, tables map[string]*reconcile.TableRecord) error {
	rows, err := p.db.QueryContext(ctx, columnsQuery)
	if err != nil {
		return fmt.Errorf("querying columns: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var schema, table, name, colType, description string
		var position int
		if err := rows.Scan(&schema, &table, &name, &colType, &position, &description); err != nil {
			return fmt.Errorf("scanning column row: %w", err)
		}
		record, ok := tables[schema+"."+table]
		if !ok {
			// columns of tables filtered out of the table query
			p.log.Debug("dropping column of unknown table",
				zap.String("schema", schema),
				zap.String("table", table),
				zap.String("column", name))
			continue
		}
		record.Columns = append(record.Columns, reconcile.ColumnRecord{
			Name:        name,
			ColType:     colType,
			SortOrder:   position - 1,
			Description: description,
		})
	}
	return rows.Err()
}
