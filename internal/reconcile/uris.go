// Package reconcile computes the exact set of graph entities that should
// exist after a run: it derives stable identity keys for incoming domain
// records, merges them against the previously persisted snapshot so synthetic
// identifiers stay stable across runs, tolerates benign duplication, and
// expires stale edges.
package reconcile

import (
	"fmt"
	"strings"
)

// TableURIs holds the key URIs for one table and its ancestry.
type TableURIs struct {
	Database string
	Cluster  string
	Schema   string
	Table    string
}

// URIsForTable derives the database/cluster/schema/table key chain.
func URIsForTable(database, cluster, schema, table string) TableURIs {
	databaseURI := MakeDatabaseURI(database)
	clusterURI := MakeClusterURI(database, cluster)
	schemaURI := MakeSchemaURI(clusterURI, schema)
	return TableURIs{
		Database: databaseURI,
		Cluster:  clusterURI,
		Schema:   schemaURI,
		Table:    MakeTableURI(schemaURI, table),
	}
}

// MakeDatabaseURI renders a database key like "database://hive".
func MakeDatabaseURI(databaseName string) string {
	return "database://" + databaseName
}

// DatabaseNameFromURI is the inverse of MakeDatabaseURI.
func DatabaseNameFromURI(databaseURI string) (string, error) {
	if !strings.HasPrefix(databaseURI, "database://") {
		return "", fmt.Errorf("database uri is malformed: %s", databaseURI)
	}
	return databaseURI[strings.LastIndex(databaseURI, "://")+len("://"):], nil
}

// MakeClusterURI renders a cluster key like "hive://gold".
func MakeClusterURI(databaseName, clusterName string) string {
	return databaseName + "://" + clusterName
}

// MakeSchemaURI renders a schema key like "hive://gold.core".
func MakeSchemaURI(clusterURI, schemaName string) string {
	return clusterURI + "." + schemaName
}

// MakeTableURI renders a table key like "hive://gold.core/orders".
func MakeTableURI(schemaURI, tableName string) string {
	return schemaURI + "/" + tableName
}

// MakeColumnURI renders a column key like "hive://gold.core/orders/id".
func MakeColumnURI(tableURI, columnName string) string {
	return tableURI + "/" + columnName
}

// MakeColumnStatisticURI renders a statistic key for a column.
func MakeColumnStatisticURI(columnURI, statisticType string) string {
	return columnURI + "/stat/" + statisticType
}

// MakeDescriptionURI renders a description key scoped to its subject and
// source, so descriptions from different sources coexist.
func MakeDescriptionURI(subjectURI, source string) string {
	return subjectURI + "/" + source + "/_description"
}
