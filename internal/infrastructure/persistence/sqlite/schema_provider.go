package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/YoshitsuguKoike/deequery/internal/application/port/output"
	"github.com/YoshitsuguKoike/deequery/internal/domain/schema"
)

// SchemaProvider reads table and column metadata from a SQLite file
type SchemaProvider struct {
	path string
}

// NewSchemaProvider creates a schema provider for the database at path
func NewSchemaProvider(path string) *SchemaProvider {
	return &SchemaProvider{path: path}
}

var _ output.SchemaProvider = (*SchemaProvider)(nil)

// Describe lists user tables (internal sqlite_ tables are skipped) with
// their columns in declaration order
func (p *SchemaProvider) Describe(ctx context.Context) (schema.Catalog, error) {
	db, conn, err := openReadOnly(ctx, p.path)
	if err != nil {
		return schema.Catalog{}, err
	}
	defer db.Close()
	defer conn.Close()

	rows, err := conn.QueryContext(ctx, `
		SELECT name FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`)
	if err != nil {
		return schema.Catalog{}, fmt.Errorf("failed to list tables: %w", err)
	}
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return schema.Catalog{}, fmt.Errorf("failed to scan table name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return schema.Catalog{}, fmt.Errorf("error iterating tables: %w", err)
	}
	rows.Close()

	tables := make([]schema.Table, 0, len(names))
	for _, name := range names {
		cols, err := tableColumns(ctx, conn, name)
		if err != nil {
			return schema.Catalog{}, err
		}
		tables = append(tables, schema.Table{Name: name, Columns: cols})
	}
	return schema.NewCatalog(tables...), nil
}

func tableColumns(ctx context.Context, conn *sql.Conn, table string) ([]schema.Column, error) {
	rows, err := conn.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(table)))
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of %s: %w", table, err)
	}
	defer rows.Close()

	var cols []schema.Column
	for rows.Next() {
		var (
			cid       int
			name      string
			colType   string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return nil, fmt.Errorf("failed to scan column of %s: %w", table, err)
		}
		cols = append(cols, schema.Column{
			Name:       name,
			Type:       strings.ToUpper(colType),
			PrimaryKey: pk > 0,
			NotNull:    notNull != 0,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating columns of %s: %w", table, err)
	}
	return cols, nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
