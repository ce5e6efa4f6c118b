// Package schema holds the table/column metadata a session is bound to.
package schema

import (
	"fmt"
	"sort"
	"strings"
)

// Column describes one column of a table
type Column struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	PrimaryKey bool   `json:"primary_key,omitempty"`
	NotNull    bool   `json:"not_null,omitempty"`
}

// Table describes one table and its columns in declaration order
type Table struct {
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`
}

// Catalog is the read-only schema context attached to a session
type Catalog struct {
	Tables []Table `json:"tables"`
}

// NewCatalog builds a catalog with tables sorted by name
func NewCatalog(tables ...Table) Catalog {
	c := Catalog{Tables: make([]Table, 0, len(tables))}
	for _, t := range tables {
		c.Tables = append(c.Tables, t.clone())
	}
	sort.Slice(c.Tables, func(i, j int) bool { return c.Tables[i].Name < c.Tables[j].Name })
	return c
}

// Clone returns a deep copy so callers can never alias session state
func (c Catalog) Clone() Catalog {
	if c.Tables == nil {
		return Catalog{}
	}
	out := Catalog{Tables: make([]Table, len(c.Tables))}
	for i, t := range c.Tables {
		out.Tables[i] = t.clone()
	}
	return out
}

// IsEmpty reports whether the catalog has no tables
func (c Catalog) IsEmpty() bool {
	return len(c.Tables) == 0
}

// Table looks up a table by name, case-insensitively
func (c Catalog) Table(name string) (Table, bool) {
	for _, t := range c.Tables {
		if strings.EqualFold(t.Name, name) {
			return t.clone(), true
		}
	}
	return Table{}, false
}

// TableNames returns the table names in catalog order
func (c Catalog) TableNames() []string {
	names := make([]string, 0, len(c.Tables))
	for _, t := range c.Tables {
		names = append(names, t.Name)
	}
	return names
}

// Describe renders the catalog one table per line as
// `name: [col (TYPE*), col (TYPE)]`, where * marks primary key columns.
func (c Catalog) Describe() string {
	if c.IsEmpty() {
		return "(no tables)"
	}
	var b strings.Builder
	for i, t := range c.Tables {
		if i > 0 {
			b.WriteString("\n")
		}
		cols := make([]string, 0, len(t.Columns))
		for _, col := range t.Columns {
			typ := col.Type
			if typ == "" {
				typ = "ANY"
			}
			if col.PrimaryKey {
				typ += "*"
			}
			cols = append(cols, fmt.Sprintf("%s (%s)", col.Name, typ))
		}
		fmt.Fprintf(&b, "%s: [%s]", t.Name, strings.Join(cols, ", "))
	}
	return b.String()
}

func (t Table) clone() Table {
	out := Table{Name: t.Name}
	if t.Columns != nil {
		out.Columns = make([]Column, len(t.Columns))
		copy(out.Columns, t.Columns)
	}
	return out
}
