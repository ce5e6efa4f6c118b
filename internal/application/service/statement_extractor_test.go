package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractStatement(t *testing.T) {
	tests := []struct {
		name     string
		output   string
		expected string
	}{
		{"Bare statement", "SELECT * FROM customers", "SELECT * FROM customers"},
		{"Surrounding whitespace", "\n  SELECT 1;  \n", "SELECT 1;"},
		{"SQL fence", "```sql\nSELECT name\nFROM customers\n```", "SELECT name\nFROM customers"},
		{"Plain fence", "```\nSELECT 1\n```", "SELECT 1"},
		{"Inline fence", "```SELECT 1```", "SELECT 1"},
		{"Unterminated fence", "```sql\nSELECT 1", "SELECT 1"},
		{"Fence inside prose", "Here you go:\n```sql\nSELECT 2\n```\nThis lists things.", "SELECT 2"},
		{"SQL label", "SQL: SELECT * FROM orders", "SELECT * FROM orders"},
		{"Query label lower case", "query:select 1", "select 1"},
		{"Leading prose", "Sure! Here is the query:\nSELECT * FROM products;", "SELECT * FROM products;"},
		{"Trailing prose", "SELECT * FROM products;\nThis returns every product.", "SELECT * FROM products;"},
		{"Trailing prose after blank line", "SELECT *\nFROM products\n\nIt lists products.", "SELECT *\nFROM products"},
		{"Multiple statements kept", "SELECT 1;\nDROP TABLE customers;", "SELECT 1;\nDROP TABLE customers;"},
		{"Unsafe statement kept", "DELETE FROM orders", "DELETE FROM orders"},
		{"Common table expression", "WITH t AS (SELECT 1) SELECT * FROM t", "WITH t AS (SELECT 1) SELECT * FROM t"},
		{"Prose starting with With", "With pleasure.\nSELECT 1", "SELECT 1"},
		{"Selected is not a keyword", "Selected query below\nSELECT 3", "SELECT 3"},
		{"No SQL at all", "I cannot answer that.", "I cannot answer that."},
		{"Empty", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractStatement(tt.output))
		})
	}
}
