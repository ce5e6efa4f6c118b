package sqlguard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YoshitsuguKoike/deequery/internal/domain/session"
)

func TestValidator_Accepts(t *testing.T) {
	v := NewValidator()
	tests := []string{
		"SELECT name FROM customers",
		"SELECT name FROM customers;",
		"  select c.name, count(*) from customers c join orders o on o.customer_id = c.customer_id group by c.name order by 2 desc limit 5  ",
		"SELECT ';' AS semi FROM customers",
		"SELECT created_at, updated_by FROM customers",
		"SELECT * FROM customers WHERE name = 'DROP TABLE customers'",
		"-- top customers\nSELECT name FROM customers",
		"SELECT name /* ; DELETE */ FROM customers",
		"SELECT name FROM customers UNION SELECT product_name FROM products",
	}
	for _, stmt := range tests {
		t.Run(stmt, func(t *testing.T) {
			verdict := v.Validate(stmt)
			assert.True(t, verdict.Passed, "unexpected rejection: %+v", verdict)
		})
	}
}

func TestValidator_Rejects(t *testing.T) {
	v := NewValidator()
	tests := []struct {
		name     string
		stmt     string
		reason   session.FailureCode
		fragment string
	}{
		{"empty", "", session.CodeSyntaxError, ""},
		{"only separators", " ;; ", session.CodeSyntaxError, ""},
		{"two selects", "SELECT 1; SELECT 2", session.CodeMultiStatement, "SELECT 2"},
		{"select then drop", "SELECT 1; DROP TABLE customers", session.CodeMultiStatement, "DROP TABLE customers"},
		{"full-width separator", "SELECT 1；SELECT 2", session.CodeMultiStatement, "SELECT 2"},
		{"drop", "DROP TABLE customers", session.CodeUnsafeOperation, "DROP"},
		{"lowercase delete", "delete from customers", session.CodeUnsafeOperation, "DELETE"},
		{"update", "UPDATE customers SET name = 'x'", session.CodeUnsafeOperation, "UPDATE"},
		{"insert select", "INSERT INTO customers SELECT * FROM customers", session.CodeUnsafeOperation, "INSERT"},
		{"pragma", "PRAGMA table_info(customers)", session.CodeUnsafeOperation, "PRAGMA"},
		{"attach", "ATTACH DATABASE 'x.db' AS x", session.CodeUnsafeOperation, "ATTACH"},
		{"show", "SHOW TABLES", session.CodeSyntaxError, "SHOW"},
		{"begin", "BEGIN", session.CodeUnsafeOperation, "BEGIN"},
		{"savepoint", "SAVEPOINT before_report", session.CodeUnsafeOperation, "SAVEPOINT"},
		{"analyze", "ANALYZE", session.CodeUnsafeOperation, "ANALYZE"},
		{"explain", "EXPLAIN SELECT name FROM customers", session.CodeUnsafeOperation, "EXPLAIN"},
		{"misspelled verb", "SELEC name FROM customers", session.CodeSyntaxError, "SELEC"},
		{"unterminated string", "SELECT 'abc FROM customers", session.CodeSyntaxError, "'abc FROM customers"},
		{"unterminated comment", "SELECT 1 /* oops", session.CodeSyntaxError, "/* oops"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verdict := v.Validate(tt.stmt)
			require.False(t, verdict.Passed)
			assert.Equal(t, tt.reason, verdict.Reason)
			assert.Equal(t, tt.fragment, verdict.Fragment)
			assert.NotEmpty(t, verdict.Detail)
		})
	}
}

// SQLite-only constructs a generator is told to use must not be rejected
func TestValidator_AcceptsSQLiteDialect(t *testing.T) {
	v := NewValidator()
	tests := map[string]string{
		"cast real":          "SELECT CAST(total AS REAL) / 2 FROM orders",
		"cast integer text":  "SELECT CAST(quantity AS INTEGER), CAST(order_id AS TEXT) FROM orders",
		"double quoted":      `SELECT "name" FROM "customers"`,
		"bracketed":          "SELECT [name] FROM [customers]",
		"glob":               "SELECT name FROM customers WHERE name GLOB 'A*'",
		"nulls last":         "SELECT name FROM customers ORDER BY name NULLS LAST",
		"window function":    "SELECT name, ROW_NUMBER() OVER (ORDER BY name) AS rn FROM customers",
		"common table expr":  "WITH big AS (SELECT * FROM orders WHERE total > 100) SELECT count(*) FROM big",
		"like escape":        `SELECT name FROM customers WHERE name LIKE '%\_%' ESCAPE '\'`,
		"values":             "VALUES (1, 'a'), (2, 'b')",
		"limit offset":       "SELECT name FROM customers LIMIT 5 OFFSET 10",
		"unknown names pass": "SELECT no_such_column FROM no_such_table",
	}
	for name, stmt := range tests {
		t.Run(name, func(t *testing.T) {
			verdict := v.Validate(stmt)
			assert.True(t, verdict.Passed, "unexpected rejection: %+v", verdict)
			assert.Equal(t, stmt, verdict.Statement)
		})
	}
}

func TestValidator_WriteInsideCTE(t *testing.T) {
	verdict := NewValidator().Validate("WITH x AS (SELECT 1) DELETE FROM customers")
	require.False(t, verdict.Passed)
	assert.Equal(t, session.CodeUnsafeOperation, verdict.Reason)
	assert.Equal(t, "DELETE", verdict.Fragment)
}

func TestValidator_GrammarErrors(t *testing.T) {
	v := NewValidator()
	for _, stmt := range []string{
		"SELEC name FROM customers",
		"SELECT name FROM",
		"SELECT name, FROM customers",
		"SELECT (name FROM customers",
	} {
		t.Run(stmt, func(t *testing.T) {
			verdict := v.Validate(stmt)
			require.False(t, verdict.Passed)
			assert.Equal(t, session.CodeSyntaxError, verdict.Reason)
			assert.Contains(t, verdict.Detail, "syntax error")
		})
	}
}

func TestValidator_NormalizesOutsideLiterals(t *testing.T) {
	v := NewValidator()

	verdict := v.Validate("ＳＥＬＥＣＴ name FROM customers；")
	require.True(t, verdict.Passed, "%+v", verdict)
	assert.Equal(t, "SELECT name FROM customers", verdict.Statement)

	stmt := "SELECT name FROM customers WHERE name = 'ＡＣＭＥ；１'"
	verdict = v.Validate(stmt)
	require.True(t, verdict.Passed, "%+v", verdict)
	assert.Equal(t, stmt, verdict.Statement)
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"code", "ＳＥＬＥＣＴ １", "SELECT 1"},
		{"string literal kept", "SELECT 'ｶﾅ１'", "SELECT 'ｶﾅ１'"},
		{"quoted identifier kept", `SELECT "ｎａｍｅ" FROM t`, `SELECT "ｎａｍｅ" FROM t`},
		{"bracketed identifier kept", "SELECT [ｎａｍｅ] FROM t", "SELECT [ｎａｍｅ] FROM t"},
		{"doubled quote", "SELECT 'it''s ｘ'；", "SELECT 'it''s ｘ';"},
		{"full-width quotes", "SELECT ＇ｘ＇", "SELECT 'ｘ'"},
		{"apostrophe in comment", "-- don't\nＳＥＬＥＣＴ 1", "-- don't\nSELECT 1"},
		{"block comment", "SELECT /* it's */ 'ｘ'", "SELECT /* it's */ 'ｘ'"},
		{"unterminated literal", "SELECT 'ｘ", "SELECT 'ｘ"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestCanonical(t *testing.T) {
	assert.Equal(t, "SELECT 1", Canonical("SELECT 1;"))
	assert.Equal(t, "SELECT 1", Canonical("-- note\n  SELECT 1 ；  "))
	assert.Equal(t, "SELECT 'a;b'", Canonical("SELECT 'a;b';"))
	assert.Equal(t, "SELECT 'abc", Canonical("  SELECT 'abc  "))

	verdict := NewValidator().Validate("SELECT name FROM customers；")
	assert.Equal(t, Canonical("SELECT name FROM customers；"), verdict.Statement)
}

func TestGrammarMessages(t *testing.T) {
	assert.True(t, isGrammarError(`near "FROM": syntax error`))
	assert.True(t, isGrammarError("incomplete input"))
	assert.True(t, isGrammarError(`unrecognized token: "@@"`))
	assert.False(t, isGrammarError("no such table: customers"))
	assert.False(t, isGrammarError("no such column: nme"))

	assert.Equal(t, "FROM", nearFragment(`near "FROM": syntax error`))
	assert.Equal(t, `a"b`, nearFragment(`near "a""b": syntax error`))
	assert.Equal(t, "@@", nearFragment(`unrecognized token: "@@"`))
	assert.Equal(t, "", nearFragment("incomplete input"))

	assert.Equal(t, "syntax error: incomplete input", syntaxDetail("incomplete input"))
	assert.Equal(t, `near "x": syntax error`, syntaxDetail(`near "x": syntax error`))
}

func TestValidator_FunctionNamedLikeVerb(t *testing.T) {
	verdict := NewValidator().Validate("SELECT replace(name, 'a', 'b') FROM customers")
	assert.NotEqual(t, session.CodeUnsafeOperation, verdict.Reason)

	toks, err := lex("SELECT replace (name, 'a', 'b'), REPLACE FROM t")
	require.NoError(t, err)
	verb, ok := deniedVerb(toks)
	require.True(t, ok)
	assert.Equal(t, "REPLACE", verb)
}

func TestValidator_IsDeterministic(t *testing.T) {
	v := NewValidator()
	for _, stmt := range []string{"SELECT 1; SELECT 2", "DROP TABLE x", "SELEC 1", "SELECT 1"} {
		assert.Equal(t, v.Validate(stmt), v.Validate(stmt))
	}
}

func TestVerdict_Failure(t *testing.T) {
	verdict := NewValidator().Validate("DROP TABLE customers")
	f := verdict.Failure(2)

	assert.Equal(t, 2, f.Attempt)
	assert.Equal(t, session.StageValidation, f.Stage)
	assert.Equal(t, session.CodeUnsafeOperation, f.Code)
	assert.Equal(t, "DROP", f.Subject)
	assert.Equal(t, Suggestion(session.CodeUnsafeOperation), f.Suggestion)
	assert.NotEmpty(t, f.Suggestion)
}

func TestSplitStatements(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"SELECT 1", []string{"SELECT 1"}},
		{"SELECT 1;", []string{"SELECT 1"}},
		{"SELECT ';'; SELECT \"a;b\" -- c;d", []string{"SELECT ';'", `SELECT "a;b"`}},
		{"SELECT [x;y] FROM t; ; SELECT 2", []string{"SELECT [x;y] FROM t", "SELECT 2"}},
		{"SELECT 'it''s; fine'", []string{"SELECT 'it''s; fine'"}},
		{"", []string{}},
	}
	for _, tt := range tests {
		got, err := SplitStatements(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := SplitStatements(`SELECT "open`)
	assert.Error(t, err)
}
