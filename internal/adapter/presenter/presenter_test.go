package presenter_test

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YoshitsuguKoike/deequery/internal/adapter/presenter"
	"github.com/YoshitsuguKoike/deequery/internal/application/dto"
	"github.com/YoshitsuguKoike/deequery/internal/domain/session"
	"github.com/YoshitsuguKoike/deequery/internal/testutil"
)

func succeeded(t *testing.T) *dto.AskOutput {
	return dto.NewAskOutput(testutil.SucceededSession(t, "Top customers", testutil.Epoch, "customer"), time.Second)
}

func exhausted(t *testing.T) *dto.AskOutput {
	return dto.NewAskOutput(testutil.ExhaustedSession(t, "Customer list", testutil.Epoch, "custmers", "customers"), time.Second)
}

func batch(t *testing.T) *dto.BatchOutput {
	return &dto.BatchOutput{
		BatchID: "b-1",
		Items: []dto.BatchItem{
			{Index: 0, Question: "Top customers", Output: succeeded(t)},
			{Index: 1, Question: "Customer list", Output: exhausted(t)},
			{Index: 2, Question: "broken", Error: "invalid request"},
		},
		Succeeded: 1,
		Exhausted: 1,
		Failed:    1,
		Duration:  1500 * time.Millisecond,
	}
}

func history() []dto.SessionSummary {
	return []dto.SessionSummary{
		{SessionID: "01B", Question: "Top | customers", Status: session.StatusSucceeded, Attempts: 2, CreatedAt: testutil.Epoch},
		{SessionID: "01A", Question: "Orders", Status: session.StatusExhausted, Attempts: 3, CreatedAt: testutil.Epoch},
	}
}

func TestNew(t *testing.T) {
	for _, f := range presenter.Formats {
		p, err := presenter.New(string(f), presenter.Options{})
		require.NoError(t, err, f)
		assert.NotNil(t, p)
	}

	p, err := presenter.New("", presenter.Options{})
	require.NoError(t, err)
	assert.IsType(t, &presenter.TextPresenter{}, p)

	_, err = presenter.New("xml", presenter.Options{})
	assert.ErrorContains(t, err, "unknown output format")
}

func TestTextPresenter_Answer(t *testing.T) {
	var buf bytes.Buffer
	p := presenter.NewTextPresenter(presenter.Options{})

	require.NoError(t, p.PresentAnswer(&buf, succeeded(t)))
	out := buf.String()

	assert.Contains(t, out, "SQL: SELECT name FROM customers")
	assert.Contains(t, out, "attempt 2/2")
	assert.Contains(t, out, "John Smith")
	assert.Contains(t, out, "1999.96")
	assert.Contains(t, out, "NULL")
	assert.Contains(t, out, "Query returned 2 rows.")
}

func TestTextPresenter_Clarification(t *testing.T) {
	var buf bytes.Buffer
	p := presenter.NewTextPresenter(presenter.Options{})

	require.NoError(t, p.PresentAnswer(&buf, exhausted(t)))
	out := buf.String()

	assert.Contains(t, out, "after 2 attempts")
	assert.Contains(t, out, `table "custmers" does not exist`)
	assert.Contains(t, out, "SQL: SELECT * FROM customers")
	assert.Contains(t, out, "Rephrase your question")
	assert.NotContains(t, out, "no such table")
	assert.NotContains(t, out, "Changed:")
}

func TestTextPresenter_ClarificationWithDiff(t *testing.T) {
	var buf bytes.Buffer
	p := presenter.NewTextPresenter(presenter.Options{ShowDiff: true})

	require.NoError(t, p.PresentAnswer(&buf, exhausted(t)))
	out := buf.String()

	assert.Equal(t, 1, strings.Count(out, "Changed:"))
	assert.Contains(t, out, "Changed: SELECT * FROM cust{+o+}mers")
}

func TestTextPresenter_BatchSchemaHistory(t *testing.T) {
	p := presenter.NewTextPresenter(presenter.Options{})

	var buf bytes.Buffer
	require.NoError(t, p.PresentBatch(&buf, batch(t)))
	assert.Contains(t, buf.String(), "1 succeeded, 1 exhausted, 1 failed")
	assert.Contains(t, buf.String(), "invalid request")
	assert.Contains(t, buf.String(), "(2 rows)")

	buf.Reset()
	require.NoError(t, p.PresentSchema(&buf, testutil.Catalog()))
	assert.Contains(t, buf.String(), "customer_id")
	assert.Contains(t, buf.String(), "PRIMARY KEY")
	assert.Contains(t, buf.String(), "NOT NULL")

	buf.Reset()
	require.NoError(t, p.PresentHistory(&buf, history()))
	assert.Contains(t, buf.String(), "01B")
	assert.Contains(t, buf.String(), "2026-03-01 09:00:00")

	buf.Reset()
	require.NoError(t, p.PresentHistory(&buf, nil))
	assert.Equal(t, "No archived sessions.\n", buf.String())
}

func TestJSONPresenter(t *testing.T) {
	p := presenter.NewJSONPresenter()

	var buf bytes.Buffer
	require.NoError(t, p.PresentAnswer(&buf, succeeded(t)))

	var answer map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &answer); err != nil {
		t.Fatalf("Failed to decode JSON: %v", err)
	}
	if answer["status"] != "succeeded" {
		t.Errorf("Expected status=succeeded, got %v", answer["status"])
	}
	result, ok := answer["result"].(map[string]interface{})
	if !ok {
		t.Fatalf("Expected result object, got %T", answer["result"])
	}
	if len(result["rows"].([]interface{})) != 2 {
		t.Errorf("Expected 2 rows, got %v", result["rows"])
	}

	buf.Reset()
	require.NoError(t, p.PresentAnswer(&buf, exhausted(t)))
	var clarified dto.AskOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &clarified))
	require.NotNil(t, clarified.Clarification)
	assert.Len(t, clarified.Clarification.Attempts, 2)

	buf.Reset()
	require.NoError(t, p.PresentHistory(&buf, nil))
	assert.JSONEq(t, "[]", buf.String())
}

func TestJSONPresenter_FailuresOmitEngineMessage(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, presenter.NewJSONPresenter().PresentAnswer(&buf, exhausted(t)))

	assert.NotContains(t, buf.String(), "no such table")

	var answer struct {
		Failures []map[string]interface{} `json:"history_failures"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &answer))
	require.Len(t, answer.Failures, 2)
	for _, f := range answer.Failures {
		assert.NotContains(t, f, "message")
		assert.Equal(t, "TABLE_NOT_FOUND", f["code"])
		assert.NotEmpty(t, f["suggestion"])
	}
	assert.Equal(t, "custmers", answer.Failures[0]["subject"])
}

func TestCSVPresenter(t *testing.T) {
	p := presenter.NewCSVPresenter(presenter.Options{})

	var buf bytes.Buffer
	require.NoError(t, p.PresentAnswer(&buf, succeeded(t)))
	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"name", "orders", "revenue", "vip"},
		{"John Smith", "3", "1999.96", "true"},
		{"Emma Wilson", "2", "839.97", "NULL"},
	}, records)

	buf.Reset()
	require.NoError(t, p.PresentBatch(&buf, batch(t)))
	records, err = csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, []string{"1", "Top customers", "succeeded", "2", "SELECT name FROM customers", "2", ""}, records[1])
	assert.Equal(t, `table "customers" does not exist`, records[2][6])
	assert.Equal(t, "error", records[3][2])

	buf.Reset()
	require.NoError(t, p.PresentAnswer(&buf, exhausted(t)))
	assert.Contains(t, buf.String(), "Rephrase your question")
}

func TestMarkdownPresenter(t *testing.T) {
	p := presenter.NewMarkdownPresenter(presenter.Options{ShowDiff: true})

	var buf bytes.Buffer
	require.NoError(t, p.PresentAnswer(&buf, succeeded(t)))
	out := buf.String()
	assert.Contains(t, out, "```sql\nSELECT name FROM customers\n```")
	assert.Contains(t, out, "| name | orders | revenue | vip |")
	assert.Contains(t, out, "| --- | --- | --- | --- |")
	assert.Contains(t, out, "| John Smith | 3 | 1999.96 | true |")

	buf.Reset()
	require.NoError(t, p.PresentAnswer(&buf, exhausted(t)))
	assert.Contains(t, buf.String(), "1. table \"custmers\" does not exist")
	assert.Contains(t, buf.String(), "Changed:")

	buf.Reset()
	require.NoError(t, p.PresentHistory(&buf, history()))
	assert.Contains(t, buf.String(), `Top \| customers`)

	buf.Reset()
	require.NoError(t, p.PresentSchema(&buf, testutil.Catalog()))
	assert.Contains(t, buf.String(), "#### customers")
	assert.Contains(t, buf.String(), "| customer_id | INTEGER | PRIMARY KEY |")
}
