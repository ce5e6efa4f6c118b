package session

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Outcome is the tagged result of the latest external call.
// Exactly one of Result and Error is set.
type Outcome struct {
	Result *ResultSet  `json:"result,omitempty"`
	Error  *StageError `json:"error,omitempty"`
}

// Success wraps a result set into an outcome
func Success(rs ResultSet) Outcome {
	return Outcome{Result: &rs}
}

// Failed wraps a stage error into an outcome
func Failed(stage Stage, kind ErrorKind, message string) Outcome {
	if !kind.IsValid() {
		kind = KindUnknown
	}
	return Outcome{Error: &StageError{Stage: stage, Kind: kind, Message: message}}
}

// Succeeded reports whether the outcome carries a result
func (o Outcome) Succeeded() bool {
	return o.Result != nil && o.Error == nil
}

// IsValid reports whether exactly one side of the outcome is set
func (o Outcome) IsValid() bool {
	return (o.Result == nil) != (o.Error == nil)
}

func (o Outcome) clone() Outcome {
	var out Outcome
	if o.Result != nil {
		rs := o.Result.Clone()
		out.Result = &rs
	}
	if o.Error != nil {
		e := *o.Error
		out.Error = &e
	}
	return out
}

// ResultSet is a normalized tabular result. Cells are nil, bool, int64,
// float64 or string.
type ResultSet struct {
	Columns   []string
	Rows      [][]any
	Truncated bool // more rows existed beyond the cap
}

// NewResultSet builds a result set, normalizing every cell
func NewResultSet(columns []string, rows [][]any, truncated bool) ResultSet {
	rs := ResultSet{Columns: make([]string, len(columns)), Truncated: truncated}
	copy(rs.Columns, columns)
	rs.Rows = make([][]any, len(rows))
	for i, row := range rows {
		out := make([]any, len(row))
		for j, cell := range row {
			out[j] = NormalizeCell(cell)
		}
		rs.Rows[i] = out
	}
	return rs
}

// RowCount returns the number of rows held
func (r ResultSet) RowCount() int {
	return len(r.Rows)
}

// Summary returns a one-line description of the result size
func (r ResultSet) Summary() string {
	n := r.RowCount()
	switch {
	case n == 0:
		return "Query executed successfully but returned no results."
	case r.Truncated:
		return fmt.Sprintf("Query returned more than %d rows. Displaying first %d rows.", n, n)
	case n == 1:
		return "Query returned 1 row."
	default:
		return fmt.Sprintf("Query returned %d rows.", n)
	}
}

// Clone returns a deep copy of the result set
func (r ResultSet) Clone() ResultSet {
	out := ResultSet{Truncated: r.Truncated}
	if r.Columns != nil {
		out.Columns = append([]string(nil), r.Columns...)
	}
	if r.Rows != nil {
		out.Rows = make([][]any, len(r.Rows))
		for i, row := range r.Rows {
			out.Rows[i] = append([]any(nil), row...)
		}
	}
	return out
}

// NormalizeCell maps a driver value onto the cell types a ResultSet holds
func NormalizeCell(v any) any {
	switch x := v.(type) {
	case nil, bool, string, int64:
		return x
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return strconv.FormatFloat(x, 'g', -1, 64)
		}
		return x
	case float32:
		return NormalizeCell(float64(x))
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint64:
		if x > math.MaxInt64 {
			return strconv.FormatUint(x, 10)
		}
		return int64(x)
	case []byte:
		return string(x)
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

type resultSetJSON struct {
	Columns   []string            `json:"columns"`
	Rows      [][]json.RawMessage `json:"rows"`
	Truncated bool                `json:"truncated"`
}

// MarshalJSON encodes floats so that they always carry a fraction or
// exponent, which lets UnmarshalJSON restore int64 and float64 exactly.
func (r ResultSet) MarshalJSON() ([]byte, error) {
	out := resultSetJSON{Columns: r.Columns, Truncated: r.Truncated}
	if out.Columns == nil {
		out.Columns = []string{}
	}
	out.Rows = make([][]json.RawMessage, len(r.Rows))
	for i, row := range r.Rows {
		enc := make([]json.RawMessage, len(row))
		for j, cell := range row {
			raw, err := encodeCell(NormalizeCell(cell))
			if err != nil {
				return nil, fmt.Errorf("encode cell %d,%d: %w", i, j, err)
			}
			enc[j] = raw
		}
		out.Rows[i] = enc
	}
	return json.Marshal(out)
}

// UnmarshalJSON restores cells written by MarshalJSON
func (r *ResultSet) UnmarshalJSON(data []byte) error {
	var in resultSetJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	rs := ResultSet{Columns: in.Columns, Truncated: in.Truncated}
	if rs.Columns == nil {
		rs.Columns = []string{}
	}
	rs.Rows = make([][]any, len(in.Rows))
	for i, row := range in.Rows {
		cells := make([]any, len(row))
		for j, raw := range row {
			cell, err := decodeCell(raw)
			if err != nil {
				return fmt.Errorf("decode cell %d,%d: %w", i, j, err)
			}
			cells[j] = cell
		}
		rs.Rows[i] = cells
	}
	*r = rs
	return nil
}

func encodeCell(v any) (json.RawMessage, error) {
	switch x := v.(type) {
	case float64:
		s := strconv.FormatFloat(x, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
		return json.RawMessage(s), nil
	case int64:
		return json.RawMessage(strconv.FormatInt(x, 10)), nil
	default:
		return json.Marshal(x)
	}
}

func decodeCell(raw json.RawMessage) (any, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty cell")
	}
	switch raw[0] {
	case 'n':
		return nil, nil
	case 't', 'f':
		var b bool
		err := json.Unmarshal(raw, &b)
		return b, err
	case '"':
		var s string
		err := json.Unmarshal(raw, &s)
		return s, err
	}

	s := string(raw)
	if bytes.ContainsAny(raw, ".eE") {
		return strconv.ParseFloat(s, 64)
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, nil
	}
	return strconv.ParseFloat(s, 64)
}
